// Package client talks to the core over any bus channel.
package client

import (
	"context"
	"errors"
	"fmt"
	"io"
	"sync"
	"time"

	"github.com/golang/glog"

	"github.com/robotalks/bugsy.go/pkg/bus"
	"github.com/robotalks/bugsy.go/pkg/core"
	"github.com/robotalks/bugsy.go/pkg/liveness"
	"github.com/robotalks/bugsy.go/pkg/motion"
	"github.com/robotalks/bugsy.go/pkg/transport"
)

// DefaultTimeout is how long a reply is awaited.
const DefaultTimeout = time.Second

// DefaultDriveInterval is how often Drive renews the movement.
const DefaultDriveInterval = 50 * time.Millisecond

// ErrTimeout indicates no reply arrived in time.
var ErrTimeout = errors.New("reply timeout")

// ReplyError indicates a reply of unexpected size.
type ReplyError struct {
	Command bus.Command
	Reply   []byte
}

// Error implements error.
func (e *ReplyError) Error() string {
	return fmt.Sprintf("unexpected reply to %s: % x", e.Command, e.Reply)
}

// Client sends frames and waits for replies. Requests are serialized.
type Client struct {
	RW      transport.PacketReadWriter
	Timeout time.Duration

	lock    sync.Mutex
	replyCh chan []byte
	errCh   chan error
	started sync.Once
}

// New creates a Client.
func New(rw transport.PacketReadWriter) *Client {
	return &Client{
		RW:      rw,
		Timeout: DefaultTimeout,
		replyCh: make(chan []byte, 4),
		errCh:   make(chan error, 1),
	}
}

// Close closes the underlying channel if possible.
func (c *Client) Close() error {
	if closer, ok := c.RW.(io.Closer); ok {
		return closer.Close()
	}
	return nil
}

// Send writes a frame without waiting for any reply.
func (c *Client) Send(f bus.Frame) error {
	c.lock.Lock()
	defer c.lock.Unlock()
	return c.RW.WritePacket(bus.Encode(f))
}

// Request writes a frame and returns the first reply.
func (c *Client) Request(f bus.Frame) ([]byte, error) {
	c.started.Do(func() { go c.readLoop() })
	c.lock.Lock()
	defer c.lock.Unlock()
	c.drain()
	if err := c.RW.WritePacket(bus.Encode(f)); err != nil {
		return nil, err
	}
	timeout := c.Timeout
	if timeout <= 0 {
		timeout = DefaultTimeout
	}
	select {
	case reply := <-c.replyCh:
		return reply, nil
	case err := <-c.errCh:
		return nil, err
	case <-time.After(timeout):
		return nil, ErrTimeout
	}
}

func (c *Client) readLoop() {
	for {
		pkt, err := c.RW.ReadPacket()
		if err != nil {
			c.errCh <- err
			return
		}
		if len(pkt) == 0 {
			continue
		}
		select {
		case c.replyCh <- pkt:
		default:
			glog.V(2).Infof("reply dropped: % x", pkt)
		}
	}
}

func (c *Client) drain() {
	for {
		select {
		case <-c.replyCh:
		default:
			return
		}
	}
}

func (c *Client) requestByte(f bus.Frame) (byte, error) {
	reply, err := c.Request(f)
	if err != nil {
		return 0, err
	}
	if len(reply) != 1 {
		return 0, &ReplyError{Command: f.Command(), Reply: reply}
	}
	return reply[0], nil
}

// Test sends data and returns the echo.
func (c *Client) Test(data []byte) ([]byte, error) {
	return c.Request(bus.Test{Data: data})
}

// GetState queries the core state.
func (c *Client) GetState() (core.State, error) {
	b, err := c.requestByte(bus.GetState{})
	return core.State(b), err
}

// Move issues a movement.
func (c *Client) Move(m motion.Movement) error {
	return c.Send(bus.Move{Movement: m})
}

// SetTraderState reports the trader state and returns the core state.
func (c *Client) SetTraderState(s liveness.State) (core.State, error) {
	b, err := c.requestByte(bus.SetTraderState{State: s})
	return core.State(b), err
}

// GetTraderState queries the trader state known by the core.
func (c *Client) GetTraderState() (liveness.State, error) {
	b, err := c.requestByte(bus.GetTraderState{})
	return liveness.State(b), err
}

// GetChannels queries the active channel set.
func (c *Client) GetChannels() (bus.ChannelSet, error) {
	b, err := c.requestByte(bus.GetChannels{})
	return bus.ChannelSet(b), err
}

// RemoteConfigure requests a new channel set.
func (c *Client) RemoteConfigure(s bus.ChannelSet) error {
	return c.Send(bus.RemoteConfigure{Channels: s})
}

// SaveConfig persists the configuration of the core.
func (c *Client) SaveConfig() error {
	return c.Send(bus.SaveConfig{})
}

// GetWiFiSSID queries the SSID.
func (c *Client) GetWiFiSSID() (string, error) {
	reply, err := c.Request(bus.GetWiFiSSID{})
	return bus.CString(reply), err
}

// SetWiFiSSID sets the SSID.
func (c *Client) SetWiFiSSID(ssid string) error {
	return c.Send(bus.SetWiFiSSID{SSID: ssid})
}

// GetWiFiPassword queries the WiFi password.
func (c *Client) GetWiFiPassword() (string, error) {
	reply, err := c.Request(bus.GetWiFiPassword{})
	return bus.CString(reply), err
}

// SetWiFiPassword sets the WiFi password.
func (c *Client) SetWiFiPassword(pwd string) error {
	return c.Send(bus.SetWiFiPassword{Password: pwd})
}

// Drive keeps sending the movement every interval for the duration,
// then sends Stop.
func (c *Client) Drive(ctx context.Context, m motion.Movement, duration, interval time.Duration) error {
	if interval <= 0 {
		interval = DefaultDriveInterval
	}
	deadline := time.After(duration)
	ticker := time.NewTicker(interval)
	defer ticker.Stop()
	for {
		if err := c.Move(m); err != nil {
			return err
		}
		select {
		case <-ctx.Done():
			c.Move(motion.Stop)
			return ctx.Err()
		case <-deadline:
			return c.Move(motion.Stop)
		case <-ticker.C:
		}
	}
}
