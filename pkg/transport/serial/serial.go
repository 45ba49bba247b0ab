// Package serial implements the byte-stream links (USB, trader,
// companion, Bluetooth SPP, expansion module) over serial ports.
package serial

import (
	"context"
	"errors"
	"fmt"
	"sync"
	"time"

	"github.com/golang/glog"
	"go.bug.st/serial"

	fx "github.com/robotalks/bugsy.go/pkg/framework"
	"github.com/robotalks/bugsy.go/pkg/transport"
)

// DefaultReadTimeout is the quiet gap terminating a message.
const DefaultReadTimeout = 5 * time.Millisecond

// Default baud rates.
const (
	BaudUSB       = 115200
	BaudTrader    = 250000
	BaudCompanion = 250000
	BaudWireless  = 115200
	BaudModule    = 115200
)

// OpenPort opens a serial port with the read timeout applied.
func OpenPort(name string, baudRate int, readTimeout time.Duration) (serial.Port, error) {
	if name == "" {
		return nil, errors.New("serial port is empty")
	}
	if baudRate <= 0 {
		return nil, fmt.Errorf("invalid serial baud rate: %d", baudRate)
	}
	port, err := serial.Open(name, &serial.Mode{BaudRate: baudRate})
	if err != nil {
		return nil, fmt.Errorf("open serial port %q: %w", name, err)
	}
	if readTimeout > 0 {
		if err := port.SetReadTimeout(readTimeout); err != nil {
			port.Close()
			return nil, fmt.Errorf("set serial read timeout: %w", err)
		}
	}
	return port, nil
}

// Ports lists the serial ports of the system.
func Ports() ([]string, error) {
	return serial.GetPortsList()
}

// Transport implements transport.Transport on a serial port.
type Transport struct {
	PortName    string
	BaudRate    int
	ReadTimeout time.Duration
	BufferSize  int

	inbox   *transport.Inbox
	mu      sync.Mutex
	writeMu sync.Mutex
	port    serial.Port
	cancel  context.CancelFunc
	done    chan struct{}
}

// New creates a Transport.
func New(portName string, baudRate int) *Transport {
	return &Transport{
		PortName:    portName,
		BaudRate:    baudRate,
		ReadTimeout: DefaultReadTimeout,
		BufferSize:  transport.DefaultBufferSize,
		inbox:       transport.NewInbox(portName, transport.DefaultInboxSize),
	}
}

// Inbox exposes the receiving queue.
func (t *Transport) Inbox() *transport.Inbox {
	return t.inbox
}

// Open implements transport.Transport.
func (t *Transport) Open(ctx context.Context) error {
	t.mu.Lock()
	defer t.mu.Unlock()
	if t.port != nil {
		return nil
	}
	if err := ctx.Err(); err != nil {
		return err
	}
	port, err := OpenPort(t.PortName, t.BaudRate, t.ReadTimeout)
	if err != nil {
		return err
	}
	runCtx, cancel := context.WithCancel(context.Background())
	t.port, t.cancel, t.done = port, cancel, make(chan struct{})
	reader := transport.NewMessageReader(runCtx, port)
	reader.BufferSize = t.BufferSize
	go func(done chan struct{}) {
		defer close(done)
		// The port is closed on cancel to unblock the pending read.
		err := fx.RunWithContextCloser(runCtx, port, func() error {
			return transport.Pump(runCtx, reader, t.inbox)
		})
		if err != nil && !errors.Is(err, context.Canceled) {
			glog.Errorf("%s: read error: %v", t.PortName, err)
		}
	}(t.done)
	glog.V(1).Infof("%s: opened at %d baud", t.PortName, t.BaudRate)
	return nil
}

// Close implements transport.Transport.
func (t *Transport) Close() error {
	t.mu.Lock()
	defer t.mu.Unlock()
	if t.port == nil {
		return nil
	}
	t.cancel()
	<-t.done
	t.port, t.cancel, t.done = nil, nil, nil
	return nil
}

// TryRead implements transport.Transport.
func (t *Transport) TryRead() ([]byte, bool) {
	return t.inbox.TryPop()
}

// Write implements transport.Transport.
func (t *Transport) Write(data []byte) error {
	t.mu.Lock()
	port := t.port
	t.mu.Unlock()
	if port == nil {
		return transport.ErrClosed
	}
	t.writeMu.Lock()
	defer t.writeMu.Unlock()
	for len(data) > 0 {
		n, err := port.Write(data)
		if err != nil {
			return fmt.Errorf("write %s: %w", t.PortName, err)
		}
		data = data[n:]
	}
	return nil
}
