package mqtt

import (
	"context"
	"errors"
	"sync"
	"time"

	"github.com/robotalks/bugsy.go/pkg/transport"
)

// Topic suffixes under <prefix><device-id>/.
const (
	TopicCmd    = "cmd"
	TopicReply  = "reply"
	TopicStatus = "status"
)

// DefaultPublishTimeout bounds the wait for a client publish to complete.
const DefaultPublishTimeout = time.Second

// ErrTimeout indicates an MQTT operation didn't complete in time.
var ErrTimeout = errors.New("mqtt timeout")

// DeviceTopic builds <device-id>/<suffix>.
func DeviceTopic(deviceID, suffix string) string {
	return deviceID + "/" + suffix
}

// Transport implements transport.Transport on top of a Queue.
// Frames arrive on <id>/cmd and replies go to <id>/reply.
// The Queue connection is owned by whoever runs the Queue. None of the
// methods waits on the broker, so they are safe to call from the loop
// while the broker is away.
type Transport struct {
	Queue      *Queue
	CmdTopic   string
	ReplyTopic string

	inbox *transport.Inbox
	mu    sync.Mutex
	sub   *Subscription
}

// NewTransport creates a Transport for the device.
func NewTransport(q *Queue, deviceID string) *Transport {
	return &Transport{
		Queue:      q,
		CmdTopic:   DeviceTopic(deviceID, TopicCmd),
		ReplyTopic: DeviceTopic(deviceID, TopicReply),
		inbox:      transport.NewInbox("mqtt:"+deviceID, transport.DefaultInboxSize),
	}
}

// Inbox exposes the receiving queue.
func (t *Transport) Inbox() *transport.Inbox {
	return t.inbox
}

// Open implements transport.Transport. The command topic is subscribed
// in the background, or when the Queue (re)connects.
func (t *Transport) Open(ctx context.Context) error {
	if err := ctx.Err(); err != nil {
		return err
	}
	t.mu.Lock()
	defer t.mu.Unlock()
	if t.sub != nil {
		return nil
	}
	t.sub = t.Queue.Sub(t.CmdTopic, func(_ string, payload []byte) {
		if len(payload) > 0 {
			t.inbox.Push(append([]byte(nil), payload...))
		}
	})
	return nil
}

// Close implements transport.Transport.
func (t *Transport) Close() error {
	t.mu.Lock()
	defer t.mu.Unlock()
	if t.sub == nil {
		return nil
	}
	err := t.sub.Close()
	t.sub = nil
	return err
}

// TryRead implements transport.Transport.
func (t *Transport) TryRead() ([]byte, bool) {
	return t.inbox.TryPop()
}

// Write implements transport.Transport. The reply is published by the
// Queue worker.
func (t *Transport) Write(data []byte) error {
	t.mu.Lock()
	opened := t.sub != nil
	t.mu.Unlock()
	if !opened {
		return transport.ErrClosed
	}
	if !t.Queue.Connected() {
		return transport.ErrUnavailable
	}
	return t.Queue.Publish(t.ReplyTopic, append([]byte(nil), data...), 0, false)
}
