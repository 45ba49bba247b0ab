package transport

import (
	"sync/atomic"

	"github.com/golang/glog"
)

// DefaultInboxSize is the number of messages buffered per transport.
const DefaultInboxSize = 8

// Inbox hands messages from a receiving goroutine to the control loop.
// It never blocks the producer: when full, the message is dropped.
type Inbox struct {
	Name string

	ch    chan []byte
	drops atomic.Uint64
}

// NewInbox creates an Inbox holding up to size messages.
func NewInbox(name string, size int) *Inbox {
	if size <= 0 {
		size = DefaultInboxSize
	}
	return &Inbox{Name: name, ch: make(chan []byte, size)}
}

// Push enqueues a message, returns false if it was dropped.
func (b *Inbox) Push(msg []byte) bool {
	select {
	case b.ch <- msg:
		return true
	default:
		n := b.drops.Add(1)
		glog.Warningf("%s: inbox full, message dropped (%d total)", b.Name, n)
		return false
	}
}

// TryPop dequeues a message without blocking.
func (b *Inbox) TryPop() ([]byte, bool) {
	select {
	case msg := <-b.ch:
		return msg, true
	default:
		return nil, false
	}
}

// Len returns the number of pending messages.
func (b *Inbox) Len() int {
	return len(b.ch)
}

// Drops returns the number of dropped messages.
func (b *Inbox) Drops() uint64 {
	return b.drops.Load()
}
