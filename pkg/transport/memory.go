package transport

import (
	"context"
	"sync"
)

// Memory is an in-process transport. Peers inject messages with Deliver
// and inspect what was written with Written.
type Memory struct {
	Name     string
	OpenErr  error
	WriteErr error

	inbox   *Inbox
	written [][]byte
	opened  bool
	opens   int
	closes  int
	lock    sync.Mutex
}

// NewMemory creates a Memory transport.
func NewMemory(name string) *Memory {
	return &Memory{Name: name, inbox: NewInbox(name, DefaultInboxSize)}
}

// Open implements Transport.
func (m *Memory) Open(context.Context) error {
	m.lock.Lock()
	defer m.lock.Unlock()
	m.opens++
	if m.OpenErr != nil {
		return m.OpenErr
	}
	m.opened = true
	return nil
}

// Close implements Transport.
func (m *Memory) Close() error {
	m.lock.Lock()
	defer m.lock.Unlock()
	m.closes++
	m.opened = false
	return nil
}

// TryRead implements Transport.
func (m *Memory) TryRead() ([]byte, bool) {
	return m.inbox.TryPop()
}

// Write implements Transport.
func (m *Memory) Write(data []byte) error {
	m.lock.Lock()
	defer m.lock.Unlock()
	if !m.opened {
		return ErrClosed
	}
	if m.WriteErr != nil {
		return m.WriteErr
	}
	m.written = append(m.written, append([]byte(nil), data...))
	return nil
}

// Deliver simulates a message received from the peer.
func (m *Memory) Deliver(data []byte) bool {
	return m.inbox.Push(data)
}

// Written returns all messages written so far and clears them.
func (m *Memory) Written() [][]byte {
	m.lock.Lock()
	defer m.lock.Unlock()
	w := m.written
	m.written = nil
	return w
}

// IsOpen tells if the transport is open.
func (m *Memory) IsOpen() bool {
	m.lock.Lock()
	defer m.lock.Unlock()
	return m.opened
}

// Counts returns how many times Open and Close were called.
func (m *Memory) Counts() (opens, closes int) {
	m.lock.Lock()
	defer m.lock.Unlock()
	return m.opens, m.closes
}
