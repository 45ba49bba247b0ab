// Package transport brings up the links of the command bus and moves raw
// messages between them and the control loop.
package transport

import (
	"context"
	"errors"

	"github.com/robotalks/bugsy.go/pkg/bus"
)

// PacketReader reads one logical message.
type PacketReader interface {
	ReadPacket() ([]byte, error)
}

// PacketWriter writes one logical message.
type PacketWriter interface {
	WritePacket([]byte) error
}

// PacketReadWriter reads/writes logical messages.
type PacketReadWriter interface {
	PacketReader
	PacketWriter
}

// Transport is the link behind one logical channel.
// TryRead and Write are only called from the control loop.
type Transport interface {
	// Open brings up the link. Background receiving starts here.
	Open(ctx context.Context) error
	// Close tears down the link.
	Close() error
	// TryRead returns one pending message without blocking.
	TryRead() ([]byte, bool)
	// Write sends one message.
	Write([]byte) error
}

// Message is raw bytes received from a channel.
type Message struct {
	Source bus.ChannelID
	Data   []byte
}

var (
	// ErrClosed indicates the transport is not open.
	ErrClosed = errors.New("transport closed")
	// ErrUnavailable indicates no peer is attached to receive.
	ErrUnavailable = errors.New("transport unavailable")
)

// WriteError tags a write failure with its channel.
type WriteError struct {
	Channel bus.ChannelID
	Err     error
}

// Error implements error.
func (e *WriteError) Error() string {
	return e.Channel.String() + ": " + e.Err.Error()
}

// Unwrap returns the underlying error.
func (e *WriteError) Unwrap() error {
	return e.Err
}
