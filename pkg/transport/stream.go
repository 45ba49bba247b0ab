package transport

import (
	"context"
	"io"
)

// Stream implements PacketReadWriter over a byte stream with a read
// timeout, such as a serial port. Messages are delimited by quiet gaps.
type Stream struct {
	io.ReadWriter

	reader *MessageReader
}

// NewStream creates a Stream.
func NewStream(ctx context.Context, rw io.ReadWriter) *Stream {
	return &Stream{ReadWriter: rw, reader: NewMessageReader(ctx, rw)}
}

// ReadPacket implements PacketReader.
func (s *Stream) ReadPacket() ([]byte, error) {
	return s.reader.ReadPacket()
}

// WritePacket implements PacketWriter.
func (s *Stream) WritePacket(pkt []byte) error {
	_, err := s.Write(pkt)
	return err
}

// Close closes the underlying stream if it is an io.Closer.
func (s *Stream) Close() error {
	if closer, ok := s.ReadWriter.(io.Closer); ok {
		return closer.Close()
	}
	return nil
}
