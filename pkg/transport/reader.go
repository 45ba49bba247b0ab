package transport

import (
	"context"
	"errors"
	"io"
	"os"
)

// DefaultBufferSize is the largest message a byte stream delivers at once.
const DefaultBufferSize = 48

// MessageReader splits a byte stream into messages. A message ends when
// the stream goes quiet for one read timeout or the buffer is full. The
// underlying reader must return (0, nil) or a timeout error when no byte
// arrived within its read timeout.
type MessageReader struct {
	Reader     io.Reader
	BufferSize int

	ctx context.Context
}

// NewMessageReader creates a MessageReader which stops when ctx is done.
func NewMessageReader(ctx context.Context, r io.Reader) *MessageReader {
	return &MessageReader{Reader: r, BufferSize: DefaultBufferSize, ctx: ctx}
}

// ReadPacket implements PacketReader.
func (r *MessageReader) ReadPacket() ([]byte, error) {
	size := r.BufferSize
	if size <= 0 {
		size = DefaultBufferSize
	}
	buf := make([]byte, size)
	var n int
	for n < size {
		if r.ctx != nil {
			if err := r.ctx.Err(); err != nil {
				return nil, err
			}
		}
		cnt, err := r.Reader.Read(buf[n:])
		if err != nil && !isTimeout(err) {
			if n > 0 {
				return buf[:n], nil
			}
			return nil, err
		}
		if cnt == 0 && n > 0 {
			break
		}
		n += cnt
	}
	return buf[:n], nil
}

func isTimeout(err error) bool {
	if os.IsTimeout(err) {
		return true
	}
	var te interface{ Timeout() bool }
	return errors.As(err, &te) && te.Timeout()
}
