package transport

import (
	"context"
	"io"
	"testing"

	"github.com/stretchr/testify/require"
)

// burstReader returns one chunk per Read, an empty chunk is a quiet gap.
type burstReader struct {
	chunks [][]byte
}

func (r *burstReader) Read(p []byte) (int, error) {
	if len(r.chunks) == 0 {
		return 0, io.EOF
	}
	chunk := r.chunks[0]
	n := copy(p, chunk)
	if n < len(chunk) {
		r.chunks[0] = chunk[n:]
	} else {
		r.chunks = r.chunks[1:]
	}
	return n, nil
}

func TestMessageReaderQuietGap(t *testing.T) {
	r := NewMessageReader(context.Background(), &burstReader{chunks: [][]byte{
		{}, {0x10, 1}, {0, 0xff, 0xff}, {}, {0x01}, {},
	}})
	pkt, err := r.ReadPacket()
	require.NoError(t, err)
	require.Equal(t, []byte{0x10, 1, 0, 0xff, 0xff}, pkt)
	pkt, err = r.ReadPacket()
	require.NoError(t, err)
	require.Equal(t, []byte{0x01}, pkt)
	_, err = r.ReadPacket()
	require.ErrorIs(t, err, io.EOF)
}

func TestMessageReaderBufferFull(t *testing.T) {
	r := NewMessageReader(context.Background(), &burstReader{chunks: [][]byte{{1, 2, 3, 4, 5}}})
	r.BufferSize = 3
	pkt, err := r.ReadPacket()
	require.NoError(t, err)
	require.Equal(t, []byte{1, 2, 3}, pkt)
	pkt, err = r.ReadPacket()
	require.NoError(t, err)
	require.Equal(t, []byte{4, 5}, pkt)
}

func TestMessageReaderCanceled(t *testing.T) {
	ctx, cancel := context.WithCancel(context.Background())
	cancel()
	r := NewMessageReader(ctx, &burstReader{chunks: [][]byte{{}}})
	_, err := r.ReadPacket()
	require.ErrorIs(t, err, context.Canceled)
}

type packetList [][]byte

func (l *packetList) ReadPacket() ([]byte, error) {
	if len(*l) == 0 {
		return nil, io.EOF
	}
	pkt := (*l)[0]
	*l = (*l)[1:]
	return pkt, nil
}

func TestPump(t *testing.T) {
	inbox := NewInbox("pump", 4)
	src := &packetList{{1}, {}, {2, 3}}
	require.ErrorIs(t, Pump(context.Background(), src, inbox), io.EOF)
	require.Equal(t, 2, inbox.Len())
}
