package websocket

import (
	"context"
	"testing"
	"time"

	"github.com/stretchr/testify/require"

	"github.com/robotalks/bugsy.go/pkg/transport"
)

func TestServerRoundTrip(t *testing.T) {
	s := NewServer("127.0.0.1:0")
	require.ErrorIs(t, s.Write([]byte{1}), transport.ErrClosed)
	require.NoError(t, s.Open(context.Background()))
	defer s.Close()

	require.NoError(t, s.Write([]byte{1}))

	c, err := Dial("ws://" + s.ListenAddr().String() + DefaultPath)
	require.NoError(t, err)
	defer c.Close()

	require.NoError(t, c.WritePacket([]byte{0x00, 0x42}))
	var pkt []byte
	require.Eventually(t, func() bool {
		var ok bool
		pkt, ok = s.TryRead()
		return ok
	}, 2*time.Second, 5*time.Millisecond)
	require.Equal(t, []byte{0x00, 0x42}, pkt)
	require.Equal(t, 1, s.Clients())

	require.NoError(t, s.Write([]byte{0x42}))
	reply, err := c.ReadPacket()
	require.NoError(t, err)
	require.Equal(t, []byte{0x42}, reply)

	require.NoError(t, s.Close())
	require.Nil(t, s.ListenAddr())
	require.NoError(t, s.Close())
}
