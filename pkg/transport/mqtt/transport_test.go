package mqtt

import (
	"context"
	"errors"
	"sync"
	"testing"
	"time"

	paho "github.com/eclipse/paho.mqtt.golang"
	"github.com/stretchr/testify/require"

	"github.com/robotalks/bugsy.go/pkg/transport"
)

type fakeToken struct {
	done <-chan struct{}
}

func (t *fakeToken) Wait() bool {
	<-t.done
	return true
}

func (t *fakeToken) WaitTimeout(d time.Duration) bool {
	select {
	case <-t.done:
		return true
	case <-time.After(d):
		return false
	}
}

func (t *fakeToken) Error() error { return nil }

// fakeClient records broker calls. While the broker is away, tokens
// never complete, like paho's while it is reconnecting.
type fakeClient struct {
	mu    sync.Mutex
	acks  chan struct{}
	calls []string
}

func newFakeClient() *fakeClient {
	c := &fakeClient{acks: make(chan struct{})}
	close(c.acks)
	return c
}

func (c *fakeClient) goAway() {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.acks = make(chan struct{})
}

func (c *fakeClient) record(call string) paho.Token {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.calls = append(c.calls, call)
	return &fakeToken{done: c.acks}
}

func (c *fakeClient) Calls() []string {
	c.mu.Lock()
	defer c.mu.Unlock()
	return append([]string(nil), c.calls...)
}

func (c *fakeClient) Called(call string) bool {
	for _, recorded := range c.Calls() {
		if recorded == call {
			return true
		}
	}
	return false
}

func (c *fakeClient) IsConnected() bool      { return true }
func (c *fakeClient) IsConnectionOpen() bool { return true }
func (c *fakeClient) Connect() paho.Token    { return c.record("CONNECT") }
func (c *fakeClient) Disconnect(uint)        { c.record("DISCONNECT") }

func (c *fakeClient) Publish(topic string, qos byte, retained bool, payload interface{}) paho.Token {
	return c.record("PUB " + topic)
}

func (c *fakeClient) Subscribe(topic string, qos byte, callback paho.MessageHandler) paho.Token {
	return c.record("SUB " + topic)
}

func (c *fakeClient) SubscribeMultiple(filters map[string]byte, callback paho.MessageHandler) paho.Token {
	var call string
	for topic := range filters {
		call += " " + topic
	}
	return c.record("SUBM" + call)
}

func (c *fakeClient) Unsubscribe(topics ...string) paho.Token {
	return c.record("UNSUB " + topics[0])
}

func (c *fakeClient) AddRoute(string, paho.MessageHandler) {}

func (c *fakeClient) OptionsReader() paho.ClientOptionsReader {
	return paho.ClientOptionsReader{}
}

func newTestQueue(c *fakeClient) *Queue {
	q := newQueue("robots/")
	q.Client = c
	q.OpTimeout = 50 * time.Millisecond
	return q
}

// returnsWithin runs fn and fails if it doesn't return in time.
func returnsWithin(t *testing.T, d time.Duration, fn func() error) error {
	t.Helper()
	errCh := make(chan error, 1)
	go func() { errCh <- fn() }()
	select {
	case err := <-errCh:
		return err
	case <-time.After(d):
		require.FailNow(t, "call blocked")
		return nil
	}
}

func TestTransportOpenWhileDisconnected(t *testing.T) {
	client := newFakeClient()
	q := newTestQueue(client)
	defer q.Close()
	tr := NewTransport(q, "dev")

	require.NoError(t, tr.Open(context.Background()))
	require.Empty(t, client.Calls())

	q.onConnect(client)
	require.Eventually(t, func() bool {
		return client.Called("SUBM robots/dev/cmd")
	}, time.Second, 5*time.Millisecond)

	q.deliver("robots/dev/cmd", []byte{0x01})
	q.deliver("robots/dev/cmd", nil)
	data, ok := tr.TryRead()
	require.True(t, ok)
	require.Equal(t, []byte{0x01}, data)
	_, ok = tr.TryRead()
	require.False(t, ok)
}

func TestTransportSubscribesWhenConnected(t *testing.T) {
	client := newFakeClient()
	q := newTestQueue(client)
	defer q.Close()
	q.onConnect(client)

	tr := NewTransport(q, "dev")
	require.NoError(t, tr.Open(context.Background()))
	require.Eventually(t, func() bool {
		return client.Called("SUB robots/dev/cmd")
	}, time.Second, 5*time.Millisecond)

	require.NoError(t, tr.Close())
	require.Eventually(t, func() bool {
		return client.Called("UNSUB robots/dev/cmd")
	}, time.Second, 5*time.Millisecond)
}

func TestTransportWrite(t *testing.T) {
	client := newFakeClient()
	q := newTestQueue(client)
	defer q.Close()
	tr := NewTransport(q, "dev")

	require.ErrorIs(t, tr.Write([]byte{0x20}), transport.ErrClosed)
	require.NoError(t, tr.Open(context.Background()))
	require.ErrorIs(t, tr.Write([]byte{0x20}), transport.ErrUnavailable)

	q.onConnect(client)
	require.NoError(t, tr.Write([]byte{0x20}))
	require.Eventually(t, func() bool {
		return client.Called("PUB robots/dev/reply")
	}, time.Second, 5*time.Millisecond)

	q.onConnectionLost(client, errors.New("broker gone"))
	require.False(t, q.Connected())
	require.ErrorIs(t, tr.Write([]byte{0x20}), transport.ErrUnavailable)
}

func TestTransportBrokerAway(t *testing.T) {
	client := newFakeClient()
	q := newTestQueue(client)
	q.OpTimeout = 200 * time.Millisecond
	q.onConnect(client)
	client.goAway()

	tr := NewTransport(q, "dev")
	require.NoError(t, returnsWithin(t, 20*time.Millisecond, func() error {
		return tr.Open(context.Background())
	}))
	var busy int
	require.NoError(t, returnsWithin(t, 20*time.Millisecond, func() error {
		for i := 0; i < 2*PendingOps; i++ {
			if err := tr.Write([]byte{0x20}); errors.Is(err, ErrBusy) {
				busy++
			}
		}
		return nil
	}))
	require.NotZero(t, busy)
	require.NoError(t, returnsWithin(t, 20*time.Millisecond, tr.Close))

	// Close gives up on the pending operations after OpTimeout.
	require.NoError(t, returnsWithin(t, time.Second, q.Close))
	require.ErrorIs(t, q.Publish("dev/reply", nil, 0, false), transport.ErrClosed)
}

func TestSubscriptionWait(t *testing.T) {
	client := newFakeClient()
	q := newTestQueue(client)
	defer q.Close()

	sub := q.Sub("dev/reply", func(string, []byte) {})
	ctx, cancel := context.WithTimeout(context.Background(), 20*time.Millisecond)
	defer cancel()
	require.ErrorIs(t, sub.Wait(ctx), context.DeadlineExceeded)

	q.onConnect(client)
	require.NoError(t, sub.Wait(context.Background()))
	require.NoError(t, q.Sub("dev/reply", func(string, []byte) {}).Wait(context.Background()))
}
