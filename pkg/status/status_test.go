package status

import (
	"errors"
	"testing"
	"time"

	"github.com/stretchr/testify/require"
)

type fakeBroker struct {
	connected bool
	err       error
	published [][]byte
	retained  []bool
}

func (b *fakeBroker) Connected() bool { return b.connected }

func (b *fakeBroker) Publish(topic string, payload []byte, qos byte, retain bool) error {
	if b.err != nil {
		return b.err
	}
	b.published = append(b.published, payload)
	b.retained = append(b.retained, retain)
	return nil
}

func TestStatusCodec(t *testing.T) {
	s := &Status{
		DeviceID:       "bugsy",
		State:          0x21,
		Channels:       0x0d,
		ActiveChannels: 0x0c,
		TraderState:    0x20,
		Movement:       &Movement{LeftForward: true, LeftDuty: 200, RightDuty: 100},
		MoveExpiresAt:  time.Unix(10, 0).UnixMilli(),
		FailsafeStops:  3,
	}
	data, err := Encode(s)
	require.NoError(t, err)
	decoded, err := Decode(data)
	require.NoError(t, err)
	require.Equal(t, s.String(), decoded.String())
	require.Equal(t, time.Unix(10, 0), decoded.ExpiresAt())
	require.True(t, (&Status{}).ExpiresAt().IsZero())

	_, err = Decode([]byte{0xff})
	require.Error(t, err)
}

func TestPublisherOnChange(t *testing.T) {
	broker := &fakeBroker{}
	st := &Status{DeviceID: "bugsy", State: 0x20}
	p := NewPublisher(broker, "bugsy/status", SourceFunc(func() *Status {
		cp := *st
		return &cp
	}))

	require.NoError(t, p.Control(nil))
	require.Empty(t, broker.published)

	broker.connected = true
	require.NoError(t, p.Control(nil))
	require.NoError(t, p.Control(nil))
	require.Len(t, broker.published, 1)
	require.True(t, broker.retained[0])

	st.State = 0x21
	require.NoError(t, p.Control(nil))
	require.Len(t, broker.published, 2)
	decoded, err := Decode(broker.published[1])
	require.NoError(t, err)
	require.EqualValues(t, 0x21, decoded.State)

	broker.connected = false
	require.NoError(t, p.Control(nil))
	broker.connected = true
	require.NoError(t, p.Control(nil))
	require.Len(t, broker.published, 3)

	p.Clear()
	require.Nil(t, broker.published[3])
}

func TestPublisherRetriesWhenQueueFull(t *testing.T) {
	broker := &fakeBroker{connected: true, err: errors.New("busy")}
	p := NewPublisher(broker, "bugsy/status", SourceFunc(func() *Status {
		return &Status{DeviceID: "bugsy", State: 0x20}
	}))
	require.NoError(t, p.Control(nil))
	require.Empty(t, broker.published)

	broker.err = nil
	require.NoError(t, p.Control(nil))
	require.Len(t, broker.published, 1)
}
