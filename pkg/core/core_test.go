package core

import (
	"context"
	"errors"
	"strings"
	"testing"
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/testutil"
	"github.com/stretchr/testify/require"

	"github.com/robotalks/bugsy.go/pkg/bus"
	"github.com/robotalks/bugsy.go/pkg/config"
	fx "github.com/robotalks/bugsy.go/pkg/framework"
	"github.com/robotalks/bugsy.go/pkg/liveness"
	"github.com/robotalks/bugsy.go/pkg/metrics"
	"github.com/robotalks/bugsy.go/pkg/motion"
	"github.com/robotalks/bugsy.go/pkg/transport"
)

type recordingActuator struct {
	applied []motion.Movement
}

func (a *recordingActuator) ApplyToPins(m motion.Movement) {
	a.applied = append(a.applied, m)
}

func (a *recordingActuator) last() motion.Movement {
	return a.applied[len(a.applied)-1]
}

type harness struct {
	t       *testing.T
	core    *Core
	reg     *transport.Registry
	links   map[bus.ChannelID]*transport.Memory
	act     *recordingActuator
	store   *config.MemoryStore
	metrics *metrics.Metrics
	loop    *fx.Loop
	now     time.Time
}

func newHarness(t *testing.T) *harness {
	h := &harness{
		t:     t,
		reg:   transport.NewRegistry(),
		links: make(map[bus.ChannelID]*transport.Memory),
		act:   &recordingActuator{},
		store: config.NewMemoryStore(),
		now:   time.Unix(1000, 0),
	}
	for _, id := range bus.KnownChannels {
		h.links[id] = transport.NewMemory(id.String())
		h.reg.Bind(id, h.links[id])
	}
	conf := config.Default()
	conf.SavedChannels = bus.USB.Set()
	h.core = New(h.reg, h.act, conf)
	h.core.DeviceID = "bugsy-test"
	h.core.NVS = &config.NVS{Store: h.store}
	h.metrics = metrics.New(prometheus.NewRegistry())
	h.core.Metrics = h.metrics
	require.NoError(t, h.core.Boot(context.Background()))

	h.loop = fx.NewLoop()
	h.loop.Clock = func() time.Time { return h.now }
	h.loop.Add(h.core)
	return h
}

func (h *harness) at(d time.Duration) {
	h.now = time.Unix(1000, 0).Add(d)
	h.loop.Step(context.Background())
}

func (h *harness) send(id bus.ChannelID, data ...byte) {
	require.True(h.t, h.links[id].Deliver(data))
}

func (h *harness) sendFrame(id bus.ChannelID, f bus.Frame) {
	h.send(id, bus.Encode(f)...)
}

func (h *harness) replies(id bus.ChannelID) [][]byte {
	return h.links[id].Written()
}

func TestBoot(t *testing.T) {
	h := newHarness(t)
	require.Equal(t, StateStandby, h.core.State())
	expected := bus.Channels(bus.USB, bus.Wireless, bus.Trader, bus.Companion)
	require.Equal(t, expected, h.core.Channels())
	require.Equal(t, expected, h.reg.Active())
	require.Equal(t, motion.Stop, h.act.last())
	require.Equal(t, liveness.Disconnected, h.core.Tracker.State())
}

func TestBootWithFailingChannel(t *testing.T) {
	reg := transport.NewRegistry()
	broken := transport.NewMemory("trader")
	broken.OpenErr = transport.ErrUnavailable
	reg.Bind(bus.Trader, broken)
	c := New(reg, nil, config.Default())
	err := c.Boot(context.Background())
	require.ErrorIs(t, err, transport.ErrUnavailable)
	require.Equal(t, StateStandby, c.State())
	require.True(t, c.Channels().Contains(bus.Trader))
	require.False(t, reg.Active().Contains(bus.Trader))
}

func TestMoveExpires(t *testing.T) {
	h := newHarness(t)
	fwd := motion.Movement{LeftDir: motion.Forward, RightDir: motion.Forward, LeftDuty: 0x80, RightDuty: 0x80}
	h.sendFrame(bus.USB, bus.Move{Movement: fwd})
	h.at(0)
	require.Equal(t, fwd, h.act.last())
	require.Equal(t, StateDriving, h.core.State())
	require.Empty(t, h.replies(bus.USB))

	h.at(100 * time.Millisecond)
	require.Equal(t, fwd, h.act.last())
	require.Equal(t, StateDriving, h.core.State())

	h.at(250 * time.Millisecond)
	require.Equal(t, motion.Stop, h.act.last())
	require.Equal(t, StateStandby, h.core.State())
	require.Equal(t, 1.0, testutil.ToFloat64(h.metrics.FailsafeStops))
}

func TestMoveRenewed(t *testing.T) {
	h := newHarness(t)
	for i := 0; i < 5; i++ {
		h.sendFrame(bus.Companion, bus.Move{Movement: motion.Ahead})
		h.at(time.Duration(i) * 150 * time.Millisecond)
		require.Equal(t, motion.Ahead, h.core.Queue.Current())
	}
	h.at(600*time.Millisecond + 199*time.Millisecond)
	require.Equal(t, motion.Ahead, h.core.Queue.Current())
	h.at(800 * time.Millisecond)
	require.Equal(t, motion.Stop, h.core.Queue.Current())
}

func TestMoveWrongLengthRejected(t *testing.T) {
	h := newHarness(t)
	applied := len(h.act.applied)
	h.send(bus.USB, 0x10, 1, 1, 0xff)
	h.send(bus.Trader, 0x10, 1, 1, 0xff, 0xff, 0)
	h.at(0)
	require.Len(t, h.act.applied, applied)
	require.Equal(t, StateStandby, h.core.State())
	require.Empty(t, h.replies(bus.USB))
	require.Empty(t, h.replies(bus.Trader))
	require.Equal(t, 1.0, testutil.ToFloat64(h.metrics.RejectedFrames.WithLabelValues("USB", bus.ReasonLengthMismatch)))
}

func TestRepliesGoToSource(t *testing.T) {
	h := newHarness(t)
	h.sendFrame(bus.USB, bus.GetState{})
	h.sendFrame(bus.Companion, bus.Test{Data: []byte("ping")})
	h.sendFrame(bus.Wireless, bus.Test{})
	h.at(0)
	require.Equal(t, [][]byte{{byte(StateStandby)}}, h.replies(bus.USB))
	require.Equal(t, [][]byte{[]byte("ping")}, h.replies(bus.Companion))
	require.Empty(t, h.replies(bus.Wireless))
	require.Empty(t, h.replies(bus.Trader))
}

func TestUnknownCommandIgnored(t *testing.T) {
	h := newHarness(t)
	h.send(bus.USB, 0x55, 1, 2)
	h.send(bus.Companion)
	h.at(0)
	require.Empty(t, h.replies(bus.USB))
	require.Equal(t, StateStandby, h.core.State())
	require.Equal(t, 1.0, testutil.ToFloat64(h.metrics.RejectedFrames.WithLabelValues("USB", ReasonUnknownCommand)))
	require.Equal(t, 1.0, testutil.ToFloat64(h.metrics.RejectedFrames.WithLabelValues("COMPANION", bus.ReasonEmpty)))
}

func TestTraderLiveness(t *testing.T) {
	h := newHarness(t)
	h.sendFrame(bus.Trader, bus.SetTraderState{State: liveness.Active})
	h.at(0)
	require.Equal(t, [][]byte{{byte(StateStandby)}}, h.replies(bus.Trader))
	require.Equal(t, liveness.Active, h.core.Tracker.State())

	h.sendFrame(bus.Trader, bus.GetState{})
	h.at(800 * time.Millisecond)
	h.replies(bus.Trader)
	h.at(1700 * time.Millisecond)
	require.Equal(t, liveness.Active, h.core.Tracker.State())

	h.at(1900 * time.Millisecond)
	require.Equal(t, liveness.Disconnected, h.core.Tracker.State())
	h.at(3 * time.Second)
	h.at(4 * time.Second)
	require.Equal(t, 1.0, testutil.ToFloat64(h.metrics.PeerTimeouts))

	h.sendFrame(bus.USB, bus.GetTraderState{})
	h.at(5 * time.Second)
	require.Equal(t, [][]byte{{byte(liveness.Disconnected)}}, h.replies(bus.USB))
}

func TestRemoteConfigure(t *testing.T) {
	h := newHarness(t)
	h.sendFrame(bus.USB, bus.RemoteConfigure{Channels: bus.Channels(bus.USB, bus.Trader, bus.WiFiTCP) | 0x10})
	h.at(0)
	require.Empty(t, h.replies(bus.USB))
	expected := bus.Channels(bus.USB, bus.Trader, bus.WiFiTCP)
	require.Equal(t, expected, h.core.Channels())
	require.Equal(t, expected, h.reg.Active())
	require.False(t, h.links[bus.Companion].IsOpen())
	require.True(t, h.links[bus.WiFiTCP].IsOpen())

	h.sendFrame(bus.WiFiTCP, bus.GetChannels{})
	h.at(10 * time.Millisecond)
	require.Equal(t, [][]byte{{byte(expected)}}, h.replies(bus.WiFiTCP))

	opens, _ := h.links[bus.WiFiTCP].Counts()
	h.sendFrame(bus.USB, bus.RemoteConfigure{Channels: expected})
	h.at(20 * time.Millisecond)
	reopens, _ := h.links[bus.WiFiTCP].Counts()
	require.Equal(t, opens, reopens)
}

func TestRemoteConfigureDropsSource(t *testing.T) {
	h := newHarness(t)
	h.sendFrame(bus.USB, bus.RemoteConfigure{Channels: bus.Trader.Set()})
	h.at(0)
	h.sendFrame(bus.USB, bus.GetState{})
	h.at(10 * time.Millisecond)
	require.Empty(t, h.replies(bus.USB))
	require.Equal(t, bus.Trader.Set(), h.reg.Active())
}

func TestSaveConfig(t *testing.T) {
	h := newHarness(t)
	h.sendFrame(bus.USB, bus.RemoteConfigure{Channels: bus.Channels(bus.USB, bus.WiFiMQTT)})
	h.sendFrame(bus.Wireless, bus.SetWiFiSSID{SSID: "bugsy-net"})
	h.at(0)
	h.sendFrame(bus.USB, bus.SaveConfig{})
	h.at(10 * time.Millisecond)
	require.Equal(t, 1, h.store.Writes())

	loaded, err := h.core.NVS.Load(context.Background())
	require.NoError(t, err)
	require.Equal(t, bus.Channels(bus.USB, bus.WiFiMQTT), loaded.SavedChannels)
	require.Equal(t, "bugsy-net", loaded.WiFiSSID.String())
	require.Equal(t, motion.DefaultDuration, loaded.MoveDuration)
}

func TestWiFiCredentials(t *testing.T) {
	h := newHarness(t)
	h.sendFrame(bus.USB, bus.SetWiFiSSID{SSID: strings.Repeat("s", 40)})
	h.sendFrame(bus.Companion, bus.SetWiFiPassword{Password: "secret"})
	h.at(0)
	require.Empty(t, h.replies(bus.USB))

	h.sendFrame(bus.USB, bus.GetWiFiSSID{})
	h.sendFrame(bus.Companion, bus.GetWiFiPassword{})
	h.at(10 * time.Millisecond)
	require.Equal(t, [][]byte{append([]byte(strings.Repeat("s", 31)), 0)}, h.replies(bus.USB))
	require.Equal(t, [][]byte{[]byte("secret\x00")}, h.replies(bus.Companion))

	h.sendFrame(bus.USB, bus.SetWiFiSSID{})
	h.at(20 * time.Millisecond)
	h.sendFrame(bus.USB, bus.GetWiFiSSID{})
	h.at(30 * time.Millisecond)
	require.Equal(t, [][]byte{{0}}, h.replies(bus.USB))
}

func TestStatusSnapshot(t *testing.T) {
	h := newHarness(t)
	h.sendFrame(bus.USB, bus.Move{Movement: motion.SpinCW})
	h.at(0)
	st := h.core.Status()
	require.Equal(t, "bugsy-test", st.DeviceID)
	require.EqualValues(t, StateDriving, st.State)
	require.NotNil(t, st.Movement)
	require.True(t, st.Movement.LeftForward)
	require.False(t, st.Movement.RightForward)
	require.Equal(t, h.now.Add(motion.DefaultDuration), st.ExpiresAt())

	h.at(time.Second)
	st = h.core.Status()
	require.Nil(t, st.Movement)
	require.Zero(t, st.MoveExpiresAt)
	require.EqualValues(t, 1, st.FailsafeStops)
}

func TestWriteFailureCounted(t *testing.T) {
	h := newHarness(t)
	h.links[bus.USB].WriteErr = transport.ErrUnavailable
	h.sendFrame(bus.USB, bus.GetState{})
	h.at(0)
	require.Equal(t, 1.0, testutil.ToFloat64(h.metrics.WriteErrors.WithLabelValues("USB")))
}

func TestShutdown(t *testing.T) {
	h := newHarness(t)
	h.sendFrame(bus.USB, bus.Move{Movement: motion.Ahead})
	h.at(0)
	require.NoError(t, h.core.Shutdown())
	require.Equal(t, motion.Stop, h.act.last())
	require.Equal(t, bus.NoChannels, h.reg.Active())
	for _, link := range h.links {
		require.False(t, link.IsOpen())
	}
}

func TestRemoteConfigureRetriesFailedChannel(t *testing.T) {
	h := newHarness(t)
	requested := bus.Channels(bus.USB, bus.WiFiTCP)
	h.links[bus.WiFiTCP].OpenErr = transport.ErrUnavailable
	h.sendFrame(bus.USB, bus.RemoteConfigure{Channels: requested})
	h.at(0)
	require.Equal(t, requested, h.core.Channels())
	require.False(t, h.reg.Active().Contains(bus.WiFiTCP))

	h.links[bus.WiFiTCP].OpenErr = nil
	h.sendFrame(bus.USB, bus.RemoteConfigure{Channels: requested})
	h.at(10 * time.Millisecond)
	require.Equal(t, requested, h.reg.Active())
	require.True(t, h.links[bus.WiFiTCP].IsOpen())
}

func TestCriticalError(t *testing.T) {
	h := newHarness(t)
	h.sendFrame(bus.USB, bus.Move{Movement: motion.Ahead})
	h.at(0)
	require.Equal(t, StateDriving, h.core.State())

	h.core.Fail(errors.New("motor driver fault"))
	require.Equal(t, StateCriticalError, h.core.State())
	require.Equal(t, motion.Stop, h.act.last())

	h.sendFrame(bus.USB, bus.Move{Movement: motion.Ahead})
	h.sendFrame(bus.USB, bus.GetState{})
	h.at(10 * time.Millisecond)
	require.Equal(t, motion.Stop, h.act.last())
	require.Equal(t, StateCriticalError, h.core.State())
	require.Equal(t, [][]byte{{byte(StateCriticalError)}}, h.replies(bus.USB))

	h.core.Recover()
	require.Equal(t, StateStandby, h.core.State())
	h.sendFrame(bus.USB, bus.Move{Movement: motion.Ahead})
	h.at(20 * time.Millisecond)
	require.Equal(t, motion.Ahead, h.act.last())
	require.Equal(t, StateDriving, h.core.State())
}
