// Package core is the command dispatcher and control logic of the robot
// core controller. A Core is created once per process and all its state
// is only touched from the control loop.
package core

import (
	"context"
	"errors"

	"github.com/golang/glog"

	"github.com/robotalks/bugsy.go/pkg/bus"
	"github.com/robotalks/bugsy.go/pkg/config"
	fx "github.com/robotalks/bugsy.go/pkg/framework"
	"github.com/robotalks/bugsy.go/pkg/liveness"
	"github.com/robotalks/bugsy.go/pkg/metrics"
	"github.com/robotalks/bugsy.go/pkg/motion"
	"github.com/robotalks/bugsy.go/pkg/status"
	"github.com/robotalks/bugsy.go/pkg/transport"
)

// DefaultAlwaysOn are the channels activated at boot regardless of the
// saved configuration.
var DefaultAlwaysOn = bus.Channels(bus.Wireless, bus.Trader, bus.Companion)

// Core owns the actuators and arbitrates the traffic of all channels.
type Core struct {
	DeviceID string
	Registry *transport.Registry
	Queue    *motion.Queue
	Tracker  *liveness.Tracker
	NVS      *config.NVS
	Metrics  *metrics.Metrics
	Config   config.Configuration
	AlwaysOn bus.ChannelSet

	state    State
	channels bus.ChannelSet
}

// New creates a Core with the loaded configuration.
func New(registry *transport.Registry, actuator motion.Actuator, conf config.Configuration) *Core {
	return &Core{
		Registry: registry,
		Queue:    motion.NewQueue(actuator),
		Tracker:  liveness.NewTracker(liveness.DefaultTimeout),
		Config:   conf,
		AlwaysOn: DefaultAlwaysOn,
	}
}

// State returns the core state.
func (c *Core) State() State {
	return c.state
}

// Channels returns the requested channel set. It may contain channels
// which failed to open.
func (c *Core) Channels() bus.ChannelSet {
	return c.channels
}

// Boot activates the saved and always-on channels and enters Standby.
// Channels failing to open are reported but don't fail the boot.
func (c *Core) Boot(ctx context.Context) error {
	c.state = StateSetup
	requested := c.Config.SavedChannels.Union(c.AlwaysOn).Known()
	diff, err := Reconfigure(ctx, c.Registry, c.channels, requested)
	c.channels = requested
	c.state = StateStandby
	glog.Infof("core booted: channels %s (%s)", c.channels, diff)
	return err
}

// Fail enters CriticalError on a fault detected outside the bus, e.g.
// an actuator hardware fault. The actuators are stopped and moves are
// ignored until Recover. Like everything else on Core it must be called
// from the loop.
func (c *Core) Fail(reason error) {
	glog.Errorf("critical error: %v", reason)
	c.Queue.Stop()
	c.state = StateCriticalError
}

// Recover leaves CriticalError for Standby.
func (c *Core) Recover() {
	if c.state == StateCriticalError {
		glog.Info("recovered from critical error")
		c.state = StateStandby
	}
}

// Shutdown stops the actuators and closes all channels.
func (c *Core) Shutdown() error {
	c.Queue.Stop()
	c.state = StateNone
	return c.Registry.Close()
}

// AddToLoop implements LoopAdder.
func (c *Core) AddToLoop(loop *fx.Loop) {
	loop.AddController(fx.PrLvSense, fx.ControlFunc(c.sense))
	loop.AddController(fx.PrLvActuate, fx.ControlFunc(c.actuate))
	loop.AddController(fx.PrLvPostProc, fx.ControlFunc(c.postProc))
}

func (c *Core) sense(cc fx.ControlContext) error {
	for _, msg := range c.Registry.Poll() {
		c.Dispatch(cc.Context(), msg, cc.Time())
	}
	return nil
}

func (c *Core) actuate(cc fx.ControlContext) error {
	stops := c.Queue.FailsafeStops()
	c.Queue.Tick(cc.Time())
	if c.Queue.FailsafeStops() != stops {
		glog.Warning("failsafe stop: movement not renewed in time")
		c.Metrics.FailsafeStopped()
	}
	if c.state == StateDriving && !c.Queue.Active() {
		c.state = StateStandby
	}
	return nil
}

type inboxHolder interface {
	Inbox() *transport.Inbox
}

func (c *Core) postProc(cc fx.ControlContext) error {
	if err := c.Tracker.Check(cc.Time()); errors.Is(err, liveness.ErrPeerTimeout) {
		glog.Warningf("trader timeout, last contact %s", c.Tracker.LastContact().Format("15:04:05.000"))
		c.Metrics.PeerTimedOut()
	}
	if c.Metrics != nil {
		c.Metrics.SetStates(c.Registry.Active(), uint8(c.Tracker.State()), uint8(c.state))
		for _, id := range c.Registry.Bound().Channels() {
			if h, ok := c.Registry.Transport(id).(inboxHolder); ok {
				c.Metrics.SetInboxDrops(id, h.Inbox().Drops())
			}
		}
	}
	return nil
}

// Status implements status.Source.
func (c *Core) Status() *status.Status {
	m := c.Queue.Current()
	st := &status.Status{
		DeviceID:       c.DeviceID,
		State:          uint32(c.state),
		Channels:       uint32(c.channels),
		ActiveChannels: uint32(c.Registry.Active()),
		TraderState:    uint32(c.Tracker.State()),
		FailsafeStops:  c.Queue.FailsafeStops(),
	}
	if c.Queue.Active() {
		st.Movement = &status.Movement{
			LeftForward:  m.LeftDir.IsForward(),
			RightForward: m.RightDir.IsForward(),
			LeftDuty:     uint32(m.LeftDuty),
			RightDuty:    uint32(m.RightDuty),
		}
		st.MoveExpiresAt = c.Queue.ExpiresAt().UnixMilli()
	}
	return st
}

// write sends data and accounts per-channel failures.
func (c *Core) write(dest bus.ChannelSet, data []byte) {
	err := c.Registry.Write(dest, data)
	if err == nil {
		return
	}
	var agg *fx.AggregatedError
	if errors.As(err, &agg) {
		for _, e := range agg.Errors {
			var we *transport.WriteError
			if errors.As(e, &we) {
				c.Metrics.WriteFailed(we.Channel)
			}
		}
	}
	glog.Errorf("write %s: %v", dest, err)
}
