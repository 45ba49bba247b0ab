package core

import (
	"context"
	"errors"
	"time"

	"github.com/golang/glog"

	"github.com/robotalks/bugsy.go/pkg/bus"
	"github.com/robotalks/bugsy.go/pkg/transport"
)

// ReasonUnknownCommand labels frames with an undefined discriminant.
const ReasonUnknownCommand = "unknown command"

// Dispatch decodes and executes one message, then replies to the
// channel it came from. Invalid frames are dropped without reply.
func (c *Core) Dispatch(ctx context.Context, msg transport.Message, now time.Time) {
	if msg.Source == bus.Trader {
		c.Tracker.Touch(now)
	}
	f, err := bus.Decode(msg.Data)
	if err != nil {
		reason := err.Error()
		var invalid *bus.InvalidFrameError
		if errors.As(err, &invalid) {
			reason = invalid.Reason
		}
		glog.Warningf("%s: %v", msg.Source, err)
		c.Metrics.FrameRejected(msg.Source, reason)
		return
	}
	if _, unknown := f.(bus.Unknown); unknown {
		c.Metrics.FrameRejected(msg.Source, ReasonUnknownCommand)
	} else {
		c.Metrics.FrameReceived(msg.Source, f.Command())
	}
	glog.V(3).Infof("%s: %s %+v", msg.Source, f.Command(), f)
	if reply := c.Execute(ctx, f, now); len(reply) > 0 {
		c.write(msg.Source.Set(), reply)
	}
}

// Execute applies a frame and returns the reply payload, nil for none.
func (c *Core) Execute(ctx context.Context, f bus.Frame, now time.Time) []byte {
	switch f := f.(type) {
	case bus.Test:
		return f.Data
	case bus.GetState:
		return []byte{byte(c.state)}
	case bus.Move:
		c.move(f, now)
	case bus.SetTraderState:
		c.Tracker.Update(f.State, now)
		glog.V(2).Infof("trader state %s", f.State)
		return []byte{byte(c.state)}
	case bus.GetTraderState:
		return []byte{byte(c.Tracker.State())}
	case bus.GetChannels:
		return []byte{byte(c.channels)}
	case bus.RemoteConfigure:
		c.reconfigure(ctx, f.Channels.Known())
	case bus.SaveConfig:
		c.saveConfig(ctx)
	case bus.GetWiFiSSID:
		return append([]byte(c.Config.WiFiSSID.String()), 0)
	case bus.SetWiFiSSID:
		c.Config.WiFiSSID.Set(f.SSID)
		glog.Infof("wifi ssid set to %q", c.Config.WiFiSSID.String())
	case bus.GetWiFiPassword:
		return append([]byte(c.Config.WiFiPassword.String()), 0)
	case bus.SetWiFiPassword:
		c.Config.WiFiPassword.Set(f.Password)
		glog.Info("wifi password updated")
	case bus.Unknown:
		glog.Warningf("unknown command 0x%02x (%d bytes)", byte(f.ID), len(f.Data))
	}
	return nil
}

func (c *Core) move(f bus.Move, now time.Time) {
	if c.state == StateCriticalError {
		glog.Warning("move ignored in critical error")
		return
	}
	c.Queue.Issue(f.Movement, c.Config.MoveDuration, now)
	if c.Queue.Active() {
		c.state = StateDriving
	} else if c.state == StateDriving {
		c.state = StateStandby
	}
}

func (c *Core) reconfigure(ctx context.Context, requested bus.ChannelSet) {
	diff, err := Reconfigure(ctx, c.Registry, c.channels, requested)
	c.channels = requested
	c.Metrics.Reconfigured()
	glog.Infof("channels reconfigured to %s (%s)", requested, diff)
	if err != nil {
		glog.Errorf("reconfigure: %v", err)
	}
}

func (c *Core) saveConfig(ctx context.Context) {
	c.Config.SavedChannels = c.channels
	if c.NVS == nil {
		glog.Warning("no nvs, configuration not saved")
		return
	}
	if err := c.NVS.Save(ctx, c.Config); err != nil {
		glog.Errorf("save config: %v", err)
	}
}
