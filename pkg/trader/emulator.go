// Package trader emulates the trader MCU: it keeps reporting its state
// to the core so the core considers it alive.
package trader

import (
	"context"
	"time"

	"github.com/golang/glog"

	"github.com/robotalks/bugsy.go/pkg/core"
	"github.com/robotalks/bugsy.go/pkg/liveness"
)

// Defaults.
const (
	DefaultHeartbeat     = 500 * time.Millisecond
	DefaultRetryInterval = time.Second
)

// Peer is the part of client.Client used by the emulator.
type Peer interface {
	SetTraderState(liveness.State) (core.State, error)
	Close() error
}

// Dialer connects to the core.
type Dialer func(ctx context.Context) (Peer, error)

// Emulator runs the trader link state machine:
// Setup → Connecting → Active, back to Connecting on failures.
type Emulator struct {
	Dial          Dialer
	Heartbeat     time.Duration
	RetryInterval time.Duration
	// OnState is called on every state change.
	OnState func(liveness.State)

	state liveness.State
}

// New creates an Emulator.
func New(dial Dialer) *Emulator {
	return &Emulator{
		Dial:          dial,
		Heartbeat:     DefaultHeartbeat,
		RetryInterval: DefaultRetryInterval,
	}
}

// State returns the current state.
func (e *Emulator) State() liveness.State {
	return e.state
}

// Run implements framework.Runnable.
func (e *Emulator) Run(ctx context.Context) error {
	e.setState(liveness.Setup)
	for {
		peer, err := e.Dial(ctx)
		if err != nil {
			glog.Warningf("dial core: %v", err)
		} else {
			err = e.serve(ctx, peer)
			peer.Close()
			if ctx.Err() != nil {
				return ctx.Err()
			}
			glog.Warningf("link lost: %v", err)
		}
		e.setState(liveness.Connecting)
		if err := sleep(ctx, e.RetryInterval); err != nil {
			return err
		}
	}
}

func (e *Emulator) serve(ctx context.Context, peer Peer) error {
	e.setState(liveness.Connecting)
	for e.state != liveness.Active {
		coreState, err := peer.SetTraderState(liveness.Connecting)
		if err == nil && isCoreReady(coreState) {
			e.setState(liveness.Active)
			break
		}
		if err != nil {
			glog.V(2).Infof("connecting: %v", err)
		}
		if err := sleep(ctx, e.RetryInterval); err != nil {
			return err
		}
	}
	for {
		if err := sleep(ctx, e.Heartbeat); err != nil {
			return err
		}
		coreState, err := peer.SetTraderState(liveness.Active)
		if err != nil {
			return err
		}
		glog.V(3).Infof("heartbeat, core %s", coreState)
	}
}

func (e *Emulator) setState(s liveness.State) {
	if e.state == s {
		return
	}
	e.state = s
	glog.Infof("trader %s", s)
	if fn := e.OnState; fn != nil {
		fn(s)
	}
}

func isCoreReady(s core.State) bool {
	return s == core.StateStandby || s == core.StateDriving
}

func sleep(ctx context.Context, d time.Duration) error {
	select {
	case <-ctx.Done():
		return ctx.Err()
	case <-time.After(d):
		return nil
	}
}
