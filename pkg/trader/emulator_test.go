package trader

import (
	"context"
	"errors"
	"sync"
	"testing"
	"time"

	"github.com/stretchr/testify/require"

	"github.com/robotalks/bugsy.go/pkg/core"
	"github.com/robotalks/bugsy.go/pkg/liveness"
)

type fakePeer struct {
	lock     sync.Mutex
	reports  []liveness.State
	replies  []core.State
	failFrom int
}

func (p *fakePeer) SetTraderState(s liveness.State) (core.State, error) {
	p.lock.Lock()
	defer p.lock.Unlock()
	p.reports = append(p.reports, s)
	if p.failFrom > 0 && len(p.reports) >= p.failFrom {
		return core.StateNone, errors.New("timeout")
	}
	if n := len(p.reports) - 1; n < len(p.replies) {
		return p.replies[n], nil
	}
	return core.StateStandby, nil
}

func (p *fakePeer) Close() error { return nil }

func (p *fakePeer) sent() []liveness.State {
	p.lock.Lock()
	defer p.lock.Unlock()
	return append([]liveness.State(nil), p.reports...)
}

func TestEmulatorHandshakeAndHeartbeat(t *testing.T) {
	peer := &fakePeer{replies: []core.State{core.StateSetup, core.StateStandby}}
	e := New(func(context.Context) (Peer, error) { return peer, nil })
	e.Heartbeat, e.RetryInterval = 5*time.Millisecond, 5*time.Millisecond
	var states []liveness.State
	var lock sync.Mutex
	e.OnState = func(s liveness.State) {
		lock.Lock()
		states = append(states, s)
		lock.Unlock()
	}

	ctx, cancel := context.WithCancel(context.Background())
	done := make(chan error, 1)
	go func() { done <- e.Run(ctx) }()
	require.Eventually(t, func() bool { return len(peer.sent()) >= 5 }, time.Second, time.Millisecond)
	cancel()
	require.ErrorIs(t, <-done, context.Canceled)

	sent := peer.sent()
	require.Equal(t, []liveness.State{liveness.Connecting, liveness.Connecting}, sent[:2])
	for _, s := range sent[2:] {
		require.Equal(t, liveness.Active, s)
	}
	lock.Lock()
	defer lock.Unlock()
	require.Equal(t, []liveness.State{liveness.Setup, liveness.Connecting, liveness.Active}, states)
}

func TestEmulatorReconnects(t *testing.T) {
	var dials int
	var lock sync.Mutex
	e := New(func(context.Context) (Peer, error) {
		lock.Lock()
		defer lock.Unlock()
		dials++
		if dials == 1 {
			return nil, errors.New("no port")
		}
		return &fakePeer{failFrom: 3}, nil
	})
	e.Heartbeat, e.RetryInterval = time.Millisecond, time.Millisecond
	ctx, cancel := context.WithCancel(context.Background())
	done := make(chan error, 1)
	go func() { done <- e.Run(ctx) }()
	require.Eventually(t, func() bool {
		lock.Lock()
		defer lock.Unlock()
		return dials >= 3
	}, time.Second, time.Millisecond)
	cancel()
	<-done
}
