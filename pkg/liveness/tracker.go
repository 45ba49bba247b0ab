// Package liveness tracks whether a peer controller is still talking to us.
package liveness

import (
	"errors"
	"fmt"
	"time"
)

// State is the connection state reported by a peer.
type State uint8

// Peer states. The values are wire-stable.
const (
	Disconnected State = 0x00
	Setup        State = 0x10
	Connecting   State = 0x11
	Active       State = 0x20
	Error        State = 0x80
)

var stateNames = map[State]string{
	Disconnected: "DISCONNECTED",
	Setup:        "SETUP",
	Connecting:   "CONNECTING",
	Active:       "ACTIVE",
	Error:        "ERROR",
}

// IsOperational tells if the peer is neither disconnected nor failed.
func (s State) IsOperational() bool {
	return s != Disconnected && s != Error
}

// String implements fmt.Stringer.
func (s State) String() string {
	if name, ok := stateNames[s]; ok {
		return name
	}
	return fmt.Sprintf("STATE(0x%02x)", byte(s))
}

// DefaultTimeout is the silence tolerated before the peer is dropped.
const DefaultTimeout = time.Second

// ErrPeerTimeout is returned by Check the moment a peer is declared lost.
var ErrPeerTimeout = errors.New("peer timeout")

// Tracker remembers the last state and contact time of a single peer.
type Tracker struct {
	Timeout time.Duration

	state       State
	lastContact time.Time
}

// NewTracker creates a Tracker in Disconnected state.
func NewTracker(timeout time.Duration) *Tracker {
	if timeout <= 0 {
		timeout = DefaultTimeout
	}
	return &Tracker{Timeout: timeout}
}

// Update records a state reported by the peer.
func (t *Tracker) Update(state State, now time.Time) {
	t.state, t.lastContact = state, now
}

// Touch refreshes the contact time without changing the state.
func (t *Tracker) Touch(now time.Time) {
	t.lastContact = now
}

// Check forces the state to Disconnected when the peer has been silent
// longer than the timeout. ErrPeerTimeout is returned only on the
// transition.
func (t *Tracker) Check(now time.Time) error {
	if t.state == Disconnected || now.Sub(t.lastContact) <= t.timeout() {
		return nil
	}
	t.state = Disconnected
	return ErrPeerTimeout
}

// State returns the current state.
func (t *Tracker) State() State {
	return t.state
}

// IsOperational is a shortcut of State().IsOperational().
func (t *Tracker) IsOperational() bool {
	return t.state.IsOperational()
}

// LastContact returns when the peer was last heard from.
func (t *Tracker) LastContact() time.Time {
	return t.lastContact
}

func (t *Tracker) timeout() time.Duration {
	if t.Timeout <= 0 {
		return DefaultTimeout
	}
	return t.Timeout
}
