package motion

import (
	"time"
)

// DefaultDuration is how long a movement is held before it runs out.
const DefaultDuration = 200 * time.Millisecond

// Queue holds the single active movement and stops it once its
// validity window elapsed without renewal. A newly issued movement
// replaces the current one unconditionally.
type Queue struct {
	Actuator Actuator

	current  Movement
	issuedAt time.Time
	validFor time.Duration
	stops    uint64
}

// NewQueue creates a Queue driving the actuator. The actuator is
// reset to Stop.
func NewQueue(actuator Actuator) *Queue {
	q := &Queue{Actuator: actuator}
	q.apply(Stop)
	return q
}

// Issue installs a movement valid for d starting at now.
// A non-positive d stops immediately.
func (q *Queue) Issue(m Movement, d time.Duration, now time.Time) {
	if d <= 0 {
		q.reset()
		return
	}
	q.current, q.issuedAt, q.validFor = m, now, d
	q.apply(m)
}

// Tick must be called once per control cycle. It returns the movement
// in effect after expiry has been evaluated.
func (q *Queue) Tick(now time.Time) Movement {
	if q.validFor != 0 && !now.Before(q.ExpiresAt()) {
		q.reset()
		q.stops++
	}
	return q.current
}

// Stop cancels the active movement.
func (q *Queue) Stop() {
	q.reset()
}

// Active tells if a movement is currently held.
func (q *Queue) Active() bool {
	return q.validFor != 0
}

// Current returns the movement in effect.
func (q *Queue) Current() Movement {
	return q.current
}

// IssuedAt returns when the active movement was issued.
func (q *Queue) IssuedAt() time.Time {
	return q.issuedAt
}

// ExpiresAt returns the end of the validity window, zero when inactive.
func (q *Queue) ExpiresAt() time.Time {
	if q.validFor == 0 {
		return time.Time{}
	}
	return q.issuedAt.Add(q.validFor)
}

// FailsafeStops counts movements stopped by expiry.
func (q *Queue) FailsafeStops() uint64 {
	return q.stops
}

func (q *Queue) reset() {
	q.current, q.issuedAt, q.validFor = Stop, time.Time{}, 0
	q.apply(Stop)
}

func (q *Queue) apply(m Movement) {
	if q.Actuator != nil {
		q.Actuator.ApplyToPins(m)
	}
}
