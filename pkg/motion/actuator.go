package motion

import "github.com/golang/glog"

// Actuator drives the two direction/duty signal pairs.
// It is assumed to always succeed.
type Actuator interface {
	ApplyToPins(Movement)
}

// ActuatorFunc is the func form of Actuator.
type ActuatorFunc func(Movement)

// ApplyToPins implements Actuator.
func (f ActuatorFunc) ApplyToPins(m Movement) {
	f(m)
}

// LogActuator only logs the movements it receives. It is used when
// the process runs without motor drivers attached.
type LogActuator struct {
	last    Movement
	applied bool
}

// ApplyToPins implements Actuator.
func (a *LogActuator) ApplyToPins(m Movement) {
	if a.applied && a.last == m {
		glog.V(4).Infof("pins unchanged %s", m)
		return
	}
	a.last, a.applied = m, true
	glog.V(1).Infof("pins %s", m)
}
