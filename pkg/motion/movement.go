// Package motion holds movement commands and the failsafe queue that
// every movement flows through before reaching the actuators.
package motion

import (
	"errors"
	"fmt"
)

// Direction is the rotating direction of one chain.
// Any non-zero value drives the chain forward.
type Direction byte

// Directions.
const (
	Backward Direction = 0
	Forward  Direction = 1
)

// IsForward tells if the chain moves forward.
func (d Direction) IsForward() bool {
	return d != Backward
}

// String implements fmt.Stringer.
func (d Direction) String() string {
	if d.IsForward() {
		return "FW"
	}
	return "BW"
}

// MovementSize is the encoded size of a Movement.
const MovementSize = 4

// Movement is the PWM intent for the two independently driven chains.
// Every bit pattern is a valid Movement.
type Movement struct {
	LeftDir   Direction
	RightDir  Direction
	LeftDuty  uint8
	RightDuty uint8
}

// Stop is the zero movement.
var Stop = Movement{}

// Predefined movements at full duty.
var (
	Ahead   = Movement{LeftDir: Forward, RightDir: Forward, LeftDuty: 0xff, RightDuty: 0xff}
	Reverse = Movement{LeftDir: Backward, RightDir: Backward, LeftDuty: 0xff, RightDuty: 0xff}
	SpinCW  = Movement{LeftDir: Forward, RightDir: Backward, LeftDuty: 0xff, RightDuty: 0xff}
	SpinCCW = Movement{LeftDir: Backward, RightDir: Forward, LeftDuty: 0xff, RightDuty: 0xff}
)

// ErrMovementSize indicates the encoded movement has a wrong size.
var ErrMovementSize = errors.New("invalid movement size")

// ParseMovement decodes a Movement from exactly MovementSize bytes.
func ParseMovement(b []byte) (Movement, error) {
	if len(b) != MovementSize {
		return Stop, ErrMovementSize
	}
	return Movement{
		LeftDir:   Direction(b[0]),
		RightDir:  Direction(b[1]),
		LeftDuty:  b[2],
		RightDuty: b[3],
	}, nil
}

// Bytes returns the encoded movement.
func (m Movement) Bytes() []byte {
	return []byte{byte(m.LeftDir), byte(m.RightDir), m.LeftDuty, m.RightDuty}
}

// IsStop tells if both chains have zero duty.
func (m Movement) IsStop() bool {
	return m.LeftDuty == 0 && m.RightDuty == 0
}

// String implements fmt.Stringer.
func (m Movement) String() string {
	return fmt.Sprintf("L:%s/%d R:%s/%d", m.LeftDir, m.LeftDuty, m.RightDir, m.RightDuty)
}
