package core

import "fmt"

// State is the robot state reported to peers.
type State uint8

// Core states. The values are wire-stable.
const (
	StateNone          State = 0x00
	StateSetup         State = 0x10
	StateStandby       State = 0x20
	StateDriving       State = 0x21
	StateCriticalError State = 0xF0
)

var stateNames = map[State]string{
	StateNone:          "NONE",
	StateSetup:         "SETUP",
	StateStandby:       "STANDBY",
	StateDriving:       "DRIVING",
	StateCriticalError: "CRITICAL_ERROR",
}

// String implements fmt.Stringer.
func (s State) String() string {
	if name, ok := stateNames[s]; ok {
		return name
	}
	return fmt.Sprintf("STATE(0x%02x)", byte(s))
}
