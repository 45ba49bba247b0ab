package robot

import (
	"encoding/hex"
	"fmt"
	"strconv"
	"strings"

	"github.com/robotalks/bugsy.go/pkg/liveness"
	"github.com/robotalks/bugsy.go/pkg/motion"
)

// ParseSpeed parses a signed duty -255..255 of one chain.
func ParseSpeed(str string) (motion.Direction, uint8, error) {
	v, err := strconv.Atoi(str)
	if err != nil {
		return motion.Backward, 0, fmt.Errorf("invalid speed %q", str)
	}
	if v < -255 || v > 255 {
		return motion.Backward, 0, fmt.Errorf("speed %d out of range", v)
	}
	if v < 0 {
		return motion.Backward, uint8(-v), nil
	}
	return motion.Forward, uint8(v), nil
}

// ParseMovement parses signed speeds of left and right chains.
func ParseMovement(left, right string) (m motion.Movement, err error) {
	if m.LeftDir, m.LeftDuty, err = ParseSpeed(left); err != nil {
		return
	}
	m.RightDir, m.RightDuty, err = ParseSpeed(right)
	return
}

// ParseTraderState parses a state name or number.
func ParseTraderState(str string) (liveness.State, error) {
	for _, s := range []liveness.State{liveness.Disconnected, liveness.Setup, liveness.Connecting, liveness.Active, liveness.Error} {
		if strings.EqualFold(s.String(), str) {
			return s, nil
		}
	}
	v, err := strconv.ParseUint(str, 0, 8)
	if err != nil {
		return 0, fmt.Errorf("invalid trader state %q", str)
	}
	return liveness.State(v), nil
}

// ParseHex parses bytes written as hex, spaces allowed.
func ParseHex(args []string) ([]byte, error) {
	return hex.DecodeString(strings.Join(args, ""))
}
