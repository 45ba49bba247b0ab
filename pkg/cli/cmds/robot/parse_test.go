package robot

import (
	"testing"

	"github.com/stretchr/testify/require"

	"github.com/robotalks/bugsy.go/pkg/liveness"
	"github.com/robotalks/bugsy.go/pkg/motion"
)

func TestParseMovement(t *testing.T) {
	testCases := []struct {
		left, right string
		expect      motion.Movement
		fail        bool
	}{
		{"255", "255", motion.Ahead, false},
		{"-255", "-255", motion.Reverse, false},
		{"100", "-50", motion.Movement{LeftDir: motion.Forward, LeftDuty: 100, RightDir: motion.Backward, RightDuty: 50}, false},
		{"0", "0", motion.Movement{LeftDir: motion.Forward, RightDir: motion.Forward}, false},
		{"256", "0", motion.Movement{}, true},
		{"x", "0", motion.Movement{}, true},
	}
	for _, tc := range testCases {
		t.Run(tc.left+"/"+tc.right, func(t *testing.T) {
			m, err := ParseMovement(tc.left, tc.right)
			if tc.fail {
				require.Error(t, err)
				return
			}
			require.NoError(t, err)
			require.Equal(t, tc.expect, m)
		})
	}
}

func TestParseTraderState(t *testing.T) {
	s, err := ParseTraderState("active")
	require.NoError(t, err)
	require.Equal(t, liveness.Active, s)
	s, err = ParseTraderState("0x11")
	require.NoError(t, err)
	require.Equal(t, liveness.Connecting, s)
	_, err = ParseTraderState("bogus")
	require.Error(t, err)
}

func TestParseHex(t *testing.T) {
	b, err := ParseHex([]string{"01", "ff02"})
	require.NoError(t, err)
	require.Equal(t, []byte{1, 0xff, 2}, b)
	b, err = ParseHex(nil)
	require.NoError(t, err)
	require.Empty(t, b)
}
