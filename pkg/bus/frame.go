package bus

import (
	"bytes"
	"errors"
	"fmt"

	"github.com/robotalks/bugsy.go/pkg/liveness"
	"github.com/robotalks/bugsy.go/pkg/motion"
)

// Command is the discriminant byte leading every frame.
type Command byte

// Commands. The values are wire-stable.
const (
	CmdTest            Command = 0x00
	CmdGetState        Command = 0x01
	CmdMove            Command = 0x10
	CmdSetTraderState  Command = 0x20
	CmdGetTraderState  Command = 0x21
	CmdGetChannels     Command = 0x40
	CmdRemoteConfigure Command = 0x41
	CmdSaveConfig      Command = 0x80
	CmdGetWiFiSSID     Command = 0xA0
	CmdSetWiFiSSID     Command = 0xA1
	CmdGetWiFiPassword Command = 0xA2
	CmdSetWiFiPassword Command = 0xA3
)

var commandNames = map[Command]string{
	CmdTest:            "Test",
	CmdGetState:        "GetState",
	CmdMove:            "Move",
	CmdSetTraderState:  "SetTraderState",
	CmdGetTraderState:  "GetTraderState",
	CmdGetChannels:     "GetChannels",
	CmdRemoteConfigure: "RemoteConfigure",
	CmdSaveConfig:      "SaveConfig",
	CmdGetWiFiSSID:     "GetWiFiSSID",
	CmdSetWiFiSSID:     "SetWiFiSSID",
	CmdGetWiFiPassword: "GetWiFiPassword",
	CmdSetWiFiPassword: "SetWiFiPassword",
}

// IsKnown tells if the command is defined.
func (c Command) IsKnown() bool {
	_, ok := commandNames[c]
	return ok
}

// String implements fmt.Stringer.
func (c Command) String() string {
	if name, ok := commandNames[c]; ok {
		return name
	}
	return fmt.Sprintf("Unknown(0x%02x)", byte(c))
}

// PayloadSize returns the fixed payload size of a command.
// ok is false for commands with a variable payload or unknown commands.
func PayloadSize(c Command) (size int, ok bool) {
	switch c {
	case CmdGetState, CmdGetTraderState, CmdGetChannels, CmdSaveConfig,
		CmdGetWiFiSSID, CmdGetWiFiPassword:
		return 0, true
	case CmdMove:
		return motion.MovementSize, true
	case CmdSetTraderState, CmdRemoteConfigure:
		return 1, true
	}
	return 0, false
}

// Frame is a decoded command.
type Frame interface {
	Command() Command
	appendPayload([]byte) []byte
}

// Test asks the receiver to echo Data back.
type Test struct {
	Data []byte
}

// GetState queries the core state.
type GetState struct{}

// Move issues a movement.
type Move struct {
	Movement motion.Movement
}

// SetTraderState reports the trader state.
type SetTraderState struct {
	State liveness.State
}

// GetTraderState queries the trader state known by the core.
type GetTraderState struct{}

// GetChannels queries the active channel set.
type GetChannels struct{}

// RemoteConfigure requests a new active channel set.
type RemoteConfigure struct {
	Channels ChannelSet
}

// SaveConfig persists the current configuration.
type SaveConfig struct{}

// GetWiFiSSID queries the configured SSID.
type GetWiFiSSID struct{}

// SetWiFiSSID overwrites the configured SSID.
type SetWiFiSSID struct {
	SSID string
}

// GetWiFiPassword queries the configured WiFi password.
type GetWiFiPassword struct{}

// SetWiFiPassword overwrites the configured WiFi password.
type SetWiFiPassword struct {
	Password string
}

// Unknown carries a frame with an undefined discriminant.
type Unknown struct {
	ID   Command
	Data []byte
}

// Command implements Frame.
func (Test) Command() Command            { return CmdTest }
func (GetState) Command() Command        { return CmdGetState }
func (Move) Command() Command            { return CmdMove }
func (SetTraderState) Command() Command  { return CmdSetTraderState }
func (GetTraderState) Command() Command  { return CmdGetTraderState }
func (GetChannels) Command() Command     { return CmdGetChannels }
func (RemoteConfigure) Command() Command { return CmdRemoteConfigure }
func (SaveConfig) Command() Command      { return CmdSaveConfig }
func (GetWiFiSSID) Command() Command     { return CmdGetWiFiSSID }
func (SetWiFiSSID) Command() Command     { return CmdSetWiFiSSID }
func (GetWiFiPassword) Command() Command { return CmdGetWiFiPassword }
func (SetWiFiPassword) Command() Command { return CmdSetWiFiPassword }
func (f Unknown) Command() Command       { return f.ID }

func (f Test) appendPayload(b []byte) []byte            { return append(b, f.Data...) }
func (GetState) appendPayload(b []byte) []byte          { return b }
func (f Move) appendPayload(b []byte) []byte            { return append(b, f.Movement.Bytes()...) }
func (f SetTraderState) appendPayload(b []byte) []byte  { return append(b, byte(f.State)) }
func (GetTraderState) appendPayload(b []byte) []byte    { return b }
func (GetChannels) appendPayload(b []byte) []byte       { return b }
func (f RemoteConfigure) appendPayload(b []byte) []byte { return append(b, byte(f.Channels)) }
func (SaveConfig) appendPayload(b []byte) []byte        { return b }
func (GetWiFiSSID) appendPayload(b []byte) []byte       { return b }
func (f SetWiFiSSID) appendPayload(b []byte) []byte     { return appendCString(b, f.SSID) }
func (GetWiFiPassword) appendPayload(b []byte) []byte   { return b }
func (f SetWiFiPassword) appendPayload(b []byte) []byte { return appendCString(b, f.Password) }
func (f Unknown) appendPayload(b []byte) []byte         { return append(b, f.Data...) }

// Reasons of InvalidFrameError.
const (
	ReasonEmpty          = "empty frame"
	ReasonLengthMismatch = "payload length mismatch"
)

// ErrInvalidFrame matches any *InvalidFrameError with errors.Is.
var ErrInvalidFrame = errors.New("invalid frame")

// InvalidFrameError is returned when a frame is rejected before execution.
type InvalidFrameError struct {
	Reason  string
	Command Command
	Want    int
	Got     int
}

// Error implements error.
func (e *InvalidFrameError) Error() string {
	if e.Reason == ReasonLengthMismatch {
		return fmt.Sprintf("invalid frame %s: %s, want %d got %d", e.Command, e.Reason, e.Want, e.Got)
	}
	return "invalid frame: " + e.Reason
}

// Is makes errors.Is(err, ErrInvalidFrame) work.
func (e *InvalidFrameError) Is(target error) bool {
	return target == ErrInvalidFrame
}

// Decode parses one frame. Unknown discriminants are not errors, they
// decode to Unknown.
func Decode(data []byte) (Frame, error) {
	if len(data) == 0 {
		return nil, &InvalidFrameError{Reason: ReasonEmpty}
	}
	cmd, payload := Command(data[0]), data[1:]
	if size, ok := PayloadSize(cmd); ok && size != len(payload) {
		return nil, &InvalidFrameError{
			Reason:  ReasonLengthMismatch,
			Command: cmd,
			Want:    size,
			Got:     len(payload),
		}
	}
	switch cmd {
	case CmdTest:
		return Test{Data: clone(payload)}, nil
	case CmdGetState:
		return GetState{}, nil
	case CmdMove:
		m, err := motion.ParseMovement(payload)
		if err != nil {
			return nil, err
		}
		return Move{Movement: m}, nil
	case CmdSetTraderState:
		return SetTraderState{State: liveness.State(payload[0])}, nil
	case CmdGetTraderState:
		return GetTraderState{}, nil
	case CmdGetChannels:
		return GetChannels{}, nil
	case CmdRemoteConfigure:
		return RemoteConfigure{Channels: ChannelSet(payload[0])}, nil
	case CmdSaveConfig:
		return SaveConfig{}, nil
	case CmdGetWiFiSSID:
		return GetWiFiSSID{}, nil
	case CmdSetWiFiSSID:
		return SetWiFiSSID{SSID: CString(payload)}, nil
	case CmdGetWiFiPassword:
		return GetWiFiPassword{}, nil
	case CmdSetWiFiPassword:
		return SetWiFiPassword{Password: CString(payload)}, nil
	}
	return Unknown{ID: cmd, Data: clone(payload)}, nil
}

// Encode serializes a frame: the discriminant followed by the payload.
func Encode(f Frame) []byte {
	return f.appendPayload([]byte{byte(f.Command())})
}

// CString returns the bytes up to the first NUL, or all of them.
func CString(b []byte) string {
	if n := bytes.IndexByte(b, 0); n >= 0 {
		b = b[:n]
	}
	return string(b)
}

func appendCString(b []byte, s string) []byte {
	return append(append(b, s...), 0)
}

func clone(b []byte) []byte {
	if len(b) == 0 {
		return nil
	}
	return append([]byte(nil), b...)
}
