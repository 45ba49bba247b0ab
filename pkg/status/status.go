// Package status publishes snapshots of the core for monitoring.
package status

import (
	"fmt"
	"time"

	"github.com/golang/protobuf/proto"
)

// Status is a snapshot of the core.
type Status struct {
	DeviceID       string    `protobuf:"bytes,1,opt,name=device_id,json=deviceId,proto3" json:"device_id,omitempty"`
	State          uint32    `protobuf:"varint,2,opt,name=state,proto3" json:"state,omitempty"`
	Channels       uint32    `protobuf:"varint,3,opt,name=channels,proto3" json:"channels,omitempty"`
	ActiveChannels uint32    `protobuf:"varint,4,opt,name=active_channels,json=activeChannels,proto3" json:"active_channels,omitempty"`
	TraderState    uint32    `protobuf:"varint,5,opt,name=trader_state,json=traderState,proto3" json:"trader_state,omitempty"`
	Movement       *Movement `protobuf:"bytes,6,opt,name=movement,proto3" json:"movement,omitempty"`
	MoveExpiresAt  int64     `protobuf:"varint,7,opt,name=move_expires_at,json=moveExpiresAt,proto3" json:"move_expires_at,omitempty"`
	FailsafeStops  uint64    `protobuf:"varint,8,opt,name=failsafe_stops,json=failsafeStops,proto3" json:"failsafe_stops,omitempty"`
}

// ProtoMessage implements proto.Message.
func (m *Status) ProtoMessage() {}

// Reset implements proto.Message.
func (m *Status) Reset() { *m = Status{} }

// String implements proto.Message.
func (m *Status) String() string { return proto.CompactTextString(m) }

// ExpiresAt converts MoveExpiresAt, zero when no movement is held.
func (m *Status) ExpiresAt() time.Time {
	if m.MoveExpiresAt == 0 {
		return time.Time{}
	}
	return time.UnixMilli(m.MoveExpiresAt)
}

// Movement is the movement currently applied to the actuators.
type Movement struct {
	LeftForward  bool   `protobuf:"varint,1,opt,name=left_forward,json=leftForward,proto3" json:"left_forward,omitempty"`
	RightForward bool   `protobuf:"varint,2,opt,name=right_forward,json=rightForward,proto3" json:"right_forward,omitempty"`
	LeftDuty     uint32 `protobuf:"varint,3,opt,name=left_duty,json=leftDuty,proto3" json:"left_duty,omitempty"`
	RightDuty    uint32 `protobuf:"varint,4,opt,name=right_duty,json=rightDuty,proto3" json:"right_duty,omitempty"`
}

// ProtoMessage implements proto.Message.
func (m *Movement) ProtoMessage() {}

// Reset implements proto.Message.
func (m *Movement) Reset() { *m = Movement{} }

// String implements proto.Message.
func (m *Movement) String() string { return proto.CompactTextString(m) }

// Encode serializes the status.
func Encode(s *Status) ([]byte, error) {
	return proto.Marshal(s)
}

// Decode deserializes a status.
func Decode(data []byte) (*Status, error) {
	s := &Status{}
	if err := proto.Unmarshal(data, s); err != nil {
		return nil, fmt.Errorf("decode status: %w", err)
	}
	return s, nil
}
