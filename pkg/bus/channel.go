package bus

import (
	"fmt"
	"strings"
)

// ChannelID identifies exactly one logical channel.
type ChannelID uint8

// Logical channels. The values are wire-stable.
const (
	Wireless  ChannelID = 0x01
	USB       ChannelID = 0x02
	Trader    ChannelID = 0x04
	Companion ChannelID = 0x08
	WiFiTCP   ChannelID = 0x20
	WiFiMQTT  ChannelID = 0x40
	Module    ChannelID = 0x80
)

// ChannelSet is a set of logical channels.
type ChannelSet uint8

// Predefined channel sets.
const (
	NoChannels  ChannelSet = 0
	AnyWiFi     ChannelSet = ChannelSet(WiFiTCP) | ChannelSet(WiFiMQTT)
	AllChannels ChannelSet = ChannelSet(Wireless) | ChannelSet(USB) | ChannelSet(Trader) |
		ChannelSet(Companion) | AnyWiFi | ChannelSet(Module)
)

// KnownChannels lists all channels in ascending bit order.
var KnownChannels = []ChannelID{Wireless, USB, Trader, Companion, WiFiTCP, WiFiMQTT, Module}

var channelNames = map[ChannelID]string{
	Wireless:  "WIRELESS",
	USB:       "USB",
	Trader:    "TRADER",
	Companion: "COMPANION",
	WiFiTCP:   "WIFI_TCP",
	WiFiMQTT:  "WIFI_MQTT",
	Module:    "MODULE",
}

// ParseChannelID looks up a channel by its name (case-insensitive).
// Aliases BLUETOOTH and RPI are accepted.
func ParseChannelID(name string) (ChannelID, bool) {
	switch name = strings.ToUpper(strings.TrimSpace(name)); name {
	case "BLUETOOTH", "BT":
		return Wireless, true
	case "RPI":
		return Companion, true
	}
	for id, n := range channelNames {
		if n == name {
			return id, true
		}
	}
	return 0, false
}

// IsValid indicates the ID is one of the known singleton channels.
func (id ChannelID) IsValid() bool {
	_, ok := channelNames[id]
	return ok
}

// Set returns the set containing only this channel.
func (id ChannelID) Set() ChannelSet {
	return ChannelSet(id)
}

// String implements fmt.Stringer.
func (id ChannelID) String() string {
	if name, ok := channelNames[id]; ok {
		return name
	}
	return fmt.Sprintf("CHANNEL(0x%02x)", byte(id))
}

// Channels creates a set from channel IDs.
func Channels(ids ...ChannelID) ChannelSet {
	var s ChannelSet
	for _, id := range ids {
		s |= ChannelSet(id)
	}
	return s
}

// Union returns s ∪ o.
func (s ChannelSet) Union(o ChannelSet) ChannelSet { return s | o }

// Intersect returns s ∩ o.
func (s ChannelSet) Intersect(o ChannelSet) ChannelSet { return s & o }

// SymmetricDifference returns channels in exactly one of s and o.
func (s ChannelSet) SymmetricDifference(o ChannelSet) ChannelSet { return s ^ o }

// Without returns s with all channels of o removed.
func (s ChannelSet) Without(o ChannelSet) ChannelSet { return s &^ o }

// Contains tells if the channel is in the set.
func (s ChannelSet) Contains(id ChannelID) bool { return s&ChannelSet(id) != 0 }

// IsEmpty tells if no channel is in the set.
func (s ChannelSet) IsEmpty() bool { return s == NoChannels }

// Known strips bits not assigned to any channel.
func (s ChannelSet) Known() ChannelSet { return s & AllChannels }

// Channels lists the known channels of the set in ascending bit order.
func (s ChannelSet) Channels() []ChannelID {
	var ids []ChannelID
	for _, id := range KnownChannels {
		if s.Contains(id) {
			ids = append(ids, id)
		}
	}
	return ids
}

// String implements fmt.Stringer, e.g. "TRADER|COMPANION".
func (s ChannelSet) String() string {
	if s == NoChannels {
		return "NONE"
	}
	var names []string
	for _, id := range s.Channels() {
		names = append(names, id.String())
	}
	if rest := s &^ AllChannels; rest != 0 {
		names = append(names, fmt.Sprintf("0x%02x", byte(rest)))
	}
	return strings.Join(names, "|")
}

// ParseChannelSet parses names separated by '|' or ','. "NONE", "ANY_WIFI"
// and "ALL" are accepted.
func ParseChannelSet(str string) (ChannelSet, bool) {
	var s ChannelSet
	for _, item := range strings.FieldsFunc(str, func(r rune) bool { return r == '|' || r == ',' }) {
		switch strings.ToUpper(strings.TrimSpace(item)) {
		case "NONE":
			continue
		case "ANY_WIFI":
			s |= AnyWiFi
			continue
		case "ALL":
			s |= AllChannels
			continue
		}
		id, ok := ParseChannelID(item)
		if !ok {
			return NoChannels, false
		}
		s |= id.Set()
	}
	return s, true
}
