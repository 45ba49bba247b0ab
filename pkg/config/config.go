// Package config holds the persisted configuration of the core and the
// non-volatile storage backends keeping it.
package config

import (
	"fmt"
	"time"

	"github.com/robotalks/bugsy.go/pkg/bus"
	"github.com/robotalks/bugsy.go/pkg/motion"
)

// WiFiBufferSize is the size of the fixed SSID and password buffers,
// including the terminating NUL.
const WiFiBufferSize = 32

// WiFiField is a fixed size, NUL-terminated string buffer.
type WiFiField [WiFiBufferSize]byte

// Set overwrites the field, truncated to WiFiBufferSize-1 bytes.
func (f *WiFiField) Set(s string) {
	*f = WiFiField{}
	copy(f[:WiFiBufferSize-1], s)
}

// String returns the content up to the first NUL.
func (f WiFiField) String() string {
	return bus.CString(f[:])
}

// Configuration is what survives a restart.
type Configuration struct {
	SavedChannels bus.ChannelSet
	MoveDuration  time.Duration
	WiFiSSID      WiFiField
	WiFiPassword  WiFiField
}

// Default returns the factory configuration.
func Default() Configuration {
	return Configuration{
		SavedChannels: bus.NoChannels,
		MoveDuration:  motion.DefaultDuration,
	}
}

// String implements fmt.Stringer. The password is not printed.
func (c Configuration) String() string {
	return fmt.Sprintf("channels=%s move=%s ssid=%q", c.SavedChannels, c.MoveDuration, c.WiFiSSID.String())
}
