package config

import (
	"encoding/binary"
	"time"

	"github.com/robotalks/bugsy.go/pkg/bus"
)

// Blob layout.
const (
	offsetSSID         = 0x00
	offsetPassword     = 0x20
	offsetChannels     = 0x40
	offsetMoveDuration = 0x41

	// BlobSize is the size of the encoded configuration.
	BlobSize = 0x45
)

const erased = 0xff

// EncodeBlob serializes the configuration.
func EncodeBlob(c Configuration) []byte {
	b := make([]byte, BlobSize)
	copy(b[offsetSSID:], c.WiFiSSID[:])
	copy(b[offsetPassword:], c.WiFiPassword[:])
	b[offsetChannels] = byte(c.SavedChannels.Known())
	binary.LittleEndian.PutUint32(b[offsetMoveDuration:], uint32(c.MoveDuration/time.Millisecond))
	return b
}

// DecodeBlob deserializes the configuration. Missing or erased fields
// take their default values, so any input decodes.
func DecodeBlob(b []byte) Configuration {
	c := Default()
	if len(b) >= offsetPassword {
		c.WiFiSSID = decodeField(b[offsetSSID:offsetPassword])
	}
	if len(b) >= offsetChannels {
		c.WiFiPassword = decodeField(b[offsetPassword:offsetChannels])
	}
	if len(b) > offsetChannels && b[offsetChannels] != erased {
		c.SavedChannels = bus.ChannelSet(b[offsetChannels]).Known()
	}
	if len(b) >= BlobSize {
		ms := binary.LittleEndian.Uint32(b[offsetMoveDuration:])
		if ms != 0 && ms != 0xffffffff {
			c.MoveDuration = time.Duration(ms) * time.Millisecond
		}
	}
	return c
}

func decodeField(b []byte) (f WiFiField) {
	if b[0] == erased {
		return
	}
	f.Set(bus.CString(b))
	return
}
