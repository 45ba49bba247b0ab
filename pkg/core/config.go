package core

import (
	"flag"
	"fmt"
	"os"
	"time"

	"github.com/robotalks/bugsy.go/pkg/bus"
	fx "github.com/robotalks/bugsy.go/pkg/framework"
	"github.com/robotalks/bugsy.go/pkg/liveness"
	"github.com/robotalks/bugsy.go/pkg/transport"
	"github.com/robotalks/bugsy.go/pkg/transport/mqtt"
	"github.com/robotalks/bugsy.go/pkg/transport/serial"
	"github.com/robotalks/bugsy.go/pkg/transport/websocket"
)

// Config defines the process options of the core daemon.
// Empty port names or addresses leave the channel without transport.
type Config struct {
	DeviceID      string
	USBPort       string
	TraderPort    string
	CompanionPort string
	WirelessPort  string
	ModulePort    string
	WiFiTCPAddr   string
	MQTTURL       string
	NVS           string
	MetricsAddr   string
	AlwaysOn      string
	Interval      time.Duration
	PeerTimeout   time.Duration
}

var defaultConfig = Config{
	USBPort:       "/dev/ttyGS0",
	TraderPort:    "/dev/ttyAMA1",
	CompanionPort: "/dev/ttyAMA2",
	WirelessPort:  "/dev/rfcomm0",
	WiFiTCPAddr:   ":8080",
	NVS:           "file:/var/lib/bugsy/nvs.bin",
	MetricsAddr:   ":9180",
	AlwaysOn:      DefaultAlwaysOn.String(),
	Interval:      fx.DefaultInterval,
	PeerTimeout:   liveness.DefaultTimeout,
}

var envVars = map[string]*string{
	"BUGSY_ID":           &defaultConfig.DeviceID,
	"BUGSY_USB":          &defaultConfig.USBPort,
	"BUGSY_TRADER":       &defaultConfig.TraderPort,
	"BUGSY_COMPANION":    &defaultConfig.CompanionPort,
	"BUGSY_WIRELESS":     &defaultConfig.WirelessPort,
	"BUGSY_MODULE":       &defaultConfig.ModulePort,
	"BUGSY_WIFI_TCP":     &defaultConfig.WiFiTCPAddr,
	"BUGSY_MQTT_URL":     &defaultConfig.MQTTURL,
	"BUGSY_NVS":          &defaultConfig.NVS,
	"BUGSY_METRICS_ADDR": &defaultConfig.MetricsAddr,
}

func init() {
	for name, ptr := range envVars {
		if val, ok := os.LookupEnv(name); ok {
			*ptr = val
		}
	}
}

// SetupFlags sets command line flags.
func SetupFlags() {
	flag.StringVar(&defaultConfig.DeviceID, "id", defaultConfig.DeviceID, "Device ID, machine ID when empty.")
	flag.StringVar(&defaultConfig.USBPort, "usb", defaultConfig.USBPort, "USB serial port.")
	flag.StringVar(&defaultConfig.TraderPort, "trader", defaultConfig.TraderPort, "Trader serial port.")
	flag.StringVar(&defaultConfig.CompanionPort, "companion", defaultConfig.CompanionPort, "Companion computer serial port.")
	flag.StringVar(&defaultConfig.WirelessPort, "wireless", defaultConfig.WirelessPort, "Bluetooth serial port.")
	flag.StringVar(&defaultConfig.ModulePort, "module", defaultConfig.ModulePort, "Expansion module serial port.")
	flag.StringVar(&defaultConfig.WiFiTCPAddr, "wifi-tcp", defaultConfig.WiFiTCPAddr, "Websocket listen address.")
	flag.StringVar(&defaultConfig.MQTTURL, "mqtt", defaultConfig.MQTTURL, "MQTT broker URL, e.g. mqtt://host:1883/bugsy/")
	flag.StringVar(&defaultConfig.NVS, "nvs", defaultConfig.NVS, "Configuration storage: file:PATH, sqlite:PATH or mem:")
	flag.StringVar(&defaultConfig.MetricsAddr, "metrics-addr", defaultConfig.MetricsAddr, "Prometheus listen address, empty to disable.")
	flag.StringVar(&defaultConfig.AlwaysOn, "always-on", defaultConfig.AlwaysOn, "Channels activated at boot regardless of saved configuration.")
	flag.DurationVar(&defaultConfig.Interval, "interval", defaultConfig.Interval, "Control loop interval.")
	flag.DurationVar(&defaultConfig.PeerTimeout, "peer-timeout", defaultConfig.PeerTimeout, "Trader liveness timeout.")
}

// Default gets default config.
func Default() *Config {
	return &defaultConfig
}

// NewConfig creates a config with defaults.
func NewConfig() *Config {
	conf := defaultConfig
	return &conf
}

// ID returns the configured device ID or the machine ID.
func (c *Config) ID() string {
	if c.DeviceID != "" {
		return c.DeviceID
	}
	return MachineID()
}

// AlwaysOnChannels parses AlwaysOn.
func (c *Config) AlwaysOnChannels() (bus.ChannelSet, error) {
	s, ok := bus.ParseChannelSet(c.AlwaysOn)
	if !ok {
		return bus.NoChannels, fmt.Errorf("invalid channel set %q", c.AlwaysOn)
	}
	return s, nil
}

// NewRegistry binds the configured transports. q may be nil when MQTT
// is not configured.
func (c *Config) NewRegistry(deviceID string, q *mqtt.Queue) *transport.Registry {
	r := transport.NewRegistry()
	serialPorts := []struct {
		id   bus.ChannelID
		port string
		baud int
	}{
		{bus.Wireless, c.WirelessPort, serial.BaudWireless},
		{bus.USB, c.USBPort, serial.BaudUSB},
		{bus.Trader, c.TraderPort, serial.BaudTrader},
		{bus.Companion, c.CompanionPort, serial.BaudCompanion},
		{bus.Module, c.ModulePort, serial.BaudModule},
	}
	for _, p := range serialPorts {
		if p.port != "" {
			r.Bind(p.id, serial.New(p.port, p.baud))
		}
	}
	if c.WiFiTCPAddr != "" {
		r.Bind(bus.WiFiTCP, websocket.NewServer(c.WiFiTCPAddr))
	}
	if q != nil {
		r.Bind(bus.WiFiMQTT, mqtt.NewTransport(q, deviceID))
	}
	return r
}
