package robot

import (
	"context"
	"fmt"
	"strings"
	"time"

	"github.com/abiosoft/ishell"

	"github.com/robotalks/bugsy.go/pkg/bus"
	"github.com/robotalks/bugsy.go/pkg/cli/sh"
	"github.com/robotalks/bugsy.go/pkg/motion"
	"github.com/robotalks/bugsy.go/pkg/transport/serial"
)

var (
	// TestCmd sends a Test frame and prints the echo.
	TestCmd = ishell.Cmd{
		Name: "test",
		Help: "[HEX...]",
		Func: sh.MustBeConnected(func(c *ishell.Context) {
			data, err := ParseHex(c.Args)
			if err != nil {
				c.Err(err)
				return
			}
			if len(data) == 0 {
				sh.Done(c, sh.ClientFrom(c).Send(bus.Test{}))
				return
			}
			echo, err := sh.ClientFrom(c).Test(data)
			if err != nil {
				c.Err(err)
				return
			}
			sh.Print(c, fmt.Sprintf("% x", echo))
		}),
	}

	// StateCmd queries the core state.
	StateCmd = ishell.Cmd{
		Name:    "state",
		Aliases: []string{"st"},
		Help:    "",
		Func: sh.MustBeConnected(func(c *ishell.Context) {
			state, err := sh.ClientFrom(c).GetState()
			if err != nil {
				c.Err(err)
				return
			}
			sh.Print(c, state.String())
		}),
	}

	// MoveCmd issues a single movement.
	MoveCmd = ishell.Cmd{
		Name:    "move",
		Aliases: []string{"mv"},
		Help:    "LEFT RIGHT (-255..255)",
		Func: sh.MustBeConnected(func(c *ishell.Context) {
			if len(c.Args) != 2 {
				c.Err(fmt.Errorf("LEFT RIGHT expected"))
				return
			}
			m, err := ParseMovement(c.Args[0], c.Args[1])
			if err != nil {
				c.Err(err)
				return
			}
			sh.Done(c, sh.ClientFrom(c).Move(m))
		}),
	}

	// DriveCmd keeps a movement for a duration.
	DriveCmd = ishell.Cmd{
		Name: "drive",
		Help: "LEFT RIGHT DURATION",
		Func: sh.MustBeConnected(func(c *ishell.Context) {
			if len(c.Args) != 3 {
				c.Err(fmt.Errorf("LEFT RIGHT DURATION expected"))
				return
			}
			m, err := ParseMovement(c.Args[0], c.Args[1])
			if err != nil {
				c.Err(err)
				return
			}
			d, err := time.ParseDuration(c.Args[2])
			if err != nil {
				c.Err(err)
				return
			}
			sh.Done(c, sh.ClientFrom(c).Drive(context.Background(), m, d, 0))
		}),
	}

	// StopCmd stops the robot.
	StopCmd = ishell.Cmd{
		Name: "stop",
		Help: "",
		Func: sh.MustBeConnected(func(c *ishell.Context) {
			sh.Done(c, sh.ClientFrom(c).Move(motion.Stop))
		}),
	}

	// TraderCmd gets or sets the trader state.
	TraderCmd = ishell.Cmd{
		Name: "trader",
		Help: "[STATE]",
		Func: sh.MustBeConnected(func(c *ishell.Context) {
			cli := sh.ClientFrom(c)
			if len(c.Args) == 0 {
				state, err := cli.GetTraderState()
				if err != nil {
					c.Err(err)
					return
				}
				sh.Print(c, state.String())
				return
			}
			state, err := ParseTraderState(c.Args[0])
			if err != nil {
				c.Err(err)
				return
			}
			coreState, err := cli.SetTraderState(state)
			if err != nil {
				c.Err(err)
				return
			}
			sh.Print(c, coreState.String())
		}),
	}

	// ChannelsCmd gets or reconfigures the channels.
	ChannelsCmd = ishell.Cmd{
		Name:    "channels",
		Aliases: []string{"ch"},
		Help:    "[NAME|NAME...]",
		Func: sh.MustBeConnected(func(c *ishell.Context) {
			cli := sh.ClientFrom(c)
			if len(c.Args) == 0 {
				s, err := cli.GetChannels()
				if err != nil {
					c.Err(err)
					return
				}
				sh.Print(c, s.String())
				return
			}
			s, ok := bus.ParseChannelSet(strings.Join(c.Args, "|"))
			if !ok {
				c.Err(fmt.Errorf("invalid channels %q", strings.Join(c.Args, " ")))
				return
			}
			sh.Done(c, cli.RemoteConfigure(s))
		}),
	}

	// SaveCmd persists the configuration.
	SaveCmd = ishell.Cmd{
		Name: "save",
		Help: "",
		Func: sh.MustBeConnected(func(c *ishell.Context) {
			sh.Done(c, sh.ClientFrom(c).SaveConfig())
		}),
	}

	// SSIDCmd gets or sets the WiFi SSID.
	SSIDCmd = ishell.Cmd{
		Name: "ssid",
		Help: "[SSID]",
		Func: sh.MustBeConnected(func(c *ishell.Context) {
			cli := sh.ClientFrom(c)
			if len(c.Args) == 0 {
				ssid, err := cli.GetWiFiSSID()
				if err != nil {
					c.Err(err)
					return
				}
				sh.Print(c, ssid)
				return
			}
			sh.Done(c, cli.SetWiFiSSID(strings.Join(c.Args, " ")))
		}),
	}

	// PasswordCmd gets or sets the WiFi password.
	PasswordCmd = ishell.Cmd{
		Name: "password",
		Help: "[PASSWORD]",
		Func: sh.MustBeConnected(func(c *ishell.Context) {
			cli := sh.ClientFrom(c)
			if len(c.Args) == 0 {
				pwd, err := cli.GetWiFiPassword()
				if err != nil {
					c.Err(err)
					return
				}
				sh.Print(c, pwd)
				return
			}
			sh.Done(c, cli.SetWiFiPassword(c.Args[0]))
		}),
	}

	// PortsCmd lists serial ports.
	PortsCmd = ishell.Cmd{
		Name: "ports",
		Help: "",
		Func: func(c *ishell.Context) {
			ports, err := serial.Ports()
			if err != nil {
				c.Err(err)
				return
			}
			if sh.ShellFrom(c).OutputJSON {
				sh.Print(c, ports)
				return
			}
			for _, p := range ports {
				c.Println(p)
			}
		},
	}
)

func init() {
	sh.AddCmds(
		&TestCmd,
		&StateCmd,
		&MoveCmd,
		&DriveCmd,
		&StopCmd,
		&TraderCmd,
		&ChannelsCmd,
		&SaveCmd,
		&SSIDCmd,
		&PasswordCmd,
		&PortsCmd,
	)
}
