package client

import (
	"context"
	"fmt"
	"net/url"
	"strconv"
	"strings"

	"github.com/robotalks/bugsy.go/pkg/transport"
	"github.com/robotalks/bugsy.go/pkg/transport/mqtt"
	"github.com/robotalks/bugsy.go/pkg/transport/serial"
	"github.com/robotalks/bugsy.go/pkg/transport/websocket"
)

// Dial connects to the core at target:
//
//	serial:///dev/ttyUSB0?baud=115200
//	/dev/ttyUSB0                       serial at 115200
//	ws://robot:8080/bus
//	mqtt://broker:1883/prefix/?device=ID
func Dial(ctx context.Context, target string) (*Client, error) {
	if strings.HasPrefix(target, "/") {
		target = "serial://" + target
	}
	u, err := url.Parse(target)
	if err != nil {
		return nil, err
	}
	switch u.Scheme {
	case "serial":
		baud := serial.BaudUSB
		if val := u.Query().Get("baud"); val != "" {
			if baud, err = strconv.Atoi(val); err != nil {
				return nil, fmt.Errorf("invalid baud %q: %w", val, err)
			}
		}
		port, err := serial.OpenPort(u.Path, baud, serial.DefaultReadTimeout)
		if err != nil {
			return nil, err
		}
		return New(transport.NewStream(ctx, port)), nil
	case "ws", "wss":
		rw, err := websocket.Dial(target)
		if err != nil {
			return nil, err
		}
		return New(rw), nil
	case "mqtt", "tcp", "ssl":
		device := u.Query().Get("device")
		if device == "" {
			return nil, fmt.Errorf("device is required in %q", target)
		}
		q, err := mqtt.NewQueueFromURL(target)
		if err != nil {
			return nil, err
		}
		token := q.Connect()
		if token.Wait(); token.Error() != nil {
			return nil, token.Error()
		}
		rw := mqtt.NewPacketReadWriter(q).ForDevice(device)
		if err := rw.Start(ctx); err != nil {
			q.Close()
			return nil, err
		}
		return New(&mqttConn{ReadWriter: rw, queue: q}), nil
	}
	return nil, fmt.Errorf("unsupported target %q", target)
}

type mqttConn struct {
	*mqtt.ReadWriter
	queue *mqtt.Queue
}

func (c *mqttConn) Close() error {
	err := c.ReadWriter.Close()
	c.queue.Close()
	return err
}
