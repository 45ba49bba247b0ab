package transport

import (
	"context"

	"github.com/golang/glog"
)

// Pump reads packets until an error and hands them to the inbox.
// Empty packets are skipped.
func Pump(ctx context.Context, r PacketReader, inbox *Inbox) error {
	for {
		pkt, err := r.ReadPacket()
		if err != nil {
			if ctx.Err() != nil {
				return ctx.Err()
			}
			return err
		}
		if len(pkt) == 0 {
			continue
		}
		glog.V(4).Infof("%s: RCV % x", inbox.Name, pkt)
		inbox.Push(pkt)
	}
}
