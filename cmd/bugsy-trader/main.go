package main

import (
	"context"
	"flag"
	"os"

	"github.com/golang/glog"

	"github.com/robotalks/bugsy.go/pkg/client"
	fx "github.com/robotalks/bugsy.go/pkg/framework"
	"github.com/robotalks/bugsy.go/pkg/trader"
)

var (
	target    = "serial:///dev/ttyAMA1?baud=250000"
	heartbeat = trader.DefaultHeartbeat
	retry     = trader.DefaultRetryInterval
)

func init() {
	if val := os.Getenv("BUGSY_TRADER_TARGET"); val != "" {
		target = val
	}
	flag.StringVar(&target, "target", target, "Core link of the trader.")
	flag.DurationVar(&heartbeat, "heartbeat", heartbeat, "Heartbeat interval.")
	flag.DurationVar(&retry, "retry", retry, "Reconnect interval.")
}

func main() {
	flag.Parse()
	defer glog.Flush()

	e := trader.New(func(ctx context.Context) (trader.Peer, error) {
		return client.Dial(ctx, target)
	})
	e.Heartbeat, e.RetryInterval = heartbeat, retry
	if err := fx.NewRunner().HandleSignals().Go(fx.NamedRun("trader", e)).Wait(); err != nil {
		glog.Fatal(err)
	}
}
