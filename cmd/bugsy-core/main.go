package main

import (
	"context"
	"flag"

	"github.com/golang/glog"

	"github.com/robotalks/bugsy.go/pkg/config"
	"github.com/robotalks/bugsy.go/pkg/core"
	fx "github.com/robotalks/bugsy.go/pkg/framework"
	"github.com/robotalks/bugsy.go/pkg/metrics"
	"github.com/robotalks/bugsy.go/pkg/motion"
	"github.com/robotalks/bugsy.go/pkg/status"
	"github.com/robotalks/bugsy.go/pkg/transport/mqtt"
)

func init() {
	core.SetupFlags()
}

func newQueue(brokerURL, deviceID string) (*mqtt.Queue, error) {
	opts, topicPrefix, err := mqtt.ClientOptionsFromURL(brokerURL)
	if err != nil {
		return nil, err
	}
	opts.SetBinaryWill(topicPrefix+mqtt.DeviceTopic(deviceID, mqtt.TopicStatus), nil, 1, true)
	if opts.ClientID == "" {
		opts.SetClientID("bugsy:" + deviceID)
	}
	return mqtt.NewQueue(opts, topicPrefix), nil
}

func main() {
	flag.Parse()
	defer glog.Flush()

	ctx := context.Background()
	conf := core.NewConfig()
	id := conf.ID()
	alwaysOn, err := conf.AlwaysOnChannels()
	if err != nil {
		glog.Fatal(err)
	}

	store, err := config.OpenStore(ctx, conf.NVS)
	if err != nil {
		glog.Fatalf("open nvs %q: %v", conf.NVS, err)
	}
	defer store.Close()
	nvs := &config.NVS{Store: store}
	saved, err := nvs.Load(ctx)
	if err != nil {
		glog.Errorf("load configuration: %v", err)
	}
	glog.Infof("device %s, configuration %s", id, saved)

	var q *mqtt.Queue
	if conf.MQTTURL != "" {
		if q, err = newQueue(conf.MQTTURL, id); err != nil {
			glog.Fatalf("mqtt %q: %v", conf.MQTTURL, err)
		}
	}

	c := core.New(conf.NewRegistry(id, q), &motion.LogActuator{}, saved)
	c.DeviceID = id
	c.NVS = nvs
	c.AlwaysOn = alwaysOn
	c.Tracker.Timeout = conf.PeerTimeout
	promReg := metrics.NewRegistry()
	c.Metrics = metrics.New(promReg)

	loop := fx.NewLoop()
	loop.Interval = conf.Interval
	loop.Add(c)
	if q != nil {
		pub := status.NewPublisher(q, mqtt.DeviceTopic(id, mqtt.TopicStatus), c)
		q.BeforeClose = func(*mqtt.Queue) { pub.Clear() }
		loop.Add(pub)
		loop.AddRunnable(fx.NamedRun("mqtt", q))
	}
	if conf.MetricsAddr != "" {
		loop.AddRunnable(fx.NamedRun("metrics", &metrics.Server{Addr: conf.MetricsAddr, Registry: promReg}))
	}

	if err := c.Boot(ctx); err != nil {
		glog.Errorf("boot: %v", err)
	}
	err = fx.NewRunner().HandleSignals().Go(fx.NamedRun("loop", loop)).Wait()
	if err := c.Shutdown(); err != nil {
		glog.Errorf("shutdown: %v", err)
	}
	if err != nil {
		glog.Fatal(err)
	}
}
