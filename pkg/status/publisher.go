package status

import (
	"sync"

	"github.com/golang/glog"
	"github.com/golang/protobuf/proto"

	fx "github.com/robotalks/bugsy.go/pkg/framework"
)

// Source provides the current status.
type Source interface {
	Status() *Status
}

// SourceFunc is the func form of Source.
type SourceFunc func() *Status

// Status implements Source.
func (f SourceFunc) Status() *Status {
	return f()
}

// Broker is the part of mqtt.Queue the Publisher needs.
type Broker interface {
	Connected() bool
	Publish(topic string, payload []byte, qos byte, retain bool) error
}

// Publisher publishes the status as a retained message whenever it
// changes. It never blocks the loop on the broker.
type Publisher struct {
	Broker Broker
	Topic  string
	Source Source

	last *Status
	lock sync.Mutex
}

// NewPublisher creates a Publisher.
func NewPublisher(broker Broker, topic string, source Source) *Publisher {
	return &Publisher{Broker: broker, Topic: topic, Source: source}
}

// AddToLoop implements LoopAdder.
func (p *Publisher) AddToLoop(loop *fx.Loop) {
	loop.AddController(fx.PrLvPostProc, p)
}

// Control implements Controller.
func (p *Publisher) Control(fx.ControlContext) error {
	p.lock.Lock()
	defer p.lock.Unlock()
	if !p.Broker.Connected() {
		p.last = nil
		return nil
	}
	st := p.Source.Status()
	if p.last != nil && proto.Equal(st, p.last) {
		return nil
	}
	payload, err := Encode(st)
	if err != nil {
		return err
	}
	if err := p.Broker.Publish(p.Topic, payload, 1, true); err != nil {
		glog.Warningf("status not published: %v", err)
		return nil
	}
	glog.V(3).Infof("status %s", st)
	p.last = st
	return nil
}

// Clear removes the retained status.
func (p *Publisher) Clear() {
	p.lock.Lock()
	defer p.lock.Unlock()
	if err := p.Broker.Publish(p.Topic, nil, 1, true); err != nil {
		glog.Warningf("status not cleared: %v", err)
	}
	p.last = nil
}
