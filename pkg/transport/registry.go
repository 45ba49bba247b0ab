package transport

import (
	"context"
	"sync"

	"github.com/golang/glog"

	"github.com/robotalks/bugsy.go/pkg/bus"
	fx "github.com/robotalks/bugsy.go/pkg/framework"
)

// Registry maps logical channels to transports and tracks which
// channels are active. A channel may be active without a bound
// transport; it then swallows writes and never receives.
type Registry struct {
	transports map[bus.ChannelID]Transport
	active     bus.ChannelSet
	lock       sync.RWMutex
}

// NewRegistry creates an empty Registry.
func NewRegistry() *Registry {
	return &Registry{transports: make(map[bus.ChannelID]Transport)}
}

// Bind attaches a transport to a channel, replacing the previous one.
// The channel state is unchanged.
func (r *Registry) Bind(id bus.ChannelID, t Transport) *Registry {
	r.lock.Lock()
	defer r.lock.Unlock()
	r.transports[id] = t
	return r
}

// Transport returns the transport bound to the channel.
func (r *Registry) Transport(id bus.ChannelID) Transport {
	r.lock.RLock()
	defer r.lock.RUnlock()
	return r.transports[id]
}

// Bound returns the channels having a transport.
func (r *Registry) Bound() bus.ChannelSet {
	r.lock.RLock()
	defer r.lock.RUnlock()
	var s bus.ChannelSet
	for id, t := range r.transports {
		if t != nil {
			s |= id.Set()
		}
	}
	return s
}

// Activate opens the transport of the channel and marks it active.
// When Open fails, the channel stays inactive.
func (r *Registry) Activate(ctx context.Context, id bus.ChannelID) error {
	r.lock.Lock()
	defer r.lock.Unlock()
	if r.active.Contains(id) {
		return nil
	}
	if t := r.transports[id]; t != nil {
		if err := t.Open(ctx); err != nil {
			return err
		}
		glog.Infof("%s: activated", id)
	} else {
		glog.V(2).Infof("%s: activated without transport", id)
	}
	r.active |= id.Set()
	return nil
}

// Deactivate closes the transport and marks the channel inactive.
// Deactivating an inactive channel does nothing.
func (r *Registry) Deactivate(id bus.ChannelID) error {
	r.lock.Lock()
	defer r.lock.Unlock()
	if !r.active.Contains(id) {
		return nil
	}
	r.active = r.active.Without(id.Set())
	if t := r.transports[id]; t != nil {
		glog.Infof("%s: deactivated", id)
		return t.Close()
	}
	return nil
}

// Active returns the active channels.
func (r *Registry) Active() bus.ChannelSet {
	r.lock.RLock()
	defer r.lock.RUnlock()
	return r.active
}

// Write sends data to every active channel in dest. Inactive and unbound
// channels are skipped. A failing transport doesn't stop the others;
// failures are returned as *WriteError aggregated in
// *framework.AggregatedError.
func (r *Registry) Write(dest bus.ChannelSet, data []byte) error {
	r.lock.RLock()
	defer r.lock.RUnlock()
	var errs fx.AggregatedError
	for _, id := range dest.Channels() {
		if !r.active.Contains(id) {
			glog.V(3).Infof("%s: skip write, inactive", id)
			continue
		}
		t := r.transports[id]
		if t == nil {
			glog.V(3).Infof("%s: skip write, no transport", id)
			continue
		}
		glog.V(4).Infof("%s: SND % x", id, data)
		if err := t.Write(data); err != nil {
			errs.Add(&WriteError{Channel: id, Err: err})
		}
	}
	return errs.Aggregate()
}

// Poll takes at most one pending message from each active transport,
// in ascending channel order. It never blocks.
func (r *Registry) Poll() []Message {
	r.lock.RLock()
	defer r.lock.RUnlock()
	var msgs []Message
	for _, id := range r.active.Channels() {
		t := r.transports[id]
		if t == nil {
			continue
		}
		if data, ok := t.TryRead(); ok {
			msgs = append(msgs, Message{Source: id, Data: data})
		}
	}
	return msgs
}

// Close deactivates all channels.
func (r *Registry) Close() error {
	var errs fx.AggregatedError
	for _, id := range r.Active().Channels() {
		errs.Add(r.Deactivate(id))
	}
	return errs.Aggregate()
}
