package core

import (
	"context"
	"fmt"

	"github.com/robotalks/bugsy.go/pkg/bus"
	fx "github.com/robotalks/bugsy.go/pkg/framework"
)

// Switch turns single channels on and off. transport.Registry is one.
type Switch interface {
	Activate(ctx context.Context, id bus.ChannelID) error
	Deactivate(id bus.ChannelID) error
}

// ActiveSwitch also reports the channels which are actually on.
type ActiveSwitch interface {
	Switch
	Active() bus.ChannelSet
}

// Diff is the result of comparing two channel sets.
type Diff struct {
	Activate   bus.ChannelSet
	Deactivate bus.ChannelSet
}

// DiffChannels computes the transitions from current to requested.
func DiffChannels(current, requested bus.ChannelSet) Diff {
	changed := current.SymmetricDifference(requested)
	return Diff{
		Activate:   changed.Intersect(requested),
		Deactivate: changed.Intersect(current),
	}
}

// IsEmpty tells if there is nothing to change.
func (d Diff) IsEmpty() bool {
	return d.Activate.IsEmpty() && d.Deactivate.IsEmpty()
}

// String implements fmt.Stringer.
func (d Diff) String() string {
	return fmt.Sprintf("+%s -%s", d.Activate, d.Deactivate)
}

// Reconfigure moves the switch from current to requested. All channels
// are activated first, in ascending bit order, then the others are
// deactivated. A failing transition doesn't stop the rest; failures are
// returned aggregated.
//
// If sw is an ActiveSwitch, channels kept from current which failed to
// come up earlier are activated again.
func Reconfigure(ctx context.Context, sw Switch, current, requested bus.ChannelSet) (Diff, error) {
	diff := DiffChannels(current, requested)
	if as, ok := sw.(ActiveSwitch); ok {
		stale := current.Intersect(requested).Without(as.Active())
		diff.Activate = diff.Activate.Union(stale)
	}
	var errs fx.AggregatedError
	for _, id := range diff.Activate.Channels() {
		if err := sw.Activate(ctx, id); err != nil {
			errs.Add(fmt.Errorf("activate %s: %w", id, err))
		}
	}
	for _, id := range diff.Deactivate.Channels() {
		if err := sw.Deactivate(id); err != nil {
			errs.Add(fmt.Errorf("deactivate %s: %w", id, err))
		}
	}
	return diff, errs.Aggregate()
}
