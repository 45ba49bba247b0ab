// Package metrics exposes the core counters and gauges to Prometheus.
// A nil *Metrics is valid and records nothing.
package metrics

import (
	"context"
	"errors"
	"net/http"
	"time"

	"github.com/golang/glog"
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/collectors"
	"github.com/prometheus/client_golang/prometheus/promhttp"

	"github.com/robotalks/bugsy.go/pkg/bus"
)

const namespace = "bugsy"

// NewRegistry creates a registry with the Go and process collectors.
func NewRegistry() *prometheus.Registry {
	reg := prometheus.NewRegistry()
	reg.MustRegister(
		collectors.NewGoCollector(),
		collectors.NewProcessCollector(collectors.ProcessCollectorOpts{}),
	)
	return reg
}

// Handler returns the HTTP handler serving the registry.
func Handler(reg *prometheus.Registry) http.Handler {
	return promhttp.HandlerFor(reg, promhttp.HandlerOpts{Registry: reg})
}

// Metrics are the core metrics.
type Metrics struct {
	Frames           *prometheus.CounterVec // labels: channel, command
	RejectedFrames   *prometheus.CounterVec // labels: channel, reason
	WriteErrors      *prometheus.CounterVec // labels: channel
	FailsafeStops    prometheus.Counter
	PeerTimeouts     prometheus.Counter
	ActiveChannels   prometheus.Gauge
	TraderState      prometheus.Gauge
	CoreState        prometheus.Gauge
	InboxDrops       *prometheus.GaugeVec // labels: channel
	Reconfigurations prometheus.Counter
}

// New registers and returns the metrics.
func New(reg prometheus.Registerer) *Metrics {
	m := &Metrics{
		Frames: prometheus.NewCounterVec(prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "frames_total",
			Help:      "Frames received by channel and command.",
		}, []string{"channel", "command"}),
		RejectedFrames: prometheus.NewCounterVec(prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "frames_rejected_total",
			Help:      "Frames rejected before execution.",
		}, []string{"channel", "reason"}),
		WriteErrors: prometheus.NewCounterVec(prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "transport_write_errors_total",
			Help:      "Failed writes by channel.",
		}, []string{"channel"}),
		FailsafeStops: prometheus.NewCounter(prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "failsafe_stops_total",
			Help:      "Movements stopped because they were not renewed in time.",
		}),
		PeerTimeouts: prometheus.NewCounter(prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "peer_timeouts_total",
			Help:      "Trader liveness timeouts.",
		}),
		ActiveChannels: prometheus.NewGauge(prometheus.GaugeOpts{
			Namespace: namespace,
			Name:      "active_channels",
			Help:      "Bitmask of active channels.",
		}),
		TraderState: prometheus.NewGauge(prometheus.GaugeOpts{
			Namespace: namespace,
			Name:      "trader_state",
			Help:      "Last known trader state.",
		}),
		CoreState: prometheus.NewGauge(prometheus.GaugeOpts{
			Namespace: namespace,
			Name:      "core_state",
			Help:      "Current core state.",
		}),
		InboxDrops: prometheus.NewGaugeVec(prometheus.GaugeOpts{
			Namespace: namespace,
			Name:      "inbox_drops",
			Help:      "Messages dropped because the inbox was full.",
		}, []string{"channel"}),
		Reconfigurations: prometheus.NewCounter(prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "reconfigurations_total",
			Help:      "Remote channel reconfigurations.",
		}),
	}
	reg.MustRegister(m.Frames, m.RejectedFrames, m.WriteErrors, m.FailsafeStops,
		m.PeerTimeouts, m.ActiveChannels, m.TraderState, m.CoreState, m.InboxDrops,
		m.Reconfigurations)
	return m
}

// FrameReceived counts a decoded frame.
func (m *Metrics) FrameReceived(ch bus.ChannelID, cmd bus.Command) {
	if m != nil {
		m.Frames.WithLabelValues(ch.String(), cmd.String()).Inc()
	}
}

// FrameRejected counts a rejected frame.
func (m *Metrics) FrameRejected(ch bus.ChannelID, reason string) {
	if m != nil {
		m.RejectedFrames.WithLabelValues(ch.String(), reason).Inc()
	}
}

// WriteFailed counts a failed write.
func (m *Metrics) WriteFailed(ch bus.ChannelID) {
	if m != nil {
		m.WriteErrors.WithLabelValues(ch.String()).Inc()
	}
}

// FailsafeStopped counts a failsafe stop.
func (m *Metrics) FailsafeStopped() {
	if m != nil {
		m.FailsafeStops.Inc()
	}
}

// PeerTimedOut counts a liveness timeout.
func (m *Metrics) PeerTimedOut() {
	if m != nil {
		m.PeerTimeouts.Inc()
	}
}

// Reconfigured counts a remote reconfiguration.
func (m *Metrics) Reconfigured() {
	if m != nil {
		m.Reconfigurations.Inc()
	}
}

// SetInboxDrops updates the drop gauge of a channel.
func (m *Metrics) SetInboxDrops(ch bus.ChannelID, drops uint64) {
	if m != nil {
		m.InboxDrops.WithLabelValues(ch.String()).Set(float64(drops))
	}
}

// SetStates updates the state gauges.
func (m *Metrics) SetStates(active bus.ChannelSet, trader, core uint8) {
	if m != nil {
		m.ActiveChannels.Set(float64(active))
		m.TraderState.Set(float64(trader))
		m.CoreState.Set(float64(core))
	}
}

// Server serves the metrics over HTTP. It implements framework.Runnable.
type Server struct {
	Addr     string
	Registry *prometheus.Registry
}

// Run implements framework.Runnable.
func (s *Server) Run(ctx context.Context) error {
	mux := http.NewServeMux()
	mux.Handle("/metrics", Handler(s.Registry))
	srv := &http.Server{Addr: s.Addr, Handler: mux, ReadHeaderTimeout: 5 * time.Second}
	errCh := make(chan error, 1)
	go func() {
		glog.Infof("metrics listening on %s", s.Addr)
		errCh <- srv.ListenAndServe()
	}()
	select {
	case err := <-errCh:
		return err
	case <-ctx.Done():
		shutdownCtx, cancel := context.WithTimeout(context.Background(), time.Second)
		defer cancel()
		if err := srv.Shutdown(shutdownCtx); err != nil && !errors.Is(err, http.ErrServerClosed) {
			return err
		}
		return ctx.Err()
	}
}
