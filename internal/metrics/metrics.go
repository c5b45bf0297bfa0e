// Package metrics holds the client-side Prometheus collectors and the small
// HTTP endpoint that exposes them.
package metrics

import (
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
)

type Metrics struct {
	// Inbound frames by wire type, including control frames.
	FramesReceived *prometheus.CounterVec

	// Frames dropped because they could not be decoded.
	DecodeFailures prometheus.Counter

	// Notifications pushed into the registry, by channel.
	Notifications *prometheus.CounterVec

	// Reconnects scheduled after entering the degraded state.
	ReconnectsScheduled prometheus.Counter

	// Current connection state (see client.ConnectionState ordinal).
	ConnectionState prometheus.Gauge

	// Snapshot endpoint calls by endpoint and outcome (ok, http_error,
	// decode_error, transport_error, breaker_open).
	SnapshotRequests *prometheus.CounterVec

	// Outbound tracking calls, by kind (track, click).
	TrackedEvents *prometheus.CounterVec

	Registry *prometheus.Registry
}

// New registers the collectors on reg. A nil reg gets a private registry
// so callers that don't export metrics can still record them.
func New(reg *prometheus.Registry) *Metrics {
	if reg == nil {
		reg = prometheus.NewRegistry()
	}
	f := promauto.With(reg)

	return &Metrics{
		FramesReceived: f.NewCounterVec(prometheus.CounterOpts{
			Name: "overwatch_client_frames_received_total",
			Help: "Inbound realtime frames by message type.",
		}, []string{"type"}),

		DecodeFailures: f.NewCounter(prometheus.CounterOpts{
			Name: "overwatch_client_decode_failures_total",
			Help: "Inbound frames dropped because they could not be decoded.",
		}),

		Notifications: f.NewCounterVec(prometheus.CounterOpts{
			Name: "overwatch_client_notifications_total",
			Help: "Normalized notifications delivered to the registry.",
		}, []string{"channel"}),

		ReconnectsScheduled: f.NewCounter(prometheus.CounterOpts{
			Name: "overwatch_client_reconnects_scheduled_total",
			Help: "Reconnect attempts scheduled after a transport failure.",
		}),

		ConnectionState: f.NewGauge(prometheus.GaugeOpts{
			Name: "overwatch_client_connection_state",
			Help: "Connection state (0=idle, 1=connecting, 2=authenticating, 3=subscribed, 4=degraded, 5=closed).",
		}),

		SnapshotRequests: f.NewCounterVec(prometheus.CounterOpts{
			Name: "overwatch_client_snapshot_requests_total",
			Help: "Snapshot endpoint requests by endpoint and outcome.",
		}, []string{"endpoint", "outcome"}),

		TrackedEvents: f.NewCounterVec(prometheus.CounterOpts{
			Name: "overwatch_client_tracked_events_total",
			Help: "Outbound tracking calls by kind.",
		}, []string{"kind"}),

		Registry: reg,
	}
}
