// Package metrics holds the prometheus collectors describing relay activity.
package metrics

import (
	"net/http"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/collectors"
	"github.com/prometheus/client_golang/prometheus/promauto"
	"github.com/prometheus/client_golang/prometheus/promhttp"
)

const namespace = "droprelay"

// Metrics groups the collectors updated by the hub and the transport layer.
type Metrics struct {
	Connections    prometheus.Gauge
	Rooms          prometheus.Gauge
	Joins          prometheus.Counter
	FramesRelayed  prometheus.Counter
	DroppedEvents  prometheus.Counter
	InvalidFrames  prometheus.Counter
	HistoryDropped prometheus.Counter

	gatherer prometheus.Gatherer
}

// New registers all collectors on a fresh registry, together with the
// standard Go runtime and process collectors.
func New() *Metrics {
	reg := prometheus.NewRegistry()
	reg.MustRegister(
		collectors.NewGoCollector(),
		collectors.NewProcessCollector(collectors.ProcessCollectorOpts{}),
	)
	return NewWithRegistry(reg, reg)
}

// NewWithRegistry registers the collectors on reg and serves them from gatherer.
func NewWithRegistry(reg prometheus.Registerer, gatherer prometheus.Gatherer) *Metrics {
	f := promauto.With(reg)
	return &Metrics{
		Connections: f.NewGauge(prometheus.GaugeOpts{
			Namespace: namespace,
			Name:      "connections",
			Help:      "Currently registered WebSocket connections.",
		}),
		Rooms: f.NewGauge(prometheus.GaugeOpts{
			Namespace: namespace,
			Name:      "rooms",
			Help:      "Rooms with at least one member.",
		}),
		Joins: f.NewCounter(prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "room_joins_total",
			Help:      "Successful room joins.",
		}),
		FramesRelayed: f.NewCounter(prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "frames_relayed_total",
			Help:      "File frames accepted for relay.",
		}),
		DroppedEvents: f.NewCounter(prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "dropped_events_total",
			Help:      "Outbound events dropped because the recipient buffer was full.",
		}),
		InvalidFrames: f.NewCounter(prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "invalid_frames_total",
			Help:      "Inbound frames rejected with an error response.",
		}),
		HistoryDropped: f.NewCounter(prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "history_dropped_total",
			Help:      "Room sessions not recorded because the history queue was full.",
		}),
		gatherer: gatherer,
	}
}

// Handler exposes the collectors in the prometheus text format.
func (m *Metrics) Handler() http.Handler {
	return promhttp.HandlerFor(m.gatherer, promhttp.HandlerOpts{})
}
