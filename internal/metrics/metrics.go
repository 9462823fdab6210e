// Package metrics exposes relay counters through prometheus.
package metrics

import (
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
)

const namespace = "voxify"

type Metrics struct {
	events            *prometheus.CounterVec
	rejected          *prometheus.CounterVec
	dropped           *prometheus.CounterVec
	persistenceErrors *prometheus.CounterVec
	connections       prometheus.Gauge
}

func New(reg prometheus.Registerer) *Metrics {
	f := promauto.With(reg)
	return &Metrics{
		events: f.NewCounterVec(prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "signal_events_total",
			Help:      "Inbound signaling events handled, by event type.",
		}, []string{"event"}),
		rejected: f.NewCounterVec(prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "signal_events_rejected_total",
			Help:      "Inbound signaling events rejected, by event type and reason.",
		}, []string{"event", "reason"}),
		dropped: f.NewCounterVec(prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "deliveries_dropped_total",
			Help:      "Outbound events not delivered to a member, by event type and action taken.",
		}, []string{"event", "action"}),
		persistenceErrors: f.NewCounterVec(prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "presence_errors_total",
			Help:      "Failed presence writes, by operation.",
		}, []string{"op"}),
		connections: f.NewGauge(prometheus.GaugeOpts{
			Namespace: namespace,
			Name:      "connections",
			Help:      "Open signaling connections.",
		}),
	}
}

func (m *Metrics) EventHandled(event string) {
	m.events.WithLabelValues(event).Inc()
}

func (m *Metrics) EventRejected(event, reason string) {
	m.rejected.WithLabelValues(event, reason).Inc()
}

func (m *Metrics) DeliveryDropped(event, action string) {
	m.dropped.WithLabelValues(event, action).Inc()
}

func (m *Metrics) PersistenceFailed(op string) {
	m.persistenceErrors.WithLabelValues(op).Inc()
}

func (m *Metrics) ConnectionOpened() { m.connections.Inc() }

func (m *Metrics) ConnectionClosed() { m.connections.Dec() }
