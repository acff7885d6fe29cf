// Package metrics exposes Prometheus collectors for rooms, connections and
// game results. A nil *Metrics is valid and records nothing.
package metrics

import (
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
)

const namespace = "connect4"

type Metrics struct {
	roomsResident     prometheus.Gauge
	connectionsActive prometheus.Gauge
	eventsTotal       *prometheus.CounterVec
	gamesFinished     *prometheus.CounterVec
	storeErrors       *prometheus.CounterVec
	reconnectsTotal   prometheus.Counter
}

// New registers the collectors on reg. Pass prometheus.NewRegistry() in tests
// so repeated construction does not collide on the default registerer.
func New(reg prometheus.Registerer) *Metrics {
	factory := promauto.With(reg)

	return &Metrics{
		roomsResident: factory.NewGauge(prometheus.GaugeOpts{
			Namespace: namespace,
			Name:      "rooms_resident",
			Help:      "Number of rooms loaded in memory",
		}),
		connectionsActive: factory.NewGauge(prometheus.GaugeOpts{
			Namespace: namespace,
			Name:      "connections_active",
			Help:      "Number of live player connections",
		}),
		eventsTotal: factory.NewCounterVec(prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "events_total",
			Help:      "Client events processed by rooms",
		}, []string{"type"}),
		gamesFinished: factory.NewCounterVec(prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "games_finished_total",
			Help:      "Finished games by outcome",
		}, []string{"outcome"}),
		storeErrors: factory.NewCounterVec(prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "store_errors_total",
			Help:      "Failed store operations",
		}, []string{"op"}),
		reconnectsTotal: factory.NewCounter(prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "reconnects_total",
			Help:      "Players that rejoined a slot they already owned",
		}),
	}
}

func (m *Metrics) RoomLoaded() {
	if m == nil {
		return
	}
	m.roomsResident.Inc()
}

func (m *Metrics) RoomUnloaded() {
	if m == nil {
		return
	}
	m.roomsResident.Dec()
}

func (m *Metrics) Connected() {
	if m == nil {
		return
	}
	m.connectionsActive.Inc()
}

func (m *Metrics) Disconnected() {
	if m == nil {
		return
	}
	m.connectionsActive.Dec()
}

func (m *Metrics) Event(eventType string) {
	if m == nil {
		return
	}
	m.eventsTotal.WithLabelValues(eventType).Inc()
}

func (m *Metrics) GameFinished(outcome string) {
	if m == nil {
		return
	}
	m.gamesFinished.WithLabelValues(outcome).Inc()
}

func (m *Metrics) StoreError(op string) {
	if m == nil {
		return
	}
	m.storeErrors.WithLabelValues(op).Inc()
}

func (m *Metrics) Reconnected() {
	if m == nil {
		return
	}
	m.reconnectsTotal.Inc()
}
