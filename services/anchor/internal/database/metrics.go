package database

import (
	"fmt"

	"github.com/prometheus/client_golang/prometheus"

	"github.com/redbco/redb-docstore/pkg/anchor/adapter"
)

const metricsNamespace = "anchor"

// Metrics exports adapter lifecycle metrics.
type Metrics struct {
	events   *prometheus.CounterVec
	ready    *prometheus.GaugeVec
	state    *prometheus.GaugeVec
	adapters prometheus.Gauge
}

// NewMetrics creates the collectors and registers them on reg.
func NewMetrics(reg prometheus.Registerer) (*Metrics, error) {
	m := &Metrics{
		events: prometheus.NewCounterVec(prometheus.CounterOpts{
			Namespace: metricsNamespace,
			Name:      "adapter_events_total",
			Help:      "Lifecycle events published by adapters.",
		}, []string{"adapter", "key", "event"}),
		ready: prometheus.NewGaugeVec(prometheus.GaugeOpts{
			Namespace: metricsNamespace,
			Name:      "adapter_ready",
			Help:      "1 when the adapter connection is established.",
		}, []string{"adapter", "key"}),
		state: prometheus.NewGaugeVec(prometheus.GaugeOpts{
			Namespace: metricsNamespace,
			Name:      "adapter_state",
			Help:      "Current lifecycle state of the adapter, 1 for the active state.",
		}, []string{"adapter", "key", "state"}),
		adapters: prometheus.NewGauge(prometheus.GaugeOpts{
			Namespace: metricsNamespace,
			Name:      "adapters",
			Help:      "Number of cached adapters.",
		}),
	}

	for _, c := range []prometheus.Collector{m.events, m.ready, m.state, m.adapters} {
		if err := reg.Register(c); err != nil {
			return nil, fmt.Errorf("failed to register metrics: %w", err)
		}
	}
	return m, nil
}

var allStates = []adapter.State{
	adapter.StateIdle,
	adapter.StateConnecting,
	adapter.StateConnected,
	adapter.StateDisconnected,
	adapter.StateErroring,
	adapter.StateClosed,
}

// Observe records one event and the adapter state that followed it.
func (m *Metrics) Observe(key string, e adapter.Event, state adapter.State) {
	if m == nil {
		return
	}

	m.events.WithLabelValues(e.Adapter, key, string(e.Kind)).Inc()

	ready := 0.0
	if state == adapter.StateConnected {
		ready = 1
	}
	m.ready.WithLabelValues(e.Adapter, key).Set(ready)

	for _, s := range allStates {
		v := 0.0
		if s == state {
			v = 1
		}
		m.state.WithLabelValues(e.Adapter, key, s.String()).Set(v)
	}
}

// SetAdapters records the number of cached adapters.
func (m *Metrics) SetAdapters(n int) {
	if m == nil {
		return
	}
	m.adapters.Set(float64(n))
}
