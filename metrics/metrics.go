// Package metrics exposes state machine activity as Prometheus metrics.
//
// A Collector is attached to a machine twice: as a watcher, to count accepted
// events, and as store middleware, to count commits and track the current
// state.
//
//	c := metrics.New(prometheus.DefaultRegisterer, "checkout")
//	m := def.New(hfsm.WithMiddleware[Cart](metrics.Middleware[Cart](c)))
//	m.Watch(metrics.Watcher[Cart](c))
package metrics

import (
	"github.com/enetx/hfsm"
	"github.com/enetx/hfsm/store"
	"github.com/prometheus/client_golang/prometheus"
)

// Collector holds the metric vectors for one machine name.
type Collector struct {
	events      *prometheus.CounterVec
	transitions *prometheus.CounterVec
	active      *prometheus.GaugeVec
}

// New creates a Collector and registers its metrics with reg. The name is
// attached to every series as the "machine" label.
func New(reg prometheus.Registerer, name string) *Collector {
	labels := prometheus.Labels{"machine": name}

	c := &Collector{
		events: prometheus.NewCounterVec(
			prometheus.CounterOpts{
				Name:        "hfsm_events_total",
				Help:        "Total number of accepted events.",
				ConstLabels: labels,
			},
			[]string{"state", "event"},
		),
		transitions: prometheus.NewCounterVec(
			prometheus.CounterOpts{
				Name:        "hfsm_transitions_total",
				Help:        "Total number of committed snapshots by source and target state.",
				ConstLabels: labels,
			},
			[]string{"from", "to"},
		),
		active: prometheus.NewGaugeVec(
			prometheus.GaugeOpts{
				Name:        "hfsm_state_active",
				Help:        "Number of machines currently in each state.",
				ConstLabels: labels,
			},
			[]string{"state"},
		),
	}

	if reg != nil {
		reg.MustRegister(c.events, c.transitions, c.active)
	}

	return c
}

// Watcher returns a machine watcher that counts accepted events.
func Watcher[C any](c *Collector) hfsm.Watcher[C] {
	return func(e hfsm.WatchEvent[C]) {
		c.events.WithLabelValues(string(e.State), string(e.Event)).Inc()
	}
}

// Middleware returns store middleware that counts commits and moves the
// active-state gauge. The initial state is counted as soon as the store is
// built.
func Middleware[C any](c *Collector) store.Middleware[hfsm.Snapshot[C]] {
	return func(set store.SetFunc[hfsm.Snapshot[C]], get store.GetFunc[hfsm.Snapshot[C]]) store.SetFunc[hfsm.Snapshot[C]] {
		c.active.WithLabelValues(string(get().State)).Inc()

		return func(next hfsm.Snapshot[C]) {
			prev := get().State

			set(next)

			if get().State != next.State {
				// dropped further down the chain
				return
			}

			c.transitions.WithLabelValues(string(prev), string(next.State)).Inc()

			if prev != next.State {
				c.active.WithLabelValues(string(prev)).Dec()
				c.active.WithLabelValues(string(next.State)).Inc()
			}
		}
	}
}
