package metrics_test

import (
	"strings"
	"testing"

	"github.com/enetx/hfsm"
	"github.com/enetx/hfsm/metrics"
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/testutil"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

type order struct {
	Items int
}

func newOrderMachine(t *testing.T, c *metrics.Collector) *hfsm.Machine[order] {
	t.Helper()

	def, err := hfsm.NewDefinition(order{}).
		Internal("cart", "ADD", func(o order, _ any) order { o.Items++; return o }).
		TransitionWhen("cart", "CHECKOUT", "paid", func(o order) bool { return o.Items > 0 }).
		Transition("paid", "REFUND", "cart").
		Build()
	require.NoError(t, err)

	m := def.New(hfsm.WithMiddleware[order](metrics.Middleware[order](c)))
	m.Watch(metrics.Watcher[order](c))

	return m
}

func TestCollector_CountsEventsAndTransitions(t *testing.T) {
	reg := prometheus.NewRegistry()
	c := metrics.New(reg, "orders")

	m := newOrderMachine(t, c)

	require.NoError(t, m.Send("CHECKOUT")) // rejected by guard
	require.NoError(t, m.Send("ADD"))
	require.NoError(t, m.Send("ADD"))
	require.NoError(t, m.Send("CHECKOUT"))
	require.NoError(t, m.Send("UNKNOWN"))

	expected := `
# HELP hfsm_events_total Total number of accepted events.
# TYPE hfsm_events_total counter
hfsm_events_total{event="ADD",machine="orders",state="cart"} 2
hfsm_events_total{event="CHECKOUT",machine="orders",state="cart"} 1
`
	assert.NoError(t, testutil.GatherAndCompare(reg, strings.NewReader(expected), "hfsm_events_total"))

	expected = `
# HELP hfsm_transitions_total Total number of committed snapshots by source and target state.
# TYPE hfsm_transitions_total counter
hfsm_transitions_total{from="cart",machine="orders",to="cart"} 2
hfsm_transitions_total{from="cart",machine="orders",to="paid"} 1
`
	assert.NoError(t, testutil.GatherAndCompare(reg, strings.NewReader(expected), "hfsm_transitions_total"))
}

func TestCollector_ActiveGauge(t *testing.T) {
	reg := prometheus.NewRegistry()
	c := metrics.New(reg, "orders")

	a := newOrderMachine(t, c)
	b := newOrderMachine(t, c)

	require.NoError(t, a.Send("ADD"))
	require.NoError(t, a.Send("CHECKOUT"))

	expected := `
# HELP hfsm_state_active Number of machines currently in each state.
# TYPE hfsm_state_active gauge
hfsm_state_active{machine="orders",state="cart"} 1
hfsm_state_active{machine="orders",state="paid"} 1
`
	assert.NoError(t, testutil.GatherAndCompare(reg, strings.NewReader(expected), "hfsm_state_active"))

	b.Reset()
	a.Reset()

	expected = `
# HELP hfsm_state_active Number of machines currently in each state.
# TYPE hfsm_state_active gauge
hfsm_state_active{machine="orders",state="cart"} 2
hfsm_state_active{machine="orders",state="paid"} 0
`
	assert.NoError(t, testutil.GatherAndCompare(reg, strings.NewReader(expected), "hfsm_state_active"))
}

func TestNew_NilRegisterer(t *testing.T) {
	c := metrics.New(nil, "unregistered")
	m := newOrderMachine(t, c)

	assert.NoError(t, m.Send("ADD"))
}
