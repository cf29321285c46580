package node

import (
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promhttp"
	"net/http"

	"github.com/driftmesh/drift/internal/relay"
)

// metrics holds the process-wide counters exported on the control
// server's /metrics endpoint: relay decisions and policy profile
// transitions.
type metrics struct {
	registry        *prometheus.Registry
	relayDecisions  *prometheus.CounterVec
	profileSwitches *prometheus.CounterVec
	syncOutcomes    *prometheus.CounterVec
}

// newMetrics registers counters against a node-private registry rather
// than the global default, so multiple Nodes (one per test, one per
// process) never collide on duplicate registration.
func newMetrics() *metrics {
	m := &metrics{
		registry: prometheus.NewRegistry(),
		relayDecisions: prometheus.NewCounterVec(prometheus.CounterOpts{
			Name: "drift_relay_decisions_total",
			Help: "Relay Engine decisions by outcome.",
		}, []string{"decision", "reason"}),
		profileSwitches: prometheus.NewCounterVec(prometheus.CounterOpts{
			Name: "drift_policy_profile_transitions_total",
			Help: "Policy Engine relay-profile transitions.",
		}, []string{"profile"}),
		syncOutcomes: prometheus.NewCounterVec(prometheus.CounterOpts{
			Name: "drift_sync_sessions_total",
			Help: "IBLT sync session outcomes.",
		}, []string{"outcome"}),
	}
	m.registry.MustRegister(m.relayDecisions, m.profileSwitches, m.syncOutcomes)
	return m
}

func (m *metrics) recordDecision(d relay.Decision, r relay.DropReason) {
	m.relayDecisions.WithLabelValues(decisionLabel(d), reasonLabel(r)).Inc()
}

func (m *metrics) recordProfile(p string) {
	m.profileSwitches.WithLabelValues(p).Inc()
}

func (m *metrics) recordSyncOutcome(outcome string) {
	m.syncOutcomes.WithLabelValues(outcome).Inc()
}

// MetricsHandler exposes the Prometheus text exposition format for this
// node's private registry.
func (n *Node) MetricsHandler() http.Handler {
	return promhttp.HandlerFor(n.metrics.registry, promhttp.HandlerOpts{})
}
