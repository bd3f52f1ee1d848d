// Metrics exposes the hub's Prometheus counters/gauges, generalizing
// the teacher's cntConnIRC/cntConnIRCOpen/cntConnIRCS pattern (one
// counter pair per probed protocol, IRC-only in the teacher) to every
// protocol the probe classifies, plus SID-pool utilization and router
// drop counters (SPEC_FULL.md §4.N).
package hub

import "github.com/prometheus/client_golang/prometheus"

// Metrics bundles the hub's exported Prometheus collectors.
type Metrics struct {
	ConnTotal  *prometheus.CounterVec // by protocol: adc, adcs, http, unknown
	ConnOpen   *prometheus.GaugeVec   // by protocol
	SIDPoolUse prometheus.Gauge
	DropTotal  *prometheus.CounterVec // by reason
}

// NewMetrics creates and registers the hub's collectors against reg.
func NewMetrics(reg prometheus.Registerer) *Metrics {
	m := &Metrics{
		ConnTotal: prometheus.NewCounterVec(prometheus.CounterOpts{
			Name: "adchub_connections_total",
			Help: "Total connections accepted, by probed protocol.",
		}, []string{"protocol"}),
		ConnOpen: prometheus.NewGaugeVec(prometheus.GaugeOpts{
			Name: "adchub_connections_open",
			Help: "Currently open connections, by probed protocol.",
		}, []string{"protocol"}),
		SIDPoolUse: prometheus.NewGauge(prometheus.GaugeOpts{
			Name: "adchub_sid_pool_used",
			Help: "Number of SIDs currently allocated.",
		}),
		DropTotal: prometheus.NewCounterVec(prometheus.CounterOpts{
			Name: "adchub_router_drops_total",
			Help: "Messages dropped by the router, by reason.",
		}, []string{"reason"}),
	}
	reg.MustRegister(m.ConnTotal, m.ConnOpen, m.SIDPoolUse, m.DropTotal)
	return m
}

// RecordDrop increments the drop counter for reason.
func (m *Metrics) RecordDrop(reason DropReason) {
	var label string
	switch reason {
	case DropPolicyDeny:
		label = "policy_deny"
	case DropTargetAbsent:
		label = "target_absent"
	case DropNotAcceptedFromClient:
		label = "not_accepted_from_client"
	default:
		return
	}
	m.DropTotal.WithLabelValues(label).Inc()
}

// RecordAccept records a newly-probed connection of the given
// protocol label (one of "adc", "adcs", "http", "unknown").
func (m *Metrics) RecordAccept(protocol string) {
	m.ConnTotal.WithLabelValues(protocol).Inc()
	m.ConnOpen.WithLabelValues(protocol).Inc()
}

// RecordClose marks a previously-accepted connection of protocol as
// closed.
func (m *Metrics) RecordClose(protocol string) {
	m.ConnOpen.WithLabelValues(protocol).Dec()
}
