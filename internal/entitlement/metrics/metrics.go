package metrics

import (
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
)

// Decision outcomes recorded by the guard.
const (
	OutcomeAllowed       = "allowed"
	OutcomeTierDenied    = "tier_denied"
	OutcomeQuotaExceeded = "quota_exceeded"
	OutcomeFailed        = "failed"
)

// Metrics for entitlement decisions. A nil *Metrics is a no-op.
type Metrics struct {
	Decisions      *prometheus.CounterVec
	Settlements    *prometheus.CounterVec
	CreditsGranted *prometheus.CounterVec
}

func New() *Metrics {
	return &Metrics{
		Decisions: promauto.NewCounterVec(prometheus.CounterOpts{
			Name: "tradegraph_entitlement_decisions_total",
			Help: "Guarded operation attempts by operation and outcome",
		}, []string{"operation", "outcome"}),
		Settlements: promauto.NewCounterVec(prometheus.CounterOpts{
			Name: "tradegraph_entitlement_reservations_settled_total",
			Help: "Credit reservations settled by credit type and final state",
		}, []string{"credit_type", "state"}),
		CreditsGranted: promauto.NewCounterVec(prometheus.CounterOpts{
			Name: "tradegraph_entitlement_credits_granted_total",
			Help: "Credits granted by credit type",
		}, []string{"credit_type"}),
	}
}

func (m *Metrics) RecordDecision(operation, outcome string) {
	if m == nil {
		return
	}
	m.Decisions.WithLabelValues(operation, outcome).Inc()
}

func (m *Metrics) RecordSettlement(creditType, state string) {
	if m == nil {
		return
	}
	m.Settlements.WithLabelValues(creditType, state).Inc()
}

func (m *Metrics) AddGranted(creditType string, amount int64) {
	if m == nil {
		return
	}
	m.CreditsGranted.WithLabelValues(creditType).Add(float64(amount))
}
