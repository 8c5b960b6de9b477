package metrics

import (
	"strconv"

	"github.com/prometheus/client_golang/prometheus"

	"github.com/kirillkom/irrrl-engine/internal/core/domain"
)

// DecisionMetrics counts NTB and eligibility verdicts and workflow transition outcomes.
type DecisionMetrics struct {
	service string

	ntbTotal         *prometheus.CounterVec
	eligibilityTotal *prometheus.CounterVec
	transitionsTotal *prometheus.CounterVec
}

func NewDecisionMetrics(service string, registerer prometheus.Registerer) *DecisionMetrics {
	ntbTotal := prometheus.NewCounterVec(
		prometheus.CounterOpts{
			Namespace: namespace,
			Subsystem: "decision",
			Name:      "ntb_total",
			Help:      "Net tangible benefit calculations by verdict.",
		},
		[]string{"service", "passed"},
	)
	eligibilityTotal := prometheus.NewCounterVec(
		prometheus.CounterOpts{
			Namespace: namespace,
			Subsystem: "decision",
			Name:      "eligibility_total",
			Help:      "Eligibility verifications by verdict.",
		},
		[]string{"service", "eligible"},
	)
	transitionsTotal := prometheus.NewCounterVec(
		prometheus.CounterOpts{
			Namespace: namespace,
			Subsystem: "workflow",
			Name:      "transitions_total",
			Help:      "Requested status transitions by target and outcome.",
		},
		[]string{"service", "target", "accepted"},
	)
	registerer.MustRegister(ntbTotal, eligibilityTotal, transitionsTotal)

	return &DecisionMetrics{
		service:          service,
		ntbTotal:         ntbTotal,
		eligibilityTotal: eligibilityTotal,
		transitionsTotal: transitionsTotal,
	}
}

func (m *DecisionMetrics) RecordNTB(passed bool) {
	m.ntbTotal.WithLabelValues(m.service, strconv.FormatBool(passed)).Inc()
}

func (m *DecisionMetrics) RecordEligibility(eligible bool) {
	m.eligibilityTotal.WithLabelValues(m.service, strconv.FormatBool(eligible)).Inc()
}

func (m *DecisionMetrics) RecordTransition(target domain.ApplicationStatus, accepted bool) {
	m.transitionsTotal.WithLabelValues(m.service, string(target), strconv.FormatBool(accepted)).Inc()
}
