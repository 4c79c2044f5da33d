package workflow

import "github.com/prometheus/client_golang/prometheus"

// Metrics counts workflow outcomes. A nil *Metrics records nothing.
type Metrics struct {
	events        *prometheus.CounterVec
	confirmations *prometheus.CounterVec
	compensations *prometheus.CounterVec
	warnings      *prometheus.CounterVec
}

func NewMetrics(reg prometheus.Registerer) *Metrics {
	m := &Metrics{
		events: prometheus.NewCounterVec(prometheus.CounterOpts{
			Namespace: "khata",
			Name:      "workflow_events_total",
			Help:      "Inbound messages by classified event.",
		}, []string{"event"}),
		confirmations: prometheus.NewCounterVec(prometheus.CounterOpts{
			Namespace: "khata",
			Name:      "workflow_confirmations_total",
			Help:      "Confirmation attempts by outcome.",
		}, []string{"outcome"}),
		compensations: prometheus.NewCounterVec(prometheus.CounterOpts{
			Namespace: "khata",
			Name:      "workflow_compensations_total",
			Help:      "Inventory reversals applied after a failed commit step.",
		}, []string{"result"}),
		warnings: prometheus.NewCounterVec(prometheus.CounterOpts{
			Namespace: "khata",
			Name:      "workflow_verification_warnings_total",
			Help:      "Post-commit checks that found a missing row.",
		}, []string{"check"}),
	}

	if reg != nil {
		reg.MustRegister(m.events, m.confirmations, m.compensations, m.warnings)
	}

	return m
}

func (m *Metrics) event(name string) {
	if m == nil {
		return
	}

	m.events.WithLabelValues(name).Inc()
}

func (m *Metrics) confirmation(outcome string) {
	if m == nil {
		return
	}

	m.confirmations.WithLabelValues(outcome).Inc()
}

func (m *Metrics) compensation(ok bool) {
	if m == nil {
		return
	}

	result := "ok"
	if !ok {
		result = "failed"
	}

	m.compensations.WithLabelValues(result).Inc()
}

func (m *Metrics) warning(check string) {
	if m == nil {
		return
	}

	m.warnings.WithLabelValues(check).Inc()
}
