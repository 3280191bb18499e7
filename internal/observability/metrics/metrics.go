package metrics

import "github.com/prometheus/client_golang/prometheus"

// EngineMetrics exposes counters/histograms for the deliberation engine.
type EngineMetrics struct {
	casesTotal     *prometheus.CounterVec
	roundsTotal    *prometheus.CounterVec
	opinionsTotal  *prometheus.CounterVec
	esiAssigned    *prometheus.CounterVec
	backendLatency *prometheus.HistogramVec
}

func NewEngineMetrics(reg prometheus.Registerer) *EngineMetrics {
	m := &EngineMetrics{
		casesTotal: prometheus.NewCounterVec(prometheus.CounterOpts{
			Namespace: "triage",
			Subsystem: "engine",
			Name:      "cases_total",
			Help:      "Total triage cases by terminal status",
		}, []string{"status"}),
		roundsTotal: prometheus.NewCounterVec(prometheus.CounterOpts{
			Namespace: "triage",
			Subsystem: "engine",
			Name:      "rounds_total",
			Help:      "Total deliberation rounds by verdict",
		}, []string{"verdict"}),
		opinionsTotal: prometheus.NewCounterVec(prometheus.CounterOpts{
			Namespace: "triage",
			Subsystem: "engine",
			Name:      "opinions_total",
			Help:      "Total agent opinions by role and outcome",
		}, []string{"role", "outcome"}),
		esiAssigned: prometheus.NewCounterVec(prometheus.CounterOpts{
			Namespace: "triage",
			Subsystem: "engine",
			Name:      "esi_assigned_total",
			Help:      "Final ESI levels assigned to cases",
		}, []string{"level"}),
		backendLatency: prometheus.NewHistogramVec(prometheus.HistogramOpts{
			Namespace: "triage",
			Subsystem: "engine",
			Name:      "agent_call_seconds",
			Help:      "Latency of model backend calls per agent",
			Buckets:   prometheus.ExponentialBuckets(0.25, 2, 10),
		}, []string{"role", "model"}),
	}
	if reg == nil {
		reg = prometheus.DefaultRegisterer
	}
	reg.MustRegister(m.casesTotal, m.roundsTotal, m.opinionsTotal, m.esiAssigned, m.backendLatency)
	return m
}

func (m *EngineMetrics) ObserveCase(status string) {
	if m == nil {
		return
	}
	m.casesTotal.WithLabelValues(status).Inc()
}

func (m *EngineMetrics) ObserveRound(verdict string) {
	if m == nil {
		return
	}
	m.roundsTotal.WithLabelValues(verdict).Inc()
}

func (m *EngineMetrics) ObserveOpinion(role string, failed bool) {
	if m == nil {
		return
	}
	outcome := "ok"
	if failed {
		outcome = "failed"
	}
	m.opinionsTotal.WithLabelValues(role, outcome).Inc()
}

func (m *EngineMetrics) ObserveESI(level int) {
	if m == nil {
		return
	}
	m.esiAssigned.WithLabelValues(esiLabel(level)).Inc()
}

func (m *EngineMetrics) ObserveAgentCall(role, model string, seconds float64) {
	if m == nil {
		return
	}
	m.backendLatency.WithLabelValues(role, model).Observe(seconds)
}

func esiLabel(level int) string {
	switch level {
	case 1:
		return "1"
	case 2:
		return "2"
	case 3:
		return "3"
	case 4:
		return "4"
	case 5:
		return "5"
	default:
		return "unknown"
	}
}
