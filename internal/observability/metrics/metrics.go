package metrics

import "github.com/prometheus/client_golang/prometheus"

// ChatMetrics exposes counters/histograms for widget chat flows.
type ChatMetrics struct {
	turnsTotal    *prometheus.CounterVec
	gateTotal     *prometheus.CounterVec
	turnLatency   *prometheus.HistogramVec
	usageEvents   *prometheus.CounterVec
	rejectedTotal *prometheus.CounterVec
}

func NewChatMetrics(reg prometheus.Registerer) *ChatMetrics {
	m := &ChatMetrics{
		turnsTotal: prometheus.NewCounterVec(prometheus.CounterOpts{
			Namespace: "chappy",
			Subsystem: "chat",
			Name:      "turns_total",
			Help:      "Chat turns by classified intent and outcome",
		}, []string{"intent", "outcome"}),
		gateTotal: prometheus.NewCounterVec(prometheus.CounterOpts{
			Namespace: "chappy",
			Subsystem: "chat",
			Name:      "gate_decisions_total",
			Help:      "Usage gate decisions by state and whether the turn was allowed",
		}, []string{"state", "allowed"}),
		turnLatency: prometheus.NewHistogramVec(prometheus.HistogramOpts{
			Namespace: "chappy",
			Subsystem: "chat",
			Name:      "turn_latency_seconds",
			Help:      "End-to-end latency of chat requests",
			Buckets:   []float64{0.1, 0.25, 0.5, 1, 2, 4, 8, 15, 30, 60},
		}, []string{"outcome"}),
		usageEvents: prometheus.NewCounterVec(prometheus.CounterOpts{
			Namespace: "chappy",
			Subsystem: "usage",
			Name:      "events_total",
			Help:      "Widget usage events recorded by type",
		}, []string{"event_type", "status"}),
		rejectedTotal: prometheus.NewCounterVec(prometheus.CounterOpts{
			Namespace: "chappy",
			Subsystem: "chat",
			Name:      "rejected_total",
			Help:      "Chat requests rejected before reaching the model",
		}, []string{"reason"}),
	}
	if reg == nil {
		reg = prometheus.DefaultRegisterer
	}
	reg.MustRegister(m.turnsTotal, m.gateTotal, m.turnLatency, m.usageEvents, m.rejectedTotal)
	return m
}

func (m *ChatMetrics) ObserveTurn(intent, outcome string) {
	if m == nil {
		return
	}
	m.turnsTotal.WithLabelValues(intent, outcome).Inc()
}

func (m *ChatMetrics) ObserveGate(state string, allowed bool) {
	if m == nil {
		return
	}
	label := "false"
	if allowed {
		label = "true"
	}
	m.gateTotal.WithLabelValues(state, label).Inc()
}

func (m *ChatMetrics) ObserveLatency(outcome string, seconds float64) {
	if m == nil {
		return
	}
	m.turnLatency.WithLabelValues(outcome).Observe(seconds)
}

func (m *ChatMetrics) ObserveUsageEvent(eventType, status string) {
	if m == nil {
		return
	}
	m.usageEvents.WithLabelValues(eventType, status).Inc()
}

func (m *ChatMetrics) ObserveRejected(reason string) {
	if m == nil {
		return
	}
	m.rejectedTotal.WithLabelValues(reason).Inc()
}
