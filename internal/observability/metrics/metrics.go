package metrics

import (
	"time"

	"github.com/prometheus/client_golang/prometheus"
)

// Turn outcomes.
const (
	OutcomeOK       = "ok"
	OutcomeRejected = "rejected"
	OutcomeBusy     = "busy"
	OutcomeError    = "error"
	OutcomeFallback = "fallback"
)

// ConversationMetrics exposes counters/histograms for the lead chat flow.
type ConversationMetrics struct {
	turnsTotal        *prometheus.CounterVec
	sessionsStarted   prometheus.Counter
	generationTotal   *prometheus.CounterVec
	generationLatency *prometheus.HistogramVec
	leadDeliveries    *prometheus.CounterVec
	webchatConns      prometheus.Gauge
}

func NewConversationMetrics(reg prometheus.Registerer) *ConversationMetrics {
	m := &ConversationMetrics{
		turnsTotal: prometheus.NewCounterVec(prometheus.CounterOpts{
			Namespace: "leadchat",
			Subsystem: "conversation",
			Name:      "turns_total",
			Help:      "User inputs handled, by phase at arrival and outcome",
		}, []string{"phase", "outcome"}),
		sessionsStarted: prometheus.NewCounter(prometheus.CounterOpts{
			Namespace: "leadchat",
			Subsystem: "conversation",
			Name:      "sessions_started_total",
			Help:      "Conversations opened",
		}),
		generationTotal: prometheus.NewCounterVec(prometheus.CounterOpts{
			Namespace: "leadchat",
			Subsystem: "generation",
			Name:      "calls_total",
			Help:      "Text generation calls by kind and outcome",
		}, []string{"kind", "outcome"}),
		generationLatency: prometheus.NewHistogramVec(prometheus.HistogramOpts{
			Namespace: "leadchat",
			Subsystem: "generation",
			Name:      "latency_seconds",
			Help:      "Latency of text generation calls",
			Buckets:   []float64{0.25, 0.5, 1, 2, 5, 10, 20, 45},
		}, []string{"kind"}),
		leadDeliveries: prometheus.NewCounterVec(prometheus.CounterOpts{
			Namespace: "leadchat",
			Subsystem: "leads",
			Name:      "deliveries_total",
			Help:      "Lead deliveries by status, sink and outcome",
		}, []string{"status", "sink", "outcome"}),
		webchatConns: prometheus.NewGauge(prometheus.GaugeOpts{
			Namespace: "leadchat",
			Subsystem: "webchat",
			Name:      "connections",
			Help:      "Open chat widget WebSocket connections",
		}),
	}
	if reg == nil {
		reg = prometheus.DefaultRegisterer
	}
	reg.MustRegister(m.turnsTotal, m.sessionsStarted, m.generationTotal, m.generationLatency, m.leadDeliveries, m.webchatConns)
	return m
}

func (m *ConversationMetrics) ObserveSessionStarted() {
	if m == nil {
		return
	}
	m.sessionsStarted.Inc()
}

func (m *ConversationMetrics) ObserveTurn(phase, outcome string) {
	if m == nil {
		return
	}
	m.turnsTotal.WithLabelValues(phase, outcome).Inc()
}

func (m *ConversationMetrics) ObserveGeneration(kind string, fallback bool, elapsed time.Duration) {
	if m == nil {
		return
	}
	outcome := OutcomeOK
	if fallback {
		outcome = OutcomeFallback
	}
	m.generationTotal.WithLabelValues(kind, outcome).Inc()
	m.generationLatency.WithLabelValues(kind).Observe(elapsed.Seconds())
}

func (m *ConversationMetrics) ObserveLeadDelivery(status, sink string, err error) {
	if m == nil {
		return
	}
	outcome := OutcomeOK
	if err != nil {
		outcome = OutcomeError
	}
	m.leadDeliveries.WithLabelValues(status, sink, outcome).Inc()
}

// ObserveWebchatConnection adds delta (+1 on open, -1 on close) to the open
// connection gauge.
func (m *ConversationMetrics) ObserveWebchatConnection(delta int) {
	if m == nil {
		return
	}
	m.webchatConns.Add(float64(delta))
}
