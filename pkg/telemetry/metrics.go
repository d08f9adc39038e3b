package telemetry

import (
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
)

var Metrics = struct {
	AgentCardFetches *prometheus.CounterVec
	Submissions      *prometheus.CounterVec
	Polls            *prometheus.CounterVec
	CallDuration     *prometheus.HistogramVec
	SessionOutcomes  *prometheus.CounterVec
	SessionPolls     prometheus.Histogram
	ActiveSessions   prometheus.Gauge
	ErrorsTotal      *prometheus.CounterVec
}{
	AgentCardFetches: promauto.NewCounterVec(prometheus.CounterOpts{
		Namespace: "qna",
		Name:      "agent_card_fetches_total",
		Help:      "Agent card fetches by outcome.",
	}, []string{"outcome"}),

	Submissions: promauto.NewCounterVec(prometheus.CounterOpts{
		Namespace: "qna",
		Name:      "submissions_total",
		Help:      "Task submissions by strategy (stream/send) and outcome.",
	}, []string{"strategy", "outcome"}),

	Polls: promauto.NewCounterVec(prometheus.CounterOpts{
		Namespace: "qna",
		Name:      "polls_total",
		Help:      "tasks/get polls by observed state.",
	}, []string{"state"}),

	CallDuration: promauto.NewHistogramVec(prometheus.HistogramOpts{
		Namespace: "qna",
		Name:      "agent_call_duration_seconds",
		Help:      "Round trip duration of agent calls in seconds.",
		Buckets:   []float64{0.05, 0.1, 0.25, 0.5, 1, 2, 5, 10, 30, 60, 120},
	}, []string{"op"}),

	SessionOutcomes: promauto.NewCounterVec(prometheus.CounterOpts{
		Namespace: "qna",
		Name:      "session_outcomes_total",
		Help:      "Finished poll sessions by final state.",
	}, []string{"state"}),

	SessionPolls: promauto.NewHistogram(prometheus.HistogramOpts{
		Namespace: "qna",
		Name:      "session_polls",
		Help:      "Number of polls a session needed before it finished.",
		Buckets:   []float64{1, 2, 5, 10, 20, 40, 80, 160, 240},
	}),

	ActiveSessions: promauto.NewGauge(prometheus.GaugeOpts{
		Namespace: "qna",
		Name:      "active_sessions",
		Help:      "Number of poll sessions currently running.",
	}),

	ErrorsTotal: promauto.NewCounterVec(prometheus.CounterOpts{
		Namespace: "qna",
		Name:      "errors_total",
		Help:      "Errors by kind.",
	}, []string{"kind"}),
}
