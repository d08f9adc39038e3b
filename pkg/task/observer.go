package task

import (
	"context"
	"errors"
	"log/slog"
	"time"

	"github.com/shhayash-work/copilot-qna/pkg/a2a"
	"github.com/shhayash-work/copilot-qna/pkg/telemetry"
)

type Op string

const (
	OpAgentCard    Op = "agent_card"
	OpSubmit       Op = "submit"
	OpStream       Op = "stream"
	OpPoll         Op = "poll"
	OpSessionStart Op = "session_start"
	OpSessionEnd   Op = "session_end"
)

// Event describes one step of the orchestrator. Attempt is the poll number
// for OpPoll and the total poll count for OpSessionEnd.
type Event struct {
	Op        Op
	TaskID    string
	AgentName string
	Attempt   int
	State     State
	Latency   time.Duration
	Err       error
}

// Outcome is "ok" for a successful step or the error kind otherwise.
func (e Event) Outcome() string {
	if e.Err == nil {
		return "ok"
	}
	return ErrorKind(e.Err)
}

// ErrorKind names err for labels: the a2a error kind when there is one.
func ErrorKind(err error) string {
	var ae *a2a.Error
	switch {
	case err == nil:
		return ""
	case errors.As(err, &ae):
		return string(ae.Kind)
	case errors.Is(err, context.Canceled), errors.Is(err, context.DeadlineExceeded):
		return "canceled"
	case errors.Is(err, ErrPollInFlight):
		return "poll_in_flight"
	}
	return "internal"
}

type Observer interface {
	Observe(ctx context.Context, ev Event)
}

type ObserverFunc func(ctx context.Context, ev Event)

func (f ObserverFunc) Observe(ctx context.Context, ev Event) { f(ctx, ev) }

type multiObserver []Observer

// MultiObserver fans each event out to every non-nil observer in order.
func MultiObserver(observers ...Observer) Observer {
	var m multiObserver
	for _, o := range observers {
		if o != nil {
			m = append(m, o)
		}
	}
	return m
}

func (m multiObserver) Observe(ctx context.Context, ev Event) {
	for _, o := range m {
		o.Observe(ctx, ev)
	}
}

type LogObserver struct {
	Logger *slog.Logger
}

func (o LogObserver) Observe(ctx context.Context, ev Event) {
	logger := o.Logger
	if logger == nil {
		logger = telemetry.FromContext(ctx)
	}

	attrs := []any{
		slog.String("op", string(ev.Op)),
		slog.String("outcome", ev.Outcome()),
	}
	if ev.TaskID != "" {
		attrs = append(attrs, slog.String("task_id", ev.TaskID))
	}
	if ev.AgentName != "" {
		attrs = append(attrs, slog.String("agent", ev.AgentName))
	}
	if ev.Attempt > 0 {
		attrs = append(attrs, slog.Int("attempt", ev.Attempt))
	}
	if ev.State != "" {
		attrs = append(attrs, slog.String("state", string(ev.State)))
	}
	if ev.Latency > 0 {
		attrs = append(attrs, slog.Duration("latency", ev.Latency))
	}

	switch {
	case ev.Err != nil:
		attrs = append(attrs, slog.String("err", ev.Err.Error()))
		logger.Warn("task: step failed", attrs...)
	case ev.Op == OpPoll:
		logger.Debug("task: polled", attrs...)
	default:
		logger.Info("task: "+string(ev.Op), attrs...)
	}
}

// MetricsObserver records events into telemetry.Metrics.
type MetricsObserver struct{}

func (MetricsObserver) Observe(_ context.Context, ev Event) {
	m := telemetry.Metrics

	if ev.Latency > 0 {
		m.CallDuration.WithLabelValues(string(ev.Op)).Observe(ev.Latency.Seconds())
	}
	if ev.Err != nil && ev.Op != OpSessionEnd {
		m.ErrorsTotal.WithLabelValues(ErrorKind(ev.Err)).Inc()
	}

	switch ev.Op {
	case OpAgentCard:
		m.AgentCardFetches.WithLabelValues(ev.Outcome()).Inc()
	case OpSubmit:
		m.Submissions.WithLabelValues("send", ev.Outcome()).Inc()
	case OpStream:
		m.Submissions.WithLabelValues("stream", ev.Outcome()).Inc()
	case OpPoll:
		m.Polls.WithLabelValues(string(ev.State)).Inc()
	case OpSessionStart:
		m.ActiveSessions.Inc()
	case OpSessionEnd:
		m.ActiveSessions.Dec()
		m.SessionOutcomes.WithLabelValues(string(ev.State)).Inc()
		m.SessionPolls.Observe(float64(ev.Attempt))
	}
}
