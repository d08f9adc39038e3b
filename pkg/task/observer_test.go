package task

import (
	"bytes"
	"context"
	"errors"
	"fmt"
	"log/slog"
	"strings"
	"testing"
	"time"

	"github.com/prometheus/client_golang/prometheus/testutil"
	"github.com/shhayash-work/copilot-qna/pkg/a2a"
	"github.com/shhayash-work/copilot-qna/pkg/config"
	"github.com/shhayash-work/copilot-qna/pkg/telemetry"
)

func TestErrorKind(t *testing.T) {
	tests := []struct {
		err  error
		want string
	}{
		{nil, ""},
		{&a2a.Error{Kind: a2a.KindTimedOut}, "timed_out"},
		{fmt.Errorf("wrapped: %w", &a2a.Error{Kind: a2a.KindPollFailed}), "poll_failed"},
		{context.Canceled, "canceled"},
		{ErrPollInFlight, "poll_in_flight"},
		{errors.New("other"), "internal"},
	}
	for _, tt := range tests {
		if got := ErrorKind(tt.err); got != tt.want {
			t.Errorf("ErrorKind(%v) = %q, want %q", tt.err, got, tt.want)
		}
	}
}

func TestLogObserver(t *testing.T) {
	var buf bytes.Buffer
	logger := slog.New(slog.NewTextHandler(&buf, &slog.HandlerOptions{Level: slog.LevelDebug}))
	o := LogObserver{Logger: logger}

	o.Observe(context.Background(), Event{Op: OpPoll, TaskID: "t1", Attempt: 3, State: StateRunning, Latency: time.Millisecond})
	o.Observe(context.Background(), Event{Op: OpSubmit, Err: &a2a.Error{Kind: a2a.KindTaskIDMissing}})

	out := buf.String()
	for _, want := range []string{"task_id=t1", "attempt=3", "state=running", "outcome=task_id_missing", "level=WARN"} {
		if !strings.Contains(out, want) {
			t.Errorf("log output missing %q:\n%s", want, out)
		}
	}
}

func TestMultiObserverSkipsNil(t *testing.T) {
	var a, b recorder
	m := MultiObserver(&a, nil, &b)
	m.Observe(context.Background(), Event{Op: OpSubmit})
	if len(a.ops()) != 1 || len(b.ops()) != 1 {
		t.Errorf("fan out = %d, %d", len(a.ops()), len(b.ops()))
	}
}

func TestMetricsObserver(t *testing.T) {
	m := telemetry.Metrics
	polls := testutil.ToFloat64(m.Polls.WithLabelValues("completed"))
	outcomes := testutil.ToFloat64(m.SessionOutcomes.WithLabelValues("timed-out"))
	errs := testutil.ToFloat64(m.ErrorsTotal.WithLabelValues("poll_failed"))
	active := testutil.ToFloat64(m.ActiveSessions)

	var o MetricsObserver
	ctx := context.Background()
	o.Observe(ctx, Event{Op: OpSessionStart})
	o.Observe(ctx, Event{Op: OpPoll, State: StateCompleted, Latency: time.Millisecond})
	o.Observe(ctx, Event{Op: OpPoll, State: StateError, Err: &a2a.Error{Kind: a2a.KindPollFailed}})
	o.Observe(ctx, Event{Op: OpSessionEnd, State: StateTimedOut, Attempt: 2, Err: &a2a.Error{Kind: a2a.KindTimedOut}})

	if got := testutil.ToFloat64(m.Polls.WithLabelValues("completed")) - polls; got != 1 {
		t.Errorf("completed polls delta = %v, want 1", got)
	}
	if got := testutil.ToFloat64(m.SessionOutcomes.WithLabelValues("timed-out")) - outcomes; got != 1 {
		t.Errorf("timed-out outcomes delta = %v, want 1", got)
	}
	if got := testutil.ToFloat64(m.ErrorsTotal.WithLabelValues("poll_failed")) - errs; got != 1 {
		t.Errorf("poll_failed errors delta = %v, want 1", got)
	}
	if got := testutil.ToFloat64(m.ActiveSessions); got != active {
		t.Errorf("active sessions = %v, want %v", got, active)
	}
}

func TestRenderPrompt(t *testing.T) {
	got, err := RenderPrompt(config.DefaultPromptTemplate, "Where is the runbook?")
	if err != nil {
		t.Fatalf("RenderPrompt: %v", err)
	}
	if !strings.Contains(got, "Where is the runbook?") || !strings.Contains(got, "[Answer guidelines]") {
		t.Errorf("rendered = %q", got)
	}

	if got, _ := RenderPrompt("", "raw"); got != "raw" {
		t.Errorf("empty template = %q, want raw", got)
	}
	if got, _ := RenderPrompt("<{{.Prompt}}>", "a & b"); got != "<a & b>" {
		t.Errorf("rendered = %q, want no escaping", got)
	}
	if _, err := RenderPrompt("{{.Prompt", "x"); err == nil {
		t.Error("expected parse error")
	}
}

func TestSettingsFromConfig(t *testing.T) {
	cfg := config.Default()
	cfg.Agent.URL = "https://agent.example"
	cfg.Agent.Token = "tok"
	cfg.Poll.Interval = "2s"
	cfg.Poll.MaxPolls = 7

	s, err := SettingsFromConfig(cfg)
	if err != nil {
		t.Fatalf("SettingsFromConfig: %v", err)
	}
	if s.PollInterval != 2*time.Second || s.MaxPolls != 7 {
		t.Errorf("settings = %+v", s)
	}
	if s.Endpoint.BaseURL != "https://agent.example" || s.Endpoint.Token != "tok" {
		t.Errorf("endpoint = %+v", s.Endpoint)
	}

	cfg.Agent.URL = "https://changed.example"
	if s.Endpoint.BaseURL != "https://agent.example" {
		t.Error("settings alias the config")
	}
}
