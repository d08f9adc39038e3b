package gateway

import (
	"context"
	"io"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"
	"time"

	"github.com/shhayash-work/copilot-qna/pkg/a2a"
	"github.com/shhayash-work/copilot-qna/pkg/a2a/agenttest"
	"github.com/shhayash-work/copilot-qna/pkg/telemetry"
)

func TestHealthz(t *testing.T) {
	g := New(Config{Logger: telemetry.Discard()})

	rec := httptest.NewRecorder()
	g.Handler().ServeHTTP(rec, httptest.NewRequest(http.MethodGet, "/healthz", nil))

	if rec.Code != http.StatusOK {
		t.Fatalf("status = %d, want 200", rec.Code)
	}
	if !strings.Contains(rec.Body.String(), `"ok"`) {
		t.Errorf("body = %q", rec.Body.String())
	}
}

func TestMetricsExposed(t *testing.T) {
	telemetry.Metrics.Polls.WithLabelValues("running").Inc()
	g := New(Config{Logger: telemetry.Discard()})

	rec := httptest.NewRecorder()
	g.Handler().ServeHTTP(rec, httptest.NewRequest(http.MethodGet, "/metrics", nil))

	if rec.Code != http.StatusOK {
		t.Fatalf("status = %d, want 200", rec.Code)
	}
	if !strings.Contains(rec.Body.String(), "qna_polls_total") {
		t.Error("qna_polls_total not exported")
	}
}

func TestMountedAgent(t *testing.T) {
	g := New(Config{Logger: telemetry.Discard(), Handler: agenttest.New()})
	srv := httptest.NewServer(g.Handler())
	defer srv.Close()

	card, err := a2a.NewClient(a2a.ClientConfig{Logger: telemetry.Discard()}).
		FetchAgentCard(context.Background(), srv.URL, "")
	if err != nil {
		t.Fatalf("FetchAgentCard: %v", err)
	}
	if card.Name != "EchoAgent" {
		t.Errorf("Name = %q", card.Name)
	}

	resp, err := http.Get(srv.URL + "/healthz")
	if err != nil {
		t.Fatal(err)
	}
	body, _ := io.ReadAll(resp.Body)
	resp.Body.Close()
	if !strings.Contains(string(body), "ok") {
		t.Errorf("healthz shadowed by mounted handler: %q", body)
	}
}

func TestStartStopsOnCancel(t *testing.T) {
	g := New(Config{Addr: "127.0.0.1:0", Logger: telemetry.Discard()})
	ctx, cancel := context.WithCancel(context.Background())

	done := make(chan error, 1)
	go func() { done <- g.Start(ctx) }()

	time.Sleep(50 * time.Millisecond)
	cancel()

	select {
	case err := <-done:
		if err != nil {
			t.Errorf("Start: %v", err)
		}
	case <-time.After(5 * time.Second):
		t.Fatal("gateway did not shut down")
	}
}
