package a2a_test

import (
	"context"
	"encoding/json"
	"errors"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"

	"github.com/shhayash-work/copilot-qna/pkg/a2a"
	"github.com/shhayash-work/copilot-qna/pkg/a2a/agenttest"
	"github.com/shhayash-work/copilot-qna/pkg/telemetry"
)

func newTestClient() *a2a.Client {
	return a2a.NewClient(a2a.ClientConfig{Logger: telemetry.Discard()})
}

func startAgent(t *testing.T) (*agenttest.Agent, *httptest.Server) {
	t.Helper()
	agent := agenttest.New()
	srv := httptest.NewServer(agent)
	t.Cleanup(srv.Close)
	return agent, srv
}

func TestFetchAgentCard(t *testing.T) {
	agent, srv := startAgent(t)
	c := newTestClient()

	card, err := c.FetchAgentCard(context.Background(), srv.URL+"/", "")
	if err != nil {
		t.Fatalf("FetchAgentCard: %v", err)
	}
	if card.Name != "EchoAgent" {
		t.Errorf("Name = %q, want EchoAgent", card.Name)
	}
	if card.URL != srv.URL+"/" {
		t.Errorf("URL = %q, want %q", card.URL, srv.URL+"/")
	}
	if agent.CardFetches() != 1 {
		t.Errorf("CardFetches = %d, want 1", agent.CardFetches())
	}
}

func TestFetchAgentCardRejected(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		http.Error(w, "tunnel offline", http.StatusBadGateway)
	}))
	defer srv.Close()

	_, err := newTestClient().FetchAgentCard(context.Background(), srv.URL, "")
	if !errors.Is(err, a2a.ErrAgentCardRejected) {
		t.Fatalf("err = %v, want ErrAgentCardRejected", err)
	}
	var ae *a2a.Error
	errors.As(err, &ae)
	if ae.StatusCode != http.StatusBadGateway {
		t.Errorf("StatusCode = %d, want 502", ae.StatusCode)
	}
	if !strings.Contains(ae.Detail, "tunnel offline") {
		t.Errorf("Detail = %q, want body preview", ae.Detail)
	}
}

func TestFetchAgentCardUnreachable(t *testing.T) {
	srv := httptest.NewServer(http.NotFoundHandler())
	url := srv.URL
	srv.Close()

	_, err := newTestClient().FetchAgentCard(context.Background(), url, "")
	if !errors.Is(err, a2a.ErrAgentUnreachable) {
		t.Fatalf("err = %v, want ErrAgentUnreachable", err)
	}
}

func TestStreamJSONRPC(t *testing.T) {
	agent, srv := startAgent(t)
	c := newTestClient()
	ep := a2a.Endpoint{BaseURL: srv.URL, Transport: a2a.TransportJSONRPC}

	result, err := c.Stream(context.Background(), ep, nil, a2a.NewMessage("what is A2A?"))
	if err != nil {
		t.Fatalf("Stream: %v", err)
	}
	if result.AnswerText() != "echo: what is A2A?" {
		t.Errorf("Answer = %q", result.AnswerText())
	}
	if !result.Completed {
		t.Error("Completed = false, want true")
	}
	if len(result.Thinking) != 2 {
		t.Errorf("Thinking = %#v, want 2 items", result.Thinking)
	}

	reqs := agent.Requests()
	if len(reqs) != 1 || reqs[0].Method != a2a.MethodMessageStream || reqs[0].Path != "/" {
		t.Fatalf("requests = %+v", reqs)
	}
	if got := reqs[0].Header.Get("Accept"); got != "text/event-stream" {
		t.Errorf("Accept = %q", got)
	}
}

func TestStreamREST(t *testing.T) {
	agent, srv := startAgent(t)
	c := newTestClient()
	ep := a2a.Endpoint{BaseURL: srv.URL, Transport: a2a.TransportREST}

	card, err := c.FetchAgentCard(context.Background(), ep.BaseURL, "")
	if err != nil {
		t.Fatal(err)
	}
	result, err := c.Stream(context.Background(), ep, card, a2a.NewMessage("hi"))
	if err != nil {
		t.Fatalf("Stream: %v", err)
	}
	if result.AnswerText() != "echo: hi" {
		t.Errorf("Answer = %q", result.AnswerText())
	}

	reqs := agent.Requests()
	if len(reqs) != 1 || reqs[0].Path != "/"+a2a.RESTStreamPath {
		t.Fatalf("requests = %+v", reqs)
	}
	var body map[string]json.RawMessage
	if err := json.Unmarshal(reqs[0].Body, &body); err != nil {
		t.Fatal(err)
	}
	if _, ok := body["method"]; ok {
		t.Error("REST body carries a method field")
	}
	if _, ok := body["params"]; !ok {
		t.Error("REST body has no params")
	}
}

func TestStreamTolerantOfNoise(t *testing.T) {
	agent, srv := startAgent(t)
	agent.StreamBody = "event: ping\n\n" +
		"data: {broken\n\n" +
		"data: {\"result\":{\"kind\":\"artifact-update\",\"artifact\":{\"name\":\"conversion_result\",\"parts\":[{\"kind\":\"text\",\"text\":\"ok\"}]}}}\n\n" +
		"data: [DONE]"

	result, err := newTestClient().Stream(context.Background(), a2a.Endpoint{BaseURL: srv.URL}, nil, a2a.NewMessage("x"))
	if err != nil {
		t.Fatalf("Stream: %v", err)
	}
	if result.AnswerText() != "ok" {
		t.Errorf("Answer = %q, want ok", result.AnswerText())
	}
	if result.Completed {
		t.Error("Completed = true without a final status")
	}
}

func TestStreamRejected(t *testing.T) {
	tests := []struct {
		name     string
		body     string
		wantCode int
		wantMsg  string
	}{
		{
			name:     "plain json body",
			body:     `{"jsonrpc":"2.0","id":"1","error":{"code":-32601,"message":"method not found"}}`,
			wantCode: -32601,
			wantMsg:  "method not found",
		},
		{
			name: "error inside the stream",
			body: "data: {\"result\":{\"kind\":\"task\",\"id\":\"t1\",\"status\":{\"state\":\"submitted\"}}}\n\n" +
				"data: {\"jsonrpc\":\"2.0\",\"id\":\"1\",\"error\":{\"code\":-32603,\"message\":\"agent busy\"}}\n\n",
			wantCode: -32603,
			wantMsg:  "agent busy",
		},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			agent, srv := startAgent(t)
			agent.StreamBody = tt.body

			result, err := newTestClient().Stream(context.Background(), a2a.Endpoint{BaseURL: srv.URL}, nil, a2a.NewMessage("x"))
			if !errors.Is(err, a2a.ErrInvocationRejected) {
				t.Fatalf("err = %v, want ErrInvocationRejected", err)
			}
			var ae *a2a.Error
			if !errors.As(err, &ae) {
				t.Fatalf("err is %T, want *a2a.Error", err)
			}
			if ae.RPCCode != tt.wantCode || ae.Detail != tt.wantMsg {
				t.Errorf("RPCCode = %d, Detail = %q; want %d, %q", ae.RPCCode, ae.Detail, tt.wantCode, tt.wantMsg)
			}
			if result.Answer != nil || result.Completed {
				t.Errorf("result = %+v, want empty", result)
			}
		})
	}
}

func TestSendAndGetTask(t *testing.T) {
	agent, srv := startAgent(t)
	c := newTestClient()
	ep := a2a.Endpoint{BaseURL: srv.URL + "/", Token: "secret"}
	agent.Token = "secret"

	id, err := c.Send(context.Background(), ep, a2a.NewMessage("q"))
	if err != nil {
		t.Fatalf("Send: %v", err)
	}
	if id == "" {
		t.Fatal("empty task id")
	}

	reqs := agent.Requests()
	if got := reqs[0].Header.Get(a2a.AuthHeader); got != "tunnel secret" {
		t.Errorf("%s = %q", a2a.AuthHeader, got)
	}
	var sent a2a.JSONRPCRequest
	json.Unmarshal(reqs[0].Body, &sent)
	var params a2a.MessageSendParams
	json.Unmarshal(sent.Params, &params)
	if params.Configuration == nil || params.Configuration.Blocking {
		t.Errorf("configuration = %+v, want blocking=false", params.Configuration)
	}

	task, err := c.GetTask(context.Background(), ep, id)
	if err != nil {
		t.Fatalf("GetTask: %v", err)
	}
	if a2a.TaskStateOf(task) != a2a.TaskStateWorking {
		t.Errorf("state = %q, want working", a2a.TaskStateOf(task))
	}

	json.Unmarshal(agent.Requests()[1].Body, &sent)
	var query a2a.TaskQueryParams
	json.Unmarshal(sent.Params, &query)
	if query.ID != id || !query.IncludeHistory {
		t.Errorf("query = %+v", query)
	}
}

func TestSendRejectedWithoutToken(t *testing.T) {
	agent, srv := startAgent(t)
	agent.Token = "secret"

	_, err := newTestClient().Send(context.Background(), a2a.Endpoint{BaseURL: srv.URL}, a2a.NewMessage("q"))
	if !errors.Is(err, a2a.ErrInvocationRejected) {
		t.Fatalf("err = %v, want ErrInvocationRejected", err)
	}
	var ae *a2a.Error
	if errors.As(err, &ae); ae.StatusCode != http.StatusUnauthorized {
		t.Errorf("StatusCode = %d, want 401", ae.StatusCode)
	}
}

func TestSendResponseShapes(t *testing.T) {
	tests := []struct {
		name    string
		body    string
		wantID  string
		wantErr error
	}{
		{"nested task", `{"jsonrpc":"2.0","id":"1","result":{"task":{"id":"nested"}}}`, "nested", nil},
		{"no id", `{"jsonrpc":"2.0","id":"1","result":{"kind":"message"}}`, "", a2a.ErrTaskIDMissing},
		{"rpc error", `{"jsonrpc":"2.0","id":"1","error":{"code":-32603,"message":"agent busy"}}`, "", a2a.ErrInvocationRejected},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			agent, srv := startAgent(t)
			agent.SendResponse = json.RawMessage(tt.body)

			id, err := newTestClient().Send(context.Background(), a2a.Endpoint{BaseURL: srv.URL}, a2a.NewMessage("q"))
			if tt.wantErr != nil {
				if !errors.Is(err, tt.wantErr) {
					t.Fatalf("err = %v, want %v", err, tt.wantErr)
				}
				return
			}
			if err != nil {
				t.Fatalf("Send: %v", err)
			}
			if id != tt.wantID {
				t.Errorf("id = %q, want %q", id, tt.wantID)
			}
		})
	}
}

func TestGetTaskNotFound(t *testing.T) {
	_, srv := startAgent(t)

	_, err := newTestClient().GetTask(context.Background(), a2a.Endpoint{BaseURL: srv.URL}, "nope")
	var ae *a2a.Error
	if !errors.As(err, &ae) || ae.Kind != a2a.KindInvocationRejected {
		t.Fatalf("err = %v, want invocation rejected", err)
	}
	if ae.RPCCode != a2a.ErrCodeTaskNotFound || ae.TaskID != "nope" {
		t.Errorf("RPCCode = %d TaskID = %q", ae.RPCCode, ae.TaskID)
	}
}
