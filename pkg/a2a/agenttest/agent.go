// Package agenttest provides an in-process A2A agent that speaks the
// discovery, JSON-RPC, REST streaming and polling surfaces the client uses.
// It echoes the prompt back as the answer artifact and can be scripted to
// stall, fail or return odd payload shapes.
package agenttest

import (
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"strings"
	"sync"
	"time"

	"github.com/go-chi/chi/v5"
	"github.com/google/uuid"
	"github.com/shhayash-work/copilot-qna/pkg/a2a"
)

type Agent struct {
	Card  a2a.AgentCard
	Token string

	// CompleteAfter is the poll number at which a task reaches FinalState.
	// Zero or less means the task never finishes.
	CompleteAfter int
	FinalState    a2a.TaskState

	// SendResponse, when set, is written verbatim for message/send.
	SendResponse json.RawMessage
	// StreamBody, when set, is written verbatim for streaming calls.
	StreamBody string

	mu          sync.Mutex
	router      chi.Router
	tasks       map[string]*task
	cardFetches int
	requests    []Request
}

type Request struct {
	Path   string
	Method string
	Header http.Header
	Body   json.RawMessage
}

type task struct {
	id     string
	prompt string
	polls  int
}

func New() *Agent {
	a := &Agent{
		Card: a2a.AgentCard{
			Name:         "EchoAgent",
			Description:  "Echoes the question back",
			Version:      "1.0.0",
			Capabilities: a2a.Capabilities{Streaming: true},
		},
		CompleteAfter: 2,
		FinalState:    a2a.TaskStateCompleted,
		tasks:         make(map[string]*task),
	}
	a.buildRouter()
	return a
}

func (a *Agent) ServeHTTP(w http.ResponseWriter, r *http.Request) {
	a.router.ServeHTTP(w, r)
}

func (a *Agent) buildRouter() {
	r := chi.NewRouter()
	r.Get(a2a.AgentCardPath, a.handleAgentCard)

	r.Group(func(r chi.Router) {
		r.Use(a.authMiddleware)
		r.Post("/", a.handleJSONRPC)
		r.Post("/"+a2a.RESTStreamPath, a.handleRESTStream)
	})
	a.router = r
}

func (a *Agent) authMiddleware(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if a.Token == "" {
			next.ServeHTTP(w, r)
			return
		}
		if r.Header.Get(a2a.AuthHeader) != a2a.AuthScheme+" "+a.Token {
			writeJSON(w, http.StatusUnauthorized, map[string]string{"error": "unauthorized"})
			return
		}
		next.ServeHTTP(w, r)
	})
}

func (a *Agent) CardFetches() int {
	a.mu.Lock()
	defer a.mu.Unlock()
	return a.cardFetches
}

// Polls returns how many tasks/get calls were served for taskID.
func (a *Agent) Polls(taskID string) int {
	a.mu.Lock()
	defer a.mu.Unlock()
	if t, ok := a.tasks[taskID]; ok {
		return t.polls
	}
	return 0
}

func (a *Agent) Requests() []Request {
	a.mu.Lock()
	defer a.mu.Unlock()
	return append([]Request(nil), a.requests...)
}

func (a *Agent) record(r *http.Request, method string, body []byte) {
	a.mu.Lock()
	defer a.mu.Unlock()
	a.requests = append(a.requests, Request{
		Path:   r.URL.Path,
		Method: method,
		Header: r.Header.Clone(),
		Body:   json.RawMessage(body),
	})
}

func (a *Agent) handleAgentCard(w http.ResponseWriter, r *http.Request) {
	a.mu.Lock()
	a.cardFetches++
	card := a.Card
	a.mu.Unlock()

	if card.URL == "" {
		card.URL = "http://" + r.Host + "/"
	}
	writeJSON(w, http.StatusOK, card)
}

func (a *Agent) handleJSONRPC(w http.ResponseWriter, r *http.Request) {
	body, err := io.ReadAll(r.Body)
	if err != nil {
		writeJSON(w, http.StatusBadRequest, map[string]string{"error": "failed to read body"})
		return
	}

	var req a2a.JSONRPCRequest
	if err := json.Unmarshal(body, &req); err != nil {
		writeJSON(w, http.StatusOK, a2a.NewJSONRPCError(nil, a2a.ErrCodeParse, "parse error"))
		return
	}
	a.record(r, req.Method, body)

	if req.JSONRPC != "2.0" {
		writeJSON(w, http.StatusOK, a2a.NewJSONRPCError(req.ID, a2a.ErrCodeInvalidReq, "invalid jsonrpc version"))
		return
	}

	switch req.Method {
	case a2a.MethodMessageStream:
		a.rpcStream(w, req.ID, req.Params)
	case a2a.MethodMessageSend:
		a.rpcSend(w, req)
	case a2a.MethodTasksGet:
		a.rpcGetTask(w, req)
	default:
		writeJSON(w, http.StatusOK, a2a.NewJSONRPCError(req.ID, a2a.ErrCodeNotFound, fmt.Sprintf("method %q not found", req.Method)))
	}
}

func (a *Agent) handleRESTStream(w http.ResponseWriter, r *http.Request) {
	body, err := io.ReadAll(r.Body)
	if err != nil {
		writeJSON(w, http.StatusBadRequest, map[string]string{"error": "failed to read body"})
		return
	}
	a.record(r, "", body)

	var req struct {
		ID     string          `json:"id"`
		Params json.RawMessage `json:"params"`
	}
	if err := json.Unmarshal(body, &req); err != nil {
		writeJSON(w, http.StatusBadRequest, map[string]string{"error": "invalid request body"})
		return
	}
	a.rpcStream(w, req.ID, req.Params)
}

func (a *Agent) rpcStream(w http.ResponseWriter, id string, raw json.RawMessage) {
	var params a2a.MessageSendParams
	if err := json.Unmarshal(raw, &params); err != nil {
		writeJSON(w, http.StatusOK, a2a.NewJSONRPCError(id, a2a.ErrCodeParse, "invalid params"))
		return
	}

	w.Header().Set("Content-Type", "text/event-stream")
	w.Header().Set("Cache-Control", "no-cache")
	flusher, canFlush := w.(http.Flusher)

	if a.StreamBody != "" {
		io.WriteString(w, a.StreamBody)
		return
	}

	taskID := uuid.NewString()
	text := a2a.MessageText(params.Message)
	now := time.Now().UTC().Format(time.RFC3339)

	events := []any{
		map[string]any{"kind": a2a.EventKindTask, "id": taskID, "status": map[string]any{"state": a2a.TaskStateSubmitted}},
		statusUpdate(taskID, a2a.TaskStateWorking, "Analyzing the question", now, false),
		map[string]any{"kind": a2a.EventKindMessage, "role": a2a.RoleAgent, "parts": textParts(a2a.SystemMarker + " Consulting sources")},
		artifactUpdate(taskID, "echo: "),
		artifactUpdate(taskID, text),
		statusUpdate(taskID, a2a.TaskStateCompleted, "", now, true),
	}
	for _, ev := range events {
		resp, err := a2a.NewJSONRPCResponse(id, ev)
		if err != nil {
			continue
		}
		writeSSE(w, flusher, canFlush, "", resp)
	}
	fmt.Fprint(w, "data: [DONE]\n\n")
}

func (a *Agent) rpcSend(w http.ResponseWriter, req a2a.JSONRPCRequest) {
	if len(a.SendResponse) > 0 {
		w.Header().Set("Content-Type", "application/json")
		w.Write(a.SendResponse)
		return
	}

	var params a2a.MessageSendParams
	if err := json.Unmarshal(req.Params, &params); err != nil {
		writeJSON(w, http.StatusOK, a2a.NewJSONRPCError(req.ID, a2a.ErrCodeParse, "invalid params"))
		return
	}

	t := &task{id: uuid.NewString(), prompt: a2a.MessageText(params.Message)}
	a.mu.Lock()
	a.tasks[t.id] = t
	a.mu.Unlock()

	resp, _ := a2a.NewJSONRPCResponse(req.ID, map[string]any{
		"kind":   a2a.EventKindTask,
		"id":     t.id,
		"status": map[string]any{"state": a2a.TaskStateSubmitted},
	})
	writeJSON(w, http.StatusOK, resp)
}

func (a *Agent) rpcGetTask(w http.ResponseWriter, req a2a.JSONRPCRequest) {
	var params a2a.TaskQueryParams
	if err := json.Unmarshal(req.Params, &params); err != nil {
		writeJSON(w, http.StatusOK, a2a.NewJSONRPCError(req.ID, a2a.ErrCodeParse, "invalid params"))
		return
	}

	a.mu.Lock()
	t, ok := a.tasks[params.ID]
	if ok {
		t.polls++
	}
	var snapshot map[string]any
	if ok {
		snapshot = a.snapshot(t)
	}
	a.mu.Unlock()

	if !ok {
		writeJSON(w, http.StatusOK, a2a.NewJSONRPCError(req.ID, a2a.ErrCodeTaskNotFound, fmt.Sprintf("task %q not found", params.ID)))
		return
	}
	resp, _ := a2a.NewJSONRPCResponse(req.ID, snapshot)
	writeJSON(w, http.StatusOK, resp)
}

// snapshot renders the cumulative task state as of t.polls. The history
// grows by one thinking message per poll.
func (a *Agent) snapshot(t *task) map[string]any {
	done := a.CompleteAfter > 0 && t.polls >= a.CompleteAfter

	history := []any{
		map[string]any{"kind": a2a.EventKindMessage, "role": a2a.RoleUser, "parts": textParts(t.prompt)},
	}
	steps := t.polls
	if done {
		steps = a.CompleteAfter
	}
	for i := 1; i <= steps; i++ {
		history = append(history, map[string]any{
			"kind":  a2a.EventKindMessage,
			"role":  a2a.RoleAgent,
			"parts": textParts(fmt.Sprintf("%s step %d", a2a.SystemMarker, i)),
		})
	}

	state := a2a.TaskStateWorking
	var artifacts []any
	if done {
		state = a.FinalState
		if state == a2a.TaskStateCompleted {
			artifacts = append(artifacts, map[string]any{
				"artifactId": uuid.NewString(),
				"name":       a2a.AnswerArtifactName,
				"parts":      textParts("echo: " + t.prompt),
			})
		}
	}

	return map[string]any{
		"kind":      a2a.EventKindTask,
		"id":        t.id,
		"status":    map[string]any{"state": state},
		"history":   history,
		"artifacts": artifacts,
	}
}

func textParts(text string) []a2a.Part {
	return []a2a.Part{{Kind: "text", Text: text}}
}

func statusUpdate(taskID string, state a2a.TaskState, text, ts string, final bool) map[string]any {
	status := map[string]any{"state": state, "timestamp": ts}
	if text != "" {
		status["message"] = map[string]any{"kind": a2a.EventKindMessage, "role": a2a.RoleAgent, "parts": textParts(text)}
	}
	return map[string]any{"kind": a2a.EventKindStatusUpdate, "taskId": taskID, "status": status, "final": final}
}

func artifactUpdate(taskID, text string) map[string]any {
	return map[string]any{
		"kind":   a2a.EventKindArtifactUpdate,
		"taskId": taskID,
		"artifact": map[string]any{
			"artifactId": a2a.AnswerArtifactName,
			"name":       a2a.AnswerArtifactName,
			"parts":      textParts(text),
		},
		"append": true,
	}
}

func writeJSON(w http.ResponseWriter, status int, v any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	_ = json.NewEncoder(w).Encode(v)
}

func writeSSE(w http.ResponseWriter, flusher http.Flusher, canFlush bool, event string, data any) {
	b, _ := json.Marshal(data)
	if event != "" {
		fmt.Fprintf(w, "event: %s\n", event)
	}
	fmt.Fprintf(w, "data: %s\n\n", strings.TrimSpace(string(b)))
	if canFlush {
		flusher.Flush()
	}
}
