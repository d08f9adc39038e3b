package a2a

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"log/slog"
	"net/http"
	"strings"
	"time"

	"github.com/shhayash-work/copilot-qna/pkg/telemetry"
	"github.com/tidwall/gjson"
)

const (
	AgentCardPath  = "/.well-known/agent.json"
	RESTStreamPath = "a2a/v1/messages/streaming"

	AuthHeader = "X-Tunnel-Authorization"
	AuthScheme = "tunnel"
)

type Transport string

const (
	TransportJSONRPC Transport = "jsonrpc"
	TransportREST    Transport = "rest"
)

// Endpoint is the connection to one agent. Callers take a copy per request,
// so later configuration changes never reach a call already in flight.
type Endpoint struct {
	BaseURL   string
	Token     string
	Transport Transport
}

func (e Endpoint) rpcURL() string {
	return strings.TrimSuffix(e.BaseURL, "/") + "/"
}

type Client struct {
	httpClient *http.Client
	logger     *slog.Logger
}

type ClientConfig struct {
	HTTPClient *http.Client
	Logger     *slog.Logger
}

func NewClient(cfg ClientConfig) *Client {
	if cfg.HTTPClient == nil {
		cfg.HTTPClient = &http.Client{}
	}
	if cfg.Logger == nil {
		cfg.Logger = slog.Default()
	}
	return &Client{
		httpClient: cfg.HTTPClient,
		logger:     cfg.Logger,
	}
}

func (c *Client) FetchAgentCard(ctx context.Context, baseURL, token string) (*AgentCard, error) {
	url := strings.TrimSuffix(baseURL, "/") + AgentCardPath

	req, err := http.NewRequestWithContext(ctx, http.MethodGet, url, nil)
	if err != nil {
		return nil, &Error{Kind: KindAgentUnreachable, Detail: "creating request", Err: err}
	}
	setHeaders(req, token)

	body, err := c.roundTrip(req, KindAgentCardRejected)
	if err != nil {
		return nil, err
	}

	var card AgentCard
	if err := json.Unmarshal(body, &card); err != nil {
		return nil, &Error{Kind: KindAgentCardRejected, StatusCode: http.StatusOK, Detail: "decoding agent card", Err: err}
	}

	c.logger.Debug("a2a: fetched agent card",
		slog.String("name", card.Name),
		slog.String("url", card.URL),
		slog.Bool("streaming", card.Capabilities.Streaming),
	)
	return &card, nil
}

// Stream runs the synchronous strategy: one request whose complete SSE body
// is parsed and folded into a result.
func (c *Client) Stream(ctx context.Context, ep Endpoint, card *AgentCard, msg Message) (TaskResult, error) {
	var (
		url  string
		body any
	)
	params := MessageSendParams{Message: msg}

	switch ep.Transport {
	case TransportREST:
		base := ep.rpcURL()
		if card != nil && card.URL != "" {
			base = card.URL
			if !strings.HasSuffix(base, "/") {
				base += "/"
			}
		}
		url = base + RESTStreamPath
		req, err := NewRequest(MethodMessageStream, params)
		if err != nil {
			return TaskResult{}, err
		}
		body = restStreamRequest{ID: req.ID, Params: params}
	default:
		url = ep.rpcURL()
		req, err := NewRequest(MethodMessageStream, params)
		if err != nil {
			return TaskResult{}, err
		}
		body = req
	}

	raw, err := c.post(ctx, url, ep.Token, body, "text/event-stream")
	if err != nil {
		return TaskResult{}, err
	}

	// Agents that reject the call before streaming answer with a plain
	// JSON-RPC error body.
	if err := rpcError(raw); err != nil {
		return TaskResult{Thinking: []ThinkingItem{}}, err
	}

	stream := ParseEventStream(telemetry.WithLogger(ctx, c.logger), string(raw))
	records := EventsFromStream(stream)
	c.logger.Debug("a2a: stream received",
		slog.Int("bytes", len(raw)),
		slog.Int("events", len(records)),
	)
	if err := streamError(records); err != nil {
		return TaskResult{Thinking: []ThinkingItem{}}, err
	}
	return Extract(records), nil
}

// streamError reports the first JSON-RPC error carried inside the stream.
func streamError(records []EventRecord) error {
	for _, r := range records {
		if r.Kind != EventKindError {
			continue
		}
		e := gjson.ParseBytes(r.Data)
		return &Error{
			Kind:    KindInvocationRejected,
			RPCCode: int(e.Get("code").Int()),
			Detail:  e.Get("message").String(),
		}
	}
	return nil
}

// Send submits msg without blocking and returns the task id the agent
// assigned. A response without a task id is a contract violation and is
// reported as ErrTaskIDMissing, distinct from transport failures.
func (c *Client) Send(ctx context.Context, ep Endpoint, msg Message) (string, error) {
	req, err := NewRequest(MethodMessageSend, MessageSendParams{
		Message:       msg,
		Configuration: &MessageConfiguration{Blocking: false},
	})
	if err != nil {
		return "", err
	}

	raw, err := c.post(ctx, ep.rpcURL(), ep.Token, req, "application/json")
	if err != nil {
		return "", err
	}
	if err := rpcError(raw); err != nil {
		return "", err
	}

	id, ok := TaskIDFromSendResponse(raw)
	if !ok {
		return "", &Error{Kind: KindTaskIDMissing, Detail: "response has neither result.id nor result.task.id"}
	}
	return id, nil
}

// GetTask fetches a task with its full history and returns the raw task
// object from the JSON-RPC result.
func (c *Client) GetTask(ctx context.Context, ep Endpoint, taskID string) (json.RawMessage, error) {
	req, err := NewRequest(MethodTasksGet, TaskQueryParams{ID: taskID, IncludeHistory: true})
	if err != nil {
		return nil, err
	}

	raw, err := c.post(ctx, ep.rpcURL(), ep.Token, req, "application/json")
	if err != nil {
		return nil, err
	}

	var resp JSONRPCResponse
	if err := json.Unmarshal(raw, &resp); err != nil {
		return nil, &Error{Kind: KindInvocationRejected, StatusCode: http.StatusOK, TaskID: taskID, Detail: "decoding tasks/get response", Err: err}
	}
	if resp.Error != nil {
		return nil, &Error{Kind: KindInvocationRejected, RPCCode: resp.Error.Code, TaskID: taskID, Detail: resp.Error.Message}
	}
	return resp.Result, nil
}

func (c *Client) post(ctx context.Context, url, token string, body any, accept string) ([]byte, error) {
	data, err := json.Marshal(body)
	if err != nil {
		return nil, fmt.Errorf("a2a: marshaling request: %w", err)
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodPost, url, bytes.NewReader(data))
	if err != nil {
		return nil, &Error{Kind: KindAgentUnreachable, Detail: "creating request", Err: err}
	}
	setHeaders(req, token)
	req.Header.Set("Accept", accept)
	telemetry.InjectHTTP(ctx, req.Header)

	return c.roundTrip(req, KindInvocationRejected)
}

// roundTrip performs req and reads the whole body. Transport failures are
// ErrAgentUnreachable; non-2xx statuses are reported with rejectKind.
func (c *Client) roundTrip(req *http.Request, rejectKind ErrorKind) ([]byte, error) {
	logger := c.logger
	start := time.Now()

	resp, err := c.httpClient.Do(req)
	if err != nil {
		logger.Warn("a2a: request failed",
			slog.String("method", req.Method),
			slog.String("url", req.URL.String()),
			slog.String("err", err.Error()),
		)
		return nil, &Error{Kind: KindAgentUnreachable, Err: err}
	}
	defer resp.Body.Close()

	if resp.StatusCode < 200 || resp.StatusCode >= 300 {
		preview, _ := io.ReadAll(io.LimitReader(resp.Body, 1024))
		logger.Warn("a2a: agent returned non-success status",
			slog.String("url", req.URL.String()),
			slog.Int("status", resp.StatusCode),
		)
		return nil, &Error{Kind: rejectKind, StatusCode: resp.StatusCode, Detail: strings.TrimSpace(string(preview))}
	}

	body, err := io.ReadAll(resp.Body)
	if err != nil {
		return nil, &Error{Kind: KindAgentUnreachable, Detail: "reading response body", Err: err}
	}

	logger.Debug("a2a: response received",
		slog.String("url", req.URL.String()),
		slog.Int("status", resp.StatusCode),
		slog.Duration("latency", time.Since(start)),
	)
	return body, nil
}

// setHeaders is shared by every call so the authorization header is always
// named and formatted the same way.
func setHeaders(req *http.Request, token string) {
	req.Header.Set("Content-Type", "application/json")
	if token != "" {
		req.Header.Set(AuthHeader, AuthScheme+" "+token)
	}
}

func rpcError(raw []byte) error {
	var resp JSONRPCResponse
	if err := json.Unmarshal(raw, &resp); err != nil {
		return nil
	}
	if resp.Error != nil {
		return &Error{Kind: KindInvocationRejected, RPCCode: resp.Error.Code, Detail: resp.Error.Message}
	}
	return nil
}
