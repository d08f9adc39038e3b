// Package task drives questions through a remote A2A agent: it submits
// work with either the streaming or the non-blocking strategy and polls
// non-blocking submissions until they reach a terminal state.
package task

import (
	"context"
	"errors"
	"log/slog"
	"strings"
	"sync"
	"time"

	"github.com/shhayash-work/copilot-qna/pkg/a2a"
	"github.com/shhayash-work/copilot-qna/pkg/telemetry"
	"go.opentelemetry.io/otel/attribute"
)

// ErrPollInFlight is returned when a poll for a task id is requested while
// another poll for the same id has not returned yet.
var ErrPollInFlight = errors.New("task: poll already in flight for this task")

type Orchestrator struct {
	client   *a2a.Client
	settings func() (Settings, error)
	observer Observer
	logger   *slog.Logger

	mu       sync.Mutex
	inFlight map[string]struct{}
}

type OrchestratorConfig struct {
	Client *a2a.Client
	// Settings is called once per submission. Defaults to CurrentSettings.
	Settings func() (Settings, error)
	Observer Observer
	Logger   *slog.Logger
}

func New(cfg OrchestratorConfig) *Orchestrator {
	if cfg.Logger == nil {
		cfg.Logger = slog.Default()
	}
	if cfg.Client == nil {
		cfg.Client = a2a.NewClient(a2a.ClientConfig{Logger: cfg.Logger})
	}
	if cfg.Settings == nil {
		cfg.Settings = CurrentSettings
	}
	if cfg.Observer == nil {
		cfg.Observer = LogObserver{Logger: cfg.Logger}
	}
	return &Orchestrator{
		client:   cfg.Client,
		settings: cfg.Settings,
		observer: cfg.Observer,
		logger:   cfg.Logger,
		inFlight: make(map[string]struct{}),
	}
}

// Validate fetches the agent card of the configured agent.
func (o *Orchestrator) Validate(ctx context.Context) (*a2a.AgentCard, error) {
	s, err := o.settings()
	if err != nil {
		return nil, err
	}
	return o.fetchCard(ctx, s.Endpoint)
}

// Submit sends prompt with the non-blocking strategy. The agent card is
// fetched fresh first and the returned session keeps a copy of the
// settings in effect at this moment.
func (o *Orchestrator) Submit(ctx context.Context, prompt string) (*Session, error) {
	s, msg, err := o.prepare(prompt)
	if err != nil {
		return nil, err
	}

	ctx, span := telemetry.StartSpan(ctx, "task.submit")
	card, err := o.fetchCard(ctx, s.Endpoint)
	if err != nil {
		telemetry.EndSpan(span, err)
		return nil, err
	}

	start := time.Now()
	taskID, err := o.client.Send(ctx, s.Endpoint, msg)
	o.observer.Observe(ctx, Event{Op: OpSubmit, TaskID: taskID, AgentName: card.Name, Latency: time.Since(start), Err: err})
	if err != nil {
		telemetry.EndSpan(span, err)
		return nil, err
	}
	span.SetAttributes(attribute.String("task.id", taskID), attribute.String("agent.name", card.Name))
	telemetry.EndSpan(span, nil)

	sess := NewSession(taskID, s)
	sess.AgentName = card.Name
	return sess, nil
}

// SendSync runs the streaming strategy: one call whose whole event stream
// is folded into the result.
func (o *Orchestrator) SendSync(ctx context.Context, prompt string) (a2a.TaskResult, error) {
	s, msg, err := o.prepare(prompt)
	if err != nil {
		return a2a.TaskResult{}, err
	}

	ctx, span := telemetry.StartSpan(ctx, "task.stream")
	card, err := o.fetchCard(ctx, s.Endpoint)
	if err != nil {
		telemetry.EndSpan(span, err)
		return a2a.TaskResult{}, err
	}

	start := time.Now()
	result, err := o.client.Stream(ctx, s.Endpoint, card, msg)
	o.observer.Observe(ctx, Event{
		Op:        OpStream,
		TaskID:    result.TaskID,
		AgentName: card.Name,
		State:     stateFromAgent(result.State),
		Latency:   time.Since(start),
		Err:       err,
	})
	telemetry.EndSpan(span, err)
	return result, err
}

// Ask submits prompt and waits for the task to finish.
func (o *Orchestrator) Ask(ctx context.Context, prompt string, progress func(PollResult)) (a2a.TaskResult, error) {
	sess, err := o.Submit(ctx, prompt)
	if err != nil {
		return a2a.TaskResult{}, err
	}
	return o.Wait(ctx, sess, progress)
}

// prepare rejects blank prompts before anything else happens, then takes
// the settings snapshot and builds the outgoing message.
func (o *Orchestrator) prepare(prompt string) (Settings, a2a.Message, error) {
	if strings.TrimSpace(prompt) == "" {
		return Settings{}, a2a.Message{}, &a2a.Error{Kind: a2a.KindEmptyInput, Detail: "prompt is blank"}
	}
	s, err := o.settings()
	if err != nil {
		return Settings{}, a2a.Message{}, err
	}
	text, err := RenderPrompt(s.PromptTemplate, prompt)
	if err != nil {
		return Settings{}, a2a.Message{}, err
	}
	return s, a2a.NewMessage(text), nil
}

func (o *Orchestrator) fetchCard(ctx context.Context, ep a2a.Endpoint) (*a2a.AgentCard, error) {
	start := time.Now()
	card, err := o.client.FetchAgentCard(ctx, ep.BaseURL, ep.Token)
	ev := Event{Op: OpAgentCard, Latency: time.Since(start), Err: err}
	if card != nil {
		ev.AgentName = card.Name
	}
	o.observer.Observe(ctx, ev)
	return card, err
}
