package task

import (
	"context"
	"time"

	"github.com/shhayash-work/copilot-qna/pkg/a2a"
	"github.com/shhayash-work/copilot-qna/pkg/telemetry"
	"go.opentelemetry.io/otel/attribute"
)

// Poll issues one tasks/get for the session and rebuilds its result from the
// returned history. A transport or protocol failure puts the session in
// StateError and is reported as a2a.ErrPollFailed; it is never retried here.
func (o *Orchestrator) Poll(ctx context.Context, sess *Session) (PollResult, error) {
	if !o.acquire(sess.TaskID) {
		return PollResult{State: sess.State, Attempt: sess.PollCount}, ErrPollInFlight
	}
	defer o.release(sess.TaskID)

	sess.PollCount++
	attempt := sess.PollCount

	ctx, span := telemetry.StartSpan(ctx, "task.poll",
		attribute.String("task.id", sess.TaskID),
		attribute.Int("task.attempt", attempt),
	)

	start := time.Now()
	raw, err := o.client.GetTask(ctx, sess.settings.Endpoint, sess.TaskID)
	latency := time.Since(start)

	if err != nil {
		sess.State = StateError
		err = &a2a.Error{Kind: a2a.KindPollFailed, TaskID: sess.TaskID, Attempts: attempt, Err: err}
		o.observer.Observe(ctx, Event{Op: OpPoll, TaskID: sess.TaskID, Attempt: attempt, State: StateError, Latency: latency, Err: err})
		telemetry.EndSpan(span, err)
		return PollResult{State: StateError, Attempt: attempt}, err
	}

	agentState := a2a.TaskStateOf(raw)
	result := a2a.Extract(a2a.FlattenTask(raw))
	if result.TaskID == "" {
		result.TaskID = sess.TaskID
	}
	result.State = agentState
	if agentState == a2a.TaskStateCompleted {
		result.Completed = true
	}

	sess.State = stateFromAgent(agentState)
	o.observer.Observe(ctx, Event{Op: OpPoll, TaskID: sess.TaskID, Attempt: attempt, State: sess.State, Latency: latency})
	span.SetAttributes(attribute.String("task.state", string(sess.State)))
	telemetry.EndSpan(span, nil)

	return PollResult{
		State:      sess.State,
		AgentState: agentState,
		Result:     result,
		Attempt:    attempt,
	}, nil
}

// PollTask polls a task by id once, using the current settings.
func (o *Orchestrator) PollTask(ctx context.Context, taskID string) (PollResult, error) {
	s, err := o.settings()
	if err != nil {
		return PollResult{}, err
	}
	return o.Poll(ctx, NewSession(taskID, s))
}

// Wait polls sess until the agent reports a terminal state, the poll budget
// runs out or ctx is done. The interval elapses before every poll, the first
// one included. progress, if set, sees every successful poll.
//
// Exhausting the budget returns the last result with a2a.ErrTimedOut. On
// cancellation the session becomes StateAbandoned, the last result is
// returned with ctx.Err() and the agent is not contacted again.
func (o *Orchestrator) Wait(ctx context.Context, sess *Session, progress func(PollResult)) (a2a.TaskResult, error) {
	s := sess.settings
	o.observer.Observe(ctx, Event{Op: OpSessionStart, TaskID: sess.TaskID, AgentName: sess.AgentName, State: sess.State})

	last := a2a.TaskResult{TaskID: sess.TaskID, Thinking: []a2a.ThinkingItem{}}
	finish := func(err error) (a2a.TaskResult, error) {
		o.observer.Observe(ctx, Event{
			Op:        OpSessionEnd,
			TaskID:    sess.TaskID,
			AgentName: sess.AgentName,
			Attempt:   sess.PollCount,
			State:     sess.State,
			Latency:   time.Since(sess.StartedAt),
			Err:       err,
		})
		return last, err
	}

	timer := time.NewTimer(s.PollInterval)
	defer timer.Stop()

	for sess.PollCount < s.MaxPolls {
		select {
		case <-ctx.Done():
			sess.State = StateAbandoned
			return finish(ctx.Err())
		case <-timer.C:
		}

		res, err := o.Poll(ctx, sess)
		if err != nil {
			if ctx.Err() != nil {
				sess.State = StateAbandoned
				return finish(ctx.Err())
			}
			return finish(err)
		}
		last = res.Result
		if progress != nil {
			progress(res)
		}
		if res.Terminal() {
			return finish(nil)
		}
		timer.Reset(s.PollInterval)
	}

	sess.State = StateTimedOut
	return finish(&a2a.Error{
		Kind:     a2a.KindTimedOut,
		TaskID:   sess.TaskID,
		Attempts: sess.PollCount,
		Detail:   "no terminal state within " + (time.Duration(s.MaxPolls) * s.PollInterval).String(),
	})
}

func (o *Orchestrator) acquire(taskID string) bool {
	o.mu.Lock()
	defer o.mu.Unlock()
	if _, busy := o.inFlight[taskID]; busy {
		return false
	}
	o.inFlight[taskID] = struct{}{}
	return true
}

func (o *Orchestrator) release(taskID string) {
	o.mu.Lock()
	delete(o.inFlight, taskID)
	o.mu.Unlock()
}
