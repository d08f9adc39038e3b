package task

import "github.com/shhayash-work/copilot-qna/pkg/a2a"

// State is the client-side view of a poll session. It follows the agent's
// task state, collapsing non-terminal values into StateRunning, and adds the
// client-only StateTimedOut, StateError and StateAbandoned. A session is
// abandoned when the caller stops waiting; the agent's task keeps running.
type State string

const (
	StateStarted   State = "started"
	StateRunning   State = "running"
	StateCompleted State = "completed"
	StateFailed    State = "failed"
	StateCanceled  State = "canceled"
	StateRejected  State = "rejected"
	StateTimedOut  State = "timed-out"
	StateError     State = "error"
	StateAbandoned State = "abandoned"
)

func (s State) Terminal() bool {
	return s != StateStarted && s != StateRunning
}

func stateFromAgent(s a2a.TaskState) State {
	switch s {
	case a2a.TaskStateCompleted:
		return StateCompleted
	case a2a.TaskStateFailed:
		return StateFailed
	case a2a.TaskStateCanceled:
		return StateCanceled
	case a2a.TaskStateRejected:
		return StateRejected
	}
	return StateRunning
}
