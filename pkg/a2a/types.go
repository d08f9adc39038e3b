package a2a

import "encoding/json"

type AgentCard struct {
	Name         string       `json:"name"`
	Description  string       `json:"description"`
	URL          string       `json:"url"`
	Version      string       `json:"version,omitempty"`
	Capabilities Capabilities `json:"capabilities"`
	Skills       []Skill      `json:"skills,omitempty"`
}

type Capabilities struct {
	Streaming         bool `json:"streaming"`
	PushNotifications bool `json:"pushNotifications"`
}

type Skill struct {
	ID          string `json:"id"`
	Name        string `json:"name"`
	Description string `json:"description"`
}

// TaskState is the state string reported by the agent. Values outside the
// terminal set are treated as still running.
type TaskState string

const (
	TaskStateSubmitted TaskState = "submitted"
	TaskStateWorking   TaskState = "working"
	TaskStateCompleted TaskState = "completed"
	TaskStateFailed    TaskState = "failed"
	TaskStateCanceled  TaskState = "canceled"
	TaskStateRejected  TaskState = "rejected"
)

func (s TaskState) Terminal() bool {
	switch s {
	case TaskStateCompleted, TaskStateFailed, TaskStateCanceled, TaskStateRejected:
		return true
	}
	return false
}

const (
	RoleUser  = "user"
	RoleAgent = "agent"
)

type Message struct {
	MessageID string `json:"messageId"`
	Role      string `json:"role"`
	Parts     []Part `json:"parts"`
	Kind      string `json:"kind"`
}

type Part struct {
	Kind string `json:"kind"`
	Text string `json:"text,omitempty"`
}

type Artifact struct {
	ArtifactID string `json:"artifactId,omitempty"`
	Name       string `json:"name,omitempty"`
	Parts      []Part `json:"parts"`
}

// Event kinds carried in stream payloads and task histories.
const (
	EventKindTask           = "task"
	EventKindStatusUpdate   = "status-update"
	EventKindArtifactUpdate = "artifact-update"
	EventKindMessage        = "message"
	EventKindArtifact       = "artifact"
	EventKindError          = "error"
)

// EventRecord is one normalized unit, either from a parsed stream or from a
// flattened task. Data is the kind-specific payload.
type EventRecord struct {
	Kind string          `json:"kind"`
	Data json.RawMessage `json:"data"`
}

const (
	ThinkingStatus   = "status"
	ThinkingMessage  = "message"
	ThinkingArtifact = "artifact"
)

type ThinkingItem struct {
	Timestamp string `json:"timestamp,omitempty"`
	Text      string `json:"text"`
	Type      string `json:"type"`
}

// TaskResult is what the extractor derives from an event sequence. Answer is
// nil until a recognised answer artifact (or the fallback message) is seen,
// independently of Completed.
type TaskResult struct {
	Answer    *string        `json:"answer"`
	Thinking  []ThinkingItem `json:"thinking"`
	TaskID    string         `json:"taskId,omitempty"`
	Completed bool           `json:"completed"`
	State     TaskState      `json:"state,omitempty"`
}

func (r TaskResult) AnswerText() string {
	if r.Answer == nil {
		return ""
	}
	return *r.Answer
}
