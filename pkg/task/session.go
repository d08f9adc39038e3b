package task

import (
	"fmt"
	"time"

	"github.com/shhayash-work/copilot-qna/pkg/a2a"
	"github.com/shhayash-work/copilot-qna/pkg/config"
)

// Settings is everything a submission needs from configuration. It is a
// plain value so a session can keep its own copy.
type Settings struct {
	Endpoint       a2a.Endpoint
	PollInterval   time.Duration
	MaxPolls       int
	PromptTemplate string
}

// SettingsFromConfig validates cfg and extracts the submission settings.
func SettingsFromConfig(cfg *config.Config) (Settings, error) {
	if err := cfg.Validate(); err != nil {
		return Settings{}, err
	}
	interval, err := cfg.PollInterval()
	if err != nil {
		return Settings{}, err
	}
	return Settings{
		Endpoint:       cfg.Endpoint(),
		PollInterval:   interval,
		MaxPolls:       cfg.Poll.MaxPolls,
		PromptTemplate: cfg.Agent.PromptTemplate,
	}, nil
}

// CurrentSettings reads the process-wide config at call time, so every new
// submission sees the latest reload.
func CurrentSettings() (Settings, error) {
	return SettingsFromConfig(config.Current())
}

// Session tracks one non-blocking submission while it is polled. It belongs
// to the caller that created it and must not be shared between goroutines.
type Session struct {
	TaskID    string
	AgentName string
	PollCount int
	StartedAt time.Time
	State     State

	settings Settings
}

// NewSession resumes polling for a task submitted elsewhere.
func NewSession(taskID string, s Settings) *Session {
	return &Session{
		TaskID:    taskID,
		StartedAt: time.Now(),
		State:     StateStarted,
		settings:  s,
	}
}

func (s *Session) Settings() Settings {
	return s.settings
}

func (s *Session) String() string {
	return fmt.Sprintf("task %s (%s, %d polls)", s.TaskID, s.State, s.PollCount)
}

// PollResult is the outcome of one poll. Result is rebuilt from the full
// task history the agent returned, not merged with earlier polls.
type PollResult struct {
	State      State
	AgentState a2a.TaskState
	Result     a2a.TaskResult
	Attempt    int
}

func (r PollResult) Terminal() bool {
	return r.State.Terminal()
}
