package a2a

import (
	"fmt"
	"strings"
)

type ErrorKind string

const (
	KindEmptyInput         ErrorKind = "empty_input"
	KindConfigMissing      ErrorKind = "config_missing"
	KindAgentUnreachable   ErrorKind = "agent_unreachable"
	KindAgentCardRejected  ErrorKind = "agent_card_rejected"
	KindInvocationRejected ErrorKind = "invocation_rejected"
	KindTaskIDMissing      ErrorKind = "task_id_missing"
	KindPollFailed         ErrorKind = "poll_failed"
	KindTimedOut           ErrorKind = "timed_out"
)

// Error is the tagged failure reported to callers of the client and the
// orchestrator. Only the fields relevant to Kind are set.
type Error struct {
	Kind       ErrorKind
	StatusCode int
	TaskID     string
	Attempts   int
	RPCCode    int
	Detail     string
	Err        error
}

var (
	ErrEmptyInput         = &Error{Kind: KindEmptyInput}
	ErrConfigMissing      = &Error{Kind: KindConfigMissing}
	ErrAgentUnreachable   = &Error{Kind: KindAgentUnreachable}
	ErrAgentCardRejected  = &Error{Kind: KindAgentCardRejected}
	ErrInvocationRejected = &Error{Kind: KindInvocationRejected}
	ErrTaskIDMissing      = &Error{Kind: KindTaskIDMissing}
	ErrPollFailed         = &Error{Kind: KindPollFailed}
	ErrTimedOut           = &Error{Kind: KindTimedOut}
)

func (e *Error) Error() string {
	var b strings.Builder
	b.WriteString("a2a: ")
	b.WriteString(strings.ReplaceAll(string(e.Kind), "_", " "))
	if e.StatusCode != 0 {
		fmt.Fprintf(&b, " (status %d)", e.StatusCode)
	}
	if e.RPCCode != 0 {
		fmt.Fprintf(&b, " (rpc code %d)", e.RPCCode)
	}
	if e.TaskID != "" {
		fmt.Fprintf(&b, " task=%s", e.TaskID)
	}
	if e.Attempts != 0 {
		fmt.Fprintf(&b, " attempts=%d", e.Attempts)
	}
	if e.Detail != "" {
		b.WriteString(": ")
		b.WriteString(e.Detail)
	}
	if e.Err != nil {
		b.WriteString(": ")
		b.WriteString(e.Err.Error())
	}
	return b.String()
}

func (e *Error) Unwrap() error {
	return e.Err
}

// Is matches any *Error of the same kind, so the package sentinels work with
// errors.Is regardless of the context carried.
func (e *Error) Is(target error) bool {
	t, ok := target.(*Error)
	if !ok {
		return false
	}
	return t.Kind == e.Kind
}
