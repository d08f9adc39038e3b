package qna

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"strings"

	"github.com/shhayash-work/copilot-qna/pkg/a2a"
	"github.com/shhayash-work/copilot-qna/pkg/config"
	"github.com/shhayash-work/copilot-qna/pkg/task"
)

const (
	msgNoAnswer   = "The task completed but returned no answer."
	msgNotDone    = "No answer yet; the task is still running."
	msgEndedEarly = "The agent ended the task as %s without an answer."
)

type resultOutput struct {
	a2a.TaskResult
	Agent     string `json:"agent,omitempty"`
	Error     string `json:"error,omitempty"`
	ErrorKind string `json:"errorKind,omitempty"`
}

func newResultOutput(r a2a.TaskResult, agent string, err error) resultOutput {
	if r.Thinking == nil {
		r.Thinking = []a2a.ThinkingItem{}
	}
	out := resultOutput{TaskResult: r, Agent: agent}
	if err != nil {
		out.Error = describeError(err)
		out.ErrorKind = task.ErrorKind(err)
	}
	return out
}

func writeJSON(w io.Writer, v any) error {
	enc := json.NewEncoder(w)
	enc.SetIndent("", "  ")
	return enc.Encode(v)
}

// renderResult prints the answer, or a note explaining why there is none.
func renderResult(w io.Writer, r a2a.TaskResult, showThinking bool) {
	if showThinking {
		writeThinking(w, r.Thinking)
	}

	switch {
	case r.Answer != nil && strings.TrimSpace(*r.Answer) != "":
		fmt.Fprintln(w, strings.TrimRight(*r.Answer, "\n"))
	case r.Completed:
		fmt.Fprintln(w, msgNoAnswer)
	case r.State.Terminal():
		fmt.Fprintf(w, msgEndedEarly+"\n", r.State)
	default:
		fmt.Fprintln(w, msgNotDone)
	}
}

func writeThinking(w io.Writer, items []a2a.ThinkingItem) {
	for _, it := range items {
		if it.Timestamp != "" {
			fmt.Fprintf(w, "  · [%s] %s (%s)\n", it.Type, it.Text, it.Timestamp)
		} else {
			fmt.Fprintf(w, "  · [%s] %s\n", it.Type, it.Text)
		}
	}
}

// thinkingPrinter prints only the trace items it has not printed yet. Each
// poll returns the whole trace again. When emit is set it receives each new
// item instead of w.
type thinkingPrinter struct {
	w       io.Writer
	emit    func(a2a.ThinkingItem)
	printed int
}

func (p *thinkingPrinter) update(items []a2a.ThinkingItem) {
	if len(items) < p.printed {
		return
	}
	fresh := items[p.printed:]
	p.printed = len(items)
	if p.emit != nil {
		for _, it := range fresh {
			p.emit(it)
		}
		return
	}
	writeThinking(p.w, fresh)
}

// describeError turns an error into a message for the person at the
// terminal.
func describeError(err error) string {
	var ae *a2a.Error
	switch {
	case errors.Is(err, context.Canceled):
		return "Canceled."
	case errors.Is(err, task.ErrPollInFlight):
		return "Another poll for this task is still running."
	case !errors.As(err, &ae):
		return "Error: " + err.Error()
	}

	switch ae.Kind {
	case a2a.KindEmptyInput:
		return "Please enter a question."
	case a2a.KindConfigMissing:
		return fmt.Sprintf("The agent URL is not configured. Set %s or [agent].url in the config file.", config.EnvAgentURL)
	case a2a.KindAgentUnreachable:
		return "Could not reach the agent: " + causeOf(ae)
	case a2a.KindAgentCardRejected:
		return fmt.Sprintf("The agent rejected the discovery request (HTTP %d). Check the URL and token.", ae.StatusCode)
	case a2a.KindInvocationRejected:
		if ae.RPCCode != 0 {
			return fmt.Sprintf("The agent rejected the request (code %d): %s", ae.RPCCode, ae.Detail)
		}
		return fmt.Sprintf("The agent rejected the request (HTTP %d).", ae.StatusCode)
	case a2a.KindTaskIDMissing:
		return "The agent accepted the request but returned no task id."
	case a2a.KindPollFailed:
		return fmt.Sprintf("Checking on task %s failed at poll %d: %s", ae.TaskID, ae.Attempts, causeOf(ae))
	case a2a.KindTimedOut:
		return fmt.Sprintf("No answer after %d polls. The task may still finish; run `qna poll %s --wait` to keep waiting.",
			ae.Attempts, ae.TaskID)
	}
	return "Error: " + ae.Error()
}

func causeOf(ae *a2a.Error) string {
	if ae.Err == nil {
		return ae.Detail
	}
	var inner *a2a.Error
	if errors.As(ae.Err, &inner) && inner.Err != nil {
		return inner.Err.Error()
	}
	return ae.Err.Error()
}
