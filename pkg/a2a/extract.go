package a2a

import (
	"slices"
	"strings"

	"github.com/tidwall/gjson"
)

// AnswerArtifactName is the artifact name (or id) that carries the answer.
const AnswerArtifactName = "conversion_result"

// SystemMarker prefixes agent messages that belong to the thinking trace.
const SystemMarker = "[SYSTEM]"

// Accumulator is the running state of a fold over event records.
type Accumulator struct {
	Result   TaskResult
	fallback *string
}

// Fold applies one event to acc and returns the new accumulator; acc itself
// is left untouched. It never erases what earlier events established: the
// thinking trace and the answer only grow.
func Fold(acc Accumulator, ev EventRecord) Accumulator {
	data := gjson.ParseBytes(ev.Data)

	switch ev.Kind {
	case EventKindTask:
		if id := data.Get("id").String(); id != "" {
			acc.Result.TaskID = id
		}
		if s, ok := firstString(data, taskStatePaths); ok {
			acc.Result.State = TaskState(s)
		}
		if text := partsText(data.Get("message.parts")); text != "" {
			acc.fallback = &text
		}

	case EventKindStatusUpdate:
		if text := partsText(data.Get("status.message.parts")); text != "" {
			acc.Result.Thinking = appendThinking(acc.Result.Thinking, ThinkingItem{
				Timestamp: data.Get("status.timestamp").String(),
				Text:      text,
				Type:      ThinkingStatus,
			})
		}
		if s := data.Get("status.state").String(); s != "" {
			acc.Result.State = TaskState(s)
		}
		if data.Get("final").Bool() {
			acc.Result.Completed = true
		}

	case EventKindMessage:
		if data.Get("role").String() != RoleAgent {
			break
		}
		text := partsText(data.Get("parts"))
		if !strings.HasPrefix(text, SystemMarker) {
			break
		}
		acc.Result.Thinking = appendThinking(acc.Result.Thinking, ThinkingItem{
			Timestamp: data.Get("metadata.timestamp").String(),
			Text:      strings.TrimSpace(strings.TrimPrefix(text, SystemMarker)),
			Type:      ThinkingMessage,
		})

	case EventKindArtifactUpdate, EventKindArtifact:
		artifact := data
		if ev.Kind == EventKindArtifactUpdate {
			artifact = data.Get("artifact")
		}
		text := partsText(artifact.Get("parts"))
		if artifact.Get("name").String() == AnswerArtifactName || artifact.Get("artifactId").String() == AnswerArtifactName {
			answer := text
			if acc.Result.Answer != nil {
				answer = *acc.Result.Answer + text
			}
			acc.Result.Answer = &answer
			break
		}
		if text != "" {
			acc.Result.Thinking = appendThinking(acc.Result.Thinking, ThinkingItem{
				Text: text,
				Type: ThinkingArtifact,
			})
		}
	}

	return acc
}

// appendThinking never writes into spare capacity, so accumulators that
// share a prefix stay independent.
func appendThinking(items []ThinkingItem, item ThinkingItem) []ThinkingItem {
	return append(slices.Clip(items), item)
}

// Finish resolves the fallback answer: a task's direct message is used only
// when no answer artifact was seen.
func (acc Accumulator) Finish() TaskResult {
	r := acc.Result
	if r.Answer == nil && acc.fallback != nil {
		answer := *acc.fallback
		r.Answer = &answer
	}
	if r.Thinking == nil {
		r.Thinking = []ThinkingItem{}
	}
	return r
}

// Extract folds events in order and returns the derived result.
func Extract(events []EventRecord) TaskResult {
	var acc Accumulator
	for _, ev := range events {
		acc = Fold(acc, ev)
	}
	return acc.Finish()
}
