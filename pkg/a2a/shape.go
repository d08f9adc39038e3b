package a2a

import (
	"encoding/json"
	"strings"

	"github.com/tidwall/gjson"
)

// Agents disagree on where fields live. Each list is tried in order and the
// first non-empty value wins.
var (
	sendTaskIDPaths = []string{"result.id", "result.task.id"}
	taskStatePaths  = []string{"status.state", "state"}
)

func firstString(r gjson.Result, paths []string) (string, bool) {
	for _, p := range paths {
		if v := r.Get(p); v.Exists() && v.String() != "" {
			return v.String(), true
		}
	}
	return "", false
}

// TaskIDFromSendResponse returns the task id of a non-blocking message/send
// response body.
func TaskIDFromSendResponse(body []byte) (string, bool) {
	return firstString(gjson.ParseBytes(body), sendTaskIDPaths)
}

// TaskStateOf reads the state of a task object.
func TaskStateOf(task []byte) TaskState {
	s, _ := firstString(gjson.ParseBytes(task), taskStatePaths)
	return TaskState(s)
}

// FlattenTask turns a task object into the event sequence the extractor
// folds: the task itself, then its history in order, then its artifacts.
func FlattenTask(task []byte) []EventRecord {
	root := gjson.ParseBytes(task)
	records := []EventRecord{{Kind: EventKindTask, Data: json.RawMessage(root.Raw)}}

	root.Get("history").ForEach(func(_, item gjson.Result) bool {
		kind := item.Get("kind").String()
		if kind == "" {
			kind = EventKindMessage
		}
		records = append(records, EventRecord{Kind: kind, Data: json.RawMessage(item.Raw)})
		return true
	})

	root.Get("artifacts").ForEach(func(_, item gjson.Result) bool {
		records = append(records, EventRecord{Kind: EventKindArtifact, Data: json.RawMessage(item.Raw)})
		return true
	})

	return records
}

func recordFromPayload(data json.RawMessage) EventRecord {
	root := gjson.ParseBytes(data)
	if e := root.Get("error"); e.Get("code").Exists() {
		return EventRecord{Kind: EventKindError, Data: json.RawMessage(e.Raw)}
	}

	body := root
	if r := root.Get("result"); r.IsObject() {
		body = r
	}

	kind := body.Get("kind").String()
	if kind == "" {
		kind = inferKind(body)
	}
	return EventRecord{Kind: kind, Data: json.RawMessage(body.Raw)}
}

// inferKind covers agents that predate the kind discriminator.
func inferKind(body gjson.Result) string {
	switch {
	case body.Get("artifact").Exists():
		return EventKindArtifactUpdate
	case body.Get("status").Exists() && body.Get("final").Exists():
		return EventKindStatusUpdate
	case body.Get("status").Exists() && body.Get("id").Exists():
		return EventKindTask
	case body.Get("role").Exists() && body.Get("parts").Exists():
		return EventKindMessage
	}
	return ""
}

// partsText concatenates the text parts of a parts array in order. Parts
// with neither kind nor type are assumed to be text.
func partsText(parts gjson.Result) string {
	var b strings.Builder
	parts.ForEach(func(_, p gjson.Result) bool {
		kind := p.Get("kind").String()
		if kind == "" {
			kind = p.Get("type").String()
		}
		if kind == "" || kind == "text" {
			b.WriteString(p.Get("text").String())
		}
		return true
	})
	return b.String()
}
