package a2a

import (
	"context"
	"encoding/json"
	"log/slog"
	"strings"

	"github.com/shhayash-work/copilot-qna/pkg/telemetry"
)

const doneSentinel = "[DONE]"

// StreamEvent is one Server-Sent Events record. Event is empty when the
// record carried no event: line.
type StreamEvent struct {
	Event string          `json:"event,omitempty"`
	Data  json.RawMessage `json:"data"`
}

// ParseEventStream splits a complete SSE body into records. Data payloads
// that are not JSON are dropped and logged; they never abort the parse.
// Records without data are discarded and the last record is flushed even
// without a trailing blank line.
func ParseEventStream(ctx context.Context, raw string) []StreamEvent {
	logger := telemetry.FromContext(ctx)

	var (
		events  []StreamEvent
		current StreamEvent
		hasData bool
	)

	flush := func() {
		if hasData {
			events = append(events, current)
		}
		current = StreamEvent{}
		hasData = false
	}

	for i, line := range strings.Split(raw, "\n") {
		line = strings.TrimSuffix(line, "\r")

		switch {
		case strings.TrimSpace(line) == "":
			flush()
		case strings.HasPrefix(line, "data:"):
			payload := strings.TrimSpace(strings.TrimPrefix(line, "data:"))
			if payload == doneSentinel {
				continue
			}
			if !json.Valid([]byte(payload)) {
				logger.Debug("a2a: dropping malformed sse data line",
					slog.Int("line", i+1),
					slog.Int("bytes", len(payload)),
				)
				continue
			}
			current.Data = json.RawMessage(payload)
			hasData = true
		case strings.HasPrefix(line, "event:"):
			current.Event = strings.TrimSpace(strings.TrimPrefix(line, "event:"))
		}
	}
	flush()

	return events
}

// EventsFromStream unwraps JSON-RPC envelopes and classifies each payload by
// its kind field. A JSON-RPC error payload becomes a record of kind "error".
func EventsFromStream(stream []StreamEvent) []EventRecord {
	records := make([]EventRecord, 0, len(stream))
	for _, ev := range stream {
		records = append(records, recordFromPayload(ev.Data))
	}
	return records
}
