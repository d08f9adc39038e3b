package a2a

import (
	"strings"

	"github.com/google/uuid"
)

// NewMessage builds a user message with a single text part and a fresh
// message id. Ids are for correlation only and are never reused.
func NewMessage(text string) Message {
	return Message{
		MessageID: uuid.NewString(),
		Role:      RoleUser,
		Parts:     []Part{{Kind: "text", Text: text}},
		Kind:      EventKindMessage,
	}
}

// MessageText joins the text parts of msg.
func MessageText(msg Message) string {
	var parts []string
	for _, p := range msg.Parts {
		if p.Kind == "text" && p.Text != "" {
			parts = append(parts, p.Text)
		}
	}
	return strings.Join(parts, "\n")
}
