package task

import (
	"fmt"
	"strings"
	"text/template"
)

// RenderPrompt places prompt into tmpl at {{.Prompt}}. An empty template
// sends the prompt unchanged.
func RenderPrompt(tmpl, prompt string) (string, error) {
	if strings.TrimSpace(tmpl) == "" {
		return prompt, nil
	}

	t, err := template.New("prompt").Option("missingkey=error").Parse(tmpl)
	if err != nil {
		return "", fmt.Errorf("task: parsing prompt template: %w", err)
	}

	var b strings.Builder
	if err := t.Execute(&b, struct{ Prompt string }{prompt}); err != nil {
		return "", fmt.Errorf("task: rendering prompt template: %w", err)
	}
	return b.String(), nil
}
