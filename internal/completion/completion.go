// Package completion wraps an OpenAI-compatible chat completions API.
package completion

import (
	"context"
	"strings"
)

// Message is one chat turn sent to the model.
type Message struct {
	Role    string `json:"role"` // system | user | assistant
	Content string `json:"content"`
}

// Completer generates model output. Implementations return an empty
// string (not an error) when the model produced nothing usable, so
// callers can treat "" as "stay silent".
type Completer interface {
	Complete(ctx context.Context, model string, messages []Message) (string, error)
	CompleteJSON(ctx context.Context, model string, messages []Message, out any) error
}

// ImageGenerator produces an image from a prompt.
type ImageGenerator interface {
	GenerateImage(ctx context.Context, prompt string) ([]byte, error)
}

// stripFences removes a Markdown code fence wrapper if the model added
// one around JSON output.
func stripFences(s string) string {
	s = strings.TrimSpace(s)
	if !strings.HasPrefix(s, "```") {
		return s
	}
	s = strings.TrimPrefix(s, "```json")
	s = strings.TrimPrefix(s, "```")
	s = strings.TrimSuffix(strings.TrimSpace(s), "```")
	return strings.TrimSpace(s)
}
