package brain

import (
	"context"
	"fmt"
	"strings"
)

// MockAdapter produces deterministic local replies when no inference
// backend is configured.
type MockAdapter struct{}

func NewMockAdapter() *MockAdapter { return &MockAdapter{} }

func (a *MockAdapter) Complete(ctx context.Context, prompt string, _ Params) (string, error) {
	select {
	case <-ctx.Done():
		return "", ctx.Err()
	default:
	}

	question := extractQuestion(prompt)
	if question == "" {
		return "I'm listening! What would you like to know?", nil
	}
	return fmt.Sprintf("Great question! I'm not sure about %q yet, but maybe you can ask a teacher or parent, and we can explore it together!", question), nil
}

// extractQuestion pulls the child's message back out of the assembled
// prompt so mock replies stay on topic.
func extractQuestion(prompt string) string {
	const marker = "CHILD'S MESSAGE:\n"
	idx := strings.Index(prompt, marker)
	if idx < 0 {
		return strings.TrimSpace(prompt)
	}
	rest := prompt[idx+len(marker):]
	if end := strings.Index(rest, "\n\n---"); end >= 0 {
		rest = rest[:end]
	}
	return strings.TrimSpace(rest)
}
