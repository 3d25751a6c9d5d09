package brain

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"time"
)

// Params are the generation knobs sent with a finished prompt.
type Params struct {
	MaxTokens   int      `json:"max_tokens"`
	Temperature float64  `json:"temperature"`
	Stop        []string `json:"stop,omitempty"`
}

// Adapter is the model-call collaborator. Prompt-reduction retry policy
// belongs to the pipeline; adapters only retry transport-level failures.
type Adapter interface {
	Complete(ctx context.Context, prompt string, params Params) (string, error)
}

// ErrUnavailable marks a backend failure the pipeline may retry once with a
// reduced prompt budget.
var ErrUnavailable = errors.New("model backend unavailable")

// Config controls adapter construction.
type Config struct {
	Mode    string
	HTTPURL string
	Timeout time.Duration
}

// NewAdapter builds the configured adapter. Auto mode prefers HTTP when a
// URL is set and falls back to the mock.
func NewAdapter(cfg Config) (Adapter, error) {
	mode := strings.ToLower(strings.TrimSpace(cfg.Mode))
	if mode == "" {
		mode = "auto"
	}

	switch mode {
	case "auto":
		if strings.TrimSpace(cfg.HTTPURL) != "" {
			return NewHTTPAdapter(cfg.HTTPURL, cfg.Timeout), nil
		}
		return NewMockAdapter(), nil
	case "http":
		if strings.TrimSpace(cfg.HTTPURL) == "" {
			return nil, errors.New("model HTTP url is required for http mode")
		}
		return NewHTTPAdapter(cfg.HTTPURL, cfg.Timeout), nil
	case "mock":
		return NewMockAdapter(), nil
	default:
		return nil, fmt.Errorf("unsupported model adapter mode %q", cfg.Mode)
	}
}
