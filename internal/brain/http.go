package brain

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"strings"
	"time"

	"github.com/antoniostano/mira/internal/reliability"
)

const (
	defaultHTTPTimeout = 30 * time.Second

	maxAttempts = 2
	backoffBase = 150 * time.Millisecond
	backoffCap  = 600 * time.Millisecond
)

// HTTPAdapter forwards prompts to an inference endpoint speaking a small
// JSON contract: {prompt, max_tokens, temperature, stop} in, {text} out.
// Transient upstream failures are retried once with backoff.
type HTTPAdapter struct {
	url    string
	client *http.Client
}

func NewHTTPAdapter(url string, timeout time.Duration) *HTTPAdapter {
	if timeout <= 0 {
		timeout = defaultHTTPTimeout
	}
	return &HTTPAdapter{
		url: strings.TrimSpace(url),
		client: &http.Client{
			Timeout: timeout,
		},
	}
}

type completionRequest struct {
	Prompt      string   `json:"prompt"`
	MaxTokens   int      `json:"max_tokens"`
	Temperature float64  `json:"temperature"`
	Stop        []string `json:"stop,omitempty"`
}

type completionResponse struct {
	Text string `json:"text"`
}

func (a *HTTPAdapter) Complete(ctx context.Context, prompt string, params Params) (string, error) {
	payload, err := json.Marshal(completionRequest{
		Prompt:      prompt,
		MaxTokens:   params.MaxTokens,
		Temperature: params.Temperature,
		Stop:        params.Stop,
	})
	if err != nil {
		return "", fmt.Errorf("marshal request: %w", err)
	}

	var lastErr error
	for attempt := 0; attempt < maxAttempts; attempt++ {
		if attempt > 0 {
			select {
			case <-ctx.Done():
				return "", fmt.Errorf("%w: %v", ErrUnavailable, ctx.Err())
			case <-time.After(reliability.ExponentialBackoff(attempt-1, backoffBase, backoffCap)):
			}
		}

		text, retryable, err := a.post(ctx, payload)
		if err == nil {
			return text, nil
		}
		lastErr = err
		if !retryable {
			return "", err
		}
	}
	return "", lastErr
}

func (a *HTTPAdapter) post(ctx context.Context, payload []byte) (string, bool, error) {
	httpReq, err := http.NewRequestWithContext(ctx, http.MethodPost, a.url, bytes.NewReader(payload))
	if err != nil {
		return "", false, fmt.Errorf("create request: %w", err)
	}
	httpReq.Header.Set("Content-Type", "application/json")

	res, err := a.client.Do(httpReq)
	if err != nil {
		return "", ctx.Err() == nil, fmt.Errorf("%w: %v", ErrUnavailable, err)
	}
	defer res.Body.Close()

	if res.StatusCode < 200 || res.StatusCode >= 300 {
		body, _ := io.ReadAll(io.LimitReader(res.Body, 4<<10))
		if reliability.IsRetryableHTTPStatus(res.StatusCode) {
			return "", true, fmt.Errorf("%w: status %d", ErrUnavailable, res.StatusCode)
		}
		return "", false, fmt.Errorf("model http status %d: %s", res.StatusCode, string(body))
	}

	body, err := io.ReadAll(res.Body)
	if err != nil {
		return "", false, fmt.Errorf("read response: %w", err)
	}

	var obj completionResponse
	if err := json.Unmarshal(body, &obj); err != nil {
		// Plain-text endpoints are accepted as-is.
		text := strings.TrimSpace(string(body))
		if text == "" {
			return "", false, fmt.Errorf("decode response: %w", err)
		}
		return text, false, nil
	}
	return strings.TrimSpace(obj.Text), false, nil
}
