package config

import (
	"testing"
	"time"
)

func TestLoadDefaults(t *testing.T) {
	setCoreEnvEmpty(t)
	t.Setenv("APP_BIND_ADDR", ":9090")

	cfg, err := Load()
	if err != nil {
		t.Fatalf("Load() error = %v", err)
	}

	if cfg.BindAddr != ":9090" {
		t.Fatalf("BindAddr = %q, want %q", cfg.BindAddr, ":9090")
	}
	if cfg.ModelAdapterMode != "auto" {
		t.Fatalf("ModelAdapterMode = %q, want %q", cfg.ModelAdapterMode, "auto")
	}
	if cfg.ModelHTTPURL != "" {
		t.Fatalf("ModelHTTPURL = %q, want empty default", cfg.ModelHTTPURL)
	}
	if cfg.RetrievalTopK != 3 {
		t.Fatalf("RetrievalTopK = %d, want 3", cfg.RetrievalTopK)
	}
	if cfg.ConfidenceThreshold != 0.5 {
		t.Fatalf("ConfidenceThreshold = %v, want 0.5", cfg.ConfidenceThreshold)
	}
}

func TestLoadUsesExplicitModelHTTPURL(t *testing.T) {
	setCoreEnvEmpty(t)
	t.Setenv("MODEL_HTTP_URL", "http://localhost:7777/complete")
	t.Setenv("MODEL_TIMEOUT", "3s")

	cfg, err := Load()
	if err != nil {
		t.Fatalf("Load() error = %v", err)
	}
	if cfg.ModelHTTPURL != "http://localhost:7777/complete" {
		t.Fatalf("ModelHTTPURL = %q, want explicit value", cfg.ModelHTTPURL)
	}
	if cfg.ModelTimeout != 3*time.Second {
		t.Fatalf("ModelTimeout = %v, want 3s", cfg.ModelTimeout)
	}
}

func TestLoadRejectsInvalidValues(t *testing.T) {
	setCoreEnvEmpty(t)
	t.Setenv("RETRIEVAL_MIN_SCORE", "1.5")

	if _, err := Load(); err == nil {
		t.Fatalf("Load() should reject RETRIEVAL_MIN_SCORE outside [0, 1]")
	}
}

func setCoreEnvEmpty(t *testing.T) {
	t.Helper()
	keys := []string{
		"APP_BIND_ADDR",
		"APP_SHUTDOWN_TIMEOUT",
		"APP_SESSION_INACTIVITY_TIMEOUT",
		"APP_METRICS_NAMESPACE",
		"APP_ALLOW_ANY_ORIGIN",
		"MODEL_ADAPTER_MODE",
		"MODEL_HTTP_URL",
		"MODEL_TIMEOUT",
		"MODEL_MAX_TOKENS",
		"MODEL_TEMPERATURE",
		"KNOWLEDGE_PATH",
		"RETRIEVAL_TIMEOUT",
		"RETRIEVAL_TOP_K",
		"RETRIEVAL_MIN_SCORE",
		"RETRIEVAL_SNIPPET_BUDGET",
		"PROMPT_MAX_CHARS",
		"EMOTION_CONFIDENCE_THRESHOLD",
		"MEMORY_SHORT_TERM_CAPACITY",
		"DATABASE_URL",
	}
	for _, key := range keys {
		t.Setenv(key, "")
	}
}
