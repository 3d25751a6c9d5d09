package config

import (
	"fmt"
	"os"
	"strconv"
	"strings"
	"time"
)

// Config contains all runtime settings for the companion chat service.
type Config struct {
	BindAddr                 string
	ShutdownTimeout          time.Duration
	SessionInactivityTimeout time.Duration
	MetricsNamespace         string

	AllowAnyOrigin bool

	ModelAdapterMode string
	ModelHTTPURL     string
	ModelTimeout     time.Duration
	ModelMaxTokens   int
	ModelTemperature float64

	KnowledgePath     string
	RetrievalTimeout  time.Duration
	RetrievalTopK     int
	RetrievalMinScore float64
	SnippetBudget     int

	MaxPromptChars      int
	ConfidenceThreshold float64

	DatabaseURL       string
	ShortTermCapacity int
}

// Load reads environment variables and applies safe defaults.
func Load() (Config, error) {
	cfg := Config{
		BindAddr:                 envOrDefault("APP_BIND_ADDR", ":8080"),
		MetricsNamespace:         envOrDefault("APP_METRICS_NAMESPACE", "mira"),
		AllowAnyOrigin:           false,
		ModelAdapterMode:         envOrDefault("MODEL_ADAPTER_MODE", "auto"),
		ModelHTTPURL:             stringsTrimSpace("MODEL_HTTP_URL"),
		KnowledgePath:            stringsTrimSpace("KNOWLEDGE_PATH"),
		DatabaseURL:              stringsTrimSpace("DATABASE_URL"),
		ShutdownTimeout:          15 * time.Second,
		SessionInactivityTimeout: 10 * time.Minute,
		ModelTimeout:             8 * time.Second,
		ModelMaxTokens:           200,
		ModelTemperature:         0.7,
		RetrievalTimeout:         500 * time.Millisecond,
		RetrievalTopK:            3,
		RetrievalMinScore:        0.2,
		SnippetBudget:            900,
		MaxPromptChars:           4000,
		ConfidenceThreshold:      0.5,
		ShortTermCapacity:        10,
	}
	var err error
	cfg.ShutdownTimeout, err = durationFromEnv("APP_SHUTDOWN_TIMEOUT", cfg.ShutdownTimeout)
	if err != nil {
		return Config{}, err
	}
	cfg.SessionInactivityTimeout, err = durationFromEnv("APP_SESSION_INACTIVITY_TIMEOUT", cfg.SessionInactivityTimeout)
	if err != nil {
		return Config{}, err
	}
	cfg.AllowAnyOrigin, err = boolFromEnv("APP_ALLOW_ANY_ORIGIN", cfg.AllowAnyOrigin)
	if err != nil {
		return Config{}, err
	}

	cfg.ModelTimeout, err = durationFromEnv("MODEL_TIMEOUT", cfg.ModelTimeout)
	if err != nil {
		return Config{}, err
	}
	cfg.ModelMaxTokens, err = intFromEnv("MODEL_MAX_TOKENS", cfg.ModelMaxTokens)
	if err != nil {
		return Config{}, err
	}
	cfg.ModelTemperature, err = floatFromEnv("MODEL_TEMPERATURE", cfg.ModelTemperature)
	if err != nil {
		return Config{}, err
	}

	cfg.RetrievalTimeout, err = durationFromEnv("RETRIEVAL_TIMEOUT", cfg.RetrievalTimeout)
	if err != nil {
		return Config{}, err
	}
	cfg.RetrievalTopK, err = intFromEnv("RETRIEVAL_TOP_K", cfg.RetrievalTopK)
	if err != nil {
		return Config{}, err
	}
	cfg.RetrievalMinScore, err = floatFromEnv("RETRIEVAL_MIN_SCORE", cfg.RetrievalMinScore)
	if err != nil {
		return Config{}, err
	}
	cfg.SnippetBudget, err = intFromEnv("RETRIEVAL_SNIPPET_BUDGET", cfg.SnippetBudget)
	if err != nil {
		return Config{}, err
	}

	cfg.MaxPromptChars, err = intFromEnv("PROMPT_MAX_CHARS", cfg.MaxPromptChars)
	if err != nil {
		return Config{}, err
	}
	cfg.ConfidenceThreshold, err = floatFromEnv("EMOTION_CONFIDENCE_THRESHOLD", cfg.ConfidenceThreshold)
	if err != nil {
		return Config{}, err
	}
	cfg.ShortTermCapacity, err = intFromEnv("MEMORY_SHORT_TERM_CAPACITY", cfg.ShortTermCapacity)
	if err != nil {
		return Config{}, err
	}

	if cfg.SessionInactivityTimeout < 5*time.Second {
		return Config{}, fmt.Errorf("APP_SESSION_INACTIVITY_TIMEOUT must be at least 5s")
	}
	if cfg.ModelMaxTokens <= 0 {
		return Config{}, fmt.Errorf("MODEL_MAX_TOKENS must be positive")
	}
	if cfg.RetrievalTopK <= 0 {
		return Config{}, fmt.Errorf("RETRIEVAL_TOP_K must be positive")
	}
	if cfg.RetrievalMinScore < 0 || cfg.RetrievalMinScore > 1 {
		return Config{}, fmt.Errorf("RETRIEVAL_MIN_SCORE must be within [0, 1]")
	}
	if cfg.SnippetBudget <= 0 {
		return Config{}, fmt.Errorf("RETRIEVAL_SNIPPET_BUDGET must be positive")
	}
	if cfg.MaxPromptChars <= 0 {
		return Config{}, fmt.Errorf("PROMPT_MAX_CHARS must be positive")
	}
	if cfg.ConfidenceThreshold < 0 || cfg.ConfidenceThreshold > 1 {
		return Config{}, fmt.Errorf("EMOTION_CONFIDENCE_THRESHOLD must be within [0, 1]")
	}
	if cfg.ShortTermCapacity <= 0 {
		return Config{}, fmt.Errorf("MEMORY_SHORT_TERM_CAPACITY must be positive")
	}

	return cfg, nil
}

func envOrDefault(key, fallback string) string {
	v := os.Getenv(key)
	if v == "" {
		return fallback
	}
	return v
}

func stringsTrimSpace(key string) string {
	return trimSpace(os.Getenv(key))
}

func trimSpace(v string) string {
	for len(v) > 0 && (v[0] == ' ' || v[0] == '\n' || v[0] == '\t' || v[0] == '\r') {
		v = v[1:]
	}
	for len(v) > 0 {
		c := v[len(v)-1]
		if c == ' ' || c == '\n' || c == '\t' || c == '\r' {
			v = v[:len(v)-1]
			continue
		}
		break
	}
	return v
}

func durationFromEnv(key string, fallback time.Duration) (time.Duration, error) {
	v := stringsTrimSpace(key)
	if v == "" {
		return fallback, nil
	}
	d, err := time.ParseDuration(v)
	if err != nil {
		return 0, fmt.Errorf("%s parse error: %w", key, err)
	}
	return d, nil
}

func intFromEnv(key string, fallback int) (int, error) {
	v := stringsTrimSpace(key)
	if v == "" {
		return fallback, nil
	}
	n, err := strconv.Atoi(v)
	if err != nil {
		return 0, fmt.Errorf("%s parse error: %w", key, err)
	}
	return n, nil
}

func floatFromEnv(key string, fallback float64) (float64, error) {
	v := stringsTrimSpace(key)
	if v == "" {
		return fallback, nil
	}
	f, err := strconv.ParseFloat(v, 64)
	if err != nil {
		return 0, fmt.Errorf("%s parse error: %w", key, err)
	}
	return f, nil
}

func boolFromEnv(key string, fallback bool) (bool, error) {
	v := strings.ToLower(stringsTrimSpace(key))
	if v == "" {
		return fallback, nil
	}
	switch v {
	case "1", "true", "t", "yes", "y", "on":
		return true, nil
	case "0", "false", "f", "no", "n", "off":
		return false, nil
	default:
		return false, fmt.Errorf("%s parse error: expected bool", key)
	}
}
