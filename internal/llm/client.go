// Copyright Mesh Intelligence Inc., 2026. All rights reserved.

// Package llm talks to generative models for query refinement, paper
// summaries and research reports. Every caller tolerates a nil Client and
// degrades to a deterministic fallback.
package llm

import (
	"context"
	"errors"
	"fmt"
	"io"
	"net/http"
	"time"
)

// DefaultTimeout applies when a client is built without an explicit timeout.
const DefaultTimeout = 60 * time.Second

var (
	// ErrEmptyResponse means the model answered without any text.
	ErrEmptyResponse = errors.New("model returned empty content")

	ErrMissingAPIKey = errors.New("API key not set")
)

// Client generates a completion for prompt under an optional system prompt.
type Client interface {
	Generate(ctx context.Context, prompt, system string) (string, error)
	Name() string
}

// Config selects and configures a Client.
type Config struct {
	Provider string // "gemini", "ollama", or "none"
	Model    string
	APIKey   string
	BaseURL  string
	Timeout  time.Duration
}

// New builds the client named by cfg.Provider. It returns a nil Client and
// no error for "none" or an empty provider.
func New(cfg Config) (Client, error) {
	timeout := cfg.Timeout
	if timeout <= 0 {
		timeout = DefaultTimeout
	}
	hc := &http.Client{Timeout: timeout}

	switch cfg.Provider {
	case "", "none":
		return nil, nil
	case "gemini":
		if cfg.APIKey == "" {
			return nil, fmt.Errorf("gemini: %w", ErrMissingAPIKey)
		}
		return &GeminiClient{APIKey: cfg.APIKey, Model: cfg.Model, BaseURL: cfg.BaseURL, HTTPClient: hc}, nil
	case "ollama":
		return &OllamaClient{Model: cfg.Model, BaseURL: cfg.BaseURL, HTTPClient: hc}, nil
	default:
		return nil, fmt.Errorf("unknown llm provider %q (want gemini, ollama or none)", cfg.Provider)
	}
}

// readErrorBody returns at most 512 bytes of body for error messages.
func readErrorBody(body io.Reader) string {
	b, err := io.ReadAll(io.LimitReader(body, 512))
	if err != nil {
		return fmt.Sprintf("(failed to read response body: %v)", err)
	}
	return string(b)
}
