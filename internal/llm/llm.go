package llm

import (
	"context"
	"errors"
	"fmt"
	"net/http"
	"time"

	"github.com/nao1215/seoaudit/internal/config"
)

// defaultHTTPTimeout applies when a client is built without WithHTTPClient.
const defaultHTTPTimeout = 2 * time.Minute

// ErrNoAPIKey is returned by New when no provider has a key configured.
var ErrNoAPIKey = errors.New("no valid LLM API key found: set GROQ_API_KEY or GEMINI_API_KEY")

// ErrEmptyResponse is returned when the provider answers without any text.
var ErrEmptyResponse = errors.New("empty response from model")

// Request is a single prompt sent to a model.
type Request struct {
	// System carries the role instructions.
	System string

	// User carries the task and its inputs.
	User string

	// JSON asks the provider to constrain the answer to a JSON object.
	JSON bool
}

// Client generates text for a prompt.
type Client interface {
	Complete(ctx context.Context, req Request) (string, error)
	Name() string
}

// APIError is a non-200 answer from a provider.
type APIError struct {
	Provider   string
	StatusCode int
	Body       string
}

// Error implements the error interface.
func (e *APIError) Error() string {
	return fmt.Sprintf("%s: HTTP %d: %s", e.Provider, e.StatusCode, truncate(e.Body, 300))
}

// Retryable reports whether the status indicates a transient failure
// (rate limiting or a server error).
func (e *APIError) Retryable() bool {
	return e.StatusCode == http.StatusTooManyRequests ||
		e.StatusCode >= http.StatusInternalServerError
}

// New builds the client selected by cfg.
// With the "auto" provider, Groq wins when its key is present, then Gemini.
func New(cfg *config.Config) (Client, error) {
	timeout := cfg.LLMTimeout
	if timeout <= 0 {
		timeout = config.DefaultLLMTimeout
	}
	httpClient := &http.Client{Timeout: timeout}

	switch cfg.LLMProvider {
	case config.LLMGroq:
		if cfg.GroqAPIKey == "" {
			return nil, fmt.Errorf("%w: GROQ_API_KEY is empty", ErrNoAPIKey)
		}
		return NewGroqClient(cfg.GroqAPIKey, WithGroqModel(cfg.GroqModel), WithGroqHTTPClient(httpClient)), nil
	case config.LLMGemini:
		if cfg.GeminiAPIKey == "" {
			return nil, fmt.Errorf("%w: GEMINI_API_KEY is empty", ErrNoAPIKey)
		}
		return NewGeminiClient(cfg.GeminiAPIKey, WithGeminiModel(cfg.GeminiModel), WithGeminiHTTPClient(httpClient)), nil
	}

	switch {
	case cfg.GroqAPIKey != "":
		return NewGroqClient(cfg.GroqAPIKey, WithGroqModel(cfg.GroqModel), WithGroqHTTPClient(httpClient)), nil
	case cfg.GeminiAPIKey != "":
		return NewGeminiClient(cfg.GeminiAPIKey, WithGeminiModel(cfg.GeminiModel), WithGeminiHTTPClient(httpClient)), nil
	default:
		return nil, ErrNoAPIKey
	}
}

func truncate(s string, n int) string {
	r := []rune(s)
	if len(r) <= n {
		return s
	}
	return string(r[:n]) + "..."
}
