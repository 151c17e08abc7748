package llm

import (
	"errors"
	"net/http"
	"strings"
	"testing"

	"github.com/nao1215/seoaudit/internal/config"
)

func TestNew(t *testing.T) {
	t.Parallel()

	tests := []struct {
		name     string
		provider string
		gemini   string
		groq     string
		wantName string
		wantErr  error
	}{
		{name: "auto prefers groq", provider: config.ProviderAuto, gemini: "g", groq: "q", wantName: "groq/"},
		{name: "auto falls back to gemini", provider: config.ProviderAuto, gemini: "g", wantName: "gemini/"},
		{name: "auto without keys", provider: config.ProviderAuto, wantErr: ErrNoAPIKey},
		{name: "explicit gemini", provider: config.LLMGemini, gemini: "g", groq: "q", wantName: "gemini/"},
		{name: "explicit groq without key", provider: config.LLMGroq, gemini: "g", wantErr: ErrNoAPIKey},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			t.Parallel()

			cfg := config.NewConfig()
			cfg.LLMProvider = tt.provider
			cfg.GeminiAPIKey = tt.gemini
			cfg.GroqAPIKey = tt.groq

			client, err := New(cfg)
			if tt.wantErr != nil {
				if !errors.Is(err, tt.wantErr) {
					t.Fatalf("expected %v, got %v", tt.wantErr, err)
				}
				return
			}
			if err != nil {
				t.Fatalf("unexpected error: %v", err)
			}
			if !strings.HasPrefix(client.Name(), tt.wantName) {
				t.Errorf("Name() = %q, want prefix %q", client.Name(), tt.wantName)
			}
		})
	}
}

func TestNoAPIKeyMessage(t *testing.T) {
	t.Parallel()

	want := "no valid LLM API key found: set GROQ_API_KEY or GEMINI_API_KEY"
	if ErrNoAPIKey.Error() != want {
		t.Errorf("ErrNoAPIKey = %q, want %q", ErrNoAPIKey.Error(), want)
	}
}

func TestAPIErrorRetryable(t *testing.T) {
	t.Parallel()

	tests := []struct {
		status int
		want   bool
	}{
		{http.StatusTooManyRequests, true},
		{http.StatusInternalServerError, true},
		{http.StatusServiceUnavailable, true},
		{http.StatusUnauthorized, false},
		{http.StatusBadRequest, false},
	}

	for _, tt := range tests {
		t.Run(http.StatusText(tt.status), func(t *testing.T) {
			t.Parallel()
			e := &APIError{Provider: "test", StatusCode: tt.status}
			if got := e.Retryable(); got != tt.want {
				t.Errorf("Retryable() = %v, want %v", got, tt.want)
			}
		})
	}
}

func TestAPIErrorTruncatesBody(t *testing.T) {
	t.Parallel()

	e := &APIError{Provider: "groq", StatusCode: 500, Body: strings.Repeat("x", 1000)}
	msg := e.Error()
	if !strings.HasPrefix(msg, "groq: HTTP 500: ") {
		t.Errorf("unexpected prefix: %q", msg[:30])
	}
	if !strings.HasSuffix(msg, "...") || len(msg) > 400 {
		t.Errorf("expected truncated body, got %d bytes", len(msg))
	}
}
