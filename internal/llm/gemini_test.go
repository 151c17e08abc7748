package llm

import (
	"context"
	"encoding/json"
	"errors"
	"net/http"
	"net/http/httptest"
	"testing"
)

func TestGeminiClient_Complete(t *testing.T) {
	t.Parallel()

	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if r.URL.Path != "/models/test-model:generateContent" {
			t.Errorf("unexpected path: %s", r.URL.Path)
		}
		if got := r.Header.Get("x-goog-api-key"); got != "g-key" {
			t.Errorf("x-goog-api-key = %q", got)
		}

		var req geminiRequest
		if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
			t.Errorf("decode request: %v", err)
		}
		if req.SystemInstruction == nil || req.SystemInstruction.Parts[0].Text != "be terse" {
			t.Errorf("expected system instruction, got %+v", req.SystemInstruction)
		}
		if req.Contents[0].Parts[0].Text != "audit this" {
			t.Errorf("unexpected user text %q", req.Contents[0].Parts[0].Text)
		}
		if req.GenerationConfig.ResponseMimeType != "application/json" {
			t.Errorf("expected JSON mime type, got %q", req.GenerationConfig.ResponseMimeType)
		}

		w.Header().Set("Content-Type", "application/json")
		_, _ = w.Write([]byte(`{"candidates":[{"content":{"parts":[{"text":"{\"a\":"},{"text":"1}"}]},"finishReason":"STOP"}]}`))
	}))
	defer srv.Close()

	c := NewGeminiClient("g-key", WithGeminiModel("test-model"), WithGeminiBaseURL(srv.URL+"/"))
	got, err := c.Complete(context.Background(), Request{System: "be terse", User: "audit this", JSON: true})
	if err != nil {
		t.Fatalf("Complete: %v", err)
	}
	if got != `{"a":1}` {
		t.Errorf("Complete = %q", got)
	}
	if c.Name() != "gemini/test-model" {
		t.Errorf("Name = %q", c.Name())
	}
}

func TestGeminiClient_Errors(t *testing.T) {
	t.Parallel()

	tests := []struct {
		name      string
		status    int
		body      string
		wantAPI   bool
		wantEmpty bool
	}{
		{name: "rate limited", status: http.StatusTooManyRequests, body: `{"error":{"message":"quota"}}`, wantAPI: true},
		{name: "no candidates", status: http.StatusOK, body: `{"candidates":[]}`, wantEmpty: true},
		{name: "blank text", status: http.StatusOK, body: `{"candidates":[{"content":{"parts":[{"text":"  "}]},"finishReason":"MAX_TOKENS"}]}`, wantEmpty: true},
		{name: "blocked prompt", status: http.StatusOK, body: `{"promptFeedback":{"blockReason":"SAFETY"}}`},
		{name: "invalid json", status: http.StatusOK, body: `not json`},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			t.Parallel()

			srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, _ *http.Request) {
				w.WriteHeader(tt.status)
				_, _ = w.Write([]byte(tt.body))
			}))
			defer srv.Close()

			c := NewGeminiClient("g-key", WithGeminiBaseURL(srv.URL))
			_, err := c.Complete(context.Background(), Request{User: "hi"})
			if err == nil {
				t.Fatal("expected error")
			}

			var apiErr *APIError
			if got := errors.As(err, &apiErr); got != tt.wantAPI {
				t.Errorf("APIError = %v, want %v (%v)", got, tt.wantAPI, err)
			}
			if tt.wantAPI && !apiErr.Retryable() {
				t.Error("expected 429 to be retryable")
			}
			if got := errors.Is(err, ErrEmptyResponse); got != tt.wantEmpty {
				t.Errorf("ErrEmptyResponse = %v, want %v (%v)", got, tt.wantEmpty, err)
			}
		})
	}
}
