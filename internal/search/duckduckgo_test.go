package search

import (
	"context"
	"errors"
	"net/http"
	"net/http/httptest"
	"strings"
	"sync/atomic"
	"testing"
	"time"
)

const litePage = `<html><body>
<table>
<tr><td>1.&nbsp;</td><td><a rel="nofollow" href="//duckduckgo.com/l/?uddg=https%3A%2F%2Frunner.example%2Fbest-shoes&amp;rut=abc" class='result-link'>Best Running <b>Shoes</b> 2024</a></td></tr>
<tr><td></td><td class='result-snippet'>We tested   40 pairs of <b>running shoes</b>.</td></tr>
<tr><td>2.&nbsp;</td><td><a rel="nofollow" href="https://duckduckgo.com/y.js?ad_domain=ads.example" class='result-link'>Sponsored</a></td></tr>
<tr><td></td><td class='result-snippet'>Ad snippet</td></tr>
<tr><td>3.&nbsp;</td><td><a rel="nofollow" href="https://shoes.example/guide" class="result-link other">Shoe Guide</a></td></tr>
<tr><td></td><td class='result-snippet'>How to choose.</td></tr>
<tr><td>4.&nbsp;</td><td><a rel="nofollow" href="https://blog.example/review" class='result-link'>Review</a></td></tr>
</table>
</body></html>`

func TestParseLiteResults(t *testing.T) {
	t.Parallel()

	results, err := parseLiteResults(strings.NewReader(litePage), 10)
	if err != nil {
		t.Fatalf("parseLiteResults: %v", err)
	}
	if len(results) != 3 {
		t.Fatalf("expected 3 results, got %+v", results)
	}

	first := results[0]
	if first.Rank != 1 || first.URL != "https://runner.example/best-shoes" || first.Title != "Best Running Shoes 2024" {
		t.Errorf("unexpected first result: %+v", first)
	}
	if first.Snippet != "We tested 40 pairs of running shoes." {
		t.Errorf("Snippet = %q", first.Snippet)
	}

	if results[1].Rank != 2 || results[1].URL != "https://shoes.example/guide" || results[1].Snippet != "How to choose." {
		t.Errorf("unexpected second result: %+v", results[1])
	}
	if results[2].Snippet != "" {
		t.Errorf("result without snippet should stay empty, got %q", results[2].Snippet)
	}
}

func TestParseLiteResults_Limit(t *testing.T) {
	t.Parallel()

	results, err := parseLiteResults(strings.NewReader(litePage), 1)
	if err != nil {
		t.Fatalf("parseLiteResults: %v", err)
	}
	if len(results) != 1 {
		t.Fatalf("expected 1 result, got %d", len(results))
	}
	if results[0].Snippet == "" {
		t.Error("expected the snippet of the last kept result")
	}
}

func TestResolveRedirect(t *testing.T) {
	t.Parallel()

	tests := []struct {
		in   string
		want string
	}{
		{"//duckduckgo.com/l/?uddg=https%3A%2F%2Fa.example%2Fx", "https://a.example/x"},
		{"https://b.example/page", "https://b.example/page"},
		{"https://duckduckgo.com/y.js?ad_domain=x", ""},
		{"javascript:void(0)", ""},
	}

	for _, tt := range tests {
		t.Run(tt.in, func(t *testing.T) {
			t.Parallel()
			if got := resolveRedirect(tt.in); got != tt.want {
				t.Errorf("resolveRedirect(%q) = %q, want %q", tt.in, got, tt.want)
			}
		})
	}
}

func TestDuckDuckGo_Search(t *testing.T) {
	t.Parallel()

	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if r.Method != http.MethodPost {
			t.Errorf("expected POST, got %s", r.Method)
		}
		if err := r.ParseForm(); err != nil {
			t.Errorf("ParseForm: %v", err)
		}
		if got := r.PostForm.Get("q"); got != "running shoes" {
			t.Errorf("q = %q", got)
		}
		_, _ = w.Write([]byte(litePage))
	}))
	defer srv.Close()

	d := NewDuckDuckGo(WithEndpoint(srv.URL), WithMinInterval(0))
	results, err := d.Search(context.Background(), "  running shoes ")
	if err != nil {
		t.Fatalf("Search: %v", err)
	}
	if len(results) != 3 {
		t.Errorf("expected 3 results, got %d", len(results))
	}
}

func TestDuckDuckGo_SearchErrors(t *testing.T) {
	t.Parallel()

	t.Run("empty query", func(t *testing.T) {
		t.Parallel()
		if _, err := NewDuckDuckGo(WithMinInterval(0)).Search(context.Background(), "  "); !errors.Is(err, ErrEmptyQuery) {
			t.Errorf("expected ErrEmptyQuery, got %v", err)
		}
	})

	t.Run("backs off on 429 then succeeds", func(t *testing.T) {
		t.Parallel()

		var calls atomic.Int32
		srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, _ *http.Request) {
			if calls.Add(1) == 1 {
				w.WriteHeader(http.StatusTooManyRequests)
				return
			}
			_, _ = w.Write([]byte(litePage))
		}))
		defer srv.Close()

		d := NewDuckDuckGo(WithEndpoint(srv.URL), WithMinInterval(0), WithRateLimitBackoff(time.Millisecond))
		results, err := d.Search(context.Background(), "shoes")
		if err != nil {
			t.Fatalf("Search: %v", err)
		}
		if len(results) == 0 || calls.Load() != 2 {
			t.Errorf("results=%d calls=%d", len(results), calls.Load())
		}
	})

	t.Run("gives up after repeated 429", func(t *testing.T) {
		t.Parallel()

		var calls atomic.Int32
		srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, _ *http.Request) {
			calls.Add(1)
			w.WriteHeader(http.StatusTooManyRequests)
		}))
		defer srv.Close()

		d := NewDuckDuckGo(WithEndpoint(srv.URL), WithMinInterval(0), WithRateLimitBackoff(time.Millisecond))
		if _, err := d.Search(context.Background(), "shoes"); !errors.Is(err, ErrRateLimited) {
			t.Errorf("expected ErrRateLimited, got %v", err)
		}
		if got := calls.Load(); got != ddgMaxRateLimitRetries+1 {
			t.Errorf("expected %d requests, got %d", ddgMaxRateLimitRetries+1, got)
		}
	})

	t.Run("cancelled while backing off", func(t *testing.T) {
		t.Parallel()

		ctx, cancel := context.WithCancel(context.Background())
		srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, _ *http.Request) {
			cancel()
			w.WriteHeader(http.StatusTooManyRequests)
		}))
		defer srv.Close()

		d := NewDuckDuckGo(WithEndpoint(srv.URL), WithMinInterval(0), WithRateLimitBackoff(time.Hour))
		if _, err := d.Search(ctx, "shoes"); !errors.Is(err, context.Canceled) {
			t.Errorf("expected context.Canceled, got %v", err)
		}
	})

	t.Run("server error", func(t *testing.T) {
		t.Parallel()

		srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, _ *http.Request) {
			w.WriteHeader(http.StatusBadGateway)
		}))
		defer srv.Close()

		d := NewDuckDuckGo(WithEndpoint(srv.URL), WithMinInterval(0))
		if _, err := d.Search(context.Background(), "shoes"); err == nil {
			t.Error("expected error for 502")
		}
	})

	t.Run("no results is not an error", func(t *testing.T) {
		t.Parallel()

		srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, _ *http.Request) {
			_, _ = w.Write([]byte(`<html><body>No results.</body></html>`))
		}))
		defer srv.Close()

		d := NewDuckDuckGo(WithEndpoint(srv.URL), WithMinInterval(0))
		results, err := d.Search(context.Background(), "zzzz")
		if err != nil {
			t.Fatalf("unexpected error: %v", err)
		}
		if len(results) != 0 {
			t.Errorf("expected no results, got %d", len(results))
		}
	})
}

func TestLimiterSpacesRequests(t *testing.T) {
	t.Parallel()

	l := newLimiter(20 * time.Millisecond)
	start := time.Now()
	for range 3 {
		if err := l.Wait(context.Background()); err != nil {
			t.Fatalf("wait: %v", err)
		}
	}
	if elapsed := time.Since(start); elapsed < 35*time.Millisecond {
		t.Errorf("expected about 40ms between three calls, got %v", elapsed)
	}

	ctx, cancel := context.WithCancel(context.Background())
	cancel()
	if err := l.Wait(ctx); !errors.Is(err, context.Canceled) {
		t.Errorf("expected context.Canceled, got %v", err)
	}

	unlimited := newLimiter(0)
	for range 5 {
		if err := unlimited.Wait(context.Background()); err != nil {
			t.Fatalf("unlimited wait: %v", err)
		}
	}
}
