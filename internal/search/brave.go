package search

import (
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"net/url"
	"strconv"
	"strings"
	"sync"
	"time"

	"golang.org/x/time/rate"

	"github.com/nao1215/seoaudit/internal/config"
	"github.com/nao1215/seoaudit/internal/model"
)

// DefaultBraveURL is the Brave web search endpoint.
const DefaultBraveURL = "https://api.search.brave.com/res/v1/web/search"

// braveMaxCount is the largest page size the API accepts.
const braveMaxCount = 20

// Brave allows one request per second per key; instances sharing a key share a limiter.
var (
	braveLimitersMu sync.Mutex
	braveLimiters   = map[string]*rate.Limiter{}
)

func braveLimiterFor(apiKey string) *rate.Limiter {
	braveLimitersMu.Lock()
	defer braveLimitersMu.Unlock()
	l, ok := braveLimiters[apiKey]
	if !ok {
		l = newLimiter(time.Second)
		braveLimiters[apiKey] = l
	}
	return l
}

// Brave searches with the Brave Search API.
type Brave struct {
	apiKey     string
	endpoint   string
	client     *http.Client
	maxResults int
	limiter    *rate.Limiter
}

// BraveOption configures Brave.
type BraveOption func(*Brave)

// WithBraveHTTPClient sets the HTTP client.
func WithBraveHTTPClient(hc *http.Client) BraveOption {
	return func(b *Brave) { b.client = hc }
}

// WithBraveEndpoint overrides the API endpoint.
func WithBraveEndpoint(u string) BraveOption {
	return func(b *Brave) { b.endpoint = u }
}

// WithBraveMaxResults caps the number of results. Non-positive values are ignored.
func WithBraveMaxResults(n int) BraveOption {
	return func(b *Brave) {
		if n > 0 {
			b.maxResults = n
		}
	}
}

// WithBraveMinInterval replaces the per-key one-per-second limiter with a private one.
func WithBraveMinInterval(interval time.Duration) BraveOption {
	return func(b *Brave) { b.limiter = newLimiter(interval) }
}

// NewBrave creates a Brave searcher.
func NewBrave(apiKey string, opts ...BraveOption) *Brave {
	b := &Brave{
		apiKey:     apiKey,
		endpoint:   DefaultBraveURL,
		client:     &http.Client{Timeout: 10 * time.Second},
		maxResults: config.DefaultMaxSearchResults,
		limiter:    braveLimiterFor(apiKey),
	}
	for _, opt := range opts {
		opt(b)
	}
	return b
}

// Name returns "brave".
func (b *Brave) Name() string {
	return config.SearchBrave
}

type braveResponse struct {
	Web struct {
		Results []struct {
			Title       string `json:"title"`
			URL         string `json:"url"`
			Description string `json:"description"`
		} `json:"results"`
	} `json:"web"`
}

// Search runs one query. A 429 answer is returned as ErrRateLimited with the
// server's reset hint so the caller's retry policy can decide.
func (b *Brave) Search(ctx context.Context, query string) ([]model.SearchResult, error) {
	query = strings.TrimSpace(query)
	if query == "" {
		return nil, ErrEmptyQuery
	}
	if strings.TrimSpace(b.apiKey) == "" {
		return nil, ErrNoBraveKey
	}

	q := url.Values{}
	q.Set("q", query)
	q.Set("count", strconv.Itoa(min(b.maxResults, braveMaxCount)))

	if err := b.limiter.Wait(ctx); err != nil {
		return nil, err
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodGet, b.endpoint+"?"+q.Encode(), nil)
	if err != nil {
		return nil, fmt.Errorf("brave: create request: %w", err)
	}
	req.Header.Set("Accept", "application/json")
	req.Header.Set("X-Subscription-Token", b.apiKey)

	resp, err := b.client.Do(req)
	if err != nil {
		return nil, fmt.Errorf("brave: %w", err)
	}
	defer resp.Body.Close()

	if resp.StatusCode == http.StatusTooManyRequests {
		return nil, fmt.Errorf("brave: %w (reset in %s)", ErrRateLimited, braveRetryDelay(resp.Header))
	}
	if resp.StatusCode != http.StatusOK {
		body, _ := io.ReadAll(io.LimitReader(resp.Body, 512))
		return nil, fmt.Errorf("brave: HTTP %d: %s", resp.StatusCode, strings.TrimSpace(string(body)))
	}

	var payload braveResponse
	if err := json.NewDecoder(resp.Body).Decode(&payload); err != nil {
		return nil, fmt.Errorf("brave: decode response: %w", err)
	}

	results := make([]model.SearchResult, 0, len(payload.Web.Results))
	for _, r := range payload.Web.Results {
		if len(results) >= b.maxResults {
			break
		}
		if r.URL == "" || r.Title == "" {
			continue
		}
		results = append(results, model.SearchResult{
			Rank:    len(results) + 1,
			Title:   collapse(stripTags(r.Title)),
			URL:     r.URL,
			Snippet: collapse(stripTags(r.Description)),
		})
	}
	return results, nil
}

// braveRetryDelay reads X-RateLimit-Reset, a comma-separated list of reset
// times in seconds, and returns the smallest one. It falls back to 1 second.
func braveRetryDelay(h http.Header) time.Duration {
	minReset := -1
	for _, part := range strings.Split(h.Get("X-RateLimit-Reset"), ",") {
		n, err := strconv.Atoi(strings.TrimSpace(part))
		if err != nil || n <= 0 {
			continue
		}
		if minReset < 0 || n < minReset {
			minReset = n
		}
	}
	if minReset <= 0 {
		return time.Second
	}
	return time.Duration(minReset) * time.Second
}

// stripTags removes the <strong> highlighting Brave puts in descriptions.
func stripTags(s string) string {
	var sb strings.Builder
	inTag := false
	for _, r := range s {
		switch {
		case r == '<':
			inTag = true
		case r == '>' && inTag:
			inTag = false
		case !inTag:
			sb.WriteRune(r)
		}
	}
	return sb.String()
}
