package search

import (
	"context"
	"fmt"
	"io"
	"net/http"
	"net/url"
	"strings"
	"time"

	"github.com/cenkalti/backoff/v4"
	"golang.org/x/net/html"
	"golang.org/x/time/rate"

	"github.com/nao1215/seoaudit/internal/config"
	"github.com/nao1215/seoaudit/internal/model"
)

// DefaultDuckDuckGoURL is the lite HTML endpoint.
const DefaultDuckDuckGoURL = "https://lite.duckduckgo.com/lite/"

// ddgLimiter enforces one query per second across all DuckDuckGo instances.
var ddgLimiter = newLimiter(time.Second)

const (
	ddgMaxRateLimitRetries = 3
	ddgInitialBackoff      = time.Second
)

// DuckDuckGo searches DuckDuckGo's lite HTML interface.
type DuckDuckGo struct {
	client     *http.Client
	endpoint   string
	userAgent  string
	maxResults int
	limiter    *rate.Limiter
	backoff    time.Duration
}

// Option configures DuckDuckGo.
type Option func(*DuckDuckGo)

// WithHTTPClient sets the HTTP client.
func WithHTTPClient(hc *http.Client) Option {
	return func(d *DuckDuckGo) { d.client = hc }
}

// WithEndpoint overrides the lite endpoint.
func WithEndpoint(u string) Option {
	return func(d *DuckDuckGo) { d.endpoint = u }
}

// WithMaxResults caps the number of results. Non-positive values are ignored.
func WithMaxResults(n int) Option {
	return func(d *DuckDuckGo) {
		if n > 0 {
			d.maxResults = n
		}
	}
}

// WithMinInterval replaces the shared one-per-second limiter with a private one.
func WithMinInterval(interval time.Duration) Option {
	return func(d *DuckDuckGo) { d.limiter = newLimiter(interval) }
}

// WithRateLimitBackoff sets the first wait after a 429 answer. It doubles on
// each further 429.
func WithRateLimitBackoff(b time.Duration) Option {
	return func(d *DuckDuckGo) { d.backoff = b }
}

// NewDuckDuckGo creates a DuckDuckGo searcher.
func NewDuckDuckGo(opts ...Option) *DuckDuckGo {
	d := &DuckDuckGo{
		client:     &http.Client{Timeout: 15 * time.Second},
		endpoint:   DefaultDuckDuckGoURL,
		userAgent:  config.DefaultUserAgent,
		maxResults: config.DefaultMaxSearchResults,
		limiter:    ddgLimiter,
		backoff:    ddgInitialBackoff,
	}
	for _, opt := range opts {
		opt(d)
	}
	return d
}

// Name returns "duckduckgo".
func (d *DuckDuckGo) Name() string {
	return config.SearchDuckDuckGo
}

// Search posts the query to the lite endpoint and parses the result table.
func (d *DuckDuckGo) Search(ctx context.Context, query string) ([]model.SearchResult, error) {
	query = strings.TrimSpace(query)
	if query == "" {
		return nil, ErrEmptyQuery
	}

	form := url.Values{}
	form.Set("q", query)

	search := func() ([]model.SearchResult, error) {
		if err := d.limiter.Wait(ctx); err != nil {
			return nil, backoff.Permanent(err)
		}

		req, err := http.NewRequestWithContext(ctx, http.MethodPost, d.endpoint, strings.NewReader(form.Encode()))
		if err != nil {
			return nil, backoff.Permanent(fmt.Errorf("duckduckgo: create request: %w", err))
		}
		req.Header.Set("User-Agent", d.userAgent)
		req.Header.Set("Content-Type", "application/x-www-form-urlencoded")

		resp, err := d.client.Do(req)
		if err != nil {
			return nil, backoff.Permanent(fmt.Errorf("duckduckgo: %w", err))
		}
		defer resp.Body.Close()

		if resp.StatusCode == http.StatusTooManyRequests {
			return nil, fmt.Errorf("duckduckgo: %w", ErrRateLimited)
		}
		results, err := d.readResults(resp)
		if err != nil {
			return nil, backoff.Permanent(err)
		}
		return results, nil
	}

	return backoff.RetryWithData[[]model.SearchResult](search, d.rateLimitBackOff(ctx))
}

// rateLimitBackOff doubles the wait after each 429 answer, up to
// ddgMaxRateLimitRetries retries.
func (d *DuckDuckGo) rateLimitBackOff(ctx context.Context) backoff.BackOff {
	bo := &backoff.ExponentialBackOff{
		InitialInterval:     max(d.backoff, 0),
		RandomizationFactor: 0,
		Multiplier:          2,
		MaxInterval:         time.Minute,
		MaxElapsedTime:      0,
		Stop:                backoff.Stop,
		Clock:               backoff.SystemClock,
	}
	bo.Reset()
	return backoff.WithContext(backoff.WithMaxRetries(bo, ddgMaxRateLimitRetries), ctx)
}

func (d *DuckDuckGo) readResults(resp *http.Response) ([]model.SearchResult, error) {
	if resp.StatusCode != http.StatusOK {
		return nil, fmt.Errorf("duckduckgo: HTTP %d", resp.StatusCode)
	}
	body, err := io.ReadAll(io.LimitReader(resp.Body, 2*1024*1024))
	if err != nil {
		return nil, fmt.Errorf("duckduckgo: read response: %w", err)
	}
	results, err := parseLiteResults(strings.NewReader(string(body)), d.maxResults)
	if err != nil {
		return nil, fmt.Errorf("duckduckgo: parse results: %w", err)
	}
	return results, nil
}

// parseLiteResults walks the lite result table. Each organic result is an
// a.result-link followed by a td.result-snippet.
func parseLiteResults(r io.Reader, limit int) ([]model.SearchResult, error) {
	doc, err := html.Parse(r)
	if err != nil {
		return nil, err
	}

	results := make([]model.SearchResult, 0, limit)
	seen := make(map[string]bool)
	pendingSnippet := false

	var walk func(*html.Node) bool
	walk = func(n *html.Node) bool {
		if n.Type == html.ElementNode {
			switch {
			case n.Data == "a" && hasClass(n, "result-link"):
				pendingSnippet = false
				if len(results) >= limit {
					return false
				}
				link := resolveRedirect(attr(n, "href"))
				title := collapse(text(n))
				if link != "" && title != "" && !seen[link] {
					seen[link] = true
					results = append(results, model.SearchResult{
						Rank:  len(results) + 1,
						Title: title,
						URL:   link,
					})
					pendingSnippet = true
				}
				return true
			case n.Data == "td" && hasClass(n, "result-snippet"):
				if pendingSnippet && len(results) > 0 {
					results[len(results)-1].Snippet = collapse(text(n))
				}
				pendingSnippet = false
				return true
			}
		}
		for c := n.FirstChild; c != nil; c = c.NextSibling {
			if !walk(c) {
				return false
			}
		}
		return true
	}
	walk(doc)
	return results, nil
}

// resolveRedirect unwraps DuckDuckGo's /l/?uddg= redirect links and drops
// sponsored links that point back to duckduckgo.com.
func resolveRedirect(href string) string {
	href = strings.TrimSpace(href)
	if strings.HasPrefix(href, "//") {
		href = "https:" + href
	}
	u, err := url.Parse(href)
	if err != nil {
		return ""
	}
	if strings.HasSuffix(u.Hostname(), "duckduckgo.com") {
		target := u.Query().Get("uddg")
		if target == "" {
			return ""
		}
		u, err = url.Parse(target)
		if err != nil {
			return ""
		}
	}
	if u.Scheme != "http" && u.Scheme != "https" {
		return ""
	}
	return u.String()
}

func hasClass(n *html.Node, class string) bool {
	for _, c := range strings.Fields(attr(n, "class")) {
		if c == class {
			return true
		}
	}
	return false
}

func attr(n *html.Node, key string) string {
	for _, a := range n.Attr {
		if a.Key == key {
			return a.Val
		}
	}
	return ""
}

func text(n *html.Node) string {
	var sb strings.Builder
	var walk func(*html.Node)
	walk = func(n *html.Node) {
		if n.Type == html.TextNode {
			sb.WriteString(n.Data)
		}
		for c := n.FirstChild; c != nil; c = c.NextSibling {
			walk(c)
		}
	}
	walk(n)
	return sb.String()
}

func collapse(s string) string {
	return strings.Join(strings.Fields(s), " ")
}
