package scraper

import (
	"bytes"
	"context"
	"fmt"
	"io"
	"net/http"
	nurl "net/url"
	"strings"

	"github.com/go-shiori/go-readability"
	"github.com/nao1215/seoaudit/internal/config"
	"github.com/nao1215/seoaudit/internal/model"
)

// minTextLength is the shortest main text accepted from a page.
// Shorter pages are usually login walls, cookie walls or empty shells.
const minTextLength = 50

// HTTPScraper fetches pages directly and extracts readable content.
type HTTPScraper struct {
	client      *http.Client
	userAgent   string
	maxBodySize int64
}

// HTTPOption configures the HTTP scraper.
type HTTPOption func(*HTTPScraper)

// WithHTTPClient sets the HTTP client.
func WithHTTPClient(hc *http.Client) HTTPOption {
	return func(s *HTTPScraper) { s.client = hc }
}

// WithUserAgent sets the User-Agent header. Empty values are ignored.
func WithUserAgent(ua string) HTTPOption {
	return func(s *HTTPScraper) {
		if ua != "" {
			s.userAgent = ua
		}
	}
}

// WithMaxBodySize limits how much of the response body is read.
// Non-positive values are ignored.
func WithMaxBodySize(n int64) HTTPOption {
	return func(s *HTTPScraper) {
		if n > 0 {
			s.maxBodySize = n
		}
	}
}

// NewHTTPScraper creates a new direct HTTP scraper.
func NewHTTPScraper(opts ...HTTPOption) *HTTPScraper {
	s := &HTTPScraper{
		client:      &http.Client{Timeout: config.DefaultTimeout},
		userAgent:   config.DefaultUserAgent,
		maxBodySize: config.DefaultMaxBodySize,
	}
	for _, opt := range opts {
		opt(s)
	}
	return s
}

// Name returns "http".
func (s *HTTPScraper) Name() string {
	return model.SourceHTTP
}

// Scrape performs a single fetch and extraction.
func (s *HTTPScraper) Scrape(ctx context.Context, url string) (*model.PageContent, error) {
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, url, nil)
	if err != nil {
		return nil, fmt.Errorf("http scraper: create request: %w", err)
	}
	req.Header.Set("User-Agent", s.userAgent)
	req.Header.Set("Accept", "text/html,application/xhtml+xml,application/xml;q=0.9,*/*;q=0.8")
	req.Header.Set("Accept-Language", "en-US,en;q=0.9")

	resp, err := s.client.Do(req)
	if err != nil {
		return nil, fmt.Errorf("http scraper: fetch: %w", err)
	}
	defer resp.Body.Close()

	if resp.StatusCode < 200 || resp.StatusCode > 299 {
		return nil, &StatusError{Source: "http scraper", StatusCode: resp.StatusCode}
	}

	body, err := io.ReadAll(io.LimitReader(resp.Body, s.maxBodySize))
	if err != nil {
		return nil, fmt.Errorf("http scraper: read body: %w", err)
	}

	finalURL := url
	if resp.Request != nil && resp.Request.URL != nil {
		finalURL = resp.Request.URL.String()
	}

	onPage, err := ParsePage(finalURL, bytes.NewReader(body))
	if err != nil {
		return nil, fmt.Errorf("http scraper: parse html: %w", err)
	}

	text := ""
	parsedURL, _ := nurl.Parse(finalURL)
	if article, err := readability.FromReader(bytes.NewReader(body), parsedURL); err == nil {
		text = normalizeText(article.TextContent)
		if article.Byline != "" {
			text = "By " + strings.TrimSpace(article.Byline) + "\n\n" + text
		}
	}
	if len([]rune(text)) < minTextLength {
		text = extractText(bytes.NewReader(body))
	}
	if len([]rune(text)) < minTextLength {
		return nil, fmt.Errorf("http scraper: %w (%d chars)", ErrEmptyContent, len([]rune(text)))
	}

	return &model.PageContent{
		URL:        url,
		FinalURL:   finalURL,
		StatusCode: resp.StatusCode,
		Source:     model.SourceHTTP,
		Markdown:   text,
		HTML:       string(body),
		OnPage:     onPage,
	}, nil
}
