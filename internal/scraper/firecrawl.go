package scraper

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"strings"
	"time"

	"github.com/nao1215/seoaudit/internal/model"
)

// DefaultFirecrawlBaseURL is the Firecrawl API endpoint.
const DefaultFirecrawlBaseURL = "https://api.firecrawl.dev/v1"

// firecrawlTimeoutMillis is the server-side scrape timeout sent with every request.
const firecrawlTimeoutMillis = 90000

// FirecrawlScraper implements Scraper using the Firecrawl scrape API.
type FirecrawlScraper struct {
	apiKey     string
	baseURL    string
	httpClient *http.Client
}

// FirecrawlOption configures the Firecrawl scraper.
type FirecrawlOption func(*FirecrawlScraper)

// WithFirecrawlBaseURL overrides the API endpoint.
func WithFirecrawlBaseURL(u string) FirecrawlOption {
	return func(s *FirecrawlScraper) { s.baseURL = strings.TrimRight(u, "/") }
}

// WithFirecrawlHTTPClient sets the HTTP client.
func WithFirecrawlHTTPClient(hc *http.Client) FirecrawlOption {
	return func(s *FirecrawlScraper) { s.httpClient = hc }
}

// NewFirecrawlScraper creates a new Firecrawl scraper.
func NewFirecrawlScraper(apiKey string, opts ...FirecrawlOption) *FirecrawlScraper {
	s := &FirecrawlScraper{
		apiKey:     apiKey,
		baseURL:    DefaultFirecrawlBaseURL,
		httpClient: &http.Client{Timeout: 100 * time.Second},
	}
	for _, opt := range opts {
		opt(s)
	}
	return s
}

// Name returns "firecrawl".
func (s *FirecrawlScraper) Name() string {
	return model.SourceFirecrawl
}

type firecrawlRequest struct {
	URL             string   `json:"url"`
	Formats         []string `json:"formats"`
	OnlyMainContent bool     `json:"onlyMainContent"`
	Timeout         int      `json:"timeout"`
}

type firecrawlResponse struct {
	Success bool   `json:"success"`
	Error   string `json:"error,omitempty"`
	Data    struct {
		Markdown string `json:"markdown"`
		HTML     string `json:"html"`
		Metadata struct {
			Title       string `json:"title"`
			Description string `json:"description"`
			Language    string `json:"language"`
			SourceURL   string `json:"sourceURL"`
			URL         string `json:"url"`
			StatusCode  int    `json:"statusCode"`
		} `json:"metadata"`
	} `json:"data"`
}

// Scrape asks Firecrawl for the page's main content as Markdown and HTML.
func (s *FirecrawlScraper) Scrape(ctx context.Context, url string) (*model.PageContent, error) {
	payload, err := json.Marshal(firecrawlRequest{
		URL:             url,
		Formats:         []string{"markdown", "html"},
		OnlyMainContent: true,
		Timeout:         firecrawlTimeoutMillis,
	})
	if err != nil {
		return nil, fmt.Errorf("firecrawl: marshal request: %w", err)
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodPost, s.baseURL+"/scrape", bytes.NewReader(payload))
	if err != nil {
		return nil, fmt.Errorf("firecrawl: create request: %w", err)
	}
	req.Header.Set("Content-Type", "application/json")
	req.Header.Set("Authorization", "Bearer "+s.apiKey)

	resp, err := s.httpClient.Do(req)
	if err != nil {
		return nil, fmt.Errorf("firecrawl: %w", err)
	}
	defer resp.Body.Close()

	body, err := io.ReadAll(resp.Body)
	if err != nil {
		return nil, fmt.Errorf("firecrawl: read response: %w", err)
	}
	if resp.StatusCode != http.StatusOK {
		return nil, &StatusError{Source: "firecrawl", StatusCode: resp.StatusCode, Body: strings.TrimSpace(string(body))}
	}

	var fr firecrawlResponse
	if err := json.Unmarshal(body, &fr); err != nil {
		return nil, fmt.Errorf("firecrawl: unmarshal response: %w", err)
	}
	if !fr.Success {
		return nil, fmt.Errorf("firecrawl: scrape failed: %s", fr.Error)
	}
	if strings.TrimSpace(fr.Data.Markdown) == "" {
		return nil, fmt.Errorf("firecrawl: %w", ErrEmptyContent)
	}

	page := &model.PageContent{
		URL:        url,
		FinalURL:   fr.Data.Metadata.URL,
		StatusCode: fr.Data.Metadata.StatusCode,
		Source:     model.SourceFirecrawl,
		Markdown:   normalizeText(fr.Data.Markdown),
		HTML:       fr.Data.HTML,
	}
	if page.FinalURL == "" {
		page.FinalURL = url
	}

	if fr.Data.HTML != "" {
		onPage, err := ParsePage(page.FinalURL, strings.NewReader(fr.Data.HTML))
		if err == nil {
			page.OnPage = onPage
		}
	}
	if page.OnPage == nil {
		page.OnPage = &model.OnPage{WordCount: wordCount(page.Markdown)}
	}
	// onlyMainContent strips <head>, so metadata fills the gaps.
	if page.OnPage.Title == "" {
		page.OnPage.Title = strings.TrimSpace(fr.Data.Metadata.Title)
	}
	if page.OnPage.MetaDescription == "" {
		page.OnPage.MetaDescription = strings.TrimSpace(fr.Data.Metadata.Description)
	}
	if page.OnPage.Lang == "" {
		page.OnPage.Lang = fr.Data.Metadata.Language
	}
	return page, nil
}
