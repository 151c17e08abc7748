package scraper

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"net/http"

	"github.com/nao1215/seoaudit/internal/config"
	"github.com/nao1215/seoaudit/internal/model"
)

var (
	// ErrNoFirecrawlKey is returned when the firecrawl provider is forced without a key.
	ErrNoFirecrawlKey = errors.New("firecrawl scraper selected but FIRECRAWL_API_KEY is not set")

	// ErrEmptyContent is returned when a page yields no usable text.
	ErrEmptyContent = errors.New("scraped page has no content")

	// ErrNoScrapers is returned by an empty Chain.
	ErrNoScrapers = errors.New("no scrapers configured")
)

// Scraper retrieves a page's content.
type Scraper interface {
	Scrape(ctx context.Context, url string) (*model.PageContent, error)
	Name() string
}

// StatusError is a non-success HTTP status from the page or the scraping service.
type StatusError struct {
	Source     string
	StatusCode int
	Body       string
}

// Error implements the error interface.
func (e *StatusError) Error() string {
	if e.Body == "" {
		return fmt.Sprintf("%s: HTTP %d", e.Source, e.StatusCode)
	}
	return fmt.Sprintf("%s: HTTP %d: %s", e.Source, e.StatusCode, e.Body)
}

// New builds the scraper selected by cfg.
//
// With the "auto" provider, Firecrawl is tried first when a key is present and
// the direct HTTP scraper serves as a fallback.
func New(cfg *config.Config, logger *slog.Logger) (Scraper, error) {
	httpClient := &http.Client{Timeout: cfg.Timeout}
	direct := NewHTTPScraper(
		WithHTTPClient(httpClient),
		WithUserAgent(cfg.UserAgent),
		WithMaxBodySize(cfg.MaxBodySize),
	)

	switch cfg.ScraperProvider {
	case config.ScraperHTTP:
		return direct, nil
	case config.ScraperFirecrawl:
		if cfg.FirecrawlAPIKey == "" {
			return nil, ErrNoFirecrawlKey
		}
		return NewFirecrawlScraper(cfg.FirecrawlAPIKey, WithFirecrawlHTTPClient(httpClient)), nil
	}

	if cfg.FirecrawlAPIKey == "" {
		return direct, nil
	}
	return NewChain([]Scraper{
		NewFirecrawlScraper(cfg.FirecrawlAPIKey, WithFirecrawlHTTPClient(httpClient)),
		direct,
	}, WithChainLogger(logger)), nil
}

// Chain tries each scraper in order and returns the first success.
type Chain struct {
	scrapers []Scraper
	logger   *slog.Logger
}

// ChainOption configures a Chain.
type ChainOption func(*Chain)

// WithChainLogger sets the logger used to report fallbacks.
func WithChainLogger(logger *slog.Logger) ChainOption {
	return func(c *Chain) {
		if logger != nil {
			c.logger = logger
		}
	}
}

// NewChain creates a Chain over scrapers.
func NewChain(scrapers []Scraper, opts ...ChainOption) *Chain {
	c := &Chain{scrapers: scrapers, logger: slog.Default()}
	for _, opt := range opts {
		opt(c)
	}
	return c
}

// Name returns the names of the chained scrapers.
func (c *Chain) Name() string {
	name := "chain("
	for i, s := range c.scrapers {
		if i > 0 {
			name += ","
		}
		name += s.Name()
	}
	return name + ")"
}

// Scrape returns the first successful result. If all scrapers fail, the
// errors are joined in order.
func (c *Chain) Scrape(ctx context.Context, url string) (*model.PageContent, error) {
	if len(c.scrapers) == 0 {
		return nil, ErrNoScrapers
	}

	var errs []error
	for _, s := range c.scrapers {
		page, err := s.Scrape(ctx, url)
		if err == nil {
			return page, nil
		}
		errs = append(errs, err)
		if ctx.Err() != nil {
			break
		}
		c.logger.Warn("scraper failed, trying next", "scraper", s.Name(), "url", url, "error", err)
	}
	return nil, errors.Join(errs...)
}
