package search

import (
	"context"
	"errors"
	"fmt"
	"net/http"
	"time"

	"golang.org/x/time/rate"

	"github.com/nao1215/seoaudit/internal/config"
	"github.com/nao1215/seoaudit/internal/model"
)

var (
	// ErrEmptyQuery is returned for blank queries.
	ErrEmptyQuery = errors.New("search query is empty")

	// ErrNoBraveKey is returned when the brave provider is selected without a key.
	ErrNoBraveKey = errors.New("brave search selected but BRAVE_API_KEY is not set")

	// ErrRateLimited is returned when the provider keeps answering 429.
	ErrRateLimited = errors.New("search provider rate limit exceeded")
)

// Searcher returns ranked results for a query.
// Zero results is not an error at this layer.
type Searcher interface {
	Search(ctx context.Context, query string) ([]model.SearchResult, error)
	Name() string
}

// New builds the searcher selected by cfg.
func New(cfg *config.Config) (Searcher, error) {
	client := &http.Client{Timeout: cfg.Timeout}
	switch cfg.SearchProvider {
	case config.SearchBrave:
		if cfg.BraveAPIKey == "" {
			return nil, ErrNoBraveKey
		}
		return NewBrave(cfg.BraveAPIKey, WithBraveHTTPClient(client), WithBraveMaxResults(cfg.MaxSearchResults)), nil
	case config.SearchDuckDuckGo, "":
		return NewDuckDuckGo(WithHTTPClient(client), WithMaxResults(cfg.MaxSearchResults)), nil
	default:
		return nil, fmt.Errorf("%w: %q", config.ErrUnknownSearchProvider, cfg.SearchProvider)
	}
}

// newLimiter allows one request per interval. A non-positive interval
// disables limiting.
func newLimiter(interval time.Duration) *rate.Limiter {
	if interval <= 0 {
		return rate.NewLimiter(rate.Inf, 1)
	}
	return rate.NewLimiter(rate.Every(interval), 1)
}
