package config

import (
	"errors"
	"fmt"
)

// Configuration validation errors returned by Config.Validate.
var (
	// ErrInvalidTimeout is returned when a request timeout is not positive.
	ErrInvalidTimeout = errors.New("invalid timeout: must be positive")

	// ErrInvalidBatchSize is returned when the batch size is not positive.
	ErrInvalidBatchSize = errors.New("invalid batch size: must be positive")

	// ErrInvalidRetryAttempts is returned when fewer than one attempt is configured.
	ErrInvalidRetryAttempts = errors.New("invalid retry attempts: must be at least 1")

	// ErrInvalidRetryWait is returned when a retry wait is negative.
	ErrInvalidRetryWait = errors.New("invalid retry wait: must be non-negative")

	// ErrInvalidMaxResults is returned when the search result limit is not positive.
	ErrInvalidMaxResults = errors.New("invalid max search results: must be positive")

	// ErrInvalidMaxBodySize is returned when the max body size is negative.
	ErrInvalidMaxBodySize = errors.New("invalid max body size: must be non-negative")

	// ErrUnknownLLMProvider is returned for an unsupported language model provider.
	ErrUnknownLLMProvider = errors.New("unknown LLM provider: use auto, gemini or groq")

	// ErrUnknownScraper is returned for an unsupported scraper.
	ErrUnknownScraper = errors.New("unknown scraper: use auto, firecrawl or http")

	// ErrUnknownSearchProvider is returned for an unsupported search provider.
	ErrUnknownSearchProvider = errors.New("unknown search provider: use duckduckgo or brave")

	// ErrInvalidTarget matches every *TargetError.
	ErrInvalidTarget = errors.New("invalid target URL")
)

// TargetError describes a URL that cannot be audited.
type TargetError struct {
	URL    string
	Reason string
}

// Error implements the error interface.
func (e *TargetError) Error() string {
	return fmt.Sprintf("invalid target URL %q: %s", e.URL, e.Reason)
}

// Is makes errors.Is(err, ErrInvalidTarget) true.
func (e *TargetError) Is(target error) bool {
	return target == ErrInvalidTarget
}
