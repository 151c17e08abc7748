package agent

import "errors"

var (
	// ErrToolFailure marks failures of the scraping or search capability.
	ErrToolFailure = errors.New("tool failure")

	// ErrNoKeyword is returned by SerpAnalyst when the audit has no primary keyword.
	ErrNoKeyword = errors.New("page audit has no primary keyword")

	// ErrNoSearchResults is returned when a search yields nothing to analyze.
	ErrNoSearchResults = errors.New("no search results for keyword")
)
