// Package search provides the search-results capability used by the
// competitor analysis stage: a query goes in, ranked organic results come out.
//
// DuckDuckGo's lite HTML endpoint needs no key and is the default. The Brave
// Search API is available when BRAVE_API_KEY is set.
package search
