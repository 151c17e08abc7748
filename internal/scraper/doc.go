// Package scraper provides the scraping capability: given a URL it returns
// the page's main content plus on-page SEO facts.
//
// Two implementations are available:
//   - FirecrawlScraper calls the hosted Firecrawl scrape API, which renders
//     JavaScript and strips boilerplate.
//   - HTTPScraper fetches the page directly, extracts the main text with
//     go-readability and parses on-page facts with golang.org/x/net/html.
//
// Chain combines them so that the direct scraper is used when Firecrawl is
// unavailable or fails.
package scraper
