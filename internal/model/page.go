package model

// Scrape sources recorded in PageContent.Source.
const (
	SourceFirecrawl = "firecrawl"
	SourceHTTP      = "http"
)

// PageContent is the payload returned by the scraping capability.
type PageContent struct {
	// URL is the URL that was requested.
	URL string `json:"url"`

	// FinalURL is the URL after redirects, when known.
	FinalURL string `json:"final_url,omitempty"`

	// StatusCode is the HTTP status of the final response, when known.
	StatusCode int `json:"status_code,omitempty"`

	// Source names the scraper that produced the content.
	Source string `json:"source"`

	// Markdown is the main content as Markdown or plain text.
	Markdown string `json:"markdown"`

	// HTML is the raw page HTML. Not serialized.
	HTML string `json:"-"`

	// OnPage holds facts parsed from the HTML. Nil when no HTML was available.
	OnPage *OnPage `json:"on_page,omitempty"`
}

// OnPage contains on-page SEO facts parsed directly from the HTML.
// These are handed to the model as ground truth alongside the content.
type OnPage struct {
	Title            string        `json:"title"`
	MetaDescription  string        `json:"meta_description"`
	Canonical        string        `json:"canonical,omitempty"`
	Robots           string        `json:"robots,omitempty"`
	Lang             string        `json:"lang,omitempty"`
	Headings         []HeadingItem `json:"headings"`
	InternalLinks    int           `json:"internal_links"`
	ExternalLinks    int           `json:"external_links"`
	ImageCount       int           `json:"image_count"`
	ImagesWithoutAlt int           `json:"images_without_alt"`
	WordCount        int           `json:"word_count"`
}

// H1 returns the first h1 heading text, or an empty string.
func (o *OnPage) H1() string {
	for _, h := range o.Headings {
		if h.Tag == "h1" {
			return h.Text
		}
	}
	return ""
}

// SearchResult is a single organic result from the search capability.
type SearchResult struct {
	Rank    int    `json:"rank"`
	Title   string `json:"title"`
	URL     string `json:"url"`
	Snippet string `json:"snippet"`
}
