package config

import (
	"net/url"
	"path/filepath"
	"strings"
	"time"

	"github.com/adrg/xdg"
)

// Provider names accepted by the configuration.
const (
	// ProviderAuto picks a provider based on which API keys are present.
	ProviderAuto = "auto"

	LLMGemini = "gemini"
	LLMGroq   = "groq"

	ScraperFirecrawl = "firecrawl"
	ScraperHTTP      = "http"

	SearchDuckDuckGo = "duckduckgo"
	SearchBrave      = "brave"
)

// Default configuration values.
const (
	// AppName is the application name used for XDG directory paths.
	AppName = "seoaudit"

	// DefaultTargetURL is audited when the CLI is given no URL.
	DefaultTargetURL = "https://www.example.com"

	// DefaultTimeout bounds a single scrape or search request.
	// Firecrawl itself is asked to finish within 90 seconds.
	DefaultTimeout = 90 * time.Second

	// DefaultLLMTimeout bounds a single language model request.
	DefaultLLMTimeout = 2 * time.Minute

	// DefaultGeminiModel is the Gemini model used when none is configured.
	DefaultGeminiModel = "gemini-1.5-flash"

	// DefaultGroqModel is the Groq model used when none is configured.
	DefaultGroqModel = "llama-3.3-70b-versatile"

	// DefaultMaxSearchResults is the number of competitor results requested.
	DefaultMaxSearchResults = 10

	// DefaultRetryAttempts is the total number of calls per capability invocation.
	DefaultRetryAttempts = 3

	// DefaultRetryInitialWait is the pause after the first failed attempt.
	DefaultRetryInitialWait = 4 * time.Second

	// DefaultRetryMaxWait caps the pause between attempts.
	DefaultRetryMaxWait = 10 * time.Second

	// DefaultSnapshotPath is where the last run record is written, relative
	// to the working directory.
	DefaultSnapshotPath = "memory/state.json"

	// DefaultBatchSize is the number of concurrent audits for multiple URLs.
	// Kept low because every audit issues several language model calls.
	DefaultBatchSize = 2

	// DefaultListenAddr is the address of the web form server.
	DefaultListenAddr = ":8501"

	// DefaultUserAgent is sent by the direct HTTP scraper.
	DefaultUserAgent = "Mozilla/5.0 (Macintosh; Intel Mac OS X 10_15_7) AppleWebKit/537.36 (KHTML, like Gecko) Chrome/120.0.0.0 Safari/537.36"

	// DefaultMaxBodySize limits the page body read by the direct HTTP scraper.
	DefaultMaxBodySize = 5 * 1024 * 1024 // 5MB

	// DefaultMaxContentChars limits the page content included in prompts.
	DefaultMaxContentChars = 12000
)

// Config holds all configuration options for seoaudit.
// It is populated from defaults, the YAML file, the environment and CLI
// flags, in that order, and passed explicitly to the components that need it.
type Config struct {
	// Timeout bounds each scrape and search request.
	Timeout time.Duration

	// LLMTimeout bounds each language model request.
	LLMTimeout time.Duration

	// LLMProvider is "auto", "gemini" or "groq".
	// With "auto", Groq is used when GROQ_API_KEY is set, otherwise Gemini.
	LLMProvider string

	// GeminiModel and GroqModel select the model per provider.
	GeminiModel string
	GroqModel   string

	// API keys. These are only ever read from the environment.
	GeminiAPIKey    string
	GroqAPIKey      string
	FirecrawlAPIKey string
	BraveAPIKey     string

	// ScraperProvider is "auto", "firecrawl" or "http".
	// With "auto", Firecrawl is tried first when a key is present and the
	// direct HTTP scraper is used as a fallback.
	ScraperProvider string

	// SearchProvider is "duckduckgo" or "brave".
	SearchProvider string

	// MaxSearchResults is the number of competitor results to analyze.
	MaxSearchResults int

	// Retry policy applied to every capability invocation.
	RetryAttempts    int
	RetryInitialWait time.Duration
	RetryMaxWait     time.Duration

	// SnapshotPath is the JSON file the final run record is written to.
	// An empty path disables the snapshot.
	SnapshotPath string

	// SaveHistory stores every run in the SQLite history database.
	SaveHistory bool

	// DBDir is the directory of the history database.
	// Defaults to the XDG data directory (~/.local/share/seoaudit on Linux).
	DBDir string

	// BatchSize is the number of concurrent audits for multiple URLs.
	BatchSize int

	// Verbose enables debug logging.
	Verbose bool

	// ConfigFilePath is the explicit configuration file, if any.
	ConfigFilePath string

	// JSONReport prints the whole run record as JSON instead of the report.
	JSONReport bool

	// ReportFile writes the output to a file instead of stdout.
	ReportFile string

	// Targets are the URLs to audit.
	Targets []string

	// ListenAddr is the address of the web form server.
	ListenAddr string

	// UserAgent is sent by the direct HTTP scraper.
	UserAgent string

	// MaxBodySize limits the page body read by the direct HTTP scraper.
	MaxBodySize int64

	// MaxContentChars limits the page content included in prompts.
	MaxContentChars int
}

// NewConfig creates a new Config with default values.
func NewConfig() *Config {
	return &Config{
		Timeout:          DefaultTimeout,
		LLMTimeout:       DefaultLLMTimeout,
		LLMProvider:      ProviderAuto,
		GeminiModel:      DefaultGeminiModel,
		GroqModel:        DefaultGroqModel,
		ScraperProvider:  ProviderAuto,
		SearchProvider:   SearchDuckDuckGo,
		MaxSearchResults: DefaultMaxSearchResults,
		RetryAttempts:    DefaultRetryAttempts,
		RetryInitialWait: DefaultRetryInitialWait,
		RetryMaxWait:     DefaultRetryMaxWait,
		SnapshotPath:     DefaultSnapshotPath,
		SaveHistory:      true,
		DBDir:            XDGDataDir(),
		BatchSize:        DefaultBatchSize,
		ListenAddr:       DefaultListenAddr,
		UserAgent:        DefaultUserAgent,
		MaxBodySize:      DefaultMaxBodySize,
		MaxContentChars:  DefaultMaxContentChars,
	}
}

// XDGDataDir returns the XDG data directory for seoaudit.
// On Linux: ~/.local/share/seoaudit
func XDGDataDir() string {
	return filepath.Join(xdg.DataHome, AppName)
}

// XDGConfigDir returns the XDG config directory for seoaudit.
// On Linux: ~/.config/seoaudit
func XDGConfigDir() string {
	return filepath.Join(xdg.ConfigHome, AppName)
}

// Validate checks if the configuration is valid and returns the first
// problem found.
func (c *Config) Validate() error {
	if c.Timeout <= 0 || c.LLMTimeout <= 0 {
		return ErrInvalidTimeout
	}
	if c.BatchSize <= 0 {
		return ErrInvalidBatchSize
	}
	if c.RetryAttempts <= 0 {
		return ErrInvalidRetryAttempts
	}
	if c.RetryInitialWait < 0 || c.RetryMaxWait < 0 {
		return ErrInvalidRetryWait
	}
	if c.MaxSearchResults <= 0 {
		return ErrInvalidMaxResults
	}
	if c.MaxBodySize < 0 {
		return ErrInvalidMaxBodySize
	}

	switch c.LLMProvider {
	case ProviderAuto, LLMGemini, LLMGroq:
	default:
		return ErrUnknownLLMProvider
	}
	switch c.ScraperProvider {
	case ProviderAuto, ScraperFirecrawl, ScraperHTTP:
	default:
		return ErrUnknownScraper
	}
	switch c.SearchProvider {
	case SearchDuckDuckGo, SearchBrave:
	default:
		return ErrUnknownSearchProvider
	}

	for _, target := range c.Targets {
		if err := ValidateTargetURL(target); err != nil {
			return err
		}
	}
	return nil
}

// ValidateTargetURL checks that raw is an absolute http(s) URL with a host.
func ValidateTargetURL(raw string) error {
	raw = strings.TrimSpace(raw)
	if !strings.HasPrefix(raw, "http") {
		return &TargetError{URL: raw, Reason: "must start with http:// or https://"}
	}
	u, err := url.Parse(raw)
	if err != nil {
		return &TargetError{URL: raw, Reason: err.Error()}
	}
	if u.Scheme != "http" && u.Scheme != "https" {
		return &TargetError{URL: raw, Reason: "scheme must be http or https"}
	}
	if u.Host == "" {
		return &TargetError{URL: raw, Reason: "missing host"}
	}
	return nil
}
