package config

import "time"

// File represents the structure of the .seoaudit configuration file.
// Every field is optional; zero values leave the current setting untouched.
// API keys are deliberately absent and only read from the environment.
type File struct {
	LLM     LLMFile     `yaml:"llm,omitempty"`
	Scraper ScraperFile `yaml:"scraper,omitempty"`
	Search  SearchFile  `yaml:"search,omitempty"`
	Retry   RetryFile   `yaml:"retry,omitempty"`
	Output  OutputFile  `yaml:"output,omitempty"`
	Server  ServerFile  `yaml:"server,omitempty"`

	// BatchSize is the number of URLs audited concurrently.
	BatchSize int `yaml:"batchSize,omitempty"`
}

// LLMFile configures the language model provider.
type LLMFile struct {
	Provider    string        `yaml:"provider,omitempty"`
	GeminiModel string        `yaml:"geminiModel,omitempty"`
	GroqModel   string        `yaml:"groqModel,omitempty"`
	Timeout     time.Duration `yaml:"timeout,omitempty"`

	// MaxContentChars limits how much page text is sent to the model.
	MaxContentChars int `yaml:"maxContentChars,omitempty"`
}

// ScraperFile configures page retrieval.
type ScraperFile struct {
	Provider    string        `yaml:"provider,omitempty"`
	Timeout     time.Duration `yaml:"timeout,omitempty"`
	UserAgent   string        `yaml:"userAgent,omitempty"`
	MaxBodySize int64         `yaml:"maxBodySize,omitempty"`
}

// SearchFile configures the search results provider.
type SearchFile struct {
	Provider   string `yaml:"provider,omitempty"`
	MaxResults int    `yaml:"maxResults,omitempty"`
}

// RetryFile configures the retry policy.
type RetryFile struct {
	Attempts    int           `yaml:"attempts,omitempty"`
	InitialWait time.Duration `yaml:"initialWait,omitempty"`
	MaxWait     time.Duration `yaml:"maxWait,omitempty"`
}

// OutputFile configures persistence of run records.
type OutputFile struct {
	SnapshotPath string `yaml:"snapshotPath,omitempty"`

	// History is a pointer so that an explicit false can disable it.
	History *bool  `yaml:"history,omitempty"`
	DBDir   string `yaml:"dbDir,omitempty"`
}

// ServerFile configures the web form server.
type ServerFile struct {
	ListenAddr string `yaml:"listenAddr,omitempty"`
}

// ApplyFile merges non-zero settings from f into c.
func (c *Config) ApplyFile(f *File) {
	if f == nil {
		return
	}
	setString(&c.LLMProvider, f.LLM.Provider)
	setString(&c.GeminiModel, f.LLM.GeminiModel)
	setString(&c.GroqModel, f.LLM.GroqModel)
	setDuration(&c.LLMTimeout, f.LLM.Timeout)
	setInt(&c.MaxContentChars, f.LLM.MaxContentChars)

	setString(&c.ScraperProvider, f.Scraper.Provider)
	setDuration(&c.Timeout, f.Scraper.Timeout)
	setString(&c.UserAgent, f.Scraper.UserAgent)
	if f.Scraper.MaxBodySize != 0 {
		c.MaxBodySize = f.Scraper.MaxBodySize
	}

	setString(&c.SearchProvider, f.Search.Provider)
	setInt(&c.MaxSearchResults, f.Search.MaxResults)

	setInt(&c.RetryAttempts, f.Retry.Attempts)
	setDuration(&c.RetryInitialWait, f.Retry.InitialWait)
	setDuration(&c.RetryMaxWait, f.Retry.MaxWait)

	setString(&c.SnapshotPath, f.Output.SnapshotPath)
	if f.Output.History != nil {
		c.SaveHistory = *f.Output.History
	}
	setString(&c.DBDir, f.Output.DBDir)

	setString(&c.ListenAddr, f.Server.ListenAddr)
	setInt(&c.BatchSize, f.BatchSize)
}

func setString(dst *string, v string) {
	if v != "" {
		*dst = v
	}
}

func setInt(dst *int, v int) {
	if v != 0 {
		*dst = v
	}
}

func setDuration(dst *time.Duration, v time.Duration) {
	if v != 0 {
		*dst = v
	}
}
