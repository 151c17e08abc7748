package config

import "strings"

// Environment variables read by ApplyEnv.
const (
	EnvGeminiAPIKey    = "GEMINI_API_KEY"
	EnvGroqAPIKey      = "GROQ_API_KEY"
	EnvFirecrawlAPIKey = "FIRECRAWL_API_KEY"
	EnvBraveAPIKey     = "BRAVE_API_KEY"
	EnvLLMProvider     = "SEOAUDIT_LLM"
)

// ApplyEnv copies API keys and provider overrides from the environment.
// getenv is usually os.Getenv; tests pass a map lookup.
func (c *Config) ApplyEnv(getenv func(string) string) {
	if getenv == nil {
		return
	}
	c.GeminiAPIKey = strings.TrimSpace(getenv(EnvGeminiAPIKey))
	c.GroqAPIKey = strings.TrimSpace(getenv(EnvGroqAPIKey))
	c.FirecrawlAPIKey = strings.TrimSpace(getenv(EnvFirecrawlAPIKey))
	c.BraveAPIKey = strings.TrimSpace(getenv(EnvBraveAPIKey))
	if p := strings.TrimSpace(getenv(EnvLLMProvider)); p != "" {
		c.LLMProvider = strings.ToLower(p)
	}
}
