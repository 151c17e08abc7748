// Package llm provides the language-generation capability used by the audit
// stages. Two hosted providers are supported: Google Gemini through its REST
// generateContent endpoint and Groq through its OpenAI-compatible chat
// completions endpoint.
//
// Clients make exactly one HTTP call per Complete. Retrying is left to the
// caller (see internal/retry) so that a retry covers both the model call and
// the validation of its output.
package llm
