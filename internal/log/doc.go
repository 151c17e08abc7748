// Package log provides secure logging built on log/slog.
//
// The SecureHandler wraps any slog.Handler and masks credentials before a
// record is written. seoaudit talks to several hosted APIs (Gemini, Groq,
// Firecrawl, Brave) whose keys travel in headers and occasionally show up in
// error strings returned by those services, so the handler masks:
//   - attributes whose key names a credential (authorization, x-goog-api-key,
//     x-subscription-token, any *_api_key)
//   - values that look like a credential (bearer tokens, Google "AIza" keys,
//     Groq "gsk_" keys, Firecrawl "fc-" keys, JWTs)
//   - credentials embedded inside longer strings and error messages
//
// # Usage
//
//	logger := log.NewSecureLogger(os.Stderr, verbose)
//	slog.SetDefault(logger)
//	logger.Debug("calling model", "provider", "groq", "api_key", key) // api_key=***REDACTED***
package log
