// Package model defines the data structures shared across seoaudit.
//
// This package contains the following main types:
//   - RunRecord: the state threaded through the three audit stages
//   - PageAuditOutput, SerpAnalysis, AdvisorOutput: the structured outputs
//     the language model must produce for each stage
//   - PageContent, SearchResult: payloads returned by the scraping and
//     search capabilities
//
// Structured outputs are decoded with Decode, which strips Markdown code
// fences from raw model text and validates required fields. Validation
// failures are reported as *ValidationError values that match ErrValidation.
package model
