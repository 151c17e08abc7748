// Package agent implements the three audit stages as plain functions over
// the capabilities: PageAuditor scrapes a page and asks the model for a
// structured audit, SerpAnalyst searches the primary keyword and asks the
// model to classify the competition, and Advisor turns whatever data exists
// into prioritized recommendations.
//
// Each capability call is retried under the shared retry policy. For model
// calls the retried unit is the completion plus its validation, so malformed
// output gets another chance before the stage gives up.
//
// Errors carry a kind that callers inspect with errors.Is:
// ErrToolFailure for scrape and search failures, model.ErrValidation for
// output that does not match its schema, anything else is a generic failure.
package agent
