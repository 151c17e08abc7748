package model

import (
	"fmt"
	"strings"
)

// Recommendation priorities, most urgent first.
const (
	PriorityP0 = "P0"
	PriorityP1 = "P1"
	PriorityP2 = "P2"
)

// Recommendation effort levels.
const (
	EffortLow    = "low"
	EffortMedium = "medium"
	EffortHigh   = "high"
)

// HeadingItem is a single heading in document order.
type HeadingItem struct {
	// Tag is the heading element name such as h2 or h3.
	Tag string `json:"tag" schema:"required"`

	// Text is the heading's text content.
	Text string `json:"text" schema:"required"`
}

// LinkCounts is a quantitative snapshot of the page's links.
// Every field is optional.
type LinkCounts struct {
	Internal *int    `json:"internal,omitempty"`
	External *int    `json:"external,omitempty"`
	Broken   *int    `json:"broken,omitempty"`
	Notes    *string `json:"notes,omitempty"`
}

// AuditResults holds the structured on-page findings.
type AuditResults struct {
	// TitleTag is the full title tag text. Required.
	TitleTag string `json:"title_tag" schema:"required"`

	// MetaDescription is the meta description text. Required.
	MetaDescription string `json:"meta_description" schema:"required"`

	// PrimaryHeading is the main H1 of the page. Required.
	PrimaryHeading string `json:"primary_heading" schema:"required"`

	// SecondaryHeadings are H2-H4 headings in reading order.
	SecondaryHeadings []HeadingItem `json:"secondary_headings"`

	// WordCount is the approximate number of words in the main content.
	WordCount *int `json:"word_count,omitempty"`

	// ContentSummary summarizes the main topics and structure. Required.
	ContentSummary string `json:"content_summary" schema:"required"`

	// LinkCounts is required, although each count inside it is optional.
	LinkCounts *LinkCounts `json:"link_counts" schema:"required"`

	// TechnicalFindings lists notable technical SEO issues.
	TechnicalFindings []string `json:"technical_findings"`

	// ContentOpportunities lists observed content gaps.
	ContentOpportunities []string `json:"content_opportunities"`
}

// TargetKeywords is the keyword focus derived from the page content.
type TargetKeywords struct {
	PrimaryKeyword    string   `json:"primary_keyword" schema:"required"`
	SecondaryKeywords []string `json:"secondary_keywords"`
	SearchIntent      string   `json:"search_intent" schema:"required"`
	SupportingTopics  []string `json:"supporting_topics"`
}

// PageAuditOutput is the structured output of the page-audit stage.
type PageAuditOutput struct {
	AuditResults   *AuditResults   `json:"audit_results" schema:"required"`
	TargetKeywords *TargetKeywords `json:"target_keywords" schema:"required"`
}

// SerpResult is one organic search result as classified by the model.
type SerpResult struct {
	Rank        int    `json:"rank" schema:"required"`
	Title       string `json:"title" schema:"required"`
	URL         string `json:"url" schema:"required"`
	Snippet     string `json:"snippet" schema:"required"`
	ContentType string `json:"content_type" schema:"required"`
}

// SerpAnalysis is the structured output of the competitor-analysis stage.
type SerpAnalysis struct {
	PrimaryKeyword               string       `json:"primary_keyword" schema:"required"`
	TopResults                   []SerpResult `json:"top_10_results" schema:"required"`
	TitlePatterns                []string     `json:"title_patterns"`
	ContentFormats               []string     `json:"content_formats"`
	PeopleAlsoAsk                []string     `json:"people_also_ask"`
	KeyThemes                    []string     `json:"key_themes"`
	DifferentiationOpportunities []string     `json:"differentiation_opportunities"`
}

// OptimizationRecommendation is a single prioritized action.
type OptimizationRecommendation struct {
	Priority       string `json:"priority" schema:"required"`
	Area           string `json:"area" schema:"required"`
	Recommendation string `json:"recommendation" schema:"required"`
	Rationale      string `json:"rationale" schema:"required"`
	ExpectedImpact string `json:"expected_impact" schema:"required"`
	Effort         string `json:"effort" schema:"required"`
}

// AdvisorOutput is the structured output of the report-synthesis stage.
type AdvisorOutput struct {
	ExecutiveSummary string                       `json:"executive_summary" schema:"required"`
	Recommendations  []OptimizationRecommendation `json:"recommendations"`
	NextSteps        []string                     `json:"next_steps"`
}

// Validate checks the constraints of the page-audit output that key
// presence alone does not cover. Empty strings are valid values.
func (o *PageAuditOutput) Validate() error {
	const schema = "PageAuditOutput"
	if o.AuditResults == nil {
		return missing(schema, "audit_results")
	}
	if o.TargetKeywords == nil {
		return missing(schema, "target_keywords")
	}
	if o.AuditResults.LinkCounts == nil {
		return missing(schema+".audit_results", "link_counts")
	}
	if wc := o.AuditResults.WordCount; wc != nil && *wc < 0 {
		return &ValidationError{Schema: schema + ".audit_results", Field: "word_count", Reason: "must not be negative"}
	}
	return nil
}

// Validate checks the competitor analysis.
func (s *SerpAnalysis) Validate() error {
	const schema = "SerpAnalysis"
	if s.TopResults == nil {
		return missing(schema, "top_10_results")
	}
	for i, r := range s.TopResults {
		if r.Rank < 1 {
			return &ValidationError{
				Schema: schema,
				Field:  fmt.Sprintf("top_10_results[%d].rank", i),
				Reason: "must be a positive integer",
			}
		}
	}
	return nil
}

// Validate checks the advisor output.
func (a *AdvisorOutput) Validate() error {
	for i, r := range a.Recommendations {
		path := fmt.Sprintf("AdvisorOutput.recommendations[%d]", i)
		if PriorityRank(r.Priority) > 2 {
			return &ValidationError{Schema: path, Field: "priority", Reason: fmt.Sprintf("unknown priority %q", r.Priority)}
		}
		if !ValidEffort(r.Effort) {
			return &ValidationError{Schema: path, Field: "effort", Reason: fmt.Sprintf("unknown effort %q", r.Effort)}
		}
	}
	return nil
}

// PriorityRank orders priorities for sorting; unknown values sort last.
func PriorityRank(priority string) int {
	switch strings.ToUpper(strings.TrimSpace(priority)) {
	case PriorityP0:
		return 0
	case PriorityP1:
		return 1
	case PriorityP2:
		return 2
	default:
		return 3
	}
}

// ValidEffort reports whether effort is low, medium or high, ignoring case.
func ValidEffort(effort string) bool {
	switch strings.ToLower(strings.TrimSpace(effort)) {
	case EffortLow, EffortMedium, EffortHigh:
		return true
	}
	return false
}

func missing(schema, field string) *ValidationError {
	return &ValidationError{Schema: schema, Field: field, Reason: "field required"}
}
