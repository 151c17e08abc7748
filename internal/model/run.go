package model

import (
	"errors"
	"strings"
	"time"

	"github.com/google/uuid"
)

// Stage names in execution order.
const (
	StagePageAudit          = "page_audit"
	StageCompetitorAnalysis = "competitor_analysis"
	StageReportSynthesis    = "report_synthesis"
)

// ErrFieldAlreadySet is returned when a stage tries to overwrite a field
// that an earlier stage already populated.
var ErrFieldAlreadySet = errors.New("run record field already set")

// RunRecord is the state of a single audit run.
// It is created once per run, extended in place by each stage, and
// persisted verbatim as the run snapshot.
//
// Stages only ever add to the record: results are written once through
// the Set* methods and failures are appended through AddError.
type RunRecord struct {
	// ID uniquely identifies the run. It is used as the history key.
	ID string `json:"id"`

	// URL is the audit target. It never changes after NewRunRecord.
	URL string `json:"url"`

	// PageAudit is the result of the page-audit stage.
	// Nil until that stage completes successfully.
	PageAudit *PageAuditOutput `json:"page_audit"`

	// SerpAnalysis is the result of the competitor-analysis stage.
	// Nil when the stage was skipped or failed.
	SerpAnalysis *SerpAnalysis `json:"serp_analysis"`

	// Report is the final Markdown report. Empty until report synthesis succeeds.
	Report string `json:"report"`

	// Errors holds one human-readable message per failed stage, in order.
	Errors []string `json:"errors"`

	// PerformedStages lists every stage the pipeline attempted, in order.
	PerformedStages []string `json:"performed_stages"`

	// SkippedStages lists stages bypassed by the skip policy.
	SkippedStages []string `json:"skipped_stages,omitempty"`

	// StartedAt and FinishedAt bracket the pipeline execution.
	StartedAt  time.Time `json:"started_at"`
	FinishedAt time.Time `json:"finished_at,omitzero"`
}

// NewRunRecord creates a fresh record for url with empty containers.
func NewRunRecord(url string) *RunRecord {
	return &RunRecord{
		ID:              uuid.NewString(),
		URL:             url,
		Errors:          make([]string, 0),
		PerformedStages: make([]string, 0),
		StartedAt:       time.Now(),
	}
}

// AddError appends a failure description. Entries are never removed.
func (r *RunRecord) AddError(msg string) {
	r.Errors = append(r.Errors, msg)
}

// SetPageAudit stores the page-audit result if none is stored yet.
func (r *RunRecord) SetPageAudit(audit *PageAuditOutput) error {
	if r.PageAudit != nil {
		return ErrFieldAlreadySet
	}
	r.PageAudit = audit
	return nil
}

// SetSerpAnalysis stores the competitor-analysis result if none is stored yet.
func (r *RunRecord) SetSerpAnalysis(serp *SerpAnalysis) error {
	if r.SerpAnalysis != nil {
		return ErrFieldAlreadySet
	}
	r.SerpAnalysis = serp
	return nil
}

// SetReport stores the final report if none is stored yet.
func (r *RunRecord) SetReport(report string) error {
	if r.Report != "" {
		return ErrFieldAlreadySet
	}
	r.Report = report
	return nil
}

// MarkPerformed records that the named stage was attempted.
func (r *RunRecord) MarkPerformed(stage string) {
	r.PerformedStages = append(r.PerformedStages, stage)
}

// MarkSkipped records that the named stage was bypassed.
func (r *RunRecord) MarkSkipped(stage string) {
	r.SkippedStages = append(r.SkippedStages, stage)
}

// WasSkipped reports whether the named stage was bypassed by the skip policy.
func (r *RunRecord) WasSkipped(stage string) bool {
	for _, s := range r.SkippedStages {
		if s == stage {
			return true
		}
	}
	return false
}

// HasPageAudit reports whether the page-audit stage produced a result.
func (r *RunRecord) HasPageAudit() bool {
	return r.PageAudit != nil
}

// HasSerpAnalysis reports whether the competitor-analysis stage produced a result.
func (r *RunRecord) HasSerpAnalysis() bool {
	return r.SerpAnalysis != nil
}

// PrimaryKeyword returns the keyword extracted by the page audit,
// or an empty string when there is none.
func (r *RunRecord) PrimaryKeyword() string {
	if r.PageAudit == nil || r.PageAudit.TargetKeywords == nil {
		return ""
	}
	return strings.TrimSpace(r.PageAudit.TargetKeywords.PrimaryKeyword)
}

// Degraded reports whether the run is missing any upstream data.
func (r *RunRecord) Degraded() bool {
	return !r.HasPageAudit() || !r.HasSerpAnalysis()
}

// HasErrors reports whether any stage failed.
func (r *RunRecord) HasErrors() bool {
	return len(r.Errors) > 0
}

// Duration returns how long the run took, or zero if it has not finished.
func (r *RunRecord) Duration() time.Duration {
	if r.FinishedAt.IsZero() {
		return 0
	}
	return r.FinishedAt.Sub(r.StartedAt)
}
