package pipeline

import (
	"context"
	"fmt"
	"log/slog"

	"github.com/nao1215/seoaudit/internal/agent"
	"github.com/nao1215/seoaudit/internal/model"
	"github.com/nao1215/seoaudit/internal/report"
)

// PageAuditor produces the structured audit of a URL.
// *agent.PageAuditor implements it.
type PageAuditor interface {
	Run(ctx context.Context, url string) (*model.PageAuditOutput, error)
}

// SerpAnalyst analyzes the competition for an audit's primary keyword.
// *agent.SerpAnalyst implements it.
type SerpAnalyst interface {
	Run(ctx context.Context, audit *model.PageAuditOutput) (*model.SerpAnalysis, error)
}

// Advisor produces prioritized recommendations.
// *agent.Advisor implements it.
type Advisor interface {
	Run(ctx context.Context, in agent.AdvisorInput) (*model.AdvisorOutput, error)
}

// StepOption configures the logger of a stage step.
type StepOption func(*stepOptions)

type stepOptions struct {
	logger *slog.Logger
}

// WithStepLogger sets a custom logger for a stage step.
func WithStepLogger(logger *slog.Logger) StepOption {
	return func(o *stepOptions) {
		o.logger = logger
	}
}

func newStepOptions(opts []StepOption) stepOptions {
	o := stepOptions{logger: slog.Default()}
	for _, opt := range opts {
		opt(&o)
	}
	return o
}

// PageAuditStep is the first stage. It scrapes the target and stores the
// structured audit in the record.
type PageAuditStep struct {
	auditor PageAuditor
	opts    stepOptions
}

// NewPageAuditStep creates the page-audit stage.
func NewPageAuditStep(auditor PageAuditor, opts ...StepOption) *PageAuditStep {
	return &PageAuditStep{auditor: auditor, opts: newStepOptions(opts)}
}

// Name returns the step name.
func (s *PageAuditStep) Name() string {
	return model.StagePageAudit
}

// Do executes the page audit.
func (s *PageAuditStep) Do(ctx context.Context, rec *model.RunRecord) error {
	audit, err := s.auditor.Run(ctx, rec.URL)
	if err != nil {
		return err
	}
	s.opts.logger.Debug("page audited",
		"url", rec.URL,
		"primary_keyword", audit.TargetKeywords.PrimaryKeyword,
	)
	return rec.SetPageAudit(audit)
}

// CompetitorAnalysisStep is the second stage. It runs only when the page
// audit produced a primary keyword.
type CompetitorAnalysisStep struct {
	analyst SerpAnalyst
	opts    stepOptions
}

// NewCompetitorAnalysisStep creates the competitor-analysis stage.
func NewCompetitorAnalysisStep(analyst SerpAnalyst, opts ...StepOption) *CompetitorAnalysisStep {
	return &CompetitorAnalysisStep{analyst: analyst, opts: newStepOptions(opts)}
}

// Name returns the step name.
func (s *CompetitorAnalysisStep) Name() string {
	return model.StageCompetitorAnalysis
}

// Do executes the competitor analysis, or returns ErrSkipped when there is
// no keyword to search for.
func (s *CompetitorAnalysisStep) Do(ctx context.Context, rec *model.RunRecord) error {
	if rec.PrimaryKeyword() == "" {
		return fmt.Errorf("%w: no primary keyword", ErrSkipped)
	}
	serp, err := s.analyst.Run(ctx, rec.PageAudit)
	if err != nil {
		return err
	}
	s.opts.logger.Debug("competitors analyzed",
		"url", rec.URL,
		"results", len(serp.TopResults),
	)
	return rec.SetSerpAnalysis(serp)
}

// ReportSynthesisStep is the final stage. It always runs, handing the
// advisor whatever data exists together with notes on what is missing,
// and stores the composed Markdown report.
type ReportSynthesisStep struct {
	advisor Advisor
	opts    stepOptions
}

// NewReportSynthesisStep creates the report-synthesis stage.
func NewReportSynthesisStep(advisor Advisor, opts ...StepOption) *ReportSynthesisStep {
	return &ReportSynthesisStep{advisor: advisor, opts: newStepOptions(opts)}
}

// Name returns the step name.
func (s *ReportSynthesisStep) Name() string {
	return model.StageReportSynthesis
}

// Do executes the report synthesis.
func (s *ReportSynthesisStep) Do(ctx context.Context, rec *model.RunRecord) error {
	advice, err := s.advisor.Run(ctx, agent.AdvisorInput{
		URL:              rec.URL,
		PageAudit:        rec.PageAudit,
		SerpAnalysis:     rec.SerpAnalysis,
		PageAuditNote:    report.PageAuditGap(rec),
		SerpAnalysisNote: report.SerpAnalysisGap(rec),
	})
	if err != nil {
		return err
	}
	s.opts.logger.Debug("report synthesized",
		"url", rec.URL,
		"recommendations", len(advice.Recommendations),
		"degraded", rec.Degraded(),
	)
	return rec.SetReport(report.Compose(rec, advice))
}

// NewAuditPipeline assembles the three stages in their fixed order.
func NewAuditPipeline(auditor PageAuditor, analyst SerpAnalyst, advisor Advisor, opts ...Option) *Pipeline {
	p := New(opts...)
	stepOpts := []StepOption{WithStepLogger(p.logger)}
	p.AddSteps(
		NewPageAuditStep(auditor, stepOpts...),
		NewCompetitorAnalysisStep(analyst, stepOpts...),
		NewReportSynthesisStep(advisor, stepOpts...),
	)
	return p
}
