package agent

import (
	"context"
	"fmt"

	"github.com/nao1215/seoaudit/internal/llm"
	"github.com/nao1215/seoaudit/internal/model"
	"github.com/nao1215/seoaudit/internal/retry"
)

// AdvisorInput is everything the advisor may draw on. Either data field may
// be nil, in which case the matching note explains why.
type AdvisorInput struct {
	URL              string
	PageAudit        *model.PageAuditOutput
	SerpAnalysis     *model.SerpAnalysis
	PageAuditNote    string
	SerpAnalysisNote string
}

// Advisor synthesizes prioritized recommendations.
type Advisor struct {
	model   llm.Client
	retrier *retry.Retrier
	opts    options
}

// NewAdvisor creates an Advisor.
func NewAdvisor(m llm.Client, r *retry.Retrier, opts ...Option) *Advisor {
	return &Advisor{model: m, retrier: r, opts: newOptions(opts)}
}

// Run asks the model for recommendations. Missing inputs are declared as
// not available in the prompt.
func (a *Advisor) Run(ctx context.Context, in AdvisorInput) (*model.AdvisorOutput, error) {
	system, err := render("advisor_system", nil)
	if err != nil {
		return nil, err
	}
	user, err := render("advisor_user", in)
	if err != nil {
		return nil, err
	}
	a.opts.logger.Debug("synthesizing report",
		"url", in.URL,
		"has_page_audit", in.PageAudit != nil,
		"has_serp_analysis", in.SerpAnalysis != nil,
	)

	return retry.Do(ctx, a.retrier, "advice", func(ctx context.Context) (*model.AdvisorOutput, error) {
		raw, err := a.model.Complete(ctx, llm.Request{System: system, User: user, JSON: true})
		if err != nil {
			return nil, fmt.Errorf("language model %s: %w", a.model.Name(), err)
		}
		return model.Decode[model.AdvisorOutput](raw)
	})
}
