package agent

import (
	"context"
	"fmt"

	"github.com/nao1215/seoaudit/internal/llm"
	"github.com/nao1215/seoaudit/internal/model"
	"github.com/nao1215/seoaudit/internal/retry"
	"github.com/nao1215/seoaudit/internal/search"
)

// SerpAnalyst searches the audited page's primary keyword and analyzes the
// ranking competition.
type SerpAnalyst struct {
	searcher search.Searcher
	model    llm.Client
	retrier  *retry.Retrier
	opts     options
}

// NewSerpAnalyst creates a SerpAnalyst.
func NewSerpAnalyst(s search.Searcher, m llm.Client, r *retry.Retrier, opts ...Option) *SerpAnalyst {
	return &SerpAnalyst{searcher: s, model: m, retrier: r, opts: newOptions(opts)}
}

type serpPrompt struct {
	Keyword  string
	Keywords *model.TargetKeywords
	Results  []model.SearchResult
}

// Run analyzes the competition for the audit's primary keyword.
func (a *SerpAnalyst) Run(ctx context.Context, audit *model.PageAuditOutput) (*model.SerpAnalysis, error) {
	if audit == nil || audit.TargetKeywords == nil {
		return nil, ErrNoKeyword
	}
	keyword := audit.TargetKeywords.PrimaryKeyword
	if keyword == "" {
		return nil, ErrNoKeyword
	}

	results, err := retry.Do(ctx, a.retrier, "search", func(ctx context.Context) ([]model.SearchResult, error) {
		results, err := a.searcher.Search(ctx, keyword)
		if err != nil {
			return nil, err
		}
		if len(results) == 0 {
			return nil, fmt.Errorf("%w %q", ErrNoSearchResults, keyword)
		}
		return results, nil
	})
	if err != nil {
		return nil, fmt.Errorf("%w: search %s: %w", ErrToolFailure, a.searcher.Name(), err)
	}
	a.opts.logger.Debug("search completed", "keyword", keyword, "results", len(results))

	system, err := render("serp_analyst_system", nil)
	if err != nil {
		return nil, err
	}
	user, err := render("serp_analyst_user", serpPrompt{
		Keyword:  keyword,
		Keywords: audit.TargetKeywords,
		Results:  results,
	})
	if err != nil {
		return nil, err
	}

	return retry.Do(ctx, a.retrier, "serp analysis", func(ctx context.Context) (*model.SerpAnalysis, error) {
		raw, err := a.model.Complete(ctx, llm.Request{System: system, User: user, JSON: true})
		if err != nil {
			return nil, fmt.Errorf("language model %s: %w", a.model.Name(), err)
		}
		return model.Decode[model.SerpAnalysis](raw)
	})
}
