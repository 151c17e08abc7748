package agent

import (
	"context"
	"fmt"

	"github.com/nao1215/seoaudit/internal/llm"
	"github.com/nao1215/seoaudit/internal/model"
	"github.com/nao1215/seoaudit/internal/retry"
	"github.com/nao1215/seoaudit/internal/scraper"
)

// PageAuditor scrapes a page and produces its structured audit.
type PageAuditor struct {
	scraper scraper.Scraper
	model   llm.Client
	retrier *retry.Retrier
	opts    options
}

// NewPageAuditor creates a PageAuditor.
func NewPageAuditor(s scraper.Scraper, m llm.Client, r *retry.Retrier, opts ...Option) *PageAuditor {
	return &PageAuditor{scraper: s, model: m, retrier: r, opts: newOptions(opts)}
}

type pageAuditPrompt struct {
	URL     string
	Page    *model.PageContent
	Content string
}

// Run audits url.
func (a *PageAuditor) Run(ctx context.Context, url string) (*model.PageAuditOutput, error) {
	page, err := retry.Do(ctx, a.retrier, "scrape", func(ctx context.Context) (*model.PageContent, error) {
		return a.scraper.Scrape(ctx, url)
	})
	if err != nil {
		return nil, fmt.Errorf("%w: scrape %s: %w", ErrToolFailure, url, err)
	}
	a.opts.logger.Debug("page scraped",
		"url", url,
		"source", page.Source,
		"chars", len(page.Markdown),
	)

	system, err := render("page_auditor_system", nil)
	if err != nil {
		return nil, err
	}
	user, err := render("page_auditor_user", pageAuditPrompt{
		URL:     url,
		Page:    page,
		Content: truncateRunes(page.Markdown, a.opts.maxContentChars),
	})
	if err != nil {
		return nil, err
	}

	out, err := retry.Do(ctx, a.retrier, "page audit", func(ctx context.Context) (*model.PageAuditOutput, error) {
		raw, err := a.model.Complete(ctx, llm.Request{System: system, User: user, JSON: true})
		if err != nil {
			return nil, fmt.Errorf("language model %s: %w", a.model.Name(), err)
		}
		return model.Decode[model.PageAuditOutput](raw)
	})
	if err != nil {
		return nil, err
	}

	// The parsed count is more reliable than the model's estimate.
	if out.AuditResults.WordCount == nil && page.OnPage != nil && page.OnPage.WordCount > 0 {
		wc := page.OnPage.WordCount
		out.AuditResults.WordCount = &wc
	}
	return out, nil
}
