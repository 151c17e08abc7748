package audit

import (
	"fmt"
	"log/slog"

	"github.com/nao1215/seoaudit/internal/agent"
	"github.com/nao1215/seoaudit/internal/config"
	"github.com/nao1215/seoaudit/internal/database"
	"github.com/nao1215/seoaudit/internal/llm"
	"github.com/nao1215/seoaudit/internal/metrics"
	"github.com/nao1215/seoaudit/internal/pipeline"
	"github.com/nao1215/seoaudit/internal/retry"
	"github.com/nao1215/seoaudit/internal/scraper"
	"github.com/nao1215/seoaudit/internal/search"
)

// Stack is a configured Service together with the resources it owns.
type Stack struct {
	Service  *Service
	Metrics  *metrics.Metrics
	LLM      llm.Client
	Scraper  scraper.Scraper
	Searcher search.Searcher

	// History is nil when run history is disabled or could not be opened.
	History *database.RunDB
}

// Build selects providers from cfg and assembles the audit stack.
// It fails only when a required capability cannot be configured, most
// commonly when no language model API key is set (llm.ErrNoAPIKey).
// A history database that cannot be opened is logged and skipped.
func Build(cfg *config.Config, logger *slog.Logger) (*Stack, error) {
	model, err := llm.New(cfg)
	if err != nil {
		return nil, err
	}
	sc, err := scraper.New(cfg, logger)
	if err != nil {
		return nil, fmt.Errorf("configure scraper: %w", err)
	}
	se, err := search.New(cfg)
	if err != nil {
		return nil, fmt.Errorf("configure search: %w", err)
	}

	retrier := retry.New(retry.Policy{
		Attempts:    cfg.RetryAttempts,
		InitialWait: cfg.RetryInitialWait,
		MaxWait:     cfg.RetryMaxWait,
	}, retry.WithLogger(logger))

	agentOpts := []agent.Option{
		agent.WithLogger(logger),
		agent.WithMaxContentChars(cfg.MaxContentChars),
	}
	auditor := agent.NewPageAuditor(sc, model, retrier, agentOpts...)
	analyst := agent.NewSerpAnalyst(se, model, retrier, agentOpts...)
	advisor := agent.NewAdvisor(model, retrier, agentOpts...)

	m := metrics.New()
	newPipeline := func() *pipeline.Pipeline {
		return pipeline.NewAuditPipeline(auditor, analyst, advisor,
			pipeline.WithLogger(logger),
			pipeline.WithObserver(m),
		)
	}

	stack := &Stack{
		Metrics:  m,
		LLM:      model,
		Scraper:  sc,
		Searcher: se,
	}

	opts := []Option{
		WithSnapshotPath(cfg.SnapshotPath),
		WithRunObserver(m),
		WithLogger(logger),
	}
	if cfg.SaveHistory {
		db, err := database.Open(cfg.DBDir, database.DefaultOptions())
		if err != nil {
			logger.Warn("run history disabled", "dir", cfg.DBDir, "error", err)
		} else {
			stack.History = db
			opts = append(opts, WithHistory(db))
		}
	}

	stack.Service = NewService(newPipeline, opts...)

	logger.Debug("audit stack ready",
		"llm", model.Name(),
		"scraper", sc.Name(),
		"search", se.Name(),
		"history", stack.History != nil,
	)
	return stack, nil
}

// Close releases the history database, if any.
func (s *Stack) Close() error {
	if s.History == nil {
		return nil
	}
	return s.History.Close()
}
