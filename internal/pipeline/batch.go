package pipeline

import (
	"context"
	"log/slog"
	"time"

	"github.com/nao1215/seoaudit/internal/model"
	"golang.org/x/sync/errgroup"
)

// DefaultConcurrency is the number of URLs audited at once when no limit
// is configured. Search and language model APIs rate-limit aggressively,
// so it is kept low.
const DefaultConcurrency = 2

// BatchProcessor audits multiple URLs concurrently.
// Each URL runs through a fresh Pipeline and its own RunRecord.
type BatchProcessor struct {
	// pipelineFactory creates a new pipeline for each URL.
	pipelineFactory func() *Pipeline

	// concurrency is the maximum number of concurrent runs.
	concurrency int

	logger *slog.Logger
}

// BatchOption configures a BatchProcessor.
type BatchOption func(*BatchProcessor)

// WithBatchLogger sets a custom logger for batch processing.
func WithBatchLogger(logger *slog.Logger) BatchOption {
	return func(b *BatchProcessor) {
		b.logger = logger
	}
}

// WithConcurrency sets the maximum number of concurrent runs.
// Non-positive values keep the default.
func WithConcurrency(n int) BatchOption {
	return func(b *BatchProcessor) {
		if n > 0 {
			b.concurrency = n
		}
	}
}

// NewBatchProcessor creates a new BatchProcessor.
func NewBatchProcessor(pipelineFactory func() *Pipeline, opts ...BatchOption) *BatchProcessor {
	bp := &BatchProcessor{
		pipelineFactory: pipelineFactory,
		concurrency:     DefaultConcurrency,
	}
	for _, opt := range opts {
		opt(bp)
	}
	if bp.logger == nil {
		bp.logger = slog.Default()
	}
	return bp
}

// ProcessBatch audits every URL and returns the records in input order.
// A record is returned for every URL that was started, even when its
// stages failed. The error is non-nil only when the context was cancelled.
func (bp *BatchProcessor) ProcessBatch(ctx context.Context, urls []string) ([]*model.RunRecord, error) {
	results := make([]*model.RunRecord, len(urls))
	err := bp.ProcessBatchWithCallback(ctx, urls, func(rec *model.RunRecord, index int) {
		// Each index is written by exactly one goroutine.
		results[index] = rec
	})
	return results, err
}

// ProcessBatchWithCallback audits every URL and calls callback with each
// finished record and the index of its URL. The callback runs on the
// goroutine that finished the run, so it must be safe for concurrent use.
func (bp *BatchProcessor) ProcessBatchWithCallback(
	ctx context.Context,
	urls []string,
	callback func(rec *model.RunRecord, index int),
) error {
	bp.logger.Info("starting batch processing",
		"total_urls", len(urls),
		"concurrency", bp.concurrency,
	)
	startTime := time.Now()

	g, ctx := errgroup.WithContext(ctx)
	g.SetLimit(bp.concurrency)

	for i, url := range urls {
		g.Go(func() error {
			if err := ctx.Err(); err != nil {
				return err
			}

			bp.logger.Info("auditing url",
				"url", url,
				"index", i+1,
				"total", len(urls),
			)

			rec := model.NewRunRecord(url)
			if err := bp.pipelineFactory().Execute(ctx, rec); err != nil {
				bp.logger.Warn("run cancelled", "url", url, "error", err)
			}
			rec.FinishedAt = time.Now()

			callback(rec, i)

			// Stage failures live in the record; they must not cancel
			// the other runs.
			return nil
		})
	}

	err := g.Wait()
	bp.logger.Info("batch processing complete",
		"total_urls", len(urls),
		"elapsed", time.Since(startTime),
	)
	return err
}
