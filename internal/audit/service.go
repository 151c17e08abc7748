package audit

import (
	"context"
	"log/slog"
	"sync"
	"time"

	"github.com/nao1215/seoaudit/internal/config"
	"github.com/nao1215/seoaudit/internal/model"
	"github.com/nao1215/seoaudit/internal/pipeline"
)

// historySaveTimeout bounds the history write after a run, which happens
// even when the run's own context was cancelled.
const historySaveTimeout = 10 * time.Second

// HistoryStore persists finished runs. *database.RunDB implements it.
type HistoryStore interface {
	SaveRun(ctx context.Context, rec *model.RunRecord) error
}

// RunObserver is told about every finished run. *metrics.Metrics
// implements it.
type RunObserver interface {
	RunFinished(rec *model.RunRecord)
}

// Service runs audits.
type Service struct {
	newPipeline  func() *pipeline.Pipeline
	snapshotPath string
	history      HistoryStore
	observer     RunObserver
	logger       *slog.Logger

	// snapshotMu serializes snapshot writes from concurrent batch runs.
	snapshotMu sync.Mutex
}

// Option configures a Service.
type Option func(*Service)

// WithSnapshotPath sets where the final record is written.
// An empty path disables the snapshot.
func WithSnapshotPath(path string) Option {
	return func(s *Service) {
		s.snapshotPath = path
	}
}

// WithHistory saves every finished run to store.
func WithHistory(store HistoryStore) Option {
	return func(s *Service) {
		s.history = store
	}
}

// WithRunObserver registers an observer for finished runs.
func WithRunObserver(o RunObserver) Option {
	return func(s *Service) {
		s.observer = o
	}
}

// WithLogger sets a custom logger.
func WithLogger(logger *slog.Logger) Option {
	return func(s *Service) {
		s.logger = logger
	}
}

// NewService creates a Service. newPipeline is called once per run so
// runs never share pipeline state.
func NewService(newPipeline func() *pipeline.Pipeline, opts ...Option) *Service {
	s := &Service{
		newPipeline:  newPipeline,
		snapshotPath: config.DefaultSnapshotPath,
	}
	for _, opt := range opts {
		opt(s)
	}
	if s.logger == nil {
		s.logger = slog.Default()
	}
	return s
}

// ValidateURL checks that raw is an absolute http(s) URL with a host.
func ValidateURL(raw string) error {
	return config.ValidateTargetURL(raw)
}

// Run audits url and returns the completed record. It never returns nil.
func (s *Service) Run(ctx context.Context, url string) *model.RunRecord {
	return s.RunInto(ctx, model.NewRunRecord(url))
}

// RunInto audits rec.URL, extending the caller's initial record, and
// returns it.
func (s *Service) RunInto(ctx context.Context, rec *model.RunRecord) *model.RunRecord {
	if rec.StartedAt.IsZero() {
		rec.StartedAt = time.Now()
	}
	if rec.Errors == nil {
		rec.Errors = make([]string, 0)
	}

	if err := s.newPipeline().Execute(ctx, rec); err != nil {
		s.logger.Warn("run cancelled", "url", rec.URL, "error", err)
	}
	rec.FinishedAt = time.Now()

	s.finish(ctx, rec)
	return rec
}

// RunBatch audits urls with at most concurrency runs at a time and calls
// callback with each finished record. The error is non-nil only when ctx
// was cancelled.
func (s *Service) RunBatch(ctx context.Context, urls []string, concurrency int, callback func(rec *model.RunRecord, index int)) error {
	bp := pipeline.NewBatchProcessor(s.newPipeline,
		pipeline.WithConcurrency(concurrency),
		pipeline.WithBatchLogger(s.logger),
	)
	return bp.ProcessBatchWithCallback(ctx, urls, func(rec *model.RunRecord, index int) {
		s.finish(ctx, rec)
		if callback != nil {
			callback(rec, index)
		}
	})
}

// finish persists rec. Failures are logged and never reach the caller.
func (s *Service) finish(ctx context.Context, rec *model.RunRecord) {
	if s.snapshotPath != "" {
		s.snapshotMu.Lock()
		err := SaveSnapshot(s.snapshotPath, rec)
		s.snapshotMu.Unlock()
		if err != nil {
			s.logger.Warn("failed to write run snapshot",
				"path", s.snapshotPath,
				"error", err,
			)
		}
	}

	if s.history != nil {
		saveCtx, cancel := context.WithTimeout(context.WithoutCancel(ctx), historySaveTimeout)
		defer cancel()
		if err := s.history.SaveRun(saveCtx, rec); err != nil {
			s.logger.Warn("failed to save run history",
				"run", rec.ID,
				"error", err,
			)
		}
	}

	if s.observer != nil {
		s.observer.RunFinished(rec)
	}

	s.logger.Info("run finished",
		"run", rec.ID,
		"url", rec.URL,
		"degraded", rec.Degraded(),
		"errors", len(rec.Errors),
		"duration", rec.Duration(),
	)
}
