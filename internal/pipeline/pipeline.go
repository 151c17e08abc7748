package pipeline

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"time"

	seolog "github.com/nao1215/seoaudit/internal/log"
	"github.com/nao1215/seoaudit/internal/model"
)

// Step is one stage of the audit.
type Step interface {
	// Do executes the stage against the record. Results are written to the
	// record; a returned error is recorded by the Pipeline. ErrSkipped
	// means the stage chose not to run.
	Do(ctx context.Context, rec *model.RunRecord) error

	// Name returns the stage name used in errors, logs and metrics.
	Name() string
}

// Outcome is the result of a single stage execution.
type Outcome string

// Stage outcomes reported to an Observer.
const (
	OutcomeSuccess Outcome = "success"
	OutcomeSkipped Outcome = "skipped"
	OutcomeFailure Outcome = "failure"
)

// Observer is notified after every stage. It must be safe for concurrent
// use when pipelines run in a batch.
type Observer interface {
	StageFinished(stage string, outcome Outcome, d time.Duration)
}

// Pipeline orchestrates the execution of the stages.
type Pipeline struct {
	steps    []Step
	logger   *slog.Logger
	observer Observer
}

// Option is a function that configures a Pipeline.
type Option func(*Pipeline)

// WithLogger sets a custom logger for the pipeline.
func WithLogger(logger *slog.Logger) Option {
	return func(p *Pipeline) {
		p.logger = logger
	}
}

// WithObserver registers an observer for stage outcomes.
func WithObserver(o Observer) Option {
	return func(p *Pipeline) {
		p.observer = o
	}
}

// New creates a new Pipeline with the given options.
// Steps should be added using AddStep after creation.
func New(opts ...Option) *Pipeline {
	p := &Pipeline{
		steps: make([]Step, 0),
	}
	for _, opt := range opts {
		opt(p)
	}
	if p.logger == nil {
		p.logger = slog.Default()
	}
	return p
}

// AddStep appends a step to the pipeline.
// Steps are executed in the order they are added.
func (p *Pipeline) AddStep(step Step) {
	p.steps = append(p.steps, step)
}

// AddSteps appends multiple steps to the pipeline.
func (p *Pipeline) AddSteps(steps ...Step) {
	p.steps = append(p.steps, steps...)
}

// Execute runs all steps in sequence. Step failures are appended to
// rec.Errors and never stop the run.
//
// Cancellation is checked before each step. When the context is done the
// remaining steps are abandoned, "run cancelled" is recorded and the
// context error is returned. Otherwise Execute returns nil.
func (p *Pipeline) Execute(ctx context.Context, rec *model.RunRecord) error {
	for _, step := range p.steps {
		if err := ctx.Err(); err != nil {
			p.logger.Warn("pipeline cancelled",
				"step", step.Name(),
				"url", rec.URL,
				"reason", err,
			)
			rec.AddError(fmt.Sprintf("%v before %s: %v", ErrRunCancelled, step.Name(), err))
			return err
		}

		p.logger.Info("executing step",
			"step", step.Name(),
			"url", rec.URL,
		)

		start := time.Now()
		err := p.runStep(ctx, step, rec)
		elapsed := time.Since(start)

		outcome := OutcomeSuccess
		switch {
		case errors.Is(err, ErrSkipped):
			outcome = OutcomeSkipped
			rec.MarkSkipped(step.Name())
			p.logger.Info("step skipped",
				"step", step.Name(),
				"url", rec.URL,
				"reason", err,
			)
		case err != nil:
			outcome = OutcomeFailure
			rec.MarkPerformed(step.Name())
			stageErr := NewStageError(step.Name(), err)
			rec.AddError(seolog.Redact(stageErr.Error()))
			p.logger.Error("step failed",
				"step", step.Name(),
				"url", rec.URL,
				"kind", stageErr.Kind,
				"error", err,
			)
		default:
			rec.MarkPerformed(step.Name())
			p.logger.Debug("step completed",
				"step", step.Name(),
				"url", rec.URL,
				"elapsed", elapsed,
			)
		}

		if p.observer != nil {
			p.observer.StageFinished(step.Name(), outcome, elapsed)
		}
	}
	return nil
}

// runStep isolates a step so that a panic becomes a stage failure.
func (p *Pipeline) runStep(ctx context.Context, step Step, rec *model.RunRecord) (err error) {
	defer func() {
		if r := recover(); r != nil {
			err = fmt.Errorf("%w: %v", ErrStagePanic, r)
		}
	}()
	return step.Do(ctx, rec)
}

// StepCount returns the number of steps in the pipeline.
func (p *Pipeline) StepCount() int {
	return len(p.steps)
}

// StepNames returns the names of all steps in execution order.
func (p *Pipeline) StepNames() []string {
	names := make([]string, len(p.steps))
	for i, step := range p.steps {
		names[i] = step.Name()
	}
	return names
}
