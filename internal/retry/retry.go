package retry

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"math"
	"time"

	"github.com/cenkalti/backoff/v4"
)

// Default policy values.
const (
	// DefaultAttempts is the total number of calls, including the first one.
	DefaultAttempts = 3

	// DefaultInitialWait is the pause after the first failure.
	DefaultInitialWait = 4 * time.Second

	// DefaultMaxWait caps the pause between attempts.
	DefaultMaxWait = 10 * time.Second
)

// Policy describes how many times to call an operation and how long to
// wait between calls. The wait doubles after every failure up to MaxWait.
type Policy struct {
	Attempts    int
	InitialWait time.Duration
	MaxWait     time.Duration
}

// DefaultPolicy returns a policy of 3 attempts waiting 4s and then 8s.
func DefaultPolicy() Policy {
	return Policy{
		Attempts:    DefaultAttempts,
		InitialWait: DefaultInitialWait,
		MaxWait:     DefaultMaxWait,
	}
}

// Wait returns the pause after the given failed attempt (1-based).
func (p Policy) Wait(attempt int) time.Duration {
	if attempt < 1 {
		return 0
	}
	b := p.backOff()
	var wait time.Duration
	for range attempt {
		wait = b.NextBackOff()
	}
	return wait
}

// backOff returns the exponential schedule of p without jitter or an
// elapsed time limit. The number of attempts is enforced by Run.
func (p Policy) backOff() *backoff.ExponentialBackOff {
	initial := max(p.InitialWait, 0)
	maxWait := p.MaxWait
	if maxWait <= 0 {
		maxWait = time.Duration(math.MaxInt64)
	}
	b := &backoff.ExponentialBackOff{
		InitialInterval:     initial,
		RandomizationFactor: 0,
		Multiplier:          2,
		MaxInterval:         maxWait,
		MaxElapsedTime:      0,
		Stop:                backoff.Stop,
		Clock:               backoff.SystemClock,
	}
	b.Reset()
	return b
}

// Sleeper pauses for d or until ctx is done.
type Sleeper func(ctx context.Context, d time.Duration) error

// sleep is the default Sleeper.
func sleep(ctx context.Context, d time.Duration) error {
	if d <= 0 {
		return ctx.Err()
	}
	timer := time.NewTimer(d)
	defer timer.Stop()
	select {
	case <-ctx.Done():
		return ctx.Err()
	case <-timer.C:
		return nil
	}
}

// Retrier executes operations under a Policy.
type Retrier struct {
	policy  Policy
	sleep   Sleeper
	logger  *slog.Logger
	onRetry func(attempt int, err error, wait time.Duration)
}

// Option configures a Retrier.
type Option func(*Retrier)

// WithSleeper replaces the function used to wait between attempts.
func WithSleeper(s Sleeper) Option {
	return func(r *Retrier) {
		r.sleep = s
	}
}

// WithLogger sets the logger that records failed attempts.
func WithLogger(logger *slog.Logger) Option {
	return func(r *Retrier) {
		r.logger = logger
	}
}

// WithOnRetry registers a callback invoked before each wait.
func WithOnRetry(fn func(attempt int, err error, wait time.Duration)) Option {
	return func(r *Retrier) {
		r.onRetry = fn
	}
}

// New creates a Retrier. A policy with fewer than one attempt is treated as
// a single attempt.
func New(policy Policy, opts ...Option) *Retrier {
	if policy.Attempts < 1 {
		policy.Attempts = 1
	}
	r := &Retrier{
		policy: policy,
		sleep:  sleep,
		logger: slog.Default(),
	}
	for _, opt := range opts {
		opt(r)
	}
	return r
}

// Policy returns the policy the Retrier was created with.
func (r *Retrier) Policy() Policy {
	return r.policy
}

// Run calls fn until it succeeds or the attempts are exhausted.
// The error of the final attempt is returned as is. When ctx ends between
// attempts the last error is returned wrapped together with ctx.Err().
func (r *Retrier) Run(ctx context.Context, name string, fn func(ctx context.Context) error) error {
	var (
		attempt int
		lastErr error
	)
	timer := &sleepTimer{ctx: ctx, sleep: r.sleep}

	operation := func() error {
		if timer.err != nil {
			return backoff.Permanent(timer.err)
		}
		if err := ctx.Err(); err != nil {
			return backoff.Permanent(err)
		}

		attempt++
		lastErr = fn(ctx)
		if lastErr == nil {
			return nil
		}
		if attempt >= r.policy.Attempts {
			r.logger.Warn("operation failed after retries",
				"operation", name,
				"attempts", attempt,
				"error", lastErr,
			)
			return backoff.Permanent(lastErr)
		}
		return lastErr
	}

	notify := func(err error, wait time.Duration) {
		r.logger.Debug("attempt failed, retrying",
			"operation", name,
			"attempt", attempt,
			"maxAttempts", r.policy.Attempts,
			"wait", wait,
			"error", err,
		)
		if r.onRetry != nil {
			r.onRetry(attempt, err, wait)
		}
	}

	err := backoff.RetryNotifyWithTimer(operation, backoff.WithContext(r.policy.backOff(), ctx), notify, timer)
	if err != nil && lastErr != nil && !errors.Is(err, lastErr) {
		return fmt.Errorf("%w (retry cancelled: %w)", lastErr, err)
	}
	return err
}

// sleepTimer adapts a Sleeper to backoff.Timer. Start blocks for the
// whole wait; a Sleeper error stops the next attempt.
type sleepTimer struct {
	ctx   context.Context
	sleep Sleeper
	c     chan time.Time
	err   error
}

func (t *sleepTimer) Start(d time.Duration) {
	t.c = make(chan time.Time, 1)
	t.err = t.sleep(t.ctx, d)
	t.c <- time.Now()
}

func (t *sleepTimer) Stop() {}

func (t *sleepTimer) C() <-chan time.Time {
	return t.c
}

// Do is the value-returning form of Retrier.Run.
func Do[T any](ctx context.Context, r *Retrier, name string, fn func(ctx context.Context) (T, error)) (T, error) {
	var result T
	err := r.Run(ctx, name, func(ctx context.Context) error {
		v, err := fn(ctx)
		if err != nil {
			return err
		}
		result = v
		return nil
	})
	if err != nil {
		var zero T
		return zero, err
	}
	return result, nil
}
