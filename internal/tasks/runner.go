// Package tasks runs background work with bounded retries of transient failures.
package tasks

import (
	"context"
	"sync"
	"time"

	"github.com/failsafe-go/failsafe-go"
	"github.com/failsafe-go/failsafe-go/retrypolicy"

	"github.com/Champ-Deep/ChampMail-sub000/internal/config"
	"github.com/Champ-Deep/ChampMail-sub000/internal/logging"
)

// Func is one unit of work
type Func func(ctx context.Context) error

// Runner executes tasks, retrying transient errors with a fixed delay
type Runner struct {
	maxAttempts int
	delay       time.Duration
	logger      logging.Logger

	wg sync.WaitGroup
}

// NewRunner creates a runner. MaxAttempts below 1 means a single attempt.
func NewRunner(cfg config.RetryConfig, logger logging.Logger) *Runner {
	if cfg.MaxAttempts < 1 {
		cfg.MaxAttempts = 1
	}
	if logger == nil {
		logger = logging.NewNopLogger()
	}
	return &Runner{maxAttempts: cfg.MaxAttempts, delay: cfg.Delay.Duration, logger: logger}
}

func (r *Runner) policy(name string) retrypolicy.RetryPolicy[any] {
	builder := retrypolicy.NewBuilder[any]().
		HandleIf(func(_ any, err error) bool { return IsTransient(err) }).
		WithMaxAttempts(r.maxAttempts).
		ReturnLastFailure().
		OnRetry(func(e failsafe.ExecutionEvent[any]) {
			r.logger.WithFields(logging.Fields{"task": name, "attempt": e.Attempts()}).
				WithError(e.LastError()).Warn("Retrying task after transient failure")
		})
	if r.delay > 0 {
		builder = builder.WithDelay(r.delay)
	}
	return builder.Build()
}

// Run executes fn until it succeeds, fails permanently or runs out of attempts
func (r *Runner) Run(ctx context.Context, name string, fn Func) error {
	return failsafe.With[any](r.policy(name)).WithContext(ctx).Run(func() error {
		return fn(ctx)
	})
}

// Go runs fn in the background, detached from the caller's cancellation
func (r *Runner) Go(ctx context.Context, name string, fn Func) {
	ctx = context.WithoutCancel(ctx)
	r.wg.Add(1)
	go func() {
		defer r.wg.Done()
		started := time.Now()
		log := r.logger.WithField("task", name)
		if err := r.Run(ctx, name, fn); err != nil {
			log.WithError(err).WithField("duration", time.Since(started).String()).Error("Task failed")
			return
		}
		log.WithField("duration", time.Since(started).String()).Info("Task completed")
	}()
}

// Wait blocks until every background task has finished
func (r *Runner) Wait() {
	r.wg.Wait()
}
