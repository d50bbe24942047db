// Package tasks runs fire-and-forget jobs. Submit returns immediately;
// job failures are logged here and never reach the submitting operation.
package tasks

import (
	"context"
	"log/slog"
	"sync"
	"time"
)

const defaultTimeout = 30 * time.Second

type Runner struct {
	log     *slog.Logger
	timeout time.Duration
	wg      sync.WaitGroup
}

func NewRunner(log *slog.Logger) *Runner {
	return &Runner{log: log, timeout: defaultTimeout}
}

func (r *Runner) Submit(name string, fn func(ctx context.Context) error) {
	r.wg.Add(1)
	go func() {
		defer r.wg.Done()
		defer func() {
			if rec := recover(); rec != nil {
				r.log.Error("task panicked", "task", name, "panic", rec)
			}
		}()

		ctx, cancel := context.WithTimeout(context.Background(), r.timeout)
		defer cancel()

		if err := fn(ctx); err != nil {
			r.log.Error("task failed", "task", name, "error", err)
		}
	}()
}

// Wait blocks until all submitted jobs finish. Used on shutdown and in
// tests; request paths never call it.
func (r *Runner) Wait() {
	r.wg.Wait()
}
