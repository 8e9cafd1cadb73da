package jobs

import (
	"context"
	"fmt"
	"log/slog"
	"sync"
	"time"

	"github.com/toyscout/product-scraper/internal/executor"
	"github.com/toyscout/product-scraper/internal/models"
)

// BatchExecutor runs a batch of scrape requests, streaming each result to
// the sink as it lands. Satisfied by *executor.Executor.
type BatchExecutor interface {
	RunBatchAsync(ctx context.Context, requests []models.ScrapeRequest, maxWorkers int, sink executor.ResultSink)
}

// Runner drives asynchronous jobs against the executor. A bounded semaphore
// caps how many jobs scrape at once; submissions beyond the cap stay pending
// until a slot opens.
type Runner struct {
	store  *Store
	exec   BatchExecutor
	logger *slog.Logger
	sem    chan struct{}
	wg     sync.WaitGroup
}

func NewRunner(store *Store, exec BatchExecutor, maxConcurrent int, logger *slog.Logger) *Runner {
	if maxConcurrent < 1 {
		maxConcurrent = 1
	}
	return &Runner{
		store:  store,
		exec:   exec,
		logger: logger.With("component", "job_runner"),
		sem:    make(chan struct{}, maxConcurrent),
	}
}

// Submit schedules the job to run in the background and returns immediately.
// The goroutine is supervised: a panic anywhere in the batch moves the job
// to failed rather than killing the process.
func (r *Runner) Submit(ctx context.Context, jobID string, requests []models.ScrapeRequest, maxWorkers int) {
	r.wg.Add(1)
	go func() {
		defer r.wg.Done()
		defer func() {
			if rec := recover(); rec != nil {
				r.logger.Error("job panicked", "id", jobID, "panic", rec)
				_ = r.store.SetStatus(jobID, StatusFailed, fmt.Sprintf("internal error: %v", rec))
			}
		}()

		select {
		case r.sem <- struct{}{}:
		case <-ctx.Done():
			_ = r.store.SetStatus(jobID, StatusFailed, "cancelled before start: "+ctx.Err().Error())
			return
		}
		defer func() { <-r.sem }()

		if err := r.store.SetStatus(jobID, StatusInProgress, ""); err != nil {
			// Job was deleted (or raced to terminal) while queued.
			r.logger.Warn("job skipped", "id", jobID, "error", err)
			return
		}

		start := time.Now()
		r.exec.RunBatchAsync(ctx, requests, maxWorkers, func(index int, result models.ScrapeResult) {
			if err := r.store.SetResult(jobID, index, result); err != nil {
				r.logger.Warn("dropping result for missing job", "id", jobID, "index", index)
			}
		})

		if err := r.store.SetStatus(jobID, StatusCompleted, ""); err != nil {
			r.logger.Warn("job unavailable at completion", "id", jobID, "error", err)
			return
		}
		r.logger.Info("job finished", "id", jobID, "items", len(requests), "duration", time.Since(start).String())
	}()
}

// Wait blocks until every submitted job goroutine has returned. Used during
// shutdown and in tests.
func (r *Runner) Wait() {
	r.wg.Wait()
}

// StartReaper deletes stale jobs on a fixed interval until ctx is cancelled.
func StartReaper(ctx context.Context, store *Store, interval, maxAge time.Duration, logger *slog.Logger) {
	go func() {
		ticker := time.NewTicker(interval)
		defer ticker.Stop()
		for {
			select {
			case <-ctx.Done():
				return
			case <-ticker.C:
				store.Reap(maxAge)
			}
		}
	}()
}
