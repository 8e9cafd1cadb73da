// Package executor fans a batch of scrape requests out across a bounded
// worker pool. Results land in pre-sized slots keyed by each item's original
// index, so output order always mirrors input order no matter how workers
// finish.
package executor

import (
	"context"
	"fmt"
	"log/slog"
	"sync"
	"time"

	"golang.org/x/time/rate"

	"github.com/toyscout/product-scraper/internal/models"
)

// ItemResolver resolves one request into one result without ever returning
// an error. Satisfied by *resolver.Resolver.
type ItemResolver interface {
	Resolve(req models.ScrapeRequest) models.ScrapeResult
}

// ResultSink receives a completed result for the item at the given input
// index. RunBatchAsync streams results into a sink (the job store) as
// workers finish.
type ResultSink func(index int, result models.ScrapeResult)

// Executor runs batches against a shared resolver.
type Executor struct {
	resolver ItemResolver
	logger   *slog.Logger

	// limiter, when set, paces worker dispatch for politeness against the
	// target sites. Nil means full speed.
	limiter *rate.Limiter
}

func New(resolver ItemResolver, logger *slog.Logger) *Executor {
	return &Executor{
		resolver: resolver,
		logger:   logger.With("component", "executor"),
	}
}

// SetItemDelay spaces worker dispatches at least d apart. A zero or negative
// d disables pacing.
func (e *Executor) SetItemDelay(d time.Duration) {
	if d <= 0 {
		e.limiter = nil
		return
	}
	e.limiter = rate.NewLimiter(rate.Every(d), 1)
}

// RunBatch resolves every request concurrently under the maxWorkers bound
// and returns results in input order. Every input index yields exactly one
// result; item failures are encoded in the result, never propagated.
func (e *Executor) RunBatch(ctx context.Context, requests []models.ScrapeRequest, maxWorkers int) []models.ScrapeResult {
	results := make([]models.ScrapeResult, len(requests))
	e.run(ctx, requests, maxWorkers, func(index int, result models.ScrapeResult) {
		results[index] = result
	})
	return results
}

// RunBatchAsync resolves every request concurrently, streaming each result
// into the sink as it completes. Blocks until the whole batch is done.
func (e *Executor) RunBatchAsync(ctx context.Context, requests []models.ScrapeRequest, maxWorkers int, sink ResultSink) {
	e.run(ctx, requests, maxWorkers, sink)
}

func (e *Executor) run(ctx context.Context, requests []models.ScrapeRequest, maxWorkers int, sink ResultSink) {
	if len(requests) == 0 {
		return
	}
	if maxWorkers < 1 {
		maxWorkers = 1
	}

	e.logger.Info("starting batch", "items", len(requests), "max_workers", maxWorkers)

	sem := make(chan struct{}, maxWorkers)
	var wg sync.WaitGroup

	for i, req := range requests {
		if e.limiter != nil {
			e.limiter.Wait(ctx)
		}

		wg.Add(1)
		sem <- struct{}{}

		go func(index int, request models.ScrapeRequest) {
			defer wg.Done()
			defer func() { <-sem }()

			sink(index, e.resolveSafe(index, request))
		}(i, req)
	}

	wg.Wait()
	e.logger.Info("batch complete", "items", len(requests))
}

// resolveSafe guards against panics escaping a resolver call. A slot must
// be filled for every index regardless, so an unexpected panic becomes a
// generic error result instead of a hole in the output.
func (e *Executor) resolveSafe(index int, req models.ScrapeRequest) (result models.ScrapeResult) {
	defer func() {
		if r := recover(); r != nil {
			e.logger.Error("worker panic", "index", index, "panic", r)
			result = models.ErrorResult(req, fmt.Sprintf("internal error while processing item: %v", r))
		}
	}()
	return e.resolver.Resolve(req)
}
