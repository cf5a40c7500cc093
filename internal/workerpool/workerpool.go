// Package workerpool bounds phase concurrency with the errgroup+semaphore
// shape the rest of the Go ecosystem reaches for instead of a hand-rolled
// channel pool. The LLM-calling phases (filter, tag, synth, market,
// feature) size their pools from max_concurrent_llm (8 by default);
// Reddit fetching does not go through a Pool.
package workerpool

import (
	"context"
	"sync"

	"golang.org/x/sync/errgroup"
	"golang.org/x/sync/semaphore"

	"github.com/anton-mundy-ai/reddit-pain-finder-sub000/internal/telemetry"
)

// Pool runs a bounded number of items concurrently, stopping at the first
// per-item error only insofar as errgroup.Group cancels ctx for the
// remaining in-flight goroutines -- callers that want "log and continue"
// semantics (every pipeline phase) should swallow per-item errors inside
// fn and only return an error for conditions that should abort the batch,
// e.g. perr.KindStorage.
type Pool struct {
	sem *semaphore.Weighted
	n   int64
}

// New builds a Pool that runs at most concurrency items at once.
func New(concurrency int) *Pool {
	if concurrency < 1 {
		concurrency = 1
	}
	return &Pool{sem: semaphore.NewWeighted(int64(concurrency)), n: int64(concurrency)}
}

// Run calls fn(ctx, item) for every item, bounded by the pool's
// concurrency, and returns the first error any fn returned (others are
// still allowed to finish; errgroup cancels ctx for cooperative callers).
func Run[T any](ctx context.Context, p *Pool, items []T, fn func(ctx context.Context, item T) error) error {
	g, ctx := errgroup.WithContext(ctx)
	for _, item := range items {
		item := item
		if err := p.sem.Acquire(ctx, 1); err != nil {
			return err
		}
		g.Go(func() error {
			defer p.sem.Release(1)
			return fn(ctx, item)
		})
	}
	return g.Wait()
}

// RunBestEffort is like Run but collects per-item errors instead of
// aborting the batch on the first one -- the shape every pipeline phase
// actually wants per spec §7's "phase skips the item, logs, continues".
func RunBestEffort[T any](ctx context.Context, p *Pool, items []T, fn func(ctx context.Context, item T) error) []error {
	var sink errSink
	g, gctx := errgroup.WithContext(context.WithoutCancel(ctx))
	for _, item := range items {
		item := item
		if err := p.sem.Acquire(gctx, 1); err != nil {
			telemetry.Logger().Warn("workerpool: acquire failed, dropping item", "error", err)
			sink.add(err)
			continue
		}
		g.Go(func() error {
			defer p.sem.Release(1)
			if err := fn(gctx, item); err != nil {
				sink.add(err)
			}
			return nil
		})
	}
	_ = g.Wait()
	return sink.errs
}

type errSink struct {
	mu   sync.Mutex
	errs []error
}

func (s *errSink) add(err error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.errs = append(s.errs, err)
}
