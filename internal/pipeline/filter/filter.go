// Package filter implements the binary pain filter (C3): an LLM pass over
// unprocessed comments that decides whether each one expresses a personal
// pain point worth tracking.
package filter

import (
	"context"
	"sync/atomic"

	"github.com/anton-mundy-ai/reddit-pain-finder-sub000/internal/llm"
	"github.com/anton-mundy-ai/reddit-pain-finder-sub000/internal/telemetry"
	"github.com/anton-mundy-ai/reddit-pain-finder-sub000/internal/types"
	"github.com/anton-mundy-ai/reddit-pain-finder-sub000/internal/workerpool"
)

// Store is the subset of sqlite.Store the filter phase depends on.
type Store interface {
	UnprocessedComments(ctx context.Context, limit int) ([]types.RawComment, error)
	MarkCommentProcessed(ctx context.Context, commentID string, isPainPoint bool) error
	InsertPainRecord(ctx context.Context, r types.PainRecord) (int64, error)
	IncrementCounter(ctx context.Context, key string) error
}

const defaultedCounterKey = "binary_filter_defaulted"

// Phase runs the binary pain filter over up to batchSize unprocessed
// comments, concurrency-bounded per spec §5 (LLM calls share the 8-wide
// budget).
type Phase struct {
	store     Store
	llmClient *llm.Client
	pool      *workerpool.Pool
	batchSize int
}

// New builds a filter Phase. concurrency should be the shared LLM call budget.
func New(store Store, llmClient *llm.Client, concurrency, batchSize int) *Phase {
	return &Phase{store: store, llmClient: llmClient, pool: workerpool.New(concurrency), batchSize: batchSize}
}

// Run classifies every unprocessed comment in the batch, writing a
// pain_record for each positive verdict. Per-comment LLM/storage errors are
// logged and skipped (spec §7a/b); only the caller's ctx cancellation stops
// the batch early.
func (p *Phase) Run(ctx context.Context) (processed, accepted int, err error) {
	metrics := telemetry.Phase()
	ctx, span := telemetry.StartSpan(ctx, "pipeline.filter")
	defer span.End()
	metrics.PhaseRuns.Add(ctx, 1)

	log := telemetry.Logger()
	log.Info("filter: starting", "batch_size", p.batchSize)

	comments, err := p.store.UnprocessedComments(ctx, p.batchSize)
	if err != nil {
		metrics.PhaseErrors.Add(ctx, 1)
		log.Error("filter: load unprocessed comments", "error", err)
		return 0, 0, err
	}

	var acceptedCount atomic.Int64
	errs := workerpool.RunBestEffort(ctx, p.pool, comments, func(ctx context.Context, c types.RawComment) error {
		result, defaulted, err := p.llmClient.ClassifyPain(ctx, c.Body)
		if err != nil {
			log.Warn("filter: classify failed, skipping comment", "comment_id", c.ID, "error", err)
			return err
		}
		if defaulted {
			_ = p.store.IncrementCounter(ctx, defaultedCounterKey)
		}

		if err := p.store.MarkCommentProcessed(ctx, c.ID, result.IsPain); err != nil {
			log.Warn("filter: mark comment processed failed, skipping comment", "comment_id", c.ID, "error", err)
			return err
		}
		if !result.IsPain {
			return nil
		}

		sourceType := types.SourceComment
		if c.Subreddit == "hackernews" {
			sourceType = types.SourceHNComment
		}
		_, err = p.store.InsertPainRecord(ctx, types.PainRecord{
			SourceType:  sourceType,
			SourceID:    c.ID,
			Subreddit:   c.Subreddit,
			RawQuote:    c.Body,
			Author:      c.Author,
			SourceScore: c.Score,
		})
		if err != nil {
			log.Warn("filter: insert pain record failed, skipping comment", "comment_id", c.ID, "error", err)
			return err
		}
		acceptedCount.Add(1)
		return nil
	})

	if len(errs) > 0 {
		metrics.PhaseErrors.Add(ctx, int64(len(errs)))
	}
	log.Info("filter: done", "processed", len(comments), "accepted", int(acceptedCount.Load()), "errors", len(errs))
	return len(comments), int(acceptedCount.Load()), nil
}
