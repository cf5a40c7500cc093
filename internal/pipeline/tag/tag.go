// Package tag implements the quality tagger (C4): an LLM pass that assigns
// fine-grained topics, an author persona, and a severity bucket to each
// accepted pain record, then normalizes its topics deterministically.
package tag

import (
	"context"

	"github.com/anton-mundy-ai/reddit-pain-finder-sub000/internal/llm"
	"github.com/anton-mundy-ai/reddit-pain-finder-sub000/internal/telemetry"
	"github.com/anton-mundy-ai/reddit-pain-finder-sub000/internal/topic"
	"github.com/anton-mundy-ai/reddit-pain-finder-sub000/internal/types"
	"github.com/anton-mundy-ai/reddit-pain-finder-sub000/internal/workerpool"
)

// Store is the subset of sqlite.Store the tag phase depends on.
type Store interface {
	UntaggedPainRecords(ctx context.Context, limit int) ([]types.PainRecord, error)
	TagPainRecord(ctx context.Context, id int64, topics []string, persona string, severity types.Severity) error
	SetNormalizedTopic(ctx context.Context, painRecordID int64, topicStr string) error
}

// Phase runs the quality tagger over untagged pain records.
type Phase struct {
	store     Store
	llmClient *llm.Client
	pool      *workerpool.Pool
	batchSize int
}

// New builds a tag Phase.
func New(store Store, llmClient *llm.Client, concurrency, batchSize int) *Phase {
	return &Phase{store: store, llmClient: llmClient, pool: workerpool.New(concurrency), batchSize: batchSize}
}

// Run tags up to batchSize untagged pain records. A record whose LLM
// response fails to parse is skipped (left untagged) for a later tick,
// per spec §7b.
func (p *Phase) Run(ctx context.Context) (tagged int, err error) {
	metrics := telemetry.Phase()
	log := telemetry.Logger()
	ctx, span := telemetry.StartSpan(ctx, "pipeline.tag")
	defer span.End()
	metrics.PhaseRuns.Add(ctx, 1)
	log.Info("tag: starting", "batch_size", p.batchSize)

	records, err := p.store.UntaggedPainRecords(ctx, p.batchSize)
	if err != nil {
		metrics.PhaseErrors.Add(ctx, 1)
		log.Error("tag: load untagged pain records", "error", err)
		return 0, err
	}

	errs := workerpool.RunBestEffort(ctx, p.pool, records, func(ctx context.Context, r types.PainRecord) error {
		result, err := p.llmClient.TagQuality(ctx, r.RawQuote)
		if err != nil {
			log.Warn("tag: classify quality failed, leaving untagged", "pain_record_id", r.ID, "error", err)
			return err
		}
		severity := types.Severity(result.Severity)
		if err := p.store.TagPainRecord(ctx, r.ID, result.Topics, result.Persona, severity); err != nil {
			log.Warn("tag: persist tags failed, leaving untagged", "pain_record_id", r.ID, "error", err)
			return err
		}

		canonical := topic.Normalize(result.Topics[0])
		if err := p.store.SetNormalizedTopic(ctx, r.ID, canonical); err != nil {
			log.Warn("tag: set normalized topic failed", "pain_record_id", r.ID, "error", err)
			return err
		}
		return nil
	})

	if len(errs) > 0 {
		metrics.PhaseErrors.Add(ctx, int64(len(errs)))
	}
	log.Info("tag: done", "tagged", len(records)-len(errs), "errors", len(errs))
	return len(records) - len(errs), nil
}
