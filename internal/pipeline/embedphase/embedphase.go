// Package embedphase batches pain records that have been tagged but not
// yet embedded through the embedder (C5) and persists the resulting
// vectors, the glue step between the quality tagger and the clusterer.
package embedphase

import (
	"context"

	"github.com/anton-mundy-ai/reddit-pain-finder-sub000/internal/telemetry"
	"github.com/anton-mundy-ai/reddit-pain-finder-sub000/internal/types"
)

// Embedder is the subset of embed.Client the phase depends on.
type Embedder interface {
	Embed(ctx context.Context, texts []string) ([][]float64, error)
}

// Store is the subset of sqlite.Store the embed phase depends on.
type Store interface {
	UnembeddedPainRecords(ctx context.Context, limit int) ([]types.PainRecord, error)
	InsertEmbedding(ctx context.Context, painRecordID int64, vector []float64) (int64, error)
	SetEmbeddingID(ctx context.Context, painRecordID, embeddingID int64) error
}

// Phase generates and persists embeddings in batches.
type Phase struct {
	store     Store
	embedder  Embedder
	batchSize int
}

// New builds an embed Phase.
func New(store Store, embedder Embedder, batchSize int) *Phase {
	return &Phase{store: store, embedder: embedder, batchSize: batchSize}
}

// Run embeds every tagged-but-unembedded pain record, up to batchSize per
// call, repeating until the backlog is drained or a batch fails outright.
func (p *Phase) Run(ctx context.Context) (embedded int, err error) {
	metrics := telemetry.Phase()
	log := telemetry.Logger()
	ctx, span := telemetry.StartSpan(ctx, "pipeline.embed")
	defer span.End()
	metrics.PhaseRuns.Add(ctx, 1)
	log.Info("embed: starting", "batch_size", p.batchSize)

	for {
		records, err := p.store.UnembeddedPainRecords(ctx, p.batchSize)
		if err != nil {
			metrics.PhaseErrors.Add(ctx, 1)
			log.Error("embed: load unembedded pain records", "error", err)
			return embedded, err
		}
		if len(records) == 0 {
			log.Info("embed: done", "embedded", embedded)
			return embedded, nil
		}

		texts := make([]string, len(records))
		for i, r := range records {
			texts[i] = r.RawQuote
		}

		vectors, err := p.embedder.Embed(ctx, texts)
		if err != nil {
			metrics.PhaseErrors.Add(ctx, 1)
			log.Error("embed: batch embed call failed", "batch", len(texts), "error", err)
			return embedded, err
		}
		if len(vectors) != len(records) {
			metrics.PhaseErrors.Add(ctx, 1)
			log.Error("embed: embedder returned mismatched vector count", "want", len(records), "got", len(vectors))
			return embedded, nil
		}

		for i, r := range records {
			embeddingID, err := p.store.InsertEmbedding(ctx, r.ID, vectors[i])
			if err != nil {
				metrics.PhaseErrors.Add(ctx, 1)
				log.Warn("embed: insert embedding failed, skipping record", "pain_record_id", r.ID, "error", err)
				continue
			}
			if err := p.store.SetEmbeddingID(ctx, r.ID, embeddingID); err != nil {
				metrics.PhaseErrors.Add(ctx, 1)
				log.Warn("embed: set embedding id failed, skipping record", "pain_record_id", r.ID, "error", err)
				continue
			}
			embedded++
		}

		if len(records) < p.batchSize {
			log.Info("embed: done", "embedded", embedded)
			return embedded, nil
		}
	}
}
