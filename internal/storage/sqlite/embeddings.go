package sqlite

import (
	"context"
	"database/sql"

	"github.com/anton-mundy-ai/reddit-pain-finder-sub000/internal/embed"
	"github.com/anton-mundy-ai/reddit-pain-finder-sub000/internal/types"
)

// InsertEmbedding persists a pain record's vector and links the record to
// it in a single transaction, mirroring the teacher's pattern of keeping a
// parent row and its dependent row's foreign key consistent (WithTx).
func (s *Store) InsertEmbedding(ctx context.Context, painRecordID int64, vector []float64) (int64, error) {
	packed, err := embed.Marshal(vector)
	if err != nil {
		return 0, wrapDBError("insert_embedding_marshal", err)
	}

	var embeddingID int64
	err = s.WithTx(ctx, func(tx *sql.Tx) error {
		res, err := tx.ExecContext(ctx, `
			INSERT INTO embeddings (pain_record_id, vector, created_at) VALUES (?, ?, ?)
		`, painRecordID, packed, now())
		if err != nil {
			return err
		}
		embeddingID, err = res.LastInsertId()
		if err != nil {
			return err
		}
		_, err = tx.ExecContext(ctx, `UPDATE pain_records SET embedding_id = ? WHERE id = ?`, embeddingID, painRecordID)
		return err
	})
	if err != nil {
		return 0, wrapDBError("insert_embedding", err)
	}
	return embeddingID, nil
}

// GetEmbedding fetches and unpacks a single embedding by ID.
func (s *Store) GetEmbedding(ctx context.Context, id int64) (types.Embedding, error) {
	var e types.Embedding
	var packed string
	err := s.db.QueryRowContext(ctx, `
		SELECT id, pain_record_id, vector, created_at FROM embeddings WHERE id = ?
	`, id).Scan(&e.ID, &e.PainRecordID, &packed, &e.CreatedAt)
	if err == sql.ErrNoRows {
		return types.Embedding{}, wrapDBError("get_embedding", ErrNotFound)
	}
	if err != nil {
		return types.Embedding{}, wrapDBError("get_embedding", err)
	}
	vec, err := embed.Unmarshal(packed)
	if err != nil {
		return types.Embedding{}, wrapDBError("get_embedding_unmarshal", err)
	}
	e.Vector = vec
	return e, nil
}

// EmbeddingsForTopic returns every embedding belonging to a pain record
// already normalized to the given topic.
func (s *Store) EmbeddingsForTopic(ctx context.Context, topic string) ([]types.Embedding, error) {
	rows, err := s.db.QueryContext(ctx, `
		SELECT e.id, e.pain_record_id, e.vector, e.created_at
		FROM embeddings e
		JOIN pain_records pr ON pr.embedding_id = e.id
		WHERE pr.normalized_topic = ?
	`, topic)
	if err != nil {
		return nil, wrapDBError("embeddings_for_topic", err)
	}
	defer rows.Close()

	var out []types.Embedding
	for rows.Next() {
		var e types.Embedding
		var packed string
		if err := rows.Scan(&e.ID, &e.PainRecordID, &packed, &e.CreatedAt); err != nil {
			return nil, wrapDBError("embeddings_for_topic_scan", err)
		}
		vec, err := embed.Unmarshal(packed)
		if err != nil {
			return nil, wrapDBError("embeddings_for_topic_unmarshal", err)
		}
		e.Vector = vec
		out = append(out, e)
	}
	if err := rows.Err(); err != nil {
		return nil, wrapDBError("embeddings_for_topic_rows", err)
	}
	return out, nil
}
