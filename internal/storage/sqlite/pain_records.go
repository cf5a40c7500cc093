package sqlite

import (
	"context"
	"database/sql"
	"strings"

	"github.com/anton-mundy-ai/reddit-pain-finder-sub000/internal/types"
)

// InsertPainRecord stores a quote that passed the binary pain filter (C3).
// The (source_type, source_id) unique constraint means a quote already
// extracted on an earlier tick is silently skipped rather than duplicated,
// and the returned id is then 0.
func (s *Store) InsertPainRecord(ctx context.Context, r types.PainRecord) (int64, error) {
	res, err := s.db.ExecContext(ctx, `
		INSERT INTO pain_records (
			source_type, source_id, subreddit, raw_quote, author,
			source_score, source_url, extracted_at
		) VALUES (?, ?, ?, ?, ?, ?, ?, ?)
		ON CONFLICT(source_type, source_id) DO NOTHING
	`, r.SourceType, r.SourceID, r.Subreddit, r.RawQuote, r.Author,
		r.SourceScore, r.SourceURL, now())
	if err != nil {
		return 0, wrapDBError("insert_pain_record", err)
	}
	if n, err := res.RowsAffected(); err != nil {
		return 0, wrapDBError("insert_pain_record_rows", err)
	} else if n == 0 {
		return 0, nil
	}
	id, err := res.LastInsertId()
	if err != nil {
		return 0, wrapDBError("insert_pain_record_id", err)
	}
	return id, nil
}

// UntaggedPainRecords returns records the quality tagger (C4) has not yet
// annotated with topics/persona/severity.
func (s *Store) UntaggedPainRecords(ctx context.Context, limit int) ([]types.PainRecord, error) {
	rows, err := s.db.QueryContext(ctx, `
		SELECT id, source_type, source_id, subreddit, raw_quote, author,
			source_score, source_url, extracted_at
		FROM pain_records
		WHERE tagged_at IS NULL
		ORDER BY extracted_at ASC
		LIMIT ?
	`, limit)
	if err != nil {
		return nil, wrapDBError("untagged_pain_records", err)
	}
	defer rows.Close()

	var out []types.PainRecord
	for rows.Next() {
		var r types.PainRecord
		if err := rows.Scan(&r.ID, &r.SourceType, &r.SourceID, &r.Subreddit,
			&r.RawQuote, &r.Author, &r.SourceScore, &r.SourceURL, &r.ExtractedAt); err != nil {
			return nil, wrapDBError("untagged_pain_records_scan", err)
		}
		out = append(out, r)
	}
	if err := rows.Err(); err != nil {
		return nil, wrapDBError("untagged_pain_records_rows", err)
	}
	return out, nil
}

// TagPainRecord writes the quality-tagger's verdict for a record (C4).
func (s *Store) TagPainRecord(ctx context.Context, id int64, topics []string, persona string, severity types.Severity) error {
	_, err := s.db.ExecContext(ctx, `
		UPDATE pain_records SET topics = ?, persona = ?, severity = ?, tagged_at = ?
		WHERE id = ?
	`, strings.Join(topics, ","), persona, severity, now(), id)
	if err != nil {
		return wrapDBError("tag_pain_record", err)
	}
	return nil
}

// UnembeddedPainRecords returns tagged records that have not yet had an
// embedding generated (C5).
func (s *Store) UnembeddedPainRecords(ctx context.Context, limit int) ([]types.PainRecord, error) {
	rows, err := s.db.QueryContext(ctx, `
		SELECT id, source_type, source_id, subreddit, raw_quote, author,
			source_score, source_url, extracted_at, topics, persona, severity
		FROM pain_records
		WHERE tagged_at IS NOT NULL AND embedding_id IS NULL
		ORDER BY tagged_at ASC
		LIMIT ?
	`, limit)
	if err != nil {
		return nil, wrapDBError("unembedded_pain_records", err)
	}
	defer rows.Close()

	var out []types.PainRecord
	for rows.Next() {
		var r types.PainRecord
		var topics, persona sql.NullString
		var severity sql.NullString
		if err := rows.Scan(&r.ID, &r.SourceType, &r.SourceID, &r.Subreddit,
			&r.RawQuote, &r.Author, &r.SourceScore, &r.SourceURL, &r.ExtractedAt,
			&topics, &persona, &severity); err != nil {
			return nil, wrapDBError("unembedded_pain_records_scan", err)
		}
		if topics.Valid && topics.String != "" {
			r.Topics = strings.Split(topics.String, ",")
		}
		r.Persona = persona.String
		r.Severity = types.Severity(severity.String)
		out = append(out, r)
	}
	if err := rows.Err(); err != nil {
		return nil, wrapDBError("unembedded_pain_records_rows", err)
	}
	return out, nil
}

// SetEmbeddingID links a record to its newly written embedding row.
func (s *Store) SetEmbeddingID(ctx context.Context, painRecordID, embeddingID int64) error {
	_, err := s.db.ExecContext(ctx, `
		UPDATE pain_records SET embedding_id = ? WHERE id = ?
	`, embeddingID, painRecordID)
	if err != nil {
		return wrapDBError("set_embedding_id", err)
	}
	return nil
}

// SetNormalizedTopic stores the deterministic topic normalization (C7) for a record.
func (s *Store) SetNormalizedTopic(ctx context.Context, painRecordID int64, topic string) error {
	_, err := s.db.ExecContext(ctx, `UPDATE pain_records SET normalized_topic = ? WHERE id = ?`, topic, painRecordID)
	if err != nil {
		return wrapDBError("set_normalized_topic", err)
	}
	return nil
}

// UnclusteredPainRecords returns embedded records not yet assigned to a cluster (C6).
func (s *Store) UnclusteredPainRecords(ctx context.Context, limit int) ([]types.PainRecord, error) {
	rows, err := s.db.QueryContext(ctx, `
		SELECT pr.id, pr.source_type, pr.source_id, pr.subreddit, pr.raw_quote,
			pr.author, pr.source_score, pr.source_url, pr.extracted_at,
			pr.topics, pr.persona, pr.severity, pr.embedding_id, pr.normalized_topic
		FROM pain_records pr
		WHERE pr.embedding_id IS NOT NULL AND pr.cluster_id IS NULL
		ORDER BY pr.extracted_at ASC
		LIMIT ?
	`, limit)
	if err != nil {
		return nil, wrapDBError("unclustered_pain_records", err)
	}
	defer rows.Close()

	var out []types.PainRecord
	for rows.Next() {
		var r types.PainRecord
		var topics, persona, severity, normTopic sql.NullString
		var embID sql.NullInt64
		if err := rows.Scan(&r.ID, &r.SourceType, &r.SourceID, &r.Subreddit,
			&r.RawQuote, &r.Author, &r.SourceScore, &r.SourceURL, &r.ExtractedAt,
			&topics, &persona, &severity, &embID, &normTopic); err != nil {
			return nil, wrapDBError("unclustered_pain_records_scan", err)
		}
		if topics.Valid && topics.String != "" {
			r.Topics = strings.Split(topics.String, ",")
		}
		r.Persona = persona.String
		r.Severity = types.Severity(severity.String)
		if embID.Valid {
			id := embID.Int64
			r.EmbeddingID = &id
		}
		if normTopic.Valid {
			t := normTopic.String
			r.NormalizedTopic = &t
		}
		out = append(out, r)
	}
	if err := rows.Err(); err != nil {
		return nil, wrapDBError("unclustered_pain_records_rows", err)
	}
	return out, nil
}

// ClusterMembers returns up to limit pain records belonging to a cluster,
// ordered by source_score descending -- the member set the scorer (C9)
// aggregates over and the synthesizer (C8) samples quotes from. limit<=0
// means unlimited.
func (s *Store) ClusterMembers(ctx context.Context, clusterID int64, limit int) ([]types.PainRecord, error) {
	query := `
		SELECT pr.id, pr.source_type, pr.source_id, pr.subreddit, pr.raw_quote,
			pr.author, pr.source_score, pr.source_url, pr.extracted_at,
			pr.topics, pr.persona, pr.severity
		FROM cluster_members cm
		JOIN pain_records pr ON pr.id = cm.pain_record_id
		WHERE cm.cluster_id = ?
		ORDER BY pr.source_score DESC
	`
	args := []any{clusterID}
	if limit > 0 {
		query += `LIMIT ?`
		args = append(args, limit)
	}

	rows, err := s.db.QueryContext(ctx, query, args...)
	if err != nil {
		return nil, wrapDBError("cluster_members", err)
	}
	defer rows.Close()

	var out []types.PainRecord
	for rows.Next() {
		var r types.PainRecord
		var topics, persona, severity sql.NullString
		if err := rows.Scan(&r.ID, &r.SourceType, &r.SourceID, &r.Subreddit,
			&r.RawQuote, &r.Author, &r.SourceScore, &r.SourceURL, &r.ExtractedAt,
			&topics, &persona, &severity); err != nil {
			return nil, wrapDBError("cluster_members_scan", err)
		}
		if topics.Valid && topics.String != "" {
			r.Topics = strings.Split(topics.String, ",")
		}
		r.Persona = persona.String
		r.Severity = types.Severity(severity.String)
		out = append(out, r)
	}
	if err := rows.Err(); err != nil {
		return nil, wrapDBError("cluster_members_rows", err)
	}
	return out, nil
}

// UngeoTaggedPainRecords returns tagged records the geo tagger (C11) has
// not yet scored.
func (s *Store) UngeoTaggedPainRecords(ctx context.Context, limit int) ([]types.PainRecord, error) {
	rows, err := s.db.QueryContext(ctx, `
		SELECT id, source_type, source_id, subreddit, raw_quote, author,
			source_score, source_url, extracted_at
		FROM pain_records
		WHERE tagged_at IS NOT NULL AND geo_region IS NULL
		ORDER BY extracted_at ASC
		LIMIT ?
	`, limit)
	if err != nil {
		return nil, wrapDBError("ungeo_tagged_pain_records", err)
	}
	defer rows.Close()

	var out []types.PainRecord
	for rows.Next() {
		var r types.PainRecord
		if err := rows.Scan(&r.ID, &r.SourceType, &r.SourceID, &r.Subreddit,
			&r.RawQuote, &r.Author, &r.SourceScore, &r.SourceURL, &r.ExtractedAt); err != nil {
			return nil, wrapDBError("ungeo_tagged_pain_records_scan", err)
		}
		out = append(out, r)
	}
	if err := rows.Err(); err != nil {
		return nil, wrapDBError("ungeo_tagged_pain_records_rows", err)
	}
	return out, nil
}

// AssignCluster links a pain record to the cluster it was placed in (C6).
func (s *Store) AssignCluster(ctx context.Context, painRecordID, clusterID int64, similarity float64) error {
	_, err := s.db.ExecContext(ctx, `
		UPDATE pain_records SET cluster_id = ?, cluster_similarity = ? WHERE id = ?
	`, clusterID, similarity, painRecordID)
	if err != nil {
		return wrapDBError("assign_cluster", err)
	}
	return nil
}

// SetGeoTag records the geo tagger's verdict for a record (C11).
func (s *Store) SetGeoTag(ctx context.Context, painRecordID int64, region string, confidence float64, signals []string) error {
	_, err := s.db.ExecContext(ctx, `
		UPDATE pain_records SET geo_region = ?, geo_confidence = ?, geo_signals = ? WHERE id = ?
	`, region, confidence, strings.Join(signals, ","), painRecordID)
	if err != nil {
		return wrapDBError("set_geo_tag", err)
	}
	return nil
}

// GetPainRecord fetches a single pain record by ID.
func (s *Store) GetPainRecord(ctx context.Context, id int64) (types.PainRecord, error) {
	var r types.PainRecord
	var topics, persona, severity, normTopic, geoRegion sql.NullString
	var embID, clusterID sql.NullInt64
	var clusterSim, geoConf sql.NullFloat64
	err := s.db.QueryRowContext(ctx, `
		SELECT id, source_type, source_id, subreddit, raw_quote, author,
			source_score, source_url, extracted_at, topics, persona, severity,
			embedding_id, normalized_topic, cluster_id, cluster_similarity,
			geo_region, geo_confidence
		FROM pain_records WHERE id = ?
	`, id).Scan(&r.ID, &r.SourceType, &r.SourceID, &r.Subreddit, &r.RawQuote,
		&r.Author, &r.SourceScore, &r.SourceURL, &r.ExtractedAt, &topics,
		&persona, &severity, &embID, &normTopic, &clusterID, &clusterSim,
		&geoRegion, &geoConf)
	if err == sql.ErrNoRows {
		return types.PainRecord{}, wrapDBError("get_pain_record", ErrNotFound)
	}
	if err != nil {
		return types.PainRecord{}, wrapDBError("get_pain_record", err)
	}
	if topics.Valid && topics.String != "" {
		r.Topics = strings.Split(topics.String, ",")
	}
	r.Persona = persona.String
	r.Severity = types.Severity(severity.String)
	if embID.Valid {
		id := embID.Int64
		r.EmbeddingID = &id
	}
	if normTopic.Valid {
		t := normTopic.String
		r.NormalizedTopic = &t
	}
	if clusterID.Valid {
		id := clusterID.Int64
		r.ClusterID = &id
	}
	if clusterSim.Valid {
		v := clusterSim.Float64
		r.ClusterSimilarity = &v
	}
	if geoRegion.Valid {
		v := geoRegion.String
		r.GeoRegion = &v
	}
	if geoConf.Valid {
		v := geoConf.Float64
		r.GeoConfidence = &v
	}
	return r, nil
}
