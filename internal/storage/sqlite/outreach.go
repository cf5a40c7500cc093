package sqlite

import (
	"context"

	"github.com/anton-mundy-ai/reddit-pain-finder-sub000/internal/types"
)

// InsertOutreachContact adds a candidate to a cluster's outreach list,
// deduplicated per (cluster, pain record) so re-running the outreach phase
// does not produce duplicate candidates for the same original quote.
func (s *Store) InsertOutreachContact(ctx context.Context, c types.OutreachContact) (int64, error) {
	res, err := s.db.ExecContext(ctx, `
		INSERT INTO outreach_contacts (
			cluster_id, pain_record_id, author, subreddit, source_url, status, created_at
		) VALUES (?, ?, ?, ?, ?, 'pending', ?)
		ON CONFLICT(cluster_id, pain_record_id) DO NOTHING
	`, c.ClusterID, c.PainRecordID, c.Author, c.Subreddit, c.SourceURL, now())
	if err != nil {
		return 0, wrapDBError("insert_outreach_contact", err)
	}
	id, err := res.LastInsertId()
	if err != nil {
		return 0, wrapDBError("insert_outreach_contact_id", err)
	}
	return id, nil
}

// OutreachForCluster lists every outreach candidate recorded for a cluster.
func (s *Store) OutreachForCluster(ctx context.Context, clusterID int64) ([]types.OutreachContact, error) {
	rows, err := s.db.QueryContext(ctx, `
		SELECT id, cluster_id, pain_record_id, author, subreddit, source_url, status, created_at
		FROM outreach_contacts WHERE cluster_id = ? ORDER BY created_at ASC
	`, clusterID)
	if err != nil {
		return nil, wrapDBError("outreach_for_cluster", err)
	}
	defer rows.Close()

	var out []types.OutreachContact
	for rows.Next() {
		var c types.OutreachContact
		if err := rows.Scan(&c.ID, &c.ClusterID, &c.PainRecordID, &c.Author,
			&c.Subreddit, &c.SourceURL, &c.Status, &c.CreatedAt); err != nil {
			return nil, wrapDBError("outreach_for_cluster_scan", err)
		}
		out = append(out, c)
	}
	if err := rows.Err(); err != nil {
		return nil, wrapDBError("outreach_for_cluster_rows", err)
	}
	return out, nil
}

// UpdateOutreachStatus advances an outreach candidate's status, e.g. when
// an operator marks a contact as reached out to.
func (s *Store) UpdateOutreachStatus(ctx context.Context, id int64, status string) error {
	_, err := s.db.ExecContext(ctx, `UPDATE outreach_contacts SET status = ? WHERE id = ?`, status, id)
	if err != nil {
		return wrapDBError("update_outreach_status", err)
	}
	return nil
}

// InsertLandingPage stores a generated landing page for a cluster,
// replacing any prior page for the same cluster.
func (s *Store) InsertLandingPage(ctx context.Context, p types.LandingPage) (int64, error) {
	res, err := s.db.ExecContext(ctx, `
		INSERT INTO landing_pages (cluster_id, headline, body, created_at)
		VALUES (?, ?, ?, ?)
		ON CONFLICT(cluster_id) DO UPDATE SET
			headline = excluded.headline, body = excluded.body, created_at = excluded.created_at
	`, p.ClusterID, p.Headline, p.Body, now())
	if err != nil {
		return 0, wrapDBError("insert_landing_page", err)
	}
	id, err := res.LastInsertId()
	if err != nil {
		return 0, wrapDBError("insert_landing_page_id", err)
	}
	return id, nil
}

// LandingPageForCluster fetches the generated landing page for a cluster.
func (s *Store) LandingPageForCluster(ctx context.Context, clusterID int64) (types.LandingPage, error) {
	var p types.LandingPage
	err := s.db.QueryRowContext(ctx, `
		SELECT id, cluster_id, headline, body, created_at FROM landing_pages WHERE cluster_id = ?
	`, clusterID).Scan(&p.ID, &p.ClusterID, &p.Headline, &p.Body, &p.CreatedAt)
	if err != nil {
		return types.LandingPage{}, wrapDBError("landing_page_for_cluster", err)
	}
	return p, nil
}
