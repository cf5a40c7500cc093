package sqlite

import (
	"context"
	"database/sql"

	"github.com/anton-mundy-ai/reddit-pain-finder-sub000/internal/types"
)

// UpsertComment inserts a fetched comment (Reddit reply or a synthesized HN
// comment row), ignoring duplicates on refetch since comments are immutable
// once posted (unlike posts, whose score/comment-count churn).
func (s *Store) UpsertComment(ctx context.Context, c types.RawComment) error {
	_, err := s.db.ExecContext(ctx, `
		INSERT INTO raw_comments (
			id, post_id, parent_id, body, author, created_utc, score,
			post_score, post_title, subreddit, fetched_at
		) VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?)
		ON CONFLICT(id) DO NOTHING
	`, c.ID, c.PostID, c.ParentID, c.Body, c.Author, c.CreatedUTC, c.Score,
		c.PostScore, c.PostTitle, c.Subreddit, now())
	if err != nil {
		return wrapDBError("upsert_comment", err)
	}
	return nil
}

// UnprocessedComments returns comments the binary pain filter (C3) has not
// yet classified, oldest first so a long backlog drains in fetch order.
func (s *Store) UnprocessedComments(ctx context.Context, limit int) ([]types.RawComment, error) {
	rows, err := s.db.QueryContext(ctx, `
		SELECT id, post_id, parent_id, body, author, created_utc, score,
			post_score, post_title, subreddit, fetched_at
		FROM raw_comments
		WHERE processed_at IS NULL
		ORDER BY created_utc ASC
		LIMIT ?
	`, limit)
	if err != nil {
		return nil, wrapDBError("unprocessed_comments", err)
	}
	defer rows.Close()

	var out []types.RawComment
	for rows.Next() {
		var c types.RawComment
		if err := rows.Scan(&c.ID, &c.PostID, &c.ParentID, &c.Body, &c.Author,
			&c.CreatedUTC, &c.Score, &c.PostScore, &c.PostTitle, &c.Subreddit,
			&c.FetchedAt); err != nil {
			return nil, wrapDBError("unprocessed_comments_scan", err)
		}
		out = append(out, c)
	}
	if err := rows.Err(); err != nil {
		return nil, wrapDBError("unprocessed_comments_rows", err)
	}
	return out, nil
}

// MarkCommentProcessed records the binary pain-filter verdict for a comment
// so it is never re-classified on a later tick.
func (s *Store) MarkCommentProcessed(ctx context.Context, commentID string, isPainPoint bool) error {
	_, err := s.db.ExecContext(ctx, `
		UPDATE raw_comments SET processed_at = ?, is_pain_point = ? WHERE id = ?
	`, now(), isPainPoint, commentID)
	if err != nil {
		return wrapDBError("mark_comment_processed", err)
	}
	return nil
}

// GetComment fetches a single comment by ID.
func (s *Store) GetComment(ctx context.Context, id string) (types.RawComment, error) {
	var c types.RawComment
	err := s.db.QueryRowContext(ctx, `
		SELECT id, post_id, parent_id, body, author, created_utc, score,
			post_score, post_title, subreddit, fetched_at
		FROM raw_comments WHERE id = ?
	`, id).Scan(&c.ID, &c.PostID, &c.ParentID, &c.Body, &c.Author, &c.CreatedUTC,
		&c.Score, &c.PostScore, &c.PostTitle, &c.Subreddit, &c.FetchedAt)
	if err == sql.ErrNoRows {
		return types.RawComment{}, wrapDBError("get_comment", ErrNotFound)
	}
	if err != nil {
		return types.RawComment{}, wrapDBError("get_comment", err)
	}
	return c, nil
}
