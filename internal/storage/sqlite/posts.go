package sqlite

import (
	"context"
	"database/sql"

	"github.com/anton-mundy-ai/reddit-pain-finder-sub000/internal/types"
)

// UpsertPost inserts a fetched Reddit/HN post; a post already stored under
// the same id (fetched on an earlier tick) is left unchanged.
func (s *Store) UpsertPost(ctx context.Context, p types.RawPost) error {
	_, err := s.db.ExecContext(ctx, `
		INSERT INTO raw_posts (
			id, subreddit, title, body, author, created_utc, score,
			num_comments, url, permalink, sort_type, fetched_at
		) VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?)
		ON CONFLICT(id) DO NOTHING
	`, p.ID, p.Subreddit, p.Title, p.Body, p.Author, p.CreatedUTC, p.Score,
		p.NumComments, p.URL, p.Permalink, p.SortType, now())
	if err != nil {
		return wrapDBError("upsert_post", err)
	}
	return nil
}

// MarkCommentsFetched records that a post's comment tree was walked, so
// PostsNeedingComments no longer returns it on this or any later tick.
func (s *Store) MarkCommentsFetched(ctx context.Context, postID string) error {
	_, err := s.db.ExecContext(ctx, `
		UPDATE raw_posts SET comments_fetched = 1, comments_fetched_at = ?
		WHERE id = ?
	`, now(), postID)
	if err != nil {
		return wrapDBError("mark_comments_fetched", err)
	}
	return nil
}

// PostsNeedingComments returns posts, from any tick, whose comment tree
// has not yet been walked, ordered by score so the highest-signal posts are
// processed first when the per-tick budget is tight (spec §5).
func (s *Store) PostsNeedingComments(ctx context.Context, limit int) ([]types.RawPost, error) {
	rows, err := s.db.QueryContext(ctx, `
		SELECT id, subreddit, title, body, author, created_utc, score,
			num_comments, url, permalink, sort_type, fetched_at
		FROM raw_posts
		WHERE comments_fetched = 0
		ORDER BY score DESC
		LIMIT ?
	`, limit)
	if err != nil {
		return nil, wrapDBError("posts_needing_comments", err)
	}
	defer rows.Close()

	var out []types.RawPost
	for rows.Next() {
		var p types.RawPost
		if err := rows.Scan(&p.ID, &p.Subreddit, &p.Title, &p.Body, &p.Author,
			&p.CreatedUTC, &p.Score, &p.NumComments, &p.URL, &p.Permalink,
			&p.SortType, &p.FetchedAt); err != nil {
			return nil, wrapDBError("posts_needing_comments_scan", err)
		}
		out = append(out, p)
	}
	if err := rows.Err(); err != nil {
		return nil, wrapDBError("posts_needing_comments_rows", err)
	}
	return out, nil
}

// GetPost fetches a single post by ID, returning perr.KindNotFound when
// absent.
func (s *Store) GetPost(ctx context.Context, id string) (types.RawPost, error) {
	var p types.RawPost
	err := s.db.QueryRowContext(ctx, `
		SELECT id, subreddit, title, body, author, created_utc, score,
			num_comments, url, permalink, sort_type, fetched_at
		FROM raw_posts WHERE id = ?
	`, id).Scan(&p.ID, &p.Subreddit, &p.Title, &p.Body, &p.Author,
		&p.CreatedUTC, &p.Score, &p.NumComments, &p.URL, &p.Permalink,
		&p.SortType, &p.FetchedAt)
	if err == sql.ErrNoRows {
		return types.RawPost{}, wrapDBError("get_post", ErrNotFound)
	}
	if err != nil {
		return types.RawPost{}, wrapDBError("get_post", err)
	}
	return p, nil
}
