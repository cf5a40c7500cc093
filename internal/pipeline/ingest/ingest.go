// Package ingest glues the source fetcher (C1) to the raw store (C2): it
// lists watched subreddits under a given sort order, walks comment trees
// for posts that still need them, and runs a general Hacker News sweep,
// persisting everything via insert-or-ignore upserts.
package ingest

import (
	"context"

	"github.com/anton-mundy-ai/reddit-pain-finder-sub000/internal/config"
	"github.com/anton-mundy-ai/reddit-pain-finder-sub000/internal/telemetry"
	"github.com/anton-mundy-ai/reddit-pain-finder-sub000/internal/types"
)

// postsNeedingCommentsBatch bounds how many posts get their comment tree
// walked in a single ingestion pass.
const postsNeedingCommentsBatch = 30

// hnQueries are the fixed general-sweep search terms run every ingestion
// pass, independent of the competitor miner's product-specific searches.
var hnQueries = []string{"frustrated with", "i wish there was", "looking for an alternative to"}

// RedditFetcher is the subset of fetch.Client the ingest phase depends on.
type RedditFetcher interface {
	FetchSubredditListing(ctx context.Context, subreddit string, sort types.SortType, timeWindow string) ([]types.RawPost, error)
	FetchPostComments(ctx context.Context, postID, subreddit string, limit, depth int) ([]types.RawComment, error)
}

// HNFetcher is the subset of fetch.Client the ingest phase depends on.
type HNFetcher interface {
	SearchHN(ctx context.Context, query string, limit int) ([]types.RawComment, error)
}

// Store is the subset of sqlite.Store the ingest phase depends on.
type Store interface {
	UpsertPost(ctx context.Context, p types.RawPost) error
	UpsertComment(ctx context.Context, c types.RawComment) error
	MarkCommentsFetched(ctx context.Context, postID string) error
	PostsNeedingComments(ctx context.Context, limit int) ([]types.RawPost, error)
}

// Phase runs one Reddit listing pass (plus comment-tree walk) and one HN
// sweep per invocation.
type Phase struct {
	store       Store
	reddit      RedditFetcher
	hn          HNFetcher
	subreddits  []string
	commentDepth int
}

// New builds an ingest Phase watching the given subreddits.
func New(store Store, reddit RedditFetcher, hn HNFetcher, subreddits []string, commentDepth int) *Phase {
	return &Phase{store: store, reddit: reddit, hn: hn, subreddits: subreddits, commentDepth: commentDepth}
}

// Run lists every watched subreddit under sort/timeWindow, walks comment
// trees for posts not yet walked, and sweeps Hacker News. Failures on an
// individual subreddit or post are logged and counted and do not abort the
// remaining work, per spec §4.1 "failures are non-fatal".
func (p *Phase) Run(ctx context.Context, sort types.SortType, timeWindow string) (postsFetched, commentsFetched int, err error) {
	metrics := telemetry.Phase()
	log := telemetry.Logger()
	ctx, span := telemetry.StartSpan(ctx, "pipeline.ingest")
	defer span.End()
	metrics.PhaseRuns.Add(ctx, 1)
	log.Info("ingest: starting", "subreddits", len(p.subreddits), "sort", sort)

	for _, sub := range p.subreddits {
		posts, ferr := p.reddit.FetchSubredditListing(ctx, sub, sort, timeWindow)
		if ferr != nil {
			metrics.PhaseErrors.Add(ctx, 1)
			log.Warn("ingest: fetch subreddit listing failed, skipping subreddit", "subreddit", sub, "error", ferr)
			continue
		}
		for _, post := range posts {
			if uerr := p.store.UpsertPost(ctx, post); uerr != nil {
				metrics.PhaseErrors.Add(ctx, 1)
				log.Warn("ingest: upsert post failed, skipping post", "post_id", post.ID, "error", uerr)
				continue
			}
			postsFetched++
		}
	}

	pending, perr2 := p.store.PostsNeedingComments(ctx, postsNeedingCommentsBatch)
	if perr2 != nil {
		metrics.PhaseErrors.Add(ctx, 1)
		log.Error("ingest: load posts needing comments", "error", perr2)
		return postsFetched, commentsFetched, nil
	}
	for _, post := range pending {
		limit := config.CommentLimitFor(post.Score, post.NumComments)
		comments, cerr := p.reddit.FetchPostComments(ctx, post.ID, post.Subreddit, limit, p.commentDepth)
		if cerr != nil {
			metrics.PhaseErrors.Add(ctx, 1)
			log.Warn("ingest: fetch post comments failed, skipping post", "post_id", post.ID, "error", cerr)
			continue
		}
		for _, c := range comments {
			if uerr := p.store.UpsertComment(ctx, c); uerr != nil {
				metrics.PhaseErrors.Add(ctx, 1)
				log.Warn("ingest: upsert comment failed, skipping comment", "comment_id", c.ID, "error", uerr)
				continue
			}
			commentsFetched++
		}
		if merr := p.store.MarkCommentsFetched(ctx, post.ID); merr != nil {
			metrics.PhaseErrors.Add(ctx, 1)
			log.Warn("ingest: mark comments fetched failed", "post_id", post.ID, "error", merr)
		}
	}

	for _, q := range hnQueries {
		hits, herr := p.hn.SearchHN(ctx, q, 50)
		if herr != nil {
			metrics.PhaseErrors.Add(ctx, 1)
			log.Warn("ingest: search HN failed, skipping query", "query", q, "error", herr)
			continue
		}
		for _, c := range hits {
			if uerr := p.store.UpsertComment(ctx, c); uerr != nil {
				metrics.PhaseErrors.Add(ctx, 1)
				log.Warn("ingest: upsert HN comment failed, skipping comment", "comment_id", c.ID, "error", uerr)
				continue
			}
			commentsFetched++
		}
	}

	log.Info("ingest: done", "posts_fetched", postsFetched, "comments_fetched", commentsFetched)
	return postsFetched, commentsFetched, nil
}
