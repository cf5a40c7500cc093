package ingest

import (
	"context"
	"errors"
	"testing"

	"github.com/stretchr/testify/require"

	"github.com/anton-mundy-ai/reddit-pain-finder-sub000/internal/types"
)

type stubStore struct {
	posts          []types.RawPost
	comments       []types.RawComment
	pending        []types.RawPost
	commentsMarked []string
}

func (s *stubStore) UpsertPost(ctx context.Context, p types.RawPost) error {
	s.posts = append(s.posts, p)
	return nil
}

func (s *stubStore) UpsertComment(ctx context.Context, c types.RawComment) error {
	s.comments = append(s.comments, c)
	return nil
}

func (s *stubStore) MarkCommentsFetched(ctx context.Context, postID string) error {
	s.commentsMarked = append(s.commentsMarked, postID)
	return nil
}

func (s *stubStore) PostsNeedingComments(ctx context.Context, limit int) ([]types.RawPost, error) {
	return s.pending, nil
}

type stubReddit struct {
	listing  map[string][]types.RawPost
	comments map[string][]types.RawComment
	errs     map[string]error
}

func (r *stubReddit) FetchSubredditListing(ctx context.Context, subreddit string, sort types.SortType, timeWindow string) ([]types.RawPost, error) {
	return r.listing[subreddit], r.errs[subreddit]
}

func (r *stubReddit) FetchPostComments(ctx context.Context, postID, subreddit string, limit, depth int) ([]types.RawComment, error) {
	return r.comments[postID], nil
}

type stubHN struct {
	hits map[string][]types.RawComment
}

func (h *stubHN) SearchHN(ctx context.Context, query string, limit int) ([]types.RawComment, error) {
	return h.hits[query], nil
}

func TestRunFetchesListingsAndComments(t *testing.T) {
	store := &stubStore{
		pending: []types.RawPost{{ID: "p1", Subreddit: "saas", Score: 5, NumComments: 3}},
	}
	reddit := &stubReddit{
		listing: map[string][]types.RawPost{
			"saas": {{ID: "p1", Subreddit: "saas"}, {ID: "p2", Subreddit: "saas"}},
		},
		comments: map[string][]types.RawComment{
			"p1": {{ID: "c1", PostID: "p1"}},
		},
	}
	hn := &stubHN{hits: map[string][]types.RawComment{}}

	phase := New(store, reddit, hn, []string{"saas"}, 5)
	posts, comments, err := phase.Run(context.Background(), types.SortHot, "")

	require.NoError(t, err)
	require.Equal(t, 2, posts)
	require.Equal(t, 1, comments)
	require.Len(t, store.posts, 2)
	require.Equal(t, []string{"p1"}, store.commentsMarked)
}

func TestRunSweepsHackerNews(t *testing.T) {
	store := &stubStore{}
	reddit := &stubReddit{}
	hn := &stubHN{
		hits: map[string][]types.RawComment{
			"frustrated with":               {{ID: "hn1", PostID: "hn1"}},
			"i wish there was":               {{ID: "hn2", PostID: "hn2"}},
			"looking for an alternative to":  {{ID: "hn3", PostID: "hn3"}},
		},
	}

	phase := New(store, reddit, hn, nil, 5)
	_, comments, err := phase.Run(context.Background(), types.SortHot, "")

	require.NoError(t, err)
	require.Equal(t, 3, comments)
	require.Len(t, store.comments, 3)
}

func TestRunContinuesPastSubredditFetchError(t *testing.T) {
	store := &stubStore{}
	reddit := &stubReddit{
		listing: map[string][]types.RawPost{
			"saas": {{ID: "p1", Subreddit: "saas"}},
		},
		errs: map[string]error{"missing": errors.New("listing failed")},
	}
	hn := &stubHN{hits: map[string][]types.RawComment{}}

	phase := New(store, reddit, hn, []string{"missing", "saas"}, 5)
	posts, comments, err := phase.Run(context.Background(), types.SortHot, "")

	require.NoError(t, err)
	require.Equal(t, 1, posts)
	require.Equal(t, 0, comments)
}
