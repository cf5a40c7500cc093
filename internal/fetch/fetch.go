// Package fetch retrieves raw Reddit listings/comments and Hacker News
// search results (C1). HTTP shape follows the teacher's direct-HTTP
// dispatch style (internal/notification/dispatch.go): a shared *http.Client
// with an explicit timeout, no generated SDK.
package fetch

import (
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"strings"
	"time"

	"golang.org/x/time/rate"

	"github.com/anton-mundy-ai/reddit-pain-finder-sub000/internal/perr"
	"github.com/anton-mundy-ai/reddit-pain-finder-sub000/internal/types"
)

const userAgent = "reddit-pain-finder/1.0 (by /u/pain-finder-bot)"

// RedditFetcher lists subreddit posts and walks comment trees. Interfaced
// so tests and the orchestrator can substitute a recorded-fixture fetcher,
// the same swap the teacher allows between its sqlite and in-memory
// storage implementations.
type RedditFetcher interface {
	FetchSubredditListing(ctx context.Context, subreddit string, sort types.SortType, timeWindow string) ([]types.RawPost, error)
	FetchPostComments(ctx context.Context, postID, subreddit string, limit, depth int) ([]types.RawComment, error)
}

// HNFetcher searches Hacker News via the Algolia search API.
type HNFetcher interface {
	SearchHN(ctx context.Context, query string, limit int) ([]types.RawComment, error)
}

// RedditSearcher searches within a single subreddit, the query path the
// competitor miner (C12) uses to find complaint posts about a named product.
type RedditSearcher interface {
	SearchSubreddit(ctx context.Context, subreddit, query string, limit int) ([]types.RawPost, error)
}

// Client implements both RedditFetcher and HNFetcher against the live
// Reddit JSON API and HN Algolia search.
type Client struct {
	httpClient   *http.Client
	redditLim    *rate.Limiter
	hnLim        *rate.Limiter
}

// New builds a Client rate-limited per spec §4.1/§6: at least redditRateMs
// between Reddit calls, hnRateMs between HN calls.
func New(redditRateMs, hnRateMs int) *Client {
	return &Client{
		httpClient: &http.Client{Timeout: 15 * time.Second},
		redditLim:  rate.NewLimiter(rate.Every(time.Duration(redditRateMs)*time.Millisecond), 1),
		hnLim:      rate.NewLimiter(rate.Every(time.Duration(hnRateMs)*time.Millisecond), 1),
	}
}

// CommentLimitFor returns the per-post comment fetch cap from spec §4.1.
func CommentLimitFor(score, numComments int) int {
	switch {
	case score >= 100 || numComments >= 100:
		return 500
	case score >= 50 || numComments >= 50:
		return 300
	case score >= 10 || numComments >= 20:
		return 200
	default:
		return 100
	}
}

type redditListing struct {
	Data struct {
		Children []struct {
			Data struct {
				Name        string  `json:"name"`
				Subreddit   string  `json:"subreddit"`
				Title       string  `json:"title"`
				Selftext    string  `json:"selftext"`
				Author      string  `json:"author"`
				CreatedUTC  float64 `json:"created_utc"`
				Score       int     `json:"score"`
				NumComments int     `json:"num_comments"`
				URL         string  `json:"url"`
				Permalink   string  `json:"permalink"`
				Over18      bool    `json:"over_18"`
				Removed     bool    `json:"removed_by_category"`
				Locked      bool    `json:"locked"`
			} `json:"data"`
		} `json:"children"`
	} `json:"data"`
}

// FetchSubredditListing retrieves one page of a subreddit's listing,
// dropping NSFW/removed/locked posts per spec §4.1. A failed request
// returns a nil list and an error: TransientUpstream for transport
// failures, 429 and 5xx; ParseError for other non-200 statuses or bad
// JSON; the context error if the rate-limiter wait is cancelled. Callers
// treat that as non-fatal and move on (spec §7a).
func (c *Client) FetchSubredditListing(ctx context.Context, subreddit string, sort types.SortType, timeWindow string) ([]types.RawPost, error) {
	if err := c.redditLim.Wait(ctx); err != nil {
		return nil, err
	}

	url := fmt.Sprintf("https://www.reddit.com/r/%s/%s.json?limit=25&t=%s", subreddit, sort, timeWindow)
	var listing redditListing
	if err := c.getJSON(ctx, url, &listing); err != nil {
		return nil, err
	}

	posts := make([]types.RawPost, 0, len(listing.Data.Children))
	for _, child := range listing.Data.Children {
		d := child.Data
		if d.Over18 || d.Locked || d.Removed {
			continue
		}
		posts = append(posts, types.RawPost{
			ID:          strings.TrimPrefix(d.Name, "t3_"),
			Subreddit:   d.Subreddit,
			Title:       d.Title,
			Body:        d.Selftext,
			Author:      d.Author,
			CreatedUTC:  int64(d.CreatedUTC),
			Score:       d.Score,
			NumComments: d.NumComments,
			URL:         d.URL,
			Permalink:   d.Permalink,
			SortType:    sort,
			FetchedAt:   time.Now().UTC(),
		})
	}
	return posts, nil
}

// SearchSubreddit finds posts within a subreddit matching a free-text query
// (restrict_sr=1), the per-product complaint search the competitor miner
// (C12) runs against each vertical's whitelisted subreddits.
func (c *Client) SearchSubreddit(ctx context.Context, subreddit, query string, limit int) ([]types.RawPost, error) {
	if err := c.redditLim.Wait(ctx); err != nil {
		return nil, err
	}

	url := fmt.Sprintf("https://www.reddit.com/r/%s/search.json?q=%s&restrict_sr=1&limit=%d&sort=new",
		subreddit, strings.ReplaceAll(query, " ", "+"), limit)
	var listing redditListing
	if err := c.getJSON(ctx, url, &listing); err != nil {
		return nil, err
	}

	posts := make([]types.RawPost, 0, len(listing.Data.Children))
	for _, child := range listing.Data.Children {
		d := child.Data
		if d.Over18 || d.Locked || d.Removed {
			continue
		}
		posts = append(posts, types.RawPost{
			ID:          strings.TrimPrefix(d.Name, "t3_"),
			Subreddit:   d.Subreddit,
			Title:       d.Title,
			Body:        d.Selftext,
			Author:      d.Author,
			CreatedUTC:  int64(d.CreatedUTC),
			Score:       d.Score,
			NumComments: d.NumComments,
			URL:         d.URL,
			Permalink:   d.Permalink,
			FetchedAt:   time.Now().UTC(),
		})
	}
	return posts, nil
}

type redditCommentNode struct {
	Kind string `json:"kind"`
	Data struct {
		ID       string            `json:"id"`
		ParentID string            `json:"parent_id"`
		Body     string            `json:"body"`
		Author   string            `json:"author"`
		Created  float64           `json:"created_utc"`
		Score    int               `json:"score"`
		Replies  json.RawMessage   `json:"replies"`
	} `json:"data"`
}

type repliesListing struct {
	Data struct {
		Children []redditCommentNode `json:"children"`
	} `json:"data"`
}

// FetchPostComments walks a post's comment tree up to depth levels,
// returning a flattened list, filtered per spec §4.1: drop `[deleted]`,
// `[removed]`, and bodies under 30 characters.
func (c *Client) FetchPostComments(ctx context.Context, postID, subreddit string, limit, depth int) ([]types.RawComment, error) {
	if err := c.redditLim.Wait(ctx); err != nil {
		return nil, err
	}

	url := fmt.Sprintf("https://www.reddit.com/r/%s/comments/%s.json?limit=%d", subreddit, postID, limit)
	var raw []json.RawMessage
	if err := c.getJSON(ctx, url, &raw); err != nil {
		return nil, err
	}
	if len(raw) < 2 {
		return nil, nil
	}

	var commentsListing repliesListing
	if err := json.Unmarshal(raw[1], &commentsListing); err != nil {
		return nil, perr.New(perr.KindParse, "fetch.comments_decode", err)
	}

	var out []types.RawComment
	walkComments(commentsListing.Data.Children, postID, subreddit, depth, 0, &out)
	if len(out) > limit {
		out = out[:limit]
	}
	return out, nil
}

func walkComments(nodes []redditCommentNode, postID, subreddit string, maxDepth, curDepth int, out *[]types.RawComment) {
	if curDepth > maxDepth {
		return
	}
	for _, n := range nodes {
		if n.Kind != "t1" {
			continue
		}
		if isFilteredBody(n.Data.Body) {
			continue
		}
		*out = append(*out, types.RawComment{
			ID:         n.Data.ID,
			PostID:     postID,
			ParentID:   strings.TrimPrefix(n.Data.ParentID, "t1_"),
			Body:       n.Data.Body,
			Author:     n.Data.Author,
			CreatedUTC: int64(n.Data.Created),
			Score:      n.Data.Score,
			Subreddit:  subreddit,
			FetchedAt:  time.Now().UTC(),
		})

		if len(n.Data.Replies) == 0 {
			continue
		}
		var replies repliesListing
		if err := json.Unmarshal(n.Data.Replies, &replies); err != nil {
			continue // malformed/empty replies blob ("" for leaf comments); not an error
		}
		walkComments(replies.Data.Children, postID, subreddit, maxDepth, curDepth+1, out)
	}
}

// isFilteredBody reports whether a comment body must be dropped per spec
// §4.1: removed/deleted markers, or under 30 characters.
func isFilteredBody(body string) bool {
	trimmed := strings.TrimSpace(body)
	if trimmed == "[deleted]" || trimmed == "[removed]" {
		return true
	}
	return len(trimmed) < 30
}

type hnSearchResponse struct {
	Hits []struct {
		ObjectID    string  `json:"objectID"`
		CommentText string  `json:"comment_text"`
		Author      string  `json:"author"`
		CreatedAt   float64 `json:"created_at_i"`
		Points      int     `json:"points"`
		StoryTitle  string  `json:"story_title"`
	} `json:"hits"`
}

// SearchHN searches HN comments via Algolia's public search API, treating
// each hit as a synthesized comment under a pseudo-subreddit "hackernews"
// so it flows through the same downstream pipeline as Reddit comments.
func (c *Client) SearchHN(ctx context.Context, query string, limit int) ([]types.RawComment, error) {
	if err := c.hnLim.Wait(ctx); err != nil {
		return nil, err
	}

	url := fmt.Sprintf("https://hn.algolia.com/api/v1/search_by_date?query=%s&tags=comment&hitsPerPage=%d",
		strings.ReplaceAll(query, " ", "+"), limit)
	var resp hnSearchResponse
	if err := c.getJSON(ctx, url, &resp); err != nil {
		return nil, err
	}

	out := make([]types.RawComment, 0, len(resp.Hits))
	for _, h := range resp.Hits {
		if isFilteredBody(h.CommentText) {
			continue
		}
		out = append(out, types.RawComment{
			ID:         h.ObjectID,
			PostID:     h.ObjectID,
			Body:       h.CommentText,
			Author:     h.Author,
			CreatedUTC: int64(h.CreatedAt),
			Score:      h.Points,
			PostTitle:  h.StoryTitle,
			Subreddit:  "hackernews",
			FetchedAt:  time.Now().UTC(),
		})
	}
	return out, nil
}

func (c *Client) getJSON(ctx context.Context, url string, out any) error {
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, url, nil)
	if err != nil {
		return perr.New(perr.KindValidation, "fetch.request", err)
	}
	req.Header.Set("User-Agent", userAgent)

	resp, err := c.httpClient.Do(req)
	if err != nil {
		return perr.New(perr.KindTransientUpstream, "fetch.do", err)
	}
	defer func() { _ = resp.Body.Close() }()

	if resp.StatusCode == http.StatusTooManyRequests || resp.StatusCode >= 500 {
		return perr.New(perr.KindTransientUpstream, "fetch.status", fmt.Errorf("status %d", resp.StatusCode))
	}
	if resp.StatusCode != http.StatusOK {
		return perr.New(perr.KindParse, "fetch.status", fmt.Errorf("status %d", resp.StatusCode))
	}

	body, err := io.ReadAll(resp.Body)
	if err != nil {
		return perr.New(perr.KindTransientUpstream, "fetch.read", err)
	}
	if err := json.Unmarshal(body, out); err != nil {
		return perr.New(perr.KindParse, "fetch.decode", err)
	}
	return nil
}
