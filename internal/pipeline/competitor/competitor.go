// Package competitor implements the competitor miner (C12): each tick it
// rotates through three verticals from config/competitors.yaml, searches
// each vertical's whitelisted subreddits and Hacker News for complaints
// about the named products, and records sentiment/feature-gap extractions.
package competitor

import (
	"context"
	"regexp"
	"strconv"
	"strings"

	"github.com/anton-mundy-ai/reddit-pain-finder-sub000/internal/config"
	"github.com/anton-mundy-ai/reddit-pain-finder-sub000/internal/llm"
	"github.com/anton-mundy-ai/reddit-pain-finder-sub000/internal/telemetry"
	"github.com/anton-mundy-ai/reddit-pain-finder-sub000/internal/types"
)

// verticalsPerRun is how many verticals the rotating index advances through
// on each tick (spec §4.12).
const verticalsPerRun = 3

var complaintQueries = []string{"frustrated", "hate", "switching from", "alternative to", "cancelled"}

var featureGapPatterns = []*regexp.Regexp{
	regexp.MustCompile(`(?i)i wish (it|they) (could|would) [^.!?]{3,60}`),
	regexp.MustCompile(`(?i)missing [^.!?]{3,60}`),
	regexp.MustCompile(`(?i)no way to [^.!?]{3,60}`),
	regexp.MustCompile(`(?i)doesn't (support|have|let you) [^.!?]{3,60}`),
	regexp.MustCompile(`(?i)can't (seem to|figure out how to) [^.!?]{3,60}`),
}

var negativeWords = []string{"hate", "terrible", "awful", "broken", "garbage", "worst", "nightmare", "scam"}
var frustratedWords = []string{"frustrated", "frustrating", "annoying", "annoyed", "confusing", "struggling", "sick of"}

// RedditSearcher is the subset of fetch.Client the competitor miner needs.
type RedditSearcher interface {
	SearchSubreddit(ctx context.Context, subreddit, query string, limit int) ([]types.RawPost, error)
}

// HNSearcher is the subset of fetch.Client the competitor miner needs for
// its Hacker News sweep.
type HNSearcher interface {
	SearchHN(ctx context.Context, query string, limit int) ([]types.RawComment, error)
}

// Store is the subset of sqlite.Store the competitor phase depends on.
type Store interface {
	GetState(ctx context.Context, key string) (string, error)
	SetState(ctx context.Context, key, value string) error
	InsertCompetitorMention(ctx context.Context, m types.CompetitorMention) (int64, error)
}

// Phase runs the competitor miner.
type Phase struct {
	store      Store
	reddit     RedditSearcher
	hn         HNSearcher
	llmClient  *llm.Client
	verticals  []config.CompetitorVertical
	searchSize int
}

// New builds a competitor Phase. searchSize caps how many results are
// pulled per product per surface.
func New(store Store, reddit RedditSearcher, hn HNSearcher, llmClient *llm.Client, verticals []config.CompetitorVertical, searchSize int) *Phase {
	return &Phase{store: store, reddit: reddit, hn: hn, llmClient: llmClient, verticals: verticals, searchSize: searchSize}
}

// Run advances the rotating vertical index and mines the next batch of
// verticals.
func (p *Phase) Run(ctx context.Context) (found int, err error) {
	metrics := telemetry.Phase()
	log := telemetry.Logger()
	ctx, span := telemetry.StartSpan(ctx, "pipeline.competitor")
	defer span.End()
	metrics.PhaseRuns.Add(ctx, 1)
	log.Info("competitor: starting")

	if len(p.verticals) == 0 {
		log.Info("competitor: no verticals configured, skipping")
		return 0, nil
	}

	batch, nextIndex, err := p.nextBatch(ctx)
	if err != nil {
		metrics.PhaseErrors.Add(ctx, 1)
		log.Error("competitor: load rotation state", "error", err)
		return 0, err
	}

	for _, v := range batch {
		for _, product := range v.Products {
			n, err := p.mineProduct(ctx, v, product)
			if err != nil {
				metrics.PhaseErrors.Add(ctx, 1)
				log.Warn("competitor: mine product failed, skipping product", "vertical", v.Name, "product", product, "error", err)
				continue
			}
			found += n
		}
	}

	if err := p.store.SetState(ctx, types.StateVerticalIndex, strconv.Itoa(nextIndex)); err != nil {
		metrics.PhaseErrors.Add(ctx, 1)
		log.Warn("competitor: persist rotation index failed", "error", err)
	}
	log.Info("competitor: done", "mentions_found", found, "verticals", len(batch))
	return found, nil
}

func (p *Phase) nextBatch(ctx context.Context) (batch []config.CompetitorVertical, nextIndex int, err error) {
	raw, err := p.store.GetState(ctx, types.StateVerticalIndex)
	if err != nil {
		return nil, 0, err
	}
	start, _ := strconv.Atoi(raw) // unset/corrupt state starts the rotation over at 0

	n := len(p.verticals)
	for i := 0; i < verticalsPerRun && i < n; i++ {
		batch = append(batch, p.verticals[(start+i)%n])
	}
	return batch, (start + verticalsPerRun) % n, nil
}

func (p *Phase) mineProduct(ctx context.Context, vertical config.CompetitorVertical, product string) (int, error) {
	seen := make(map[string]bool)
	found := 0

	for _, sub := range vertical.Subreddits {
		for _, q := range complaintQueries {
			posts, err := p.reddit.SearchSubreddit(ctx, sub, product+" "+q, p.searchSize)
			if err != nil {
				continue
			}
			for _, post := range posts {
				if seen[post.Permalink] {
					continue
				}
				seen[post.Permalink] = true
				if err := p.recordMention(ctx, vertical.Name, product, post.Permalink, post.Subreddit, post.Title+" "+post.Body); err != nil {
					continue
				}
				found++
			}
		}
	}

	hits, err := p.hn.SearchHN(ctx, product+" alternative", p.searchSize)
	if err == nil {
		for _, h := range hits {
			url := "hn:" + h.ID
			if seen[url] {
				continue
			}
			seen[url] = true
			if err := p.recordMention(ctx, vertical.Name, product, url, "hackernews", h.Body); err != nil {
				continue
			}
			found++
		}
	}

	return found, nil
}

func (p *Phase) recordMention(ctx context.Context, vertical, product, sourceURL, subreddit, body string) error {
	sentiment, featureGap := classify(body)
	if sentiment == "neutral" && p.llmClient != nil {
		if result, err := p.llmClient.ClassifySentiment(ctx, product, body); err == nil {
			sentiment, featureGap = result.Sentiment, result.FeatureGap
		}
	}

	_, err := p.store.InsertCompetitorMention(ctx, types.CompetitorMention{
		Vertical:   vertical,
		Product:    product,
		SourceURL:  sourceURL,
		Subreddit:  subreddit,
		Body:       body,
		Sentiment:  sentiment,
		FeatureGap: featureGap,
	})
	return err
}

// classify implements spec §4.12's deterministic path: sentiment by
// keyword frequency, feature gap via a small regex library. Returns
// ("neutral", "") when nothing matches, which the caller may escalate to
// the LLM fallback.
func classify(body string) (sentiment, featureGap string) {
	lower := strings.ToLower(body)

	negCount := countMatches(lower, negativeWords)
	frustCount := countMatches(lower, frustratedWords)

	switch {
	case negCount > 0 && negCount >= frustCount:
		sentiment = "negative"
	case frustCount > 0:
		sentiment = "frustrated"
	default:
		sentiment = "neutral"
	}

	for _, re := range featureGapPatterns {
		if m := re.FindString(body); m != "" {
			featureGap = strings.TrimSpace(m)
			break
		}
	}
	return sentiment, featureGap
}

func countMatches(lower string, words []string) int {
	count := 0
	for _, w := range words {
		count += strings.Count(lower, w)
	}
	return count
}
