package geo

import (
	"testing"

	"github.com/stretchr/testify/assert"

	"github.com/anton-mundy-ai/reddit-pain-finder-sub000/internal/config"
	"github.com/anton-mundy-ai/reddit-pain-finder-sub000/internal/types"
)

func testPhase() *Phase {
	data := []config.GeoRegionData{
		{
			Region:     "AU",
			Subreddits: []string{"melbourne", "australia"},
			Patterns: []config.GeoPattern{
				{Pattern: `\b(australia|australian|aussie)\b`, Weight: 0.8},
				{Pattern: `\b(abn|gst|ato)\b`, Weight: 0.7},
			},
		},
		{
			Region:     "US",
			Subreddits: []string{"personalfinance"},
			Patterns: []config.GeoPattern{
				{Pattern: `\b(irs|401k)\b`, Weight: 0.7},
			},
		},
	}
	return New(nil, 10, data)
}

func TestScoreWhitelistedSubreddit(t *testing.T) {
	p := testPhase()
	region, confidence, signals := p.score(types.PainRecord{Subreddit: "melbourne", RawQuote: "just a quote"})
	assert.Equal(t, "AU", region)
	assert.InDelta(t, 0.9, confidence, 0.0001)
	assert.Contains(t, signals, "subreddit:melbourne")
}

func TestScoreKeywordPatternOnly(t *testing.T) {
	p := testPhase()
	region, confidence, _ := p.score(types.PainRecord{Subreddit: "smallbusiness", RawQuote: "chasing ABN invoices is a pain"})
	assert.Equal(t, "AU", region)
	assert.InDelta(t, 0.7, confidence, 0.0001)
}

func TestScoreNoMatchFallsBackToGlobal(t *testing.T) {
	p := testPhase()
	region, confidence, signals := p.score(types.PainRecord{Subreddit: "entrepreneur", RawQuote: "no regional signal here"})
	assert.Equal(t, "GLOBAL", region)
	assert.InDelta(t, globalBase, confidence, 0.0001)
	assert.Empty(t, signals)
}

func TestScoreClampsConfidenceAtOne(t *testing.T) {
	p := testPhase()
	_, confidence, _ := p.score(types.PainRecord{Subreddit: "australia", RawQuote: "australian aussie ABN gst ato"})
	assert.LessOrEqual(t, confidence, 1.0)
}

func TestScoreCapsSignalsAtFive(t *testing.T) {
	p := New(nil, 10, []config.GeoRegionData{{
		Region: "AU",
		Patterns: []config.GeoPattern{
			{Pattern: `one`, Weight: 0.1}, {Pattern: `two`, Weight: 0.1},
			{Pattern: `three`, Weight: 0.1}, {Pattern: `four`, Weight: 0.1},
			{Pattern: `five`, Weight: 0.1}, {Pattern: `six`, Weight: 0.1},
		},
	}})
	_, _, signals := p.score(types.PainRecord{RawQuote: "one two three four five six"})
	assert.LessOrEqual(t, len(signals), maxSignals)
}
