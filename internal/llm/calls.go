package llm

import (
	"context"
	"fmt"
	"strings"

	"github.com/anton-mundy-ai/reddit-pain-finder-sub000/internal/perr"
	"github.com/anton-mundy-ai/reddit-pain-finder-sub000/internal/telemetry"
)

// binaryFilterPrompt is the literal prompt from spec §4.3.
const binaryFilterPrompt = `Is this a PERSONAL problem, frustration, or unmet need? Answer based only on the text below.

Text: %q

Respond ONLY: {"is_pain": true|false}`

// ClassifyPain runs the binary pain filter (C3) over a single comment body.
// On parse failure it defaults to true (spec §4.3: "err toward inclusion"),
// recording the defaulted-counter metric per spec §9 open question (b).
func (c *Client) ClassifyPain(ctx context.Context, body string) (BinaryFilterResult, bool, error) {
	prompt := fmt.Sprintf(binaryFilterPrompt, body)
	raw, err := c.call(ctx, "classify_pain", prompt, 64)
	if err != nil {
		return BinaryFilterResult{}, false, err
	}

	var result BinaryFilterResult
	if decodeErr := decodeInto(raw, &result); decodeErr != nil {
		telemetry.Phase().LLMDefaulted.Add(ctx, 1)
		return BinaryFilterResult{IsPain: true}, true, nil
	}
	return result, false, nil
}

const taggingPrompt = `Read the following personal pain point and produce structured tags.

Text: %q

Return 3-5 fine-grained topics (specific phrases, not broad categories), the
author's persona (a short role description), and a severity rating from
{low, medium, high, critical}.

Respond ONLY with JSON: {"topics": ["..."], "persona": "...", "severity": "..."}`

// TagQuality runs the quality tagger (C4) over one pain record's raw quote.
func (c *Client) TagQuality(ctx context.Context, rawQuote string) (TaggingResult, error) {
	prompt := fmt.Sprintf(taggingPrompt, rawQuote)
	raw, err := c.call(ctx, "tag_quality", prompt, 256)
	if err != nil {
		return TaggingResult{}, err
	}

	var result TaggingResult
	if decodeErr := decodeInto(raw, &result); decodeErr != nil {
		return TaggingResult{}, perr.New(perr.KindParse, "tag_quality", decodeErr)
	}
	if len(result.Topics) == 0 {
		return TaggingResult{}, perr.New(perr.KindParse, "tag_quality", fmt.Errorf("empty topics"))
	}
	return result, nil
}

const mergePromptHeader = `Below is a list of canonical topic phrases extracted from community
discussions. Identify pairs that refer to the same underlying concept and
should be merged. For each pair, pick the clearer/more general phrase as the
merge target.

Topics:
%s

Respond ONLY with JSON: {"merges": [{"from": "...", "to": "..."}]}`

// ProposeMerges runs the topic merger's LLM consolidation pass (C7), over at
// most 50 canonical topics per spec §4.7.
func (c *Client) ProposeMerges(ctx context.Context, topics []string) (TopicMergePlan, error) {
	if len(topics) > 50 {
		topics = topics[:50]
	}
	list := "- " + strings.Join(topics, "\n- ")
	prompt := fmt.Sprintf(mergePromptHeader, list)
	raw, err := c.call(ctx, "propose_merges", prompt, 1024)
	if err != nil {
		return TopicMergePlan{}, err
	}

	var plan TopicMergePlan
	if decodeErr := decodeInto(raw, &plan); decodeErr != nil {
		return TopicMergePlan{}, perr.New(perr.KindParse, "propose_merges", decodeErr)
	}

	// Drop self-merges: the caller applies these only when from != to (spec §4.7).
	plan.Merges = dropSelfMerges(plan.Merges)
	return plan, nil
}

// dropSelfMerges filters out merges whose From equals To, reusing the
// backing array of merges.
func dropSelfMerges(merges []TopicMerge) []TopicMerge {
	filtered := merges[:0]
	for _, m := range merges {
		if m.From != m.To {
			filtered = append(filtered, m)
		}
	}
	return filtered
}

const synthesizePromptHeader = `You are designing a product concept for a cluster of personal pain points.

Topic: %s

Member quotes (with persona and severity):
%s

Distinct personas: %s
Severity histogram: %s
Distinct subreddits: %s
%s
Produce a compact product concept.

Respond ONLY with JSON: {"product_name": "...", "tagline": "...", "how_it_works": ["step1", "step2"], "target_customer": "..."}`

// SynthesisInput bundles the gating read's snapshot for the synthesizer (C8).
type SynthesisInput struct {
	Topic            string
	Quotes           []string // up to 25, pre-formatted with persona+severity
	DistinctPersonas []string
	SeverityCounts   map[string]int
	Subreddits       []string
	PrevName         string // non-empty only when version > 0
	PrevTagline      string
}

// SynthesizeConcept runs the growth-triggered product synthesizer (C8).
func (c *Client) SynthesizeConcept(ctx context.Context, in SynthesisInput) (ProductConcept, error) {
	quotes := in.Quotes
	if len(quotes) > 25 {
		quotes = quotes[:25]
	}
	prevLine := ""
	if in.PrevName != "" {
		prevLine = fmt.Sprintf("Previous concept: %q / %q\n", in.PrevName, in.PrevTagline)
	}
	severity := make([]string, 0, len(in.SeverityCounts))
	for sev, n := range in.SeverityCounts {
		severity = append(severity, fmt.Sprintf("%s=%d", sev, n))
	}

	prompt := fmt.Sprintf(synthesizePromptHeader,
		in.Topic,
		"- "+strings.Join(quotes, "\n- "),
		strings.Join(in.DistinctPersonas, ", "),
		strings.Join(severity, ", "),
		strings.Join(in.Subreddits, ", "),
		prevLine,
	)

	raw, err := c.call(ctx, "synthesize_concept", prompt, 512)
	if err != nil {
		return ProductConcept{}, err
	}

	var concept ProductConcept
	if decodeErr := decodeInto(raw, &concept); decodeErr != nil {
		return ProductConcept{}, perr.New(perr.KindParse, "synthesize_concept", decodeErr)
	}
	return concept, nil
}

const marketPrompt = `Estimate the total addressable market (TAM) and serviceable addressable
market (SAM) for a product that solves: %s

Product concept: %s / %s

Respond ONLY with JSON: {"tam": "...", "sam": "...", "rationale": "..."}`

// EstimateMarket runs the market estimator (C13), gated on even cron ticks.
func (c *Client) EstimateMarket(ctx context.Context, topic, productName, tagline string) (MarketEstimateResult, error) {
	prompt := fmt.Sprintf(marketPrompt, topic, productName, tagline)
	raw, err := c.call(ctx, "estimate_market", prompt, 384)
	if err != nil {
		return MarketEstimateResult{}, err
	}
	var result MarketEstimateResult
	if decodeErr := decodeInto(raw, &result); decodeErr != nil {
		return MarketEstimateResult{}, perr.New(perr.KindParse, "estimate_market", decodeErr)
	}
	return result, nil
}

const featurePrompt = `List the minimum viable set of features for a product that solves: %s

Product concept: %s / %s

Respond ONLY with JSON: {"features": [{"name": "...", "type": "core|nice_to_have", "rationale": "..."}]}`

// ExtractFeatures runs the feature extractor (C13), gated on odd cron ticks.
func (c *Client) ExtractFeatures(ctx context.Context, topic, productName, tagline string) (FeatureExtractionResult, error) {
	prompt := fmt.Sprintf(featurePrompt, topic, productName, tagline)
	raw, err := c.call(ctx, "extract_features", prompt, 512)
	if err != nil {
		return FeatureExtractionResult{}, err
	}
	var result FeatureExtractionResult
	if decodeErr := decodeInto(raw, &result); decodeErr != nil {
		return FeatureExtractionResult{}, perr.New(perr.KindParse, "extract_features", decodeErr)
	}
	return result, nil
}

const sentimentPrompt = `Classify the sentiment of this complaint about %s and, if present, extract
the specific missing-feature phrase the author is expressing.

Text: %q

Respond ONLY with JSON: {"sentiment": "negative|frustrated|neutral", "feature_gap": "..."}`

// ClassifySentiment is the optional LLM fallback for the competitor miner
// (C12), used only when the deterministic keyword classifier is unsure.
func (c *Client) ClassifySentiment(ctx context.Context, product, body string) (SentimentResult, error) {
	prompt := fmt.Sprintf(sentimentPrompt, product, body)
	raw, err := c.call(ctx, "classify_sentiment", prompt, 128)
	if err != nil {
		return SentimentResult{}, err
	}
	var result SentimentResult
	if decodeErr := decodeInto(raw, &result); decodeErr != nil {
		return SentimentResult{}, perr.New(perr.KindParse, "classify_sentiment", decodeErr)
	}
	return result, nil
}
