// Package llm wraps the Anthropic API for every structured call the
// pipeline makes (binary filter, tagger, merger, synthesizer, market
// estimator, feature extractor, competitor sentiment). It generalizes the
// teacher's internal/compact/haiku.go haikuClient: same retry/backoff-driven
// call loop and OTel instrumentation, but backed by cenkalti/backoff instead
// of a hand-rolled loop, and parameterized over a response schema instead of
// being hardcoded to one prompt template.
package llm

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"net"
	"time"

	"github.com/anthropics/anthropic-sdk-go"
	"github.com/anthropics/anthropic-sdk-go/option"
	"github.com/cenkalti/backoff/v4"
	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/codes"
	"go.opentelemetry.io/otel/metric"

	"github.com/anton-mundy-ai/reddit-pain-finder-sub000/internal/perr"
	"github.com/anton-mundy-ai/reddit-pain-finder-sub000/internal/telemetry"
)

// ErrAPIKeyRequired is returned when no Anthropic API key was configured.
var ErrAPIKeyRequired = errors.New("anthropic API key required")

// Client wraps the Anthropic API for the pipeline's structured LLM calls.
type Client struct {
	client     anthropic.Client
	model      anthropic.Model
	maxRetries uint64
}

// New builds a Client. apiKey must be non-empty; callers typically source it
// from config.Config.AnthropicAPIKey (itself sourced from the environment).
func New(apiKey, model string) (*Client, error) {
	if apiKey == "" {
		return nil, ErrAPIKeyRequired
	}
	return &Client{
		client:     anthropic.NewClient(option.WithAPIKey(apiKey)),
		model:      anthropic.Model(model),
		maxRetries: 3,
	}, nil
}

// call sends a single-turn prompt and returns the raw text response, retrying
// transient failures with exponential backoff (spec §7 TransientUpstream).
func (c *Client) call(ctx context.Context, op, prompt string, maxTokens int64) (string, error) {
	ctx, span := telemetry.StartSpan(ctx, "llm."+op)
	defer span.End()
	span.SetAttributes(
		attribute.String("painminer.llm.model", string(c.model)),
		attribute.String("painminer.llm.op", op),
	)

	metrics := telemetry.Phase()

	params := anthropic.MessageNewParams{
		Model:     c.model,
		MaxTokens: maxTokens,
		Messages: []anthropic.MessageParam{
			anthropic.NewUserMessage(anthropic.NewTextBlock(prompt)),
		},
	}

	var result string
	policy := backoff.WithMaxRetries(backoff.NewExponentialBackOff(), c.maxRetries)

	err := backoff.Retry(func() error {
		t0 := time.Now()
		message, callErr := c.client.Messages.New(ctx, params)
		ms := float64(time.Since(t0).Milliseconds())

		modelAttr := attribute.String("painminer.llm.model", string(c.model))
		metrics.LLMCalls.Add(ctx, 1, metric.WithAttributes(modelAttr))
		metrics.LLMDuration.Record(ctx, ms, metric.WithAttributes(modelAttr))

		if callErr == nil {
			metrics.LLMInputTok.Add(ctx, message.Usage.InputTokens, metric.WithAttributes(modelAttr))
			metrics.LLMOutputTok.Add(ctx, message.Usage.OutputTokens, metric.WithAttributes(modelAttr))

			if len(message.Content) == 0 {
				return backoff.Permanent(fmt.Errorf("empty response content"))
			}
			content := message.Content[0]
			if content.Type != "text" {
				return backoff.Permanent(fmt.Errorf("unexpected response format: not a text block (type=%s)", content.Type))
			}
			result = content.Text
			return nil
		}

		if ctx.Err() != nil {
			return backoff.Permanent(ctx.Err())
		}
		if !isRetryable(callErr) {
			return backoff.Permanent(callErr)
		}
		return callErr
	}, policy)

	if err != nil {
		span.RecordError(err)
		span.SetStatus(codes.Error, err.Error())
		return "", perr.New(perr.KindTransientUpstream, "llm."+op, err)
	}
	return result, nil
}

func isRetryable(err error) bool {
	if err == nil {
		return false
	}
	if errors.Is(err, context.Canceled) || errors.Is(err, context.DeadlineExceeded) {
		return false
	}
	var netErr net.Error
	if errors.As(err, &netErr) && netErr.Timeout() {
		return true
	}
	var apiErr *anthropic.Error
	if errors.As(err, &apiErr) {
		return apiErr.StatusCode == 429 || apiErr.StatusCode >= 500
	}
	return false
}

// extractJSON parses the first balanced {...} block in s, tolerating models
// that wrap JSON in prose or markdown fences.
func extractJSON(s string) (string, error) {
	start := -1
	depth := 0
	for i, r := range s {
		switch r {
		case '{':
			if depth == 0 {
				start = i
			}
			depth++
		case '}':
			if depth > 0 {
				depth--
				if depth == 0 && start >= 0 {
					return s[start : i+1], nil
				}
			}
		}
	}
	return "", fmt.Errorf("no JSON object found in response")
}

func decodeInto(raw string, v interface{}) error {
	js, err := extractJSON(raw)
	if err != nil {
		return err
	}
	return json.Unmarshal([]byte(js), v)
}
