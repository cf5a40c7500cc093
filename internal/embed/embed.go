// Package embed generates and compares embedding vectors for pain records
// (C5). No embedding-provider SDK appears anywhere in the retrieval pack, so
// the HTTP call is made directly against a Voyage-AI-shaped embeddings
// endpoint with net/http/http.Client -- the same direct-HTTP style the
// teacher uses for its non-LLM outbound calls (internal/notification/
// dispatch.go's http.Client).
package embed

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"math"
	"net/http"
	"time"

	"github.com/anton-mundy-ai/reddit-pain-finder-sub000/internal/perr"
)

// Dimensions is the fixed embedding width used throughout the store (spec §3).
const Dimensions = 1536

// Client calls an embeddings endpoint in batches.
type Client struct {
	httpClient *http.Client
	endpoint   string
	apiKey     string
	model      string
}

// New builds an embedding Client pointed at endpoint (e.g. Voyage AI's
// https://api.voyageai.com/v1/embeddings).
func New(endpoint, apiKey, model string) *Client {
	return &Client{
		httpClient: &http.Client{Timeout: 30 * time.Second},
		endpoint:   endpoint,
		apiKey:     apiKey,
		model:      model,
	}
}

type embedRequest struct {
	Input []string `json:"input"`
	Model string   `json:"model"`
}

type embedResponse struct {
	Data []struct {
		Embedding []float64 `json:"embedding"`
	} `json:"data"`
}

// Embed generates one vector per input text in a single batch call (spec §4.5).
func (c *Client) Embed(ctx context.Context, texts []string) ([][]float64, error) {
	if len(texts) == 0 {
		return nil, nil
	}

	body, err := json.Marshal(embedRequest{Input: texts, Model: c.model})
	if err != nil {
		return nil, perr.New(perr.KindValidation, "embed.marshal", err)
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodPost, c.endpoint, bytes.NewReader(body))
	if err != nil {
		return nil, perr.New(perr.KindValidation, "embed.request", err)
	}
	req.Header.Set("Content-Type", "application/json")
	req.Header.Set("Authorization", "Bearer "+c.apiKey)

	resp, err := c.httpClient.Do(req)
	if err != nil {
		return nil, perr.New(perr.KindTransientUpstream, "embed.do", err)
	}
	defer func() { _ = resp.Body.Close() }()

	if resp.StatusCode == http.StatusTooManyRequests || resp.StatusCode >= 500 {
		return nil, perr.New(perr.KindTransientUpstream, "embed.status", fmt.Errorf("status %d", resp.StatusCode))
	}
	if resp.StatusCode != http.StatusOK {
		return nil, perr.New(perr.KindParse, "embed.status", fmt.Errorf("status %d", resp.StatusCode))
	}

	var out embedResponse
	if err := json.NewDecoder(resp.Body).Decode(&out); err != nil {
		return nil, perr.New(perr.KindParse, "embed.decode", err)
	}

	vectors := make([][]float64, 0, len(out.Data))
	for _, d := range out.Data {
		vectors = append(vectors, Round4dp(d.Embedding))
	}
	return vectors, nil
}

// Round4dp rounds every component to 4 decimal places per spec §3/§4.5.
func Round4dp(v []float64) []float64 {
	out := make([]float64, len(v))
	for i, x := range v {
		out[i] = math.Round(x*10000) / 10000
	}
	return out
}

// Marshal serializes a vector for storage as the JSON column described in spec §3.
func Marshal(v []float64) (string, error) {
	b, err := json.Marshal(v)
	if err != nil {
		return "", err
	}
	return string(b), nil
}

// Unmarshal parses a stored vector, truncating to Dimensions entries if the
// stored JSON is longer -- per spec §9: "MUST be validated on read; truncate
// to declared bounds; never trust shape."
func Unmarshal(raw string) ([]float64, error) {
	var v []float64
	if err := json.Unmarshal([]byte(raw), &v); err != nil {
		return nil, err
	}
	if len(v) > Dimensions {
		v = v[:Dimensions]
	}
	return v, nil
}
