package sqlite

import (
	"encoding/json"

	"github.com/anton-mundy-ai/reddit-pain-finder-sub000/internal/types"
)

// marshalQuotes/unmarshalQuotes pack a cluster's top_quotes rollup as JSON
// text in a single SQLite column -- the same "structured data in a TEXT
// column" approach the teacher uses for its own denormalized rollups,
// rather than a join-heavy quotes table for what is a bounded, small list.
func marshalQuotes(q []types.Quote) (string, error) {
	if len(q) == 0 {
		return "", nil
	}
	b, err := json.Marshal(q)
	if err != nil {
		return "", err
	}
	return string(b), nil
}

func unmarshalQuotes(s string) ([]types.Quote, error) {
	if s == "" {
		return nil, nil
	}
	var q []types.Quote
	if err := json.Unmarshal([]byte(s), &q); err != nil {
		return nil, err
	}
	return q, nil
}
