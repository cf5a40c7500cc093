// Package topic implements the deterministic half of the topic merger (C7):
// normalization and similarity. The LLM consolidation pass lives in
// internal/llm and internal/pipeline/merge.
package topic

import "strings"

// synonyms maps a word's *stemmed* form to its canonical spelling. Keying on
// the stem (after suffix stripping) rather than the raw word is what keeps
// Normalize a fixed point under re-application: "customer" and "customers"
// both stem to "custom" before this lookup runs, so they land on the same
// canonical token whichever spelling a caller passes back in.
var synonyms = map[string]string{
	"client": "customer", // clients, client -> customer
	"custom": "customer", // customer, customers (stem drops the trailing "er") -> customer
	"pay":    "payout",   // payments (stem drops "ments") -> payout, alongside payouts/payout
}

// suffixes is the fixed strip list from spec §4.7, longest/most specific first
// so e.g. "ers" is tried before the bare "s" it would otherwise also match.
var suffixes = []string{"ization", "ments", "ment", "ness", "ing", "ers", "er", "s"}

// Normalize reduces a free-text topic phrase to its canonical form: lowercase,
// underscores/hyphens become spaces, whitespace collapses, each word is
// stemmed via the fixed suffix list and then passed through the synonym
// table, consecutive duplicate tokens collapse, and the result is rejoined
// with single spaces.
//
// Normalize is idempotent: Normalize(Normalize(t)) == Normalize(t) (spec §8).
func Normalize(topic string) string {
	s := strings.ToLower(topic)
	s = strings.ReplaceAll(s, "_", " ")
	s = strings.ReplaceAll(s, "-", " ")

	fields := strings.Fields(s)
	words := make([]string, 0, len(fields))
	for _, w := range fields {
		stem := stripSuffix(w)
		if canon, ok := synonyms[stem]; ok {
			w = canon
		} else {
			w = stem
		}
		words = append(words, w)
	}

	deduped := make([]string, 0, len(words))
	for i, w := range words {
		if i > 0 && words[i-1] == w {
			continue
		}
		deduped = append(deduped, w)
	}

	return strings.Join(deduped, " ")
}

func stripSuffix(w string) string {
	// A word reduced too short by stripping is kept whole: stripping is meant
	// to collapse plurals/gerunds, not erase short canonical nouns.
	for _, suf := range suffixes {
		if len(w) > len(suf)+2 && strings.HasSuffix(w, suf) {
			return w[:len(w)-len(suf)]
		}
	}
	return w
}
