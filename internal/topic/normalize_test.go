package topic

import (
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestNormalizeSynonymsUnify(t *testing.T) {
	assert.Equal(t, Normalize("client onboarding"), Normalize("customer onboarding"))
}

func TestNormalizeIsFixedPoint(t *testing.T) {
	cases := []string{
		"Client Onboarding",
		"stripe_payouts-delayed",
		"invoices invoice invoicing",
		"",
		"   ",
	}
	for _, c := range cases {
		once := Normalize(c)
		twice := Normalize(once)
		assert.Equal(t, once, twice, "not a fixed point for %q", c)
	}
}

func TestNormalizeCollapsesDuplicateTokens(t *testing.T) {
	assert.Equal(t, "payout delay", Normalize("payout payout delay"))
}

func TestSimilarEquality(t *testing.T) {
	assert.True(t, Similar("client onboarding", "customer onboarding"))
}

func TestSimilarSubstring(t *testing.T) {
	assert.True(t, Similar("payout delay", "payout delay stripe"))
}

func TestSimilarJaccard(t *testing.T) {
	// "invoice reminder email" vs "invoice reminder notification" share 2/4 words = 0.5, not > 0.6
	assert.False(t, Similar("invoice reminder email", "invoice reminder notification"))
}

func TestSimilarUnrelated(t *testing.T) {
	assert.False(t, Similar("payout delay", "dark mode toggle"))
}
