package embed

import (
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestCosineSimilaritySelf(t *testing.T) {
	v := []float64{0.6, 0.8}
	assert.InDelta(t, 1.0, CosineSimilarity(v, v), 1e-6)
}

func TestCosineSimilarityOpposite(t *testing.T) {
	v := []float64{0.6, 0.8}
	neg := []float64{-0.6, -0.8}
	assert.InDelta(t, -1.0, CosineSimilarity(v, neg), 1e-6)
}

func TestCosineSimilarityOrthogonal(t *testing.T) {
	a := []float64{1, 0}
	b := []float64{0, 1}
	assert.InDelta(t, 0.0, CosineSimilarity(a, b), 1e-6)
}

func TestRound4dp(t *testing.T) {
	out := Round4dp([]float64{0.123456, -0.98765})
	assert.Equal(t, []float64{0.1235, -0.9877}, out)
}

func TestMarshalUnmarshalTruncates(t *testing.T) {
	v := make([]float64, Dimensions+10)
	for i := range v {
		v[i] = 0.5
	}
	s, err := Marshal(v)
	assert.NoError(t, err)

	back, err := Unmarshal(s)
	assert.NoError(t, err)
	assert.Len(t, back, Dimensions)
}
