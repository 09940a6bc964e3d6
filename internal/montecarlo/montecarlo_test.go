package montecarlo

import (
	"math/rand"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestCategoricalDrawFrequencies(t *testing.T) {
	rnd := rand.New(rand.NewSource(1))
	c := NewCategorical(rnd)

	// Unnormalized on purpose: Draw must handle any positive scale.
	probs := []float64{2, 6, 12}
	want := []float64{0.1, 0.3, 0.6}

	const trials = 20000
	counts := make([]int, len(probs))
	for i := 0; i < trials; i++ {
		idx, err := c.Draw(probs)
		require.NoError(t, err)
		counts[idx]++
	}
	for i := range probs {
		assert.InDelta(t, want[i], float64(counts[i])/trials, 0.02, "index %d", i)
	}
}

func TestCategoricalDrawSkipsZeroEntries(t *testing.T) {
	c := NewCategorical(rand.New(rand.NewSource(2)))
	probs := []float64{0, 1, 0}
	for i := 0; i < 100; i++ {
		idx, err := c.Draw(probs)
		require.NoError(t, err)
		assert.Equal(t, 1, idx)
	}
}

func TestCategoricalDrawReproducible(t *testing.T) {
	probs := []float64{0.2, 0.5, 0.3}
	draw := func() []int {
		c := NewCategorical(rand.New(rand.NewSource(77)))
		out := make([]int, 50)
		for i := range out {
			idx, err := c.Draw(probs)
			require.NoError(t, err)
			out[i] = idx
		}
		return out
	}
	assert.Equal(t, draw(), draw())
}

func TestCategoricalDrawErrors(t *testing.T) {
	c := NewCategorical(rand.New(rand.NewSource(3)))

	_, err := c.Draw(nil)
	assert.ErrorIs(t, err, ErrEmptyVector)

	_, err = c.Draw([]float64{0.5, -0.1})
	assert.ErrorIs(t, err, ErrNegativeWeight)

	_, err = c.Draw([]float64{0, 0, 0})
	assert.Error(t, err)
}

func TestNormalize(t *testing.T) {
	n := WeightNormalizer{}

	w := []float64{1, 3, 4}
	require.NoError(t, n.Normalize(w))
	assert.InDelta(t, 0.125, w[0], 1e-12)
	assert.InDelta(t, 0.375, w[1], 1e-12)
	assert.InDelta(t, 0.5, w[2], 1e-12)
}

func TestNormalizeAllZeroResetsUniform(t *testing.T) {
	w := []float64{0, 0, 0, 0}
	require.NoError(t, WeightNormalizer{}.Normalize(w))
	for i, v := range w {
		assert.InDelta(t, 0.25, v, 1e-12, "index %d", i)
	}
}

func TestNormalizeErrors(t *testing.T) {
	n := WeightNormalizer{}
	assert.ErrorIs(t, n.Normalize(nil), ErrEmptyVector)
	assert.ErrorIs(t, n.Normalize([]float64{0.5, -0.5}), ErrNegativeWeight)
}

func TestEffectiveSampleSize(t *testing.T) {
	assert.InDelta(t, 4, EffectiveSampleSize([]float64{0.25, 0.25, 0.25, 0.25}), 1e-12)
	assert.InDelta(t, 1, EffectiveSampleSize([]float64{1, 0, 0, 0}), 1e-12)
	assert.Equal(t, 0.0, EffectiveSampleSize([]float64{0, 0}))

	// Mixed case: 1/(0.5^2 + 0.5^2) = 2.
	assert.InDelta(t, 2, EffectiveSampleSize([]float64{0.5, 0.5, 0, 0}), 1e-12)
}

func TestSystematicCountsTrackWeights(t *testing.T) {
	// Systematic resampling guarantees each ancestor appears either
	// floor(n*w) or ceil(n*w) times.
	rnd := rand.New(rand.NewSource(9))
	w := []float64{0.1, 0.4, 0.3, 0.2}
	n := len(w)

	for trial := 0; trial < 200; trial++ {
		idx, err := Systematic(rnd, w)
		require.NoError(t, err)
		require.Len(t, idx, n)

		counts := make([]int, n)
		prev := 0
		for _, a := range idx {
			require.GreaterOrEqual(t, a, prev, "ancestor indices must be non-decreasing")
			prev = a
			counts[a]++
		}
		for i, c := range counts {
			expected := float64(n) * w[i]
			assert.GreaterOrEqual(t, float64(c), expectedFloor(expected), "index %d", i)
			assert.LessOrEqual(t, float64(c), expectedFloor(expected)+1, "index %d", i)
		}
	}
}

func expectedFloor(x float64) float64 {
	return float64(int(x))
}

func TestSystematicUniformIsIdentityPermutation(t *testing.T) {
	rnd := rand.New(rand.NewSource(4))
	w := []float64{0.25, 0.25, 0.25, 0.25}
	idx, err := Systematic(rnd, w)
	require.NoError(t, err)
	assert.Equal(t, []int{0, 1, 2, 3}, idx)
}

func TestSystematicErrors(t *testing.T) {
	rnd := rand.New(rand.NewSource(5))

	_, err := Systematic(rnd, nil)
	assert.ErrorIs(t, err, ErrEmptyVector)

	_, err = Systematic(rnd, []float64{0.5, -0.5})
	assert.ErrorIs(t, err, ErrNegativeWeight)

	_, err = Systematic(rnd, []float64{0, 0})
	assert.Error(t, err)
}
