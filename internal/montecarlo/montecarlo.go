// Package montecarlo provides the random sampling and weight
// bookkeeping collaborators of the particle tracker: a seedable
// categorical sampler, weight normalization, effective sample size and
// systematic resampling.
//
// All randomness flows through explicitly injected *rand.Rand sources;
// nothing in this package touches the global generator.
package montecarlo

import (
	"errors"
	"fmt"
	"math/rand"

	"gonum.org/v1/gonum/floats"
)

var (
	// ErrNegativeWeight is returned when a probability or weight
	// vector contains a negative entry.
	ErrNegativeWeight = errors.New("negative weight")
	// ErrEmptyVector is returned for zero-length inputs.
	ErrEmptyVector = errors.New("empty vector")
)

// Categorical draws indices from categorical distributions using an
// injected random source, one uniform variate per draw.
type Categorical struct {
	rnd *rand.Rand
}

// NewCategorical creates a sampler driven by rnd. A seeded source
// replays draw sequences deterministically.
func NewCategorical(rnd *rand.Rand) *Categorical {
	return &Categorical{rnd: rnd}
}

// Draw returns one index distributed proportionally to probs. The input
// must be non-negative with a positive sum; it does not have to be
// normalized.
func (c *Categorical) Draw(probs []float64) (int, error) {
	if len(probs) == 0 {
		return 0, ErrEmptyVector
	}
	sum := 0.0
	for i, p := range probs {
		if p < 0 {
			return 0, fmt.Errorf("%w: probs[%d] = %v", ErrNegativeWeight, i, p)
		}
		sum += p
	}
	if sum <= 0 {
		return 0, errors.New("probability vector sums to zero")
	}

	r := c.rnd.Float64() * sum
	acc := 0.0
	for i, p := range probs {
		acc += p
		if r < acc {
			return i, nil
		}
	}
	// Rounding pushed r past the accumulated sum; the last non-zero
	// entry wins.
	for i := len(probs) - 1; i >= 0; i-- {
		if probs[i] > 0 {
			return i, nil
		}
	}
	return len(probs) - 1, nil
}

// WeightNormalizer rescales weight vectors to sum to 1.
type WeightNormalizer struct{}

// Normalize rescales w in place so it sums to 1. An all-zero vector is
// reset to uniform; negative entries are rejected.
func (WeightNormalizer) Normalize(w []float64) error {
	if len(w) == 0 {
		return ErrEmptyVector
	}
	for i, v := range w {
		if v < 0 {
			return fmt.Errorf("%w: weights[%d] = %v", ErrNegativeWeight, i, v)
		}
	}
	sum := floats.Sum(w)
	if sum == 0 {
		for i := range w {
			w[i] = 1 / float64(len(w))
		}
		return nil
	}
	floats.Scale(1/sum, w)
	return nil
}

// EffectiveSampleSize returns 1 / sum(w_i^2) for a normalized weight
// vector, the usual degeneracy measure for deciding when to resample.
func EffectiveSampleSize(w []float64) float64 {
	ss := 0.0
	for _, v := range w {
		ss += v * v
	}
	if ss == 0 {
		return 0
	}
	return 1 / ss
}

// Systematic performs systematic resampling over a normalized weight
// vector and returns the selected ancestor index for each offspring
// slot. It uses a single uniform variate from rnd, giving lower
// variance than independent multinomial draws.
func Systematic(rnd *rand.Rand, w []float64) ([]int, error) {
	n := len(w)
	if n == 0 {
		return nil, ErrEmptyVector
	}
	for i, v := range w {
		if v < 0 {
			return nil, fmt.Errorf("%w: weights[%d] = %v", ErrNegativeWeight, i, v)
		}
	}
	sum := floats.Sum(w)
	if sum <= 0 {
		return nil, errors.New("weight vector sums to zero")
	}

	idx := make([]int, n)
	step := sum / float64(n)
	u := rnd.Float64() * step
	acc := w[0]
	j := 0
	for i := 0; i < n; i++ {
		for u > acc && j < n-1 {
			j++
			acc += w[j]
		}
		idx[i] = j
		u += step
	}
	return idx, nil
}
