package mcda

import (
	"fmt"

	"gonum.org/v1/gonum/floats"
)

// Clutter is the association value reported for a clutter draw.
const Clutter = 0

// drawResult carries one particle's sampled association and the
// importance-weight correction for it.
type drawResult struct {
	// index into the extended outcome set: 0..NT-1 are targets, NT is
	// clutter.
	index int
	wcorr float64
}

// associate builds the per-particle importance distribution over
// {targets, clutter}, draws one association per particle and computes
// the weight correction factors.
//
// The importance column for particle j is
//
//	pc[i] = LH[i,j] * effPrior[i,j]
//
// normalized to sum 1, where the effective prior scales the target-hit
// priors by (1 - clutterPrior) and appends the clutter prior as the
// last outcome. An all-zero column is replaced by a uniform
// distribution before normalizing; that is a defined fallback, not an
// error. The weight correction uses the normalized column exactly as
// sampled from, without cancelling the normalization constant, so the
// committed weights reproduce the reference arithmetic bit for bit.
//
// Draws happen sequentially in particle order so a seeded sampler
// replays identically.
func (f *Filter) associate(cand *candidates, priors Priors) ([]drawResult, error) {
	nt, np := cand.nt, cand.np
	out := make([]drawResult, np)

	eff := make([]float64, nt+1)
	pc := make([]float64, nt+1)

	for j := 0; j < np; j++ {
		cp := f.clutterPrior.at(j)
		for i := 0; i < nt; i++ {
			eff[i] = (1 - cp) * priors.at(i, j)
		}
		eff[nt] = cp

		for i := 0; i <= nt; i++ {
			pc[i] = cand.lh.At(i, j) * eff[i]
		}

		sp := floats.Sum(pc)
		if sp == 0 {
			// Nothing to discriminate on: fall back to a uniform
			// association distribution for this particle.
			for i := range pc {
				pc[i] = 1 / float64(nt+1)
			}
		} else {
			floats.Scale(1/sp, pc)
		}

		idx, err := f.sampler.Draw(pc)
		if err != nil {
			return nil, fmt.Errorf("draw association for particle %d: %w", j, err)
		}
		if idx < 0 || idx > nt {
			return nil, fmt.Errorf("sampler returned index %d for particle %d, want 0..%d", idx, j, nt)
		}

		out[j] = drawResult{
			index: idx,
			wcorr: cand.lh.At(idx, j) * eff[idx] / pc[idx],
		}
	}

	return out, nil
}
