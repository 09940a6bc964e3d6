package mcda

import (
	"fmt"

	"gonum.org/v1/gonum/mat"
)

// Priors holds target-hit association priors, either one vector shared
// by all particles or a full per-particle matrix. The variant is
// resolved once at construction; lookups do not re-branch on shape.
type Priors struct {
	shared      []float64  // length NT, nil when perParticle is set
	perParticle *mat.Dense // NT x NP, nil when shared is set
}

// SharedPriors builds priors from a single vector of length NT applied
// to every particle.
func SharedPriors(p []float64) Priors {
	v := make([]float64, len(p))
	copy(v, p)
	return Priors{shared: v}
}

// PerParticlePriors builds priors from an NT x NP matrix with one
// column per particle.
func PerParticlePriors(m *mat.Dense) Priors {
	d := &mat.Dense{}
	d.CloneFrom(m)
	return Priors{perParticle: d}
}

// UniformPriors returns shared priors of 1/nt for each of nt targets.
func UniformPriors(nt int) Priors {
	p := make([]float64, nt)
	for i := range p {
		p[i] = 1 / float64(nt)
	}
	return Priors{shared: p}
}

func (p Priors) isZero() bool {
	return p.shared == nil && p.perParticle == nil
}

// at returns the prior for target i and particle j.
func (p Priors) at(i, j int) float64 {
	if p.shared != nil {
		return p.shared[i]
	}
	return p.perParticle.At(i, j)
}

func (p Priors) validate(nt, np int) error {
	if p.shared != nil {
		if len(p.shared) != nt {
			return fmt.Errorf("%w: target priors have %d entries, want %d", ErrShapeMismatch, len(p.shared), nt)
		}
		return nil
	}
	r, c := p.perParticle.Dims()
	if r != nt || c != np {
		return fmt.Errorf("%w: target prior matrix is %dx%d, want %dx%d", ErrShapeMismatch, r, c, nt, np)
	}
	return nil
}

// ClutterPrior is the prior probability that the measurement is
// clutter, either a single scalar or one value per particle.
type ClutterPrior struct {
	perParticle []float64 // nil for the scalar form
	scalar      float64
}

// ScalarClutterPrior applies one clutter prior to every particle.
func ScalarClutterPrior(v float64) ClutterPrior {
	return ClutterPrior{scalar: v}
}

// PerParticleClutterPrior applies one clutter prior per particle.
func PerParticleClutterPrior(v []float64) ClutterPrior {
	c := make([]float64, len(v))
	copy(c, v)
	return ClutterPrior{perParticle: c}
}

// at returns the clutter prior for particle j.
func (c ClutterPrior) at(j int) float64 {
	if c.perParticle != nil {
		return c.perParticle[j]
	}
	return c.scalar
}

func (c ClutterPrior) validate(np int) error {
	if c.perParticle != nil && len(c.perParticle) != np {
		return fmt.Errorf("%w: clutter prior has %d entries, want %d particles", ErrShapeMismatch, len(c.perParticle), np)
	}
	return nil
}
