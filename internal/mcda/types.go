package mcda

import (
	"gonum.org/v1/gonum/mat"
)

// TargetState holds one target's Gaussian state estimate within a
// single particle: mean vector and covariance matrix.
type TargetState struct {
	Mean *mat.VecDense
	Cov  *mat.SymDense
}

// Clone returns a deep copy of the target state.
func (s TargetState) Clone() TargetState {
	mean := mat.NewVecDense(s.Mean.Len(), nil)
	mean.CopyVec(s.Mean)
	cov := mat.NewSymDense(s.Cov.SymmetricDim(), nil)
	cov.CopySym(s.Cov)
	return TargetState{Mean: mean, Cov: cov}
}

// Particle is one weighted hypothesis of the joint multi-target state.
// Targets is ordered and has the same length for every particle in a set.
type Particle struct {
	Weight  float64
	Targets []TargetState
}

// Clone returns a deep copy of the particle.
func (p *Particle) Clone() *Particle {
	targets := make([]TargetState, len(p.Targets))
	for i, t := range p.Targets {
		targets[i] = t.Clone()
	}
	return &Particle{Weight: p.Weight, Targets: targets}
}

// ParticleSet is an ordered collection of particles. Order is positional
// only: it is used to index per-particle results.
type ParticleSet []*Particle

// Weights returns a copy of the particle weights.
func (ps ParticleSet) Weights() []float64 {
	w := make([]float64, len(ps))
	for i, p := range ps {
		w[i] = p.Weight
	}
	return w
}

// setWeights writes w back into the particles. len(w) must equal len(ps).
func (ps ParticleSet) setWeights(w []float64) {
	for i, p := range ps {
		p.Weight = w[i]
	}
}

// MeasurementModel maps a target state vector to a predicted measurement.
// Model parameters (sensor geometry, calibration, etc.) are carried by
// the implementing value and are opaque to this package.
type MeasurementModel interface {
	// Observe returns the predicted measurement for state x.
	Observe(x mat.Vector) (mat.Vector, error)
	// Dims returns the state and measurement dimensions.
	Dims() (nx, nz int)
}

// UpdateResult is the output of a single-target Bayesian update.
// Gain, Innovation and InnovationCov are byproducts some updaters
// expose; the association step consumes only Mean, Cov and Likelihood.
type UpdateResult struct {
	Mean       *mat.VecDense
	Cov        *mat.SymDense
	Likelihood float64

	Gain          *mat.Dense
	Innovation    *mat.VecDense
	InnovationCov *mat.SymDense
}

// TargetUpdater performs a single-target nonlinear Bayesian measurement
// update: given a prior state, a measurement, the measurement model and
// the measurement noise covariance it produces the posterior state and
// the scalar likelihood of the measurement under the predictive
// distribution.
type TargetUpdater interface {
	Update(prior TargetState, z mat.Vector, model MeasurementModel, noiseCov mat.Symmetric) (*UpdateResult, error)
}

// Sampler draws one index from a categorical distribution. The input is
// a non-negative vector summing to 1; independence across successive
// draws is required.
type Sampler interface {
	Draw(probs []float64) (int, error)
}

// Normalizer rescales a weight vector to sum to 1, in place. Behaviour
// on an all-zero vector is the normalizer's own contract.
type Normalizer interface {
	Normalize(weights []float64) error
}
