package mcda

import (
	"errors"
	"fmt"

	"gonum.org/v1/gonum/mat"
)

// Validation errors returned before any particle is touched.
var (
	ErrEmptyParticleSet = errors.New("empty particle set")
	ErrShapeMismatch    = errors.New("shape mismatch")
)

// Default configuration values. Absent inputs are never silently
// reinterpreted; these apply only through DefaultStepConfig.
const (
	// DefaultClutterDensity is the density of the clutter measurement
	// distribution.
	DefaultClutterDensity = 0.01
	// DefaultWorkers is the worker count for the evaluation stage.
	DefaultWorkers = 4
)

// StepConfig holds configuration for the update step.
type StepConfig struct {
	// TargetPriors are the target-hit association priors. The zero
	// value means uniform 1/NT.
	TargetPriors Priors

	// ClutterPrior is the prior probability of a clutter origin.
	// The zero value means 0.
	ClutterPrior ClutterPrior

	// ClutterDensity is the (scalar) clutter measurement density.
	ClutterDensity float64

	// ClutterDensities optionally overrides ClutterDensity with one
	// value per particle. Leave nil for the stock scalar behaviour.
	ClutterDensities []float64

	// Workers bounds the concurrency of the evaluation stage.
	Workers int
}

// DefaultStepConfig returns the documented default configuration:
// uniform target priors, zero clutter prior, clutter density 0.01.
func DefaultStepConfig() StepConfig {
	return StepConfig{
		ClutterDensity: DefaultClutterDensity,
		Workers:        DefaultWorkers,
	}
}

// Filter runs the data-association measurement update over a particle
// set. It owns no particle state; particles are supplied per call and
// mutated in place.
type Filter struct {
	updater    TargetUpdater
	sampler    Sampler
	normalizer Normalizer
	cfg        StepConfig

	// priors and clutterPrior are the resolved forms of the configured
	// values, fixed at construction.
	priors       Priors
	clutterPrior ClutterPrior
}

// New builds a Filter from its three collaborators and a configuration.
func New(updater TargetUpdater, sampler Sampler, normalizer Normalizer, cfg StepConfig) (*Filter, error) {
	if updater == nil || sampler == nil || normalizer == nil {
		return nil, errors.New("mcda: updater, sampler and normalizer are all required")
	}
	return &Filter{
		updater:      updater,
		sampler:      sampler,
		normalizer:   normalizer,
		cfg:          cfg,
		priors:       cfg.TargetPriors,
		clutterPrior: cfg.ClutterPrior,
	}, nil
}

// Step processes one measurement: it evaluates a candidate update for
// every (target, particle) pair, samples an association per particle,
// commits the chosen candidate states and weight corrections, and
// renormalizes the particle weights.
//
// The returned association vector has one entry per particle: 0 for
// clutter, 1..NT for a target (1-based). Only the associated target of
// each particle is mutated; every other target state is left untouched.
func (f *Filter) Step(ps ParticleSet, z mat.Vector, model MeasurementModel, noiseCov mat.Symmetric) ([]int, error) {
	if err := f.validate(ps, z, model, noiseCov); err != nil {
		return nil, err
	}
	nt := len(ps[0].Targets)

	priors := f.priors
	if priors.isZero() {
		priors = UniformPriors(nt)
	}

	cand, err := f.evaluate(ps, z, model, noiseCov)
	if err != nil {
		return nil, err
	}

	draws, err := f.associate(cand, priors)
	if err != nil {
		return nil, err
	}

	assoc := f.commit(cand, draws, ps)

	w := ps.Weights()
	if err := f.normalizer.Normalize(w); err != nil {
		return nil, fmt.Errorf("normalize weights: %w", err)
	}
	ps.setWeights(w)

	return assoc, nil
}

// commit applies the weight corrections and, for target draws, installs
// the candidate posterior into the chosen target slot.
func (f *Filter) commit(cand *candidates, draws []drawResult, ps ParticleSet) []int {
	assoc := make([]int, len(ps))
	for j, d := range draws {
		ps[j].Weight *= d.wcorr
		if d.index < cand.nt {
			ps[j].Targets[d.index] = cand.state(d.index, j)
			assoc[j] = d.index + 1
		} else {
			assoc[j] = Clutter
		}
	}
	return assoc
}

func (f *Filter) validate(ps ParticleSet, z mat.Vector, model MeasurementModel, noiseCov mat.Symmetric) error {
	if len(ps) == 0 {
		return ErrEmptyParticleSet
	}

	nt := len(ps[0].Targets)
	for j, p := range ps {
		if len(p.Targets) != nt {
			return fmt.Errorf("%w: particle %d has %d targets, want %d", ErrShapeMismatch, j, len(p.Targets), nt)
		}
	}

	_, nz := model.Dims()
	if z.Len() != nz {
		return fmt.Errorf("%w: measurement has %d elements, model expects %d", ErrShapeMismatch, z.Len(), nz)
	}
	if noiseCov.SymmetricDim() != nz {
		return fmt.Errorf("%w: noise covariance is %dx%d, model expects %d", ErrShapeMismatch,
			noiseCov.SymmetricDim(), noiseCov.SymmetricDim(), nz)
	}

	if !f.priors.isZero() {
		if err := f.priors.validate(nt, len(ps)); err != nil {
			return err
		}
	}
	if err := f.clutterPrior.validate(len(ps)); err != nil {
		return err
	}
	if f.cfg.ClutterDensities != nil && len(f.cfg.ClutterDensities) != len(ps) {
		return fmt.Errorf("%w: clutter densities have %d entries, want %d particles", ErrShapeMismatch,
			len(f.cfg.ClutterDensities), len(ps))
	}

	return nil
}
