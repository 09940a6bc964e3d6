// Package mcda implements the measurement-update step of a Monte Carlo
// data-association tracker.
//
// Each particle carries one state estimate per tracked target. When a
// measurement arrives, the step evaluates a candidate Bayesian update
// for every (target, particle) pair, samples an association (target or
// clutter) per particle from an importance distribution built from the
// measurement likelihoods and association priors, commits the chosen
// candidate into the particle, and corrects the particle weight for
// having sampled from the importance distribution rather than the true
// association posterior.
//
// Key types: Filter, Particle, TargetState, StepConfig.
//
// The single-target Bayesian update (TargetUpdater), categorical draw
// (Sampler) and weight normalization (Normalizer) are collaborators
// supplied by the caller; see internal/ukf and internal/montecarlo for
// the stock implementations. Resampling never happens inside the step.
package mcda
