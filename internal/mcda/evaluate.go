package mcda

import (
	"fmt"
	"sync"
	"sync/atomic"

	"gonum.org/v1/gonum/mat"
)

// candidates holds the per-(target, particle) outputs of the evaluation
// stage: candidate posterior states and the likelihood table. The
// likelihood table has NT+1 rows; the extra row is the clutter density,
// for which no update is performed. The tables live for one step only.
type candidates struct {
	nt, np int

	// states[i*np+j] is the candidate posterior for target i, particle j.
	states []TargetState

	// lh is (NT+1) x NP.
	lh *mat.Dense
}

func newCandidates(nt, np int) *candidates {
	return &candidates{
		nt:     nt,
		np:     np,
		states: make([]TargetState, nt*np),
		lh:     mat.NewDense(nt+1, np, nil),
	}
}

func (c *candidates) state(i, j int) TargetState {
	return c.states[i*c.np+j]
}

// evaluate runs the single-target updater for every (target, particle)
// pair and fills in the candidate tables. Pairs are independent, so the
// work is spread across workers particle-wise. The clutter row of the
// likelihood table is filled from the configured clutter density. Any
// updater failure aborts the whole evaluation.
func (f *Filter) evaluate(ps ParticleSet, z mat.Vector, model MeasurementModel, noiseCov mat.Symmetric) (*candidates, error) {
	np := len(ps)
	nt := len(ps[0].Targets)
	cand := newCandidates(nt, np)

	workers := f.cfg.Workers
	if workers < 1 {
		workers = 1
	}
	if workers > np {
		workers = np
	}

	var (
		wg       sync.WaitGroup
		errOnce  sync.Once
		firstErr error
		failed   atomic.Bool
	)
	jobs := make(chan int)

	for w := 0; w < workers; w++ {
		wg.Add(1)
		go func() {
			defer wg.Done()
			for j := range jobs {
				if failed.Load() {
					continue // drain remaining jobs after a failure
				}
				for i := 0; i < nt; i++ {
					res, err := f.updater.Update(ps[j].Targets[i], z, model, noiseCov)
					if err != nil {
						errOnce.Do(func() {
							firstErr = fmt.Errorf("update target %d particle %d: %w", i, j, err)
							failed.Store(true)
						})
						break
					}
					cand.states[i*np+j] = TargetState{Mean: res.Mean, Cov: res.Cov}
					cand.lh.Set(i, j, res.Likelihood)
				}
			}
		}()
	}

	for j := 0; j < np; j++ {
		cand.lh.Set(nt, j, f.clutterDensity(j))
		jobs <- j
	}
	close(jobs)
	wg.Wait()

	if firstErr != nil {
		return nil, firstErr
	}
	return cand, nil
}

// clutterDensity returns the clutter density for particle j. The
// per-particle form is an extension point; the scalar form matches the
// stock behaviour.
func (f *Filter) clutterDensity(j int) float64 {
	if f.cfg.ClutterDensities != nil {
		return f.cfg.ClutterDensities[j]
	}
	return f.cfg.ClutterDensity
}
