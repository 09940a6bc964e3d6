// Command track-sim exercises the Monte Carlo data-association tracker
// against a synthetic scene: a handful of stationary targets observed
// through a noisy sensor that also produces clutter. Each simulated
// measurement runs one update step over the particle set; step results
// are persisted to SQLite and optionally rendered as an HTML chart.
package main

import (
	"flag"
	"fmt"
	"log"
	"math"
	"math/rand"
	"time"

	"github.com/google/uuid"
	"gonum.org/v1/gonum/mat"

	"github.com/banshee-data/particle.tracker/internal/config"
	"github.com/banshee-data/particle.tracker/internal/mcda"
	"github.com/banshee-data/particle.tracker/internal/montecarlo"
	"github.com/banshee-data/particle.tracker/internal/security"
	"github.com/banshee-data/particle.tracker/internal/storage/sqlite"
	"github.com/banshee-data/particle.tracker/internal/ukf"
	"github.com/banshee-data/particle.tracker/internal/version"
)

// Scene geometry: targets live in a square arena and clutter is
// uniform over it.
const arenaHalfWidth = 10.0

type simConfig struct {
	Particles   int
	Targets     int
	Steps       int
	Seed        int64
	ClutterRate float64
	DBPath      string
	ChartPath   string
	TuningPath  string
}

func main() {
	cfg := simConfig{}
	flag.IntVar(&cfg.Particles, "particles", 0, "number of particles (0 = tuning default)")
	flag.IntVar(&cfg.Targets, "targets", 3, "number of tracked targets")
	flag.IntVar(&cfg.Steps, "steps", 200, "number of measurements to simulate")
	flag.Int64Var(&cfg.Seed, "seed", 1, "random seed")
	flag.Float64Var(&cfg.ClutterRate, "clutter-rate", 0.1, "fraction of simulated measurements that are clutter")
	flag.StringVar(&cfg.DBPath, "db", "track-sim.db", "path to the SQLite results database")
	flag.StringVar(&cfg.ChartPath, "chart", "", "optional path for an HTML chart of the run")
	flag.StringVar(&cfg.TuningPath, "tuning", "", "optional tuning JSON file")
	flag.Parse()

	if err := run(cfg); err != nil {
		log.Fatalf("track-sim: %v", err)
	}
}

func run(cfg simConfig) error {
	log.Printf("track-sim %s", version.String())

	if err := security.ValidateOutputPath(cfg.DBPath); err != nil {
		return err
	}
	if cfg.ChartPath != "" {
		if err := security.ValidateOutputPath(cfg.ChartPath); err != nil {
			return err
		}
	}

	tuning := config.EmptyTuningConfig()
	if cfg.TuningPath != "" {
		loaded, err := config.LoadTuningConfig(cfg.TuningPath)
		if err != nil {
			return fmt.Errorf("load tuning: %w", err)
		}
		tuning = loaded
	}

	np := cfg.Particles
	if np == 0 {
		np = tuning.GetNumParticles()
	}
	nt := cfg.Targets

	rnd := rand.New(rand.NewSource(cfg.Seed))

	updater, err := ukf.New(ukf.Config{
		Alpha: tuning.GetUKFAlpha(),
		Beta:  tuning.GetUKFBeta(),
		Kappa: tuning.GetUKFKappa(),
	})
	if err != nil {
		return fmt.Errorf("build updater: %w", err)
	}

	stepCfg := mcda.DefaultStepConfig()
	stepCfg.ClutterDensity = tuning.GetClutterDensity()
	stepCfg.ClutterPrior = mcda.ScalarClutterPrior(tuning.GetClutterPrior())
	stepCfg.Workers = tuning.GetEvalWorkers()

	filter, err := mcda.New(updater, montecarlo.NewCategorical(rnd), montecarlo.WeightNormalizer{}, stepCfg)
	if err != nil {
		return fmt.Errorf("build filter: %w", err)
	}

	// Ground truth: stationary targets scattered over the arena.
	truth := make([][2]float64, nt)
	for i := range truth {
		truth[i] = [2]float64{
			(rnd.Float64()*2 - 1) * arenaHalfWidth,
			(rnd.Float64()*2 - 1) * arenaHalfWidth,
		}
	}

	measNoise := tuning.GetMeasurementNoise()
	particles := initialParticles(rnd, truth, np)
	model := mcda.NewIdentityModel(2)
	noiseCov := mat.NewSymDense(2, []float64{measNoise, 0, 0, measNoise})

	store, err := sqlite.Open(cfg.DBPath)
	if err != nil {
		return err
	}
	defer store.Close()

	runID := uuid.NewString()
	if err := store.InsertRun(&sqlite.Run{
		RunID:            runID,
		StartedUnixNanos: time.Now().UnixNano(),
		NumParticles:     np,
		NumTargets:       nt,
		Seed:             cfg.Seed,
		Notes:            fmt.Sprintf("clutter_rate=%.2f steps=%d", cfg.ClutterRate, cfg.Steps),
	}); err != nil {
		return err
	}
	log.Printf("run %s: %d particles, %d targets, %d steps", runID, np, nt, cfg.Steps)

	resampleAt := tuning.GetResampleThreshold() * float64(np)
	var estHistory [][][]float64

	for step := 0; step < cfg.Steps; step++ {
		z := simulateMeasurement(rnd, truth, cfg.ClutterRate, measNoise)

		assoc, err := filter.Step(particles, z, model, noiseCov)
		if err != nil {
			return fmt.Errorf("step %d: %w", step, err)
		}

		clutter := 0
		for _, a := range assoc {
			if a == mcda.Clutter {
				clutter++
			}
		}

		w := particles.Weights()
		ess := montecarlo.EffectiveSampleSize(w)
		maxW := 0.0
		for _, v := range w {
			if v > maxW {
				maxW = v
			}
		}

		estimates := weightedMeans(particles, nt)
		estHistory = append(estHistory, estimates)

		resampled := false
		if ess < resampleAt {
			idx, err := montecarlo.Systematic(rnd, w)
			if err != nil {
				return fmt.Errorf("step %d resample: %w", step, err)
			}
			particles = resample(particles, idx)
			resampled = true
		}

		if err := store.InsertStep(&sqlite.StepRecord{
			RunID:               runID,
			StepIndex:           step,
			TSUnixNanos:         time.Now().UnixNano(),
			Measurement:         vecSlice(z),
			Associations:        assoc,
			ClutterCount:        clutter,
			EffectiveSampleSize: ess,
			MaxWeight:           maxW,
			Estimates:           estimates,
			Resampled:           resampled,
		}); err != nil {
			return fmt.Errorf("step %d: %w", step, err)
		}
	}

	for i, tr := range truth {
		final := estHistory[len(estHistory)-1][i]
		log.Printf("target %d: truth=(%.2f, %.2f) estimate=(%.2f, %.2f)",
			i+1, tr[0], tr[1], final[0], final[1])
	}

	if cfg.ChartPath != "" {
		if err := renderChart(cfg.ChartPath, truth, estHistory); err != nil {
			return fmt.Errorf("render chart: %w", err)
		}
		log.Printf("wrote chart to %s", cfg.ChartPath)
	}

	return nil
}

// initialParticles spreads each particle's target means around the true
// positions with inflated covariance, equal weights.
func initialParticles(rnd *rand.Rand, truth [][2]float64, np int) mcda.ParticleSet {
	ps := make(mcda.ParticleSet, np)
	for j := range ps {
		targets := make([]mcda.TargetState, len(truth))
		for i, tr := range truth {
			mean := mat.NewVecDense(2, []float64{
				tr[0] + rnd.NormFloat64(),
				tr[1] + rnd.NormFloat64(),
			})
			cov := mat.NewSymDense(2, []float64{1, 0, 0, 1})
			targets[i] = mcda.TargetState{Mean: mean, Cov: cov}
		}
		ps[j] = &mcda.Particle{Weight: 1 / float64(np), Targets: targets}
	}
	return ps
}

// simulateMeasurement produces either a clutter measurement uniform
// over the arena or a noisy observation of a random target.
func simulateMeasurement(rnd *rand.Rand, truth [][2]float64, clutterRate, noiseVar float64) *mat.VecDense {
	if rnd.Float64() < clutterRate {
		return mat.NewVecDense(2, []float64{
			(rnd.Float64()*2 - 1) * arenaHalfWidth,
			(rnd.Float64()*2 - 1) * arenaHalfWidth,
		})
	}
	tr := truth[rnd.Intn(len(truth))]
	sd := math.Sqrt(noiseVar)
	return mat.NewVecDense(2, []float64{
		tr[0] + rnd.NormFloat64()*sd,
		tr[1] + rnd.NormFloat64()*sd,
	})
}

// weightedMeans returns the weighted posterior mean position per target.
func weightedMeans(ps mcda.ParticleSet, nt int) [][]float64 {
	out := make([][]float64, nt)
	for i := 0; i < nt; i++ {
		mean := make([]float64, 2)
		for _, p := range ps {
			for d := 0; d < 2; d++ {
				mean[d] += p.Weight * p.Targets[i].Mean.AtVec(d)
			}
		}
		out[i] = mean
	}
	return out
}

// resample rebuilds the particle set from the chosen ancestor indices
// with uniform weights.
func resample(ps mcda.ParticleSet, idx []int) mcda.ParticleSet {
	out := make(mcda.ParticleSet, len(idx))
	for i, a := range idx {
		out[i] = ps[a].Clone()
		out[i].Weight = 1 / float64(len(idx))
	}
	return out
}

func vecSlice(v mat.Vector) []float64 {
	out := make([]float64, v.Len())
	for i := range out {
		out[i] = v.AtVec(i)
	}
	return out
}

