// Package ukf provides a single-shot unscented Kalman measurement
// update for one target, usable as the single-target updater of the
// data-association step. For background on the unscented transform see:
// https://en.wikipedia.org/wiki/Kalman_filter#Unscented_Kalman_filter
package ukf

import (
	"fmt"
	"math"

	"github.com/banshee-data/particle.tracker/internal/mcda"
	"gonum.org/v1/gonum/mat"
	"gonum.org/v1/gonum/stat/distmv"
)

// Config contains the unitless unscented transform parameters.
type Config struct {
	// Alpha controls sigma point spread (0,1].
	Alpha float64
	// Beta folds in prior distribution knowledge (2 is optimal for
	// Gaussian priors).
	Beta float64
	// Kappa is a secondary scaling parameter (non-negative).
	Kappa float64
}

// DefaultConfig returns the stock transform parameters.
func DefaultConfig() Config {
	return Config{Alpha: 1.0, Beta: 2.0, Kappa: 0.0}
}

// Updater performs unscented measurement updates. It is stateless apart
// from its configuration and safe for concurrent use.
type Updater struct {
	cfg Config
}

// New creates an Updater with configuration c.
func New(c Config) (*Updater, error) {
	if c.Alpha <= 0 || c.Alpha > 1 {
		return nil, fmt.Errorf("invalid alpha: %v", c.Alpha)
	}
	if c.Beta < 0 || c.Kappa < 0 {
		return nil, fmt.Errorf("invalid config supplied: %+v", c)
	}
	return &Updater{cfg: c}, nil
}

// Update corrects the prior state with measurement z under the given
// measurement model and noise covariance. It returns the posterior
// mean and covariance, the likelihood of z under the predictive
// Gaussian N(zPred, S), and the gain/innovation byproducts.
func (u *Updater) Update(prior mcda.TargetState, z mat.Vector, model mcda.MeasurementModel, noiseCov mat.Symmetric) (*mcda.UpdateResult, error) {
	n := prior.Mean.Len()
	nz := noiseCov.SymmetricDim()

	lambda := u.cfg.Alpha*u.cfg.Alpha*(float64(n)+u.cfg.Kappa) - float64(n)
	gamma := math.Sqrt(float64(n) + lambda)

	wm0 := lambda / (float64(n) + lambda)
	wc0 := wm0 + (1 - u.cfg.Alpha*u.cfg.Alpha + u.cfg.Beta)
	w := 1 / (2 * (float64(n) + lambda))

	sp, err := sigmaPoints(prior.Mean, prior.Cov, gamma)
	if err != nil {
		return nil, err
	}
	cols := 2*n + 1

	// Propagate each sigma point through the measurement model and
	// accumulate the predicted measurement mean.
	y := mat.NewDense(nz, cols, nil)
	yMean := mat.NewVecDense(nz, nil)
	for c := 0; c < cols; c++ {
		obs, err := model.Observe(sp.ColView(c))
		if err != nil {
			return nil, fmt.Errorf("observe sigma point: %w", err)
		}
		if obs.Len() != nz {
			return nil, fmt.Errorf("model output has %d elements, want %d", obs.Len(), nz)
		}
		for r := 0; r < nz; r++ {
			y.Set(r, c, obs.AtVec(r))
		}
		if c == 0 {
			yMean.AddScaledVec(yMean, wm0, obs)
		} else {
			yMean.AddScaledVec(yMean, w, obs)
		}
	}

	// Innovation covariance S = sum Wc (y - yMean)(y - yMean)^T + R and
	// state/measurement cross covariance Pxy.
	s := mat.NewDense(nz, nz, nil)
	pxy := mat.NewDense(n, nz, nil)
	dx := mat.NewVecDense(n, nil)
	dy := mat.NewVecDense(nz, nil)
	outer := &mat.Dense{}
	for c := 0; c < cols; c++ {
		dx.SubVec(sp.ColView(c), prior.Mean)
		dy.SubVec(y.ColView(c), yMean)

		wc := w
		if c == 0 {
			wc = wc0
		}

		outer.Mul(dy, dy.T())
		outer.Scale(wc, outer)
		s.Add(s, outer)

		outer.Reset()
		outer.Mul(dx, dy.T())
		outer.Scale(wc, outer)
		pxy.Add(pxy, outer)
		outer.Reset()
	}
	for i := 0; i < nz; i++ {
		for j := 0; j < nz; j++ {
			s.Set(i, j, s.At(i, j)+noiseCov.At(i, j))
		}
	}

	// Gain K = Pxy * S^-1.
	sInv := &mat.Dense{}
	if err := sInv.Inverse(s); err != nil {
		return nil, fmt.Errorf("invert innovation covariance: %w", err)
	}
	gain := &mat.Dense{}
	gain.Mul(pxy, sInv)

	// Posterior mean m + K*(z - zPred).
	inn := mat.NewVecDense(nz, nil)
	inn.SubVec(z, yMean)
	corr := mat.NewVecDense(n, nil)
	corr.MulVec(gain, inn)
	mean := mat.NewVecDense(n, nil)
	mean.AddVec(prior.Mean, corr)

	// Posterior covariance P - K*S*K^T, symmetrised on write. S*K^T is
	// nz x n and K*(S*K^T) is n x n, so each product needs its own
	// receiver.
	sk := &mat.Dense{}
	sk.Mul(s, gain.T())
	ksk := &mat.Dense{}
	ksk.Mul(gain, sk)
	cov := mat.NewSymDense(n, nil)
	for i := 0; i < n; i++ {
		for j := i; j < n; j++ {
			v := prior.Cov.At(i, j) - 0.5*(ksk.At(i, j)+ksk.At(j, i))
			cov.SetSym(i, j, v)
		}
	}

	sSym := mat.NewSymDense(nz, nil)
	for i := 0; i < nz; i++ {
		for j := i; j < nz; j++ {
			sSym.SetSym(i, j, 0.5*(s.At(i, j)+s.At(j, i)))
		}
	}

	lh, err := likelihood(z, yMean, sSym)
	if err != nil {
		return nil, err
	}

	return &mcda.UpdateResult{
		Mean:          mean,
		Cov:           cov,
		Likelihood:    lh,
		Gain:          gain,
		Innovation:    inn,
		InnovationCov: sSym,
	}, nil
}

// sigmaPoints returns the 2n+1 sigma points of N(mean, cov) as columns:
// the mean itself, then mean +/- gamma times the matrix square root
// columns. The square root is taken via SVD so positive semi-definite
// covariances are accepted.
func sigmaPoints(mean *mat.VecDense, cov *mat.SymDense, gamma float64) (*mat.Dense, error) {
	n := mean.Len()

	var svd mat.SVD
	if ok := svd.Factorize(cov, mat.SVDFull); !ok {
		return nil, fmt.Errorf("SVD factorization of covariance failed")
	}
	sqrtCov := &mat.Dense{}
	svd.UTo(sqrtCov)
	vals := svd.Values(nil)
	for i := range vals {
		vals[i] = math.Sqrt(vals[i])
	}
	sqrtCov.Mul(sqrtCov, mat.NewDiagDense(len(vals), vals))
	sqrtCov.Scale(gamma, sqrtCov)

	sp := mat.NewDense(n, 2*n+1, nil)
	for c := 0; c < 2*n+1; c++ {
		for r := 0; r < n; r++ {
			sp.Set(r, c, mean.AtVec(r))
		}
	}
	plus := sp.Slice(0, n, 1, 1+n).(*mat.Dense)
	plus.Add(plus, sqrtCov)
	minus := sp.Slice(0, n, 1+n, 2*n+1).(*mat.Dense)
	minus.Sub(minus, sqrtCov)

	return sp, nil
}

// likelihood evaluates the Gaussian density N(zPred, s) at z.
func likelihood(z mat.Vector, zPred *mat.VecDense, s *mat.SymDense) (float64, error) {
	nz := zPred.Len()
	mu := make([]float64, nz)
	x := make([]float64, nz)
	for i := 0; i < nz; i++ {
		mu[i] = zPred.AtVec(i)
		x[i] = z.AtVec(i)
	}
	normal, ok := distmv.NewNormal(mu, s, nil)
	if !ok {
		return 0, fmt.Errorf("innovation covariance is not positive definite")
	}
	return math.Exp(normal.LogProb(x)), nil
}
