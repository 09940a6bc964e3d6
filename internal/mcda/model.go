package mcda

import (
	"fmt"

	"gonum.org/v1/gonum/mat"
)

// LinearModel is a linear measurement model z = H*x. It satisfies
// MeasurementModel and is exact under any Gaussian updater.
type LinearModel struct {
	H *mat.Dense
}

// NewLinearModel builds a linear measurement model from observation
// matrix h (nz x nx).
func NewLinearModel(h *mat.Dense) *LinearModel {
	d := &mat.Dense{}
	d.CloneFrom(h)
	return &LinearModel{H: d}
}

// NewIdentityModel builds the direct-observation model z = x for an
// n-dimensional state.
func NewIdentityModel(n int) *LinearModel {
	h := mat.NewDense(n, n, nil)
	for i := 0; i < n; i++ {
		h.Set(i, i, 1)
	}
	return &LinearModel{H: h}
}

// Observe returns H*x.
func (m *LinearModel) Observe(x mat.Vector) (mat.Vector, error) {
	nz, nx := m.H.Dims()
	if x.Len() != nx {
		return nil, fmt.Errorf("linear model: state has %d elements, want %d", x.Len(), nx)
	}
	z := mat.NewVecDense(nz, nil)
	z.MulVec(m.H, x)
	return z, nil
}

// Dims returns the state and measurement dimensions.
func (m *LinearModel) Dims() (nx, nz int) {
	nz, nx = m.H.Dims()
	return nx, nz
}
