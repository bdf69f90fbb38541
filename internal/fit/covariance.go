// Public domain.

package fit

import (
	"errors"
	"math"

	"gonum.org/v1/gonum/diff/fd"
	"gonum.org/v1/gonum/mat"
)

var errSingular = errors.New("fit: hessian not positive definite")

type covariance struct {
	m *mat.SymDense // value space, free parameter order
}

// covariance estimates the covariance of the free parameters at the best
// point and returns their errors by label.
//
// Algorithm:
//
// The Hessian H of the statistic is taken by central differences in
// optimizer space, where the bound transforms make it smooth.  Since the
// statistic is -2 ln L, the covariance there is 2 H^-1.  With J the
// diagonal of d(value)/d(internal), value space covariance is
// J_i J_j (2 H^-1)_ij.
func (w *workspace) covariance() (map[string]float64, error) {
	n := w.tr.Dim()
	u := append([]float64(nil), w.bestU...)
	var cerr error
	f := func(x []float64) float64 {
		if cerr != nil {
			return math.NaN()
		}
		w.tr.Apply(x)
		v, err := w.cost.Eval()
		w.nEval++
		if err != nil {
			cerr = err
			return math.NaN()
		}
		return v
	}
	h := mat.NewSymDense(n, nil)
	fd.Hessian(h, f, u, &fd.Settings{Formula: fd.Central, Step: w.opt.Step})
	if cerr != nil {
		return nil, cerr
	}
	var ch mat.Cholesky
	if !ch.Factorize(h) {
		return nil, errSingular
	}
	var inv mat.SymDense
	if err := ch.InverseTo(&inv); err != nil {
		return nil, errSingular
	}
	jac := w.tr.Jacobian(u)
	cov := mat.NewSymDense(n, nil)
	for i := 0; i < n; i++ {
		for j := i; j < n; j++ {
			cov.SetSym(i, j, 2*inv.At(i, j)*jac[i]*jac[j])
		}
	}
	w.cov.m = cov
	labels := w.set.FreeLabels()
	errs := make(map[string]float64, n)
	for i, l := range labels {
		errs[l] = math.Sqrt(cov.At(i, i))
	}
	return errs, nil
}
