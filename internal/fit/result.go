// Public domain.

package fit

import (
	"fmt"
	"math"
	"time"

	"gonum.org/v1/gonum/mat"

	"github.com/tunbehaun273/Multi-instrument-tutorial/internal/param"
)

// Status is the outcome of a fit.  Only Converged is a good fit; the
// others still carry the best point found.
type Status int

const (
	Converged Status = iota
	IterationLimit
	// CostIncreased: the optimizer ended above the initial statistic.
	// The best evaluated point was restored.
	CostIncreased
	// SingularHessian: the minimum was found but covariance could not be
	// estimated.
	SingularHessian
	Failed
)

var statusNames = []string{
	"converged", "iteration_limit", "cost_increased", "singular_hessian", "failed",
}

func (s Status) String() string {
	if s < 0 || int(s) >= len(statusNames) {
		return fmt.Sprintf("Status(%d)", int(s))
	}
	return statusNames[s]
}

// Result is an immutable snapshot of a finished fit.
type Result struct {
	RunID     string
	Method    string
	Status    Status
	Message   string
	InitStat  float64
	Stat      float64
	NEval     int
	NIter     int
	Duration  time.Duration
	Params    []param.Value // every parameter of the set, in set order
	FreeLabel []string      // labels of the free parameters, covariance order

	cov *mat.SymDense // nil without covariance
}

// Success reports whether the fit converged.
func (r *Result) Success() bool { return r.Status == Converged }

// Value returns the snapshot of the labelled parameter.
func (r *Result) Value(label string) (param.Value, bool) {
	for _, v := range r.Params {
		if v.Label == label {
			return v, true
		}
	}
	return param.Value{}, false
}

// Values returns best values by label.
func (r *Result) Values() map[string]float64 {
	m := make(map[string]float64, len(r.Params))
	for _, v := range r.Params {
		m[v.Label] = v.Value
	}
	return m
}

// Covariance returns a copy of the covariance of the free parameters, in
// FreeLabel order, or nil.
func (r *Result) Covariance() *mat.SymDense {
	if r.cov == nil {
		return nil
	}
	c := mat.NewSymDense(r.cov.SymmetricDim(), nil)
	c.CopySym(r.cov)
	return c
}

// Correlation returns the correlation matrix of the free parameters, or
// nil.
func (r *Result) Correlation() *mat.SymDense {
	if r.cov == nil {
		return nil
	}
	n := r.cov.SymmetricDim()
	c := mat.NewSymDense(n, nil)
	for i := 0; i < n; i++ {
		for j := i; j < n; j++ {
			d := math.Sqrt(r.cov.At(i, i) * r.cov.At(j, j))
			if d == 0 {
				c.SetSym(i, j, math.NaN())
				continue
			}
			c.SetSym(i, j, r.cov.At(i, j)/d)
		}
	}
	return c
}

func (r *Result) String() string {
	return fmt.Sprintf("%s %s stat %.4f (initial %.4f) %d evaluations",
		r.RunID, r.Status, r.Stat, r.InitStat, r.NEval)
}
