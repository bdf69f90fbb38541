// Public domain.

package fit_test

import (
	"errors"
	"fmt"
	"math"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/tunbehaun273/Multi-instrument-tutorial/internal/fit"
	"github.com/tunbehaun273/Multi-instrument-tutorial/internal/param"
)

func newFitter(t *testing.T, method string) *fit.Fitter {
	o := fit.DefaultOptions()
	o.Method = method
	f, err := fit.New(o)
	require.NoError(t, err)
	return f
}

func chi2(p *param.Parameter, mean, sigma float64) fit.Cost {
	return fit.CostFunc(func() (float64, error) {
		r := (p.Value - mean) / sigma
		return r * r, nil
	})
}

func ExampleFitter_Optimize() {
	x := param.New("x", 0).WithBounds(-10, 10)
	set, _ := param.NewSet(x)
	f, _ := fit.New(fit.DefaultOptions())
	r, err := f.Optimize(set, chi2(x, 3, 0.1))
	if err != nil {
		fmt.Println(err)
		return
	}
	v, _ := r.Value("x")
	fmt.Println(r.Status)
	fmt.Printf("x = %.3f +- %.3f\n", v.Value, v.Error)
	// Output:
	// converged
	// x = 3.000 +- 0.100
}

func TestQuadraticFromSeveralStarts(t *testing.T) {
	for _, method := range []string{fit.Simplex, fit.LBFGS} {
		for _, start := range []float64{-9, -0.5, 0, 2.9, 8} {
			x := param.New("x", start).WithBounds(-10, 10)
			set, err := param.NewSet(x)
			require.NoError(t, err)
			r, err := newFitter(t, method).Optimize(set, chi2(x, 3, 0.1))
			require.NoError(t, err)
			assert.Equal(t, fit.Converged, r.Status, "%s from %g: %s", method, start, r.Message)
			assert.InDelta(t, 3, x.Value, 1e-3, "%s from %g", method, start)
			assert.LessOrEqual(t, r.Stat, r.InitStat)
			v, _ := r.Value("x")
			assert.InEpsilon(t, 0.1, v.Error, 0.02, "%s from %g", method, start)
			t.Log(method, start, r)
		}
	}
}

func TestUnboundedTwoDimensional(t *testing.T) {
	x := param.New("x", 1)
	y := param.New("y", 40)
	set, _ := param.NewSet(x, y)
	cost := fit.CostFunc(func() (float64, error) {
		a := (x.Value + 2) / 0.5
		b := (y.Value - 10) / 3
		return a*a + b*b, nil
	})
	r, err := newFitter(t, fit.Simplex).Optimize(set, cost)
	require.NoError(t, err)
	require.True(t, r.Success(), r.Message)
	assert.InDelta(t, -2, x.Value, 1e-2)
	assert.InDelta(t, 10, y.Value, 5e-2)
	cov := r.Covariance()
	require.NotNil(t, cov)
	assert.InEpsilon(t, 0.25, cov.At(0, 0), 0.02)
	assert.InEpsilon(t, 9, cov.At(1, 1), 0.02)
	assert.InDelta(t, 0, cov.At(0, 1), 1e-2)
	cor := r.Correlation()
	assert.InDelta(t, 1, cor.At(0, 0), 1e-12)
	assert.InDelta(t, 1, cor.At(1, 1), 1e-12)

	// the copy is independent of the result
	cov.SetSym(0, 0, 100)
	assert.InEpsilon(t, 0.25, r.Covariance().At(0, 0), 0.02)
}

func TestFrozenUnchanged(t *testing.T) {
	x := param.New("x", 0)
	y := param.NewFrozen("y", 1)
	set, _ := param.NewSet(x, y)
	n := 0
	cost := fit.CostFunc(func() (float64, error) {
		n++
		a, b := x.Value-4, y.Value-5
		return a*a + b*b, nil
	})
	r, err := newFitter(t, fit.Simplex).Optimize(set, cost)
	require.NoError(t, err)
	assert.Equal(t, []string{"x"}, r.FreeLabel)
	assert.Equal(t, 1., y.Value)
	v, _ := r.Value("y")
	assert.Equal(t, 1., v.Value)
	assert.True(t, v.Frozen)
	assert.True(t, math.IsNaN(v.Error))
	assert.InDelta(t, 4, x.Value, 1e-2)
	assert.Equal(t, 1, r.Covariance().SymmetricDim())
	assert.Equal(t, n, r.NEval)
}

func TestNoFreeParameters(t *testing.T) {
	x := param.NewFrozen("x", 2)
	set, _ := param.NewSet(x)
	r, err := newFitter(t, fit.Simplex).Optimize(set, chi2(x, 0, 1))
	require.NoError(t, err)
	assert.Equal(t, fit.Converged, r.Status)
	assert.Equal(t, 4., r.Stat)
	assert.Equal(t, r.InitStat, r.Stat)
	assert.Nil(t, r.Covariance())
	assert.Nil(t, r.Correlation())
}

func TestIterationLimit(t *testing.T) {
	x := param.New("x", -1.2)
	y := param.New("y", 1)
	set, _ := param.NewSet(x, y)
	rosen := fit.CostFunc(func() (float64, error) {
		a, b := 1-x.Value, y.Value-x.Value*x.Value
		return a*a + 100*b*b, nil
	})
	o := fit.DefaultOptions()
	o.MaxIter = 3
	f, err := fit.New(o)
	require.NoError(t, err)
	r, err := f.Optimize(set, rosen)
	require.NoError(t, err, "non-convergence is not an error")
	assert.Equal(t, fit.IterationLimit, r.Status)
	assert.False(t, r.Success())
	assert.LessOrEqual(t, r.Stat, r.InitStat)
	// parameters hold the reported best point
	s, _ := rosen.Eval()
	assert.Equal(t, r.Stat, s)
}

// A converged run keeps its status when the budget is spent before a
// restart.
func TestConvergedAtBudget(t *testing.T) {
	run := func(maxIter, restarts int) *fit.Result {
		x := param.New("x", 5)
		set, _ := param.NewSet(x)
		o := fit.DefaultOptions()
		o.MaxIter, o.Restarts, o.Covariance = maxIter, restarts, false
		f, err := fit.New(o)
		require.NoError(t, err)
		r, err := f.Optimize(set, chi2(x, 1, 1))
		require.NoError(t, err)
		return r
	}
	first := run(0, 0)
	require.Equal(t, fit.Converged, first.Status, first.Message)
	require.Greater(t, first.NIter, 0)

	r := run(first.NIter, 2)
	assert.Equal(t, fit.Converged, r.Status, r.Message)
	assert.Equal(t, first.NIter, r.NIter)
	assert.Equal(t, first.Stat, r.Stat)
}

func TestBoundsNeverViolated(t *testing.T) {
	for _, method := range []string{fit.Simplex, fit.LBFGS} {
		x := param.New("x", 0.5).WithBounds(0, 1)
		y := param.New("y", 3).WithBounds(1, math.NaN())
		set, _ := param.NewSet(x, y)
		lo, hi, ylo := math.Inf(1), math.Inf(-1), math.Inf(1)
		cost := fit.CostFunc(func() (float64, error) {
			lo, hi = math.Min(lo, x.Value), math.Max(hi, x.Value)
			ylo = math.Min(ylo, y.Value)
			// unconstrained minimum at (2, -3)
			a, b := x.Value-2, y.Value+3
			return a*a + b*b, nil
		})
		r, err := newFitter(t, method).Optimize(set, cost)
		require.NoError(t, err)
		assert.GreaterOrEqual(t, lo, 0., method)
		assert.LessOrEqual(t, hi, 1., method)
		assert.GreaterOrEqual(t, ylo, 1., method)
		assert.InDelta(t, 1, x.Value, 1e-2, method)
		assert.InDelta(t, 1, y.Value, 1e-2, method)
		assert.LessOrEqual(t, r.Stat, r.InitStat)
	}
}

var errBroken = errors.New("evaluator broke")

func TestCostErrorAborts(t *testing.T) {
	x := param.New("x", 0)
	set, _ := param.NewSet(x)
	n := 0
	cost := fit.CostFunc(func() (float64, error) {
		n++
		if n > 10 {
			return 0, errBroken
		}
		return (x.Value - 5) * (x.Value - 5), nil
	})
	r, err := newFitter(t, fit.Simplex).Optimize(set, cost)
	assert.True(t, errors.Is(err, errBroken))
	require.NotNil(t, r)
	assert.Equal(t, fit.Failed, r.Status)
	assert.LessOrEqual(t, r.Stat, r.InitStat)
	assert.Equal(t, 11, n, "no evaluation after the failure")
	assert.Nil(t, r.Covariance())
}

func TestInitialCostError(t *testing.T) {
	x := param.New("x", 0)
	set, _ := param.NewSet(x)
	r, err := newFitter(t, fit.Simplex).Optimize(set, fit.CostFunc(func() (float64, error) {
		return 0, errBroken
	}))
	assert.Nil(t, r)
	assert.True(t, errors.Is(err, errBroken))
}

func TestSetOwnership(t *testing.T) {
	x := param.New("x", 0)
	set, _ := param.NewSet(x)
	require.NoError(t, set.Acquire())
	_, err := newFitter(t, fit.Simplex).Optimize(set, chi2(x, 1, 1))
	assert.True(t, errors.Is(err, param.ErrSetInUse))
	set.Release()
	_, err = newFitter(t, fit.Simplex).Optimize(set, chi2(x, 1, 1))
	assert.NoError(t, err)
}

func TestInvalidSet(t *testing.T) {
	x := param.New("x", 5).WithBounds(0, 1)
	set, _ := param.NewSet(x)
	_, err := newFitter(t, fit.Simplex).Optimize(set, chi2(x, 1, 1))
	assert.True(t, errors.Is(err, param.ErrInvalid))
}

func TestStatProfile(t *testing.T) {
	x := param.New("x", 3.3)
	y := param.New("y", 0)
	set, _ := param.NewSet(x, y)
	cost := fit.CostFunc(func() (float64, error) {
		a := (x.Value - 3) / 0.2
		b := y.Value - x.Value
		return a*a + b*b, nil
	})
	o := fit.DefaultOptions()
	o.Covariance = false
	f, err := fit.New(o)
	require.NoError(t, err)
	var vals []float64
	for v := 2.6; v < 3.45; v += 0.1 {
		vals = append(vals, v)
	}
	p, err := f.StatProfile(set, cost, "x", vals, true)
	require.NoError(t, err)
	require.Len(t, p.Stats, len(vals))
	best, sigma, err := p.ParabolaError()
	require.NoError(t, err)
	assert.InDelta(t, 3, best, 1e-3)
	assert.InEpsilon(t, 0.2, sigma, 1e-2)
	assert.Equal(t, 3.3, x.Value, "values restored")
	assert.Equal(t, 0., y.Value)
	assert.False(t, x.Frozen, "frozen flag restored")

	// without re-optimization y stays at 0 and the profile is narrower
	p, err = f.StatProfile(set, cost, "x", vals, false)
	require.NoError(t, err)
	_, s2, err := p.ParabolaError()
	require.NoError(t, err)
	assert.Less(t, s2, sigma)

	_, err = f.StatProfile(set, cost, "z", vals, false)
	assert.Error(t, err)
	_, _, err = (&fit.Profile{Values: []float64{1, 2}, Stats: []float64{1, 2}}).ParabolaError()
	assert.Error(t, err)
}

func TestOptionsValidate(t *testing.T) {
	o := fit.DefaultOptions()
	require.NoError(t, o.Validate())
	o.Method = "newton"
	_, err := fit.New(o)
	assert.Error(t, err)
	o = fit.DefaultOptions()
	o.Tolerance = 0
	assert.Error(t, o.Validate())
}

func TestStatusString(t *testing.T) {
	assert.Equal(t, "singular_hessian", fit.SingularHessian.String())
	assert.Equal(t, "Status(9)", fit.Status(9).String())
}
