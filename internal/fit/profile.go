// Public domain.

package fit

import (
	"errors"
	"fmt"
	"math"

	lsq "github.com/soniakeys/meeus/v3/fit"

	"github.com/tunbehaun273/Multi-instrument-tutorial/internal/param"
)

// Profile is a statistic scan over one parameter.
type Profile struct {
	Label  string
	Values []float64
	Stats  []float64
	Status []Status // of the re-optimizations, Converged when not re-optimized
}

// StatProfile evaluates cost with parameter label fixed at each of
// values.  With reoptimize the other free parameters are fitted at every
// point, otherwise they stay at their current values.
//
// The set is restored to its prior values and frozen flags on return.
func (f *Fitter) StatProfile(set *param.Set, cost Cost, label string, values []float64, reoptimize bool) (*Profile, error) {
	p, ok := set.Lookup(label)
	if !ok {
		return nil, fmt.Errorf("fit: no parameter %s", label)
	}
	if err := set.Acquire(); err != nil {
		return nil, err
	}
	defer set.Release()
	saved, frozen := set.Values(), p.Frozen
	defer func() {
		set.SetValues(saved)
		p.Frozen = frozen
	}()
	p.Frozen = true
	// each point starts from the same place
	pr := &Profile{Label: label}
	for _, v := range values {
		set.SetValues(saved)
		p.Value = p.Clip(v)
		st := Converged
		var s float64
		if reoptimize {
			r, err := f.optimize(set, cost)
			if err != nil {
				return nil, err
			}
			s, st = r.Stat, r.Status
		} else {
			var err error
			if s, err = cost.Eval(); err != nil {
				return nil, err
			}
		}
		pr.Values = append(pr.Values, p.Value)
		pr.Stats = append(pr.Stats, s)
		pr.Status = append(pr.Status, st)
	}
	return pr, nil
}

// ParabolaError fits stat = a x^2 + b x + c through the profile and
// returns the minimum and the error at delta stat = 1.
func (p *Profile) ParabolaError() (best, sigma float64, err error) {
	if len(p.Values) < 3 {
		return 0, 0, errors.New("fit: parabola needs three profile points")
	}
	pts := make([]struct{ X, Y float64 }, len(p.Values))
	for i := range pts {
		pts[i].X, pts[i].Y = p.Values[i], p.Stats[i]
	}
	a, b, _ := lsq.Quadratic(pts)
	if !(a > 0) {
		return 0, 0, errors.New("fit: profile not convex")
	}
	return -b / (2 * a), 1 / math.Sqrt(a), nil
}
