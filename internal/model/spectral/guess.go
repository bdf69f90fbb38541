// Public domain.

package spectral

import (
	"errors"
	"math"

	"github.com/soniakeys/meeus/v3/fit"
)

// Point is an energy and differential flux.
type Point struct {
	E, DNDE float64
}

// GuessPowerLaw estimates power law amplitude and index from flux points
// by a straight line fit in log-log space.  The result is a starting
// point for a likelihood fit, not a fit result: the regression is
// unweighted.
//
// Points with non-positive energy or flux are skipped.  At least two
// usable points are needed.
func GuessPowerLaw(pts []Point, reference float64) (amplitude, index float64, err error) {
	var p []struct{ X, Y float64 }
	for _, pt := range pts {
		if pt.E > 0 && pt.DNDE > 0 {
			p = append(p, struct{ X, Y float64 }{
				math.Log(pt.E / reference),
				math.Log(pt.DNDE),
			})
		}
	}
	if len(p) < 2 {
		return 0, 0, errors.New("spectral: power law guess needs two positive points")
	}
	// ln dnde = a ln(E/E0) + b
	a, b := fit.Linear(p)
	return math.Exp(b), -a, nil
}
