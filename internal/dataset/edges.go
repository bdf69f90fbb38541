// Public domain.

package dataset

import (
	"fmt"
	"math"
)

// Edges are energy bin edges in TeV.  n+1 edges define n contiguous bins.
type Edges []float64

// Validate checks edges are positive and strictly increasing.
func (e Edges) Validate() error {
	if len(e) < 2 {
		return fmt.Errorf("%d energy edges, need at least 2", len(e))
	}
	for i, x := range e {
		if !(x > 0) || math.IsInf(x, 0) {
			return fmt.Errorf("energy edge %d = %g", i, x)
		}
		if i > 0 && x <= e[i-1] {
			return fmt.Errorf("energy edges not increasing at %d", i)
		}
	}
	return nil
}

// N returns the number of bins.
func (e Edges) N() int { return len(e) - 1 }

// Bin returns the low and high edge of bin i.
func (e Edges) Bin(i int) (lo, hi float64) { return e[i], e[i+1] }

// Centre returns the geometric centre of bin i.
func (e Edges) Centre(i int) float64 { return math.Sqrt(e[i] * e[i+1]) }

// Index returns the bin containing energy x.
func (e Edges) Index(x float64) (int, bool) {
	if len(e) < 2 || x < e[0] {
		return 0, false
	}
	i := 0
	for x >= e[i+1] {
		i++
		if i == e.N() {
			return 0, false
		}
	}
	return i, true
}

// Select returns the bins whose centre lies in [emin, emax).  Selecting
// by centre puts every bin in exactly one of a set of contiguous
// intervals.
func (e Edges) Select(emin, emax float64) (first, last int) {
	first = -1
	for i := 0; i < e.N(); i++ {
		if c := e.Centre(i); c >= emin && c < emax {
			if first < 0 {
				first = i
			}
			last = i + 1
		}
	}
	if first < 0 {
		return 0, 0
	}
	return first, last
}
