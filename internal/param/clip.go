// Public domain.

package param

// clip returns v limited to the bounds of p.
//
// transforms are exact in real arithmetic but sin and sqrt can land an ulp
// or so outside a bound.  clipping here is what lets Transform promise
// the cost is never evaluated outside bounds.
func clip(p *Parameter, v float64) float64 {
	lo, hi := p.Bounded()
	if lo && v < p.Min {
		return p.Min
	}
	if hi && v > p.Max {
		return p.Max
	}
	return v
}

// Clip returns v limited to the bounds of p.
func (p *Parameter) Clip(v float64) float64 { return clip(p, v) }
