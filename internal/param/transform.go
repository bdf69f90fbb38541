// Public domain.

package param

import "math"

// Transform maps the free parameters of a fit to an unbounded internal
// space the optimizer can search freely.
//
// Values are first expressed as factors of a scale so that an amplitude
// of 1e-12 and an index of 2.5 are searched on similar footing.  Bounds
// are then removed with the usual transforms:
//
//	two-sided   f = lo + (hi-lo)(sin u + 1)/2
//	lower only  f = lo - 1 + sqrt(u*u + 1)
//	upper only  f = hi + 1 - sqrt(u*u + 1)
//	unbounded   f = u
//
// Every external value produced is clipped into bounds, so a cost
// function driven through a Transform is never evaluated outside them.
type Transform struct {
	free  []*Parameter
	scale []float64
}

// NewTransform captures free and their scales at their current values.
func NewTransform(free []*Parameter) *Transform {
	t := &Transform{
		free:  free,
		scale: make([]float64, len(free)),
	}
	for i, p := range free {
		t.scale[i] = p.autoScale()
	}
	return t
}

// Dim returns the dimension of the internal space.
func (t *Transform) Dim() int { return len(t.free) }

// Parameters returns the parameters t drives.
func (t *Transform) Parameters() []*Parameter { return t.free }

// Internal returns internal coordinates of the current parameter values.
func (t *Transform) Internal() []float64 {
	u := make([]float64, len(t.free))
	for i, p := range t.free {
		u[i] = t.toInternal(i, p.Value)
	}
	return u
}

// Apply sets parameter values from internal coordinates u.
func (t *Transform) Apply(u []float64) {
	for i, p := range t.free {
		p.Value = t.External(i, u[i])
	}
}

// External returns the external value of parameter i at internal u.
func (t *Transform) External(i int, u float64) float64 {
	p := t.free[i]
	s := t.scale[i]
	lo, hi := p.Bounded()
	var f float64
	switch {
	case lo && hi:
		a, b := p.Min/s, p.Max/s
		f = a + (b-a)*(math.Sin(u)+1)/2
	case lo:
		f = p.Min/s - 1 + math.Sqrt(u*u+1)
	case hi:
		f = p.Max/s + 1 - math.Sqrt(u*u+1)
	default:
		f = u
	}
	return clip(p, f*s)
}

// Jacobian returns d(value)/d(internal) for each parameter at u.
func (t *Transform) Jacobian(u []float64) []float64 {
	j := make([]float64, len(t.free))
	for i, p := range t.free {
		s := t.scale[i]
		lo, hi := p.Bounded()
		switch {
		case lo && hi:
			j[i] = (p.Max - p.Min) / 2 * math.Cos(u[i])
		case lo:
			j[i] = s * u[i] / math.Sqrt(u[i]*u[i]+1)
		case hi:
			j[i] = -s * u[i] / math.Sqrt(u[i]*u[i]+1)
		default:
			j[i] = s
		}
	}
	return j
}

func (t *Transform) toInternal(i int, v float64) float64 {
	p := t.free[i]
	s := t.scale[i]
	f := clip(p, v) / s
	lo, hi := p.Bounded()
	switch {
	case lo && hi:
		a, b := p.Min/s, p.Max/s
		if b == a {
			return 0
		}
		x := 2*(f-a)/(b-a) - 1
		return math.Asin(math.Max(-1, math.Min(1, x)))
	case lo:
		d := f - p.Min/s + 1
		return math.Sqrt(math.Max(0, d*d-1))
	case hi:
		d := p.Max/s - f + 1
		return math.Sqrt(math.Max(0, d*d-1))
	}
	return f
}
