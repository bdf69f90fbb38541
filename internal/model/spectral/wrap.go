// Public domain.

package spectral

import "github.com/tunbehaun273/Multi-instrument-tutorial/internal/param"

// Func adapts an external evaluator to Model.
//
// F receives the energy and the current parameter values, in the order of
// Params.  It may be expensive; wrap the result in NewCached when the same
// bins are integrated repeatedly.
type Func struct {
	Name   string
	F      func(e float64, values []float64) float64
	Params []*param.Parameter
}

func (m *Func) values() []float64 {
	v := make([]float64, len(m.Params))
	for i, p := range m.Params {
		v[i] = p.Value
	}
	return v
}

func (m *Func) DNDE(e float64) float64 { return m.F(e, m.values()) }

func (m *Func) Integral(emin, emax float64) float64 {
	v := m.values()
	return logIntegral(func(e float64) float64 { return m.F(e, v) }, emin, emax)
}

func (m *Func) Parameters() []*param.Parameter { return m.Params }

func (m *Func) Clone() Model {
	return &Func{Name: m.Name, F: m.F, Params: cloneParams(m.Params...)}
}

func (m *Func) Type() string {
	if m.Name > "" {
		return m.Name
	}
	return "Func"
}

// Scaled multiplies an inner model by a free norm.
//
// The flux point estimator fits Scaled with every inner parameter frozen,
// so norm is the only amplitude-like degree of freedom.
type Scaled struct {
	Inner Model
	Norm  *param.Parameter
}

// NewScaled wraps inner with a norm of 1, bounded to [0, max].
func NewScaled(inner Model, max float64) *Scaled {
	return &Scaled{
		Inner: inner,
		Norm:  param.New("norm", 1).WithBounds(0, max),
	}
}

func (m *Scaled) DNDE(e float64) float64 { return m.Norm.Value * m.Inner.DNDE(e) }

func (m *Scaled) Integral(emin, emax float64) float64 {
	if m.Norm.Value == 0 {
		return 0
	}
	return m.Norm.Value * m.Inner.Integral(emin, emax)
}

func (m *Scaled) Parameters() []*param.Parameter {
	return append([]*param.Parameter{m.Norm}, m.Inner.Parameters()...)
}

func (m *Scaled) Clone() Model {
	return &Scaled{Inner: m.Inner.Clone(), Norm: m.Norm.Clone()}
}

func (m *Scaled) Type() string { return "Scaled" + m.Inner.Type() }
