// Public domain.

package spectral

import (
	"math"

	"github.com/soniakeys/meeus/v3/base"

	"github.com/tunbehaun273/Multi-instrument-tutorial/internal/param"
)

// LogParabola is dN/dE = amplitude (E/reference)^(-alpha - beta ln(E/reference)).
type LogParabola struct {
	Amplitude, Reference, Alpha, Beta *param.Parameter
}

// NewLogParabola returns a log parabola.  Reference is frozen.
func NewLogParabola(amplitude, reference, alpha, beta float64) *LogParabola {
	return &LogParabola{
		Amplitude: param.New("amplitude", amplitude).
			WithBounds(0, math.NaN()).WithUnit("cm-2 s-1 TeV-1"),
		Reference: param.NewFrozen("reference", reference).WithUnit("TeV"),
		Alpha:     param.New("alpha", alpha),
		Beta:      param.New("beta", beta),
	}
}

// DNDE evaluates the exponent as a polynomial in x = ln(E/reference).
func (m *LogParabola) DNDE(e float64) float64 {
	x := math.Log(e / m.Reference.Value)
	return m.Amplitude.Value * math.Exp(base.Horner(x, 0, -m.Alpha.Value, -m.Beta.Value))
}

func (m *LogParabola) Integral(emin, emax float64) float64 {
	return logIntegral(m.DNDE, emin, emax)
}

func (m *LogParabola) Parameters() []*param.Parameter {
	return []*param.Parameter{m.Amplitude, m.Reference, m.Alpha, m.Beta}
}

func (m *LogParabola) Clone() Model {
	c := cloneParams(m.Parameters()...)
	return &LogParabola{Amplitude: c[0], Reference: c[1], Alpha: c[2], Beta: c[3]}
}

func (m *LogParabola) Type() string { return "LogParabola" }
