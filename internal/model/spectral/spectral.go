// Public domain.

// Package spectral defines spectral models: functions of energy returning
// differential flux, parametrized by fit parameters.
//
// Energies are in TeV, differential flux in cm-2 s-1 TeV-1 and integral
// flux in cm-2 s-1.
package spectral

import (
	"math"

	"gonum.org/v1/gonum/integrate/quad"

	"github.com/tunbehaun273/Multi-instrument-tutorial/internal/param"
)

// Model is a spectral model.
//
// Implementations must be pure functions of energy and the current
// parameter values.  External radiative evaluators plug in through Func.
type Model interface {
	// DNDE returns differential flux at energy e.
	DNDE(e float64) float64
	// Integral returns flux integrated from emin to emax.
	Integral(emin, emax float64) float64
	// Parameters returns the model parameters in a stable order.
	Parameters() []*param.Parameter
	// Clone returns a deep copy with independent parameters.
	Clone() Model
	// Type returns the model type name used in model files.
	Type() string
}

// number of Gauss-Legendre nodes per integration.  Bins used here span at
// most a decade or so in energy; in log energy the integrands are smooth.
const quadNodes = 24

// logIntegral integrates f from emin to emax, changing variable to
// x = ln e.
func logIntegral(f func(e float64) float64, emin, emax float64) float64 {
	if !(emax > emin) || emin <= 0 {
		return 0
	}
	g := func(x float64) float64 {
		e := math.Exp(x)
		return f(e) * e
	}
	return quad.Fixed(g, math.Log(emin), math.Log(emax), quadNodes, nil, 0)
}

func cloneParams(ps ...*param.Parameter) []*param.Parameter {
	c := make([]*param.Parameter, len(ps))
	for i, p := range ps {
		c[i] = p.Clone()
	}
	return c
}

// PowerLaw is dN/dE = amplitude (E/reference)^-index.
type PowerLaw struct {
	Amplitude, Index, Reference *param.Parameter
}

// NewPowerLaw returns a power law with the given values.  Reference is
// frozen and amplitude is bounded below by zero.
func NewPowerLaw(amplitude, index, reference float64) *PowerLaw {
	return &PowerLaw{
		Amplitude: param.New("amplitude", amplitude).
			WithBounds(0, math.NaN()).WithUnit("cm-2 s-1 TeV-1"),
		Index:     param.New("index", index),
		Reference: param.NewFrozen("reference", reference).WithUnit("TeV"),
	}
}

func (m *PowerLaw) DNDE(e float64) float64 {
	return m.Amplitude.Value * math.Pow(e/m.Reference.Value, -m.Index.Value)
}

// Integral is computed analytically.
func (m *PowerLaw) Integral(emin, emax float64) float64 {
	if !(emax > emin) {
		return 0
	}
	a, g, e0 := m.Amplitude.Value, m.Index.Value, m.Reference.Value
	if math.Abs(g-1) < 1e-10 {
		return a * e0 * math.Log(emax/emin)
	}
	p := 1 - g
	return a * e0 / p * (math.Pow(emax/e0, p) - math.Pow(emin/e0, p))
}

func (m *PowerLaw) Parameters() []*param.Parameter {
	return []*param.Parameter{m.Amplitude, m.Index, m.Reference}
}

func (m *PowerLaw) Clone() Model {
	c := cloneParams(m.Parameters()...)
	return &PowerLaw{Amplitude: c[0], Index: c[1], Reference: c[2]}
}

func (m *PowerLaw) Type() string { return "PowerLaw" }

// ExpCutoffPowerLaw is a power law times exp(-lambda_ E).
type ExpCutoffPowerLaw struct {
	Amplitude, Index, Reference, Lambda *param.Parameter
}

// NewExpCutoffPowerLaw returns an exponential cutoff power law.  lambda is
// the inverse cutoff energy in TeV-1.
func NewExpCutoffPowerLaw(amplitude, index, reference, lambda float64) *ExpCutoffPowerLaw {
	pl := NewPowerLaw(amplitude, index, reference)
	return &ExpCutoffPowerLaw{
		Amplitude: pl.Amplitude,
		Index:     pl.Index,
		Reference: pl.Reference,
		Lambda:    param.New("lambda_", lambda).WithBounds(0, math.NaN()).WithUnit("TeV-1"),
	}
}

func (m *ExpCutoffPowerLaw) DNDE(e float64) float64 {
	return m.Amplitude.Value * math.Pow(e/m.Reference.Value, -m.Index.Value) *
		math.Exp(-m.Lambda.Value*e)
}

func (m *ExpCutoffPowerLaw) Integral(emin, emax float64) float64 {
	return logIntegral(m.DNDE, emin, emax)
}

func (m *ExpCutoffPowerLaw) Parameters() []*param.Parameter {
	return []*param.Parameter{m.Amplitude, m.Index, m.Reference, m.Lambda}
}

func (m *ExpCutoffPowerLaw) Clone() Model {
	c := cloneParams(m.Parameters()...)
	return &ExpCutoffPowerLaw{Amplitude: c[0], Index: c[1], Reference: c[2], Lambda: c[3]}
}

func (m *ExpCutoffPowerLaw) Type() string { return "ExpCutoffPowerLaw" }
