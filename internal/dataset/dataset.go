// Public domain.

// Package dataset wraps observed measurements with their model prediction
// and fit statistic.
//
// Three kinds are supported: a counts map with a background template
// (Cash statistic), an on/off counting spectrum (WStat) and flux points
// (chi-square).  Observed data are immutable after construction and may
// be shared between a dataset, its energy slices and its clones.
// Predictions are never stored; they are computed on demand from the
// current parameter values.
package dataset

import (
	"errors"
	"fmt"
	"math"

	"github.com/tunbehaun273/Multi-instrument-tutorial/internal/model"
	"github.com/tunbehaun273/Multi-instrument-tutorial/internal/param"
)

var (
	// ErrValidation marks malformed input data.  Such errors are fatal
	// and a fit is not attempted.
	ErrValidation = errors.New("invalid dataset")
	// ErrInvalidPrediction is returned when a model predicts a negative
	// or NaN value.
	ErrInvalidPrediction = errors.New("invalid prediction")
	// ErrResidualMethod is returned for a residual method a dataset
	// kind does not support.
	ErrResidualMethod = errors.New("unsupported residual method")
)

// Kind is the kind of a dataset.
type Kind int

const (
	KindMap Kind = iota
	KindOnOff
	KindFluxPoints
)

var kindNames = []string{"map", "onoff", "fluxpoints"}

func (k Kind) String() string {
	if k < 0 || int(k) >= len(kindNames) {
		return fmt.Sprintf("Kind(%d)", int(k))
	}
	return kindNames[k]
}

// ParseKind is the inverse of Kind.String.
func ParseKind(s string) (Kind, error) {
	for i, n := range kindNames {
		if s == n {
			return Kind(i), nil
		}
	}
	return 0, fmt.Errorf("unknown dataset kind %q", s)
}

// Dataset is one measurement and the statistic scoring a model against it.
type Dataset interface {
	Name() string
	Kind() Kind
	// Stat returns the statistic at current parameter values.
	Stat() (float64, error)
	// Npred returns the prediction of the observed quantity per bin:
	// counts for map and on/off datasets, dnde for flux points.
	Npred() ([]float64, error)
	// Counts returns the observed quantity per bin, laid out like Npred.
	Counts() []float64
	Models() []*model.SkyModel
	// Nuisance returns dataset-local parameters.
	Nuisance() []*param.Parameter
	EnergyRange() (emin, emax float64)
	// SliceByEnergy returns the dataset restricted to the bins whose
	// centre lies in [emin, emax).  It shares data, models and nuisance
	// parameters with the receiver.  ok is false when no bin is selected.
	SliceByEnergy(emin, emax float64) (d Dataset, ok bool)
	// WithModels returns a copy bound to ms, with cloned nuisance
	// parameters.
	WithModels(ms []*model.SkyModel) Dataset
	Residuals(m ResidualMethod) ([]float64, error)
}

// ResidualMethod selects how residuals are normalized.
type ResidualMethod string

const (
	Diff          ResidualMethod = "diff"
	DiffModel     ResidualMethod = "diff/model"
	DiffSqrtModel ResidualMethod = "diff/sqrt(model)"
)

func residuals(obs, pred []float64, m ResidualMethod) ([]float64, error) {
	r := make([]float64, len(obs))
	for i := range obs {
		d := obs[i] - pred[i]
		switch m {
		case Diff:
			r[i] = d
		case DiffModel:
			r[i] = d / pred[i]
		case DiffSqrtModel:
			r[i] = d / math.Sqrt(pred[i])
		default:
			return nil, fmt.Errorf("%w %q", ErrResidualMethod, m)
		}
	}
	return r, nil
}

func checkPrediction(name string, bin int, mu float64) error {
	if mu < 0 || math.IsNaN(mu) || math.IsInf(mu, 0) {
		return fmt.Errorf("%w: dataset %s bin %d: %g", ErrInvalidPrediction, name, bin, mu)
	}
	return nil
}

func validation(name, format string, a ...interface{}) error {
	return fmt.Errorf("%w %s: %s", ErrValidation, name, fmt.Sprintf(format, a...))
}

func finite(x float64) bool { return !math.IsNaN(x) && !math.IsInf(x, 0) }

func cloneNuisance(p *param.Parameter) *param.Parameter {
	if p == nil {
		return nil
	}
	return p.Clone()
}

// spectralPrediction returns, per bin of e, the flux integral summed over
// ms.
func spectralPrediction(ms []*model.SkyModel, e Edges) []float64 {
	f := make([]float64, e.N())
	for _, m := range ms {
		for i := range f {
			f[i] += m.Spectral.Integral(e.Bin(i))
		}
	}
	return f
}
