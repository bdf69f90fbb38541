// Public domain.

package dataset

import (
	"math"

	"github.com/tunbehaun273/Multi-instrument-tutorial/internal/fitstat"
	"github.com/tunbehaun273/Multi-instrument-tutorial/internal/model"
	"github.com/tunbehaun273/Multi-instrument-tutorial/internal/param"
)

// FluxPoint is one externally measured differential flux.
//
// ErrN applies when the model lies below DNDE, ErrP when above.  For an
// upper limit DNDE holds the limit and the point does not enter the
// statistic.  EMin and EMax are optional bin edges; zero means unknown.
type FluxPoint struct {
	E, EMin, EMax    float64
	DNDE, ErrN, ErrP float64
	UL               bool
}

// FluxPointsDataset scores flux points with chi-square.
type FluxPointsDataset struct {
	name   string
	points []FluxPoint
	models []*model.SkyModel
}

// NewFluxPointsDataset validates pts and returns a dataset.
func NewFluxPointsDataset(name string, pts []FluxPoint, ms []*model.SkyModel) (*FluxPointsDataset, error) {
	if len(pts) == 0 {
		return nil, validation(name, "no flux points")
	}
	for i, p := range pts {
		switch {
		case !(p.E > 0) || math.IsInf(p.E, 0):
			return nil, validation(name, "point %d energy %g", i, p.E)
		case p.EMin != 0 && !(p.EMin <= p.E) || p.EMax != 0 && !(p.EMax >= p.E):
			return nil, validation(name, "point %d edges [%g, %g] exclude %g", i, p.EMin, p.EMax, p.E)
		case !finite(p.DNDE):
			return nil, validation(name, "point %d dnde %g", i, p.DNDE)
		case i > 0 && p.E <= pts[i-1].E:
			return nil, validation(name, "point %d energies not increasing", i)
		case p.UL:
			continue
		case !(p.ErrN > 0) || !(p.ErrP > 0) || !finite(p.ErrN) || !finite(p.ErrP):
			return nil, validation(name, "point %d errors %g, %g", i, p.ErrN, p.ErrP)
		}
	}
	return &FluxPointsDataset{name: name, points: pts, models: ms}, nil
}

func (d *FluxPointsDataset) Name() string                 { return d.name }
func (d *FluxPointsDataset) Kind() Kind                   { return KindFluxPoints }
func (d *FluxPointsDataset) Points() []FluxPoint          { return d.points }
func (d *FluxPointsDataset) Models() []*model.SkyModel    { return d.models }
func (d *FluxPointsDataset) Nuisance() []*param.Parameter { return nil }

// EnergyRange uses bin edges where known.
func (d *FluxPointsDataset) EnergyRange() (float64, float64) {
	lo, hi := d.points[0], d.points[len(d.points)-1]
	emin, emax := lo.E, hi.E
	if lo.EMin > 0 {
		emin = lo.EMin
	}
	if hi.EMax > 0 {
		emax = hi.EMax
	}
	return emin, emax
}

// Npred returns model dnde at each point energy.
func (d *FluxPointsDataset) Npred() ([]float64, error) {
	f := make([]float64, len(d.points))
	for i, p := range d.points {
		for _, m := range d.models {
			f[i] += m.Spectral.DNDE(p.E)
		}
		if err := checkPrediction(d.name, i, f[i]); err != nil {
			return nil, err
		}
	}
	return f, nil
}

// Counts returns observed dnde.
func (d *FluxPointsDataset) Counts() []float64 {
	f := make([]float64, len(d.points))
	for i, p := range d.points {
		f[i] = p.DNDE
	}
	return f
}

func (d *FluxPointsDataset) Stat() (float64, error) {
	f, err := d.Npred()
	if err != nil {
		return 0, err
	}
	var s float64
	for i, p := range d.points {
		if !p.UL {
			s += fitstat.Chi2(p.DNDE, f[i], p.ErrN, p.ErrP)
		}
	}
	return s, nil
}

// SliceByEnergy selects points by their energy.
func (d *FluxPointsDataset) SliceByEnergy(emin, emax float64) (Dataset, bool) {
	var pts []FluxPoint
	for _, p := range d.points {
		if p.E >= emin && p.E < emax {
			pts = append(pts, p)
		}
	}
	if len(pts) == 0 {
		return nil, false
	}
	return &FluxPointsDataset{name: d.name, points: pts, models: d.models}, true
}

func (d *FluxPointsDataset) WithModels(ms []*model.SkyModel) Dataset {
	return &FluxPointsDataset{name: d.name, points: d.points, models: ms}
}

// Residuals supports Diff and DiffModel.  Upper limits give NaN.
func (d *FluxPointsDataset) Residuals(m ResidualMethod) ([]float64, error) {
	if m == DiffSqrtModel {
		return nil, ErrResidualMethod
	}
	f, err := d.Npred()
	if err != nil {
		return nil, err
	}
	r, err := residuals(d.Counts(), f, m)
	if err != nil {
		return nil, err
	}
	for i, p := range d.points {
		if p.UL {
			r[i] = math.NaN()
		}
	}
	return r, nil
}
