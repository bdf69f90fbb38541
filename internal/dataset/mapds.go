// Public domain.

package dataset

import (
	"math"

	"github.com/tunbehaun273/Multi-instrument-tutorial/internal/fitstat"
	"github.com/tunbehaun273/Multi-instrument-tutorial/internal/model"
	"github.com/tunbehaun273/Multi-instrument-tutorial/internal/model/spatial"
	"github.com/tunbehaun273/Multi-instrument-tutorial/internal/param"
)

// MapData is the observed content of a counts map.  Grids are indexed
// [energy bin][pixel].
type MapData struct {
	Geom       *spatial.Geom
	Edges      Edges
	Counts     [][]float64
	Background [][]float64 // expected background counts, nil for none
	Exposure   [][]float64 // cm2 s
}

// MapDataset scores a counts map with the Cash statistic.
//
// The prediction in bin (e, p) is
//
//	exposure * integral flux * spatial fraction
//	  + background * norm * (E/reference)^-tilt
//
// summed over models, with E the bin centre.  norm and tilt are
// dataset-local nuisance parameters.  Bins with zero exposure and zero
// background are outside the footprint and score nothing.
type MapDataset struct {
	name    string
	data    *MapData
	models  []*model.SkyModel
	BkgNorm *param.Parameter
	BkgTilt *param.Parameter
	// tilt reference energy, TeV
	BkgReference float64
}

// NewMapDataset validates d and returns a dataset.  Every model needs a
// spatial component.  The background tilt starts frozen.
func NewMapDataset(name string, d *MapData, ms []*model.SkyModel) (*MapDataset, error) {
	if err := d.validate(name); err != nil {
		return nil, err
	}
	for _, m := range ms {
		if m.Spatial == nil {
			return nil, validation(name, "model %s has no spatial component", m.Name)
		}
	}
	tilt := param.New("tilt", 0)
	tilt.Frozen = true
	return &MapDataset{
		name:         name,
		data:         d,
		models:       ms,
		BkgNorm:      param.New("norm", 1).WithBounds(0, math.NaN()),
		BkgTilt:      tilt,
		BkgReference: 1,
	}, nil
}

func (d *MapData) validate(name string) error {
	if d.Geom == nil {
		return validation(name, "no geometry")
	}
	if err := d.Geom.Validate(); err != nil {
		return validation(name, "%v", err)
	}
	if err := d.Edges.Validate(); err != nil {
		return validation(name, "%v", err)
	}
	ne, np := d.Edges.N(), d.Geom.NPix()
	grid := func(what string, g [][]float64, counts bool) error {
		if len(g) != ne {
			return validation(name, "%s has %d energy bins, want %d", what, len(g), ne)
		}
		for e, row := range g {
			if len(row) != np {
				return validation(name, "%s bin %d has %d pixels, want %d", what, e, len(row), np)
			}
			for p, x := range row {
				if !finite(x) || x < 0 {
					return validation(name, "%s[%d][%d] = %g", what, e, p, x)
				}
				if counts && x != math.Trunc(x) {
					return validation(name, "%s[%d][%d] = %g not integral", what, e, p, x)
				}
			}
		}
		return nil
	}
	if err := grid("counts", d.Counts, true); err != nil {
		return err
	}
	if err := grid("exposure", d.Exposure, false); err != nil {
		return err
	}
	if d.Background != nil {
		return grid("background", d.Background, false)
	}
	return nil
}

func (d *MapDataset) Name() string              { return d.name }
func (d *MapDataset) Kind() Kind                { return KindMap }
func (d *MapDataset) Data() *MapData            { return d.data }
func (d *MapDataset) Models() []*model.SkyModel { return d.models }

func (d *MapDataset) Nuisance() []*param.Parameter {
	return []*param.Parameter{d.BkgNorm, d.BkgTilt}
}

func (d *MapDataset) EnergyRange() (float64, float64) {
	e := d.data.Edges
	return e[0], e[len(e)-1]
}

// outside reports whether bin (e, p) is outside the footprint.
func (d *MapDataset) outside(e, p int) bool {
	return d.data.Exposure[e][p] == 0 && (d.data.Background == nil || d.data.Background[e][p] == 0)
}

// NpredBackground returns predicted background counts, flattened.
func (d *MapDataset) NpredBackground() []float64 {
	ne, np := d.data.Edges.N(), d.data.Geom.NPix()
	b := make([]float64, ne*np)
	if d.data.Background == nil {
		return b
	}
	for e := 0; e < ne; e++ {
		s := d.BkgNorm.Value * math.Pow(d.data.Edges.Centre(e)/d.BkgReference, -d.BkgTilt.Value)
		for p, x := range d.data.Background[e] {
			b[e*np+p] = x * s
		}
	}
	return b
}

// NpredSignal returns predicted source counts, flattened.
func (d *MapDataset) NpredSignal() []float64 {
	ne, np := d.data.Edges.N(), d.data.Geom.NPix()
	mu := make([]float64, ne*np)
	for _, m := range d.models {
		frac := m.Spatial.Evaluate(d.data.Geom)
		for e := 0; e < ne; e++ {
			flux := m.Spectral.Integral(d.data.Edges.Bin(e))
			for p, x := range d.data.Exposure[e] {
				mu[e*np+p] += x * flux * frac[p]
			}
		}
	}
	return mu
}

// Npred returns total predicted counts flattened as e*NPix + p.
func (d *MapDataset) Npred() ([]float64, error) {
	mu := d.NpredSignal()
	for i, b := range d.NpredBackground() {
		mu[i] += b
		if err := checkPrediction(d.name, i, mu[i]); err != nil {
			return nil, err
		}
	}
	return mu, nil
}

// Counts returns observed counts flattened like Npred.
func (d *MapDataset) Counts() []float64 {
	np := d.data.Geom.NPix()
	c := make([]float64, 0, d.data.Edges.N()*np)
	for _, row := range d.data.Counts {
		c = append(c, row...)
	}
	return c
}

func (d *MapDataset) Stat() (float64, error) {
	mu, err := d.Npred()
	if err != nil {
		return 0, err
	}
	np := d.data.Geom.NPix()
	var s float64
	for e, row := range d.data.Counts {
		for p, n := range row {
			if d.outside(e, p) {
				continue
			}
			s += fitstat.Cash(n, mu[e*np+p])
		}
	}
	return s, nil
}

func (d *MapDataset) SliceByEnergy(emin, emax float64) (Dataset, bool) {
	i, j := d.data.Edges.Select(emin, emax)
	if i == j {
		return nil, false
	}
	s := *d
	data := *d.data
	data.Edges = d.data.Edges[i : j+1]
	data.Counts = d.data.Counts[i:j]
	data.Exposure = d.data.Exposure[i:j]
	if d.data.Background != nil {
		data.Background = d.data.Background[i:j]
	}
	s.data = &data
	return &s, true
}

func (d *MapDataset) WithModels(ms []*model.SkyModel) Dataset {
	c := *d
	c.models = ms
	c.BkgNorm = cloneNuisance(d.BkgNorm)
	c.BkgTilt = cloneNuisance(d.BkgTilt)
	return &c
}

func (d *MapDataset) Residuals(m ResidualMethod) ([]float64, error) {
	mu, err := d.Npred()
	if err != nil {
		return nil, err
	}
	return residuals(d.Counts(), mu, m)
}
