// Public domain.

package dataset

import (
	"fmt"
	"math"

	"github.com/tunbehaun273/Multi-instrument-tutorial/internal/fitstat"
	"github.com/tunbehaun273/Multi-instrument-tutorial/internal/model"
	"github.com/tunbehaun273/Multi-instrument-tutorial/internal/param"
)

// BackgroundMode selects how an on/off dataset treats the on-region
// background.
type BackgroundMode int

const (
	// Profiled replaces the background in each bin by the value
	// minimizing WStat for the current signal.
	Profiled BackgroundMode = iota
	// Fixed takes the background from a template scaled by a norm.
	Fixed
)

func (m BackgroundMode) String() string {
	switch m {
	case Profiled:
		return "profiled"
	case Fixed:
		return "fixed"
	}
	return fmt.Sprintf("BackgroundMode(%d)", int(m))
}

// ParseBackgroundMode is the inverse of BackgroundMode.String.
func ParseBackgroundMode(s string) (BackgroundMode, error) {
	switch s {
	case "profiled", "":
		return Profiled, nil
	case "fixed":
		return Fixed, nil
	}
	return 0, fmt.Errorf("unknown background mode %q", s)
}

// OnOffData is an on/off counting spectrum.  Slices are per energy bin.
type OnOffData struct {
	Edges    Edges
	NOn      []float64
	NOff     []float64
	Alpha    []float64 // on/off exposure ratio
	Exposure []float64 // cm2 s
	// on-region background counts, required in Fixed mode
	Background []float64
}

// OnOffDataset scores an on/off spectrum with WStat.  The statistic is
// -2 ln L of a Poisson on count and a Poisson off count sharing one
// background.
type OnOffDataset struct {
	name    string
	data    *OnOffData
	models  []*model.SkyModel
	mode    BackgroundMode
	BkgNorm *param.Parameter
}

// NewOnOffDataset validates d and returns a dataset in the given mode.
func NewOnOffDataset(name string, d *OnOffData, ms []*model.SkyModel, mode BackgroundMode) (*OnOffDataset, error) {
	if err := d.validate(name, mode); err != nil {
		return nil, err
	}
	return &OnOffDataset{
		name:    name,
		data:    d,
		models:  ms,
		mode:    mode,
		BkgNorm: param.New("norm", 1).WithBounds(0, math.NaN()),
	}, nil
}

func (d *OnOffData) validate(name string, mode BackgroundMode) error {
	if err := d.Edges.Validate(); err != nil {
		return validation(name, "%v", err)
	}
	n := d.Edges.N()
	type column struct {
		what  string
		v     []float64
		count bool
	}
	cols := []column{
		{"n_on", d.NOn, true},
		{"n_off", d.NOff, true},
		{"alpha", d.Alpha, false},
		{"exposure", d.Exposure, false},
	}
	switch {
	case mode == Fixed && d.Background == nil:
		return validation(name, "fixed background mode needs a background")
	case mode != Fixed && mode != Profiled:
		return validation(name, "%v", mode)
	}
	if d.Background != nil {
		cols = append(cols, column{"background", d.Background, false})
	}
	for _, c := range cols {
		if len(c.v) != n {
			return validation(name, "%s has %d bins, want %d", c.what, len(c.v), n)
		}
		for i, x := range c.v {
			if !finite(x) || x < 0 {
				return validation(name, "%s[%d] = %g", c.what, i, x)
			}
			if c.count && x != math.Trunc(x) {
				return validation(name, "%s[%d] = %g not integral", c.what, i, x)
			}
		}
	}
	for i, a := range d.Alpha {
		if a <= 0 {
			return validation(name, "alpha[%d] = %g", i, a)
		}
	}
	return nil
}

func (d *OnOffDataset) Name() string              { return d.name }
func (d *OnOffDataset) Kind() Kind                { return KindOnOff }
func (d *OnOffDataset) Data() *OnOffData          { return d.data }
func (d *OnOffDataset) Mode() BackgroundMode      { return d.mode }
func (d *OnOffDataset) Models() []*model.SkyModel { return d.models }

func (d *OnOffDataset) Nuisance() []*param.Parameter {
	if d.mode == Fixed {
		return []*param.Parameter{d.BkgNorm}
	}
	return nil
}

func (d *OnOffDataset) EnergyRange() (float64, float64) {
	e := d.data.Edges
	return e[0], e[len(e)-1]
}

// NpredSignal returns predicted source counts per bin.
func (d *OnOffDataset) NpredSignal() []float64 {
	mu := spectralPrediction(d.models, d.data.Edges)
	for i := range mu {
		mu[i] *= d.data.Exposure[i]
	}
	return mu
}

// npredBackground returns the on-region background per bin for signal mu.
func (d *OnOffDataset) npredBackground(mu []float64) []float64 {
	b := make([]float64, len(mu))
	for i := range b {
		if d.mode == Fixed {
			b[i] = d.data.Background[i] * d.BkgNorm.Value
		} else {
			b[i] = fitstat.ProfiledBackground(d.data.NOn[i], d.data.NOff[i], d.data.Alpha[i], mu[i])
		}
	}
	return b
}

// NpredBackground returns the on-region background per bin at current
// parameter values.
func (d *OnOffDataset) NpredBackground() []float64 {
	return d.npredBackground(d.NpredSignal())
}

func (d *OnOffDataset) signal() ([]float64, error) {
	mu := d.NpredSignal()
	for i, x := range mu {
		if err := checkPrediction(d.name, i, x); err != nil {
			return nil, err
		}
	}
	return mu, nil
}

// Npred returns predicted on-region counts, signal plus background.
func (d *OnOffDataset) Npred() ([]float64, error) {
	mu, err := d.signal()
	if err != nil {
		return nil, err
	}
	for i, b := range d.npredBackground(mu) {
		mu[i] += b
	}
	return mu, nil
}

// Counts returns n_on.
func (d *OnOffDataset) Counts() []float64 { return append([]float64(nil), d.data.NOn...) }

func (d *OnOffDataset) Stat() (float64, error) {
	mu, err := d.signal()
	if err != nil {
		return 0, err
	}
	var s float64
	for i, m := range mu {
		// zero exposure bins are not observed
		if d.data.Exposure[i] == 0 {
			continue
		}
		nOn, nOff, a := d.data.NOn[i], d.data.NOff[i], d.data.Alpha[i]
		if d.mode == Fixed {
			s += fitstat.WStat(nOn, nOff, a, m, d.data.Background[i]*d.BkgNorm.Value)
		} else {
			s += fitstat.WStatProfiled(nOn, nOff, a, m)
		}
	}
	return s, nil
}

func (d *OnOffDataset) SliceByEnergy(emin, emax float64) (Dataset, bool) {
	i, j := d.data.Edges.Select(emin, emax)
	if i == j {
		return nil, false
	}
	s := *d
	data := OnOffData{
		Edges:    d.data.Edges[i : j+1],
		NOn:      d.data.NOn[i:j],
		NOff:     d.data.NOff[i:j],
		Alpha:    d.data.Alpha[i:j],
		Exposure: d.data.Exposure[i:j],
	}
	if d.data.Background != nil {
		data.Background = d.data.Background[i:j]
	}
	s.data = &data
	return &s, true
}

func (d *OnOffDataset) WithModels(ms []*model.SkyModel) Dataset {
	c := *d
	c.models = ms
	c.BkgNorm = cloneNuisance(d.BkgNorm)
	return &c
}

func (d *OnOffDataset) Residuals(m ResidualMethod) ([]float64, error) {
	mu, err := d.Npred()
	if err != nil {
		return nil, err
	}
	return residuals(d.data.NOn, mu, m)
}
