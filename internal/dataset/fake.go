// Public domain.

package dataset

import (
	"fmt"

	"golang.org/x/exp/rand"
	"gonum.org/v1/gonum/stat/distuv"
)

// Fake returns a new dataset with observed values drawn from the current
// prediction of d.  Counts are Poisson, flux points Gaussian with the
// point errors.  The result is bound to the same models and has fresh
// nuisance parameters.
//
// For an on/off dataset in Profiled mode the background drawn from is the
// profiled background of d's own data.
func Fake(d Dataset, src rand.Source) (Dataset, error) {
	switch d := d.(type) {
	case *MapDataset:
		return d.Fake(src)
	case *OnOffDataset:
		return d.Fake(src)
	case *FluxPointsDataset:
		return d.Fake(src)
	}
	return nil, fmt.Errorf("dataset: cannot simulate %T", d)
}

func poisson(mu float64, src rand.Source) float64 {
	if mu <= 0 {
		return 0
	}
	return distuv.Poisson{Lambda: mu, Src: src}.Rand()
}

// Fake draws Poisson counts from the predicted counts.
func (d *MapDataset) Fake(src rand.Source) (*MapDataset, error) {
	mu, err := d.Npred()
	if err != nil {
		return nil, err
	}
	np := d.data.Geom.NPix()
	data := *d.data
	data.Counts = make([][]float64, d.data.Edges.N())
	for e := range data.Counts {
		row := make([]float64, np)
		for p := range row {
			row[p] = poisson(mu[e*np+p], src)
		}
		data.Counts[e] = row
	}
	c := d.WithModels(d.models).(*MapDataset)
	c.data = &data
	return c, nil
}

// Fake draws on and off counts.
func (d *OnOffDataset) Fake(src rand.Source) (*OnOffDataset, error) {
	mu, err := d.signal()
	if err != nil {
		return nil, err
	}
	b := d.npredBackground(mu)
	data := *d.data
	n := len(mu)
	data.NOn = make([]float64, n)
	data.NOff = make([]float64, n)
	for i := range mu {
		data.NOn[i] = poisson(mu[i]+b[i], src)
		data.NOff[i] = poisson(b[i]/d.data.Alpha[i], src)
	}
	c := d.WithModels(d.models).(*OnOffDataset)
	c.data = &data
	return c, nil
}

// Fake draws dnde from a normal distribution about the model with the
// mean of the two point errors.  Upper limits are kept as they are.
func (d *FluxPointsDataset) Fake(src rand.Source) (*FluxPointsDataset, error) {
	f, err := d.Npred()
	if err != nil {
		return nil, err
	}
	pts := append([]FluxPoint(nil), d.points...)
	for i := range pts {
		if pts[i].UL {
			continue
		}
		s := (pts[i].ErrN + pts[i].ErrP) / 2
		pts[i].DNDE = distuv.Normal{Mu: f[i], Sigma: s, Src: src}.Rand()
	}
	return &FluxPointsDataset{name: d.name, points: pts, models: d.models}, nil
}
