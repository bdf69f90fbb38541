// Public domain.

package spatial

import (
	"math"

	"github.com/soniakeys/meeus/v3/angle"
	"github.com/soniakeys/unit"

	"github.com/tunbehaun273/Multi-instrument-tutorial/internal/param"
)

// Model is a spatial source model.
type Model interface {
	// Evaluate returns, per pixel of g, the fraction of source flux
	// falling in the pixel.  Fractions sum to at most 1; flux outside the
	// map is lost.
	Evaluate(g *Geom) []float64
	// Position returns the source centre.
	Position() (lon, lat unit.Angle)
	Parameters() []*param.Parameter
	Clone() Model
	Type() string
}

func position(lon, lat *param.Parameter) (unit.Angle, unit.Angle) {
	return unit.AngleFromDeg(lon.Value), unit.AngleFromDeg(lat.Value)
}

func newPosition(lon, lat float64) (*param.Parameter, *param.Parameter) {
	return param.New("lon_0", lon).WithUnit("deg"),
		param.New("lat_0", lat).WithBounds(-90, 90).WithUnit("deg")
}

func cloneParams(ps ...*param.Parameter) []*param.Parameter {
	c := make([]*param.Parameter, len(ps))
	for i, p := range ps {
		c[i] = p.Clone()
	}
	return c
}

// PointSource puts all flux in the pixel containing it.
//
// With no PSF the point source is not differentiable in position; fits
// normally keep lon_0 and lat_0 frozen.
type PointSource struct {
	Lon, Lat *param.Parameter
}

// NewPointSource returns a point source at lon, lat in degrees.
func NewPointSource(lon, lat float64) *PointSource {
	l, b := newPosition(lon, lat)
	return &PointSource{Lon: l, Lat: b}
}

func (m *PointSource) Evaluate(g *Geom) []float64 {
	f := make([]float64, g.NPix())
	if i, ok := g.Pixel(m.Position()); ok {
		f[i] = 1
	}
	return f
}

func (m *PointSource) Position() (lon, lat unit.Angle) { return position(m.Lon, m.Lat) }

func (m *PointSource) Parameters() []*param.Parameter {
	return []*param.Parameter{m.Lon, m.Lat}
}

func (m *PointSource) Clone() Model {
	c := cloneParams(m.Lon, m.Lat)
	return &PointSource{Lon: c[0], Lat: c[1]}
}

func (m *PointSource) Type() string { return "PointSource" }

// Gaussian is a symmetric Gaussian of width sigma.
type Gaussian struct {
	Lon, Lat, Sigma *param.Parameter
}

// NewGaussian returns a Gaussian at lon, lat of width sigma, all degrees.
func NewGaussian(lon, lat, sigma float64) *Gaussian {
	l, b := newPosition(lon, lat)
	return &Gaussian{
		Lon:   l,
		Lat:   b,
		Sigma: param.New("sigma", sigma).WithBounds(0, 180).WithUnit("deg"),
	}
}

func (m *Gaussian) Evaluate(g *Geom) []float64 {
	s := unit.AngleFromDeg(m.Sigma.Value).Rad()
	if s <= 0 {
		return (&PointSource{Lon: m.Lon, Lat: m.Lat}).Evaluate(g)
	}
	n := 1
	if s < 2*g.BinSize.Rad() {
		n = 5
	}
	lon0, lat0 := m.Position()
	return sample(g, n, func(lon, lat unit.Angle) float64 {
		t := angle.Sep(lon0, lat0, lon, lat).Rad()
		return math.Exp(-t*t/(2*s*s)) / (2 * math.Pi * s * s)
	})
}

func (m *Gaussian) Position() (lon, lat unit.Angle) { return position(m.Lon, m.Lat) }

func (m *Gaussian) Parameters() []*param.Parameter {
	return []*param.Parameter{m.Lon, m.Lat, m.Sigma}
}

func (m *Gaussian) Clone() Model {
	c := cloneParams(m.Parameters()...)
	return &Gaussian{Lon: c[0], Lat: c[1], Sigma: c[2]}
}

func (m *Gaussian) Type() string { return "Gaussian" }

// Disk is uniform surface brightness inside radius r_0.
type Disk struct {
	Lon, Lat, Radius *param.Parameter
}

// NewDisk returns a disk at lon, lat of radius r, all degrees.
func NewDisk(lon, lat, r float64) *Disk {
	l, b := newPosition(lon, lat)
	return &Disk{
		Lon:    l,
		Lat:    b,
		Radius: param.New("r_0", r).WithBounds(0, 180).WithUnit("deg"),
	}
}

func (m *Disk) Evaluate(g *Geom) []float64 {
	r := unit.AngleFromDeg(m.Radius.Value)
	if r <= 0 {
		return (&PointSource{Lon: m.Lon, Lat: m.Lat}).Evaluate(g)
	}
	norm := 1 / (2 * math.Pi * (1 - math.Cos(r.Rad())))
	lon0, lat0 := m.Position()
	return sample(g, 5, func(lon, lat unit.Angle) float64 {
		if angle.Sep(lon0, lat0, lon, lat) <= r {
			return norm
		}
		return 0
	})
}

func (m *Disk) Position() (lon, lat unit.Angle) { return position(m.Lon, m.Lat) }

func (m *Disk) Parameters() []*param.Parameter {
	return []*param.Parameter{m.Lon, m.Lat, m.Radius}
}

func (m *Disk) Clone() Model {
	c := cloneParams(m.Parameters()...)
	return &Disk{Lon: c[0], Lat: c[1], Radius: c[2]}
}

func (m *Disk) Type() string { return "Disk" }

// sample integrates surface brightness b (sr-1) over each pixel of g on an
// n by n grid of sub-pixels.
func sample(g *Geom, n int, b func(lon, lat unit.Angle) float64) []float64 {
	f := make([]float64, g.NPix())
	step := g.BinSize / unit.Angle(n)
	off := (unit.Angle(n) - 1) / 2
	for i := range f {
		lon, lat := g.Center(i)
		w := g.SolidAngle(i) / float64(n*n)
		var sum float64
		for y := 0; y < n; y++ {
			for x := 0; x < n; x++ {
				sum += b(lon+(unit.Angle(x)-off)*step, lat+(unit.Angle(y)-off)*step)
			}
		}
		f[i] = sum * w
	}
	return f
}
