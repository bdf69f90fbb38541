// Public domain.

package spatial_test

import (
	"fmt"
	"testing"

	"github.com/soniakeys/unit"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/tunbehaun273/Multi-instrument-tutorial/internal/model/spatial"
)

func testGeom() *spatial.Geom {
	return &spatial.Geom{
		Lon0:    unit.AngleFromDeg(83.63),
		Lat0:    unit.AngleFromDeg(22.01),
		NX:      21,
		NY:      21,
		BinSize: unit.AngleFromDeg(0.05),
	}
}

func ExampleGeom_Pixel() {
	g := &spatial.Geom{NX: 3, NY: 2, BinSize: unit.AngleFromDeg(1)}
	for _, c := range [][2]float64{{0, 0}, {-1.2, -0.5}, {1.4, 0.5}, {2, 0}} {
		i, ok := g.Pixel(unit.AngleFromDeg(c[0]), unit.AngleFromDeg(c[1]))
		fmt.Println(i, ok)
	}
	// Output:
	// 4 true
	// 0 true
	// 5 true
	// 0 false
}

func TestGeomCenterPixelRoundTrip(t *testing.T) {
	g := testGeom()
	require.NoError(t, g.Validate())
	for i := 0; i < g.NPix(); i++ {
		j, ok := g.Pixel(g.Center(i))
		require.True(t, ok)
		assert.Equal(t, i, j)
	}
}

func TestGeomValidate(t *testing.T) {
	assert.Error(t, (&spatial.Geom{NX: 0, NY: 1, BinSize: 1}).Validate())
	assert.Error(t, (&spatial.Geom{NX: 1, NY: 1}).Validate())
	assert.Error(t, (&spatial.Geom{
		Lat0: unit.AngleFromDeg(89), NX: 1, NY: 10, BinSize: unit.AngleFromDeg(1),
	}).Validate())
}

func TestSolidAngleSmallPixel(t *testing.T) {
	g := &spatial.Geom{NX: 1, NY: 1, BinSize: unit.AngleFromDeg(0.1)}
	r := unit.AngleFromDeg(0.1).Rad()
	assert.InEpsilon(t, r*r, g.SolidAngle(0), 1e-6)
}

func sum(f []float64) (s float64) {
	for _, x := range f {
		s += x
	}
	return
}

func TestPointSource(t *testing.T) {
	g := testGeom()
	f := spatial.NewPointSource(83.63, 22.01).Evaluate(g)
	assert.Equal(t, 1., sum(f))
	assert.Equal(t, 1., f[g.NPix()/2])

	outside := spatial.NewPointSource(10, 22.01).Evaluate(g)
	assert.Zero(t, sum(outside))
}

func TestGaussianContained(t *testing.T) {
	g := testGeom()
	// map half width is 0.525 deg, over 5 sigma
	f := spatial.NewGaussian(83.63, 22.01, 0.1).Evaluate(g)
	assert.InDelta(t, 1, sum(f), 0.01)
	center := f[g.NPix()/2]
	for _, x := range f {
		assert.LessOrEqual(t, x, center)
	}
}

func TestDiskContained(t *testing.T) {
	g := testGeom()
	f := spatial.NewDisk(83.63, 22.01, 0.3).Evaluate(g)
	assert.InDelta(t, 1, sum(f), 0.02)
	assert.Zero(t, f[0], "corner is outside the disk")
}

func TestZeroWidthIsPoint(t *testing.T) {
	g := testGeom()
	assert.Equal(t, spatial.NewPointSource(83.63, 22.01).Evaluate(g),
		spatial.NewGaussian(83.63, 22.01, 0).Evaluate(g))
	assert.Equal(t, spatial.NewPointSource(83.63, 22.01).Evaluate(g),
		spatial.NewDisk(83.63, 22.01, 0).Evaluate(g))
}

func TestClone(t *testing.T) {
	for _, m := range []spatial.Model{
		spatial.NewPointSource(1, 2),
		spatial.NewGaussian(1, 2, 0.1),
		spatial.NewDisk(1, 2, 0.1),
	} {
		c := m.Clone()
		c.Parameters()[0].Value = 50
		lon, _ := m.Position()
		assert.InDelta(t, 1, lon.Deg(), 1e-12, m.Type())
	}
}
