// Public domain.

// Package spatial defines the pixel geometry of counts maps and spatial
// source models evaluated on it.
//
// No instrument response is modelled.  A spatial model gives the fraction
// of a source's flux falling in each pixel, nothing more.
package spatial

import (
	"errors"
	"fmt"
	"math"

	"github.com/soniakeys/unit"
)

// Geom is a plate carrée pixel grid centred on (Lon0, Lat0).
//
// Pixel i has column i%NX and row i/NX.  Longitude increases with column,
// latitude with row.  Pixel width is BinSize in both coordinates.
type Geom struct {
	Lon0, Lat0 unit.Angle
	NX, NY     int
	BinSize    unit.Angle
}

// Validate checks the geometry is usable.
func (g *Geom) Validate() error {
	switch {
	case g.NX <= 0 || g.NY <= 0:
		return fmt.Errorf("spatial: geometry %dx%d", g.NX, g.NY)
	case !(g.BinSize > 0):
		return errors.New("spatial: bin size must be positive")
	case math.Abs(g.Lat0.Deg())+float64(g.NY)*g.BinSize.Deg()/2 > 90:
		return errors.New("spatial: geometry extends past a pole")
	}
	return nil
}

// NPix returns the number of pixels.
func (g *Geom) NPix() int { return g.NX * g.NY }

// Center returns the coordinates of the centre of pixel i.
func (g *Geom) Center(i int) (lon, lat unit.Angle) {
	x := float64(i%g.NX) - float64(g.NX-1)/2
	y := float64(i/g.NX) - float64(g.NY-1)/2
	return g.Lon0 + unit.Angle(x)*g.BinSize, g.Lat0 + unit.Angle(y)*g.BinSize
}

// SolidAngle returns the solid angle of pixel i in sr.
func (g *Geom) SolidAngle(i int) float64 {
	_, lat := g.Center(i)
	h := g.BinSize.Rad() / 2
	// exact for a lon/lat box
	return g.BinSize.Rad() * (math.Sin(lat.Rad()+h) - math.Sin(lat.Rad()-h))
}

// Pixel returns the index of the pixel containing (lon, lat).
func (g *Geom) Pixel(lon, lat unit.Angle) (int, bool) {
	// wrap longitude difference into (-180, 180]
	dl := math.Remainder((lon - g.Lon0).Deg(), 360)
	x := math.Floor(dl/g.BinSize.Deg() + float64(g.NX)/2)
	y := math.Floor((lat-g.Lat0).Deg()/g.BinSize.Deg() + float64(g.NY)/2)
	if x < 0 || y < 0 || x >= float64(g.NX) || y >= float64(g.NY) {
		return 0, false
	}
	return int(y)*g.NX + int(x), true
}
