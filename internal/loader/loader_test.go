// Public domain.

package loader_test

import (
	"bytes"
	"errors"
	"fmt"
	"strings"
	"testing"
	"time"

	"github.com/hashicorp/go-multierror"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/tunbehaun273/Multi-instrument-tutorial/internal/dataset"
	"github.com/tunbehaun273/Multi-instrument-tutorial/internal/loader"
	"github.com/tunbehaun273/Multi-instrument-tutorial/internal/model"
	"github.com/tunbehaun273/Multi-instrument-tutorial/internal/model/spectral"
	"github.com/tunbehaun273/Multi-instrument-tutorial/internal/param"
)

func ExampleReadModels() {
	ms, err := loader.ReadModels(strings.NewReader(`
components:
  - name: crab
    spectral:
      type: PowerLaw
      parameters:
        - {name: index, value: 2.6}
`))
	if err != nil {
		fmt.Println(err)
		return
	}
	m, _ := ms.Get("crab")
	for _, p := range m.Parameters() {
		fmt.Println(p)
	}
	// Output:
	// amplitude=1e-12 cm-2 s-1 TeV-1
	// index=2.6
	// reference=1 TeV (frozen)
}

func loadModels(t *testing.T) *model.Models {
	ms, err := loader.LoadModels("testdata/models.yaml")
	require.NoError(t, err)
	return ms
}

func TestLoadModels(t *testing.T) {
	ms := loadModels(t)
	assert.Equal(t, []string{"crab", "nebula"}, ms.Names())

	crab, _ := ms.Get("crab")
	pl, ok := crab.Spectral.(*spectral.PowerLaw)
	require.True(t, ok)
	assert.Equal(t, 3.8e-11, pl.Amplitude.Value)
	assert.Equal(t, 2.6, pl.Index.Value)
	assert.Equal(t, 1., pl.Index.Min)
	assert.Equal(t, 4., pl.Index.Max)
	require.NotNil(t, crab.Spatial)
	for _, p := range crab.Spatial.Parameters() {
		assert.True(t, p.Frozen, p.Name)
	}

	neb, _ := ms.Get("nebula")
	c, ok := neb.Spectral.(*spectral.Cached)
	require.True(t, ok)
	assert.Equal(t, time.Minute, c.TTL)
	assert.Equal(t, "LogParabola", c.Type())
	assert.Nil(t, neb.Spatial)
	beta := neb.Spectral.Parameters()[3]
	assert.Equal(t, "beta", beta.Name)
	assert.True(t, beta.Frozen)
}

func TestReadModelsErrors(t *testing.T) {
	_, err := loader.ReadModels(strings.NewReader(`
components:
  - name: a
    spectral: {type: BrokenPowerLaw}
  - name: b
    spectral:
      type: PowerLaw
      parameters: [{name: gamma, value: 2}]
    spatial: {type: Shell}
  - name: c
    spectral: {type: PowerLaw}
`))
	require.Error(t, err)
	assert.True(t, errors.Is(err, loader.ErrUnknownType))
	assert.True(t, errors.Is(err, loader.ErrUnboundParameter))
	var merr *multierror.Error
	require.True(t, errors.As(err, &merr))
	assert.Len(t, merr.Errors, 2)
	assert.Contains(t, err.Error(), "model a")
	assert.Contains(t, err.Error(), "model b")
	assert.Contains(t, err.Error(), "Shell")

	_, err = loader.ReadModels(strings.NewReader("components:\n  - name: a\n    colour: red\n"))
	assert.Error(t, err, "unknown fields are rejected")

	_, err = loader.ReadModels(strings.NewReader(`
components:
  - name: a
    spectral:
      type: PowerLaw
      parameters: [{name: index, value: 5, max: 4}]
`))
	assert.True(t, errors.Is(err, param.ErrInvalid))
}

func TestLoadDatasets(t *testing.T) {
	ms := loadModels(t)
	ds, err := loader.LoadDatasets("testdata/datasets.yaml", ms)
	require.NoError(t, err)
	assert.Equal(t, []string{"lat", "hess", "hawc"}, ds.Names())

	lat, _ := ds.Get("lat")
	md := lat.(*dataset.MapDataset)
	assert.Equal(t, 4, md.Data().Geom.NPix())
	assert.InDelta(t, 0.5, md.Data().Geom.BinSize.Deg(), 1e-12)
	assert.False(t, md.BkgTilt.Frozen)

	hess, _ := ds.Get("hess")
	oo := hess.(*dataset.OnOffDataset)
	assert.Equal(t, dataset.Fixed, oo.Mode())
	assert.Equal(t, 1.1, oo.BkgNorm.Value)
	assert.Len(t, oo.Models(), 2)

	hawc, _ := ds.Get("hawc")
	pts := hawc.(*dataset.FluxPointsDataset).Points()
	require.Len(t, pts, 3)
	assert.Equal(t, 7e-13, pts[0].ErrN)
	assert.Equal(t, 7e-13, pts[0].ErrP)
	assert.Equal(t, 2e-14, pts[1].ErrP)
	assert.True(t, pts[2].UL)

	// one crab amplitude across all three
	crab, _ := ms.Get("crab")
	for _, d := range ds.All() {
		assert.Same(t, crab, d.Models()[0], d.Name())
		_, err := d.Stat()
		assert.NoError(t, err, d.Name())
	}
	set, err := ds.Parameters()
	require.NoError(t, err)
	for _, l := range []string{"lat.tilt", "hess.norm", "nebula.alpha"} {
		_, ok := set.Lookup(l)
		assert.True(t, ok, l)
	}
}

func TestLoadDatasetsErrors(t *testing.T) {
	_, err := loader.LoadDatasets("testdata/bad_datasets.yaml", loadModels(t))
	require.Error(t, err)
	var merr *multierror.Error
	require.True(t, errors.As(err, &merr))
	assert.Len(t, merr.Errors, 4)
	for _, name := range []string{"lat", "hess", "veritas", "hawc"} {
		assert.Contains(t, err.Error(), "dataset "+name)
	}
	assert.True(t, errors.Is(err, loader.ErrUnknownModel))
	assert.True(t, errors.Is(err, loader.ErrUnknownType))
	assert.True(t, errors.Is(err, dataset.ErrValidation))
	assert.Contains(t, err.Error(), "pulsar")

	_, err = loader.LoadDatasets("testdata/missing.yaml", loadModels(t))
	assert.Error(t, err)
}

func TestRoundTrip(t *testing.T) {
	ms := loadModels(t)
	ds, err := loader.LoadDatasets("testdata/datasets.yaml", ms)
	require.NoError(t, err)

	var mb bytes.Buffer
	require.NoError(t, loader.WriteModels(&mb, ms, map[string]float64{"crab.amplitude": 2e-12}))
	assert.Contains(t, mb.String(), "error: 2e-12")
	assert.Contains(t, mb.String(), "cache: 1m0s")
	ms2, err := loader.ReadModels(bytes.NewReader(mb.Bytes()))
	require.NoError(t, err, mb.String())
	for _, m := range ms.All() {
		m2, ok := ms2.Get(m.Name)
		require.True(t, ok)
		assert.Equal(t, m.Spectral.Type(), m2.Spectral.Type())
		p2 := m2.Parameters()
		for i, p := range m.Parameters() {
			assert.Equal(t, p.String(), p2[i].String())
		}
	}

	var db bytes.Buffer
	require.NoError(t, loader.WriteDatasets(&db, ds, nil))
	ds2, err := loader.ReadDatasets(bytes.NewReader(db.Bytes()), ms2)
	require.NoError(t, err, db.String())
	assert.Equal(t, ds.Names(), ds2.Names())
	for _, d := range ds.All() {
		d2, _ := ds2.Get(d.Name())
		assert.Equal(t, d.Kind(), d2.Kind())
		assert.Equal(t, d.Counts(), d2.Counts(), d.Name())
		s, err := d.Stat()
		require.NoError(t, err)
		s2, err := d2.Stat()
		require.NoError(t, err)
		assert.InEpsilon(t, s, s2, 1e-9, d.Name())
	}
	oo, _ := ds2.Get("hess")
	assert.Equal(t, 1.1, oo.(*dataset.OnOffDataset).BkgNorm.Value)
}
