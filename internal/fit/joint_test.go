// Public domain.

package fit_test

import (
	"math"
	"testing"

	"github.com/prometheus/client_golang/prometheus/testutil"
	"github.com/soniakeys/unit"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"golang.org/x/exp/rand"

	"github.com/tunbehaun273/Multi-instrument-tutorial/internal/dataset"
	"github.com/tunbehaun273/Multi-instrument-tutorial/internal/fit"
	"github.com/tunbehaun273/Multi-instrument-tutorial/internal/metrics"
	"github.com/tunbehaun273/Multi-instrument-tutorial/internal/model"
	"github.com/tunbehaun273/Multi-instrument-tutorial/internal/model/spatial"
	"github.com/tunbehaun273/Multi-instrument-tutorial/internal/model/spectral"
	"github.com/tunbehaun273/Multi-instrument-tutorial/internal/param"
)

const trueAmplitude = 1e-11

func crab() *model.SkyModel {
	pl := spectral.NewPowerLaw(trueAmplitude, 2.5, 1)
	pl.Index.Frozen = true
	ps := spatial.NewPointSource(83.63, 22.01)
	ps.Lon.Frozen = true
	ps.Lat.Frozen = true
	return model.New("crab", pl, ps)
}

func logEdges(lo, hi float64, n int) dataset.Edges {
	e := make(dataset.Edges, n+1)
	for i := range e {
		e[i] = lo * math.Pow(hi/lo, float64(i)/float64(n))
	}
	return e
}

func fill(n int, v float64) []float64 {
	s := make([]float64, n)
	for i := range s {
		s[i] = v
	}
	return s
}

// synthetic returns a map, an on/off and a flux point dataset of one
// source, with data drawn from the model at its current values.
func synthetic(t *testing.T, m *model.SkyModel, seed uint64) []dataset.Dataset {
	src := rand.NewSource(seed)
	ms := []*model.SkyModel{m}

	geom := &spatial.Geom{
		Lon0: unit.AngleFromDeg(83.63), Lat0: unit.AngleFromDeg(22.01),
		NX: 5, NY: 5, BinSize: unit.AngleFromDeg(0.1),
	}
	mapEdges := logEdges(0.01, 1, 4)
	g := func(v float64) [][]float64 {
		r := make([][]float64, mapEdges.N())
		for i := range r {
			r[i] = fill(geom.NPix(), v)
		}
		return r
	}
	md, err := dataset.NewMapDataset("lat", &dataset.MapData{
		Geom: geom, Edges: mapEdges,
		Counts: g(0), Background: g(1), Exposure: g(1e11),
	}, ms)
	require.NoError(t, err)

	// the truth has a known background of 5 counts per bin, alpha 0.1
	ooEdges := logEdges(0.5, 10, 8)
	n := ooEdges.N()
	truth, err := dataset.NewOnOffDataset("hess", &dataset.OnOffData{
		Edges: ooEdges, NOn: fill(n, 0), NOff: fill(n, 0),
		Alpha: fill(n, 0.1), Exposure: fill(n, 1e13), Background: fill(n, 5),
	}, ms, dataset.Fixed)
	require.NoError(t, err)

	var pts []dataset.FluxPoint
	for _, e := range []float64{1, 2, 5, 10, 20} {
		f := m.Spectral.DNDE(e)
		pts = append(pts, dataset.FluxPoint{E: e, DNDE: f, ErrN: f / 10, ErrP: f / 10})
	}
	fp, err := dataset.NewFluxPointsDataset("hawc", pts, ms)
	require.NoError(t, err)

	var out []dataset.Dataset
	for _, d := range []dataset.Dataset{md, truth, fp} {
		f, err := dataset.Fake(d, src)
		require.NoError(t, err)
		out = append(out, f)
	}
	// fit the on/off data with the background profiled
	oo := out[1].(*dataset.OnOffDataset)
	out[1], err = dataset.NewOnOffDataset("hess", oo.Data(), ms, dataset.Profiled)
	require.NoError(t, err)
	return out
}

func TestJointCostAdditivity(t *testing.T) {
	rec, err := metrics.New()
	require.NoError(t, err)
	m := crab()
	ds := synthetic(t, m, 7)
	c := fit.NewJointCost(ds, rec)
	for _, amp := range []float64{0.5e-11, 1e-11, 3e-11} {
		m.Spectral.Parameters()[0].Value = amp
		var want float64
		for _, d := range ds {
			s, err := d.Stat()
			require.NoError(t, err)
			want += s
		}
		got, err := c.Eval()
		require.NoError(t, err)
		assert.Equal(t, want, got)

		terms, err := c.Terms()
		require.NoError(t, err)
		require.Len(t, terms, 3)
		assert.Equal(t, dataset.KindMap, terms[0].Kind)
		assert.Equal(t, dataset.KindOnOff, terms[1].Kind)
		assert.Equal(t, dataset.KindFluxPoints, terms[2].Kind)
	}
	// two evaluations per amplitude
	assert.Equal(t, 6., testutil.ToFloat64(rec.Evals("hess", "onoff")))
}

func TestJointCostError(t *testing.T) {
	m := crab()
	ds := synthetic(t, m, 1)
	m.Spectral.Parameters()[0].Value = math.NaN()
	_, err := fit.NewJointCost(ds, nil).Eval()
	assert.ErrorIs(t, err, dataset.ErrInvalidPrediction)
	assert.Contains(t, err.Error(), "lat")
}

// A second fit over a collection a fit already owns is refused, whether
// the collection or its parameter set is handed in.
func TestRunExclusive(t *testing.T) {
	all, err := dataset.New(synthetic(t, crab(), 2)...)
	require.NoError(t, err)
	set, err := all.Parameters()
	require.NoError(t, err)
	again, err := all.Parameters()
	require.NoError(t, err)
	assert.Same(t, set, again)

	f := newFitter(t, fit.Simplex)
	require.NoError(t, set.Acquire())
	_, err = f.Run(all)
	assert.ErrorIs(t, err, param.ErrSetInUse)
	_, err = f.Optimize(again, fit.NewJointCost(all.All(), nil))
	assert.ErrorIs(t, err, param.ErrSetInUse)
	set.Release()

	r, err := f.Run(all)
	require.NoError(t, err)
	assert.True(t, r.Success(), r.Message)
}

// Three datasets of three statistics share one amplitude.  The joint fit
// recovers the amplitude the data were drawn from.
func TestEndToEndRecovery(t *testing.T) {
	for seed := uint64(1); seed <= 5; seed++ {
		m := crab()
		all, err := dataset.New(synthetic(t, m, seed)...)
		require.NoError(t, err)
		amp := m.Spectral.Parameters()[0]
		amp.Value = 2e-11

		rec, err := metrics.New()
		require.NoError(t, err)
		o := fit.DefaultOptions()
		o.Metrics = rec
		f, err := fit.New(o)
		require.NoError(t, err)
		r, err := f.Run(all)
		require.NoError(t, err)
		require.Equal(t, fit.Converged, r.Status, r.Message)
		assert.Equal(t, []string{"crab.amplitude", "lat.norm"}, r.FreeLabel)

		v, ok := r.Value("crab.amplitude")
		require.True(t, ok)
		require.Greater(t, v.Error, 0.)
		assert.Less(t, v.Error/trueAmplitude, 0.2)
		assert.InDelta(t, trueAmplitude, v.Value, 5*v.Error, "seed %d", seed)
		assert.Equal(t, amp.Value, v.Value)

		norm, _ := r.Value("lat.norm")
		assert.InDelta(t, 1, norm.Value, 5*norm.Error, "seed %d", seed)
		assert.Greater(t, testutil.ToFloat64(rec.Evals("hawc", "fluxpoints")), 10.)
		t.Logf("seed %d amplitude %.4g +- %.2g norm %.3f +- %.3f",
			seed, v.Value, v.Error, norm.Value, norm.Error)
	}
}
