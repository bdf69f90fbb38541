// Public domain.

package fluxpoints_test

import (
	"context"
	"errors"
	"math"
	"testing"

	"github.com/prometheus/client_golang/prometheus/testutil"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/goleak"

	"github.com/tunbehaun273/Multi-instrument-tutorial/internal/dataset"
	"github.com/tunbehaun273/Multi-instrument-tutorial/internal/fit"
	"github.com/tunbehaun273/Multi-instrument-tutorial/internal/fluxpoints"
	"github.com/tunbehaun273/Multi-instrument-tutorial/internal/metrics"
	"github.com/tunbehaun273/Multi-instrument-tutorial/internal/model"
	"github.com/tunbehaun273/Multi-instrument-tutorial/internal/model/spatial"
	"github.com/tunbehaun273/Multi-instrument-tutorial/internal/model/spectral"
)

func TestMain(m *testing.M) {
	goleak.VerifyTestMain(m)
}

var edges = dataset.Edges{0.5, 1.166, 2.714, 6.324, 14.74, 34.34, 80}

func source() *model.SkyModel {
	ps := spatial.NewPointSource(83.63, 22.01)
	ps.Lon.Frozen = true
	ps.Lat.Frozen = true
	return model.New("src", spectral.NewPowerLaw(1e-11, 2.5, 1), ps)
}

// onOff returns a profiled on/off dataset whose counts are the rounded
// expectation of src over a background of 5 counts per bin.  Bins in
// quiet hold background only.
func onOff(t *testing.T, src *model.SkyModel, quiet ...int) *dataset.OnOffDataset {
	n := edges.N()
	d := &dataset.OnOffData{
		Edges:    edges,
		NOn:      make([]float64, n),
		NOff:     make([]float64, n),
		Alpha:    make([]float64, n),
		Exposure: make([]float64, n),
	}
	for i := 0; i < n; i++ {
		d.NOff[i], d.Alpha[i], d.Exposure[i] = 50, 0.1, 1e13
	}
	ms := []*model.SkyModel{src}
	proto, err := dataset.NewOnOffDataset("hess", d, ms, dataset.Profiled)
	require.NoError(t, err)
	for i, s := range proto.NpredSignal() {
		d.NOn[i] = math.Round(s + 5)
	}
	for _, i := range quiet {
		d.NOn[i] = 5
	}
	oo, err := dataset.NewOnOffDataset("hess", d, ms, dataset.Profiled)
	require.NoError(t, err)
	return oo
}

func jointFit(t *testing.T, d dataset.Dataset) *fit.Result {
	ds, err := dataset.New(d)
	require.NoError(t, err)
	f, err := fit.New(fit.DefaultOptions())
	require.NoError(t, err)
	r, err := f.Run(ds)
	require.NoError(t, err)
	require.True(t, r.Success(), r.Message)
	return r
}

func options(rec *metrics.Recorder) fluxpoints.Options {
	o := fluxpoints.DefaultOptions()
	o.Edges = []float64{edges[0], edges[2], edges[4], edges[6]}
	o.Source = "src"
	o.Metrics = rec
	return o
}

func TestRun(t *testing.T) {
	src := source()
	d := onOff(t, src)
	best := jointFit(t, d)
	amp := src.Spectral.Parameters()[0].Value
	rec, err := metrics.New()
	require.NoError(t, err)
	e, err := fluxpoints.New(options(rec))
	require.NoError(t, err)
	pts, err := e.Run(context.Background(), d, best)
	require.NoError(t, err)
	require.Len(t, pts, 3)

	p := pts[0]
	assert.False(t, p.Empty)
	assert.False(t, p.UL)
	assert.Equal(t, fit.Converged, p.Status)
	assert.InDelta(t, math.Sqrt(edges[0]*edges[2]), p.ERef, 1e-12)
	assert.InDelta(t, 1, p.Norm, 0.2)
	assert.Greater(t, p.SqrtTS, 5.)
	assert.Greater(t, p.NormErrN, 0.)
	assert.Greater(t, p.NormErrP, 0.)
	assert.Greater(t, p.NormUL, p.Norm+p.NormErrP)
	// the profile errors agree with the covariance error to first order
	assert.InEpsilon(t, p.NormErr, (p.NormErrN+p.NormErrP)/2, 0.3)
	ref := spectral.NewPowerLaw(amp, src.Spectral.Parameters()[1].Value, 1).DNDE(p.ERef)
	assert.InEpsilon(t, p.Norm*ref, p.DNDE, 1e-9)
	assert.InEpsilon(t, p.NormUL*ref, p.DNDEUL, 1e-9)
	assert.Equal(t, d.Counts()[0]+d.Counts()[1], p.Counts)

	// the joint fit models are untouched
	assert.Equal(t, amp, src.Spectral.Parameters()[0].Value)
	assert.IsType(t, &spectral.PowerLaw{}, src.Spectral)
	var n float64
	for _, o := range []string{"detected", "upper_limit", "empty", "failed"} {
		n += testutil.ToFloat64(rec.FluxPoints(o))
	}
	assert.Equal(t, 3., n)
	for _, p := range pts {
		t.Logf("%6.2f %.3f -%.3f +%.3f ts %.1f", p.ERef, p.Norm, p.NormErrN, p.NormErrP, p.TS)
	}
}

func TestUpperLimit(t *testing.T) {
	src := source()
	d := onOff(t, src, 4, 5)
	best := jointFit(t, d)
	rec, err := metrics.New()
	require.NoError(t, err)
	e, err := fluxpoints.New(options(rec))
	require.NoError(t, err)
	pts, err := e.Run(context.Background(), d, best)
	require.NoError(t, err)
	p := pts[2]
	assert.True(t, p.UL)
	assert.Less(t, p.SqrtTS, 2.)
	assert.Greater(t, p.NormUL, 0.)
	assert.GreaterOrEqual(t, p.Norm, 0.)
	assert.Equal(t, 1., testutil.ToFloat64(rec.FluxPoints("upper_limit")))
}

// Changing the data of one interval changes no other interval.
func TestIntervalIndependence(t *testing.T) {
	src := source()
	a := onOff(t, src)
	best := jointFit(t, a)
	b := onOff(t, src, 4, 5)
	e, err := fluxpoints.New(options(nil))
	require.NoError(t, err)
	pa, err := e.Run(context.Background(), a, best)
	require.NoError(t, err)
	pb, err := e.Run(context.Background(), b, best)
	require.NoError(t, err)
	for i := 0; i < 2; i++ {
		assert.Equal(t, pa[i].Norm, pb[i].Norm, i)
		assert.Equal(t, pa[i].TS, pb[i].TS, i)
		assert.Equal(t, pa[i].NormErrP, pb[i].NormErrP, i)
		assert.Equal(t, pa[i].NormUL, pb[i].NormUL, i)
		assert.Equal(t, pa[i].Stat, pb[i].Stat, i)
	}
	assert.NotEqual(t, pa[2].Norm, pb[2].Norm)
}

func TestEmptyInterval(t *testing.T) {
	src := source()
	d := onOff(t, src)
	best := jointFit(t, d)
	rec, err := metrics.New()
	require.NoError(t, err)
	o := options(rec)
	o.Edges = []float64{0.5, 2.714, 100, 200}
	e, err := fluxpoints.New(o)
	require.NoError(t, err)
	pts, err := e.Run(context.Background(), d, best)
	require.NoError(t, err)
	require.Len(t, pts, 3)
	assert.False(t, pts[0].Empty)
	assert.True(t, pts[2].Empty)
	assert.True(t, math.IsNaN(pts[2].Norm))
	assert.True(t, math.IsNaN(pts[2].DNDE))
	assert.Equal(t, 1., testutil.ToFloat64(rec.FluxPoints("empty")))
}

func TestCancelled(t *testing.T) {
	src := source()
	d := onOff(t, src)
	best := jointFit(t, d)
	e, err := fluxpoints.New(options(nil))
	require.NoError(t, err)
	ctx, cancel := context.WithCancel(context.Background())
	cancel()
	_, err = e.Run(ctx, d, best)
	assert.True(t, errors.Is(err, context.Canceled))
}

func TestOptions(t *testing.T) {
	o := options(nil)
	o.Source = ""
	_, err := fluxpoints.New(o)
	assert.Error(t, err)
	o = options(nil)
	o.Edges = []float64{1}
	_, err = fluxpoints.New(o)
	assert.Error(t, err)
	o = options(nil)
	o.Workers = 0
	_, err = fluxpoints.New(o)
	assert.Error(t, err)

	o = options(nil)
	o.Source = "nebula"
	e, err := fluxpoints.New(o)
	require.NoError(t, err)
	src := source()
	d := onOff(t, src)
	_, err = e.Run(context.Background(), d, jointFit(t, d))
	assert.Error(t, err)
}
