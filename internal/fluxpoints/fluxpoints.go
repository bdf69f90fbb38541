// Public domain.

// Package fluxpoints derives flux points from one dataset of a joint fit.
//
// For each energy interval the dataset is restricted to the interval, all
// model shape parameters are frozen at the joint best fit and the source
// spectrum is scaled by a single free norm.  Fitting the norm gives one
// flux measurement per interval.  Such points are for plotting and
// residual checks; they are not independent data to refit.
package fluxpoints

import (
	"context"
	"errors"
	"fmt"
	"math"

	"go.uber.org/zap"
	"golang.org/x/sync/errgroup"

	"github.com/tunbehaun273/Multi-instrument-tutorial/internal/dataset"
	"github.com/tunbehaun273/Multi-instrument-tutorial/internal/fit"
	"github.com/tunbehaun273/Multi-instrument-tutorial/internal/logging"
	"github.com/tunbehaun273/Multi-instrument-tutorial/internal/metrics"
	"github.com/tunbehaun273/Multi-instrument-tutorial/internal/model"
	"github.com/tunbehaun273/Multi-instrument-tutorial/internal/model/spectral"
	"github.com/tunbehaun273/Multi-instrument-tutorial/internal/param"
)

// Options configure an Estimator.
type Options struct {
	// Edges are N+1 energy edges, TeV, of the N intervals.
	Edges  []float64 `mapstructure:"edges"`
	Source string    `mapstructure:"source"`
	// Below this sqrt(TS) a point is reported as an upper limit.
	SqrtTSThreshold float64 `mapstructure:"sqrt_ts_threshold"`
	NSigma          float64 `mapstructure:"n_sigma"`
	NSigmaUL        float64 `mapstructure:"n_sigma_ul"`
	NormMax         float64 `mapstructure:"norm_max"`
	// Reoptimize refits free nuisance parameters at every norm.
	Reoptimize bool `mapstructure:"reoptimize"`
	Workers    int  `mapstructure:"workers"`

	Fit     fit.Options       `mapstructure:"-"`
	Logger  *zap.Logger       `mapstructure:"-"`
	Metrics *metrics.Recorder `mapstructure:"-"`
}

// DefaultOptions returns default options without edges or source.
func DefaultOptions() Options {
	return Options{
		SqrtTSThreshold: 2,
		NSigma:          1,
		NSigmaUL:        2,
		NormMax:         1000,
		Workers:         4,
		Fit:             fit.DefaultOptions(),
	}
}

// Point is the flux measured in one interval.
//
// Norm values are relative to the joint best fit spectrum.  DNDE values
// are at ERef, the geometric centre of the interval.  NormErr is from
// the covariance; NormErrN and NormErrP are from the statistic profile.
type Point struct {
	EMin, EMax, ERef float64

	Norm, NormErr, NormErrN, NormErrP, NormUL float64
	DNDE, DNDEErr, DNDEErrN, DNDEErrP, DNDEUL float64
	TS, SqrtTS                                float64

	Counts float64 // observed counts, NaN for flux point datasets
	Stat   float64 // statistic at best norm
	UL     bool    // SqrtTS below threshold
	Empty  bool    // no bins in the interval
	Status fit.Status
}

func emptyPoint(lo, hi float64) Point {
	n := math.NaN()
	return Point{
		EMin: lo, EMax: hi, ERef: math.Sqrt(lo * hi),
		Norm: n, NormErr: n, NormErrN: n, NormErrP: n, NormUL: n,
		DNDE: n, DNDEErr: n, DNDEErrN: n, DNDEErrP: n, DNDEUL: n,
		TS: n, SqrtTS: n, Counts: n, Stat: n,
		Empty: true, Status: fit.Failed,
	}
}

// Estimator computes flux points.  It holds no per-run state.
type Estimator struct {
	opt    Options
	fitter *fit.Fitter
	log    *zap.Logger
}

// New validates opt and returns an estimator.
func New(opt Options) (*Estimator, error) {
	if err := dataset.Edges(opt.Edges).Validate(); err != nil {
		return nil, fmt.Errorf("fluxpoints: %w", err)
	}
	switch {
	case opt.Source == "":
		return nil, errors.New("fluxpoints: no source")
	case !(opt.NSigma > 0) || !(opt.NSigmaUL > 0):
		return nil, errors.New("fluxpoints: n sigma must be positive")
	case !(opt.NormMax > 1):
		return nil, fmt.Errorf("fluxpoints: norm max %g", opt.NormMax)
	case opt.Workers < 1:
		return nil, fmt.Errorf("fluxpoints: %d workers", opt.Workers)
	}
	fo := opt.Fit
	fo.Logger = opt.Logger
	fo.Metrics = opt.Metrics
	fo.Covariance = true
	f, err := fit.New(fo)
	if err != nil {
		return nil, err
	}
	return &Estimator{opt: opt, fitter: f, log: logging.OrNop(opt.Logger)}, nil
}

// Run estimates one point per interval of d.  best is the joint fit
// result the model parameters are taken from; it is only read.
//
// Intervals run in parallel.  Each works on its own clone of the models
// and nuisance parameters and writes only its own element of the result.
func (e *Estimator) Run(ctx context.Context, d dataset.Dataset, best *fit.Result) ([]Point, error) {
	if !hasModel(d.Models(), e.opt.Source) {
		return nil, fmt.Errorf("fluxpoints: dataset %s has no model %s", d.Name(), e.opt.Source)
	}
	edges := dataset.Edges(e.opt.Edges)
	pts := make([]Point, edges.N())
	g, gctx := errgroup.WithContext(ctx)
	g.SetLimit(e.opt.Workers)
	for i := range pts {
		if gctx.Err() != nil {
			break
		}
		i := i
		g.Go(func() error {
			if err := gctx.Err(); err != nil {
				return err
			}
			lo, hi := edges.Bin(i)
			p, err := e.point(d, best, lo, hi)
			if err != nil {
				e.opt.Metrics.FluxPoint("failed")
				return fmt.Errorf("fluxpoints: interval %d [%g, %g): %w", i, lo, hi, err)
			}
			pts[i] = p
			e.opt.Metrics.FluxPoint(outcome(p))
			return nil
		})
	}
	if err := g.Wait(); err != nil {
		return nil, err
	}
	if err := ctx.Err(); err != nil {
		return nil, err
	}
	return pts, nil
}

func outcome(p Point) string {
	switch {
	case p.Empty:
		return "empty"
	case p.UL:
		return "upper_limit"
	}
	return "detected"
}

func hasModel(ms []*model.SkyModel, name string) bool {
	for _, m := range ms {
		if m.Name == name {
			return true
		}
	}
	return false
}

// interval is the workspace of one interval fit.
type interval struct {
	e     *Estimator
	set   *param.Set
	cost  fit.Cost
	norm  *param.Parameter
	label string
	best  float64 // statistic at the best norm
}

func (e *Estimator) point(d dataset.Dataset, best *fit.Result, lo, hi float64) (Point, error) {
	sl, ok := d.SliceByEnergy(lo, hi)
	if !ok {
		return emptyPoint(lo, hi), nil
	}
	values := best.Values()
	ms := make([]*model.SkyModel, len(sl.Models()))
	var src *model.SkyModel
	for i, m := range sl.Models() {
		c := m.Clone()
		for _, p := range c.Parameters() {
			if v, ok := values[c.Name+"."+p.Name]; ok {
				p.Value = v
			}
			p.Frozen = true
		}
		if c.Name == e.opt.Source {
			src = c
		}
		ms[i] = c
	}
	sl = sl.WithModels(ms)
	for _, p := range sl.Nuisance() {
		if v, ok := values[sl.Name()+"."+p.Name]; ok {
			p.Value = v
		}
		if !e.opt.Reoptimize {
			p.Frozen = true
		}
	}
	eref := math.Sqrt(lo * hi)
	ref := src.Spectral.DNDE(eref)
	scaled := spectral.NewScaled(src.Spectral, e.opt.NormMax)
	src.Spectral = scaled

	ds, err := dataset.New(sl)
	if err != nil {
		return Point{}, err
	}
	set, err := ds.Parameters()
	if err != nil {
		return Point{}, err
	}
	label := src.Name + "." + scaled.Norm.Name
	iv := &interval{
		e:     e,
		set:   set,
		cost:  fit.NewJointCost(ds.All(), e.opt.Metrics),
		norm:  scaled.Norm,
		label: label,
	}
	r, err := e.fitter.Optimize(set, iv.cost)
	if err != nil {
		return Point{}, err
	}
	iv.best = r.Stat
	nv, _ := r.Value(label)

	p := Point{
		EMin: lo, EMax: hi, ERef: eref,
		Norm: nv.Value, NormErr: nv.Error,
		Stat: r.Stat, Status: r.Status,
		Counts: math.NaN(),
	}
	if sl.Kind() != dataset.KindFluxPoints {
		p.Counts = 0
		for _, c := range sl.Counts() {
			p.Counts += c
		}
	}
	stat0, err := iv.statAt(0)
	if err != nil {
		return Point{}, err
	}
	p.TS = stat0 - r.Stat
	p.SqrtTS = math.Sqrt(math.Max(p.TS, 0))
	if p.Norm < 0 {
		p.SqrtTS = -p.SqrtTS
	}
	p.UL = p.SqrtTS < e.opt.SqrtTSThreshold

	step := nv.Error
	if !(step > 0) {
		step = math.Max(0.1*p.Norm, 0.01)
	}
	up, err := iv.crossing(p.Norm, step, e.opt.NSigma)
	if err != nil {
		return Point{}, err
	}
	down, err := iv.crossing(p.Norm, -step, e.opt.NSigma)
	if err != nil {
		return Point{}, err
	}
	ul, err := iv.crossing(p.Norm, step, e.opt.NSigmaUL)
	if err != nil {
		return Point{}, err
	}
	p.NormErrP, p.NormErrN, p.NormUL = up-p.Norm, p.Norm-down, ul

	p.DNDE = p.Norm * ref
	p.DNDEErr = p.NormErr * ref
	p.DNDEErrN = p.NormErrN * ref
	p.DNDEErrP = p.NormErrP * ref
	p.DNDEUL = p.NormUL * ref
	e.log.Debug("flux point",
		zap.Float64("e_ref", eref),
		zap.Float64("norm", p.Norm),
		zap.Float64("ts", p.TS),
		zap.Stringer("status", p.Status))
	return p, nil
}

// statAt returns the statistic with norm fixed at v.
func (iv *interval) statAt(v float64) (float64, error) {
	pr, err := iv.e.fitter.StatProfile(iv.set, iv.cost, iv.label, []float64{v}, iv.e.opt.Reoptimize)
	if err != nil {
		return 0, err
	}
	return pr.Stats[0], nil
}

// crossing returns the norm beyond best, in the direction of step, at
// which the statistic has risen by nsigma^2.  The search stops at the
// norm bounds and returns the bound when the statistic never rises
// that far.
func (iv *interval) crossing(best, step, nsigma float64) (float64, error) {
	target := iv.best + nsigma*nsigma
	f := func(x float64) (float64, error) {
		s, err := iv.statAt(x)
		return s - target, err
	}
	limit := iv.norm.Max
	if step < 0 {
		limit = iv.norm.Min
	}
	// bracket by doubling the step
	a, b := best, best
	for {
		b = a + step
		if (step > 0 && b >= limit) || (step < 0 && b <= limit) {
			b = limit
		}
		fb, err := f(b)
		if err != nil {
			return 0, err
		}
		if fb >= 0 {
			break
		}
		if b == limit {
			return limit, nil
		}
		a, step = b, 2*step
	}
	return bisect(f, a, b)
}

// bisect finds a root of f between a, where f < 0, and b, where f >= 0.
func bisect(f func(float64) (float64, error), a, b float64) (float64, error) {
	for i := 0; i < 60 && math.Abs(b-a) > 1e-6*math.Max(1, math.Abs(b)); i++ {
		m := (a + b) / 2
		fm, err := f(m)
		if err != nil {
			return 0, err
		}
		if fm < 0 {
			a = m
		} else {
			b = m
		}
	}
	return (a + b) / 2, nil
}
