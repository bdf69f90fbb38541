// Public domain.

// Package fit minimizes a joint statistic over a parameter set and
// estimates the covariance at the minimum.
package fit

import (
	"errors"
	"math"
	"time"

	"github.com/google/uuid"
	"go.uber.org/zap"
	"gonum.org/v1/gonum/diff/fd"
	"gonum.org/v1/gonum/optimize"

	"github.com/tunbehaun273/Multi-instrument-tutorial/internal/dataset"
	"github.com/tunbehaun273/Multi-instrument-tutorial/internal/logging"
	"github.com/tunbehaun273/Multi-instrument-tutorial/internal/param"
)

// Fitter runs fits with fixed options.  A Fitter holds no fit state and
// may be shared; it is the parameter set that is exclusive to a fit.
type Fitter struct {
	opt Options
	log *zap.Logger
}

// New returns a fitter.  Invalid options are an error.
func New(opt Options) (*Fitter, error) {
	if err := opt.Validate(); err != nil {
		return nil, err
	}
	return &Fitter{opt: opt, log: logging.OrNop(opt.Logger)}, nil
}

// Options returns the options of f.
func (f *Fitter) Options() Options { return f.opt }

// Run fits the joint statistic of ds over their joint parameter set.
func (f *Fitter) Run(ds *dataset.Datasets) (*Result, error) {
	set, err := ds.Parameters()
	if err != nil {
		return nil, err
	}
	return f.Optimize(set, NewJointCost(ds.All(), f.opt.Metrics))
}

// Optimize minimizes cost over the free parameters of set.
//
// On return the parameters hold the best point found, whatever the
// status.  The best point is never worse than the initial point.  An
// error is returned only for invalid input or when cost fails; in the
// latter case the Result, with status Failed, is returned as well.
func (f *Fitter) Optimize(set *param.Set, cost Cost) (*Result, error) {
	if err := set.Acquire(); err != nil {
		return nil, err
	}
	defer set.Release()
	return f.optimize(set, cost)
}

// optimize is Optimize for a set the caller has already acquired.
func (f *Fitter) optimize(set *param.Set, cost Cost) (*Result, error) {
	if err := set.Validate(); err != nil {
		return nil, err
	}
	start := time.Now()
	w := &workspace{
		opt:   f.opt,
		set:   set,
		cost:  cost,
		tr:    param.NewTransform(set.Free()),
		runID: uuid.NewString(),
	}
	log := f.log.With(zap.String("run_id", w.runID))
	init, err := cost.Eval()
	w.nEval++
	if err != nil {
		return nil, err
	}
	log.Info("fit started",
		zap.String("method", f.opt.Method),
		zap.Int("free", w.tr.Dim()),
		zap.Float64("stat", init))
	w.init = init
	w.bestF = init
	w.bestU = w.tr.Internal()

	status, msg := Converged, ""
	if w.tr.Dim() > 0 {
		status, msg = w.minimize(log)
	}
	// always leave parameters at the best evaluated point
	w.tr.Apply(w.bestU)

	var r *Result
	if w.err != nil {
		r = w.result(Failed, w.err.Error(), nil, start)
	} else {
		var errs map[string]float64
		if f.opt.Covariance && w.tr.Dim() > 0 {
			errs, err = w.covariance()
			w.tr.Apply(w.bestU)
			switch {
			case errors.Is(err, errSingular):
				if status == Converged {
					status = SingularHessian
				}
				msg = err.Error()
			case err != nil:
				w.err = err
				status, msg = Failed, err.Error()
			}
		}
		r = w.result(status, msg, errs, start)
	}
	f.opt.Metrics.Fit(r.Status.String(), r.Duration)
	log.Info("fit finished",
		zap.Stringer("status", r.Status),
		zap.Float64("stat", r.Stat),
		zap.Int("evaluations", r.NEval),
		zap.Int("iterations", r.NIter),
		zap.Duration("duration", r.Duration))
	return r, w.err
}

// workspace for one fit.
type workspace struct {
	opt   Options
	set   *param.Set
	cost  Cost
	tr    *param.Transform
	runID string

	init  float64
	bestF float64
	bestU []float64
	nEval int
	nIter int
	err   error // first cost error, aborts the fit
	cov   covariance
}

// eval is the optimizer objective.  It tracks the best point and parks
// the first error, returning +Inf from then on.
func (w *workspace) eval(u []float64) float64 {
	if w.err != nil {
		return math.Inf(1)
	}
	w.tr.Apply(u)
	v, err := w.cost.Eval()
	w.nEval++
	if err != nil {
		w.err = err
		return math.Inf(1)
	}
	if math.IsNaN(v) {
		return math.Inf(1)
	}
	if v < w.bestF {
		w.bestF = v
		w.bestU = append(w.bestU[:0], u...)
	}
	return v
}

// minimize runs the method, restarting simplex from the best point while
// that still improves the statistic.
func (w *workspace) minimize(log *zap.Logger) (Status, string) {
	status, msg := Converged, ""
	for run := 0; run <= w.opt.Restarts; run++ {
		before := w.bestF
		settings := &optimize.Settings{
			Converger: &converger{
				w:     w,
				inner: &optimize.FunctionConverge{Absolute: w.opt.Tolerance, Iterations: 20 * (w.tr.Dim() + 1)},
			},
		}
		// a restart only follows a converged run, whose status stands
		// when no budget is left
		if w.opt.MaxIter > 0 {
			if settings.MajorIterations = w.opt.MaxIter - w.nIter; settings.MajorIterations <= 0 {
				if run > 0 {
					return status, msg
				}
				return IterationLimit, "iteration limit"
			}
		}
		if w.opt.MaxEval > 0 {
			if settings.FuncEvaluations = w.opt.MaxEval - w.nEval; settings.FuncEvaluations <= 0 {
				if run > 0 {
					return status, msg
				}
				return IterationLimit, "evaluation limit"
			}
		}
		problem := optimize.Problem{Func: w.eval}
		var method optimize.Method
		switch w.opt.Method {
		case LBFGS:
			settings.GradientThreshold = math.Sqrt(w.opt.Tolerance)
			grad := &fd.Settings{Formula: fd.Central, Step: w.opt.Step}
			problem.Grad = func(g, u []float64) {
				fd.Gradient(g, w.eval, u, grad)
			}
			method = &optimize.LBFGS{}
		default:
			method = &optimize.NelderMead{SimplexSize: w.opt.SimplexSize}
		}
		res, err := optimize.Minimize(problem, append([]float64(nil), w.bestU...), settings, method)
		if res != nil {
			w.nIter += res.Stats.MajorIterations
		}
		if w.err != nil {
			return Failed, w.err.Error()
		}
		switch {
		case err != nil:
			status, msg = Failed, err.Error()
		case res == nil:
			status, msg = Failed, "no result"
		default:
			status, msg = mapStatus(res.Status)
			if res.Location.F > w.init {
				status, msg = CostIncreased, "optimizer ended above the initial statistic"
			}
		}
		log.Debug("optimizer run",
			zap.Int("run", run),
			zap.Stringer("status", status),
			zap.Float64("stat", w.bestF),
			zap.Float64("improvement", before-w.bestF))
		if status != Converged || w.opt.Method == LBFGS || before-w.bestF < w.opt.Tolerance {
			break
		}
	}
	return status, msg
}

func mapStatus(s optimize.Status) (Status, string) {
	switch s {
	case optimize.Success, optimize.FunctionConvergence, optimize.GradientThreshold,
		optimize.StepConvergence, optimize.FunctionThreshold, optimize.MethodConverge:
		return Converged, ""
	case optimize.IterationLimit, optimize.FunctionEvaluationLimit,
		optimize.GradientEvaluationLimit, optimize.RuntimeLimit:
		return IterationLimit, s.String()
	}
	return Failed, s.String()
}

var _ optimize.Converger = (*converger)(nil)

// converger ends a run as soon as the cost has failed.
type converger struct {
	w     *workspace
	inner optimize.Converger
}

func (c *converger) Init(dim int) { c.inner.Init(dim) }

func (c *converger) Converged(l *optimize.Location) optimize.Status {
	if c.w.err != nil {
		return optimize.Failure
	}
	return c.inner.Converged(l)
}

func (w *workspace) result(s Status, msg string, errs map[string]float64, start time.Time) *Result {
	stat := w.bestF
	r := &Result{
		RunID:     w.runID,
		Method:    w.opt.Method,
		Status:    s,
		Message:   msg,
		InitStat:  w.init,
		Stat:      stat,
		NEval:     w.nEval,
		NIter:     w.nIter,
		Duration:  time.Since(start),
		Params:    w.set.Snapshot(errs),
		FreeLabel: w.set.FreeLabels(),
	}
	if w.cov.m != nil {
		r.cov = w.cov.m
	}
	return r
}
