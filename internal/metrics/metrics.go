// Public domain.

// Package metrics instruments fits with prometheus metrics.
//
// A nil *Recorder is valid and records nothing, so library code can take
// one unconditionally.
package metrics

import (
	"time"

	"github.com/prometheus/client_golang/prometheus"
)

// Recorder holds the fit metrics and the registry they are registered in.
type Recorder struct {
	registry *prometheus.Registry

	evalsTotal      *prometheus.CounterVec
	fitsTotal       *prometheus.CounterVec
	fitDuration     prometheus.Histogram
	fluxPointsTotal *prometheus.CounterVec
}

// New returns a recorder registered in a fresh registry.
func New() (*Recorder, error) {
	return NewWithRegistry(prometheus.NewRegistry())
}

// NewWithRegistry returns a recorder registered in reg.
func NewWithRegistry(reg *prometheus.Registry) (*Recorder, error) {
	r := &Recorder{
		registry: reg,
		evalsTotal: prometheus.NewCounterVec(
			prometheus.CounterOpts{
				Name: "jointfit_stat_evaluations_total",
				Help: "Number of statistic evaluations per dataset",
			},
			[]string{"dataset", "kind"},
		),
		fitsTotal: prometheus.NewCounterVec(
			prometheus.CounterOpts{
				Name: "jointfit_fits_total",
				Help: "Number of completed fits by status",
			},
			[]string{"status"},
		),
		fitDuration: prometheus.NewHistogram(
			prometheus.HistogramOpts{
				Name: "jointfit_fit_duration_seconds",
				Help: "Wall time of fits",
				// 1ms to about 65s
				Buckets: prometheus.ExponentialBuckets(0.001, 2, 17),
			},
		),
		fluxPointsTotal: prometheus.NewCounterVec(
			prometheus.CounterOpts{
				Name: "jointfit_flux_points_total",
				Help: "Number of flux points estimated by outcome",
			},
			[]string{"outcome"}, // detected, upper_limit, empty, failed
		),
	}
	for _, c := range []prometheus.Collector{r.evalsTotal, r.fitsTotal, r.fitDuration, r.fluxPointsTotal} {
		if err := reg.Register(c); err != nil {
			return nil, err
		}
	}
	return r, nil
}

// Registry returns the registry the metrics are registered in.
func (r *Recorder) Registry() *prometheus.Registry {
	if r == nil {
		return nil
	}
	return r.registry
}

// Eval counts one statistic evaluation.
func (r *Recorder) Eval(dataset, kind string) {
	if r == nil {
		return
	}
	r.evalsTotal.WithLabelValues(dataset, kind).Inc()
}

// Fit records a finished fit.
func (r *Recorder) Fit(status string, d time.Duration) {
	if r == nil {
		return
	}
	r.fitsTotal.WithLabelValues(status).Inc()
	r.fitDuration.Observe(d.Seconds())
}

// FluxPoint counts one estimated flux point.
func (r *Recorder) FluxPoint(outcome string) {
	if r == nil {
		return
	}
	r.fluxPointsTotal.WithLabelValues(outcome).Inc()
}

// Evals returns the counter for the given labels, for tests and reports.
func (r *Recorder) Evals(dataset, kind string) prometheus.Counter {
	return r.evalsTotal.WithLabelValues(dataset, kind)
}

// FluxPoints returns the flux point counter of outcome.
func (r *Recorder) FluxPoints(outcome string) prometheus.Counter {
	return r.fluxPointsTotal.WithLabelValues(outcome)
}

// WriteFile writes all metrics to path in the text exposition format.
func (r *Recorder) WriteFile(path string) error {
	if r == nil {
		return nil
	}
	return prometheus.WriteToTextfile(path, r.registry)
}
