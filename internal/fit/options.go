// Public domain.

package fit

import (
	"fmt"

	"go.uber.org/zap"

	"github.com/tunbehaun273/Multi-instrument-tutorial/internal/metrics"
)

// Methods.
const (
	Simplex = "simplex"
	LBFGS   = "lbfgs"
)

// Options control a Fitter.
type Options struct {
	Method string `mapstructure:"method"`
	// Tolerance is the absolute change in statistic below which the fit
	// is considered converged.
	Tolerance float64 `mapstructure:"tolerance"`
	// Cap on optimizer iterations and statistic evaluations, summed over
	// restarts.  Zero is no cap.
	MaxIter int `mapstructure:"max_iter"`
	MaxEval int `mapstructure:"max_eval"`
	// Restarts of the simplex from its best point.
	Restarts int `mapstructure:"restarts"`
	// Initial simplex size in optimizer units.
	SimplexSize float64 `mapstructure:"simplex_size"`
	Covariance  bool    `mapstructure:"covariance"`
	// Finite difference step for the Hessian and gradients, optimizer
	// units.
	Step float64 `mapstructure:"step"`

	Logger  *zap.Logger       `mapstructure:"-"`
	Metrics *metrics.Recorder `mapstructure:"-"`
}

// DefaultOptions returns the defaults used by the jointfit command.
func DefaultOptions() Options {
	return Options{
		Method:      Simplex,
		Tolerance:   1e-5,
		MaxIter:     10000,
		MaxEval:     50000,
		Restarts:    2,
		SimplexSize: 0.5,
		Covariance:  true,
		Step:        1e-3,
	}
}

// Validate checks option values.
func (o *Options) Validate() error {
	switch {
	case o.Method != Simplex && o.Method != LBFGS:
		return fmt.Errorf("fit: unknown method %q", o.Method)
	case !(o.Tolerance > 0):
		return fmt.Errorf("fit: tolerance %g", o.Tolerance)
	case o.MaxIter < 0 || o.MaxEval < 0 || o.Restarts < 0:
		return fmt.Errorf("fit: negative limit")
	case !(o.SimplexSize > 0) || !(o.Step > 0):
		return fmt.Errorf("fit: simplex size and step must be positive")
	}
	return nil
}
