// Public domain.

// Package conf reads the jointfit configuration.
//
// Values come from, in increasing precedence, built in defaults, an
// optional YAML file, and JOINTFIT_ environment variables.  Nested keys
// map to variables with dots replaced by underscores, so fit.method is
// JOINTFIT_FIT_METHOD.
package conf

import (
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/spf13/viper"
	xrand "golang.org/x/exp/rand"

	"github.com/tunbehaun273/Multi-instrument-tutorial/internal/fit"
	"github.com/tunbehaun273/Multi-instrument-tutorial/internal/fluxpoints"
	"github.com/tunbehaun273/Multi-instrument-tutorial/internal/logging"
)

// EnvPrefix prefixes environment variable names.
const EnvPrefix = "JOINTFIT"

// Config is the complete run configuration.
type Config struct {
	Models      string             `mapstructure:"models"`
	Datasets    string             `mapstructure:"datasets"`
	Output      string             `mapstructure:"output"`
	MetricsFile string             `mapstructure:"metrics_file"`
	Fit         fit.Options        `mapstructure:"fit"`
	FluxPoints  fluxpoints.Options `mapstructure:"fluxpoints"`
	Simulate    Simulate           `mapstructure:"simulate"`
	Log         logging.Config     `mapstructure:"log"`
}

// Simulate configures simulated datasets.
type Simulate struct {
	// With Repeatable every run draws the same data from Seed.
	// Otherwise the seed is taken from the clock.
	Repeatable bool   `mapstructure:"repeatable"`
	Seed       uint64 `mapstructure:"seed"`
}

// Source returns the random source simulations draw from.
func (s Simulate) Source() xrand.Source {
	src := &xrand.PCGSource{}
	if s.Repeatable {
		src.Seed(s.Seed)
	} else {
		src.Seed(uint64(time.Now().UnixNano()))
	}
	return src
}

func setDefaults(v *viper.Viper) {
	fo := fit.DefaultOptions()
	v.SetDefault("models", "")
	v.SetDefault("datasets", "")
	v.SetDefault("output", "")
	v.SetDefault("metrics_file", "")

	v.SetDefault("fit.method", fo.Method)
	v.SetDefault("fit.tolerance", fo.Tolerance)
	v.SetDefault("fit.max_iter", fo.MaxIter)
	v.SetDefault("fit.max_eval", fo.MaxEval)
	v.SetDefault("fit.restarts", fo.Restarts)
	v.SetDefault("fit.simplex_size", fo.SimplexSize)
	v.SetDefault("fit.covariance", fo.Covariance)
	v.SetDefault("fit.step", fo.Step)

	fp := fluxpoints.DefaultOptions()
	v.SetDefault("fluxpoints.edges", []float64{})
	v.SetDefault("fluxpoints.source", "")
	v.SetDefault("fluxpoints.sqrt_ts_threshold", fp.SqrtTSThreshold)
	v.SetDefault("fluxpoints.n_sigma", fp.NSigma)
	v.SetDefault("fluxpoints.n_sigma_ul", fp.NSigmaUL)
	v.SetDefault("fluxpoints.norm_max", fp.NormMax)
	v.SetDefault("fluxpoints.reoptimize", fp.Reoptimize)
	v.SetDefault("fluxpoints.workers", fp.Workers)

	v.SetDefault("simulate.repeatable", true)
	v.SetDefault("simulate.seed", 3)

	v.SetDefault("log.level", "info")
	v.SetDefault("log.format", "console")
}

// New returns a viper instance with defaults and environment binding,
// and the file at path, if not empty, merged in.
func New(path string) (*viper.Viper, error) {
	v := viper.New()
	setDefaults(v)
	v.SetEnvPrefix(EnvPrefix)
	v.SetEnvKeyReplacer(strings.NewReplacer(".", "_"))
	v.AutomaticEnv()
	if path != "" {
		v.SetConfigFile(path)
		v.SetConfigType("yaml")
		if err := v.ReadInConfig(); err != nil {
			return nil, fmt.Errorf("conf: reading %s: %w", path, err)
		}
	}
	return v, nil
}

// Load reads the configuration at path.  An empty path gives defaults
// with environment overrides.
func Load(path string) (*Config, error) {
	v, err := New(path)
	if err != nil {
		return nil, err
	}
	return Decode(v)
}

// Decode unmarshals and validates the configuration held by v.
func Decode(v *viper.Viper) (*Config, error) {
	var c Config
	if err := v.Unmarshal(&c); err != nil {
		return nil, fmt.Errorf("conf: %w", err)
	}
	if err := c.Validate(); err != nil {
		return nil, err
	}
	return &c, nil
}

// Validate checks values that can be checked without data.
func (c *Config) Validate() error {
	if err := c.Fit.Validate(); err != nil {
		return fmt.Errorf("conf: %w", err)
	}
	switch {
	case c.FluxPoints.Workers < 1:
		return errors.New("conf: fluxpoints.workers must be at least 1")
	case !(c.FluxPoints.NSigma > 0) || !(c.FluxPoints.NSigmaUL > 0):
		return errors.New("conf: fluxpoints n_sigma values must be positive")
	}
	return nil
}

// FluxPointOptions returns the flux point options with the fit options
// of c.
func (c *Config) FluxPointOptions() fluxpoints.Options {
	o := c.FluxPoints
	o.Fit = c.Fit
	return o
}
