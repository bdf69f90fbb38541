// Public domain.

// Package jfprog is the jointfit command.
package jfprog

import (
	"context"
	"errors"
	"fmt"
	"io"
	"os"
	"os/signal"

	"github.com/soniakeys/exit"
	"github.com/spf13/cobra"
	"go.uber.org/zap"

	"github.com/tunbehaun273/Multi-instrument-tutorial/internal/conf"
	"github.com/tunbehaun273/Multi-instrument-tutorial/internal/dataset"
	"github.com/tunbehaun273/Multi-instrument-tutorial/internal/fit"
	"github.com/tunbehaun273/Multi-instrument-tutorial/internal/loader"
	"github.com/tunbehaun273/Multi-instrument-tutorial/internal/logging"
	"github.com/tunbehaun273/Multi-instrument-tutorial/internal/metrics"
	"github.com/tunbehaun273/Multi-instrument-tutorial/internal/model"
)

const versionString = "jointfit version 0.1 Go source."
const copyrightString = "Public domain."

func Main() {
	defer exit.Handler()

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt)
	defer stop()
	if err := NewCommand().ExecuteContext(ctx); err != nil {
		exit.Log(err)
	}
}

// app is the state shared by subcommands, set up before any of them
// runs.
type app struct {
	cfgFile string
	conf    *conf.Config
	log     *zap.Logger
	rec     *metrics.Recorder
}

// flag name to configuration key, for flags overriding the file
var flagKeys = map[string]string{
	"models":       "models",
	"datasets":     "datasets",
	"output":       "output",
	"metrics-file": "metrics_file",
	"log-level":    "log.level",
	"log-format":   "log.format",
	"method":       "fit.method",
	"seed":         "simulate.seed",
}

// NewCommand returns the root command with all subcommands.
func NewCommand() *cobra.Command {
	a := &app{}
	root := &cobra.Command{
		Use:   "jointfit",
		Short: "Joint likelihood fits of heterogeneous gamma-ray datasets",
		Long: `Jointfit fits one set of source models to several datasets at once.
Counts maps are scored with the Cash statistic, on/off spectra with WStat
and flux points with chi-square.  The joint statistic is their sum.`,
		SilenceUsage:       true,
		SilenceErrors:      true,
		PersistentPreRunE:  a.setup,
		PersistentPostRunE: a.teardown,
	}
	pf := root.PersistentFlags()
	pf.StringVar(&a.cfgFile, "config", "", "configuration file (YAML)")
	pf.String("models", "", "model file")
	pf.String("datasets", "", "dataset file")
	pf.String("metrics-file", "", "write metrics to this file in Prometheus text format")
	pf.String("log-level", "", "log level: debug, info, warn, error")
	pf.String("log-format", "", "log format: console or json")
	pf.String("method", "", "fit method: simplex or lbfgs")

	root.AddCommand(
		a.fitCommand(),
		a.fluxPointsCommand(),
		a.residualsCommand(),
		a.simulateCommand(),
		versionCommand(),
	)
	return root
}

func (a *app) setup(cmd *cobra.Command, args []string) error {
	v, err := conf.New(a.cfgFile)
	if err != nil {
		return err
	}
	for name, key := range flagKeys {
		if f := cmd.Flags().Lookup(name); f != nil && f.Changed {
			v.Set(key, f.Value.String())
		}
	}
	if a.conf, err = conf.Decode(v); err != nil {
		return err
	}
	if a.log, err = logging.NewWriter(a.conf.Log, cmd.ErrOrStderr()); err != nil {
		return err
	}
	if a.rec, err = metrics.New(); err != nil {
		return err
	}
	a.conf.Fit.Logger = a.log
	a.conf.Fit.Metrics = a.rec
	return nil
}

func (a *app) teardown(cmd *cobra.Command, args []string) error {
	defer a.log.Sync()
	if a.conf.MetricsFile == "" {
		return nil
	}
	if err := a.rec.WriteFile(a.conf.MetricsFile); err != nil {
		return err
	}
	a.log.Debug("metrics written", zap.String("file", a.conf.MetricsFile))
	return nil
}

// load reads the configured model and dataset files.
func (a *app) load() (*model.Models, *dataset.Datasets, error) {
	switch {
	case a.conf.Models == "":
		return nil, nil, errors.New("no model file, use --models or models in the configuration")
	case a.conf.Datasets == "":
		return nil, nil, errors.New("no dataset file, use --datasets or datasets in the configuration")
	}
	ms, err := loader.LoadModels(a.conf.Models)
	if err != nil {
		return nil, nil, err
	}
	ds, err := loader.LoadDatasets(a.conf.Datasets, ms)
	if err != nil {
		return nil, nil, err
	}
	a.log.Info("loaded",
		zap.Strings("models", ms.Names()),
		zap.Strings("datasets", ds.Names()))
	return ms, ds, nil
}

// fit runs the joint fit of ds.  Parameters are left at the best fit.
func (a *app) fit(ds *dataset.Datasets) (*fit.Result, error) {
	f, err := fit.New(a.conf.Fit)
	if err != nil {
		return nil, err
	}
	r, err := f.Run(ds)
	if err != nil {
		return nil, err
	}
	if !r.Success() {
		a.log.Warn("fit did not converge",
			zap.Stringer("status", r.Status),
			zap.String("message", r.Message))
	}
	return r, nil
}

// create opens path for writing, with "-" for w itself.
func create(path string, w io.Writer) (io.Writer, func() error, error) {
	if path == "-" {
		return w, func() error { return nil }, nil
	}
	f, err := os.Create(path)
	if err != nil {
		return nil, nil, err
	}
	return f, f.Close, nil
}

func versionCommand() *cobra.Command {
	return &cobra.Command{
		Use:   "version",
		Short: "Print the version",
		Args:  cobra.NoArgs,
		Run: func(cmd *cobra.Command, args []string) {
			fmt.Fprintln(cmd.OutOrStdout(), versionString)
			fmt.Fprintln(cmd.OutOrStdout(), copyrightString)
		},
	}
}
