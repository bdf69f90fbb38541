// Public domain.

package jfprog

import (
	"fmt"

	"github.com/spf13/cobra"
	"go.uber.org/zap"

	"github.com/tunbehaun273/Multi-instrument-tutorial/internal/dataset"
	"github.com/tunbehaun273/Multi-instrument-tutorial/internal/fit"
	"github.com/tunbehaun273/Multi-instrument-tutorial/internal/fluxpoints"
	"github.com/tunbehaun273/Multi-instrument-tutorial/internal/loader"
	"github.com/tunbehaun273/Multi-instrument-tutorial/internal/model"
)

func (a *app) fitCommand() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "fit",
		Short: "Fit the models to all datasets jointly",
		Long: `Fit minimizes the joint statistic over the free parameters of all
models and datasets, then prints the result.  With --output the best fit
models are written as a model file, with errors.`,
		Args: cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			ms, ds, err := a.load()
			if err != nil {
				return err
			}
			r, err := a.fit(ds)
			if err != nil {
				return err
			}
			terms, err := fit.NewJointCost(ds.All(), nil).Terms()
			if err != nil {
				return err
			}
			printFit(cmd.OutOrStdout(), r, terms, ms.All())
			if a.conf.Output == "" {
				return nil
			}
			w, done, err := create(a.conf.Output, cmd.OutOrStdout())
			if err != nil {
				return err
			}
			errs := map[string]float64{}
			for _, v := range r.Params {
				errs[v.Label] = v.Error
			}
			if err := loader.WriteModels(w, ms, errs); err != nil {
				done()
				return err
			}
			return done()
		},
	}
	cmd.Flags().String("output", "", `write best fit models to this file, "-" for stdout`)
	return cmd
}

func (a *app) fluxPointsCommand() *cobra.Command {
	var name string
	var edges []float64
	cmd := &cobra.Command{
		Use:   "fluxpoints",
		Short: "Estimate flux points of one source in one dataset",
		Long: `Fluxpoints runs the joint fit, then fits the normalization of the
source spectrum in each energy interval of one dataset with all other
parameters fixed at the joint best fit.  With --output the points are
written as a flux point dataset file, for plotting.`,
		Args: cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			opt := a.conf.FluxPointOptions()
			if cmd.Flags().Changed("edges") {
				opt.Edges = edges
			}
			if s, _ := cmd.Flags().GetString("source"); s > "" {
				opt.Source = s
			}
			opt.Logger, opt.Metrics = a.log, a.rec
			est, err := fluxpoints.New(opt)
			if err != nil {
				return err
			}
			ms, ds, err := a.load()
			if err != nil {
				return err
			}
			d, ok := ds.Get(name)
			if !ok {
				return fmt.Errorf("no dataset %q", name)
			}
			r, err := a.fit(ds)
			if err != nil {
				return err
			}
			pts, err := est.Run(cmd.Context(), d, r)
			if err != nil {
				return err
			}
			printFluxPoints(cmd.OutOrStdout(), name, pts)
			if a.conf.Output == "" {
				return nil
			}
			src, _ := ms.Get(opt.Source)
			var fps []dataset.FluxPoint
			for _, p := range pts {
				if p.Empty {
					continue
				}
				fp := dataset.FluxPoint{
					E: p.ERef, EMin: p.EMin, EMax: p.EMax,
					DNDE: p.DNDE, ErrN: p.DNDEErrN, ErrP: p.DNDEErrP,
				}
				if p.UL {
					fp.DNDE, fp.UL = p.DNDEUL, true
				}
				fps = append(fps, fp)
			}
			out, err := dataset.NewFluxPointsDataset(name+"_fp", fps, []*model.SkyModel{src})
			if err != nil {
				return err
			}
			col, err := dataset.New(out)
			if err != nil {
				return err
			}
			w, done, err := create(a.conf.Output, cmd.OutOrStdout())
			if err != nil {
				return err
			}
			if err := loader.WriteDatasets(w, col, nil); err != nil {
				done()
				return err
			}
			return done()
		},
	}
	f := cmd.Flags()
	f.StringVar(&name, "dataset", "", "dataset to estimate points from (required)")
	f.String("source", "", "source model, overrides the configuration")
	f.Float64SliceVar(&edges, "edges", nil, "interval energy edges, TeV, overrides the configuration")
	f.String("output", "", `write points to this file, "-" for stdout`)
	cmd.MarkFlagRequired("dataset")
	return cmd
}

func (a *app) residualsCommand() *cobra.Command {
	var names []string
	var method string
	var noFit bool
	cmd := &cobra.Command{
		Use:   "residuals",
		Short: "Print residuals of datasets at the best fit",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			_, ds, err := a.load()
			if err != nil {
				return err
			}
			if !noFit {
				if _, err := a.fit(ds); err != nil {
					return err
				}
			}
			if len(names) == 0 {
				names = ds.Names()
			}
			for i, n := range names {
				d, ok := ds.Get(n)
				if !ok {
					return fmt.Errorf("no dataset %q", n)
				}
				if i > 0 {
					fmt.Fprintln(cmd.OutOrStdout())
				}
				if err := printResiduals(cmd.OutOrStdout(), d, dataset.ResidualMethod(method)); err != nil {
					return fmt.Errorf("%s: %w", n, err)
				}
			}
			return nil
		},
	}
	f := cmd.Flags()
	f.StringSliceVar(&names, "dataset", nil, "datasets to print, default all")
	f.StringVar(&method, "residual-method", string(dataset.Diff), `"diff", "diff/model" or "diff/sqrt(model)"`)
	f.BoolVar(&noFit, "no-fit", false, "use parameter values as loaded")
	return cmd
}

func (a *app) simulateCommand() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "simulate",
		Short: "Draw simulated datasets from the models",
		Long: `Simulate replaces the observed data of every dataset with a random
draw from the model prediction at the loaded parameter values.  Draws are
repeatable unless simulate.repeatable is false in the configuration.`,
		Args: cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			_, ds, err := a.load()
			if err != nil {
				return err
			}
			src := a.conf.Simulate.Source()
			var sim []dataset.Dataset
			for _, d := range ds.All() {
				f, err := dataset.Fake(d, src)
				if err != nil {
					return err
				}
				sim = append(sim, f)
			}
			col, err := dataset.New(sim...)
			if err != nil {
				return err
			}
			a.log.Info("simulated",
				zap.Int("datasets", col.Len()),
				zap.Uint64("seed", a.conf.Simulate.Seed),
				zap.Bool("repeatable", a.conf.Simulate.Repeatable))
			out := a.conf.Output
			if out == "" {
				out = "-"
			}
			w, done, err := create(out, cmd.OutOrStdout())
			if err != nil {
				return err
			}
			if err := loader.WriteDatasets(w, col, nil); err != nil {
				done()
				return err
			}
			return done()
		},
	}
	cmd.Flags().String("output", "", `write the simulated datasets to this file, default stdout`)
	cmd.Flags().Uint64("seed", 0, "seed, overrides the configuration")
	return cmd
}
