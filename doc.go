/*
Command jointfit fits one set of gamma-ray source models to several
datasets of different kinds at once.

Contents

  Program overview
  Command line usage
  Configuration
  File formats
  Algorithm outline


Program overview

Each dataset contributes a statistic to one joint cost.  Counts maps are
scored with the Cash statistic, on/off spectra with WStat and flux points
with chi-square.  All statistics are -2 ln L up to a constant and so the
joint cost is their sum.  A source appearing in several datasets is one
model with one set of parameters, so that every dataset constrains the
same amplitude and shape.

The datasets must be statistically independent.  The program cannot
detect double counting: flux points derived from an on/off dataset and
that on/off dataset would both pull on the same photons.

Sample run:

    jointfit fit --models crab.yaml --datasets joint.yaml

    jointfit version 0.1 Go source.
    Fit 0b5c...  simplex  converged
    Stat 214.3385  initial 231.0820  evaluations 97  iterations 51

    Dataset          Kind               Stat
    lat              map             61.2209
    hess             onoff          148.0312
    hawc             fluxpoints       5.0864

    Parameter                       Value      Error  Unit
    crab.amplitude               9.83e-12   3.91e-13  cm-2 s-1 TeV-1
    ...


Command line usage

    jointfit fit         joint fit, optionally writing best fit models
    jointfit fluxpoints  flux points of one source in one dataset
    jointfit residuals   residuals per bin at the best fit
    jointfit simulate    random datasets drawn from the models
    jointfit version

Flags common to all commands are --config, --models, --datasets,
--method, --metrics-file, --log-level and --log-format.  Type
jointfit help <command> for the others.


Configuration

An optional YAML file given with --config holds defaults for all
commands.  Any key may also be set in the environment with prefix
JOINTFIT_, dots replaced by underscores.  Flags override both.

    models: crab.yaml
    datasets: joint.yaml
    fit:
      method: simplex     # or lbfgs
      tolerance: 1.0e-5
      max_iter: 10000
      max_eval: 50000
      restarts: 2
      covariance: true
    fluxpoints:
      source: crab
      edges: [0.5, 2, 8, 32]
      sqrt_ts_threshold: 2
      n_sigma: 1
      n_sigma_ul: 2
      reoptimize: false
      workers: 4
    simulate:
      repeatable: true
      seed: 3
    log:
      level: info
      format: console     # or json


File formats

A model file lists components, each a spectral model and an optional
spatial model.  Spectral types are PowerLaw, LogParabola and
ExpCutoffPowerLaw; spatial types PointSource, Gaussian and Disk.
Parameters not listed keep their defaults.

    components:
      - name: crab
        spectral:
          type: PowerLaw
          parameters:
            - {name: amplitude, value: 1.0e-11}
            - {name: index, value: 2.5, min: 1, max: 4}
        spatial:
          type: PointSource
          parameters:
            - {name: lon_0, value: 83.633, frozen: true}
            - {name: lat_0, value: 22.014, frozen: true}

A dataset file lists datasets of type map, onoff or fluxpoints, each
naming the models it is fitted with.  Energies are TeV, exposures cm2 s,
angles degrees.  For maps, grids are indexed [energy bin][pixel].  On/off
datasets have background_mode profiled, the default, or fixed, which
needs on_background.


Algorithm outline

Free parameters are mapped to an unbounded space, by a sine transform for
parameters bounded on both sides and a square root transform for one
sided bounds, so the minimizer never evaluates a statistic outside the
bounds.  The default minimizer is a Nelder-Mead simplex restarted from its
best point while that still improves the statistic.  The covariance is
twice the inverse of the numerical Hessian at the minimum.

A flux point is the fit of a single norm scaling the best fit spectrum,
restricted to the bins of one energy interval, with every other
parameter fixed.  Errors and upper limits are where the statistic rises
by n_sigma squared.  Intervals are independent and are fitted in
parallel.

-------------
Public domain.
*/
package main
