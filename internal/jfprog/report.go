// Public domain.

package jfprog

import (
	"fmt"
	"io"
	"math"

	sexa "github.com/soniakeys/sexagesimal"
	"github.com/soniakeys/unit"

	"github.com/tunbehaun273/Multi-instrument-tutorial/internal/dataset"
	"github.com/tunbehaun273/Multi-instrument-tutorial/internal/fit"
	"github.com/tunbehaun273/Multi-instrument-tutorial/internal/fluxpoints"
	"github.com/tunbehaun273/Multi-instrument-tutorial/internal/model"
)

// printFit writes the fit summary, the statistic of each dataset and
// the parameter table.
func printFit(w io.Writer, r *fit.Result, terms []fit.Term, ms []*model.SkyModel) {
	fmt.Fprintln(w, versionString)
	fmt.Fprintf(w, "Fit %s  %s  %s\n", r.RunID, r.Method, r.Status)
	if r.Message > "" {
		fmt.Fprintf(w, "   %s\n", r.Message)
	}
	fmt.Fprintf(w, "Stat %.4f  initial %.4f  evaluations %d  iterations %d\n",
		r.Stat, r.InitStat, r.NEval, r.NIter)

	fmt.Fprintln(w)
	fmt.Fprintf(w, "%-16s %-10s %12s\n", "Dataset", "Kind", "Stat")
	for _, t := range terms {
		fmt.Fprintf(w, "%-16s %-10s %12.4f\n", t.Dataset, t.Kind, t.Stat)
	}

	fmt.Fprintln(w)
	fmt.Fprintf(w, "%-24s %12s %10s  %s\n", "Parameter", "Value", "Error", "Unit")
	for _, v := range r.Params {
		e := "frozen"
		if !v.Frozen {
			e = fmtErr(v.Error)
		}
		fmt.Fprintf(w, "%-24s %12.5g %10s  %s\n", v.Label, v.Value, e, v.Unit)
	}

	var positioned bool
	for _, m := range ms {
		if m.Spatial == nil {
			continue
		}
		if !positioned {
			fmt.Fprintln(w)
			fmt.Fprintln(w, "Position")
			positioned = true
		}
		lon, lat := m.Spatial.Position()
		fmt.Fprintf(w, "%-16s %.1d  %+.0d\n", m.Name,
			sexa.FmtRA(unit.RAFromDeg(lon.Deg())), sexa.FmtAngle(lat))
	}
}

func fmtErr(e float64) string {
	if math.IsNaN(e) {
		return "-"
	}
	return fmt.Sprintf("%.3g", e)
}

// printFluxPoints writes one line per interval.
func printFluxPoints(w io.Writer, name string, pts []fluxpoints.Point) {
	fmt.Fprintln(w, versionString)
	fmt.Fprintf(w, "Flux points of %s\n", name)
	fmt.Fprintf(w, "%8s %8s %8s %8s %8s %8s %8s %7s %11s %11s %8s  %s\n",
		"e_ref", "e_min", "e_max", "norm", "errn", "errp", "ul",
		"sqrt_ts", "dnde", "dnde_ul", "counts", "status")
	for _, p := range pts {
		if p.Empty {
			fmt.Fprintf(w, "%8.4g %8.4g %8.4g  empty\n", p.ERef, p.EMin, p.EMax)
			continue
		}
		status := p.Status.String()
		if p.UL {
			status += " ul"
		}
		fmt.Fprintf(w, "%8.4g %8.4g %8.4g %8.4f %8.4f %8.4f %8.4f %7.2f %11.4e %11.4e %8.0f  %s\n",
			p.ERef, p.EMin, p.EMax, p.Norm, p.NormErrN, p.NormErrP, p.NormUL,
			p.SqrtTS, p.DNDE, p.DNDEUL, p.Counts, status)
	}
}

// printResiduals writes observed, predicted and residual per bin.
func printResiduals(w io.Writer, d dataset.Dataset, m dataset.ResidualMethod) error {
	pred, err := d.Npred()
	if err != nil {
		return err
	}
	res, err := d.Residuals(m)
	if err != nil {
		return err
	}
	obs := d.Counts()
	fmt.Fprintf(w, "Residuals of %s (%s), %s\n", d.Name(), d.Kind(), m)
	fmt.Fprintf(w, "%6s %12s %12s %12s\n", "bin", "observed", "predicted", "residual")
	for i := range res {
		fmt.Fprintf(w, "%6d %12.5g %12.5g %12.4g\n", i, obs[i], pred[i], res[i])
	}
	return nil
}
