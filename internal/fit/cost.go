// Public domain.

package fit

import (
	"fmt"

	"github.com/tunbehaun273/Multi-instrument-tutorial/internal/dataset"
	"github.com/tunbehaun273/Multi-instrument-tutorial/internal/metrics"
)

// Cost is a scalar statistic of the current parameter values.
type Cost interface {
	Eval() (float64, error)
}

// CostFunc adapts a function to Cost.
type CostFunc func() (float64, error)

func (f CostFunc) Eval() (float64, error) { return f() }

// JointCost is the sum of the statistics of a set of datasets.
//
// Summing is multiplying likelihoods and is valid only for statistically
// independent datasets.  Nothing here can detect a measurement counted
// twice; that is for the caller to rule out.
type JointCost struct {
	datasets []dataset.Dataset
	rec      *metrics.Recorder
}

// NewJointCost returns the joint cost of ds.  rec may be nil.
func NewJointCost(ds []dataset.Dataset, rec *metrics.Recorder) *JointCost {
	return &JointCost{datasets: ds, rec: rec}
}

// Term is the contribution of one dataset.
type Term struct {
	Dataset string
	Kind    dataset.Kind
	Stat    float64
}

// Terms returns each dataset's statistic in order.
func (c *JointCost) Terms() ([]Term, error) {
	t := make([]Term, len(c.datasets))
	for i, d := range c.datasets {
		s, err := d.Stat()
		c.rec.Eval(d.Name(), d.Kind().String())
		if err != nil {
			return nil, fmt.Errorf("stat of %s: %w", d.Name(), err)
		}
		t[i] = Term{Dataset: d.Name(), Kind: d.Kind(), Stat: s}
	}
	return t, nil
}

// Eval returns the sum of Terms.
func (c *JointCost) Eval() (float64, error) {
	t, err := c.Terms()
	if err != nil {
		return 0, err
	}
	var s float64
	for _, x := range t {
		s += x.Stat
	}
	return s, nil
}
