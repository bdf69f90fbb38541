// Public domain.

package dataset

import (
	"errors"
	"fmt"
	"sync"

	"github.com/tunbehaun273/Multi-instrument-tutorial/internal/model"
	"github.com/tunbehaun273/Multi-instrument-tutorial/internal/param"
)

// Datasets is an ordered collection of datasets with unique names.
type Datasets struct {
	list   []Dataset
	byName map[string]int

	once   sync.Once
	set    *param.Set
	setErr error
}

// New returns a collection of ds.  Names must be unique and non-empty.
func New(ds ...Dataset) (*Datasets, error) {
	c := &Datasets{byName: make(map[string]int)}
	for _, d := range ds {
		n := d.Name()
		if n == "" {
			return nil, errors.New("dataset: empty dataset name")
		}
		if _, ok := c.byName[n]; ok {
			return nil, fmt.Errorf("dataset: duplicate dataset name %s", n)
		}
		c.byName[n] = len(c.list)
		c.list = append(c.list, d)
	}
	return c, nil
}

// Get returns the dataset named name.
func (c *Datasets) Get(name string) (Dataset, bool) {
	i, ok := c.byName[name]
	if !ok {
		return nil, false
	}
	return c.list[i], true
}

// All returns datasets in order.
func (c *Datasets) All() []Dataset { return append([]Dataset(nil), c.list...) }

// Len returns the number of datasets.
func (c *Datasets) Len() int { return len(c.list) }

// Names returns dataset names in order.
func (c *Datasets) Names() []string {
	n := make([]string, len(c.list))
	for i, d := range c.list {
		n[i] = d.Name()
	}
	return n
}

// Models returns the distinct sky models of all datasets in order of
// first appearance.
func (c *Datasets) Models() []*model.SkyModel {
	seen := map[*model.SkyModel]bool{}
	var ms []*model.SkyModel
	for _, d := range c.list {
		for _, m := range d.Models() {
			if !seen[m] {
				seen[m] = true
				ms = append(ms, m)
			}
		}
	}
	return ms
}

// Parameters returns the joint parameter set.  Model parameters are
// labelled <model>.<param> and nuisance parameters <dataset>.<param>.
//
// The set is built once and the same set is returned on every call, so
// that a fit owning it excludes any other fit over the collection.
//
// Two different instances under one label fail with
// param.ErrDuplicateLabel.  This is what happens when two datasets
// describe one source with two copies of its model.
func (c *Datasets) Parameters() (*param.Set, error) {
	c.once.Do(func() { c.set, c.setErr = c.parameters() })
	return c.set, c.setErr
}

func (c *Datasets) parameters() (*param.Set, error) {
	s := &param.Set{}
	for _, m := range c.Models() {
		for _, p := range m.Parameters() {
			if err := s.Add(m.Name+"."+p.Name, p); err != nil {
				return nil, err
			}
		}
	}
	for _, d := range c.list {
		for _, p := range d.Nuisance() {
			if err := s.Add(d.Name()+"."+p.Name, p); err != nil {
				return nil, err
			}
		}
	}
	return s, nil
}
