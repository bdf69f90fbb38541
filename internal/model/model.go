// Public domain.

// Package model binds spectral and spatial models into named sky models.
package model

import (
	"errors"
	"fmt"

	"github.com/tunbehaun273/Multi-instrument-tutorial/internal/model/spatial"
	"github.com/tunbehaun273/Multi-instrument-tutorial/internal/model/spectral"
	"github.com/tunbehaun273/Multi-instrument-tutorial/internal/param"
)

// SkyModel is one physical source.  Spatial is nil for models used only
// by spectrum datasets.
type SkyModel struct {
	Name     string
	Spectral spectral.Model
	Spatial  spatial.Model
}

// New returns a sky model.
func New(name string, spectr spectral.Model, spat spatial.Model) *SkyModel {
	return &SkyModel{Name: name, Spectral: spectr, Spatial: spat}
}

// Parameters returns spectral then spatial parameters.
func (m *SkyModel) Parameters() []*param.Parameter {
	ps := m.Spectral.Parameters()
	if m.Spatial != nil {
		ps = append(append([]*param.Parameter(nil), ps...), m.Spatial.Parameters()...)
	}
	return ps
}

// Clone returns a copy with independent parameters.
func (m *SkyModel) Clone() *SkyModel {
	c := &SkyModel{Name: m.Name, Spectral: m.Spectral.Clone()}
	if m.Spatial != nil {
		c.Spatial = m.Spatial.Clone()
	}
	return c
}

// Models is an ordered collection of sky models with unique names.
type Models struct {
	list   []*SkyModel
	byName map[string]int
}

// NewModels returns a collection of ms.  Names must be unique and
// non-empty and every model needs a spectral component.
func NewModels(ms ...*SkyModel) (*Models, error) {
	c := &Models{byName: make(map[string]int)}
	for _, m := range ms {
		switch {
		case m.Name == "":
			return nil, errors.New("model: empty model name")
		case m.Spectral == nil:
			return nil, fmt.Errorf("model: %s has no spectral model", m.Name)
		}
		if _, ok := c.byName[m.Name]; ok {
			return nil, fmt.Errorf("model: duplicate model name %s", m.Name)
		}
		c.byName[m.Name] = len(c.list)
		c.list = append(c.list, m)
	}
	return c, nil
}

// Get returns the model named name.
func (c *Models) Get(name string) (*SkyModel, bool) {
	i, ok := c.byName[name]
	if !ok {
		return nil, false
	}
	return c.list[i], true
}

// All returns the models in order.
func (c *Models) All() []*SkyModel { return append([]*SkyModel(nil), c.list...) }

// Len returns the number of models.
func (c *Models) Len() int { return len(c.list) }

// Names returns model names in order.
func (c *Models) Names() []string {
	n := make([]string, len(c.list))
	for i, m := range c.list {
		n[i] = m.Name
	}
	return n
}
