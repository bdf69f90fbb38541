// Public domain.

// Package loader reads and writes model and dataset files.
//
// Files are YAML.  A model file lists components, each a spectral model
// with an optional spatial model.  A dataset file lists typed datasets
// bound to components by name.  Parameters not listed in a file keep the
// defaults of their model type.
package loader

import (
	"errors"
	"fmt"
	"io"
	"math"
	"os"
	"time"

	"github.com/hashicorp/go-multierror"
	"gopkg.in/yaml.v3"

	"github.com/tunbehaun273/Multi-instrument-tutorial/internal/model"
	"github.com/tunbehaun273/Multi-instrument-tutorial/internal/model/spatial"
	"github.com/tunbehaun273/Multi-instrument-tutorial/internal/model/spectral"
	"github.com/tunbehaun273/Multi-instrument-tutorial/internal/param"
)

var (
	// ErrUnknownType is returned for a model or dataset type with no
	// constructor.
	ErrUnknownType = errors.New("loader: unknown type")
	// ErrUnboundParameter is returned for a parameter entry naming no
	// parameter of its model.
	ErrUnboundParameter = errors.New("loader: no such parameter")
	// ErrUnknownModel is returned when a dataset names a model not in the
	// model file.
	ErrUnknownModel = errors.New("loader: unknown model")
)

// Parameter is the file form of a parameter.  Absent fields keep the
// model default.
type Parameter struct {
	Name   string   `yaml:"name"`
	Value  *float64 `yaml:"value,omitempty"`
	Error  *float64 `yaml:"error,omitempty"`
	Unit   string   `yaml:"unit,omitempty"`
	Min    *float64 `yaml:"min,omitempty"`
	Max    *float64 `yaml:"max,omitempty"`
	Frozen *bool    `yaml:"frozen,omitempty"`
	Scale  float64  `yaml:"scale,omitempty"`
}

// Component is the file form of a spectral or spatial model.
type Component struct {
	Type       string      `yaml:"type"`
	Parameters []Parameter `yaml:"parameters,omitempty"`
	// Cache, spectral only, memoizes bin integrals for this long.
	// "0s" caches without expiry.
	Cache string `yaml:"cache,omitempty"`
}

// SkyModel is the file form of a model.SkyModel.
type SkyModel struct {
	Name     string     `yaml:"name"`
	Spectral Component  `yaml:"spectral"`
	Spatial  *Component `yaml:"spatial,omitempty"`
}

// ModelFile is the top level of a model file.
type ModelFile struct {
	Components []SkyModel `yaml:"components"`
}

var spectralTypes = map[string]func() spectral.Model{
	"PowerLaw":          func() spectral.Model { return spectral.NewPowerLaw(1e-12, 2, 1) },
	"LogParabola":       func() spectral.Model { return spectral.NewLogParabola(1e-12, 1, 2, 0.1) },
	"ExpCutoffPowerLaw": func() spectral.Model { return spectral.NewExpCutoffPowerLaw(1e-12, 2, 1, 0.1) },
}

var spatialTypes = map[string]func() spatial.Model{
	"PointSource": func() spatial.Model { return spatial.NewPointSource(0, 0) },
	"Gaussian":    func() spatial.Model { return spatial.NewGaussian(0, 0, 0.1) },
	"Disk":        func() spatial.Model { return spatial.NewDisk(0, 0, 0.1) },
}

// LoadModels reads the model file at path.
func LoadModels(path string) (*model.Models, error) {
	f, err := os.Open(path)
	if err != nil {
		return nil, err
	}
	defer f.Close()
	ms, err := ReadModels(f)
	if err != nil {
		return nil, fmt.Errorf("%s: %w", path, err)
	}
	return ms, nil
}

// ReadModels decodes a model file.  All component errors are reported,
// each naming its component.
func ReadModels(r io.Reader) (*model.Models, error) {
	var mf ModelFile
	dec := yaml.NewDecoder(r)
	dec.KnownFields(true)
	if err := dec.Decode(&mf); err != nil {
		return nil, fmt.Errorf("loader: decoding models: %w", err)
	}
	var merr *multierror.Error
	var list []*model.SkyModel
	for i, c := range mf.Components {
		m, err := c.build()
		if err != nil {
			name := c.Name
			if name == "" {
				name = fmt.Sprintf("#%d", i)
			}
			merr = multierror.Append(merr, fmt.Errorf("model %s: %w", name, err))
			continue
		}
		list = append(list, m)
	}
	if err := merr.ErrorOrNil(); err != nil {
		return nil, err
	}
	return model.NewModels(list...)
}

func (c *SkyModel) build() (*model.SkyModel, error) {
	var merr *multierror.Error
	var spectr spectral.Model
	if newSpec, ok := spectralTypes[c.Spectral.Type]; !ok {
		merr = multierror.Append(merr, fmt.Errorf("spectral %q: %w", c.Spectral.Type, ErrUnknownType))
	} else {
		spectr = newSpec()
		if err := apply(spectr.Parameters(), c.Spectral.Parameters); err != nil {
			merr = multierror.Append(merr, fmt.Errorf("spectral: %w", err))
		}
		if c.Spectral.Cache != "" {
			ttl, err := time.ParseDuration(c.Spectral.Cache)
			if err != nil {
				merr = multierror.Append(merr, fmt.Errorf("spectral cache: %w", err))
			}
			spectr = spectral.NewCached(spectr, ttl)
		}
	}
	var spat spatial.Model
	if c.Spatial != nil {
		if newSpat, ok := spatialTypes[c.Spatial.Type]; !ok {
			merr = multierror.Append(merr, fmt.Errorf("spatial %q: %w", c.Spatial.Type, ErrUnknownType))
		} else {
			spat = newSpat()
			if err := apply(spat.Parameters(), c.Spatial.Parameters); err != nil {
				merr = multierror.Append(merr, fmt.Errorf("spatial: %w", err))
			}
		}
	}
	if err := merr.ErrorOrNil(); err != nil {
		return nil, err
	}
	m := model.New(c.Name, spectr, spat)
	for _, p := range m.Parameters() {
		if err := p.Validate(); err != nil {
			merr = multierror.Append(merr, err)
		}
	}
	return m, merr.ErrorOrNil()
}

// apply overrides ps with the entries of fs.
func apply(ps []*param.Parameter, fs []Parameter) error {
	var merr *multierror.Error
	for _, f := range fs {
		p := find(ps, f.Name)
		if p == nil {
			merr = multierror.Append(merr, fmt.Errorf("%s: %w", f.Name, ErrUnboundParameter))
			continue
		}
		if f.Value != nil {
			p.Value = *f.Value
		}
		if f.Unit != "" {
			p.Unit = f.Unit
		}
		if f.Min != nil {
			p.Min = *f.Min
		}
		if f.Max != nil {
			p.Max = *f.Max
		}
		if f.Frozen != nil {
			p.Frozen = *f.Frozen
		}
		if f.Scale != 0 {
			p.Scale = f.Scale
		}
	}
	return merr.ErrorOrNil()
}

func find(ps []*param.Parameter, name string) *param.Parameter {
	for _, p := range ps {
		if p.Name == name {
			return p
		}
	}
	return nil
}

// encode returns the file form of ps.  errs, keyed by prefix+name, adds
// errors where present and finite.
func encode(ps []*param.Parameter, prefix string, errs map[string]float64) []Parameter {
	fs := make([]Parameter, len(ps))
	for i, p := range ps {
		v, frozen := p.Value, p.Frozen
		fs[i] = Parameter{Name: p.Name, Value: &v, Unit: p.Unit, Frozen: &frozen, Scale: p.Scale}
		lo, hi := p.Bounded()
		if lo {
			min := p.Min
			fs[i].Min = &min
		}
		if hi {
			max := p.Max
			fs[i].Max = &max
		}
		if e, ok := errs[prefix+p.Name]; ok && !math.IsNaN(e) && !math.IsInf(e, 0) {
			fs[i].Error = &e
		}
	}
	return fs
}

// WriteModels encodes ms at their current values.  errs, keyed by
// "<model>.<param>" as in a fit result, may be nil.
func WriteModels(w io.Writer, ms *model.Models, errs map[string]float64) error {
	var mf ModelFile
	for _, m := range ms.All() {
		c := SkyModel{Name: m.Name}
		spectr := m.Spectral
		if cm, ok := spectr.(*spectral.Cached); ok {
			c.Spectral.Cache = cm.TTL.String()
			spectr = cm.Inner
		}
		if _, ok := spectralTypes[spectr.Type()]; !ok {
			return fmt.Errorf("loader: model %s: spectral %q: %w", m.Name, spectr.Type(), ErrUnknownType)
		}
		c.Spectral.Type = spectr.Type()
		c.Spectral.Parameters = encode(spectr.Parameters(), m.Name+".", errs)
		if m.Spatial != nil {
			c.Spatial = &Component{
				Type:       m.Spatial.Type(),
				Parameters: encode(m.Spatial.Parameters(), m.Name+".", errs),
			}
		}
		mf.Components = append(mf.Components, c)
	}
	enc := yaml.NewEncoder(w)
	enc.SetIndent(2)
	if err := enc.Encode(&mf); err != nil {
		return err
	}
	return enc.Close()
}
