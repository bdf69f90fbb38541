// Public domain.

package loader

import (
	"fmt"
	"io"
	"os"

	"github.com/hashicorp/go-multierror"
	"github.com/soniakeys/unit"
	"gopkg.in/yaml.v3"

	"github.com/tunbehaun273/Multi-instrument-tutorial/internal/dataset"
	"github.com/tunbehaun273/Multi-instrument-tutorial/internal/model"
	"github.com/tunbehaun273/Multi-instrument-tutorial/internal/model/spatial"
)

// Geom is the file form of a map geometry, angles in degrees.
type Geom struct {
	Lon     float64 `yaml:"lon"`
	Lat     float64 `yaml:"lat"`
	NX      int     `yaml:"nx"`
	NY      int     `yaml:"ny"`
	BinSize float64 `yaml:"binsz"`
}

// FluxPoint is the file form of a dataset.FluxPoint.  A single err
// sets both errn and errp.
type FluxPoint struct {
	E    float64 `yaml:"e_ref"`
	EMin float64 `yaml:"e_min,omitempty"`
	EMax float64 `yaml:"e_max,omitempty"`
	DNDE float64 `yaml:"dnde"`
	Err  float64 `yaml:"dnde_err,omitempty"`
	ErrN float64 `yaml:"dnde_errn,omitempty"`
	ErrP float64 `yaml:"dnde_errp,omitempty"`
	UL   bool    `yaml:"is_ul,omitempty"`
}

// Dataset is the file form of any dataset.  Type selects which fields
// are read.
type Dataset struct {
	Name   string    `yaml:"name"`
	Type   string    `yaml:"type"`
	Models []string  `yaml:"models"`
	Edges  []float64 `yaml:"edges,omitempty"`

	// map
	Geom       *Geom       `yaml:"geom,omitempty"`
	Counts     [][]float64 `yaml:"counts,omitempty"`
	Background [][]float64 `yaml:"background,omitempty"`
	Exposure   [][]float64 `yaml:"exposure,omitempty"`

	// onoff
	BackgroundMode string    `yaml:"background_mode,omitempty"`
	NOn            []float64 `yaml:"n_on,omitempty"`
	NOff           []float64 `yaml:"n_off,omitempty"`
	Alpha          []float64 `yaml:"alpha,omitempty"`
	OnExposure     []float64 `yaml:"on_exposure,omitempty"`
	OnBackground   []float64 `yaml:"on_background,omitempty"`

	// fluxpoints
	Points []FluxPoint `yaml:"points,omitempty"`

	// nuisance parameter overrides
	Parameters []Parameter `yaml:"parameters,omitempty"`
}

// DatasetFile is the top level of a dataset file.
type DatasetFile struct {
	Datasets []Dataset `yaml:"datasets"`
}

// LoadDatasets reads the dataset file at path, binding to models in ms.
func LoadDatasets(path string, ms *model.Models) (*dataset.Datasets, error) {
	f, err := os.Open(path)
	if err != nil {
		return nil, err
	}
	defer f.Close()
	ds, err := ReadDatasets(f, ms)
	if err != nil {
		return nil, fmt.Errorf("%s: %w", path, err)
	}
	return ds, nil
}

// ReadDatasets decodes a dataset file.  Every invalid dataset is
// reported, each error naming its dataset.
func ReadDatasets(r io.Reader, ms *model.Models) (*dataset.Datasets, error) {
	var df DatasetFile
	dec := yaml.NewDecoder(r)
	dec.KnownFields(true)
	if err := dec.Decode(&df); err != nil {
		return nil, fmt.Errorf("loader: decoding datasets: %w", err)
	}
	var merr *multierror.Error
	var list []dataset.Dataset
	for i, s := range df.Datasets {
		d, err := s.build(ms)
		if err != nil {
			name := s.Name
			if name == "" {
				name = fmt.Sprintf("#%d", i)
			}
			merr = multierror.Append(merr, fmt.Errorf("dataset %s: %w", name, err))
			continue
		}
		list = append(list, d)
	}
	if err := merr.ErrorOrNil(); err != nil {
		return nil, err
	}
	return dataset.New(list...)
}

func (s *Dataset) bind(ms *model.Models) ([]*model.SkyModel, error) {
	var merr *multierror.Error
	var bound []*model.SkyModel
	for _, n := range s.Models {
		m, ok := ms.Get(n)
		if !ok {
			merr = multierror.Append(merr, fmt.Errorf("%s: %w", n, ErrUnknownModel))
			continue
		}
		bound = append(bound, m)
	}
	return bound, merr.ErrorOrNil()
}

func (s *Dataset) build(ms *model.Models) (dataset.Dataset, error) {
	bound, err := s.bind(ms)
	if err != nil {
		return nil, err
	}
	kind, err := dataset.ParseKind(s.Type)
	if err != nil {
		return nil, fmt.Errorf("%w: %v", ErrUnknownType, err)
	}
	var d dataset.Dataset
	switch kind {
	case dataset.KindMap:
		if s.Geom == nil {
			return nil, fmt.Errorf("%w: map without geom", dataset.ErrValidation)
		}
		d, err = dataset.NewMapDataset(s.Name, &dataset.MapData{
			Geom: &spatial.Geom{
				Lon0:    unit.AngleFromDeg(s.Geom.Lon),
				Lat0:    unit.AngleFromDeg(s.Geom.Lat),
				NX:      s.Geom.NX,
				NY:      s.Geom.NY,
				BinSize: unit.AngleFromDeg(s.Geom.BinSize),
			},
			Edges:      s.Edges,
			Counts:     s.Counts,
			Background: s.Background,
			Exposure:   s.Exposure,
		}, bound)
	case dataset.KindOnOff:
		mode, perr := dataset.ParseBackgroundMode(s.BackgroundMode)
		if perr != nil {
			return nil, perr
		}
		d, err = dataset.NewOnOffDataset(s.Name, &dataset.OnOffData{
			Edges:      s.Edges,
			NOn:        s.NOn,
			NOff:       s.NOff,
			Alpha:      s.Alpha,
			Exposure:   s.OnExposure,
			Background: s.OnBackground,
		}, bound, mode)
	case dataset.KindFluxPoints:
		pts := make([]dataset.FluxPoint, len(s.Points))
		for i, p := range s.Points {
			pts[i] = dataset.FluxPoint{
				E: p.E, EMin: p.EMin, EMax: p.EMax,
				DNDE: p.DNDE, ErrN: p.ErrN, ErrP: p.ErrP, UL: p.UL,
			}
			if p.Err != 0 {
				pts[i].ErrN, pts[i].ErrP = p.Err, p.Err
			}
		}
		d, err = dataset.NewFluxPointsDataset(s.Name, pts, bound)
	}
	if err != nil {
		return nil, err
	}
	if err := apply(d.Nuisance(), s.Parameters); err != nil {
		return nil, err
	}
	for _, p := range d.Nuisance() {
		if err := p.Validate(); err != nil {
			return nil, err
		}
	}
	return d, nil
}

// WriteDatasets encodes ds with nuisance parameters at their current
// values.  errs, keyed by "<dataset>.<param>", may be nil.
func WriteDatasets(w io.Writer, ds *dataset.Datasets, errs map[string]float64) error {
	var df DatasetFile
	for _, d := range ds.All() {
		s := Dataset{Name: d.Name(), Type: d.Kind().String()}
		for _, m := range d.Models() {
			s.Models = append(s.Models, m.Name)
		}
		switch d := d.(type) {
		case *dataset.MapDataset:
			md := d.Data()
			s.Edges = md.Edges
			s.Geom = &Geom{
				Lon:     md.Geom.Lon0.Deg(),
				Lat:     md.Geom.Lat0.Deg(),
				NX:      md.Geom.NX,
				NY:      md.Geom.NY,
				BinSize: md.Geom.BinSize.Deg(),
			}
			s.Counts, s.Background, s.Exposure = md.Counts, md.Background, md.Exposure
		case *dataset.OnOffDataset:
			od := d.Data()
			s.Edges = od.Edges
			s.BackgroundMode = d.Mode().String()
			s.NOn, s.NOff, s.Alpha = od.NOn, od.NOff, od.Alpha
			s.OnExposure, s.OnBackground = od.Exposure, od.Background
		case *dataset.FluxPointsDataset:
			for _, p := range d.Points() {
				s.Points = append(s.Points, FluxPoint{
					E: p.E, EMin: p.EMin, EMax: p.EMax,
					DNDE: p.DNDE, ErrN: p.ErrN, ErrP: p.ErrP, UL: p.UL,
				})
			}
		default:
			return fmt.Errorf("loader: dataset %s: %T: %w", d.Name(), d, ErrUnknownType)
		}
		s.Parameters = encode(d.Nuisance(), d.Name()+".", errs)
		df.Datasets = append(df.Datasets, s)
	}
	enc := yaml.NewEncoder(w)
	enc.SetIndent(2)
	if err := enc.Encode(&df); err != nil {
		return err
	}
	return enc.Close()
}
