// Public domain.

// Package param holds fit parameters and the labelled sets of parameters
// shared between models, datasets and the optimizer.
//
// A Parameter is referenced by pointer.  Two datasets describing the same
// physical source hold the same *Parameter, and that is what makes a joint
// fit a fit over one coherent parameter vector.
package param

import (
	"errors"
	"fmt"
	"math"
	"sync/atomic"
)

var (
	// ErrDuplicateLabel is returned when two different parameter instances
	// are added to a Set under the same label.
	ErrDuplicateLabel = errors.New("param: label bound to a different parameter")
	// ErrSetInUse is returned by Acquire when a fit already owns the set.
	ErrSetInUse = errors.New("param: set owned by a running fit")
	// ErrInvalid is returned by Validate.
	ErrInvalid = errors.New("param: invalid parameter")
)

// Parameter is a single model or nuisance parameter.
//
// Min and Max are NaN when the parameter is unbounded on that side.
// Scale, when positive, is the unit the optimizer works in.  When zero an
// automatic power of ten is used.
type Parameter struct {
	Name   string
	Value  float64
	Min    float64
	Max    float64
	Frozen bool
	Unit   string
	Scale  float64
}

// New returns an unbounded, free parameter.
func New(name string, value float64) *Parameter {
	return &Parameter{Name: name, Value: value, Min: math.NaN(), Max: math.NaN()}
}

// NewFrozen returns an unbounded, frozen parameter.
func NewFrozen(name string, value float64) *Parameter {
	p := New(name, value)
	p.Frozen = true
	return p
}

// WithBounds sets Min and Max and returns p.
func (p *Parameter) WithBounds(min, max float64) *Parameter {
	p.Min, p.Max = min, max
	return p
}

// WithUnit sets Unit and returns p.
func (p *Parameter) WithUnit(u string) *Parameter {
	p.Unit = u
	return p
}

// Bounded reports which sides of p are bounded.
func (p *Parameter) Bounded() (lo, hi bool) {
	return !math.IsNaN(p.Min), !math.IsNaN(p.Max)
}

// InBounds reports whether v lies within the bounds of p.
func (p *Parameter) InBounds(v float64) bool {
	lo, hi := p.Bounded()
	return !(lo && v < p.Min) && !(hi && v > p.Max)
}

// Validate checks that the value is finite and consistent with the bounds.
func (p *Parameter) Validate() error {
	switch {
	case math.IsNaN(p.Value) || math.IsInf(p.Value, 0):
		return fmt.Errorf("%w: %s value %v not finite", ErrInvalid, p.Name, p.Value)
	case math.IsInf(p.Min, 0) || math.IsInf(p.Max, 0):
		return fmt.Errorf("%w: %s infinite bound, use NaN for unbounded", ErrInvalid, p.Name)
	case !math.IsNaN(p.Min) && !math.IsNaN(p.Max) && p.Min > p.Max:
		return fmt.Errorf("%w: %s min %g > max %g", ErrInvalid, p.Name, p.Min, p.Max)
	case !p.InBounds(p.Value):
		return fmt.Errorf("%w: %s value %g outside [%g, %g]",
			ErrInvalid, p.Name, p.Value, p.Min, p.Max)
	case p.Scale < 0 || math.IsNaN(p.Scale):
		return fmt.Errorf("%w: %s scale %g", ErrInvalid, p.Name, p.Scale)
	}
	return nil
}

// Clone returns an independent copy of p.
func (p *Parameter) Clone() *Parameter {
	c := *p
	return &c
}

func (p *Parameter) String() string {
	s := fmt.Sprintf("%s=%g", p.Name, p.Value)
	if p.Unit > "" {
		s += " " + p.Unit
	}
	if p.Frozen {
		s += " (frozen)"
	}
	return s
}

// autoScale is the power of ten the optimizer factor of p is taken in.
func (p *Parameter) autoScale() float64 {
	if p.Scale > 0 {
		return p.Scale
	}
	a := math.Abs(p.Value)
	if a == 0 || math.IsNaN(a) || math.IsInf(a, 0) {
		return 1
	}
	return math.Pow(10, math.Floor(math.Log10(a)))
}

// Value is a read-only snapshot of a labelled parameter.
type Value struct {
	Label  string
	Value  float64
	Error  float64
	Min    float64
	Max    float64
	Frozen bool
	Unit   string
}

// Set is an ordered mapping from label to parameter.
//
// A Set is exclusively owned by at most one running fit at a time,
// see Acquire.
type Set struct {
	params []*Parameter
	labels []string
	byPtr  map[*Parameter]int
	byName map[string]int
	busy   atomic.Bool
}

// NewSet returns a set of ps labelled by their names.
func NewSet(ps ...*Parameter) (*Set, error) {
	s := &Set{}
	for _, p := range ps {
		if err := s.Add(p.Name, p); err != nil {
			return nil, err
		}
	}
	return s, nil
}

// Add adds p under label.  Adding a pointer already present is a no-op.
// A different pointer under an existing label is ErrDuplicateLabel.
func (s *Set) Add(label string, p *Parameter) error {
	if s.byPtr == nil {
		s.byPtr = make(map[*Parameter]int)
		s.byName = make(map[string]int)
	}
	if _, ok := s.byPtr[p]; ok {
		return nil
	}
	if _, ok := s.byName[label]; ok {
		return fmt.Errorf("%w: %s", ErrDuplicateLabel, label)
	}
	s.byPtr[p] = len(s.params)
	s.byName[label] = len(s.params)
	s.params = append(s.params, p)
	s.labels = append(s.labels, label)
	return nil
}

// Len returns the number of parameters.
func (s *Set) Len() int { return len(s.params) }

// All returns the parameters in order.  The slice is a copy, the
// parameters are not.
func (s *Set) All() []*Parameter {
	return append([]*Parameter(nil), s.params...)
}

// Labels returns labels in parameter order.
func (s *Set) Labels() []string {
	return append([]string(nil), s.labels...)
}

// Free returns the parameters that are not frozen, in order.
func (s *Set) Free() []*Parameter {
	var f []*Parameter
	for _, p := range s.params {
		if !p.Frozen {
			f = append(f, p)
		}
	}
	return f
}

// FreeLabels returns labels of the free parameters, in order.
func (s *Set) FreeLabels() []string {
	var l []string
	for i, p := range s.params {
		if !p.Frozen {
			l = append(l, s.labels[i])
		}
	}
	return l
}

// Contains reports whether p is a member of s.
func (s *Set) Contains(p *Parameter) bool {
	_, ok := s.byPtr[p]
	return ok
}

// Label returns the label p was added under.
func (s *Set) Label(p *Parameter) (string, bool) {
	i, ok := s.byPtr[p]
	if !ok {
		return "", false
	}
	return s.labels[i], true
}

// Lookup returns the parameter with the given label.
func (s *Set) Lookup(label string) (*Parameter, bool) {
	i, ok := s.byName[label]
	if !ok {
		return nil, false
	}
	return s.params[i], true
}

// Validate validates every parameter.
func (s *Set) Validate() error {
	for i, p := range s.params {
		if err := p.Validate(); err != nil {
			return fmt.Errorf("%s: %w", s.labels[i], err)
		}
	}
	return nil
}

// Values returns current values in order.
func (s *Set) Values() []float64 {
	v := make([]float64, len(s.params))
	for i, p := range s.params {
		v[i] = p.Value
	}
	return v
}

// SetValues restores values previously returned by Values.
func (s *Set) SetValues(v []float64) {
	if len(v) != len(s.params) {
		panic("param: SetValues length mismatch")
	}
	for i, p := range s.params {
		p.Value = v[i]
	}
}

// Snapshot copies the current state of every parameter.  errs, if not
// nil, is indexed by label and fills Value.Error; missing labels get NaN.
func (s *Set) Snapshot(errs map[string]float64) []Value {
	vs := make([]Value, len(s.params))
	for i, p := range s.params {
		e, ok := errs[s.labels[i]]
		if !ok {
			e = math.NaN()
		}
		vs[i] = Value{
			Label:  s.labels[i],
			Value:  p.Value,
			Error:  e,
			Min:    p.Min,
			Max:    p.Max,
			Frozen: p.Frozen,
			Unit:   p.Unit,
		}
	}
	return vs
}

// Acquire marks s as owned by a running fit.
func (s *Set) Acquire() error {
	if !s.busy.CompareAndSwap(false, true) {
		return ErrSetInUse
	}
	return nil
}

// Release ends ownership taken with Acquire.
func (s *Set) Release() { s.busy.Store(false) }
