package gleval

import (
	"errors"
	"slices"

	"github.com/chewxy/math32"
	"github.com/soypat/geometry/ms2"
)

// LightField implements a 2D light fraction field in vectorized
// form suitable for evaluating on CPU or GPU.
type LightField interface {
	// Evaluate evaluates the light fraction over pos positions.
	// frac and pos must be of same length. Resulting fractions in [0,1]
	// are stored in frac.
	//
	// userData facilitates getting data to the evaluators for use in processing.
	Evaluate(pos []ms2.Vec, frac []float32, userData any) error
	// Bounds returns the field's bounding box such that all lit area is contained within.
	Bounds() ms2.Box
}

// ElevatedLightField is a [LightField] that can be evaluated over explicit terrain elevations
// instead of the ones provided by its scene.
type ElevatedLightField interface {
	LightField
	// EvaluateElevated is like Evaluate with elev holding the terrain elevation of each position.
	EvaluateElevated(pos []ms2.Vec, elev, frac []float32, userData any) error
}

var (
	errEmptyBuffers         = errors.New("empty buffers")
	errMismatchBufferLength = errors.New("position and fraction buffer length mismatch")
)

// CheckBuffers returns an error if pos and frac are empty or of different length.
func CheckBuffers(pos []ms2.Vec, frac []float32) error {
	if len(pos) != len(frac) {
		return errMismatchBufferLength
	} else if len(pos) == 0 {
		return errEmptyBuffers
	}
	return nil
}

// SumLightField adds the contributions of several lights, saturating at full light.
type SumLightField struct {
	fields  []LightField
	bb      ms2.Box
	scratch []float32
	evals   uint64
}

// NewSumLightField returns the saturated sum of fields. At least one field is required.
func NewSumLightField(fields ...LightField) (*SumLightField, error) {
	if len(fields) == 0 {
		return nil, errors.New("no light fields to sum")
	}
	if slices.Contains(fields, nil) {
		return nil, errors.New("nil light field")
	}
	bb := fields[0].Bounds()
	for _, f := range fields[1:] {
		fb := f.Bounds()
		bb.Min = ms2.MinElem(bb.Min, fb.Min)
		bb.Max = ms2.MaxElem(bb.Max, fb.Max)
	}
	return &SumLightField{fields: slices.Clone(fields), bb: bb}, nil
}

// Evaluate implements the [LightField] interface.
func (s *SumLightField) Evaluate(pos []ms2.Vec, frac []float32, userData any) error {
	err := CheckBuffers(pos, frac)
	if err != nil {
		return err
	}
	s.scratch = slices.Grow(s.scratch[:0], len(frac))
	aux := s.scratch[:len(frac)]
	clear(frac)
	for _, f := range s.fields {
		err = f.Evaluate(pos, aux, userData)
		if err != nil {
			return err
		}
		for i, v := range aux {
			frac[i] = math32.Min(1, frac[i]+v)
		}
	}
	s.evals += uint64(len(frac))
	return nil
}

// Bounds returns the union of all summed fields' bounds.
func (s *SumLightField) Bounds() ms2.Box { return s.bb }

// Evaluations returns total evaluations performed successfully during the field's lifetime.
func (s *SumLightField) Evaluations() uint64 { return s.evals }
