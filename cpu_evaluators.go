package gshadow

import (
	"github.com/chewxy/math32"
	"github.com/soypat/geometry/ms2"
	"github.com/soypat/gshadow/gleval"
)

var _ gleval.ElevatedLightField = (*Registry)(nil) // Interface implementation compile-time check.

// LightFractionAt returns the fraction of the registry's light reaching point p on terrain
// at elevation e. The result is always finite and in [0,1]. Pending changes are ignored
// until flushed.
func (r *Registry) LightFractionAt(p ms2.Vec, e float32) float32 {
	r.evals.Add(1)
	if !finite2(p) || !r.light.Reaches(p) {
		return 0
	}
	light := float32(1)
	limited := float32(1)
	for i := range r.slots {
		sp := &r.slots[i].params
		s := sp.Shadow(p, e)
		if s <= 0 {
			continue
		}
		if sp.limited {
			limited *= 1 - r.cfg.LimitedOpacity*s
		} else {
			light *= 1 - s
			if light <= 0 {
				return 0
			}
		}
	}
	frac := light * maxf(limited, r.cfg.LimitedFloor)
	if math32.IsNaN(frac) {
		return 1
	}
	return clampf(frac, 0, 1)
}

// Evaluate implements [gleval.LightField] using the scene's terrain elevation at each position.
func (r *Registry) Evaluate(pos []ms2.Vec, frac []float32, userData any) error {
	err := gleval.CheckBuffers(pos, frac)
	if err != nil {
		return err
	}
	for i, p := range pos {
		frac[i] = r.LightFractionAt(p, r.scene.TerrainElevationAt(p.X, p.Y))
	}
	return nil
}

// EvaluateElevated implements [gleval.ElevatedLightField].
func (r *Registry) EvaluateElevated(pos []ms2.Vec, elev, frac []float32, userData any) error {
	err := gleval.CheckBuffers(pos, frac)
	if err != nil {
		return err
	} else if len(elev) != len(pos) {
		return errMismatchBufferLength
	}
	for i, p := range pos {
		frac[i] = r.LightFractionAt(p, elev[i])
	}
	return nil
}

// Bounds returns a box containing all points the light can reach and all its shadow geometry.
func (r *Registry) Bounds() ms2.Box {
	l := r.light
	if l.Kind == PointLight && l.Radius > 0 {
		c := l.pos2()
		rad := ms2.Vec{X: l.Radius, Y: l.Radius}
		return ms2.Box{Min: ms2.Sub(c, rad), Max: ms2.Add(c, rad)}
	}
	var bb ms2.Box
	first := true
	include := func(p ms2.Vec) {
		if first {
			bb = ms2.Box{Min: p, Max: p}
			first = false
			return
		}
		bb.Min = ms2.MinElem(bb.Min, p)
		bb.Max = ms2.MaxElem(bb.Max, p)
	}
	if l.Kind == PointLight {
		include(l.pos2())
	}
	for i := range r.slots {
		sp := &r.slots[i].params
		for _, v := range sp.Vertices[:sp.NumVertices] {
			include(v)
		}
	}
	return bb
}

// Evaluations returns the number of light fractions computed during the registry's lifetime.
func (r *Registry) Evaluations() uint64 { return r.evals.Load() }
