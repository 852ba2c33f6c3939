package gshadow

import (
	"github.com/chewxy/math32"
	"github.com/soypat/geometry/ms2"
)

// PenumbraRatios locates the three boundaries of a penumbra along the shadow axis,
// as cast from the bottom, center and top of the light. Ratios are normalized to [0,1]
// where 1 is at the shadow apex and 0 at the far edge of the shadow geometry.
// Back <= Mid <= Front always holds.
type PenumbraRatios struct {
	Front, Mid, Back float32
}

// endRays holds the three lateral rays leaving one occluder endpoint. Slopes are
// the lateral displacement along Out per unit of depth past the occluder, sorted
// as umbra, mid and penumbra.
type endRays struct {
	P     ms2.Vec
	Out   ms2.Vec
	Slope [3]float32
}

func (er *endRays) at(normal ms2.Vec, slope, t float32) ms2.Vec {
	dir := ms2.Add(normal, ms2.Scale(slope, er.Out))
	return ms2.Add(er.P, ms2.Scale(t, dir))
}

// ShadowParams is the flat per-occluder data needed to evaluate its shadow at any sample.
// Depths are measured along the unit normal of the occluder pointing away from the light.
type ShadowParams struct {
	valid   bool
	kind    LightKind
	limited bool
	origin  ms2.Vec
	normal  ms2.Vec
	depth   float32
	ends    [2]endRays
	bottom  float32
	top     float32
	zMin    float32
	// Point light data.
	lightPos    ms2.Vec
	lightZ      float32
	size        float32
	thresholdSq float32
	// Directional light data.
	elevations [3]float32 // Sub-light elevations in radians, ascending.
	travelCos  float32

	apex float32
	edge float32

	// Vertices of the shadow geometry in counter-clockwise order.
	// Point lights yield a triangle, directional lights a quad.
	Vertices    [4]ms2.Vec
	NumVertices int
	// WallRatio is the occluder's position along the shadow axis.
	WallRatio float32
	// Near and Far are the penumbra boundaries at the canvas minimum elevation.
	Near, Far PenumbraRatios
}

// Valid reports whether the parameters describe a shadow. Invalid parameters never shadow.
func (sp *ShadowParams) Valid() bool { return sp.valid }

// Limited reports whether the shadow comes from a partially transparent occluder.
func (sp *ShadowParams) Limited() bool { return sp.limited }

// Project computes the shadow parameters of o lit by l. links holds the link state of
// o's A and B endpoints, atten its threshold attenuation. The result is invalid if
// the configuration is degenerate.
func Project(o Occluder, links [2]LinkState, atten Attenuation, l Light, cfg Config) (sp ShadowParams) {
	if o.degenerate() {
		return sp
	}
	tangent := unit2(ms2.Sub(o.B, o.A))
	normal := perp(tangent)
	sp = ShadowParams{
		kind:    l.Kind,
		limited: o.Sense == SenseLimited,
		bottom:  o.Bottom(),
		top:     o.Top(),
		zMin:    cfg.CanvasMinElevation,
	}
	sp.ends[0] = endRays{P: o.A, Out: ms2.Scale(-1, tangent)}
	sp.ends[1] = endRays{P: o.B, Out: tangent}

	switch l.Kind {
	case PointLight:
		lp := l.pos2()
		if ms2.Dot(normal, ms2.Sub(o.A, lp)) < 0 {
			normal = ms2.Scale(-1, normal)
		}
		sp.origin = lp
		sp.depth = ms2.Dot(ms2.Sub(o.A, lp), normal)
		if !(sp.depth > collinearTol) {
			return ShadowParams{}
		}
		sp.lightPos = lp
		sp.lightZ = l.Position.Z
		sp.size = l.size()
		sp.thresholdSq = atten.RadiusSq
		for i := range sp.ends {
			er := &sp.ends[i]
			// Sub-lights displaced along the occluder; the outward one casts the umbra.
			umbraLight := ms2.Add(lp, ms2.Scale(sp.size, er.Out))
			penLight := ms2.Add(lp, ms2.Scale(-sp.size, er.Out))
			er.Slope = [3]float32{
				slopeOf(ms2.Sub(er.P, umbraLight), er.Out, normal),
				slopeOf(ms2.Sub(er.P, lp), er.Out, normal),
				slopeOf(ms2.Sub(er.P, penLight), er.Out, normal),
			}
		}

	case DirectionalLight:
		travel := ms2.Scale(-1, l.sunDir())
		if ms2.Dot(normal, travel) < 0 {
			normal = ms2.Scale(-1, normal)
		}
		sp.travelCos = ms2.Dot(normal, travel)
		if sp.travelCos <= epstol {
			return ShadowParams{}
		}
		sp.origin = o.A
		sp.depth = 0
		phi := l.solarAngle() * deg2rad
		theta := l.Elevation * deg2rad
		for i, dphi := range [3]float32{-phi, 0, phi} {
			sp.elevations[i] = clampf(theta+dphi, 0, math32.Pi/2)
		}
		for i := range sp.ends {
			er := &sp.ends[i]
			er.Slope = sort3(
				slopeOf(rotate2(travel, -phi), er.Out, normal),
				slopeOf(travel, er.Out, normal),
				slopeOf(rotate2(travel, phi), er.Out, normal),
			)
		}
	default:
		return ShadowParams{}
	}
	sp.normal = normal
	for i := range sp.ends {
		sp.ends[i].applyLink(links[i], normal)
	}
	sp.valid = true
	sp.shape(o, l, cfg)
	return sp
}

// slopeOf returns the lateral displacement along out per unit depth along normal of a ray with direction v.
func slopeOf(v, out, normal ms2.Vec) float32 {
	lat := ms2.Dot(v, out)
	dep := ms2.Dot(v, normal)
	if dep <= epstol {
		return math32.Copysign(largeSlope, lat)
	}
	return clampf(lat/dep, -largeSlope, largeSlope)
}

func (er *endRays) applyLink(link LinkState, normal ms2.Vec) {
	switch link.Kind {
	case LinkConcave:
		er.Slope[0] = er.Slope[1]
	case LinkKeyed:
		v := ms2.Sub(link.Pos, er.P)
		if ms2.Dot(v, normal) <= epstol {
			return // Linked endpoint does not reach past the occluder.
		}
		er.Slope[0] = clampf(slopeOf(v, er.Out, normal), er.Slope[0], er.Slope[1])
	}
}

// shape computes the shadow apex, far edge, vertices and canvas ratios.
func (sp *ShadowParams) shape(o Occluder, l Light, cfg Config) {
	_, far := sp.Boundaries(cfg.CanvasMinElevation)
	edge := far[2]
	if !finite(edge) || edge <= sp.depth {
		edge = sp.depth + cfg.maxShadowLength()
	}
	A, B := &sp.ends[0], &sp.ends[1]
	switch sp.kind {
	case PointLight:
		if l.Radius > 0 {
			edge = minf(edge, maxf(l.Radius, sp.depth+collinearTol))
		}
		sp.apex = 0
		spread := A.Slope[2] + B.Slope[2]
		if spread > epstol {
			sp.apex = maxf(0, sp.depth-o.Length()/spread)
		}
		tApex := sp.apex - sp.depth
		apex := ms2.Scale(0.5, ms2.Add(A.at(sp.normal, A.Slope[2], tApex), B.at(sp.normal, B.Slope[2], tApex)))
		sp.Vertices[0] = apex
		sp.Vertices[1] = A.at(sp.normal, A.Slope[2], edge-sp.depth)
		sp.Vertices[2] = B.at(sp.normal, B.Slope[2], edge-sp.depth)
		sp.NumVertices = 3
	case DirectionalLight:
		sp.apex = sp.depth
		sp.Vertices[0] = A.P
		sp.Vertices[1] = A.at(sp.normal, A.Slope[2], edge-sp.depth)
		sp.Vertices[2] = B.at(sp.normal, B.Slope[2], edge-sp.depth)
		sp.Vertices[3] = B.P
		sp.NumVertices = 4
	}
	if Orientation(sp.Vertices[0], sp.Vertices[1], sp.Vertices[2]) < 0 {
		// Keep counter-clockwise winding.
		n := sp.NumVertices
		for i := 0; i < n/2; i++ {
			sp.Vertices[i], sp.Vertices[n-1-i] = sp.Vertices[n-1-i], sp.Vertices[i]
		}
	}
	sp.edge = edge
	sp.WallRatio = sp.ratio(sp.depth)
	sp.Near, sp.Far = sp.ElevationRatios(cfg.CanvasMinElevation)
}

// ratio maps depth s onto the shadow axis: 1 at the apex and 0 at the far edge.
func (sp *ShadowParams) ratio(s float32) float32 {
	span := sp.edge - sp.apex
	if !(span > epstol) {
		return 0
	}
	if math32.IsInf(s, 1) {
		return 0
	}
	return clampf((sp.edge-s)/span, 0, 1)
}

// PenumbraPoints returns the umbra, mid and penumbra boundary points of endpoint i
// (0 for A, 1 for B) on the line parallel to the occluder through the far edge.
func (sp *ShadowParams) PenumbraPoints(i int) [3]ms2.Vec {
	er := &sp.ends[i]
	t := sp.edge - sp.depth
	return [3]ms2.Vec{
		er.at(sp.normal, er.Slope[0], t),
		er.at(sp.normal, er.Slope[1], t),
		er.at(sp.normal, er.Slope[2], t),
	}
}

// Shadow returns the fraction of the light blocked by the occluder at sample p
// standing on terrain at elevation e. The result is in [0,1].
func (sp *ShadowParams) Shadow(p ms2.Vec, e float32) float32 {
	if !sp.valid {
		return 0
	}
	s := ms2.Dot(ms2.Sub(p, sp.origin), sp.normal)
	if !(s > sp.depth) {
		return 0 // In front of occluder.
	}
	if sp.thresholdSq > 0 && ms2.Norm2(ms2.Sub(p, sp.lightPos)) < sp.thresholdSq {
		return 0
	}
	t := s - sp.depth
	shadow := sp.side(0, p, t)
	if shadow == 0 {
		return 0
	}
	shadow *= sp.side(1, p, t)
	if shadow == 0 {
		return 0
	}
	near, far := sp.Boundaries(e)
	shadow *= nearShade(s, near) * farShade(s, far)
	if !(shadow > 0) {
		return 0
	}
	return minf(shadow, 1)
}

// side returns the fraction of lateral sub-lights blocked past endpoint i at sample p, t units deep past the occluder.
func (sp *ShadowParams) side(i int, p ms2.Vec, t float32) float32 {
	er := &sp.ends[i]
	xi := ms2.Dot(ms2.Sub(p, er.P), er.Out)
	umbra, mid, pen := er.Slope[0]*t, er.Slope[1]*t, er.Slope[2]*t
	return 1 - 0.5*rampUp(xi, umbra, mid) - 0.5*rampUp(xi, mid, pen)
}

// nearShade blends from lit before near[0] to fully shadowed past near[2].
func nearShade(s float32, near [3]float32) float32 {
	return 0.5*rampUp(s, near[0], near[1]) + 0.5*rampUp(s, near[1], near[2])
}

// farShade blends from fully shadowed before far[0] to lit past far[2].
func farShade(s float32, far [3]float32) float32 {
	return 1 - 0.5*rampUp(s, far[0], far[1]) - 0.5*rampUp(s, far[1], far[2])
}
