package gshadow

import (
	"github.com/chewxy/math32"
)

// Boundaries returns the depths at which the near and far penumbrae begin and end for
// terrain at elevation e. Each triple holds the boundary cast by the three vertical
// sub-lights in ascending depth. A sub-light that can never be blocked has its near
// boundary at +Inf and its far boundary at the occluder.
func (sp *ShadowParams) Boundaries(e float32) (near, far [3]float32) {
	if !finite(e) {
		e = sp.zMin
	}
	var lo, hi [3]float32
	switch sp.kind {
	case PointLight:
		for i, dz := range [3]float32{-sp.size, 0, sp.size} {
			lo[i], hi[i] = pointSpan(sp.lightZ+dz, e, sp.depth, sp.bottom, sp.top)
		}
	case DirectionalLight:
		for i, theta := range sp.elevations {
			lo[i], hi[i] = directionalSpan(theta, e, sp.bottom, sp.top, sp.travelCos)
			lo[i] += sp.depth
			hi[i] += sp.depth
		}
	}
	return sort3(lo[0], lo[1], lo[2]), sort3(hi[0], hi[1], hi[2])
}

// ElevationRatios returns the near and far [PenumbraRatios] of the shadow for terrain at elevation e.
func (sp *ShadowParams) ElevationRatios(e float32) (near, far PenumbraRatios) {
	n, f := sp.Boundaries(e)
	// Greater depth maps to smaller ratio.
	near = PenumbraRatios{Front: sp.ratio(n[0]), Mid: sp.ratio(n[1]), Back: sp.ratio(n[2])}
	far = PenumbraRatios{Front: sp.ratio(f[0]), Mid: sp.ratio(f[1]), Back: sp.ratio(f[2])}
	return near, far
}

// pointSpan returns the depth range [lo,hi] over which a sample at elevation e sees a sub-light
// at height h through an occluder spanning [bottom,top] at depth d. An empty range is returned as lo=+Inf, hi=d.
func pointSpan(h, e, d, bottom, top float32) (lo, hi float32) {
	inf := math32.Inf(1)
	switch {
	case h > e:
		// The ray's height at the occluder rises from e toward h with depth.
		if bottom >= h || top <= e {
			return inf, d
		}
		k := d * (h - e)
		lo, hi = d, inf
		if bottom > e {
			lo = k / (h - bottom)
		}
		if top < h {
			hi = k / (h - top)
		}
	case h < e:
		// Terrain above the sub-light: the ray's height at the occluder falls from e toward h.
		if top <= h || bottom >= e {
			return inf, d
		}
		k := d * (e - h)
		lo, hi = d, inf
		if top < e {
			lo = k / (top - h)
		}
		if bottom > h {
			hi = k / (bottom - h)
		}
	default:
		if bottom <= e && e <= top {
			return d, inf
		}
		return inf, d
	}
	return lo, hi
}

// directionalSpan returns the range of distances t past the occluder over which a sample
// at elevation e sees a light at elevation angle theta through an occluder spanning [bottom,top].
// travelCos is the cosine between the light's horizontal direction of travel and the occluder normal.
// An empty range is returned as lo=+Inf, hi=0.
func directionalSpan(theta, e, bottom, top, travelCos float32) (lo, hi float32) {
	inf := math32.Inf(1)
	const vertical = math32.Pi/2 - 1e-6
	if e < bottom || e > top {
		if theta <= 0 || theta >= vertical || top <= e {
			return inf, 0
		}
	} else if theta <= 0 {
		return 0, inf // Grazing light blocked everywhere behind the occluder.
	} else if theta >= vertical {
		return 0, 0 // Overhead light casts no shadow.
	}
	// Ray height at the occluder rises with slope k per unit distance past it.
	k := math32.Tan(theta) / travelCos
	lo = maxf(0, (bottom-e)/k)
	hi = (top - e) / k
	return lo, hi
}
