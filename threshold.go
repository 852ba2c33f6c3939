package gshadow

import (
	"github.com/soypat/geometry/ms2"
)

// Attenuation describes how far a threshold occluder's shadow is suppressed around a light.
// Samples closer to the light than the square root of RadiusSq are not shadowed by the occluder.
type Attenuation struct {
	// Inside is the distance from the light to the closest point of the occluder.
	Inside float32
	// Outside is the attenuated part of the light radius past Inside.
	// Zero means the occluder blocks fully.
	Outside float32
	// RadiusSq is (Inside+Outside)².
	RadiusSq float32
}

// Active reports whether the attenuation suppresses any shadow at all.
func (a Attenuation) Active() bool { return a.RadiusSq > 0 }

// AttenuationOf computes the threshold attenuation of o lit by l. Occluders without
// a threshold and directional lights have zero attenuation.
func AttenuationOf(o Occluder, l Light, cfg Config) Attenuation {
	if !o.HasThreshold() || l.Kind != PointLight {
		return Attenuation{}
	}
	lp := l.pos2()
	inside := ms2.Norm(ms2.Sub(ClosestPointOnSegment(lp, o.A, o.B), lp))
	radius := l.Radius
	if radius <= 0 {
		radius = cfg.maxShadowLength()
	}
	outside := radius - inside
	if outside <= 0 {
		return Attenuation{Inside: inside, RadiusSq: inside * inside}
	}
	dt := o.Threshold * cfg.SceneDistanceScale
	var frac float32
	switch {
	case dt <= 0:
		frac = 1
	case o.Sense == SenseProximity:
		if inside > 0 {
			frac = 1 - dt/inside
		}
	case o.Sense == SenseDistance:
		frac = 1 - inside/dt
	}
	outside = clampf(outside*cfg.ThresholdMultiplier*frac, 0, outside)
	r := inside + outside
	return Attenuation{Inside: inside, Outside: outside, RadiusSq: r * r}
}
