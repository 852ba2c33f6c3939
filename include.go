package gshadow

import (
	"github.com/soypat/geometry/ms2"
)

// Include reports whether occluder o can affect light l. Excluded occluders
// contribute nothing to the light's shadow map and are never registered.
func Include(o Occluder, l Light, cfg Config) bool {
	if o.Sense == SenseNone || o.Open || o.degenerate() {
		return false
	}
	if o.Bottom() > l.elevationZ() || o.Top() < cfg.CanvasMinElevation {
		return false
	}
	switch l.Kind {
	case PointLight:
		return includePoint(o, l)
	case DirectionalLight:
		return includeDirectional(o, l)
	}
	return false
}

func includePoint(o Occluder, l Light) bool {
	lp := l.pos2()
	if !finite2(lp) || !finite(l.Position.Z) {
		return false
	}
	side := SideOfLine(lp, o.A, o.B)
	if absf(side) <= collinearTol {
		return false // Light on the occluder's line.
	}
	if !facing(o.Direction, side) {
		return false
	}
	a, b := o.A, o.B
	if l.Radius > 0 {
		var ok bool
		a, b, ok = clipSegmentCircle(a, b, lp, l.Radius)
		if !ok {
			return false
		}
	}
	return segmentInCone(a, b, l)
}

func includeDirectional(o Occluder, l Light) bool {
	if o.HasThreshold() {
		return false // Thresholds are meaningless at infinite distance.
	}
	t := unit2(ms2.Sub(o.B, o.A))
	side := cross2(t, l.sunDir())
	if absf(side) <= epstol {
		return false // Light travels parallel to occluder.
	}
	return facing(o.Direction, side)
}

// facing reports whether a wall restricted to dir blocks light
// arriving from side, positive being the left of A→B.
func facing(dir WallDirection, side float32) bool {
	switch dir {
	case DirectionLeft:
		return side > 0
	case DirectionRight:
		return side < 0
	}
	return true
}

// segmentInCone reports whether any part of a→b lies within l's emission cone.
// a and b are expected to be already clipped to the light's radius.
func segmentInCone(a, b ms2.Vec, l Light) bool {
	if l.omnidirectional() {
		return true
	}
	lp := l.pos2()
	if l.inCone(ms2.Sub(a, lp)) || l.inCone(ms2.Sub(b, lp)) {
		return true
	}
	// Both ends lie outside: the segment can only pass through
	// the cone by crossing one of its boundary rays.
	axis, _ := l.coneAxis()
	half := l.EmissionAngle * deg2rad / 2
	for _, angle := range [2]float32{half, -half} {
		if _, ok := RaySegmentIntersection(lp, rotate2(axis, angle), a, b); ok {
			return true
		}
	}
	return false
}
