package gshadow

import (
	"github.com/chewxy/math32"
	"github.com/soypat/geometry/ms2"
	"github.com/soypat/geometry/ms3"
)

// Obstructer answers visibility queries against a set of occluders.
type Obstructer interface {
	// Obstructed reports whether the 3D segment from→to crosses any occluder
	// other than those listed in skip.
	Obstructed(from, to ms3.Vec, skip ...ID) bool
}

// Classify determines how the corner that occluder o shares with neighbor at endpoint shared
// affects o's shadow under light l. Limited neighbors only count as blocking when obs reports
// the corner's top is hidden from the light by some other occluder. A nil obs treats
// limited neighbors as transparent.
func Classify(o Occluder, shared ms2.Vec, neighbor Occluder, l Light, cfg Config, obs Obstructer) LinkState {
	key := KeyOf(shared)
	otherEnd, ok := farEnd(o, key)
	if !ok {
		return LinkState{}
	}
	neighborEnd, ok := farEnd(neighbor, key)
	if !ok || !linkBlocks(neighbor, o.ID, shared, l, cfg, obs) {
		return LinkState{}
	}
	origin := l.origin(shared, cfg)
	mid := ms2.Sub(shared, origin)
	toOther := ms2.Sub(otherEnd, shared)
	toNeighbor := ms2.Sub(neighborEnd, shared)
	so := cross2(mid, toOther)
	sn := cross2(mid, toNeighbor)
	switch {
	case so*sn < 0:
		// Far ends on opposite sides of the ray through the corner: no light passes the joint.
		return LinkState{Kind: LinkConcave}
	case so == 0 || sn == 0 || ms2.Dot(toNeighbor, mid) <= 0:
		return LinkState{}
	}
	umbra, ok := umbraDirection(o, shared, otherEnd, origin, l)
	if !ok {
		return LinkState{}
	}
	// Neighbor on the shadow-casting side: key to it only if it leaves the corner
	// strictly between the mid ray and the umbra ray.
	if cross2(umbra, toOther)*cross2(umbra, toNeighbor) < 0 {
		return keyedTo(neighborEnd)
	}
	return LinkState{}
}

// farEnd returns the endpoint of o opposite the one with key.
func farEnd(o Occluder, key EndpointKey) (ms2.Vec, bool) {
	ka, kb := KeyOf(o.A), KeyOf(o.B)
	switch {
	case ka == key && kb != key:
		return o.B, true
	case kb == key && ka != key:
		return o.A, true
	}
	return ms2.Vec{}, false
}

// linkBlocks reports whether neighbor seals light at the shared corner.
func linkBlocks(neighbor Occluder, self ID, shared ms2.Vec, l Light, cfg Config, obs Obstructer) bool {
	switch {
	case neighbor.Sense == SenseNone || neighbor.Open:
		return false
	case neighbor.Sense != SenseLimited:
		return true
	case obs == nil:
		return false
	}
	from := ms3.Vec{X: shared.X, Y: shared.Y, Z: neighbor.Top()}
	var to ms3.Vec
	switch l.Kind {
	case DirectionalLight:
		dist := cfg.maxShadowLength()
		sun := ms2.Scale(dist, l.sunDir())
		rise := dist * math32.Tan(clampf(l.Elevation, 0, 89.9)*deg2rad)
		to = ms3.Vec{X: from.X + sun.X, Y: from.Y + sun.Y, Z: from.Z + rise}
	default:
		to = l.Position
	}
	return obs.Obstructed(from, to, self, neighbor.ID)
}

// umbraDirection returns the direction of the umbra ray leaving endpoint p of o, the
// ray cast by the sub-light that bends furthest into the shadow. ok is false for ideal lights.
func umbraDirection(o Occluder, p, otherEnd, origin ms2.Vec, l Light) (dir ms2.Vec, ok bool) {
	out := unit2(ms2.Sub(p, otherEnd))
	normal := perp(unit2(ms2.Sub(o.B, o.A)))
	switch l.Kind {
	case PointLight:
		size := l.size()
		if size == 0 {
			return dir, false
		}
		return ms2.Sub(p, ms2.Add(origin, ms2.Scale(size, out))), true
	case DirectionalLight:
		phi := l.solarAngle() * deg2rad
		if phi == 0 {
			return dir, false
		}
		travel := ms2.Scale(-1, l.sunDir())
		if ms2.Dot(normal, travel) < 0 {
			normal = ms2.Scale(-1, normal)
		}
		d0, d1 := rotate2(travel, -phi), rotate2(travel, phi)
		if slopeOf(d0, out, normal) <= slopeOf(d1, out, normal) {
			return d0, true
		}
		return d1, true
	}
	return dir, false
}
