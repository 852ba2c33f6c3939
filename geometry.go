package gshadow

import (
	"github.com/chewxy/math32"
	"github.com/soypat/geometry/ms2"
	"github.com/soypat/geometry/ms3"
)

// collinearTol is the distance in scene units under which a point is considered to lie on a line.
const collinearTol = 1e-3

func cross2(a, b ms2.Vec) float32 {
	return a.X*b.Y - a.Y*b.X
}

// perp rotates v by 90 degrees counter-clockwise.
func perp(v ms2.Vec) ms2.Vec {
	return ms2.Vec{X: -v.Y, Y: v.X}
}

func unit2(v ms2.Vec) ms2.Vec {
	n := ms2.Norm(v)
	if n < epstol {
		return ms2.Vec{}
	}
	return ms2.Scale(1/n, v)
}

func rotate2(v ms2.Vec, angle float32) ms2.Vec {
	s, c := math32.Sincos(angle)
	return ms2.Vec{X: c*v.X - s*v.Y, Y: s*v.X + c*v.Y}
}

func xy(v ms3.Vec) ms2.Vec {
	return ms2.Vec{X: v.X, Y: v.Y}
}

// Orientation returns twice the signed area of triangle abc. It is positive when
// a, b, c wind counter-clockwise, negative when clockwise and zero when collinear.
func Orientation(a, b, c ms2.Vec) float32 {
	return cross2(ms2.Sub(b, a), ms2.Sub(c, a))
}

// SideOfLine returns the signed distance of p to the line through a and b.
// Positive distances lie to the left of a→b.
func SideOfLine(p, a, b ms2.Vec) float32 {
	l := ms2.Norm(ms2.Sub(b, a))
	if l < epstol {
		return 0
	}
	return Orientation(a, b, p) / l
}

// SegmentIntersection returns the parameters t and u at which segments a0→a1 and b0→b1 intersect,
// such that the intersection point is a0 + t(a1-a0) = b0 + u(b1-b0). ok is false for parallel
// segments or when the intersection lies outside either segment.
func SegmentIntersection(a0, a1, b0, b1 ms2.Vec) (t, u float32, ok bool) {
	da := ms2.Sub(a1, a0)
	db := ms2.Sub(b1, b0)
	den := cross2(da, db)
	if absf(den) < epstol*ms2.Norm(da)*ms2.Norm(db) || den == 0 {
		return 0, 0, false
	}
	ab := ms2.Sub(b0, a0)
	t = cross2(ab, db) / den
	u = cross2(ab, da) / den
	ok = t >= 0 && t <= 1 && u >= 0 && u <= 1
	return t, u, ok
}

// LineIntersection returns the intersection of the lines p0+s*d0 and p1+s*d1.
// ok is false for parallel lines.
func LineIntersection(p0, d0, p1, d1 ms2.Vec) (ms2.Vec, bool) {
	den := cross2(d0, d1)
	if absf(den) < epstol*ms2.Norm(d0)*ms2.Norm(d1) || den == 0 {
		return ms2.Vec{}, false
	}
	s := cross2(ms2.Sub(p1, p0), d1) / den
	return ms2.Add(p0, ms2.Scale(s, d0)), true
}

// RaySegmentIntersection returns the distance along direction dir from origin at which
// the ray hits segment a→b. The distance is in units of dir's length.
func RaySegmentIntersection(origin, dir, a, b ms2.Vec) (dist float32, ok bool) {
	ab := ms2.Sub(b, a)
	den := cross2(dir, ab)
	if den == 0 || absf(den) < epstol*ms2.Norm(dir)*ms2.Norm(ab) {
		return 0, false
	}
	ao := ms2.Sub(a, origin)
	dist = cross2(ao, ab) / den
	u := cross2(ao, dir) / den
	return dist, dist >= 0 && u >= 0 && u <= 1
}

// ClosestPointOnSegment returns the point of segment a→b closest to p.
func ClosestPointOnSegment(p, a, b ms2.Vec) ms2.Vec {
	ab := ms2.Sub(b, a)
	l2 := ms2.Norm2(ab)
	if l2 == 0 {
		return a
	}
	t := clampf(ms2.Dot(ms2.Sub(p, a), ab)/l2, 0, 1)
	return ms2.Add(a, ms2.Scale(t, ab))
}

// clipSegmentCircle clips segment a→b to the disk of radius r centered at c.
// ok is false when the segment misses the disk entirely.
func clipSegmentCircle(a, b, c ms2.Vec, r float32) (a2, b2 ms2.Vec, ok bool) {
	d := ms2.Sub(b, a)
	f := ms2.Sub(a, c)
	qa := ms2.Norm2(d)
	qb := 2 * ms2.Dot(f, d)
	qc := ms2.Norm2(f) - r*r
	if qa == 0 {
		return a, b, qc <= 0
	}
	disc := qb*qb - 4*qa*qc
	if disc < 0 {
		return a, b, false
	}
	sq := math32.Sqrt(disc)
	t0 := (-qb - sq) / (2 * qa)
	t1 := (-qb + sq) / (2 * qa)
	if t1 < 0 || t0 > 1 {
		return a, b, false
	}
	t0 = maxf(t0, 0)
	t1 = minf(t1, 1)
	return ms2.Add(a, ms2.Scale(t0, d)), ms2.Add(a, ms2.Scale(t1, d)), true
}

// Barycentric returns the barycentric coordinates of p with respect to triangle abc
// such that p = u*a + v*b + w*c. All coordinates are NaN for degenerate triangles.
func Barycentric(p, a, b, c ms2.Vec) (u, v, w float32) {
	den := Orientation(a, b, c)
	if den == 0 {
		nan := math32.NaN()
		return nan, nan, nan
	}
	u = Orientation(p, b, c) / den
	v = Orientation(a, p, c) / den
	w = 1 - u - v
	return u, v, w
}

// InTriangle reports whether p lies inside or on the boundary of triangle abc.
func InTriangle(p, a, b, c ms2.Vec) bool {
	u, v, w := Barycentric(p, a, b, c)
	const tol = -1e-6
	return u >= tol && v >= tol && w >= tol
}

// WallCrossing intersects the 3D segment from→to with the vertical quad extruded from
// wall a→b between bottom and top. It returns the parameter along from→to of the crossing.
func WallCrossing(from, to ms3.Vec, a, b ms2.Vec, bottom, top float32) (t float32, ok bool) {
	t, _, ok = SegmentIntersection(xy(from), xy(to), a, b)
	if !ok {
		return 0, false
	}
	z := from.Z + t*(to.Z-from.Z)
	return t, z >= bottom && z <= top
}
