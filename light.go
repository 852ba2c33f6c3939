package gshadow

import (
	"github.com/chewxy/math32"
	"github.com/soypat/geometry/ms2"
	"github.com/soypat/geometry/ms3"
)

// LightKind selects which of [Light]'s payloads is in use.
type LightKind uint8

const (
	// PointLight emits from a finite Position.
	PointLight LightKind = iota
	// DirectionalLight is infinitely distant and characterized by Azimuth and Elevation.
	DirectionalLight
)

func (k LightKind) String() string {
	switch k {
	case PointLight:
		return "point"
	case DirectionalLight:
		return "directional"
	}
	return "LightKind(?)"
}

// Light describes a light source. Angles are in degrees.
type Light struct {
	Kind LightKind
	// Position is the point light's scene position. Z is its elevation.
	Position ms3.Vec
	// Azimuth is the horizontal direction toward a directional light measured from +X.
	Azimuth float32
	// Elevation is the angle of a directional light above the horizon. 90 is straight down.
	Elevation float32
	// Radius bounds the lit area of a point light. Zero is unbounded.
	Radius float32
	// Size is the physical extent of a point light. Zero is an ideal point.
	Size float32
	// SolarAngle is the angular size of a directional light.
	SolarAngle float32
	// EmissionAngle restricts emission to a cone. Zero or 360 and above is omnidirectional.
	EmissionAngle float32
	// Rotation is the direction of the emission cone's axis measured from +X.
	Rotation float32
}

// NewPointLight returns an omnidirectional point light.
func NewPointLight(pos ms3.Vec, radius, size float32) Light {
	return Light{Kind: PointLight, Position: pos, Radius: radius, Size: size}
}

// NewDirectionalLight returns a directional light shining from azimuth at elevation above the horizon.
func NewDirectionalLight(azimuth, elevation, solarAngle float32) Light {
	return Light{Kind: DirectionalLight, Azimuth: azimuth, Elevation: elevation, SolarAngle: solarAngle}
}

func (l Light) size() float32 {
	if l.Kind != PointLight || !(l.Size > 0) || !finite(l.Size) {
		return 0
	}
	return l.Size
}

func (l Light) solarAngle() float32 {
	if l.Kind != DirectionalLight || !(l.SolarAngle > 0) || !finite(l.SolarAngle) {
		return 0
	}
	return minf(l.SolarAngle, 89)
}

// elevationZ returns the height against which occluder vertical extents are tested.
func (l Light) elevationZ() float32 {
	if l.Kind == DirectionalLight {
		return math32.Inf(1)
	}
	return l.Position.Z
}

func (l Light) pos2() ms2.Vec {
	return xy(l.Position)
}

// sunDir is the horizontal unit direction pointing from the scene toward a directional light.
func (l Light) sunDir() ms2.Vec {
	s, c := math32.Sincos(l.Azimuth * deg2rad)
	return ms2.Vec{X: c, Y: s}
}

// origin returns the light's 2D origin as seen from ref. Directional lights
// get a synthetic origin far away along the direction toward the light.
func (l Light) origin(ref ms2.Vec, cfg Config) ms2.Vec {
	if l.Kind == DirectionalLight {
		return ms2.Add(ref, ms2.Scale(cfg.maxShadowLength(), l.sunDir()))
	}
	return l.pos2()
}

func (l Light) omnidirectional() bool {
	return l.Kind != PointLight || !(l.EmissionAngle > 0) || l.EmissionAngle >= 360
}

// coneAxis returns the emission cone's unit axis and the cosine of its half angle.
func (l Light) coneAxis() (axis ms2.Vec, cosHalf float32) {
	s, c := math32.Sincos(l.Rotation * deg2rad)
	return ms2.Vec{X: c, Y: s}, math32.Cos(l.EmissionAngle * deg2rad / 2)
}

// inCone reports whether the direction dir from the light lies within its emission cone.
func (l Light) inCone(dir ms2.Vec) bool {
	if l.omnidirectional() {
		return true
	}
	n := ms2.Norm(dir)
	if n < epstol {
		return true
	}
	axis, cosHalf := l.coneAxis()
	return ms2.Dot(dir, axis) >= cosHalf*n
}

// Reaches reports whether the light's radius and emission cone cover p.
// Directional lights reach every point.
func (l Light) Reaches(p ms2.Vec) bool {
	if l.Kind == DirectionalLight {
		return true
	}
	d := ms2.Sub(p, l.pos2())
	if l.Radius > 0 && ms2.Norm2(d) > l.Radius*l.Radius {
		return false
	}
	return l.inCone(d)
}

// ChangeSet flags which light parameters changed between two descriptors.
type ChangeSet uint16

const (
	ChangedPosition ChangeSet = 1 << iota
	ChangedRadius
	ChangedElevation
	ChangedRotation
	ChangedAngle
	ChangedSize
	ChangedSolarAngle
	ChangedKind
)

// inclusionChanges is the set of changes that may alter which occluders are included.
const inclusionChanges = ChangedPosition | ChangedRadius | ChangedElevation | ChangedRotation | ChangedAngle | ChangedKind

// Has reports whether any flag in c2 is set in c.
func (c ChangeSet) Has(c2 ChangeSet) bool { return c&c2 != 0 }

// Diff returns the changes required to go from prev to next.
func Diff(prev, next Light) (c ChangeSet) {
	if prev.Kind != next.Kind {
		c |= ChangedKind
	}
	if prev.Position.X != next.Position.X || prev.Position.Y != next.Position.Y || prev.Azimuth != next.Azimuth {
		c |= ChangedPosition
	}
	if prev.Position.Z != next.Position.Z || prev.Elevation != next.Elevation {
		c |= ChangedElevation
	}
	if prev.Radius != next.Radius {
		c |= ChangedRadius
	}
	if prev.Rotation != next.Rotation {
		c |= ChangedRotation
	}
	if prev.EmissionAngle != next.EmissionAngle {
		c |= ChangedAngle
	}
	if prev.Size != next.Size {
		c |= ChangedSize
	}
	if prev.SolarAngle != next.SolarAngle {
		c |= ChangedSolarAngle
	}
	return c
}
