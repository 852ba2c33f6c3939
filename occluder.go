package gshadow

import (
	"math"

	"github.com/chewxy/math32"
	"github.com/soypat/geometry/ms2"
)

// ID identifies an occluder uniquely within a scene.
type ID uint64

// SenseType describes how an occluder interacts with light.
type SenseType uint8

const (
	// SenseNone occluders do not interact with light.
	SenseNone SenseType = iota
	// SenseLimited occluders are partially transparent: they dim light but never fully block it.
	SenseLimited
	// SenseNormal occluders fully block light.
	SenseNormal
	// SenseProximity occluders stop blocking as the light approaches past their threshold distance.
	SenseProximity
	// SenseDistance occluders stop blocking as the light moves away past their threshold distance.
	SenseDistance
)

func (s SenseType) String() string {
	switch s {
	case SenseNone:
		return "none"
	case SenseLimited:
		return "limited"
	case SenseNormal:
		return "normal"
	case SenseProximity:
		return "proximity"
	case SenseDistance:
		return "distance"
	}
	return "SenseType(?)"
}

// WallDirection restricts the side from which an occluder blocks light.
type WallDirection uint8

const (
	// DirectionBoth occluders block light arriving from either side.
	DirectionBoth WallDirection = iota
	// DirectionLeft occluders only block light arriving from the left of A→B.
	DirectionLeft
	// DirectionRight occluders only block light arriving from the right of A→B.
	DirectionRight
)

// Occluder is a height-extruded line segment that blocks or attenuates light.
type Occluder struct {
	ID   ID
	A, B ms2.Vec
	// TopZ and BottomZ delimit the vertical extrusion. Infinite values
	// are clamped to ±[MaxElevation].
	TopZ, BottomZ float32
	Sense         SenseType
	Direction     WallDirection
	// Open occluders such as open doors never block light.
	Open bool
	// Threshold is the distance in scene distance units past which
	// proximity and distance occluders change behavior. Zero means no threshold.
	Threshold float32
}

// NewOccluder returns a normal, infinitely tall occluder spanning a→b.
func NewOccluder(id ID, a, b ms2.Vec) Occluder {
	return Occluder{
		ID:      id,
		A:       a,
		B:       b,
		TopZ:    math32.Inf(1),
		BottomZ: math32.Inf(-1),
		Sense:   SenseNormal,
	}
}

// Length returns the occluder's horizontal length.
func (o Occluder) Length() float32 {
	return ms2.Norm(ms2.Sub(o.B, o.A))
}

// Top returns the clamped top elevation.
func (o Occluder) Top() float32 { return clampElevation(o.TopZ) }

// Bottom returns the clamped bottom elevation.
func (o Occluder) Bottom() float32 { return clampElevation(o.BottomZ) }

// HasThreshold reports whether threshold attenuation applies to the occluder.
func (o Occluder) HasThreshold() bool {
	return o.Threshold > 0 && (o.Sense == SenseProximity || o.Sense == SenseDistance)
}

// degenerate reports geometry that can never cast a shadow.
func (o Occluder) degenerate() bool {
	return !finite2(o.A) || !finite2(o.B) || math32.IsNaN(o.TopZ) || math32.IsNaN(o.BottomZ) ||
		o.TopZ < o.BottomZ || o.Length() < collinearTol
}

// endpoint returns A for 0 and B for 1.
func (o Occluder) endpoint(i int) ms2.Vec {
	if i == 0 {
		return o.A
	}
	return o.B
}

// EndpointKey identifies an endpoint position after rounding its coordinates to integers.
// Occluder endpoints with matching keys are considered shared.
type EndpointKey uint64

// KeyOf returns the key of point p.
func KeyOf(p ms2.Vec) EndpointKey {
	x := int32(math.Round(float64(p.X)))
	y := int32(math.Round(float64(p.Y)))
	return EndpointKey(uint64(uint32(x))<<32 | uint64(uint32(y)))
}

// Pos returns the integer position the key was rounded to.
func (k EndpointKey) Pos() ms2.Vec {
	return ms2.Vec{X: float32(int32(uint32(k >> 32))), Y: float32(int32(uint32(k)))}
}

// words splits the key into its low and high 32 bit halves for GPU upload.
func (k EndpointKey) words() [2]uint32 {
	return [2]uint32{uint32(k), uint32(k >> 32)}
}

// LinkKind classifies the corner an occluder endpoint shares with a neighbor.
type LinkKind uint8

const (
	// LinkNone endpoints do not interact with any neighbor.
	LinkNone LinkKind = iota
	// LinkConcave endpoints form a sealed corner: no light passes the joint.
	LinkConcave
	// LinkKeyed endpoints have their penumbra clipped toward a neighbor's far endpoint.
	LinkKeyed
)

func (k LinkKind) String() string {
	switch k {
	case LinkNone:
		return "none"
	case LinkConcave:
		return "concave"
	case LinkKeyed:
		return "keyed"
	}
	return "LinkKind(?)"
}

// LinkState is the classification of one occluder endpoint. Key and Pos
// are only meaningful for [LinkKeyed] and hold the linked far endpoint.
type LinkState struct {
	Kind LinkKind
	Key  EndpointKey
	Pos  ms2.Vec
}

func keyedTo(p ms2.Vec) LinkState {
	return LinkState{Kind: LinkKeyed, Key: KeyOf(p), Pos: p}
}
