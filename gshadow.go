package gshadow

import (
	"errors"

	"github.com/chewxy/math32"
	"github.com/soypat/geometry/ms2"
	"github.com/soypat/glgl/math/ms1"
)

const (
	// MaxElevation is the magnitude infinite occluder tops and bottoms are clamped to
	// so that intersection math never overflows float32.
	MaxElevation = 1e7
	// epstol is used to check for badly conditioned denominators
	// such as lengths used for normalization or orientation tests.
	epstol = 6e-7
	// largeSlope bounds the lateral spread of rays travelling nearly parallel to an occluder.
	largeSlope = 1e6
	deg2rad    = math32.Pi / 180
)

var (
	// ErrInvariant is returned when the registry's internal bookkeeping is found corrupted.
	// The offending mutation is rejected and the registry keeps its last valid state.
	ErrInvariant = errors.New("gshadow: registry invariant violated")

	errMismatchBufferLength = errors.New("position and elevation buffer length mismatch")
)

// Config holds scene-wide constants that shape shadow projection and composition.
// The zero value is not useful; start from [DefaultConfig].
type Config struct {
	// CanvasMinElevation is the lowest terrain elevation of the scene. Shadow
	// triangles are sized so they cover terrain at this elevation.
	CanvasMinElevation float32
	// SceneDistanceScale converts occluder threshold distances to scene units.
	SceneDistanceScale float32
	// ThresholdMultiplier scales the attenuated outside radius of threshold occluders.
	ThresholdMultiplier float32
	// LimitedOpacity is the fraction of light a limited occluder removes at full shadow.
	LimitedOpacity float32
	// LimitedFloor is the minimum light fraction any number of limited occluders can leave.
	LimitedFloor float32
	// MaxShadowLength caps the extent of shadows that would otherwise be infinite,
	// such as those of directional or unbounded lights.
	MaxShadowLength float32
}

// DefaultConfig returns the configuration used when none is specified.
func DefaultConfig() Config {
	return Config{
		SceneDistanceScale:  1,
		ThresholdMultiplier: 1,
		LimitedOpacity:      0.5,
		LimitedFloor:        0.25,
		MaxShadowLength:     1e6,
	}
}

func (cfg Config) maxShadowLength() float32 {
	if cfg.MaxShadowLength <= 0 || math32.IsNaN(cfg.MaxShadowLength) {
		return 1e6
	}
	return cfg.MaxShadowLength
}

func minf(a, b float32) float32 {
	return math32.Min(a, b)
}

func maxf(a, b float32) float32 {
	return math32.Max(a, b)
}

func absf(a float32) float32 {
	return math32.Abs(a)
}

func clampf(v, Min, Max float32) float32 {
	return ms1.Clamp(v, Min, Max)
}

func finite(v float32) bool {
	return !math32.IsInf(v, 0) && !math32.IsNaN(v)
}

func finite2(v ms2.Vec) bool {
	return finite(v.X) && finite(v.Y)
}

// clampElevation maps infinite and oversized elevations onto ±MaxElevation.
func clampElevation(z float32) float32 {
	if math32.IsNaN(z) {
		return z
	}
	return clampf(z, -MaxElevation, MaxElevation)
}

// rampUp is 0 at or below a, 1 at or above b and linear in-between.
// An infinite upper bound never reaches 1.
func rampUp(x, a, b float32) float32 {
	if x <= a {
		return 0
	} else if x >= b {
		return 1
	} else if math32.IsInf(b, 1) {
		return 0
	}
	return (x - a) / (b - a)
}

// sort3 returns a, b, c in ascending order.
func sort3(a, b, c float32) [3]float32 {
	if a > b {
		a, b = b, a
	}
	if b > c {
		b, c = c, b
	}
	if a > b {
		a, b = b, a
	}
	return [3]float32{a, b, c}
}
