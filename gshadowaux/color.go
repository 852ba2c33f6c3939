package gshadowaux

import (
	"image/color"

	math "github.com/chewxy/math32"
	"github.com/soypat/glgl/math/ms1"
)

var red = color.RGBA{R: 255, A: 255}

func invalidFraction(f float32) bool {
	return math.IsNaN(f) || f < 0 || f > 1
}

// ColorConversionLight returns a conversion that blends from shadow color c0 at light
// fraction 0 to lit color c1 at fraction 1. Blending happens on linear light intensities
// so that half light looks half as bright. Invalid fractions are red.
func ColorConversionLight(c0, c1 color.Color) func(f float32) color.Color {
	l0 := linearRGB(c0)
	l1 := linearRGB(c1)
	return func(f float32) color.Color {
		if invalidFraction(f) {
			return red
		}
		var px [3]float32
		for i := range px {
			px[i] = toSRGB(ms1.Interp(l0[i], l1[i], f))
		}
		c := rgbToC(px[0], px[1], px[2])
		return color.RGBA{R: uint8(c >> 16), G: uint8(c >> 8), B: uint8(c), A: 255}
	}
}

// ColorConversionGrayscale maps light fractions to gray levels with gamma correction.
// A gamma of 1 is linear.
func ColorConversionGrayscale(gamma float32) func(f float32) color.Color {
	if gamma <= 0 {
		gamma = 1
	}
	inv := 1 / gamma
	return func(f float32) color.Color {
		if invalidFraction(f) {
			return red
		}
		return color.Gray{Y: uint8(math.Pow(f, inv)*255 + 0.5)}
	}
}

// ColorConversionBands draws the light fraction in grayscale overlaid with n-1 thin iso-lines
// at evenly spaced fractions, useful for inspecting penumbra falloff.
func ColorConversionBands(n int, line color.Color) func(f float32) color.Color {
	if n < 2 {
		n = 2
	}
	lr, lg, lb, _ := line.RGBA()
	lc := [3]float32{float32(lr>>8) / 255, float32(lg>>8) / 255, float32(lb>>8) / 255}
	const width = 0.01
	return func(f float32) color.Color {
		if invalidFraction(f) {
			return red
		}
		band := f * float32(n)
		dist := math.Abs(band-math.Round(band)) / float32(n)
		if math.Round(band) == 0 || int(math.Round(band)) == n {
			dist = 1 // No lines at full shadow or full light.
		}
		t := 1 - ms1.SmoothStep(0, width, dist)
		r := ms1.Interp(f, lc[0], t)
		g := ms1.Interp(f, lc[1], t)
		b := ms1.Interp(f, lc[2], t)
		c := rgbToC(r, g, b)
		return color.RGBA{R: uint8(c >> 16), G: uint8(c >> 8), B: uint8(c), A: 255}
	}
}

func percentUint64(num, denom uint64) float32 {
	if denom == 0 {
		return 0
	}
	return math.Trunc(10000*float32(num)/float32(denom)) / 100
}

// linearRGB decodes the sRGB components of c to linear intensities in [0,1].
func linearRGB(c color.Color) (l [3]float32) {
	r, g, b, _ := c.RGBA()
	for i, v := range [3]uint32{r, g, b} {
		l[i] = fromSRGB(float32(v>>8) / math.MaxUint8)
	}
	return l
}

func fromSRGB(v float32) float32 {
	if v <= 0.04045 {
		return v / 12.92
	}
	return math.Pow((v+0.055)/1.055, 2.4)
}

func toSRGB(v float32) float32 {
	if v <= 0.0031308 {
		return 12.92 * v
	}
	return 1.055*math.Pow(v, 1/2.4) - 0.055
}

// rgbToC packs r, g, and b in [0,1] into the 24 least significant bits of c. Inputs are clamped.
func rgbToC(r, g, b float32) (c uint32) {
	return uint32(ms1.Clamp(r, 0, 1)*math.MaxUint8+0.5)<<16 |
		uint32(ms1.Clamp(g, 0, 1)*math.MaxUint8+0.5)<<8 |
		uint32(ms1.Clamp(b, 0, 1)*math.MaxUint8+0.5)
}
