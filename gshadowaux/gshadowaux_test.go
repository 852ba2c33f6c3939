package gshadowaux

import (
	"bytes"
	"image/color"
	"image/png"
	"testing"

	"github.com/chewxy/math32"
	"github.com/soypat/geometry/ms2"
)

type constField struct {
	f     float32
	evals uint64
}

func (c *constField) Evaluate(pos []ms2.Vec, frac []float32, userData any) error {
	for i := range frac {
		frac[i] = c.f
	}
	c.evals += uint64(len(pos))
	return nil
}

func (c *constField) Bounds() ms2.Box { return ms2.Box{Max: ms2.Vec{X: 20, Y: 10}} }

func (c *constField) Evaluations() uint64 { return c.evals }

func TestRenderPNG(t *testing.T) {
	var buf bytes.Buffer
	field := &constField{f: 1}
	err := RenderPNG(&buf, field, RenderConfig{Height: 32, Downsample: 4, Silent: true})
	if err != nil {
		t.Fatal(err)
	}
	img, err := png.Decode(&buf)
	if err != nil {
		t.Fatal(err)
	}
	bb := img.Bounds()
	if bb.Dx() != 64 || bb.Dy() != 32 {
		t.Errorf("want 64x32 image, got %dx%d", bb.Dx(), bb.Dy())
	}
	if field.evals != 16*8 {
		t.Errorf("want %d downsampled evaluations, got %d", 16*8, field.evals)
	}
	r, g, b, _ := img.At(10, 10).RGBA()
	if r>>8 != 255 || g>>8 != 255 || b>>8 != 255 {
		t.Errorf("want white for full light, got %d %d %d", r>>8, g>>8, b>>8)
	}
}

func TestColorConversionLight(t *testing.T) {
	shadow := color.RGBA{R: 10, G: 10, B: 60, A: 255}
	lit := color.RGBA{R: 255, G: 230, B: 180, A: 255}
	conv := ColorConversionLight(shadow, lit)
	check := func(f float32, want color.RGBA) {
		t.Helper()
		got := conv(f).(color.RGBA)
		const tol = 2
		if absdiff(got.R, want.R) > tol || absdiff(got.G, want.G) > tol || absdiff(got.B, want.B) > tol {
			t.Errorf("fraction %g: want %v, got %v", f, want, got)
		}
	}
	check(0, shadow)
	check(1, lit)
	check(math32.NaN(), red)
	check(1.5, red)
}

func TestColorConversionBands(t *testing.T) {
	conv := ColorConversionBands(4, red)
	onLine := conv(0.5).(color.RGBA)
	if onLine != red {
		t.Errorf("want iso-line color at 0.5, got %v", onLine)
	}
	between := conv(0.375).(color.RGBA)
	if between.R != between.G || between.G != between.B {
		t.Errorf("want gray between iso-lines, got %v", between)
	}
	if conv(0).(color.RGBA).R != 0 || conv(1).(color.RGBA).R != 255 {
		t.Error("no iso-lines expected at full shadow or full light")
	}
}

func absdiff(a, b uint8) uint8 {
	if a > b {
		return a - b
	}
	return b - a
}
