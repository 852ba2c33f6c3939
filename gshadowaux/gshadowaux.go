package gshadowaux

import (
	"errors"
	"fmt"
	"image"
	"image/color"
	"image/png"
	"io"
	"os"
	"time"

	"github.com/soypat/gshadow/gleval"
	"github.com/soypat/gshadow/glrender"
)

// RenderConfig configures [RenderPNG] and [RenderPNGFile].
type RenderConfig struct {
	// Height of the image in pixels. The width is sized automatically to preserve the field's aspect ratio.
	Height int
	// Downsample evaluates the field at a fraction of the image resolution and upscales the
	// result bilinearly. Values below 2 evaluate every pixel.
	Downsample int
	// Conversion maps light fractions to colors. Nil uses linear grayscale.
	Conversion func(float32) color.Color
	Silent     bool
}

// RenderPNGFile renders a light field as an image and saves result to a PNG file with said filename.
func RenderPNGFile(filename string, field gleval.LightField, cfg RenderConfig) error {
	fp, err := os.Create(filename)
	if err != nil {
		return err
	}
	defer fp.Close()
	err = RenderPNG(fp, field, cfg)
	if err != nil {
		return err
	}
	return fp.Sync()
}

// RenderPNG is an auxiliary function to aid users in inspecting light fields quickly.
// Ideally users should implement their own rendering functions since applications may vary widely.
func RenderPNG(w io.Writer, field gleval.LightField, cfg RenderConfig) (err error) {
	if field == nil {
		return errors.New("nil light field")
	} else if cfg.Height <= 0 {
		return errors.New("RenderPNG requires positive image height in config")
	}
	log := func(args ...any) {
		if !cfg.Silent {
			fmt.Println(args...)
		}
	}
	bb := field.Bounds()
	sz := bb.Size()
	if !(sz.X > 0 && sz.Y > 0) {
		return errors.New("light field has empty bounds")
	}
	conv := cfg.Conversion
	if conv == nil {
		conv = ColorConversionGrayscale(1)
	}
	pixPerUnit := float64(cfg.Height) / float64(sz.Y)
	width := max(1, int(pixPerUnit*float64(sz.X)))
	img := image.NewRGBA(image.Rect(0, 0, width, cfg.Height))
	renderer, err := glrender.NewImageRenderer(max(4096, width), conv)
	if err != nil {
		return err
	}
	e, hasEvals := field.(interface{ Evaluations() uint64 })
	var evalsStart uint64
	if hasEvals {
		evalsStart = e.Evaluations()
	}
	watch := stopwatch()
	if cfg.Downsample > 1 {
		err = renderer.RenderScaled(field, img, cfg.Downsample, nil)
	} else {
		err = renderer.Render(field, img, nil)
	}
	if err != nil {
		return fmt.Errorf("rendering light field: %w", err)
	}
	if hasEvals {
		evals := e.Evaluations() - evalsStart
		pixels := uint64(width * cfg.Height)
		log("evaluated light field", evals, "times for", pixels, "pixels in", watch(), "with", 100-percentUint64(evals, pixels), "percent evaluations omitted")
	} else {
		log("rendered", width, "x", cfg.Height, "image in", watch())
	}
	return png.Encode(w, img)
}

func stopwatch() func() time.Duration {
	start := time.Now()
	return func() time.Duration {
		return time.Since(start)
	}
}
