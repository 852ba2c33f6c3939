// Package glrender samples light fields into images for inspection.
package glrender

import (
	"image"
	"image/color"

	"github.com/chewxy/math32"
)

type setImage = interface {
	image.Image
	Set(x, y int, c color.Color)
}

var red = color.RGBA{R: 255, A: 255}

// grayscale maps light fraction 0 to black and 1 to white. Invalid fractions are red.
func grayscale(f float32) color.Color {
	if math32.IsNaN(f) || math32.IsInf(f, 0) || f < 0 || f > 1 {
		return red
	}
	return color.Gray{Y: uint8(f*255 + 0.5)}
}
