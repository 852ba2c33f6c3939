package glrender

import (
	"errors"
	"fmt"
	"image"
	"image/color"

	"github.com/soypat/geometry/ms2"
	"github.com/soypat/gshadow/gleval"
	"golang.org/x/image/draw"
)

// ImageRenderer converts light fields to images.
type ImageRenderer struct {
	conv func(f float32) color.Color
	pos  []ms2.Vec
	frac []float32
}

// NewImageRenderer instances a new [ImageRenderer] to render images from light fields. A nil float->color conversion
// function results in a grayscale scheme where black is full shadow, white full light and red an invalid fraction.
func NewImageRenderer(evalBufferSize int, conversion func(float32) color.Color) (*ImageRenderer, error) {
	if evalBufferSize <= 64 {
		return nil, errors.New("too small evaluation buffer size")
	}
	if conversion == nil {
		conversion = grayscale
	}
	ir := &ImageRenderer{
		conv: conversion,
		pos:  make([]ms2.Vec, evalBufferSize),
		frac: make([]float32, evalBufferSize),
	}
	return ir, nil
}

// Render maps the field's bounds to the input image and renders it. It uses userData as an argument to all [gleval.LightField.Evaluate] calls.
// Image row 0 corresponds to the top (maximum Y) of the field's bounds.
func (ir *ImageRenderer) Render(field gleval.LightField, img setImage, userData any) error {
	return ir.RenderBox(field, field.Bounds(), img, userData)
}

// RenderBox is like Render but maps the bb region of the field to the image.
func (ir *ImageRenderer) RenderBox(field gleval.LightField, bb ms2.Box, img setImage, userData any) error {
	imgBB := img.Bounds()
	dxi := imgBB.Dx()
	dyi := imgBB.Dy()
	if len(ir.frac) < dxi {
		return fmt.Errorf("require evaluation buffer (%d) to be at least of length of image rows (%d)", len(ir.frac), dxi)
	} else if dxi == 0 || dyi == 0 {
		return errors.New("empty image")
	}
	sz := bb.Size()
	if !(sz.X > 0 && sz.Y > 0) {
		return errors.New("empty field bounds")
	}
	dx := sz.X / float32(dxi)
	dy := sz.Y / float32(dyi)
	x0 := bb.Min.X + dx/2 // Offset to sample at pixel centers.
	for j := 0; j < dyi; j++ {
		y := bb.Max.Y - dy/2 - float32(j)*dy
		err := ir.renderRow(field, j, y, x0, dx, imgBB, img, userData)
		if err != nil {
			return err
		}
	}
	return nil
}

func (ir *ImageRenderer) renderRow(field gleval.LightField, row int, y, xmin, dx float32, imgBB image.Rectangle, img setImage, userData any) error {
	dxi := imgBB.Dx()
	for i := 0; i < dxi; i++ {
		ir.pos[i] = ms2.Vec{X: xmin + float32(i)*dx, Y: y}
	}
	err := field.Evaluate(ir.pos[:dxi], ir.frac[:dxi], userData)
	if err != nil {
		return err
	}
	conv := ir.conv
	for i := 0; i < dxi; i++ {
		img.Set(i+imgBB.Min.X, row+imgBB.Min.Y, conv(ir.frac[i]))
	}
	return nil
}

// RenderScaled renders the field at 1/downsample of dst's resolution and upscales
// the result into dst with bilinear interpolation.
func (ir *ImageRenderer) RenderScaled(field gleval.LightField, dst draw.Image, downsample int, userData any) error {
	if downsample < 1 {
		return errors.New("downsample must be at least 1")
	}
	dstBB := dst.Bounds()
	w := max(1, dstBB.Dx()/downsample)
	h := max(1, dstBB.Dy()/downsample)
	small := image.NewRGBA(image.Rect(0, 0, w, h))
	err := ir.Render(field, small, userData)
	if err != nil {
		return err
	}
	draw.BiLinear.Scale(dst, dstBB, small, small.Bounds(), draw.Src, nil)
	return nil
}
