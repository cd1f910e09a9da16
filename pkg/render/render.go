// Package render rasterizes a bitmap through a zoom/pan transform into a
// fixed size surface. The live preview and the confirmed output both go
// through Render, so what the user sees is what gets emitted.
package render

import (
	"errors"
	"fmt"
	"image"
	"image/color"
	"math"

	"golang.org/x/image/draw"
	"golang.org/x/image/math/f64"

	"github.com/menta2k/photo-cropper/pkg/types"
)

// MaxPixels bounds any surface allocated by this package
const MaxPixels = 64 << 20

// Background is the fill shown where the bitmap does not cover the viewport
var Background color.Color = color.White

// Matrix returns the source-to-surface affine transform for a bitmap with
// bounds src shown in a viewport of w x h logical pixels, rendered at scale
// surface pixels per logical pixel.
//
// The composition is: translate to viewport center, scale by zoom,
// translate by pan, then draw the bitmap centered at the origin.
func Matrix(t types.Transform, src image.Rectangle, w, h int, scale float64) f64.Aff3 {
	k := scale * t.Zoom
	ox := float64(src.Min.X) + float64(src.Dx())/2
	oy := float64(src.Min.Y) + float64(src.Dy())/2
	return f64.Aff3{
		k, 0, scale*float64(w)/2 + k*(t.PanX-ox),
		0, k, scale*float64(h)/2 + k*(t.PanY-oy),
	}
}

// Project maps a bitmap pixel position into viewport logical coordinates
func Project(t types.Transform, src image.Rectangle, w, h int, p types.Point) types.Point {
	m := Matrix(t, src, w, h, 1)
	return types.Point{
		X: m[0]*p.X + m[1]*p.Y + m[2],
		Y: m[3]*p.X + m[4]*p.Y + m[5],
	}
}

// Unproject maps a viewport logical position back into bitmap pixel space
func Unproject(t types.Transform, src image.Rectangle, w, h int, p types.Point) types.Point {
	ox := float64(src.Min.X) + float64(src.Dx())/2
	oy := float64(src.Min.Y) + float64(src.Dy())/2
	return types.Point{
		X: (p.X-float64(w)/2)/t.Zoom - t.PanX + ox,
		Y: (p.Y-float64(h)/2)/t.Zoom - t.PanY + oy,
	}
}

// NewSurface allocates a w x h RGBA surface, refusing empty or oversized ones
func NewSurface(w, h int) (*image.RGBA, error) {
	if w < 1 || h < 1 {
		return nil, &types.RenderError{Op: "allocate", Err: fmt.Errorf("invalid surface size %dx%d", w, h)}
	}
	if int64(w)*int64(h) > MaxPixels {
		return nil, &types.RenderError{Op: "allocate", Err: fmt.Errorf("surface %dx%d exceeds %d pixels", w, h, MaxPixels)}
	}
	return image.NewRGBA(image.Rect(0, 0, w, h)), nil
}

// Render draws src through t into a fresh surface of w x h logical pixels.
// scale is the number of surface pixels per logical pixel (1 for output,
// the device pixel ratio for previews).
func Render(src image.Image, t types.Transform, w, h int, scale float64) (*image.RGBA, error) {
	if src == nil {
		return nil, &types.RenderError{Op: "draw", Err: errors.New("no bitmap")}
	}
	if !(scale > 0) || math.IsInf(scale, 0) {
		return nil, &types.RenderError{Op: "draw", Err: fmt.Errorf("invalid scale %v", scale)}
	}
	if !(t.Zoom > 0) || math.IsInf(t.Zoom, 0) {
		return nil, &types.RenderError{Op: "draw", Err: fmt.Errorf("invalid zoom %v", t.Zoom)}
	}

	dst, err := NewSurface(int(math.Round(float64(w)*scale)), int(math.Round(float64(h)*scale)))
	if err != nil {
		return nil, err
	}

	// Full redraw: clear, then draw the whole bitmap under the transform
	draw.Draw(dst, dst.Bounds(), image.NewUniform(Background), image.Point{}, draw.Src)
	draw.BiLinear.Transform(dst, Matrix(t, src.Bounds(), w, h, scale), src, src.Bounds(), draw.Over, nil)

	return dst, nil
}
