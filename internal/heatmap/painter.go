package heatmap

import (
	"image"
	"image/color"
	"math"

	"github.com/golang/geo/r2"
	"golang.org/x/image/draw"
	"golang.org/x/image/vector"
)

// kappa approximates a quarter circle with a cubic Bézier.
const kappa = 0.5522847498307936

// Painter rasterises spots into an RGBA overlay.
type Painter struct {
	Color       color.RGBA // Heat colour; alpha is ignored
	TargetColor color.RGBA // Calibration target colour; alpha is ignored

	z *vector.Rasterizer
}

// NewPainter creates a painter with the default palette.
func NewPainter() *Painter {
	return &Painter{
		Color:       color.RGBA{R: 255, G: 64, B: 32, A: 255},
		TargetColor: color.RGBA{R: 32, G: 160, B: 255, A: 255},
	}
}

// Paint draws every spot as an anti-aliased disc on a transparent w×h frame.
func (p *Painter) Paint(w, h int, spots []Spot) *image.RGBA {
	frame := image.NewRGBA(image.Rect(0, 0, w, h))
	for _, s := range spots {
		if s.Opacity <= 0 || s.Radius <= 0 {
			continue
		}
		p.disc(frame, s.Center, s.Radius, p.Color, s.Opacity)
	}
	return frame
}

// DrawTarget draws the calibration target: an opaque ring around a dot.
func (p *Painter) DrawTarget(frame *image.RGBA, center r2.Point, radius float64) {
	p.disc(frame, center, radius, p.TargetColor, 0.9)
	p.disc(frame, center, radius*0.35, color.RGBA{R: 255, G: 255, B: 255, A: 255}, 1)
}

func (p *Painter) disc(dst *image.RGBA, c r2.Point, r float64, col color.RGBA, opacity float64) {
	b := dst.Bounds()
	if p.z == nil {
		p.z = vector.NewRasterizer(b.Dx(), b.Dy())
	} else {
		p.z.Reset(b.Dx(), b.Dy())
	}
	p.z.DrawOp = draw.Over

	x, y := float32(c.X), float32(c.Y)
	rr := float32(r)
	k := float32(kappa) * rr
	p.z.MoveTo(x+rr, y)
	p.z.CubeTo(x+rr, y+k, x+k, y+rr, x, y+rr)
	p.z.CubeTo(x-k, y+rr, x-rr, y+k, x-rr, y)
	p.z.CubeTo(x-rr, y-k, x-k, y-rr, x, y-rr)
	p.z.CubeTo(x+k, y-rr, x+rr, y-k, x+rr, y)
	p.z.ClosePath()

	a := uint8(math.Round(255 * math.Min(1, opacity)))
	src := image.NewUniform(color.NRGBA{R: col.R, G: col.G, B: col.B, A: a})
	p.z.Draw(dst, b, src, image.Point{})
}

// Flatten composites the overlay on top of a copy of the page raster.
func Flatten(page image.Image, overlay image.Image) *image.RGBA {
	b := page.Bounds()
	out := image.NewRGBA(image.Rect(0, 0, b.Dx(), b.Dy()))
	draw.Draw(out, out.Bounds(), page, b.Min, draw.Src)
	if overlay != nil {
		draw.Draw(out, out.Bounds(), overlay, overlay.Bounds().Min, draw.Over)
	}
	return out
}
