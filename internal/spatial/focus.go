package spatial

import (
	"image"
	"math"

	"github.com/golang/geo/r2"
	"github.com/jengzang/gazereader-go/internal/models"
	"golang.org/x/image/draw"
)

// FocusRect centers a region of the given size on the projected gaze point
// and clamps each axis so the rectangle stays inside the surface.
//
// When the region is larger than the surface on an axis, the rectangle is
// shrunk to the surface dimension on that axis and starts at 0.
func FocusRect(gaze models.GazePoint, surface models.PageSurface, size models.RegionSize) models.FocusRect {
	center := ToPixel(gaze, surface)
	x, w := clampAxis(center.X, size.Width, surface.WidthPx)
	y, h := clampAxis(center.Y, size.Height, surface.HeightPx)
	return models.FocusRect{X: x, Y: y, Width: w, Height: h}
}

func clampAxis(center float64, size, dim int) (origin, length int) {
	if dim <= 0 || size <= 0 {
		return 0, 0
	}
	if size >= dim {
		return 0, dim
	}
	origin = int(math.Round(center - float64(size)/2))
	if origin < 0 {
		origin = 0
	}
	if max := dim - size; origin > max {
		origin = max
	}
	return origin, size
}

// Rect converts a focus rect to an r2 rectangle.
func Rect(r models.FocusRect) r2.Rect {
	return r2.RectFromPoints(
		r2.Point{X: float64(r.X), Y: float64(r.Y)},
		r2.Point{X: float64(r.X + r.Width), Y: float64(r.Y + r.Height)},
	)
}

// Contains reports whether r lies fully inside the surface.
func Contains(surface models.PageSurface, r models.FocusRect) bool {
	if r.X < 0 || r.Y < 0 || r.Width < 0 || r.Height < 0 {
		return false
	}
	return Bounds(surface).Contains(Rect(r))
}

// ImageRect converts a focus rect to an image.Rectangle offset by the
// raster's origin.
func ImageRect(r models.FocusRect, origin image.Point) image.Rectangle {
	return image.Rect(r.X, r.Y, r.X+r.Width, r.Y+r.Height).Add(origin)
}

// Crop copies the focus region out of raster. The result has its origin at
// (0,0) and does not alias raster's pixels.
func Crop(raster image.Image, r models.FocusRect) *image.RGBA {
	src := ImageRect(r, raster.Bounds().Min).Intersect(raster.Bounds())
	dst := image.NewRGBA(image.Rect(0, 0, src.Dx(), src.Dy()))
	draw.Draw(dst, dst.Bounds(), raster, src.Min, draw.Src)
	return dst
}
