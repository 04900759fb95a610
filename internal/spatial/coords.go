// Package spatial holds the coordinate transforms between normalized gaze
// space and page-pixel space, and the focus-region geometry built on them.
// Every normalized-to-pixel conversion in the runtime goes through ToPixel.
package spatial

import (
	"math"

	"github.com/golang/geo/r2"
	"github.com/jengzang/gazereader-go/internal/models"
)

// ToPixel projects a normalized point onto the page raster.
func ToPixel(p models.GazePoint, surface models.PageSurface) r2.Point {
	return r2.Point{
		X: float64(surface.WidthPx) * p.X,
		Y: float64(surface.HeightPx) * p.Y,
	}
}

// NormalizedToPixel projects a calibration target onto the page raster.
func NormalizedToPixel(p models.NormalizedPoint, surface models.PageSurface) r2.Point {
	return ToPixel(models.GazePoint{X: p.X, Y: p.Y}, surface)
}

// ToNormalized maps a pixel point back into [0,1]² gaze space. Points outside
// the raster are clamped. A zero-sized surface maps everything to the origin.
func ToNormalized(p r2.Point, surface models.PageSurface) models.GazePoint {
	if surface.WidthPx <= 0 || surface.HeightPx <= 0 {
		return models.GazePoint{}
	}
	return models.GazePoint{
		X: Clamp01(p.X / float64(surface.WidthPx)),
		Y: Clamp01(p.Y / float64(surface.HeightPx)),
	}
}

// Clamp01 clamps v into [0,1]. NaN maps to 0.
func Clamp01(v float64) float64 {
	if math.IsNaN(v) || v < 0 {
		return 0
	}
	if v > 1 {
		return 1
	}
	return v
}

// Bounds returns the page raster as an r2 rectangle.
func Bounds(surface models.PageSurface) r2.Rect {
	return r2.RectFromPoints(
		r2.Point{X: 0, Y: 0},
		r2.Point{X: float64(surface.WidthPx), Y: float64(surface.HeightPx)},
	)
}
