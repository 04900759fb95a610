package surface

import (
	"context"
	"fmt"
	"image"
	"log/slog"

	"golang.org/x/image/draw"

	"github.com/jengzang/gazereader-go/internal/gaze"
	"github.com/jengzang/gazereader-go/internal/heatmap"
	"github.com/jengzang/gazereader-go/internal/models"
	"github.com/jengzang/gazereader-go/internal/scheduler"
	"github.com/jengzang/gazereader-go/internal/spatial"
	"github.com/jengzang/gazereader-go/internal/status"
)

// Controller owns the PageSurface and its raster. Every pixel-space entity
// depends on it: a successful load clears the heatmap and seeds it with the
// projected gaze point. All methods must be called on the scheduler loop.
type Controller struct {
	ctx      context.Context
	sched    scheduler.Scheduler
	renderer Renderer
	heat     *heatmap.Accumulator
	gaze     gaze.Reader
	reporter status.Reporter

	surface models.PageSurface
	raster  *image.RGBA
	loaded  bool
	seq     uint64
	loading int
}

// NewController creates a controller with no page loaded.
func NewController(ctx context.Context, s scheduler.Scheduler, renderer Renderer, heat *heatmap.Accumulator, g gaze.Reader, reporter status.Reporter) *Controller {
	return &Controller{ctx: ctx, sched: s, renderer: renderer, heat: heat, gaze: g, reporter: reporter}
}

// LoadPage renders page index at scale off-loop. done, if non-nil, runs on
// the loop with the outcome. When loads overlap the last one issued wins;
// earlier completions are dropped and reported as superseded.
func (c *Controller) LoadPage(index int, scale float64, done func(models.PageSurface, error)) {
	if scale <= 0 {
		scale = 1
	}
	c.seq++
	seq := c.seq
	c.loading++
	renderer := c.renderer

	scheduler.Call(c.sched, func() (*image.RGBA, error) {
		img, err := renderer.RenderPage(c.ctx, index, scale)
		if err != nil {
			return nil, err
		}
		return toRGBA(img), nil
	}, func(raster *image.RGBA, err error) {
		c.loading--
		if seq != c.seq {
			slog.Debug("surface: dropping superseded load", "page", index)
			if done != nil {
				done(c.surface, fmt.Errorf("page %d: load superseded", index))
			}
			return
		}
		if err != nil {
			err = models.NewError(models.KindSurfaceLoad, "load page", err)
			slog.Warn("surface: page load failed", "page", index, "scale", scale, "error", err)
			c.reporter.Error("surface", fmt.Sprintf("Could not load page %d: %v", index+1, err))
			if done != nil {
				done(c.surface, err)
			}
			return
		}
		c.replace(index, scale, raster)
		if done != nil {
			done(c.surface, nil)
		}
	})
}

// SetScale re-renders the current page at a new scale.
func (c *Controller) SetScale(scale float64, done func(models.PageSurface, error)) error {
	if !c.loaded {
		return models.NewError(models.KindConfiguration, "set scale", models.ErrNoPage)
	}
	c.LoadPage(c.surface.PageIndex, scale, done)
	return nil
}

func (c *Controller) replace(index int, scale float64, raster *image.RGBA) {
	b := raster.Bounds()
	c.surface = models.PageSurface{PageIndex: index, WidthPx: b.Dx(), HeightPx: b.Dy(), Scale: scale}
	c.raster = raster
	c.loaded = true

	c.heat.Clear()
	c.heat.Add(spatial.ToPixel(c.gaze.Latest(), c.surface), c.sched.Now())

	slog.Info("surface: page loaded", "page", index, "width", c.surface.WidthPx, "height", c.surface.HeightPx, "scale", scale)
	c.reporter.Info("surface", fmt.Sprintf("Page %d loaded (%dx%d)", index+1, c.surface.WidthPx, c.surface.HeightPx))
}

// Surface returns the current surface, or false when no page is loaded.
func (c *Controller) Surface() (models.PageSurface, bool) { return c.surface, c.loaded }

// Raster returns the current page raster, or nil when no page is loaded.
// Callers must not modify it.
func (c *Controller) Raster() *image.RGBA { return c.raster }

// Size implements heatmap.Canvas sizing.
func (c *Controller) Size() (int, int, bool) {
	return c.surface.WidthPx, c.surface.HeightPx, c.loaded
}

// Loading reports whether a render is in progress.
func (c *Controller) Loading() bool { return c.loading > 0 }

// FocusCrop cuts the focus region around the current gaze point.
func (c *Controller) FocusCrop(size models.RegionSize) (models.FocusRect, *image.RGBA, error) {
	if !c.loaded {
		return models.FocusRect{}, nil, models.ErrNoPage
	}
	rect := spatial.FocusRect(c.gaze.Latest(), c.surface, size)
	return rect, spatial.Crop(c.raster, rect), nil
}

func toRGBA(img image.Image) *image.RGBA {
	b := img.Bounds()
	if rgba, ok := img.(*image.RGBA); ok && b.Min == (image.Point{}) {
		return rgba
	}
	dst := image.NewRGBA(image.Rect(0, 0, b.Dx(), b.Dy()))
	draw.Draw(dst, dst.Bounds(), img, b.Min, draw.Src)
	return dst
}
