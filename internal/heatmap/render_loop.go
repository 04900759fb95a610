package heatmap

import (
	"image"
	"log/slog"
	"time"

	"github.com/jengzang/gazereader-go/internal/scheduler"
)

// DefaultRenderPeriod is the redraw cadence of the overlay.
const DefaultRenderPeriod = 100 * time.Millisecond

// Frame is one rendered overlay.
type Frame struct {
	Image      *image.RGBA
	Spots      int
	RenderedAt time.Time
}

// Canvas supplies the current raster size and decorates finished frames.
type Canvas interface {
	// Size returns the page raster size, or ok=false when no page is loaded.
	Size() (w, h int, ok bool)
	// Decorate draws extra markers (e.g. the calibration target) on a frame.
	Decorate(frame *image.RGBA)
	// Publish hands a finished frame to its consumers.
	Publish(frame Frame)
}

// RenderLoop redraws the overlay on a fixed period, independent of gaze
// sampling, so the heat visibly decays even when samples stop arriving.
type RenderLoop struct {
	sched   scheduler.Scheduler
	acc     *Accumulator
	painter *Painter
	canvas  Canvas
	period  time.Duration

	running bool
	timer   scheduler.Timer
	frames  uint64
}

// NewRenderLoop creates a stopped render loop.
func NewRenderLoop(s scheduler.Scheduler, acc *Accumulator, painter *Painter, canvas Canvas, period time.Duration) *RenderLoop {
	if period <= 0 {
		period = DefaultRenderPeriod
	}
	return &RenderLoop{sched: s, acc: acc, painter: painter, canvas: canvas, period: period}
}

// Start begins redrawing. Must be called on the loop.
func (l *RenderLoop) Start() {
	if l.running {
		return
	}
	l.running = true
	slog.Info("heatmap: render loop started", "period", l.period)
	l.timer = l.sched.AfterFunc(0, l.tick)
}

// Stop cancels the next redraw. Must be called on the loop.
func (l *RenderLoop) Stop() {
	if !l.running {
		return
	}
	l.running = false
	if l.timer != nil {
		l.timer.Stop()
		l.timer = nil
	}
	slog.Info("heatmap: render loop stopped", "frames", l.frames)
}

// Running reports whether the loop is scheduled.
func (l *RenderLoop) Running() bool { return l.running }

// RenderNow renders and publishes one frame immediately.
func (l *RenderLoop) RenderNow() (Frame, bool) {
	w, h, ok := l.canvas.Size()
	if !ok {
		return Frame{}, false
	}
	now := l.sched.Now()
	spots := l.acc.Render(now)
	img := l.painter.Paint(w, h, spots)
	l.canvas.Decorate(img)
	f := Frame{Image: img, Spots: len(spots), RenderedAt: now}
	l.frames++
	l.canvas.Publish(f)
	return f, true
}

func (l *RenderLoop) tick() {
	if !l.running {
		return
	}
	l.RenderNow()
	l.timer = l.sched.AfterFunc(l.period, l.tick)
}
