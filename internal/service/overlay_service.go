package service

import (
	"context"
	"errors"
	"image"
	"log/slog"
	"time"

	"github.com/jengzang/gazereader-go/internal/calibration"
	"github.com/jengzang/gazereader-go/internal/gaze"
	"github.com/jengzang/gazereader-go/internal/heatmap"
	"github.com/jengzang/gazereader-go/internal/models"
	"github.com/jengzang/gazereader-go/internal/ocr"
	"github.com/jengzang/gazereader-go/internal/scheduler"
	"github.com/jengzang/gazereader-go/internal/spatial"
	"github.com/jengzang/gazereader-go/internal/status"
	"github.com/jengzang/gazereader-go/internal/surface"
)

// GazeService is everything the runtime needs from the gaze service.
type GazeService interface {
	gaze.Source
	calibration.Service
	CalibrationStatus(ctx context.Context) (models.CalibrationServiceStatus, error)
}

// Options configures the overlay runtime.
type Options struct {
	Region       models.RegionSize
	Heatmap      heatmap.Config
	RenderPeriod time.Duration
	Backoff      gaze.BackoffConfig
	OCR          ocr.TriggerConfig
	Calibration  calibration.Config
	Scale        float64 // Page scale used when a load request leaves it unset
	ExportDir    string
}

// DefaultOptions returns the standard runtime timings.
func DefaultOptions() Options {
	return Options{
		Region:       models.RegionSize{Width: 240, Height: 140},
		Heatmap:      heatmap.DefaultConfig(),
		RenderPeriod: heatmap.DefaultRenderPeriod,
		Backoff:      gaze.DefaultBackoffConfig(),
		OCR:          ocr.TriggerConfig{Period: ocr.DefaultPeriod},
		Calibration:  calibration.DefaultConfig(),
		Scale:        1,
		ExportDir:    "./data/exports",
	}
}

// OverlayService wires the loops of the overlay runtime around one
// scheduler. Its exported methods are safe to call from any goroutine; they
// hop onto the scheduler loop for every state access.
type OverlayService struct {
	ctx   context.Context
	sched scheduler.Scheduler
	opts  Options

	gazeSvc  GazeService
	board    *status.Board
	cell     *gaze.Cell
	heat     *heatmap.Accumulator
	painter  *heatmap.Painter
	surface  *surface.Controller
	sampling *gaze.SamplingLoop
	render   *heatmap.RenderLoop
	ocr      *ocr.TriggerLoop
	calib    *calibration.Controller
	recorder *Recorder

	frame  heatmap.Frame
	target *models.CalibrationTarget
}

// NewOverlayService builds the runtime. recorder may be nil to disable
// persistence. Nothing runs until Start.
func NewOverlayService(ctx context.Context, s scheduler.Scheduler, gazeSvc GazeService, engine ocr.Engine, renderer surface.Renderer, recorder *Recorder, opts Options) *OverlayService {
	svc := &OverlayService{
		ctx:      ctx,
		sched:    s,
		opts:     opts,
		gazeSvc:  gazeSvc,
		board:    status.NewBoard(s.Now),
		cell:     gaze.NewCell(models.DefaultGazePoint),
		heat:     heatmap.NewAccumulator(opts.Heatmap),
		painter:  heatmap.NewPainter(),
		recorder: recorder,
	}

	svc.surface = surface.NewController(ctx, s, renderer, svc.heat, svc.cell, svc.board)
	svc.sampling = gaze.NewSamplingLoop(ctx, s, gazeSvc, svc.cell, svc.addHeat, svc.board, opts.Backoff)
	svc.render = heatmap.NewRenderLoop(s, svc.heat, svc.painter, (*canvas)(svc), opts.RenderPeriod)

	var transcripts ocr.Recorder
	var sessions calibration.Recorder
	if recorder != nil {
		transcripts = recorder
		sessions = recorder
	}
	svc.ocr = ocr.NewTriggerLoop(ctx, s, engine, svc.extractFocus, svc.board, transcripts, opts.OCR)
	svc.calib = calibration.NewController(ctx, s, gazeSvc, (*display)(svc), svc.surface.Surface, svc.board, sessions, opts.Calibration)
	return svc
}

// Start launches the render loop, gaze sampling and periodic OCR.
func (s *OverlayService) Start(ctx context.Context) error {
	return scheduler.Exec(ctx, s.sched, func() {
		s.render.Start()
		s.sampling.Start()
		s.ocr.Start()
		s.board.Info("runtime", "Overlay running")
	})
}

// Close stops every loop. In-flight requests finish and are discarded.
func (s *OverlayService) Close(ctx context.Context) error {
	return scheduler.Exec(ctx, s.sched, func() {
		s.calib.Cancel()
		s.ocr.Stop()
		s.sampling.Stop()
		s.render.Stop()
	})
}

// Snapshot returns the state shown on the user-facing surface.
func (s *OverlayService) Snapshot(ctx context.Context) (models.StatusSnapshot, error) {
	return scheduler.Query(ctx, s.sched, s.snapshot)
}

func (s *OverlayService) snapshot() models.StatusSnapshot {
	snap := models.StatusSnapshot{
		Status:      s.board.Current(),
		Gaze:        s.cell.Latest(),
		Sampling:    s.sampling.Stats(),
		OCR:         s.ocr.State(),
		Calibration: s.calib.Progress(),
		HeatSamples: s.heat.Len(),
	}
	if surf, ok := s.surface.Surface(); ok {
		rect := spatial.FocusRect(snap.Gaze, surf, s.opts.Region)
		snap.Page = &surf
		snap.FocusRect = &rect
	}
	return snap
}

// StatusHistory returns recent status lines, oldest first.
func (s *OverlayService) StatusHistory(ctx context.Context) ([]models.StatusLine, error) {
	return scheduler.Query(ctx, s.sched, s.board.History)
}

// StartSampling starts polling the gaze service.
func (s *OverlayService) StartSampling(ctx context.Context) (models.SamplingStats, error) {
	return scheduler.Query(ctx, s.sched, func() models.SamplingStats {
		s.sampling.Start()
		return s.sampling.Stats()
	})
}

// StopSampling stops polling the gaze service.
func (s *OverlayService) StopSampling(ctx context.Context) (models.SamplingStats, error) {
	return scheduler.Query(ctx, s.sched, func() models.SamplingStats {
		s.sampling.Stop()
		return s.sampling.Stats()
	})
}

// StartOCR starts periodic text recognition.
func (s *OverlayService) StartOCR(ctx context.Context) (models.OCRState, error) {
	return scheduler.Query(ctx, s.sched, func() models.OCRState {
		s.ocr.Start()
		return s.ocr.State()
	})
}

// StopOCR stops periodic text recognition.
func (s *OverlayService) StopOCR(ctx context.Context) (models.OCRState, error) {
	return scheduler.Query(ctx, s.sched, func() models.OCRState {
		s.ocr.Stop()
		return s.ocr.State()
	})
}

// TriggerOCR dispatches the focus region immediately. It fails with
// models.ErrBusy while a dispatch is in flight.
func (s *OverlayService) TriggerOCR(ctx context.Context) (models.OCRState, error) {
	var state models.OCRState
	var err error
	if execErr := scheduler.Exec(ctx, s.sched, func() {
		err = s.ocr.Trigger()
		state = s.ocr.State()
	}); execErr != nil {
		return models.OCRState{}, execErr
	}
	return state, err
}

// StartCalibration begins a calibration session.
func (s *OverlayService) StartCalibration(ctx context.Context) (models.CalibrationProgress, error) {
	var progress models.CalibrationProgress
	var err error
	if execErr := scheduler.Exec(ctx, s.sched, func() {
		err = s.calib.Start()
		progress = s.calib.Progress()
	}); execErr != nil {
		return models.CalibrationProgress{}, execErr
	}
	return progress, err
}

// Calibration returns session progress together with the gaze service's
// own calibration status. A failing status query is logged, not returned.
func (s *OverlayService) Calibration(ctx context.Context) (models.CalibrationProgress, error) {
	progress, err := scheduler.Query(ctx, s.sched, s.calib.Progress)
	if err != nil {
		return progress, err
	}
	st, err := s.gazeSvc.CalibrationStatus(ctx)
	if err != nil {
		slog.Debug("calibration status unavailable", "error", err)
		return progress, nil
	}
	progress.Service = &st
	return progress, nil
}

// LoadPage renders a page and waits for it to replace the surface.
func (s *OverlayService) LoadPage(ctx context.Context, index int, scale float64) (models.PageSurface, error) {
	type result struct {
		surface models.PageSurface
		err     error
	}
	if scale <= 0 {
		scale = s.opts.Scale
	}
	done := make(chan result, 1)
	err := scheduler.Exec(ctx, s.sched, func() {
		s.surface.LoadPage(index, scale, func(surf models.PageSurface, err error) {
			done <- result{surf, err}
		})
	})
	if err != nil {
		return models.PageSurface{}, err
	}
	select {
	case r := <-done:
		return r.surface, r.err
	case <-ctx.Done():
		return models.PageSurface{}, ctx.Err()
	}
}

// PageRaster returns the current page raster.
func (s *OverlayService) PageRaster(ctx context.Context) (image.Image, error) {
	raster, err := scheduler.Query(ctx, s.sched, s.surface.Raster)
	if err != nil {
		return nil, err
	}
	if raster == nil {
		return nil, models.NewError(models.KindConfiguration, "page raster", models.ErrNoPage)
	}
	return raster, nil
}

// ClearHeatmap empties the heat overlay.
func (s *OverlayService) ClearHeatmap(ctx context.Context) error {
	return scheduler.Exec(ctx, s.sched, func() {
		s.heat.Clear()
		s.render.RenderNow()
		s.board.Info("heatmap", "Heatmap cleared")
	})
}

// Heatmap returns the live heat samples.
func (s *OverlayService) Heatmap(ctx context.Context) (models.HeatmapResponse, error) {
	return scheduler.Query(ctx, s.sched, func() models.HeatmapResponse {
		resp := models.HeatmapResponse{
			Samples:     s.heat.Samples(),
			DecayWindow: s.heat.Config().DecayWindow.Milliseconds(),
		}
		resp.Count = len(resp.Samples)
		if surf, ok := s.surface.Surface(); ok {
			resp.PageIndex = surf.PageIndex
			resp.Width, resp.Height = surf.WidthPx, surf.HeightPx
		}
		return resp
	})
}

// Overlay returns the most recent overlay frame.
func (s *OverlayService) Overlay(ctx context.Context) (*image.RGBA, error) {
	frame, err := scheduler.Query(ctx, s.sched, s.currentFrame)
	if err != nil {
		return nil, err
	}
	if frame.Image == nil {
		return nil, models.NewError(models.KindConfiguration, "overlay", models.ErrNoPage)
	}
	return frame.Image, nil
}

// currentFrame returns the published frame, rendering one if it is missing
// or sized for a different surface.
func (s *OverlayService) currentFrame() heatmap.Frame {
	w, h, ok := s.surface.Size()
	if !ok {
		return heatmap.Frame{}
	}
	if f := s.frame; f.Image != nil && f.Image.Bounds().Dx() == w && f.Image.Bounds().Dy() == h {
		return f
	}
	f, _ := s.render.RenderNow()
	return f
}

// addHeat projects an accepted gaze point onto the page, if one is loaded.
func (s *OverlayService) addHeat(p models.GazePoint, at time.Time) {
	surf, ok := s.surface.Surface()
	if !ok {
		return
	}
	s.heat.Add(spatial.ToPixel(p, surf), at)
}

func (s *OverlayService) extractFocus() (ocr.Crop, error) {
	rect, img, err := s.surface.FocusCrop(s.opts.Region)
	if err != nil {
		return ocr.Crop{}, err
	}
	if rect.Width == 0 || rect.Height == 0 {
		return ocr.Crop{}, errors.New("focus region is empty")
	}
	surf, _ := s.surface.Surface()
	return ocr.Crop{Image: img, Rect: rect, PageIndex: surf.PageIndex}, nil
}

// canvas adapts the service to heatmap.Canvas.
type canvas OverlayService

func (c *canvas) Size() (int, int, bool) { return c.surface.Size() }

func (c *canvas) Decorate(frame *image.RGBA) {
	if c.target == nil {
		return
	}
	surf, ok := c.surface.Surface()
	if !ok {
		return
	}
	center := spatial.NormalizedToPixel(c.target.Normalized, surf)
	c.painter.DrawTarget(frame, center, 14)
}

func (c *canvas) Publish(f heatmap.Frame) { c.frame = f }

// display adapts the service to calibration.Display.
type display OverlayService

func (d *display) ShowTarget(t models.CalibrationTarget) {
	d.target = &t
	slog.Debug("calibration target shown", "index", t.Index, "x", t.PixelX, "y", t.PixelY)
}

func (d *display) HideTarget() { d.target = nil }
