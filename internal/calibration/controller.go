// Package calibration sequences the five-point calibration protocol
// against the gaze service.
package calibration

import (
	"context"
	"fmt"
	"log/slog"
	"time"

	"github.com/google/uuid"
	"github.com/jengzang/gazereader-go/internal/models"
	"github.com/jengzang/gazereader-go/internal/scheduler"
	"github.com/jengzang/gazereader-go/internal/spatial"
	"github.com/jengzang/gazereader-go/internal/status"
)

// Targets are the normalized calibration points, visited in order.
var Targets = [models.CalibrationPointCount]models.NormalizedPoint{
	{X: 0.1, Y: 0.1},
	{X: 0.9, Y: 0.1},
	{X: 0.5, Y: 0.5},
	{X: 0.1, Y: 0.9},
	{X: 0.9, Y: 0.9},
}

// Service is the calibration half of the gaze service.
type Service interface {
	StartCalibration(ctx context.Context) error
	CalibrationPoint(ctx context.Context, p models.NormalizedPoint) (models.CalibrationAck, error)
}

// Display shows and hides the on-screen target.
type Display interface {
	ShowTarget(t models.CalibrationTarget)
	HideTarget()
}

// Recorder receives every finished session. It is called on the loop.
type Recorder interface {
	RecordSession(s models.CalibrationSession)
}

// SurfaceFunc returns the current page surface, or false if none is loaded.
type SurfaceFunc func() (models.PageSurface, bool)

// Config holds the protocol delays.
type Config struct {
	// Dwell is the wait between showing a target and capturing it.
	Dwell time.Duration
	// Settle is the wait after a capture before the next target.
	Settle time.Duration
}

// DefaultConfig returns the standard delays.
func DefaultConfig() Config {
	return Config{
		Dwell:  1200 * time.Millisecond,
		Settle: 300 * time.Millisecond,
	}
}

// Controller runs one calibration session at a time. All methods must be
// called on the scheduler loop.
type Controller struct {
	ctx      context.Context
	sched    scheduler.Scheduler
	service  Service
	display  Display
	surface  SurfaceFunc
	reporter status.Reporter
	recorder Recorder
	cfg      Config

	session models.CalibrationSession
	target  *models.CalibrationTarget
	timer   scheduler.Timer
}

// NewController creates an idle controller. recorder may be nil.
func NewController(ctx context.Context, s scheduler.Scheduler, service Service, display Display, surface SurfaceFunc, reporter status.Reporter, recorder Recorder, cfg Config) *Controller {
	return &Controller{
		ctx:      ctx,
		sched:    s,
		service:  service,
		display:  display,
		surface:  surface,
		reporter: reporter,
		recorder: recorder,
		cfg:      cfg,
		session:  models.CalibrationSession{Phase: models.CalibrationIdle},
	}
}

// Start begins a new session. It fails with models.ErrCalibrationRunning
// while a session is running and with a configuration error when no page
// is loaded. Aborted and completed sessions may be restarted.
func (c *Controller) Start() error {
	if c.session.Phase == models.CalibrationRunning {
		return models.ErrCalibrationRunning
	}
	if _, ok := c.surface(); !ok {
		return models.NewError(models.KindConfiguration, "calibration", models.ErrNoPage)
	}

	c.session = models.CalibrationSession{
		ID:        uuid.NewString(),
		Phase:     models.CalibrationRunning,
		StartedAt: c.sched.Now(),
	}
	id := c.session.ID
	slog.Info("calibration: session started", "session", id)
	c.reporter.Info("calibration", "Calibration started: look at each target")

	svc := c.service
	scheduler.Call(c.sched, func() (struct{}, error) {
		return struct{}{}, svc.StartCalibration(c.ctx)
	}, func(_ struct{}, err error) {
		if !c.current(id) {
			return
		}
		if err != nil {
			c.abort(fmt.Errorf("start: %w", err))
			return
		}
		c.show(0)
	})
	return nil
}

// Session returns the current or last session.
func (c *Controller) Session() models.CalibrationSession { return c.session }

// Running reports whether a session is in progress.
func (c *Controller) Running() bool { return c.session.Phase == models.CalibrationRunning }

// Progress returns the calibration block of the status surface.
func (c *Controller) Progress() models.CalibrationProgress {
	p := models.CalibrationProgress{
		SessionID: c.session.ID,
		Phase:     c.session.Phase,
		Captured:  c.session.PointsCaptured,
		Total:     models.CalibrationPointCount,
	}
	if c.target != nil {
		t := *c.target
		p.Target = &t
	}
	return p
}

// Cancel aborts a running session. Pending service responses are dropped.
func (c *Controller) Cancel() {
	if !c.Running() {
		return
	}
	if c.timer != nil {
		c.timer.Stop()
		c.timer = nil
	}
	c.abort(fmt.Errorf("cancelled"))
}

func (c *Controller) current(id string) bool {
	return c.session.ID == id && c.session.Phase == models.CalibrationRunning
}

func (c *Controller) show(i int) {
	target := models.CalibrationTarget{Index: i, Normalized: Targets[i]}
	if surface, ok := c.surface(); ok {
		px := spatial.NormalizedToPixel(Targets[i], surface)
		target.PixelX, target.PixelY = px.X, px.Y
	}
	c.target = &target
	c.display.ShowTarget(target)

	id := c.session.ID
	c.timer = c.sched.AfterFunc(c.cfg.Dwell, func() {
		c.timer = nil
		if c.current(id) {
			c.capture(i)
		}
	})
}

func (c *Controller) capture(i int) {
	id := c.session.ID
	point := Targets[i]
	svc := c.service
	scheduler.Call(c.sched, func() (models.CalibrationAck, error) {
		return svc.CalibrationPoint(c.ctx, point)
	}, func(ack models.CalibrationAck, err error) {
		if !c.current(id) {
			return
		}
		if err != nil {
			c.abort(fmt.Errorf("point %d: %w", i+1, err))
			return
		}
		c.session.PointsCaptured++
		slog.Debug("calibration: point captured", "session", id, "point", i+1, "samples", ack.Samples)
		c.reporter.Info("calibration", fmt.Sprintf("Calibration point %d/%d captured", c.session.PointsCaptured, models.CalibrationPointCount))
		c.timer = c.sched.AfterFunc(c.cfg.Settle, func() {
			c.timer = nil
			if c.current(id) {
				c.advance(i + 1)
			}
		})
	})
}

func (c *Controller) advance(next int) {
	if next < len(Targets) {
		c.show(next)
		return
	}
	c.hide()
	c.finish(models.CalibrationComplete)
	slog.Info("calibration: session complete", "session", c.session.ID)
	c.reporter.Info("calibration", "Calibration complete")
}

func (c *Controller) abort(cause error) {
	err := models.NewError(models.KindCalibrationStep, "calibration", cause)
	c.hide()
	c.session.PointsCaptured = 0
	c.session.Error = err.Error()
	c.finish(models.CalibrationAborted)
	slog.Warn("calibration: session aborted", "session", c.session.ID, "error", cause)
	c.reporter.Error("calibration", fmt.Sprintf("Calibration failed: %v. Press start to retry", cause))
}

func (c *Controller) hide() {
	if c.target != nil {
		c.target = nil
		c.display.HideTarget()
	}
}

func (c *Controller) finish(phase models.CalibrationPhase) {
	now := c.sched.Now()
	c.session.Phase = phase
	c.session.FinishedAt = &now
	if c.recorder != nil {
		c.recorder.RecordSession(c.session)
	}
}
