package ocr

import (
	"context"
	"errors"
	"fmt"
	"image"
	"log/slog"
	"strings"
	"time"

	"github.com/google/uuid"
	"github.com/jengzang/gazereader-go/internal/models"
	"github.com/jengzang/gazereader-go/internal/scheduler"
	"github.com/jengzang/gazereader-go/internal/status"
)

// DefaultPeriod is the OCR dispatch cadence.
const DefaultPeriod = 2500 * time.Millisecond

// NoTextMessage is published when recognition succeeds with empty text.
const NoTextMessage = "No text detected"

// Crop is a focus region cut from the page raster.
type Crop struct {
	Image     image.Image
	Rect      models.FocusRect
	PageIndex int
}

// Extractor cuts the current focus region. It returns an error wrapping
// models.ErrNoPage when no page is loaded.
type Extractor func() (Crop, error)

// Recorder persists transcripts. It is called on the loop and must not block.
type Recorder interface {
	RecordTranscript(t models.Transcript)
}

// TriggerLoop dispatches the focus region to the engine on a fixed period,
// independent of gaze sampling. A tick that finds a dispatch still in flight
// is skipped; nothing is queued or cancelled. All methods must be called on
// the scheduler loop.
type TriggerLoop struct {
	ctx       context.Context
	sched     scheduler.Scheduler
	engine    Engine
	extract   Extractor
	reporter  status.Reporter
	recorder  Recorder
	period    time.Duration
	languages []string

	guard   scheduler.Guard
	running bool
	gen     uint64
	timer   scheduler.Timer
	state   models.OCRState
}

// TriggerConfig configures a TriggerLoop.
type TriggerConfig struct {
	Period    time.Duration
	Languages []string
}

// NewTriggerLoop creates a stopped loop. recorder may be nil.
func NewTriggerLoop(ctx context.Context, s scheduler.Scheduler, engine Engine, extract Extractor, reporter status.Reporter, recorder Recorder, cfg TriggerConfig) *TriggerLoop {
	if cfg.Period <= 0 {
		cfg.Period = DefaultPeriod
	}
	return &TriggerLoop{
		ctx:       ctx,
		sched:     s,
		engine:    engine,
		extract:   extract,
		reporter:  reporter,
		recorder:  recorder,
		period:    cfg.Period,
		languages: cfg.Languages,
	}
}

// Start begins periodic dispatch; the first tick fires after one period.
func (l *TriggerLoop) Start() {
	if l.running {
		return
	}
	l.running = true
	l.gen++
	l.timer = l.sched.AfterFunc(l.period, l.tick)
	slog.Info("ocr: trigger loop started", "period", l.period, "engine", l.engine.Name())
}

// Stop cancels future ticks. A dispatch in flight is not aborted; its
// result is discarded.
func (l *TriggerLoop) Stop() {
	if !l.running {
		return
	}
	l.running = false
	l.gen++
	if l.timer != nil {
		l.timer.Stop()
		l.timer = nil
	}
	slog.Info("ocr: trigger loop stopped", "skipped", l.guard.Rejected())
}

// Running reports whether periodic dispatch is active.
func (l *TriggerLoop) Running() bool { return l.running }

// Busy reports whether a dispatch is in flight.
func (l *TriggerLoop) Busy() bool { return l.guard.Busy() }

// State returns the OCR block of the status surface.
func (l *TriggerLoop) State() models.OCRState {
	st := l.state
	st.Running = l.running
	st.Busy = l.guard.Busy()
	st.Skipped = l.guard.Rejected()
	return st
}

// Trigger dispatches the focus region now. It fails with models.ErrBusy
// when a dispatch is already in flight and with a configuration error when
// no page is loaded.
func (l *TriggerLoop) Trigger() error {
	return l.dispatch(models.TriggerManual)
}

func (l *TriggerLoop) tick() {
	l.timer = nil
	if !l.running {
		return
	}
	if err := l.dispatch(models.TriggerPeriodic); err != nil && !errors.Is(err, models.ErrBusy) {
		slog.Debug("ocr: tick skipped", "error", err)
	}
	l.timer = l.sched.AfterFunc(l.period, l.tick)
}

func (l *TriggerLoop) dispatch(trigger string) error {
	if !l.guard.TryAcquire() {
		return models.ErrBusy
	}
	crop, err := l.extract()
	if err != nil {
		l.guard.Release()
		return models.NewError(models.KindConfiguration, "ocr", err)
	}

	gen := l.gen
	id := uuid.NewString()
	engine := l.engine
	langs := l.languages
	scheduler.Call(l.sched, func() (Result, error) {
		in, err := InputFromImage(crop.Image, WithLanguages(langs...), WithPage(crop.PageIndex, crop.Rect))
		if err != nil {
			return Result{}, err
		}
		in.ID = id
		return engine.Recognize(l.ctx, in)
	}, func(res Result, err error) {
		l.finish(gen, id, trigger, crop, res, err)
	})
	return nil
}

func (l *TriggerLoop) finish(gen uint64, id, trigger string, crop Crop, res Result, err error) {
	l.guard.Release()
	if trigger == models.TriggerPeriodic && gen != l.gen {
		slog.Debug("ocr: discarding result of stopped loop")
		return
	}

	now := l.sched.Now()
	rect := crop.Rect
	tr := models.Transcript{
		ID:        id,
		PageIndex: crop.PageIndex,
		Rect:      rect,
		Engine:    l.engine.Name(),
		Trigger:   trigger,
		CreatedAt: now,
	}
	l.state.Rect = &rect
	l.state.At = now.UnixMilli()

	if err != nil {
		slog.Warn("ocr: recognition failed", "error", err, "trigger", trigger)
		msg := fmt.Sprintf("Text recognition failed: %v", err)
		l.state.Text = ""
		l.state.Message = msg
		l.reporter.Error("ocr", msg)
		tr.Failed = true
		tr.Error = err.Error()
	} else {
		text := strings.TrimSpace(res.Text)
		l.state.Text = text
		if text == "" {
			l.state.Message = NoTextMessage
			l.reporter.Info("ocr", NoTextMessage)
			tr.Empty = true
		} else {
			l.state.Message = ""
			l.reporter.Info("ocr", fmt.Sprintf("Recognized %d characters", len([]rune(text))))
		}
		tr.Text = text
	}
	if l.recorder != nil {
		l.recorder.RecordTranscript(tr)
	}
}
