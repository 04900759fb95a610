package service

import (
	"context"
	"errors"
	"image"
	"os"
	"path/filepath"
	"sync/atomic"
	"testing"
	"time"

	"github.com/jengzang/gazereader-go/internal/database"
	"github.com/jengzang/gazereader-go/internal/models"
	"github.com/jengzang/gazereader-go/internal/ocr"
	"github.com/jengzang/gazereader-go/internal/repository"
	"github.com/jengzang/gazereader-go/internal/scheduler"
)

type stubGaze struct {
	points atomic.Int32
}

func (g *stubGaze) Current(context.Context) (models.GazeReading, error) {
	return models.GazeReading{X: 0.25, Y: 0.75, Calibrated: true, Source: "mediapipe"}, nil
}

func (g *stubGaze) StartCalibration(context.Context) error { return nil }

func (g *stubGaze) CalibrationPoint(context.Context, models.NormalizedPoint) (models.CalibrationAck, error) {
	n := g.points.Add(1)
	return models.CalibrationAck{Status: "ok", Samples: int(n)}, nil
}

func (g *stubGaze) CalibrationStatus(context.Context) (models.CalibrationServiceStatus, error) {
	return models.CalibrationServiceStatus{Samples: int(g.points.Load()), Calibrated: g.points.Load() >= 4}, nil
}

type stubRenderer struct{}

func (stubRenderer) RenderPage(_ context.Context, index int, scale float64) (image.Image, error) {
	if index > 9 {
		return nil, errors.New("no such page")
	}
	return image.NewRGBA(image.Rect(0, 0, int(800*scale), int(600*scale))), nil
}

type stubEngine struct{}

func (stubEngine) Name() string { return "stub" }

func (stubEngine) Recognize(_ context.Context, in ocr.Input) (ocr.Result, error) {
	return ocr.Result{InputID: in.ID, Text: "the quick brown fox"}, nil
}

type fixture struct {
	svc     *OverlayService
	history *HistoryService
	dir     string
}

func newFixture(t *testing.T) *fixture {
	t.Helper()
	dir := t.TempDir()
	db, err := database.Open(database.Config{Path: filepath.Join(dir, "test.db")})
	if err != nil {
		t.Fatalf("failed to open database: %v", err)
	}
	t.Cleanup(func() { db.Close() })

	ctx, cancel := context.WithCancel(context.Background())
	t.Cleanup(cancel)
	loop := scheduler.NewLoop()
	go loop.Run(ctx)

	transcripts := repository.NewTranscriptRepository(db)
	calibrations := repository.NewCalibrationRepository(db)
	exports := repository.NewExportRepository(db)

	opts := DefaultOptions()
	opts.ExportDir = filepath.Join(dir, "exports")
	opts.Calibration.Dwell = time.Millisecond
	opts.Calibration.Settle = time.Millisecond
	opts.OCR.Period = time.Hour
	opts.RenderPeriod = 10 * time.Millisecond

	recorder := NewRecorder(loop, transcripts, calibrations, exports)
	svc := NewOverlayService(ctx, loop, &stubGaze{}, stubEngine{}, stubRenderer{}, recorder, opts)
	return &fixture{
		svc:     svc,
		history: NewHistoryService(transcripts, calibrations, exports),
		dir:     dir,
	}
}

func eventually(t *testing.T, what string, cond func() bool) {
	t.Helper()
	deadline := time.Now().Add(3 * time.Second)
	for !cond() {
		if time.Now().After(deadline) {
			t.Fatalf("timed out waiting for %s", what)
		}
		time.Sleep(5 * time.Millisecond)
	}
}

func TestOperationsRequireAPage(t *testing.T) {
	f := newFixture(t)
	ctx := context.Background()

	checks := map[string]func() error{
		"overlay":     func() error { _, err := f.svc.Overlay(ctx); return err },
		"export":      func() error { _, err := f.svc.Export(ctx); return err },
		"raster":      func() error { _, err := f.svc.PageRaster(ctx); return err },
		"ocr":         func() error { _, err := f.svc.TriggerOCR(ctx); return err },
		"calibration": func() error { _, err := f.svc.StartCalibration(ctx); return err },
	}
	for name, check := range checks {
		err := check()
		if kind, ok := models.KindOf(err); !ok || kind != models.KindConfiguration {
			t.Errorf("%s: expected configuration error, got %v", name, err)
		}
	}
}

func TestPageLoadFeedsHeatAndFocus(t *testing.T) {
	f := newFixture(t)
	ctx := context.Background()

	surf, err := f.svc.LoadPage(ctx, 0, 1)
	if err != nil {
		t.Fatalf("LoadPage failed: %v", err)
	}
	if surf.WidthPx != 800 || surf.HeightPx != 600 {
		t.Fatalf("unexpected surface %+v", surf)
	}

	snap, err := f.svc.Snapshot(ctx)
	if err != nil {
		t.Fatalf("Snapshot failed: %v", err)
	}
	if snap.FocusRect == nil || *snap.FocusRect != (models.FocusRect{X: 280, Y: 170, Width: 240, Height: 140}) {
		t.Fatalf("unexpected focus rect %+v", snap.FocusRect)
	}
	if snap.HeatSamples != 1 {
		t.Fatalf("expected the baseline heat sample, got %d", snap.HeatSamples)
	}

	if _, err := f.svc.LoadPage(ctx, 42, 1); err == nil {
		t.Fatalf("expected load of a missing page to fail")
	}
	if snap, _ := f.svc.Snapshot(ctx); snap.Page == nil || snap.Page.PageIndex != 0 {
		t.Fatalf("failed load replaced the surface: %+v", snap.Page)
	}

	if err := f.svc.Start(ctx); err != nil {
		t.Fatalf("Start failed: %v", err)
	}
	defer f.svc.Close(context.Background())
	eventually(t, "gaze samples", func() bool {
		snap, _ := f.svc.Snapshot(ctx)
		return snap.Sampling.Samples > 0 && snap.Gaze.X == 0.25
	})
	snap, _ = f.svc.Snapshot(ctx)
	if snap.FocusRect.X != 80 || snap.FocusRect.Y != 380 {
		t.Fatalf("focus rect did not follow gaze: %+v", snap.FocusRect)
	}

	overlay, err := f.svc.Overlay(ctx)
	if err != nil || overlay.Bounds().Dx() != 800 {
		t.Fatalf("unexpected overlay: %v", err)
	}
}

func TestTriggerOCRPersistsTranscript(t *testing.T) {
	f := newFixture(t)
	ctx := context.Background()
	f.svc.LoadPage(ctx, 0, 1)

	if _, err := f.svc.TriggerOCR(ctx); err != nil {
		t.Fatalf("TriggerOCR failed: %v", err)
	}
	eventually(t, "persisted transcript", func() bool {
		list, err := f.history.ListTranscripts(models.TranscriptFilter{})
		return err == nil && list.Total == 1
	})
	list, _ := f.history.ListTranscripts(models.TranscriptFilter{})
	if got := list.Data[0]; got.Text != "the quick brown fox" || got.Trigger != models.TriggerManual || got.Engine != "stub" {
		t.Fatalf("unexpected transcript %+v", got)
	}
	if snap, _ := f.svc.Snapshot(ctx); snap.OCR.Text != "the quick brown fox" {
		t.Fatalf("OCR text not published: %+v", snap.OCR)
	}
}

func TestCalibrationRunsToCompletion(t *testing.T) {
	f := newFixture(t)
	ctx := context.Background()
	f.svc.LoadPage(ctx, 0, 1)

	progress, err := f.svc.StartCalibration(ctx)
	if err != nil {
		t.Fatalf("StartCalibration failed: %v", err)
	}
	if progress.Phase != models.CalibrationRunning || progress.Total != 5 {
		t.Fatalf("unexpected progress %+v", progress)
	}
	eventually(t, "calibration to complete", func() bool {
		p, _ := f.svc.Calibration(ctx)
		return p.Phase == models.CalibrationComplete
	})
	p, _ := f.svc.Calibration(ctx)
	if p.Captured != 5 || p.Service == nil || !p.Service.Calibrated {
		t.Fatalf("unexpected final progress %+v", p)
	}
	eventually(t, "persisted session", func() bool {
		list, err := f.history.ListCalibrations(models.PageFilter{})
		return err == nil && list.Total == 1
	})
}

func TestExportWritesFlattenedImage(t *testing.T) {
	f := newFixture(t)
	ctx := context.Background()
	f.svc.LoadPage(ctx, 2, 0.5)

	rec, err := f.svc.Export(ctx)
	if err != nil {
		t.Fatalf("Export failed: %v", err)
	}
	if rec.Width != 400 || rec.Height != 300 || rec.PageIndex != 2 {
		t.Fatalf("unexpected record %+v", rec)
	}
	if _, err := os.Stat(rec.Path); err != nil {
		t.Fatalf("export file missing: %v", err)
	}
	list, err := f.history.ListExports(models.PageFilter{})
	if err != nil || list.Total != 1 || list.Data[0].ID != rec.ID {
		t.Fatalf("export not recorded: %+v, %v", list, err)
	}

	if err := f.svc.ClearHeatmap(ctx); err != nil {
		t.Fatalf("ClearHeatmap failed: %v", err)
	}
	if hm, _ := f.svc.Heatmap(ctx); hm.Count != 0 || hm.Width != 400 {
		t.Fatalf("heatmap not cleared: %+v", hm)
	}
}
