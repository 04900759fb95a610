package calibration

import (
	"context"
	"errors"
	"sync"
	"testing"
	"time"

	"github.com/jengzang/gazereader-go/internal/models"
	"github.com/jengzang/gazereader-go/internal/scheduler"
)

var epoch = time.Date(2026, 1, 1, 0, 0, 0, 0, time.UTC)

type fakeService struct {
	mu       sync.Mutex
	startErr error
	failAt   int // 1-based point index that fails; 0 never
	points   []models.NormalizedPoint
}

func (s *fakeService) StartCalibration(context.Context) error { return s.startErr }

func (s *fakeService) CalibrationPoint(_ context.Context, p models.NormalizedPoint) (models.CalibrationAck, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.points = append(s.points, p)
	if len(s.points) == s.failAt {
		return models.CalibrationAck{}, errors.New("gaze service: status 503")
	}
	return models.CalibrationAck{Status: "ok", Samples: len(s.points), Calibrated: len(s.points) >= 4}, nil
}

type fakeDisplay struct {
	shown   []models.CalibrationTarget
	visible bool
}

func (d *fakeDisplay) ShowTarget(t models.CalibrationTarget) {
	d.shown = append(d.shown, t)
	d.visible = true
}

func (d *fakeDisplay) HideTarget() { d.visible = false }

type sessionLog struct{ sessions []models.CalibrationSession }

func (l *sessionLog) RecordSession(s models.CalibrationSession) { l.sessions = append(l.sessions, s) }

type reporter struct{ infos, errors []string }

func (r *reporter) Info(_, msg string)  { r.infos = append(r.infos, msg) }
func (r *reporter) Error(_, msg string) { r.errors = append(r.errors, msg) }

type harness struct {
	m        *scheduler.Manual
	service  *fakeService
	display  *fakeDisplay
	log      *sessionLog
	reporter *reporter
	loaded   bool
	c        *Controller
}

func newHarness(service *fakeService) *harness {
	h := &harness{
		m:        scheduler.NewManual(epoch),
		service:  service,
		display:  &fakeDisplay{},
		log:      &sessionLog{},
		reporter: &reporter{},
		loaded:   true,
	}
	surface := func() (models.PageSurface, bool) {
		return models.PageSurface{WidthPx: 800, HeightPx: 600, Scale: 1}, h.loaded
	}
	h.c = NewController(context.Background(), h.m, service, h.display, surface, h.reporter, h.log, DefaultConfig())
	return h
}

// run drives the session until no timers remain.
func (h *harness) run() {
	h.m.Settle()
	for {
		d, ok := h.m.NextTimer()
		if !ok {
			return
		}
		h.m.Advance(d)
		h.m.Settle()
	}
}

func TestCalibrationCompletesAfterFivePoints(t *testing.T) {
	h := newHarness(&fakeService{})
	if err := h.c.Start(); err != nil {
		t.Fatalf("Start failed: %v", err)
	}
	h.run()

	s := h.c.Session()
	if s.Phase != models.CalibrationComplete || s.PointsCaptured != 5 {
		t.Fatalf("unexpected session %+v", s)
	}
	if len(h.service.points) != 5 {
		t.Fatalf("expected 5 points sent, got %d", len(h.service.points))
	}
	for i, p := range h.service.points {
		if p != Targets[i] {
			t.Fatalf("point %d: sent %+v, want %+v", i, p, Targets[i])
		}
	}
	if h.display.visible || h.c.Progress().Target != nil {
		t.Fatalf("target still visible after completion")
	}
	if got := h.display.shown[0]; got.PixelX != 80 || got.PixelY != 60 {
		t.Fatalf("first target at (%v,%v), want (80,60)", got.PixelX, got.PixelY)
	}
	if len(h.log.sessions) != 1 || h.log.sessions[0].Phase != models.CalibrationComplete {
		t.Fatalf("completed session not recorded: %+v", h.log.sessions)
	}
	// 5 dwells and 5 settles.
	if elapsed := h.m.Now().Sub(epoch); elapsed != 5*(1200+300)*time.Millisecond {
		t.Fatalf("protocol took %v", elapsed)
	}
}

func TestCalibrationCountsOnePerPoint(t *testing.T) {
	h := newHarness(&fakeService{})
	h.c.Start()
	h.m.Settle()

	for want := 1; want <= 3; want++ {
		h.m.Advance(1200 * time.Millisecond)
		h.m.Settle()
		if got := h.c.Progress().Captured; got != want {
			t.Fatalf("after capture %d, captured=%d", want, got)
		}
		h.m.Advance(300 * time.Millisecond)
		h.m.Settle()
	}
}

func TestCalibrationAbortsOnThirdPoint(t *testing.T) {
	h := newHarness(&fakeService{failAt: 3})
	h.c.Start()
	h.run()

	s := h.c.Session()
	if s.Phase != models.CalibrationAborted {
		t.Fatalf("expected aborted, got %s", s.Phase)
	}
	if s.PointsCaptured != 0 {
		t.Fatalf("captured count not reset: %d", s.PointsCaptured)
	}
	if h.display.visible {
		t.Fatalf("target left visible after abort")
	}
	if len(h.service.points) != 3 {
		t.Fatalf("sequence continued after failure: %d points sent", len(h.service.points))
	}
	if len(h.reporter.errors) != 1 {
		t.Fatalf("expected one reported failure, got %v", h.reporter.errors)
	}
	if s.Error == "" || h.log.sessions[0].Phase != models.CalibrationAborted {
		t.Fatalf("aborted session not recorded with its error: %+v", h.log.sessions)
	}

	h.service.failAt = 0
	if err := h.c.Start(); err != nil {
		t.Fatalf("retry after abort failed: %v", err)
	}
	h.run()
	if h.c.Session().Phase != models.CalibrationComplete {
		t.Fatalf("retry did not complete: %+v", h.c.Session())
	}
}

func TestCalibrationAbortsWhenStartFails(t *testing.T) {
	h := newHarness(&fakeService{startErr: errors.New("connection refused")})
	h.c.Start()
	h.run()

	if s := h.c.Session(); s.Phase != models.CalibrationAborted || len(h.display.shown) != 0 {
		t.Fatalf("unexpected state after failed start: %+v", s)
	}
}

func TestCalibrationRejectsSecondStart(t *testing.T) {
	h := newHarness(&fakeService{})
	h.c.Start()
	id := h.c.Session().ID

	if err := h.c.Start(); !errors.Is(err, models.ErrCalibrationRunning) {
		t.Fatalf("expected ErrCalibrationRunning, got %v", err)
	}
	if h.c.Session().ID != id {
		t.Fatalf("second start replaced the running session")
	}
}

func TestCalibrationRequiresPage(t *testing.T) {
	h := newHarness(&fakeService{})
	h.loaded = false

	err := h.c.Start()
	if kind, ok := models.KindOf(err); !ok || kind != models.KindConfiguration {
		t.Fatalf("expected configuration error, got %v", err)
	}
	if h.c.Session().Phase != models.CalibrationIdle || len(h.reporter.infos) != 0 {
		t.Fatalf("rejected start had side effects")
	}
}

func TestCancelStopsSession(t *testing.T) {
	h := newHarness(&fakeService{})
	h.c.Start()
	h.m.Settle()
	h.c.Cancel()
	h.run()

	if s := h.c.Session(); s.Phase != models.CalibrationAborted || s.PointsCaptured != 0 {
		t.Fatalf("unexpected session after cancel: %+v", s)
	}
	if len(h.service.points) != 0 || h.display.visible {
		t.Fatalf("cancelled session kept running")
	}
}
