package ocr

import (
	"context"
	"errors"
	"fmt"
	"image"
	"strings"
	"sync"
	"testing"
	"time"

	"github.com/jengzang/gazereader-go/internal/models"
	"github.com/jengzang/gazereader-go/internal/scheduler"
)

var epoch = time.Date(2026, 1, 1, 0, 0, 0, 0, time.UTC)

type fakeEngine struct {
	mu        sync.Mutex
	texts     []string
	errs      []error
	calls     int
	active    int
	maxActive int
	gate      chan struct{}
	langs     []string
}

func (e *fakeEngine) Name() string { return "fake" }

func (e *fakeEngine) Recognize(ctx context.Context, in Input) (Result, error) {
	e.mu.Lock()
	i := e.calls
	e.calls++
	e.active++
	if e.active > e.maxActive {
		e.maxActive = e.active
	}
	e.langs = in.Languages
	gate := e.gate
	e.mu.Unlock()

	if gate != nil {
		<-gate
	}

	e.mu.Lock()
	defer e.mu.Unlock()
	e.active--
	if i < len(e.errs) && e.errs[i] != nil {
		return Result{}, e.errs[i]
	}
	text := ""
	if i < len(e.texts) {
		text = e.texts[i]
	}
	return Result{InputID: in.ID, Text: text}, nil
}

func (e *fakeEngine) Calls() int {
	e.mu.Lock()
	defer e.mu.Unlock()
	return e.calls
}

type memRecorder struct{ transcripts []models.Transcript }

func (r *memRecorder) RecordTranscript(t models.Transcript) { r.transcripts = append(r.transcripts, t) }

type nopReporter struct{ errors []string }

func (nopReporter) Info(string, string)           {}
func (r *nopReporter) Error(_ string, msg string) { r.errors = append(r.errors, msg) }

func pageExtractor(loaded *bool) Extractor {
	return func() (Crop, error) {
		if !*loaded {
			return Crop{}, models.ErrNoPage
		}
		rect := models.FocusRect{X: 280, Y: 170, Width: 240, Height: 140}
		return Crop{Image: image.NewRGBA(image.Rect(0, 0, 240, 140)), Rect: rect, PageIndex: 2}, nil
	}
}

type ocrHarness struct {
	m        *scheduler.Manual
	engine   *fakeEngine
	recorder *memRecorder
	reporter *nopReporter
	loaded   bool
	loop     *TriggerLoop
}

func newOCRHarness(engine *fakeEngine) *ocrHarness {
	h := &ocrHarness{
		m:        scheduler.NewManual(epoch),
		engine:   engine,
		recorder: &memRecorder{},
		reporter: &nopReporter{},
		loaded:   true,
	}
	h.loop = NewTriggerLoop(context.Background(), h.m, engine, pageExtractor(&h.loaded), h.reporter, h.recorder,
		TriggerConfig{Period: time.Second, Languages: []string{"eng", "jpn"}})
	return h
}

func waitEngineCalls(t *testing.T, e *fakeEngine, n int) {
	t.Helper()
	deadline := time.Now().Add(time.Second)
	for e.Calls() < n {
		if time.Now().After(deadline) {
			t.Fatalf("timed out waiting for %d engine calls, got %d", n, e.Calls())
		}
		time.Sleep(time.Millisecond)
	}
}

func TestTriggerLoopSkipsTicksWhileBusy(t *testing.T) {
	h := newOCRHarness(&fakeEngine{texts: []string{"first", "second"}, gate: make(chan struct{})})
	h.loop.Start()

	h.m.Advance(time.Second)
	waitEngineCalls(t, h.engine, 1)
	if !h.loop.Busy() {
		t.Fatalf("expected a dispatch in flight")
	}

	h.m.Advance(5 * time.Second)
	if st := h.loop.State(); st.Skipped != 5 {
		t.Fatalf("expected 5 skipped ticks, got %d", st.Skipped)
	}
	if err := h.loop.Trigger(); !errors.Is(err, models.ErrBusy) {
		t.Fatalf("manual trigger while busy should fail with ErrBusy, got %v", err)
	}

	h.engine.gate <- struct{}{}
	h.m.Settle()
	if st := h.loop.State(); st.Text != "first" || st.Busy {
		t.Fatalf("unexpected state after first result: %+v", st)
	}

	h.m.Advance(time.Second)
	waitEngineCalls(t, h.engine, 2)
	h.engine.gate <- struct{}{}
	h.m.Settle()

	if h.engine.maxActive != 1 {
		t.Fatalf("engine saw %d concurrent requests", h.engine.maxActive)
	}
	if got := h.loop.State().Text; got != "second" {
		t.Fatalf("expected second result, got %q", got)
	}
	if strings.Join(h.engine.langs, "+") != "eng+jpn" {
		t.Fatalf("language hints not forwarded: %v", h.engine.langs)
	}
}

func TestTriggerLoopDistinguishesEmptyText(t *testing.T) {
	h := newOCRHarness(&fakeEngine{texts: []string{"  \n"}})
	if err := h.loop.Trigger(); err != nil {
		t.Fatalf("Trigger failed: %v", err)
	}
	h.m.Settle()

	st := h.loop.State()
	if st.Text != "" || st.Message != NoTextMessage {
		t.Fatalf("expected %q, got %+v", NoTextMessage, st)
	}
	if len(h.recorder.transcripts) != 1 {
		t.Fatalf("expected one transcript, got %d", len(h.recorder.transcripts))
	}
	tr := h.recorder.transcripts[0]
	if !tr.Empty || tr.Failed || tr.Trigger != models.TriggerManual || tr.PageIndex != 2 {
		t.Fatalf("unexpected transcript %+v", tr)
	}
	if len(h.reporter.errors) != 0 {
		t.Fatalf("empty text must not be reported as a failure: %v", h.reporter.errors)
	}
}

func TestTriggerLoopContinuesAfterFailure(t *testing.T) {
	h := newOCRHarness(&fakeEngine{
		errs:  []error{fmt.Errorf("ocr service: status 500")},
		texts: []string{"", "recovered"},
	})
	h.loop.Start()

	h.m.Advance(time.Second)
	h.m.Settle()
	st := h.loop.State()
	if !strings.HasPrefix(st.Message, "Text recognition failed") || st.Text != "" {
		t.Fatalf("expected a failure message, got %+v", st)
	}
	if len(h.reporter.errors) != 1 {
		t.Fatalf("expected the failure to be reported once, got %v", h.reporter.errors)
	}

	h.m.Advance(time.Second)
	h.m.Settle()
	if st := h.loop.State(); st.Text != "recovered" || st.Message != "" {
		t.Fatalf("loop did not recover on the next tick: %+v", st)
	}
	if !h.recorder.transcripts[0].Failed || h.recorder.transcripts[1].Failed {
		t.Fatalf("unexpected transcript flags %+v", h.recorder.transcripts)
	}
}

func TestTriggerWithoutPageIsConfigurationError(t *testing.T) {
	h := newOCRHarness(&fakeEngine{})
	h.loaded = false

	err := h.loop.Trigger()
	if kind, ok := models.KindOf(err); !ok || kind != models.KindConfiguration {
		t.Fatalf("expected a configuration error, got %v", err)
	}
	if !errors.Is(err, models.ErrNoPage) {
		t.Fatalf("expected ErrNoPage in the chain, got %v", err)
	}
	if h.loop.Busy() || h.engine.Calls() != 0 {
		t.Fatalf("rejected trigger had side effects")
	}

	h.loop.Start()
	h.m.Advance(3 * time.Second)
	h.m.Settle()
	if h.engine.Calls() != 0 || h.m.PendingTimers() != 1 {
		t.Fatalf("periodic ticks without a page should skip quietly and keep ticking")
	}
}

func TestStopDiscardsPeriodicResult(t *testing.T) {
	h := newOCRHarness(&fakeEngine{texts: []string{"late"}, gate: make(chan struct{})})
	h.loop.Start()
	h.m.Advance(time.Second)
	waitEngineCalls(t, h.engine, 1)

	h.loop.Stop()
	h.engine.gate <- struct{}{}
	h.m.Settle()

	if st := h.loop.State(); st.Text != "" || st.Busy || st.Running {
		t.Fatalf("result applied after stop: %+v", st)
	}
	if len(h.recorder.transcripts) != 0 {
		t.Fatalf("discarded result was persisted")
	}
	if h.m.PendingTimers() != 0 {
		t.Fatalf("stopped loop left a timer behind")
	}
}
