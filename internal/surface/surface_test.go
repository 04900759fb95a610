package surface

import (
	"context"
	"errors"
	"fmt"
	"image"
	"image/color"
	"image/png"
	"os"
	"path/filepath"
	"sync"
	"testing"
	"time"

	"github.com/golang/geo/r2"

	"github.com/jengzang/gazereader-go/internal/gaze"
	"github.com/jengzang/gazereader-go/internal/heatmap"
	"github.com/jengzang/gazereader-go/internal/models"
	"github.com/jengzang/gazereader-go/internal/scheduler"
)

var epoch = time.Date(2026, 1, 1, 0, 0, 0, 0, time.UTC)

type fakeRenderer struct {
	mu    sync.Mutex
	fail  map[int]error
	gates map[int]chan struct{}
}

func (r *fakeRenderer) RenderPage(_ context.Context, index int, scale float64) (image.Image, error) {
	r.mu.Lock()
	gate := r.gates[index]
	err := r.fail[index]
	r.mu.Unlock()
	if gate != nil {
		<-gate
	}
	if err != nil {
		return nil, err
	}
	w := int(800 * scale)
	h := int(600 * scale)
	return image.NewRGBA(image.Rect(0, 0, w, h)), nil
}

type reporter struct{ infos, errors []string }

func (r *reporter) Info(_, msg string)  { r.infos = append(r.infos, msg) }
func (r *reporter) Error(_, msg string) { r.errors = append(r.errors, msg) }

type harness struct {
	m        *scheduler.Manual
	renderer *fakeRenderer
	heat     *heatmap.Accumulator
	reporter *reporter
	c        *Controller
}

func newHarness() *harness {
	h := &harness{
		m:        scheduler.NewManual(epoch),
		renderer: &fakeRenderer{fail: map[int]error{}, gates: map[int]chan struct{}{}},
		heat:     heatmap.NewAccumulator(heatmap.DefaultConfig()),
		reporter: &reporter{},
	}
	cell := gaze.NewCell(models.DefaultGazePoint)
	h.c = NewController(context.Background(), h.m, h.renderer, h.heat, cell, h.reporter)
	return h
}

func (h *harness) load(index int, scale float64) error {
	var out error
	h.c.LoadPage(index, scale, func(_ models.PageSurface, err error) { out = err })
	h.m.Settle()
	return out
}

func TestLoadPageResetsHeatmap(t *testing.T) {
	h := newHarness()
	for i := 0; i < 10; i++ {
		h.heat.Add(r2Point(float64(i), float64(i)), epoch)
	}
	if err := h.load(0, 1); err != nil {
		t.Fatalf("load failed: %v", err)
	}

	s, ok := h.c.Surface()
	if !ok || s.WidthPx != 800 || s.HeightPx != 600 || s.Scale != 1 {
		t.Fatalf("unexpected surface %+v", s)
	}
	samples := h.heat.Samples()
	if len(samples) != 1 {
		t.Fatalf("expected one baseline sample, got %d", len(samples))
	}
	if samples[0].X != 400 || samples[0].Y != 240 {
		t.Fatalf("baseline sample at (%v,%v), want (400,240)", samples[0].X, samples[0].Y)
	}
}

func TestLoadFailureKeepsPreviousSurface(t *testing.T) {
	h := newHarness()
	h.load(0, 1)
	h.heat.Add(r2Point(10, 10), epoch)
	h.renderer.fail[3] = errors.New("corrupt page")

	err := h.load(3, 1)
	if kind, ok := models.KindOf(err); !ok || kind != models.KindSurfaceLoad {
		t.Fatalf("expected surface load error, got %v", err)
	}
	if s, _ := h.c.Surface(); s.PageIndex != 0 || s.WidthPx != 800 {
		t.Fatalf("previous surface lost: %+v", s)
	}
	if h.heat.Len() != 2 {
		t.Fatalf("failed load touched the heatmap: %d samples", h.heat.Len())
	}
	if len(h.reporter.errors) != 1 {
		t.Fatalf("failure not reported: %v", h.reporter.errors)
	}
}

func TestLatestLoadWins(t *testing.T) {
	h := newHarness()
	gate := make(chan struct{})
	h.renderer.gates[1] = gate

	var first error
	h.c.LoadPage(1, 1, func(_ models.PageSurface, err error) { first = err })
	h.c.LoadPage(2, 2, nil)
	if !h.c.Loading() {
		t.Fatalf("expected loads in progress")
	}
	close(gate)
	h.m.Settle()

	s, _ := h.c.Surface()
	if s.PageIndex != 2 || s.WidthPx != 1600 {
		t.Fatalf("stale load replaced the surface: %+v", s)
	}
	if first == nil {
		t.Fatalf("superseded load reported success")
	}
	if h.c.Loading() {
		t.Fatalf("loading counter not drained")
	}
}

func TestSetScale(t *testing.T) {
	h := newHarness()
	err := h.c.SetScale(2, nil)
	if kind, ok := models.KindOf(err); !ok || kind != models.KindConfiguration {
		t.Fatalf("expected configuration error without a page, got %v", err)
	}

	h.load(4, 1)
	if err := h.c.SetScale(0.5, nil); err != nil {
		t.Fatalf("SetScale failed: %v", err)
	}
	h.m.Settle()
	if s, _ := h.c.Surface(); s.PageIndex != 4 || s.WidthPx != 400 || s.HeightPx != 300 {
		t.Fatalf("unexpected surface after rescale: %+v", s)
	}
}

func TestFocusCrop(t *testing.T) {
	h := newHarness()
	if _, _, err := h.c.FocusCrop(models.RegionSize{Width: 240, Height: 140}); !errors.Is(err, models.ErrNoPage) {
		t.Fatalf("expected ErrNoPage, got %v", err)
	}
	h.load(0, 1)
	rect, img, err := h.c.FocusCrop(models.RegionSize{Width: 240, Height: 140})
	if err != nil {
		t.Fatalf("FocusCrop failed: %v", err)
	}
	if rect != (models.FocusRect{X: 280, Y: 170, Width: 240, Height: 140}) {
		t.Fatalf("unexpected rect %+v", rect)
	}
	if img.Bounds().Dx() != 240 || img.Bounds().Dy() != 140 {
		t.Fatalf("unexpected crop bounds %v", img.Bounds())
	}
}

func TestImageDirRenderer(t *testing.T) {
	dir := t.TempDir()
	for i, c := range []color.RGBA{{255, 0, 0, 255}, {0, 0, 255, 255}} {
		img := image.NewRGBA(image.Rect(0, 0, 40, 20))
		for y := 0; y < 20; y++ {
			for x := 0; x < 40; x++ {
				img.SetRGBA(x, y, c)
			}
		}
		f, err := os.Create(filepath.Join(dir, fmt.Sprintf("page-%02d.png", i)))
		if err != nil {
			t.Fatal(err)
		}
		png.Encode(f, img)
		f.Close()
	}
	os.WriteFile(filepath.Join(dir, "notes.txt"), []byte("ignored"), 0o644)

	r, err := NewImageDirRenderer(dir)
	if err != nil {
		t.Fatalf("NewImageDirRenderer failed: %v", err)
	}
	if r.Pages() != 2 {
		t.Fatalf("expected 2 pages, got %d", r.Pages())
	}

	img, err := r.RenderPage(context.Background(), 1, 2)
	if err != nil {
		t.Fatalf("RenderPage failed: %v", err)
	}
	if b := img.Bounds(); b.Dx() != 80 || b.Dy() != 40 {
		t.Fatalf("unexpected scaled bounds %v", b)
	}
	if r, _, b, _ := img.At(40, 20).RGBA(); b>>8 < 250 || r>>8 > 5 {
		t.Fatalf("page order wrong: expected blue second page")
	}

	if _, err := r.RenderPage(context.Background(), 2, 1); !errors.Is(err, ErrPageOutOfRange) {
		t.Fatalf("expected ErrPageOutOfRange, got %v", err)
	}
}

func TestNewRendererRejectsMissingPath(t *testing.T) {
	if _, err := NewRenderer(filepath.Join(t.TempDir(), "missing")); err == nil {
		t.Fatalf("expected an error for a missing document")
	}
	if _, ok := mustRenderer(t, "doc.pdf").(*PDFRenderer); !ok {
		t.Fatalf("pdf path should select the pdf renderer")
	}
}

func mustRenderer(t *testing.T, path string) Renderer {
	t.Helper()
	r, err := NewRenderer(path)
	if err != nil {
		t.Fatalf("NewRenderer(%q) failed: %v", path, err)
	}
	return r
}

func r2Point(x, y float64) r2.Point { return r2.Point{X: x, Y: y} }
