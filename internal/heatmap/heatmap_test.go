package heatmap

import (
	"image"
	"image/color"
	"math"
	"testing"
	"time"

	"github.com/golang/geo/r2"
	"github.com/jengzang/gazereader-go/internal/scheduler"
)

var epoch = time.Date(2026, 1, 1, 0, 0, 0, 0, time.UTC)

func testConfig() Config {
	return Config{Capacity: 5, DecayWindow: 2 * time.Second, BaseRadius: 30, BaseOpacity: 0.5}
}

func TestAddEnforcesCapacity(t *testing.T) {
	acc := NewAccumulator(testConfig())
	for i := 0; i < 23; i++ {
		acc.Add(r2.Point{X: float64(i), Y: 1}, epoch.Add(time.Duration(i)*time.Millisecond))
		if acc.Len() > 5 {
			t.Fatalf("capacity exceeded after %d adds: %d", i+1, acc.Len())
		}
	}
	samples := acc.Samples()
	if samples[0].X != 18 || samples[4].X != 22 {
		t.Fatalf("expected FIFO eviction to keep samples 18..22, got %v..%v", samples[0].X, samples[4].X)
	}
	if evicted, _ := acc.Stats(); evicted != 18 {
		t.Fatalf("expected 18 evictions, got %d", evicted)
	}
}

func TestRenderFreshSample(t *testing.T) {
	acc := NewAccumulator(testConfig())
	acc.Add(r2.Point{X: 10, Y: 20}, epoch)
	spots := acc.Render(epoch)
	if len(spots) != 1 {
		t.Fatalf("expected 1 spot, got %d", len(spots))
	}
	if spots[0].Opacity != 0.5 || spots[0].Radius != 30 {
		t.Fatalf("fresh sample should render at base opacity/radius, got %+v", spots[0])
	}
}

func TestRenderLinearDecay(t *testing.T) {
	acc := NewAccumulator(testConfig())
	acc.Add(r2.Point{}, epoch)
	spots := acc.Render(epoch.Add(500 * time.Millisecond))
	// decay = 0.75
	if got, want := spots[0].Opacity, 0.5*0.75; math.Abs(got-want) > 1e-12 {
		t.Fatalf("opacity = %v, want %v", got, want)
	}
	if got, want := spots[0].Radius, 30*(0.6+0.4*0.75); math.Abs(got-want) > 1e-12 {
		t.Fatalf("radius = %v, want %v", got, want)
	}
}

func TestRenderDecayBoundary(t *testing.T) {
	acc := NewAccumulator(testConfig())
	acc.Add(r2.Point{X: 1, Y: 1}, epoch)

	spots := acc.Render(epoch.Add(2 * time.Second))
	if len(spots) != 1 {
		t.Fatalf("sample at the window boundary should still render, got %d spots", len(spots))
	}
	if spots[0].Opacity != 0 {
		t.Fatalf("boundary sample should have opacity 0, got %v", spots[0].Opacity)
	}
	if math.Abs(spots[0].Radius-18) > 1e-12 {
		t.Fatalf("boundary sample radius = %v, want 18", spots[0].Radius)
	}

	if spots := acc.Render(epoch.Add(2*time.Second + time.Nanosecond)); len(spots) != 0 {
		t.Fatalf("expired sample rendered: %+v", spots)
	}
	if acc.Len() != 0 {
		t.Fatalf("expired sample not purged, %d left", acc.Len())
	}
}

func TestRenderIsIdempotent(t *testing.T) {
	acc := NewAccumulator(testConfig())
	acc.Add(r2.Point{X: 1}, epoch)
	acc.Add(r2.Point{X: 2}, epoch.Add(time.Second))
	now := epoch.Add(1500 * time.Millisecond)
	a := acc.Render(now)
	b := acc.Render(now)
	if len(a) != len(b) {
		t.Fatalf("render not idempotent: %d vs %d spots", len(a), len(b))
	}
	for i := range a {
		if a[i] != b[i] {
			t.Fatalf("spot %d differs: %+v vs %+v", i, a[i], b[i])
		}
	}
}

func TestClear(t *testing.T) {
	acc := NewAccumulator(testConfig())
	acc.Add(r2.Point{}, epoch)
	acc.Add(r2.Point{}, epoch)
	acc.Clear()
	if acc.Len() != 0 || len(acc.Render(epoch)) != 0 {
		t.Fatalf("clear left samples behind")
	}
}

func TestPainterDrawsDisc(t *testing.T) {
	p := NewPainter()
	frame := p.Paint(100, 80, []Spot{{Center: r2.Point{X: 50, Y: 40}, Radius: 10, Opacity: 1}})
	if a := frame.RGBAAt(50, 40).A; a < 250 {
		t.Fatalf("expected opaque centre, alpha=%d", a)
	}
	if a := frame.RGBAAt(5, 5).A; a != 0 {
		t.Fatalf("expected transparent corner, alpha=%d", a)
	}
	half := p.Paint(100, 80, []Spot{{Center: r2.Point{X: 50, Y: 40}, Radius: 10, Opacity: 0.5}})
	if a := half.RGBAAt(50, 40).A; a < 120 || a > 135 {
		t.Fatalf("expected half alpha at centre, got %d", a)
	}
}

func TestFlatten(t *testing.T) {
	page := image.NewRGBA(image.Rect(0, 0, 4, 4))
	for i := range page.Pix {
		page.Pix[i] = 255
	}
	overlay := image.NewRGBA(image.Rect(0, 0, 4, 4))
	overlay.Set(1, 1, color.RGBA{R: 255, A: 255})
	out := Flatten(page, overlay)
	if got := out.RGBAAt(1, 1); got.G != 0 || got.R != 255 {
		t.Fatalf("overlay not composited: %+v", got)
	}
	if got := out.RGBAAt(0, 0); got != (color.RGBA{R: 255, G: 255, B: 255, A: 255}) {
		t.Fatalf("page pixel altered: %+v", got)
	}
}

type fakeCanvas struct {
	w, h      int
	loaded    bool
	frames    []Frame
	decorated int
}

func (c *fakeCanvas) Size() (int, int, bool) { return c.w, c.h, c.loaded }
func (c *fakeCanvas) Decorate(*image.RGBA)   { c.decorated++ }
func (c *fakeCanvas) Publish(f Frame)        { c.frames = append(c.frames, f) }

func TestRenderLoopDecaysWithoutNewSamples(t *testing.T) {
	m := scheduler.NewManual(epoch)
	acc := NewAccumulator(testConfig())
	canvas := &fakeCanvas{w: 64, h: 64, loaded: true}
	loop := NewRenderLoop(m, acc, NewPainter(), canvas, 500*time.Millisecond)

	acc.Add(r2.Point{X: 32, Y: 32}, epoch)
	loop.Start()
	m.Advance(0)
	if len(canvas.frames) != 1 || canvas.frames[0].Spots != 1 {
		t.Fatalf("expected an initial frame with one spot, got %+v", canvas.frames)
	}

	m.Advance(2500 * time.Millisecond)
	last := canvas.frames[len(canvas.frames)-1]
	if last.Spots != 0 || acc.Len() != 0 {
		t.Fatalf("sample should have decayed away, spots=%d len=%d", last.Spots, acc.Len())
	}
	if len(canvas.frames) != 6 {
		t.Fatalf("expected 6 frames over 2.5s at 500ms, got %d", len(canvas.frames))
	}

	loop.Stop()
	m.Advance(5 * time.Second)
	if len(canvas.frames) != 6 {
		t.Fatalf("stopped loop kept rendering")
	}
	if canvas.decorated != 6 {
		t.Fatalf("expected every frame to be decorated, got %d", canvas.decorated)
	}
}

func TestRenderLoopSkipsWithoutPage(t *testing.T) {
	m := scheduler.NewManual(epoch)
	canvas := &fakeCanvas{}
	loop := NewRenderLoop(m, NewAccumulator(testConfig()), NewPainter(), canvas, time.Second)
	loop.Start()
	m.Advance(3 * time.Second)
	if len(canvas.frames) != 0 {
		t.Fatalf("rendered without a page")
	}
	if m.PendingTimers() != 1 {
		t.Fatalf("loop should keep ticking while waiting for a page")
	}
}
