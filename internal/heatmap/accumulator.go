// Package heatmap accumulates gaze samples into a bounded, time-decaying
// heat overlay and rasterises it.
package heatmap

import (
	"time"

	"github.com/golang/geo/r2"
	"github.com/jengzang/gazereader-go/internal/models"
)

// Config holds the fixed heatmap constants.
type Config struct {
	Capacity    int           // Maximum live samples; oldest evicted first
	DecayWindow time.Duration // Age at which a sample is fully transparent
	BaseRadius  float64       // Radius in pixels of a fresh sample
	BaseOpacity float64       // Opacity (0-1) of a fresh sample
}

// DefaultConfig returns the default heatmap constants.
func DefaultConfig() Config {
	return Config{
		Capacity:    120,
		DecayWindow: 3 * time.Second,
		BaseRadius:  36,
		BaseOpacity: 0.35,
	}
}

// Spot is one sample as it should be drawn at a given instant.
type Spot struct {
	Center  r2.Point
	Radius  float64
	Opacity float64
}

// Accumulator is the bounded FIFO of heat samples. It is loop-confined.
type Accumulator struct {
	cfg     Config
	samples []models.HeatSample
	evicted uint64
	purged  uint64
}

// NewAccumulator creates an empty accumulator.
func NewAccumulator(cfg Config) *Accumulator {
	if cfg.Capacity <= 0 {
		cfg.Capacity = DefaultConfig().Capacity
	}
	if cfg.DecayWindow <= 0 {
		cfg.DecayWindow = DefaultConfig().DecayWindow
	}
	return &Accumulator{cfg: cfg, samples: make([]models.HeatSample, 0, cfg.Capacity)}
}

// Config returns the accumulator's constants.
func (a *Accumulator) Config() Config { return a.cfg }

// Add appends a sample captured at the given time, evicting the oldest
// sample when the capacity is exceeded.
func (a *Accumulator) Add(p r2.Point, at time.Time) {
	a.samples = append(a.samples, models.HeatSample{X: p.X, Y: p.Y, CapturedAt: at})
	if over := len(a.samples) - a.cfg.Capacity; over > 0 {
		copy(a.samples, a.samples[over:])
		a.samples = a.samples[:a.cfg.Capacity]
		a.evicted += uint64(over)
	}
}

// Render returns the visible spots at now and drops every sample older than
// the decay window. Rendering twice at the same instant yields the same spots.
func (a *Accumulator) Render(now time.Time) []Spot {
	spots := make([]Spot, 0, len(a.samples))
	kept := a.samples[:0]
	for _, s := range a.samples {
		age := now.Sub(s.CapturedAt)
		if age > a.cfg.DecayWindow {
			a.purged++
			continue
		}
		kept = append(kept, s)
		if age < 0 {
			age = 0
		}
		spots = append(spots, a.spot(s, age))
	}
	a.samples = kept
	return spots
}

func (a *Accumulator) spot(s models.HeatSample, age time.Duration) Spot {
	decay := 1 - float64(age)/float64(a.cfg.DecayWindow)
	return Spot{
		Center:  r2.Point{X: s.X, Y: s.Y},
		Radius:  a.cfg.BaseRadius * (0.6 + 0.4*decay),
		Opacity: a.cfg.BaseOpacity * decay,
	}
}

// Clear drops every sample.
func (a *Accumulator) Clear() {
	a.samples = a.samples[:0]
}

// Len returns the number of samples currently held.
func (a *Accumulator) Len() int { return len(a.samples) }

// Samples returns a copy of the held samples, oldest first.
func (a *Accumulator) Samples() []models.HeatSample {
	out := make([]models.HeatSample, len(a.samples))
	copy(out, a.samples)
	return out
}

// Stats returns how many samples were evicted by capacity and purged by decay.
func (a *Accumulator) Stats() (evicted, purged uint64) { return a.evicted, a.purged }
