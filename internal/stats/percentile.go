// Package stats provides small summaries over rolling measurements.
package stats

import (
	"math"
	"sort"
	"time"
)

// Percentiles returns the p-th percentiles (0-100) of values using linear
// interpolation between closest ranks. values is not modified.
func Percentiles(values []float64, ps ...float64) []float64 {
	results := make([]float64, len(ps))
	if len(values) == 0 {
		return results
	}

	sorted := make([]float64, len(values))
	copy(sorted, values)
	sort.Float64s(sorted)

	for i, p := range ps {
		results[i] = quantileSorted(sorted, math.Max(0, math.Min(100, p))/100)
	}
	return results
}

func quantileSorted(sorted []float64, q float64) float64 {
	index := q * float64(len(sorted)-1)
	lower := int(math.Floor(index))
	upper := int(math.Ceil(index))
	if lower == upper {
		return sorted[lower]
	}
	weight := index - float64(lower)
	return sorted[lower]*(1-weight) + sorted[upper]*weight
}

// Window keeps the most recent durations in a fixed-size ring.
// Not safe for concurrent use.
type Window struct {
	values []float64 // milliseconds
	next   int
	full   bool
}

// NewWindow creates a window holding up to size durations.
func NewWindow(size int) *Window {
	if size < 1 {
		size = 1
	}
	return &Window{values: make([]float64, size)}
}

// Add records d, evicting the oldest value once the window is full.
func (w *Window) Add(d time.Duration) {
	w.values[w.next] = float64(d) / float64(time.Millisecond)
	w.next++
	if w.next == len(w.values) {
		w.next = 0
		w.full = true
	}
}

// Len returns the number of recorded values.
func (w *Window) Len() int {
	if w.full {
		return len(w.values)
	}
	return w.next
}

// Reset drops every recorded value.
func (w *Window) Reset() {
	w.next = 0
	w.full = false
}

// Percentiles returns the p-th percentiles of the window in milliseconds.
func (w *Window) Percentiles(ps ...float64) []float64 {
	return Percentiles(w.values[:w.Len()], ps...)
}
