package gaze

import (
	"context"
	"fmt"
	"log/slog"
	"time"

	"github.com/jengzang/gazereader-go/internal/models"
	"github.com/jengzang/gazereader-go/internal/scheduler"
	"github.com/jengzang/gazereader-go/internal/spatial"
	"github.com/jengzang/gazereader-go/internal/stats"
	"github.com/jengzang/gazereader-go/internal/status"
)

// Source yields one gaze reading per call.
type Source interface {
	Current(ctx context.Context) (models.GazeReading, error)
}

// Sink receives every accepted gaze point (e.g. to feed the heatmap).
type Sink func(p models.GazePoint, at time.Time)

// SamplingLoop polls the gaze service with an adaptive interval. At most one
// request is in flight: the next poll is scheduled only after the previous
// one resolves. All methods must be called on the scheduler loop.
type SamplingLoop struct {
	ctx      context.Context
	sched    scheduler.Scheduler
	source   Source
	cell     *Cell
	sink     Sink
	reporter status.Reporter
	cfg      BackoffConfig

	state     models.SamplingState
	gen       uint64
	inFlight  bool
	failures  int
	interval  time.Duration
	timer     scheduler.Timer
	lastAt    time.Time
	discarded uint64
	latency   *stats.Window
}

// latencyWindow is the number of round trips kept for latency percentiles.
const latencyWindow = 64

// NewSamplingLoop creates a stopped loop. ctx bounds every request.
func NewSamplingLoop(ctx context.Context, s scheduler.Scheduler, source Source, cell *Cell, sink Sink, reporter status.Reporter, cfg BackoffConfig) *SamplingLoop {
	return &SamplingLoop{
		ctx:      ctx,
		sched:    s,
		source:   source,
		cell:     cell,
		sink:     sink,
		reporter: reporter,
		cfg:      cfg,
		state:    models.SamplingStopped,
		interval: cfg.BaseInterval,
		latency:  stats.NewWindow(latencyWindow),
	}
}

// Start begins polling immediately. If a request from an earlier run is
// still in flight, polling resumes once it resolves.
func (l *SamplingLoop) Start() {
	if l.state == models.SamplingPolling {
		return
	}
	l.state = models.SamplingPolling
	l.gen++
	l.failures = 0
	l.interval = l.cfg.BaseInterval
	slog.Info("gaze: sampling started", "interval", l.interval)
	l.reporter.Info("gaze", "Gaze sampling started")
	if !l.inFlight {
		l.schedule(0)
	}
}

// Stop cancels the next poll. An in-flight request is left to finish and its
// result is discarded.
func (l *SamplingLoop) Stop() {
	if l.state == models.SamplingStopped {
		return
	}
	l.state = models.SamplingStopped
	l.gen++
	if l.timer != nil {
		l.timer.Stop()
		l.timer = nil
	}
	slog.Info("gaze: sampling stopped", "failures", l.failures)
	l.reporter.Info("gaze", "Gaze sampling stopped")
}

// State returns the loop state.
func (l *SamplingLoop) State() models.SamplingState { return l.state }

// Failures returns the number of consecutive failures.
func (l *SamplingLoop) Failures() int { return l.failures }

// Interval returns the delay used for the next poll.
func (l *SamplingLoop) Interval() time.Duration { return l.interval }

// InFlight reports whether a request is outstanding.
func (l *SamplingLoop) InFlight() bool { return l.inFlight }

// Discarded returns how many results arrived after a stop and were dropped.
func (l *SamplingLoop) Discarded() uint64 { return l.discarded }

// Stats summarises the loop for the status surface.
func (l *SamplingLoop) Stats() models.SamplingStats {
	st := models.SamplingStats{
		State:      l.state,
		Failures:   l.failures,
		IntervalMS: l.interval.Milliseconds(),
		Source:     l.cell.Source(),
		Samples:    l.cell.Updates(),
	}
	if !l.lastAt.IsZero() {
		st.LastSampleAt = l.lastAt.UnixMilli()
	}
	if l.latency.Len() > 0 {
		p := l.latency.Percentiles(50, 95)
		st.LatencyP50MS = p[0]
		st.LatencyP95MS = p[1]
	}
	return st
}

func (l *SamplingLoop) schedule(d time.Duration) {
	l.timer = l.sched.AfterFunc(d, l.poll)
}

func (l *SamplingLoop) poll() {
	l.timer = nil
	if l.state != models.SamplingPolling || l.inFlight {
		return
	}
	l.inFlight = true
	gen := l.gen
	sent := l.sched.Now()
	scheduler.Call(l.sched, func() (models.GazeReading, error) {
		return l.source.Current(l.ctx)
	}, func(r models.GazeReading, err error) {
		if err == nil {
			l.latency.Add(l.sched.Now().Sub(sent))
		}
		l.resolve(gen, r, err)
	})
}

func (l *SamplingLoop) resolve(gen uint64, r models.GazeReading, err error) {
	l.inFlight = false
	if l.state != models.SamplingPolling {
		l.discarded++
		return
	}
	if gen != l.gen {
		// Restarted while this request was outstanding.
		l.discarded++
		l.schedule(0)
		return
	}

	if err != nil {
		l.failures++
		l.interval = failureInterval(l.failures, l.cfg)
		slog.Warn("gaze: poll failed",
			"error", err,
			"failures", l.failures,
			"next", l.interval,
		)
		l.reporter.Error("gaze", fmt.Sprintf("Gaze service unavailable, retrying in %s", l.interval))
		l.schedule(l.interval)
		return
	}

	p := models.GazePoint{
		X:          spatial.Clamp01(r.X),
		Y:          spatial.Clamp01(r.Y),
		Calibrated: r.Calibrated,
	}
	l.cell.store(p, r.Source)
	l.lastAt = l.sched.Now()
	if l.failures > 0 {
		slog.Info("gaze: service recovered", "after_failures", l.failures)
		l.reporter.Info("gaze", "Gaze service reconnected")
	}
	l.failures = 0
	l.interval = l.cfg.BaseInterval
	if l.sink != nil {
		l.sink(p, l.lastAt)
	}
	l.schedule(l.interval)
}
