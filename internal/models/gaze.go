package models

// GazePoint is the latest known gaze location in normalized page space.
type GazePoint struct {
	X          float64 `json:"x"`          // 0-1, left to right
	Y          float64 `json:"y"`          // 0-1, top to bottom
	Calibrated bool    `json:"calibrated"` // Whether the service had a fitted model
}

// DefaultGazePoint is the center-biased seed used before the first reading arrives.
var DefaultGazePoint = GazePoint{X: 0.5, Y: 0.4}

// GazeReading is the wire shape returned by GET /gaze on the gaze service.
type GazeReading struct {
	X          float64 `json:"x"`
	Y          float64 `json:"y"`
	Calibrated bool    `json:"calibrated"`
	Source     string  `json:"source,omitempty"` // "mediapipe" or "fallback"
}

// NormalizedPoint is a point in [0,1]x[0,1] gaze space.
type NormalizedPoint struct {
	X float64 `json:"x" binding:"min=0,max=1"`
	Y float64 `json:"y" binding:"min=0,max=1"`
}

// SamplingState is the lifecycle state of the gaze sampling loop.
type SamplingState string

// SamplingState constants
const (
	SamplingStopped SamplingState = "stopped"
	SamplingPolling SamplingState = "polling"
)

// SamplingStats describes the sampling loop for the status surface.
type SamplingStats struct {
	State        SamplingState `json:"state"`
	Failures     int           `json:"failures"`
	IntervalMS   int64         `json:"interval_ms"`
	Source       string        `json:"source,omitempty"`
	Samples      uint64        `json:"samples"`
	LastSampleAt int64         `json:"last_sample_at,omitempty"` // Unix milliseconds
	LatencyP50MS float64       `json:"latency_p50_ms,omitempty"` // Round trip of successful polls
	LatencyP95MS float64       `json:"latency_p95_ms,omitempty"`
}
