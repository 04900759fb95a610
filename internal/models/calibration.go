package models

import "time"

// CalibrationPhase is the state of a calibration session.
type CalibrationPhase string

// CalibrationPhase constants
const (
	CalibrationIdle     CalibrationPhase = "idle"
	CalibrationRunning  CalibrationPhase = "running"
	CalibrationAborted  CalibrationPhase = "aborted"
	CalibrationComplete CalibrationPhase = "complete"
)

// CalibrationPointCount is the number of targets in the protocol.
const CalibrationPointCount = 5

// CalibrationSession is the transient state of one calibration run.
type CalibrationSession struct {
	ID             string           `json:"id" db:"id"`
	Phase          CalibrationPhase `json:"phase" db:"phase"`
	PointsCaptured int              `json:"points_captured" db:"points_captured"`
	StartedAt      time.Time        `json:"started_at" db:"started_at"`
	FinishedAt     *time.Time       `json:"finished_at,omitempty" db:"finished_at"`
	Error          string           `json:"error,omitempty" db:"error_message"`
}

// CalibrationTarget is the target currently displayed to the user.
type CalibrationTarget struct {
	Index      int             `json:"index"`
	Normalized NormalizedPoint `json:"normalized"`
	PixelX     float64         `json:"pixel_x"`
	PixelY     float64         `json:"pixel_y"`
}

// CalibrationAck is the response of POST /calibrate/point on the gaze service.
type CalibrationAck struct {
	Status     string `json:"status"`
	Samples    int    `json:"samples"`
	Calibrated bool   `json:"calibrated"`
}

// CalibrationServiceStatus is the response of GET /calibrate/status.
type CalibrationServiceStatus struct {
	Samples    int  `json:"samples"`
	Calibrated bool `json:"calibrated"`
}

// CalibrationProgress is the calibration block of the status surface.
type CalibrationProgress struct {
	SessionID string                    `json:"session_id,omitempty"`
	Phase     CalibrationPhase          `json:"phase"`
	Captured  int                       `json:"captured"`
	Total     int                       `json:"total"`
	Target    *CalibrationTarget        `json:"target,omitempty"`
	Service   *CalibrationServiceStatus `json:"service,omitempty"`
}
