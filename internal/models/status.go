package models

// StatusLevel classifies a status line.
type StatusLevel string

// StatusLevel constants
const (
	StatusInfo  StatusLevel = "info"
	StatusError StatusLevel = "error"
)

// StatusLine is the single user-facing status/error message.
type StatusLine struct {
	Level   StatusLevel `json:"level"`
	Source  string      `json:"source"`
	Message string      `json:"message"`
	At      int64       `json:"at"` // Unix milliseconds
}

// StatusSnapshot is everything the user-facing surface shows.
type StatusSnapshot struct {
	Status      StatusLine          `json:"status"`
	Gaze        GazePoint           `json:"gaze"`
	Sampling    SamplingStats       `json:"sampling"`
	OCR         OCRState            `json:"ocr"`
	Calibration CalibrationProgress `json:"calibration"`
	Page        *PageSurface        `json:"page,omitempty"`
	FocusRect   *FocusRect          `json:"focus_rect,omitempty"`
	HeatSamples int                 `json:"heat_samples"`
}
