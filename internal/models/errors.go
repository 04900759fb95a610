package models

import (
	"errors"
	"fmt"
)

// ErrorKind classifies failures for status reporting and HTTP mapping.
type ErrorKind int

const (
	// KindTransientService is a gaze/OCR request failure; recovered by backoff or skip.
	KindTransientService ErrorKind = iota
	// KindCalibrationStep aborts the running calibration session only.
	KindCalibrationStep
	// KindSurfaceLoad means a page failed to render; the previous surface is kept.
	KindSurfaceLoad
	// KindConfiguration is a request that cannot run in the current state (e.g. no page loaded).
	KindConfiguration
)

// String returns a human-readable string representation of the error kind
func (k ErrorKind) String() string {
	switch k {
	case KindTransientService:
		return "transient_service"
	case KindCalibrationStep:
		return "calibration_step"
	case KindSurfaceLoad:
		return "surface_load"
	case KindConfiguration:
		return "configuration"
	default:
		return "unknown"
	}
}

// Error is a classified failure.
type Error struct {
	Kind ErrorKind
	Op   string
	Err  error
}

func (e *Error) Error() string {
	if e.Err == nil {
		return e.Op
	}
	return fmt.Sprintf("%s: %v", e.Op, e.Err)
}

func (e *Error) Unwrap() error { return e.Err }

// NewError wraps err with a kind and operation name.
func NewError(kind ErrorKind, op string, err error) *Error {
	return &Error{Kind: kind, Op: op, Err: err}
}

// KindOf returns the kind of the first *Error in err's chain.
func KindOf(err error) (ErrorKind, bool) {
	var e *Error
	if errors.As(err, &e) {
		return e.Kind, true
	}
	return 0, false
}

var (
	// ErrNoPage is returned when an operation needs a loaded page surface.
	ErrNoPage = errors.New("no page loaded")
	// ErrCalibrationRunning is returned when calibration is started twice.
	ErrCalibrationRunning = errors.New("calibration already running")
	// ErrBusy is returned when an exclusive operation is already in flight.
	ErrBusy = errors.New("operation already in flight")
)
