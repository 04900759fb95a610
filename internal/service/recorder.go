package service

import (
	"log/slog"

	"github.com/jengzang/gazereader-go/internal/models"
	"github.com/jengzang/gazereader-go/internal/repository"
	"github.com/jengzang/gazereader-go/internal/scheduler"
)

// Recorder persists loop results. Writes triggered from the loop run
// off-loop so a slow disk never stalls sampling or rendering.
type Recorder struct {
	sched        scheduler.Scheduler
	transcripts  *repository.TranscriptRepository
	calibrations *repository.CalibrationRepository
	exports      *repository.ExportRepository
}

// NewRecorder creates a recorder over the given repositories
func NewRecorder(s scheduler.Scheduler, transcripts *repository.TranscriptRepository, calibrations *repository.CalibrationRepository, exports *repository.ExportRepository) *Recorder {
	return &Recorder{
		sched:        s,
		transcripts:  transcripts,
		calibrations: calibrations,
		exports:      exports,
	}
}

// RecordTranscript stores an OCR result.
func (r *Recorder) RecordTranscript(t models.Transcript) {
	r.sched.Go(func() {
		if err := r.transcripts.Create(t); err != nil {
			slog.Error("failed to persist transcript", "id", t.ID, "error", err)
		}
	})
}

// RecordSession stores a finished calibration session.
func (r *Recorder) RecordSession(s models.CalibrationSession) {
	r.sched.Go(func() {
		if err := r.calibrations.Save(s); err != nil {
			slog.Error("failed to persist calibration session", "id", s.ID, "error", err)
		}
	})
}

// SaveExport stores an export record. It blocks; call it off-loop.
func (r *Recorder) SaveExport(e models.ExportRecord) error {
	return r.exports.Create(e)
}
