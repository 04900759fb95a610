package repository

import (
	"database/sql"
	"fmt"
	"time"

	"github.com/jengzang/gazereader-go/internal/models"
)

// CalibrationRepository handles database operations for calibration sessions
type CalibrationRepository struct {
	db *sql.DB
}

// NewCalibrationRepository creates a new calibration repository
func NewCalibrationRepository(db *sql.DB) *CalibrationRepository {
	return &CalibrationRepository{db: db}
}

// Save inserts or replaces a session
func (r *CalibrationRepository) Save(s models.CalibrationSession) error {
	var finished sql.NullInt64
	if s.FinishedAt != nil {
		finished = sql.NullInt64{Int64: s.FinishedAt.UnixMilli(), Valid: true}
	}

	query := `
		INSERT INTO calibration_sessions (id, phase, points_captured, started_at, finished_at, error_message)
		VALUES (?, ?, ?, ?, ?, ?)
		ON CONFLICT(id) DO UPDATE SET
			phase = excluded.phase,
			points_captured = excluded.points_captured,
			finished_at = excluded.finished_at,
			error_message = excluded.error_message
	`
	_, err := r.db.Exec(query, s.ID, string(s.Phase), s.PointsCaptured, s.StartedAt.UnixMilli(), finished, s.Error)
	if err != nil {
		return fmt.Errorf("failed to save calibration session: %w", err)
	}
	return nil
}

// List retrieves sessions newest first
func (r *CalibrationRepository) List(filter models.PageFilter) ([]models.CalibrationSession, int64, error) {
	var total int64
	if err := r.db.QueryRow("SELECT COUNT(*) FROM calibration_sessions").Scan(&total); err != nil {
		return nil, 0, fmt.Errorf("failed to count calibration sessions: %w", err)
	}

	filter.Normalize()
	rows, err := r.db.Query(`
		SELECT id, phase, points_captured, started_at, finished_at, error_message
		FROM calibration_sessions
		ORDER BY started_at DESC, rowid DESC
		LIMIT ? OFFSET ?`, filter.PageSize, filter.Offset())
	if err != nil {
		return nil, 0, fmt.Errorf("failed to query calibration sessions: %w", err)
	}
	defer rows.Close()

	sessions := []models.CalibrationSession{}
	for rows.Next() {
		var s models.CalibrationSession
		var phase string
		var started int64
		var finished sql.NullInt64
		if err := rows.Scan(&s.ID, &phase, &s.PointsCaptured, &started, &finished, &s.Error); err != nil {
			return nil, 0, fmt.Errorf("failed to scan calibration session: %w", err)
		}
		s.Phase = models.CalibrationPhase(phase)
		s.StartedAt = time.UnixMilli(started).UTC()
		if finished.Valid {
			t := time.UnixMilli(finished.Int64).UTC()
			s.FinishedAt = &t
		}
		sessions = append(sessions, s)
	}

	return sessions, total, rows.Err()
}

// CountByPhase returns the number of sessions per phase
func (r *CalibrationRepository) CountByPhase() (map[models.CalibrationPhase]int64, error) {
	rows, err := r.db.Query("SELECT phase, COUNT(*) FROM calibration_sessions GROUP BY phase")
	if err != nil {
		return nil, fmt.Errorf("failed to count calibration phases: %w", err)
	}
	defer rows.Close()

	counts := make(map[models.CalibrationPhase]int64)
	for rows.Next() {
		var phase string
		var n int64
		if err := rows.Scan(&phase, &n); err != nil {
			return nil, fmt.Errorf("failed to scan phase count: %w", err)
		}
		counts[models.CalibrationPhase(phase)] = n
	}
	return counts, rows.Err()
}
