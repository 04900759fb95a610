package repository

import (
	"database/sql"
	"fmt"
	"strings"
	"time"

	"github.com/jengzang/gazereader-go/internal/models"
)

// TranscriptRepository handles database operations for OCR transcripts
type TranscriptRepository struct {
	db *sql.DB
}

// NewTranscriptRepository creates a new transcript repository
func NewTranscriptRepository(db *sql.DB) *TranscriptRepository {
	return &TranscriptRepository{db: db}
}

// Create inserts a transcript
func (r *TranscriptRepository) Create(t models.Transcript) error {
	query := `
		INSERT INTO transcripts (
			id, page_index, rect_x, rect_y, rect_width, rect_height,
			text, empty, failed, error_message, engine, trigger_kind, created_at
		) VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?)
	`
	_, err := r.db.Exec(query,
		t.ID, t.PageIndex, t.Rect.X, t.Rect.Y, t.Rect.Width, t.Rect.Height,
		t.Text, t.Empty, t.Failed, t.Error, t.Engine, t.Trigger, t.CreatedAt.UnixMilli(),
	)
	if err != nil {
		return fmt.Errorf("failed to create transcript: %w", err)
	}
	return nil
}

// List retrieves transcripts with filtering and pagination, newest first
func (r *TranscriptRepository) List(filter models.TranscriptFilter) ([]models.Transcript, int64, error) {
	var conditions []string
	var args []interface{}

	if filter.PageIndex != nil {
		conditions = append(conditions, "page_index = ?")
		args = append(args, *filter.PageIndex)
	}
	if filter.Trigger != "" {
		conditions = append(conditions, "trigger_kind = ?")
		args = append(args, filter.Trigger)
	}
	if filter.TextOnly {
		conditions = append(conditions, "empty = 0 AND failed = 0")
	}

	where := ""
	if len(conditions) > 0 {
		where = " WHERE " + strings.Join(conditions, " AND ")
	}

	var total int64
	if err := r.db.QueryRow("SELECT COUNT(*) FROM transcripts"+where, args...).Scan(&total); err != nil {
		return nil, 0, fmt.Errorf("failed to count transcripts: %w", err)
	}

	filter.Normalize()
	query := `SELECT id, page_index, rect_x, rect_y, rect_width, rect_height,
		text, empty, failed, error_message, engine, trigger_kind, created_at
		FROM transcripts` + where + " ORDER BY created_at DESC, rowid DESC LIMIT ? OFFSET ?"
	args = append(args, filter.PageSize, filter.Offset())

	rows, err := r.db.Query(query, args...)
	if err != nil {
		return nil, 0, fmt.Errorf("failed to query transcripts: %w", err)
	}
	defer rows.Close()

	transcripts := []models.Transcript{}
	for rows.Next() {
		var t models.Transcript
		var created int64
		err := rows.Scan(
			&t.ID, &t.PageIndex, &t.Rect.X, &t.Rect.Y, &t.Rect.Width, &t.Rect.Height,
			&t.Text, &t.Empty, &t.Failed, &t.Error, &t.Engine, &t.Trigger, &created,
		)
		if err != nil {
			return nil, 0, fmt.Errorf("failed to scan transcript: %w", err)
		}
		t.CreatedAt = time.UnixMilli(created).UTC()
		transcripts = append(transcripts, t)
	}

	return transcripts, total, rows.Err()
}

// GetByID retrieves a single transcript, or nil if it does not exist
func (r *TranscriptRepository) GetByID(id string) (*models.Transcript, error) {
	query := `SELECT id, page_index, rect_x, rect_y, rect_width, rect_height,
		text, empty, failed, error_message, engine, trigger_kind, created_at
		FROM transcripts WHERE id = ?`

	var t models.Transcript
	var created int64
	err := r.db.QueryRow(query, id).Scan(
		&t.ID, &t.PageIndex, &t.Rect.X, &t.Rect.Y, &t.Rect.Width, &t.Rect.Height,
		&t.Text, &t.Empty, &t.Failed, &t.Error, &t.Engine, &t.Trigger, &created,
	)
	if err == sql.ErrNoRows {
		return nil, nil
	}
	if err != nil {
		return nil, fmt.Errorf("failed to get transcript: %w", err)
	}
	t.CreatedAt = time.UnixMilli(created).UTC()
	return &t, nil
}
