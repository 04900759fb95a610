package repository

import (
	"database/sql"
	"fmt"
	"time"

	"github.com/jengzang/gazereader-go/internal/models"
)

// ExportRepository handles database operations for heatmap exports
type ExportRepository struct {
	db *sql.DB
}

// NewExportRepository creates a new export repository
func NewExportRepository(db *sql.DB) *ExportRepository {
	return &ExportRepository{db: db}
}

// Create inserts an export record
func (r *ExportRepository) Create(e models.ExportRecord) error {
	query := `
		INSERT INTO exports (id, page_index, path, width, height, samples, created_at)
		VALUES (?, ?, ?, ?, ?, ?, ?)
	`
	_, err := r.db.Exec(query, e.ID, e.PageIndex, e.Path, e.Width, e.Height, e.Samples, e.CreatedAt.UnixMilli())
	if err != nil {
		return fmt.Errorf("failed to create export record: %w", err)
	}
	return nil
}

// List retrieves export records newest first
func (r *ExportRepository) List(filter models.PageFilter) ([]models.ExportRecord, int64, error) {
	var total int64
	if err := r.db.QueryRow("SELECT COUNT(*) FROM exports").Scan(&total); err != nil {
		return nil, 0, fmt.Errorf("failed to count exports: %w", err)
	}

	filter.Normalize()
	rows, err := r.db.Query(`
		SELECT id, page_index, path, width, height, samples, created_at
		FROM exports
		ORDER BY created_at DESC, rowid DESC
		LIMIT ? OFFSET ?`, filter.PageSize, filter.Offset())
	if err != nil {
		return nil, 0, fmt.Errorf("failed to query exports: %w", err)
	}
	defer rows.Close()

	records := []models.ExportRecord{}
	for rows.Next() {
		var e models.ExportRecord
		var created int64
		if err := rows.Scan(&e.ID, &e.PageIndex, &e.Path, &e.Width, &e.Height, &e.Samples, &created); err != nil {
			return nil, 0, fmt.Errorf("failed to scan export record: %w", err)
		}
		e.CreatedAt = time.UnixMilli(created).UTC()
		records = append(records, e)
	}

	return records, total, rows.Err()
}
