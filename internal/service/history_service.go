package service

import (
	"fmt"

	"github.com/jengzang/gazereader-go/internal/models"
	"github.com/jengzang/gazereader-go/internal/repository"
)

// HistoryService handles read access to persisted transcripts, calibration
// sessions and exports
type HistoryService struct {
	transcripts  *repository.TranscriptRepository
	calibrations *repository.CalibrationRepository
	exports      *repository.ExportRepository
}

// NewHistoryService creates a new history service
func NewHistoryService(transcripts *repository.TranscriptRepository, calibrations *repository.CalibrationRepository, exports *repository.ExportRepository) *HistoryService {
	return &HistoryService{
		transcripts:  transcripts,
		calibrations: calibrations,
		exports:      exports,
	}
}

// ListTranscripts retrieves OCR transcripts with filtering and pagination
func (s *HistoryService) ListTranscripts(filter models.TranscriptFilter) (*models.ListResponse[models.Transcript], error) {
	filter.Normalize()
	data, total, err := s.transcripts.List(filter)
	if err != nil {
		return nil, fmt.Errorf("failed to list transcripts: %w", err)
	}
	return listResponse(data, total, filter.PageFilter), nil
}

// GetTranscript retrieves a single transcript
func (s *HistoryService) GetTranscript(id string) (*models.Transcript, error) {
	t, err := s.transcripts.GetByID(id)
	if err != nil {
		return nil, fmt.Errorf("failed to get transcript: %w", err)
	}
	return t, nil
}

// ListCalibrations retrieves finished calibration sessions
func (s *HistoryService) ListCalibrations(filter models.PageFilter) (*models.ListResponse[models.CalibrationSession], error) {
	filter.Normalize()
	data, total, err := s.calibrations.List(filter)
	if err != nil {
		return nil, fmt.Errorf("failed to list calibration sessions: %w", err)
	}
	return listResponse(data, total, filter), nil
}

// CalibrationSummary counts sessions per outcome
func (s *HistoryService) CalibrationSummary() (map[models.CalibrationPhase]int64, error) {
	counts, err := s.calibrations.CountByPhase()
	if err != nil {
		return nil, fmt.Errorf("failed to summarise calibration sessions: %w", err)
	}
	return counts, nil
}

// ListExports retrieves export records
func (s *HistoryService) ListExports(filter models.PageFilter) (*models.ListResponse[models.ExportRecord], error) {
	filter.Normalize()
	data, total, err := s.exports.List(filter)
	if err != nil {
		return nil, fmt.Errorf("failed to list exports: %w", err)
	}
	return listResponse(data, total, filter), nil
}

func listResponse[T any](data []T, total int64, filter models.PageFilter) *models.ListResponse[T] {
	return &models.ListResponse[T]{
		Data:       data,
		Total:      total,
		Page:       filter.Page,
		PageSize:   filter.PageSize,
		TotalPages: filter.TotalPages(total),
	}
}
