package models

import "time"

// HeatSample is one timestamped pixel-space point contributing to the overlay.
type HeatSample struct {
	X          float64   `json:"x"` // Pixels from the left edge of the page raster
	Y          float64   `json:"y"` // Pixels from the top edge of the page raster
	CapturedAt time.Time `json:"captured_at"`
}

// HeatmapResponse represents the heatmap export API response
type HeatmapResponse struct {
	Samples     []HeatSample `json:"samples"`
	Count       int          `json:"count"`
	PageIndex   int          `json:"page_index"`
	Width       int          `json:"width"`
	Height      int          `json:"height"`
	DecayWindow int64        `json:"decay_window_ms"`
}

// ExportRecord is a persisted flattened overlay image.
type ExportRecord struct {
	ID        string    `json:"id" db:"id"`
	PageIndex int       `json:"page_index" db:"page_index"`
	Path      string    `json:"path" db:"path"`
	Width     int       `json:"width" db:"width"`
	Height    int       `json:"height" db:"height"`
	Samples   int       `json:"samples" db:"samples"`
	CreatedAt time.Time `json:"created_at" db:"created_at"`
}
