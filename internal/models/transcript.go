package models

import "time"

// Transcript is a persisted OCR result for one focus region.
type Transcript struct {
	ID        string    `json:"id" db:"id"`
	PageIndex int       `json:"page_index" db:"page_index"`
	Rect      FocusRect `json:"rect"`
	Text      string    `json:"text" db:"text"`
	Empty     bool      `json:"empty" db:"empty"`   // Recognition succeeded but found no text
	Failed    bool      `json:"failed" db:"failed"` // Recognition failed
	Error     string    `json:"error,omitempty" db:"error_message"`
	Engine    string    `json:"engine" db:"engine"`
	Trigger   string    `json:"trigger" db:"trigger_kind"` // "periodic" or "manual"
	CreatedAt time.Time `json:"created_at" db:"created_at"`
}

// Trigger constants
const (
	TriggerPeriodic = "periodic"
	TriggerManual   = "manual"
)

// OCRState is the OCR block of the status surface.
type OCRState struct {
	Running bool       `json:"running"`
	Busy    bool       `json:"busy"`
	Text    string     `json:"text"`
	Message string     `json:"message,omitempty"`
	Rect    *FocusRect `json:"rect,omitempty"`
	At      int64      `json:"at,omitempty"` // Unix milliseconds
	Skipped uint64     `json:"skipped"`
}

// TranscriptFilter represents query parameters for transcript history
type TranscriptFilter struct {
	PageIndex *int   `form:"page_index" binding:"omitempty,min=0"`
	Trigger   string `form:"trigger" binding:"omitempty,oneof=periodic manual"`
	TextOnly  bool   `form:"text_only"` // Skip empty and failed results
	PageFilter
}
