// Package status keeps the single user-facing status line.
package status

import (
	"log/slog"
	"time"

	"github.com/jengzang/gazereader-go/internal/models"
)

// Reporter receives status updates from the loops.
type Reporter interface {
	Info(source, message string)
	Error(source, message string)
}

const historySize = 32

// Board holds the current status line and a short history. It is
// loop-confined.
type Board struct {
	now     func() time.Time
	current models.StatusLine
	history []models.StatusLine
}

// NewBoard creates a board stamped by now.
func NewBoard(now func() time.Time) *Board {
	b := &Board{now: now}
	b.current = b.line(models.StatusInfo, "runtime", "Idle")
	return b
}

// Info sets an informational status.
func (b *Board) Info(source, message string) {
	b.set(b.line(models.StatusInfo, source, message))
}

// Error sets an error status.
func (b *Board) Error(source, message string) {
	slog.Warn("status: error reported", "source", source, "message", message)
	b.set(b.line(models.StatusError, source, message))
}

// Current returns the latest status line.
func (b *Board) Current() models.StatusLine { return b.current }

// History returns recent status lines, oldest first.
func (b *Board) History() []models.StatusLine {
	out := make([]models.StatusLine, len(b.history))
	copy(out, b.history)
	return out
}

func (b *Board) set(l models.StatusLine) {
	if l.Level == b.current.Level && l.Source == b.current.Source && l.Message == b.current.Message {
		b.current.At = l.At
		return
	}
	b.current = l
	b.history = append(b.history, l)
	if over := len(b.history) - historySize; over > 0 {
		b.history = b.history[over:]
	}
}

func (b *Board) line(level models.StatusLevel, source, message string) models.StatusLine {
	return models.StatusLine{Level: level, Source: source, Message: message, At: b.now().UnixMilli()}
}
