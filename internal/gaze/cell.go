package gaze

import "github.com/jengzang/gazereader-go/internal/models"

// Reader gives read access to the live gaze point.
type Reader interface {
	Latest() models.GazePoint
}

// Cell holds the single live GazePoint. Only the sampling loop writes it;
// every other component receives it as a Reader. It is loop-confined.
type Cell struct {
	point   models.GazePoint
	source  string
	updates uint64
}

// NewCell creates a cell seeded with p.
func NewCell(p models.GazePoint) *Cell {
	return &Cell{point: p}
}

// Latest returns the current gaze point.
func (c *Cell) Latest() models.GazePoint { return c.point }

// Source returns the service-reported origin of the last reading.
func (c *Cell) Source() string { return c.source }

// Updates returns how many readings have been stored.
func (c *Cell) Updates() uint64 { return c.updates }

func (c *Cell) store(p models.GazePoint, source string) {
	c.point = p
	c.source = source
	c.updates++
}
