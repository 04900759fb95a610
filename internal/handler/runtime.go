package handler

import (
	"context"
	"image"
	"image/png"
	"net/http"

	"github.com/gin-gonic/gin"
	"github.com/jengzang/gazereader-go/internal/models"
	"github.com/jengzang/gazereader-go/pkg/response"
)

// Runtime is the live overlay runtime driven by the control API
type Runtime interface {
	Snapshot(ctx context.Context) (models.StatusSnapshot, error)
	StatusHistory(ctx context.Context) ([]models.StatusLine, error)
	StartSampling(ctx context.Context) (models.SamplingStats, error)
	StopSampling(ctx context.Context) (models.SamplingStats, error)
	StartOCR(ctx context.Context) (models.OCRState, error)
	StopOCR(ctx context.Context) (models.OCRState, error)
	TriggerOCR(ctx context.Context) (models.OCRState, error)
	StartCalibration(ctx context.Context) (models.CalibrationProgress, error)
	Calibration(ctx context.Context) (models.CalibrationProgress, error)
	LoadPage(ctx context.Context, index int, scale float64) (models.PageSurface, error)
	PageRaster(ctx context.Context) (image.Image, error)
	ClearHeatmap(ctx context.Context) error
	Heatmap(ctx context.Context) (models.HeatmapResponse, error)
	Overlay(ctx context.Context) (*image.RGBA, error)
	Export(ctx context.Context) (models.ExportRecord, error)
}

// History is read access to persisted results
type History interface {
	ListTranscripts(filter models.TranscriptFilter) (*models.ListResponse[models.Transcript], error)
	GetTranscript(id string) (*models.Transcript, error)
	ListCalibrations(filter models.PageFilter) (*models.ListResponse[models.CalibrationSession], error)
	CalibrationSummary() (map[models.CalibrationPhase]int64, error)
	ListExports(filter models.PageFilter) (*models.ListResponse[models.ExportRecord], error)
}

func writePNG(c *gin.Context, img image.Image) {
	c.Header("Content-Type", "image/png")
	c.Header("Cache-Control", "no-store")
	c.Status(http.StatusOK)
	if err := png.Encode(c.Writer, img); err != nil {
		c.Error(err)
	}
}

func bindPage(c *gin.Context) (models.PageFilter, bool) {
	var filter models.PageFilter
	if err := c.ShouldBindQuery(&filter); err != nil {
		response.BadRequest(c, "Invalid query parameters", err)
		return filter, false
	}
	filter.Normalize()
	return filter, true
}
