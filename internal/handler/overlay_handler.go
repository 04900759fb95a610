package handler

import (
	"github.com/gin-gonic/gin"
	"github.com/jengzang/gazereader-go/internal/models"
	"github.com/jengzang/gazereader-go/pkg/response"
)

// OverlayHandler handles HTTP requests for status, sampling, pages and the heatmap
type OverlayHandler struct {
	runtime Runtime
	history History
}

// NewOverlayHandler creates a new overlay handler
func NewOverlayHandler(runtime Runtime, history History) *OverlayHandler {
	return &OverlayHandler{runtime: runtime, history: history}
}

// GetStatus handles GET /api/v1/status
func (h *OverlayHandler) GetStatus(c *gin.Context) {
	snap, err := h.runtime.Snapshot(c.Request.Context())
	if err != nil {
		response.Fail(c, "Failed to get status", err)
		return
	}
	response.Success(c, snap)
}

// GetStatusHistory handles GET /api/v1/status/history
func (h *OverlayHandler) GetStatusHistory(c *gin.Context) {
	lines, err := h.runtime.StatusHistory(c.Request.Context())
	if err != nil {
		response.Fail(c, "Failed to get status history", err)
		return
	}
	response.Success(c, lines)
}

// StartSampling handles POST /api/v1/sampling/start
func (h *OverlayHandler) StartSampling(c *gin.Context) {
	stats, err := h.runtime.StartSampling(c.Request.Context())
	if err != nil {
		response.Fail(c, "Failed to start sampling", err)
		return
	}
	response.Success(c, stats)
}

// StopSampling handles POST /api/v1/sampling/stop
func (h *OverlayHandler) StopSampling(c *gin.Context) {
	stats, err := h.runtime.StopSampling(c.Request.Context())
	if err != nil {
		response.Fail(c, "Failed to stop sampling", err)
		return
	}
	response.Success(c, stats)
}

// LoadPage handles POST /api/v1/page
func (h *OverlayHandler) LoadPage(c *gin.Context) {
	var req models.PageRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		response.BadRequest(c, "Invalid page request", err)
		return
	}

	surface, err := h.runtime.LoadPage(c.Request.Context(), req.PageIndex, req.Scale)
	if err != nil {
		response.Fail(c, "Failed to load page", err)
		return
	}
	response.Success(c, surface)
}

// GetPageRaster handles GET /api/v1/page/raster.png
func (h *OverlayHandler) GetPageRaster(c *gin.Context) {
	img, err := h.runtime.PageRaster(c.Request.Context())
	if err != nil {
		response.Fail(c, "Failed to get page raster", err)
		return
	}
	writePNG(c, img)
}

// GetHeatmap handles GET /api/v1/heatmap
func (h *OverlayHandler) GetHeatmap(c *gin.Context) {
	hm, err := h.runtime.Heatmap(c.Request.Context())
	if err != nil {
		response.Fail(c, "Failed to get heatmap", err)
		return
	}
	response.Success(c, hm)
}

// ClearHeatmap handles POST /api/v1/heatmap/clear
func (h *OverlayHandler) ClearHeatmap(c *gin.Context) {
	if err := h.runtime.ClearHeatmap(c.Request.Context()); err != nil {
		response.Fail(c, "Failed to clear heatmap", err)
		return
	}
	response.Success(c, nil)
}

// GetOverlay handles GET /api/v1/heatmap/overlay.png
func (h *OverlayHandler) GetOverlay(c *gin.Context) {
	img, err := h.runtime.Overlay(c.Request.Context())
	if err != nil {
		response.Fail(c, "Failed to render overlay", err)
		return
	}
	writePNG(c, img)
}

// ExportHeatmap handles POST /api/v1/heatmap/export
func (h *OverlayHandler) ExportHeatmap(c *gin.Context) {
	rec, err := h.runtime.Export(c.Request.Context())
	if err != nil {
		response.Fail(c, "Failed to export heatmap", err)
		return
	}
	response.Success(c, rec)
}

// GetExports handles GET /api/v1/heatmap/exports
func (h *OverlayHandler) GetExports(c *gin.Context) {
	filter, ok := bindPage(c)
	if !ok {
		return
	}
	list, err := h.history.ListExports(filter)
	if err != nil {
		response.InternalError(c, "Failed to get exports", err)
		return
	}
	response.Success(c, list)
}
