package handler

import (
	"github.com/gin-gonic/gin"
	"github.com/jengzang/gazereader-go/pkg/response"
)

// CalibrationHandler handles HTTP requests for calibration
type CalibrationHandler struct {
	runtime Runtime
	history History
}

// NewCalibrationHandler creates a new calibration handler
func NewCalibrationHandler(runtime Runtime, history History) *CalibrationHandler {
	return &CalibrationHandler{runtime: runtime, history: history}
}

// Start handles POST /api/v1/calibration/start
func (h *CalibrationHandler) Start(c *gin.Context) {
	progress, err := h.runtime.StartCalibration(c.Request.Context())
	if err != nil {
		response.Fail(c, "Failed to start calibration", err)
		return
	}
	response.Success(c, progress)
}

// Get handles GET /api/v1/calibration
func (h *CalibrationHandler) Get(c *gin.Context) {
	progress, err := h.runtime.Calibration(c.Request.Context())
	if err != nil {
		response.Fail(c, "Failed to get calibration", err)
		return
	}
	response.Success(c, progress)
}

// GetHistory handles GET /api/v1/calibration/history
func (h *CalibrationHandler) GetHistory(c *gin.Context) {
	filter, ok := bindPage(c)
	if !ok {
		return
	}
	list, err := h.history.ListCalibrations(filter)
	if err != nil {
		response.InternalError(c, "Failed to get calibration history", err)
		return
	}
	summary, err := h.history.CalibrationSummary()
	if err != nil {
		response.InternalError(c, "Failed to summarise calibration history", err)
		return
	}
	response.Success(c, gin.H{
		"sessions": list,
		"summary":  summary,
	})
}
