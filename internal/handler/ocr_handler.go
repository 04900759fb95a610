package handler

import (
	"github.com/gin-gonic/gin"
	"github.com/jengzang/gazereader-go/internal/models"
	"github.com/jengzang/gazereader-go/pkg/response"
)

// OCRHandler handles HTTP requests for text recognition
type OCRHandler struct {
	runtime Runtime
	history History
}

// NewOCRHandler creates a new OCR handler
func NewOCRHandler(runtime Runtime, history History) *OCRHandler {
	return &OCRHandler{runtime: runtime, history: history}
}

// Start handles POST /api/v1/ocr/start
func (h *OCRHandler) Start(c *gin.Context) {
	state, err := h.runtime.StartOCR(c.Request.Context())
	if err != nil {
		response.Fail(c, "Failed to start OCR", err)
		return
	}
	response.Success(c, state)
}

// Stop handles POST /api/v1/ocr/stop
func (h *OCRHandler) Stop(c *gin.Context) {
	state, err := h.runtime.StopOCR(c.Request.Context())
	if err != nil {
		response.Fail(c, "Failed to stop OCR", err)
		return
	}
	response.Success(c, state)
}

// Trigger handles POST /api/v1/ocr/trigger
func (h *OCRHandler) Trigger(c *gin.Context) {
	state, err := h.runtime.TriggerOCR(c.Request.Context())
	if err != nil {
		response.Fail(c, "Failed to trigger OCR", err)
		return
	}
	response.Success(c, state)
}

// GetTranscripts handles GET /api/v1/ocr/transcripts
func (h *OCRHandler) GetTranscripts(c *gin.Context) {
	var filter models.TranscriptFilter
	if err := c.ShouldBindQuery(&filter); err != nil {
		response.BadRequest(c, "Invalid query parameters", err)
		return
	}

	list, err := h.history.ListTranscripts(filter)
	if err != nil {
		response.InternalError(c, "Failed to get transcripts", err)
		return
	}
	response.Success(c, list)
}

// GetTranscript handles GET /api/v1/ocr/transcripts/:id
func (h *OCRHandler) GetTranscript(c *gin.Context) {
	t, err := h.history.GetTranscript(c.Param("id"))
	if err != nil {
		response.InternalError(c, "Failed to get transcript", err)
		return
	}
	if t == nil {
		response.NotFound(c, "Transcript not found")
		return
	}
	response.Success(c, t)
}
