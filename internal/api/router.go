package api

import (
	"context"
	"net/http"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/jengzang/gazereader-go/internal/config"
	"github.com/jengzang/gazereader-go/internal/handler"
	"github.com/jengzang/gazereader-go/internal/middleware"
)

// SetupRouter builds the control API
func SetupRouter(ctx context.Context, cfg *config.Config, runtime handler.Runtime, history handler.History) *gin.Engine {
	r := gin.New()
	r.Use(gin.Recovery(), middleware.Logger())

	// CORS
	r.Use(func(c *gin.Context) {
		c.Writer.Header().Set("Access-Control-Allow-Origin", "*")
		c.Writer.Header().Set("Access-Control-Allow-Methods", "GET, POST, PUT, DELETE, OPTIONS")
		c.Writer.Header().Set("Access-Control-Allow-Headers", "Content-Type, Authorization")

		if c.Request.Method == "OPTIONS" {
			c.AbortWithStatus(http.StatusNoContent)
			return
		}

		c.Next()
	})

	// Health check
	r.GET("/health", func(c *gin.Context) {
		c.JSON(http.StatusOK, gin.H{
			"status":  "ok",
			"message": "Gaze reader overlay is running",
		})
	})

	overlay := handler.NewOverlayHandler(runtime, history)
	ocr := handler.NewOCRHandler(runtime, history)
	calibration := handler.NewCalibrationHandler(runtime, history)
	limiter := middleware.NewRateLimiter(ctx, cfg.OCR.RateLimit, time.Minute)

	api := r.Group("/api/v1", middleware.Auth(cfg.JWTSecret))
	{
		api.GET("/status", overlay.GetStatus)
		api.GET("/status/history", overlay.GetStatusHistory)

		sampling := api.Group("/sampling")
		{
			sampling.POST("/start", overlay.StartSampling)
			sampling.POST("/stop", overlay.StopSampling)
		}

		ocrGroup := api.Group("/ocr")
		{
			ocrGroup.POST("/start", ocr.Start)
			ocrGroup.POST("/stop", ocr.Stop)
			ocrGroup.POST("/trigger", middleware.RateLimit(limiter), ocr.Trigger)
			ocrGroup.GET("/transcripts", ocr.GetTranscripts)
			ocrGroup.GET("/transcripts/:id", ocr.GetTranscript)
		}

		calibrationGroup := api.Group("/calibration")
		{
			calibrationGroup.GET("", calibration.Get)
			calibrationGroup.POST("/start", calibration.Start)
			calibrationGroup.GET("/history", calibration.GetHistory)
		}

		page := api.Group("/page")
		{
			page.POST("", overlay.LoadPage)
			page.GET("/raster.png", overlay.GetPageRaster)
		}

		heatmap := api.Group("/heatmap")
		{
			heatmap.GET("", overlay.GetHeatmap)
			heatmap.POST("/clear", overlay.ClearHeatmap)
			heatmap.GET("/overlay.png", overlay.GetOverlay)
			heatmap.POST("/export", overlay.ExportHeatmap)
			heatmap.GET("/exports", overlay.GetExports)
		}
	}

	return r
}
