package cli

import (
	"context"
	"errors"
	"fmt"
	"image"
	"log/slog"
	"net/http"
	"strings"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/spf13/cobra"

	"github.com/jengzang/gazereader-go/internal/api"
	"github.com/jengzang/gazereader-go/internal/calibration"
	"github.com/jengzang/gazereader-go/internal/config"
	"github.com/jengzang/gazereader-go/internal/database"
	"github.com/jengzang/gazereader-go/internal/gaze"
	"github.com/jengzang/gazereader-go/internal/heatmap"
	"github.com/jengzang/gazereader-go/internal/models"
	"github.com/jengzang/gazereader-go/internal/ocr"
	"github.com/jengzang/gazereader-go/internal/repository"
	"github.com/jengzang/gazereader-go/internal/scheduler"
	"github.com/jengzang/gazereader-go/internal/service"
	"github.com/jengzang/gazereader-go/internal/surface"
)

type serveOptions struct {
	port      string
	gazeURL   string
	document  string
	page      int
	noAutorun bool
}

var serveOpts serveOptions

var serveCmd = &cobra.Command{
	Use:   "serve",
	Short: "Run the overlay runtime and its control API",
	RunE: func(cmd *cobra.Command, args []string) error {
		applyServeFlags(cmd, cfg, serveOpts)
		return runServe(cmd.Context(), cfg, serveOpts)
	},
}

func init() {
	serveCmd.Flags().StringVarP(&serveOpts.port, "port", "p", "", "Listen address (overrides PORT)")
	serveCmd.Flags().StringVar(&serveOpts.gazeURL, "gaze-url", "", "Gaze service base URL (overrides GAZE_SERVICE_URL)")
	serveCmd.Flags().StringVarP(&serveOpts.document, "document", "d", "", "PDF, page image or directory of page images (overrides DOCUMENT_PATH)")
	serveCmd.Flags().IntVar(&serveOpts.page, "page", 0, "Page index to load at startup")
	serveCmd.Flags().BoolVar(&serveOpts.noAutorun, "no-autorun", false, "Do not start the overlay loops at startup")
	rootCmd.AddCommand(serveCmd)
}

func applyServeFlags(cmd *cobra.Command, c *config.Config, opts serveOptions) {
	if cmd.Flags().Changed("port") {
		c.Port = opts.port
		if !strings.Contains(c.Port, ":") {
			c.Port = ":" + c.Port
		}
	}
	if cmd.Flags().Changed("gaze-url") {
		if c.Services.OCRURL == c.Services.GazeURL {
			c.Services.OCRURL = opts.gazeURL
		}
		c.Services.GazeURL = opts.gazeURL
	}
	if cmd.Flags().Changed("document") {
		c.Document.Path = opts.document
	}
}

// runtimeOptions translates configuration into service options.
func runtimeOptions(c *config.Config) service.Options {
	return service.Options{
		Region: models.RegionSize{Width: c.OCR.RegionWidth, Height: c.OCR.RegionHeight},
		Heatmap: heatmap.Config{
			Capacity:    c.Heatmap.Capacity,
			DecayWindow: c.Heatmap.DecayWindow,
			BaseRadius:  c.Heatmap.Radius,
			BaseOpacity: c.Heatmap.Opacity,
		},
		RenderPeriod: c.Heatmap.RenderPeriod,
		Backoff: gaze.BackoffConfig{
			BaseInterval:        c.Sampling.Interval,
			BaseFailureInterval: c.Sampling.FailureInterval,
			FailureStep:         c.Sampling.FailureStep,
			MaxInterval:         c.Sampling.MaxInterval,
		},
		OCR:         ocr.TriggerConfig{Period: c.OCR.Period, Languages: c.Languages()},
		Calibration: calibration.Config{Dwell: c.Calibration.Dwell, Settle: c.Calibration.Settle},
		Scale:       c.Document.Scale,
		ExportDir:   c.Document.ExportDir,
	}
}

func runServe(ctx context.Context, c *config.Config, opts serveOptions) error {
	db, err := database.Open(database.Config{Path: c.DBPath})
	if err != nil {
		return fmt.Errorf("failed to initialize database: %w", err)
	}
	defer db.Close()

	engine, err := ocr.NewEngine(c.OCR.Engine, ocr.EngineOptions{ServiceURL: c.Services.OCRURL, Timeout: c.Services.Timeout})
	if err != nil {
		return err
	}

	var renderer surface.Renderer = noDocument{}
	if c.Document.Path != "" {
		if renderer, err = surface.NewRenderer(c.Document.Path); err != nil {
			return err
		}
	}

	gazeClient := gaze.NewClient(c.Services.GazeURL, c.Services.Timeout)
	probeGazeService(ctx, gazeClient)

	loop := scheduler.NewLoop()
	loopCtx, stopLoop := context.WithCancel(context.Background())
	loopDone := make(chan struct{})
	go func() {
		defer close(loopDone)
		loop.Run(loopCtx)
	}()
	defer func() {
		stopLoop()
		<-loopDone
	}()

	transcripts := repository.NewTranscriptRepository(db)
	calibrations := repository.NewCalibrationRepository(db)
	exports := repository.NewExportRepository(db)
	recorder := service.NewRecorder(loop, transcripts, calibrations, exports)

	runtime := service.NewOverlayService(ctx, loop, gazeClient, engine, renderer, recorder, runtimeOptions(c))
	history := service.NewHistoryService(transcripts, calibrations, exports)

	if c.Document.Path != "" {
		if _, err := runtime.LoadPage(ctx, opts.page, 0); err != nil {
			slog.Warn("initial page load failed", "document", c.Document.Path, "page", opts.page, "error", err)
		}
	}
	if !opts.noAutorun {
		if err := runtime.Start(ctx); err != nil {
			return err
		}
	}

	gin.SetMode(gin.ReleaseMode)
	srv := &http.Server{
		Addr:              c.Port,
		Handler:           api.SetupRouter(ctx, c, runtime, history),
		ReadHeaderTimeout: 10 * time.Second,
	}

	errCh := make(chan error, 1)
	go func() {
		slog.Info("server starting", "addr", c.Port, "gaze", c.Services.GazeURL, "ocr_engine", engine.Name())
		errCh <- srv.ListenAndServe()
	}()

	select {
	case err := <-errCh:
		if !errors.Is(err, http.ErrServerClosed) {
			return fmt.Errorf("server failed: %w", err)
		}
	case <-ctx.Done():
		slog.Info("shutting down")
	}

	shutdownCtx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()
	if err := srv.Shutdown(shutdownCtx); err != nil {
		slog.Warn("server shutdown incomplete", "error", err)
	}
	if err := runtime.Close(shutdownCtx); err != nil {
		slog.Warn("runtime shutdown incomplete", "error", err)
	}
	return nil
}

// probeGazeService warns when the gaze service is unreachable. Sampling
// starts regardless and backs off until the service appears.
func probeGazeService(ctx context.Context, client *gaze.Client) {
	probeCtx, cancel := context.WithTimeout(ctx, 2*time.Second)
	defer cancel()
	if err := client.Health(probeCtx); err != nil {
		slog.Warn("gaze service not reachable yet", "error", err)
		return
	}
	slog.Info("gaze service reachable")
}

// noDocument is the renderer used when no document is configured.
type noDocument struct{}

func (noDocument) RenderPage(context.Context, int, float64) (image.Image, error) {
	return nil, errors.New("no document configured; set DOCUMENT_PATH or --document")
}
