package cli

import (
	"context"
	"fmt"
	"log/slog"
	"os"
	"time"

	"github.com/schollz/progressbar/v3"
	"github.com/spf13/cobra"

	"github.com/jengzang/gazereader-go/internal/calibration"
	"github.com/jengzang/gazereader-go/internal/config"
	"github.com/jengzang/gazereader-go/internal/database"
	"github.com/jengzang/gazereader-go/internal/gaze"
	"github.com/jengzang/gazereader-go/internal/models"
	"github.com/jengzang/gazereader-go/internal/repository"
	"github.com/jengzang/gazereader-go/internal/scheduler"
	"github.com/jengzang/gazereader-go/internal/status"
)

var (
	calibrateWidth  int
	calibrateHeight int
)

var calibrateCmd = &cobra.Command{
	Use:   "calibrate",
	Short: "Run the five-point calibration protocol from the terminal",
	Long: `Runs the calibration protocol against the gaze service without the
overlay. Target positions are printed for a surface of --width x --height
pixels; look at the matching screen position while each target is shown.`,
	RunE: func(cmd *cobra.Command, args []string) error {
		return runCalibrate(cmd.Context(), cfg, calibrateWidth, calibrateHeight)
	},
}

func init() {
	calibrateCmd.Flags().IntVar(&calibrateWidth, "width", 1920, "Surface width in pixels")
	calibrateCmd.Flags().IntVar(&calibrateHeight, "height", 1080, "Surface height in pixels")
	rootCmd.AddCommand(calibrateCmd)
}

func runCalibrate(ctx context.Context, c *config.Config, width, height int) error {
	if width <= 0 || height <= 0 {
		return fmt.Errorf("surface size must be positive, got %dx%d", width, height)
	}

	db, err := database.Open(database.Config{Path: c.DBPath})
	if err != nil {
		return fmt.Errorf("failed to initialize database: %w", err)
	}
	defer db.Close()

	loop := scheduler.NewLoop()
	loopCtx, stopLoop := context.WithCancel(context.Background())
	defer stopLoop()
	go loop.Run(loopCtx)

	bar := progressbar.NewOptions(models.CalibrationPointCount,
		progressbar.OptionSetDescription("calibrating"),
		progressbar.OptionSetWriter(os.Stderr),
		progressbar.OptionShowCount(),
		progressbar.OptionClearOnFinish(),
	)
	rec := &sessionSink{
		repo: repository.NewCalibrationRepository(db),
		done: make(chan models.CalibrationSession, 1),
	}
	surface := models.PageSurface{WidthPx: width, HeightPx: height, Scale: 1}
	client := gaze.NewClient(c.Services.GazeURL, c.Services.Timeout)

	var ctrl *calibration.Controller
	var startErr error
	err = scheduler.Exec(ctx, loop, func() {
		ctrl = calibration.NewController(ctx, loop, client, &consoleDisplay{bar: bar},
			func() (models.PageSurface, bool) { return surface, true },
			status.NewBoard(loop.Now), rec,
			calibration.Config{Dwell: c.Calibration.Dwell, Settle: c.Calibration.Settle})
		startErr = ctrl.Start()
	})
	if err == nil {
		err = startErr
	}
	if err != nil {
		return err
	}

	select {
	case session := <-rec.done:
		_ = bar.Finish()
		if session.Phase != models.CalibrationComplete {
			return fmt.Errorf("calibration %s: %s", session.Phase, session.Error)
		}
		fmt.Fprintf(os.Stdout, "calibration complete (session %s)\n", session.ID)
		return nil
	case <-ctx.Done():
		_ = scheduler.Exec(context.Background(), loop, ctrl.Cancel)
		select {
		case <-rec.done:
		case <-time.After(time.Second):
		}
		return ctx.Err()
	}
}

// consoleDisplay reports targets on the progress bar.
type consoleDisplay struct {
	bar *progressbar.ProgressBar
}

func (d *consoleDisplay) ShowTarget(t models.CalibrationTarget) {
	d.bar.Describe(fmt.Sprintf("look at target %d at (%.0f, %.0f)", t.Index+1, t.PixelX, t.PixelY))
	_ = d.bar.Set(t.Index)
}

func (d *consoleDisplay) HideTarget() {
	d.bar.Describe("calibrating")
}

// sessionSink persists finished sessions and hands them back to the command.
type sessionSink struct {
	repo *repository.CalibrationRepository
	done chan models.CalibrationSession
}

func (s *sessionSink) RecordSession(session models.CalibrationSession) {
	if err := s.repo.Save(session); err != nil {
		slog.Error("failed to save calibration session", "session", session.ID, "error", err)
	}
	if session.Phase == models.CalibrationRunning {
		return
	}
	select {
	case s.done <- session:
	default:
	}
}
