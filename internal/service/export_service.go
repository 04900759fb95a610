package service

import (
	"context"
	"fmt"
	"image"
	"image/png"
	"os"
	"path/filepath"

	"github.com/google/uuid"
	"github.com/jengzang/gazereader-go/internal/heatmap"
	"github.com/jengzang/gazereader-go/internal/models"
	"github.com/jengzang/gazereader-go/internal/scheduler"
)

type exportSnapshot struct {
	surface models.PageSurface
	raster  image.Image
	overlay *image.RGBA
	samples int
}

// Export flattens the page raster and the current overlay into one PNG in
// the export directory and records it.
func (s *OverlayService) Export(ctx context.Context) (models.ExportRecord, error) {
	snap, err := scheduler.Query(ctx, s.sched, func() exportSnapshot {
		surf, ok := s.surface.Surface()
		if !ok {
			return exportSnapshot{}
		}
		frame, _ := s.render.RenderNow()
		return exportSnapshot{
			surface: surf,
			raster:  s.surface.Raster(),
			overlay: frame.Image,
			samples: s.heat.Len(),
		}
	})
	if err != nil {
		return models.ExportRecord{}, err
	}
	if snap.raster == nil {
		return models.ExportRecord{}, models.NewError(models.KindConfiguration, "export", models.ErrNoPage)
	}

	flat := heatmap.Flatten(snap.raster, snap.overlay)

	if err := os.MkdirAll(s.opts.ExportDir, 0o755); err != nil {
		return models.ExportRecord{}, fmt.Errorf("failed to create export directory: %w", err)
	}
	rec := models.ExportRecord{
		ID:        uuid.NewString(),
		PageIndex: snap.surface.PageIndex,
		Width:     flat.Bounds().Dx(),
		Height:    flat.Bounds().Dy(),
		Samples:   snap.samples,
		CreatedAt: s.sched.Now(),
	}
	rec.Path = filepath.Join(s.opts.ExportDir, fmt.Sprintf("page-%03d-%s.png", rec.PageIndex+1, rec.ID[:8]))

	if err := writePNG(rec.Path, flat); err != nil {
		return models.ExportRecord{}, err
	}
	if s.recorder != nil {
		if err := s.recorder.SaveExport(rec); err != nil {
			return rec, fmt.Errorf("export written but not recorded: %w", err)
		}
	}

	scheduler.Exec(ctx, s.sched, func() {
		s.board.Info("export", fmt.Sprintf("Exported heatmap to %s", rec.Path))
	})
	return rec, nil
}

func writePNG(path string, img image.Image) error {
	f, err := os.Create(path)
	if err != nil {
		return fmt.Errorf("failed to create export file: %w", err)
	}
	if err := png.Encode(f, img); err != nil {
		f.Close()
		os.Remove(path)
		return fmt.Errorf("failed to encode export: %w", err)
	}
	return f.Close()
}
