// Package surface owns the rendered page raster and its pixel dimensions.
package surface

import (
	"bytes"
	"context"
	"errors"
	"fmt"
	"image"
	_ "image/gif"
	_ "image/jpeg"
	_ "image/png"
	"os"
	"os/exec"
	"path/filepath"
	"sort"
	"strconv"
	"strings"

	"golang.org/x/image/draw"

	_ "golang.org/x/image/bmp"
	_ "golang.org/x/image/tiff"
	_ "golang.org/x/image/webp"
)

// Renderer turns a page of the open document into a raster.
type Renderer interface {
	RenderPage(ctx context.Context, index int, scale float64) (image.Image, error)
}

// ErrPageOutOfRange is returned for a page index the document does not have.
var ErrPageOutOfRange = errors.New("page index out of range")

var imageExts = map[string]bool{
	".png": true, ".jpg": true, ".jpeg": true, ".gif": true,
	".bmp": true, ".tif": true, ".tiff": true, ".webp": true,
}

// NewRenderer picks a renderer for path: PDFs go through pdftoppm, anything
// else is treated as an image file or a directory of page images.
func NewRenderer(path string) (Renderer, error) {
	if strings.EqualFold(filepath.Ext(path), ".pdf") {
		return NewPDFRenderer(path), nil
	}
	return NewImageDirRenderer(path)
}

// ImageDirRenderer serves pages from image files, one page per file, in
// lexical order.
type ImageDirRenderer struct {
	pages []string
}

// NewImageDirRenderer lists the page images under path. path may also name
// a single image.
func NewImageDirRenderer(path string) (*ImageDirRenderer, error) {
	info, err := os.Stat(path)
	if err != nil {
		return nil, fmt.Errorf("open document: %w", err)
	}
	if !info.IsDir() {
		return &ImageDirRenderer{pages: []string{path}}, nil
	}

	entries, err := os.ReadDir(path)
	if err != nil {
		return nil, fmt.Errorf("list pages: %w", err)
	}
	var pages []string
	for _, e := range entries {
		if e.IsDir() || !imageExts[strings.ToLower(filepath.Ext(e.Name()))] {
			continue
		}
		pages = append(pages, filepath.Join(path, e.Name()))
	}
	if len(pages) == 0 {
		return nil, fmt.Errorf("no page images in %s", path)
	}
	sort.Strings(pages)
	return &ImageDirRenderer{pages: pages}, nil
}

// Pages returns the number of pages.
func (r *ImageDirRenderer) Pages() int { return len(r.pages) }

// RenderPage decodes the page image and scales it.
func (r *ImageDirRenderer) RenderPage(ctx context.Context, index int, scale float64) (image.Image, error) {
	if index < 0 || index >= len(r.pages) {
		return nil, fmt.Errorf("page %d of %d: %w", index, len(r.pages), ErrPageOutOfRange)
	}
	if err := ctx.Err(); err != nil {
		return nil, err
	}
	f, err := os.Open(r.pages[index])
	if err != nil {
		return nil, fmt.Errorf("open page: %w", err)
	}
	defer f.Close()

	img, _, err := image.Decode(f)
	if err != nil {
		return nil, fmt.Errorf("decode page %d: %w", index, err)
	}
	return Scale(img, scale), nil
}

// Scale resamples img by factor with Catmull-Rom filtering. A factor of 1
// (or below zero) returns img unchanged.
func Scale(img image.Image, factor float64) image.Image {
	if factor <= 0 || factor == 1 {
		return img
	}
	b := img.Bounds()
	w := max(1, int(float64(b.Dx())*factor+0.5))
	h := max(1, int(float64(b.Dy())*factor+0.5))
	dst := image.NewRGBA(image.Rect(0, 0, w, h))
	draw.CatmullRom.Scale(dst, dst.Bounds(), img, b, draw.Src, nil)
	return dst
}

// PDFRenderer rasterises PDF pages with poppler's pdftoppm.
type PDFRenderer struct {
	path string
	// Bin is the pdftoppm executable.
	Bin string
	// DPI is the resolution at scale 1.
	DPI float64
}

// NewPDFRenderer creates a renderer for the PDF at path.
func NewPDFRenderer(path string) *PDFRenderer {
	return &PDFRenderer{path: path, Bin: "pdftoppm", DPI: 96}
}

// RenderPage runs pdftoppm for a single page and decodes its PNG output.
func (r *PDFRenderer) RenderPage(ctx context.Context, index int, scale float64) (image.Image, error) {
	if index < 0 {
		return nil, fmt.Errorf("page %d: %w", index, ErrPageOutOfRange)
	}
	if scale <= 0 {
		scale = 1
	}
	page := strconv.Itoa(index + 1)
	dpi := strconv.FormatFloat(r.DPI*scale, 'f', 0, 64)

	var stdout, stderr bytes.Buffer
	cmd := exec.CommandContext(ctx, r.Bin, "-f", page, "-l", page, "-r", dpi, "-singlefile", "-png", r.path)
	cmd.Stdout = &stdout
	cmd.Stderr = &stderr
	if err := cmd.Run(); err != nil {
		return nil, fmt.Errorf("pdftoppm page %d: %w: %s", index, err, strings.TrimSpace(stderr.String()))
	}
	if stdout.Len() == 0 {
		return nil, fmt.Errorf("page %d: %w", index, ErrPageOutOfRange)
	}
	img, _, err := image.Decode(&stdout)
	if err != nil {
		return nil, fmt.Errorf("decode pdftoppm output: %w", err)
	}
	return img, nil
}
