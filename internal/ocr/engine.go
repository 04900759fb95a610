package ocr

import (
	"bytes"
	"context"
	"fmt"
	"image"
	"image/png"

	"github.com/google/uuid"
	"github.com/jengzang/gazereader-go/internal/models"
)

// ImageFormat identifies the content type of an OCR input image.
type ImageFormat string

const (
	ImageFormatPNG ImageFormat = "image/png"
)

// Input is a single image submitted for recognition.
type Input struct {
	// ID is echoed back in the Result.
	ID string
	// Image is the encoded crop.
	Image []byte
	// Format declares the content type of Image.
	Format ImageFormat
	// PageIndex is the page the crop was taken from.
	PageIndex int
	// Region is the crop's position on the page raster.
	Region models.FocusRect
	// Languages are Tesseract language hints (e.g. "eng", "jpn").
	Languages []string
}

// Result is the recognized text for one input. Empty Text is a valid result.
type Result struct {
	InputID string
	Text    string
}

// Engine recognizes text in an image.
type Engine interface {
	Name() string
	Recognize(ctx context.Context, in Input) (Result, error)
}

// InputOption mutates an Input.
type InputOption func(*Input)

// WithLanguages sets language hints on the input.
func WithLanguages(langs ...string) InputOption {
	return func(in *Input) { in.Languages = append([]string(nil), langs...) }
}

// WithPage records the source page of the crop.
func WithPage(index int, region models.FocusRect) InputOption {
	return func(in *Input) {
		in.PageIndex = index
		in.Region = region
	}
}

// InputFromImage PNG-encodes img into an Input with a fresh ID.
func InputFromImage(img image.Image, opts ...InputOption) (Input, error) {
	var buf bytes.Buffer
	if err := png.Encode(&buf, img); err != nil {
		return Input{}, fmt.Errorf("encode crop: %w", err)
	}
	in := Input{
		ID:     uuid.NewString(),
		Image:  buf.Bytes(),
		Format: ImageFormatPNG,
	}
	for _, opt := range opts {
		opt(&in)
	}
	return in, nil
}
