package ocr

import (
	"bytes"
	"context"
	"encoding/base64"
	"fmt"
	"io"
	"net/http"
	"strings"
	"time"

	"github.com/goccy/go-json"
)

// HTTPEngine posts crops to a remote OCR endpoint (POST /ocr).
type HTTPEngine struct {
	baseURL string
	http    *http.Client
}

// NewHTTPEngine creates an engine for the service at baseURL.
func NewHTTPEngine(baseURL string, timeout time.Duration) *HTTPEngine {
	if timeout <= 0 {
		timeout = 15 * time.Second
	}
	return &HTTPEngine{
		baseURL: strings.TrimRight(baseURL, "/"),
		http:    &http.Client{Timeout: timeout},
	}
}

func (e *HTTPEngine) Name() string { return "http" }

type recognizeRequest struct {
	ImageBase64 string  `json:"image_base64"`
	Lang        *string `json:"lang"`
}

type recognizeResponse struct {
	Text   string `json:"text"`
	Detail string `json:"detail"`
}

// Recognize sends the crop as a base64 data URL.
func (e *HTTPEngine) Recognize(ctx context.Context, in Input) (Result, error) {
	body := recognizeRequest{
		ImageBase64: "data:" + string(in.Format) + ";base64," + base64.StdEncoding.EncodeToString(in.Image),
	}
	if len(in.Languages) > 0 {
		lang := strings.Join(in.Languages, "+")
		body.Lang = &lang
	}
	buf, err := json.Marshal(body)
	if err != nil {
		return Result{}, fmt.Errorf("encode ocr request: %w", err)
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodPost, e.baseURL+"/ocr", bytes.NewReader(buf))
	if err != nil {
		return Result{}, fmt.Errorf("build ocr request: %w", err)
	}
	req.Header.Set("Content-Type", "application/json")

	resp, err := e.http.Do(req)
	if err != nil {
		return Result{}, fmt.Errorf("ocr service: %w", err)
	}
	defer resp.Body.Close()

	data, err := io.ReadAll(io.LimitReader(resp.Body, 4<<20))
	if err != nil {
		return Result{}, fmt.Errorf("read ocr response: %w", err)
	}
	var out recognizeResponse
	decodeErr := json.Unmarshal(data, &out)
	if resp.StatusCode < 200 || resp.StatusCode > 299 {
		if out.Detail != "" {
			return Result{}, fmt.Errorf("ocr service: status %d: %s", resp.StatusCode, out.Detail)
		}
		return Result{}, fmt.Errorf("ocr service: status %d", resp.StatusCode)
	}
	if decodeErr != nil {
		return Result{}, fmt.Errorf("decode ocr response: %w", decodeErr)
	}
	return Result{InputID: in.ID, Text: out.Text}, nil
}
