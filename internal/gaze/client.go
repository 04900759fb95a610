package gaze

import (
	"bytes"
	"context"
	"fmt"
	"io"
	"net/http"
	"strings"
	"time"

	"github.com/goccy/go-json"
	"github.com/jengzang/gazereader-go/internal/models"
)

// Client talks to the external gaze-estimation service over HTTP.
type Client struct {
	baseURL string
	http    *http.Client
}

// NewClient creates a client for the service at baseURL.
func NewClient(baseURL string, timeout time.Duration) *Client {
	if timeout <= 0 {
		timeout = 2 * time.Second
	}
	return &Client{
		baseURL: strings.TrimRight(baseURL, "/"),
		http:    &http.Client{Timeout: timeout},
	}
}

// Current fetches the latest gaze estimate (GET /gaze).
func (c *Client) Current(ctx context.Context) (models.GazeReading, error) {
	var r models.GazeReading
	err := c.do(ctx, http.MethodGet, "/gaze", nil, &r)
	return r, err
}

// StartCalibration resets the service's calibration samples (POST /calibrate/start).
func (c *Client) StartCalibration(ctx context.Context) error {
	return c.do(ctx, http.MethodPost, "/calibrate/start", struct{}{}, nil)
}

// CalibrationPoint submits the ground-truth target the user is looking at
// (POST /calibrate/point).
func (c *Client) CalibrationPoint(ctx context.Context, p models.NormalizedPoint) (models.CalibrationAck, error) {
	var ack models.CalibrationAck
	err := c.do(ctx, http.MethodPost, "/calibrate/point", p, &ack)
	return ack, err
}

// CalibrationStatus reports how many samples the service holds (GET /calibrate/status).
func (c *Client) CalibrationStatus(ctx context.Context) (models.CalibrationServiceStatus, error) {
	var st models.CalibrationServiceStatus
	err := c.do(ctx, http.MethodGet, "/calibrate/status", nil, &st)
	return st, err
}

// Health probes GET /health.
func (c *Client) Health(ctx context.Context) error {
	return c.do(ctx, http.MethodGet, "/health", nil, nil)
}

// StatusError is a non-2xx response from the gaze service.
type StatusError struct {
	Path   string
	Code   int
	Detail string
}

func (e *StatusError) Error() string {
	if e.Detail != "" {
		return fmt.Sprintf("gaze service %s: status %d: %s", e.Path, e.Code, e.Detail)
	}
	return fmt.Sprintf("gaze service %s: status %d", e.Path, e.Code)
}

func (c *Client) do(ctx context.Context, method, path string, body, out any) error {
	var rd io.Reader
	if body != nil {
		buf, err := json.Marshal(body)
		if err != nil {
			return fmt.Errorf("encode %s request: %w", path, err)
		}
		rd = bytes.NewReader(buf)
	}

	req, err := http.NewRequestWithContext(ctx, method, c.baseURL+path, rd)
	if err != nil {
		return fmt.Errorf("build %s request: %w", path, err)
	}
	if body != nil {
		req.Header.Set("Content-Type", "application/json")
	}
	req.Header.Set("Accept", "application/json")

	resp, err := c.http.Do(req)
	if err != nil {
		return fmt.Errorf("gaze service %s: %w", path, err)
	}
	defer resp.Body.Close()

	data, err := io.ReadAll(io.LimitReader(resp.Body, 1<<20))
	if err != nil {
		return fmt.Errorf("read %s response: %w", path, err)
	}
	if resp.StatusCode < 200 || resp.StatusCode > 299 {
		return &StatusError{Path: path, Code: resp.StatusCode, Detail: detail(data)}
	}
	if out == nil {
		return nil
	}
	if err := json.Unmarshal(data, out); err != nil {
		return fmt.Errorf("decode %s response: %w", path, err)
	}
	return nil
}

// detail extracts FastAPI-style {"detail": "..."} error bodies.
func detail(data []byte) string {
	var body struct {
		Detail string `json:"detail"`
	}
	if json.Unmarshal(data, &body) == nil {
		return body.Detail
	}
	return ""
}
