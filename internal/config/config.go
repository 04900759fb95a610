package config

import (
	"errors"
	"fmt"
	"os"
	"strconv"
	"strings"
	"time"

	"gopkg.in/yaml.v3"
)

// Config holds application configuration
type Config struct {
	Port      string `yaml:"port"`
	DBPath    string `yaml:"db_path"`
	JWTSecret string `yaml:"jwt_secret"` // Empty disables API authentication

	Services    ServicesConfig    `yaml:"services"`
	OCR         OCRConfig         `yaml:"ocr"`
	Document    DocumentConfig    `yaml:"document"`
	Sampling    SamplingConfig    `yaml:"sampling"`
	Heatmap     HeatmapConfig     `yaml:"heatmap"`
	Calibration CalibrationConfig `yaml:"calibration"`
	Log         LogConfig         `yaml:"log"`
}

// ServicesConfig locates the external services
type ServicesConfig struct {
	GazeURL string        `yaml:"gaze_url"`
	OCRURL  string        `yaml:"ocr_url"` // Defaults to GazeURL
	Timeout time.Duration `yaml:"timeout"`
}

// OCRConfig configures the OCR trigger loop
type OCRConfig struct {
	Engine       string        `yaml:"engine"`
	Lang         string        `yaml:"lang"` // Tesseract hints joined with "+", e.g. "eng+jpn"
	Period       time.Duration `yaml:"period"`
	RegionWidth  int           `yaml:"region_width"`
	RegionHeight int           `yaml:"region_height"`
	RateLimit    int           `yaml:"rate_limit"` // On-demand triggers per minute per client
}

// DocumentConfig configures the page source and export target
type DocumentConfig struct {
	Path      string  `yaml:"path"`
	Scale     float64 `yaml:"scale"`
	ExportDir string  `yaml:"export_dir"`
}

// SamplingConfig configures gaze polling and backoff
type SamplingConfig struct {
	Interval        time.Duration `yaml:"interval"`
	FailureInterval time.Duration `yaml:"failure_interval"`
	FailureStep     time.Duration `yaml:"failure_step"`
	MaxInterval     time.Duration `yaml:"max_interval"`
}

// HeatmapConfig configures the overlay
type HeatmapConfig struct {
	Capacity     int           `yaml:"capacity"`
	DecayWindow  time.Duration `yaml:"decay_window"`
	Radius       float64       `yaml:"radius"`
	Opacity      float64       `yaml:"opacity"`
	RenderPeriod time.Duration `yaml:"render_period"`
}

// CalibrationConfig configures the calibration protocol delays
type CalibrationConfig struct {
	Dwell  time.Duration `yaml:"dwell"`
	Settle time.Duration `yaml:"settle"`
}

// LogConfig configures slog output
type LogConfig struct {
	Level  string `yaml:"level"`  // debug, info, warn, error
	Format string `yaml:"format"` // text or json
}

// Default returns the built-in configuration
func Default() *Config {
	return &Config{
		Port:   ":8080",
		DBPath: "./data/gazereader.db",
		Services: ServicesConfig{
			GazeURL: "http://127.0.0.1:8000",
			Timeout: 5 * time.Second,
		},
		OCR: OCRConfig{
			Engine:       "http",
			Period:       2500 * time.Millisecond,
			RegionWidth:  240,
			RegionHeight: 140,
			RateLimit:    30,
		},
		Document: DocumentConfig{
			Scale:     1,
			ExportDir: "./data/exports",
		},
		Sampling: SamplingConfig{
			Interval:        100 * time.Millisecond,
			FailureInterval: 500 * time.Millisecond,
			FailureStep:     250 * time.Millisecond,
			MaxInterval:     2 * time.Second,
		},
		Heatmap: HeatmapConfig{
			Capacity:     120,
			DecayWindow:  3 * time.Second,
			Radius:       36,
			Opacity:      0.35,
			RenderPeriod: 100 * time.Millisecond,
		},
		Calibration: CalibrationConfig{
			Dwell:  1200 * time.Millisecond,
			Settle: 300 * time.Millisecond,
		},
		Log: LogConfig{
			Level:  "info",
			Format: "text",
		},
	}
}

// Load builds the configuration from defaults, the optional YAML file at
// path, and environment variables, in that order of precedence.
func Load(path string) (*Config, error) {
	cfg := Default()

	if path != "" {
		data, err := os.ReadFile(path)
		if err != nil {
			return nil, fmt.Errorf("failed to read config file: %w", err)
		}
		if err := yaml.Unmarshal(data, cfg); err != nil {
			return nil, fmt.Errorf("failed to parse config file %s: %w", path, err)
		}
	}

	if err := cfg.applyEnv(os.LookupEnv); err != nil {
		return nil, err
	}
	cfg.resolve()
	return cfg, nil
}

func (c *Config) applyEnv(lookup func(string) (string, bool)) error {
	str := func(key string, dst *string) {
		if v, ok := lookup(key); ok && v != "" {
			*dst = v
		}
	}
	var errs []error
	dur := func(key string, dst *time.Duration) {
		if v, ok := lookup(key); ok && v != "" {
			d, err := time.ParseDuration(v)
			if err != nil {
				errs = append(errs, fmt.Errorf("%s: %w", key, err))
				return
			}
			*dst = d
		}
	}
	num := func(key string, dst *int) {
		if v, ok := lookup(key); ok && v != "" {
			n, err := strconv.Atoi(v)
			if err != nil {
				errs = append(errs, fmt.Errorf("%s: %w", key, err))
				return
			}
			*dst = n
		}
	}
	float := func(key string, dst *float64) {
		if v, ok := lookup(key); ok && v != "" {
			f, err := strconv.ParseFloat(v, 64)
			if err != nil {
				errs = append(errs, fmt.Errorf("%s: %w", key, err))
				return
			}
			*dst = f
		}
	}

	str("PORT", &c.Port)
	str("DB_PATH", &c.DBPath)
	str("JWT_SECRET", &c.JWTSecret)
	str("GAZE_SERVICE_URL", &c.Services.GazeURL)
	str("OCR_SERVICE_URL", &c.Services.OCRURL)
	dur("SERVICE_TIMEOUT", &c.Services.Timeout)
	str("OCR_ENGINE", &c.OCR.Engine)
	str("OCR_LANG", &c.OCR.Lang)
	dur("OCR_PERIOD", &c.OCR.Period)
	num("OCR_REGION_WIDTH", &c.OCR.RegionWidth)
	num("OCR_REGION_HEIGHT", &c.OCR.RegionHeight)
	num("OCR_RATE_LIMIT", &c.OCR.RateLimit)
	str("DOCUMENT_PATH", &c.Document.Path)
	float("DOCUMENT_SCALE", &c.Document.Scale)
	str("EXPORT_DIR", &c.Document.ExportDir)
	dur("SAMPLING_INTERVAL", &c.Sampling.Interval)
	dur("SAMPLING_FAILURE_INTERVAL", &c.Sampling.FailureInterval)
	dur("SAMPLING_FAILURE_STEP", &c.Sampling.FailureStep)
	dur("SAMPLING_MAX_INTERVAL", &c.Sampling.MaxInterval)
	num("HEATMAP_CAPACITY", &c.Heatmap.Capacity)
	dur("HEATMAP_DECAY", &c.Heatmap.DecayWindow)
	dur("HEATMAP_RENDER_PERIOD", &c.Heatmap.RenderPeriod)
	dur("CALIBRATION_DWELL", &c.Calibration.Dwell)
	dur("CALIBRATION_SETTLE", &c.Calibration.Settle)
	str("LOG_LEVEL", &c.Log.Level)
	str("LOG_FORMAT", &c.Log.Format)

	return errors.Join(errs...)
}

func (c *Config) resolve() {
	if c.Services.OCRURL == "" {
		c.Services.OCRURL = c.Services.GazeURL
	}
	if c.Port != "" && !strings.Contains(c.Port, ":") {
		c.Port = ":" + c.Port
	}
}

// Languages splits the OCR language hint into its parts
func (c *Config) Languages() []string {
	if c.OCR.Lang == "" {
		return nil
	}
	return strings.Split(c.OCR.Lang, "+")
}

// Validate rejects configurations the loops cannot run with
func (c *Config) Validate() error {
	var errs []error
	positive := func(name string, d time.Duration) {
		if d <= 0 {
			errs = append(errs, fmt.Errorf("%s must be positive, got %v", name, d))
		}
	}

	if c.Services.GazeURL == "" {
		errs = append(errs, errors.New("gaze service URL is required"))
	}
	positive("services.timeout", c.Services.Timeout)
	positive("ocr.period", c.OCR.Period)
	positive("sampling.interval", c.Sampling.Interval)
	positive("sampling.failure_interval", c.Sampling.FailureInterval)
	positive("sampling.max_interval", c.Sampling.MaxInterval)
	positive("heatmap.decay_window", c.Heatmap.DecayWindow)
	positive("heatmap.render_period", c.Heatmap.RenderPeriod)
	if c.Sampling.FailureStep < 0 {
		errs = append(errs, fmt.Errorf("sampling.failure_step must not be negative, got %v", c.Sampling.FailureStep))
	}
	if c.Sampling.MaxInterval < c.Sampling.FailureInterval {
		errs = append(errs, fmt.Errorf("sampling.max_interval (%v) is below sampling.failure_interval (%v)", c.Sampling.MaxInterval, c.Sampling.FailureInterval))
	}
	if c.Calibration.Dwell < 0 || c.Calibration.Settle < 0 {
		errs = append(errs, errors.New("calibration delays must not be negative"))
	}
	if c.OCR.RegionWidth <= 0 || c.OCR.RegionHeight <= 0 {
		errs = append(errs, fmt.Errorf("ocr region must be positive, got %dx%d", c.OCR.RegionWidth, c.OCR.RegionHeight))
	}
	if c.OCR.RateLimit <= 0 {
		errs = append(errs, fmt.Errorf("ocr.rate_limit must be positive, got %d", c.OCR.RateLimit))
	}
	if c.Heatmap.Capacity <= 0 {
		errs = append(errs, fmt.Errorf("heatmap.capacity must be positive, got %d", c.Heatmap.Capacity))
	}
	if c.Heatmap.Opacity < 0 || c.Heatmap.Opacity > 1 {
		errs = append(errs, fmt.Errorf("heatmap.opacity must be within [0,1], got %v", c.Heatmap.Opacity))
	}
	if c.Document.Scale <= 0 {
		errs = append(errs, fmt.Errorf("document.scale must be positive, got %v", c.Document.Scale))
	}
	switch c.Log.Format {
	case "text", "json":
	default:
		errs = append(errs, fmt.Errorf("log.format must be text or json, got %q", c.Log.Format))
	}
	return errors.Join(errs...)
}
