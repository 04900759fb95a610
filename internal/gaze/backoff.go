package gaze

import "time"

// BackoffConfig controls the sampling cadence and its failure backoff.
type BackoffConfig struct {
	BaseInterval        time.Duration // Interval between successful polls (default: 100ms)
	BaseFailureInterval time.Duration // Interval floor after a failure (default: 500ms)
	FailureStep         time.Duration // Added per consecutive failure (default: 250ms)
	MaxInterval         time.Duration // Cap on the failure interval (default: 2s)
}

// DefaultBackoffConfig returns default sampling timings
func DefaultBackoffConfig() BackoffConfig {
	return BackoffConfig{
		BaseInterval:        100 * time.Millisecond,
		BaseFailureInterval: 500 * time.Millisecond,
		FailureStep:         250 * time.Millisecond,
		MaxInterval:         2 * time.Second,
	}
}

// failureInterval returns the delay before the next poll after the given
// number of consecutive failures.
//
// Formula: min(maxInterval, baseFailureInterval + failures*failureStep)
//
// Example with default config:
//   - Failure 1: 750ms
//   - Failure 2: 1s
//   - Failure 6: 2s (capped)
func failureInterval(failures int, cfg BackoffConfig) time.Duration {
	delay := cfg.BaseFailureInterval + time.Duration(failures)*cfg.FailureStep
	if delay > cfg.MaxInterval {
		delay = cfg.MaxInterval
	}
	return delay
}
