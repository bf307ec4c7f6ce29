package loader

import (
	"math"
	"time"
)

// BackoffConfig defines the delay between failed attempts.
type BackoffConfig struct {
	InitialDelay time.Duration
	Multiplier   float64
	MaxDelay     time.Duration
}

// FixedBackoff waits the same delay before every retry.
func FixedBackoff(delay time.Duration) BackoffConfig {
	return BackoffConfig{InitialDelay: delay, Multiplier: 1.0}
}

// NextBackoffDelay returns the retry delay after failed attempt N (1-based).
func NextBackoffDelay(cfg BackoffConfig, attempt int) time.Duration {
	if attempt <= 1 || cfg.InitialDelay <= 0 {
		return max(cfg.InitialDelay, 0)
	}
	if cfg.Multiplier < 1.0 {
		cfg.Multiplier = 1.0
	}
	delay := float64(cfg.InitialDelay) * math.Pow(cfg.Multiplier, float64(attempt-1))
	if cfg.MaxDelay > 0 && delay > float64(cfg.MaxDelay) {
		delay = float64(cfg.MaxDelay)
	}
	return time.Duration(delay)
}
