package transport

import (
	"math"
	"math/rand"
	"time"
)

// BackoffConfig defines redial backoff behavior.
type BackoffConfig struct {
	InitialDelay time.Duration
	Multiplier   float64
	MaxDelay     time.Duration
	Jitter       bool
}

func DefaultBackoff() BackoffConfig {
	return BackoffConfig{
		InitialDelay: 250 * time.Millisecond,
		Multiplier:   2.0,
		MaxDelay:     5 * time.Second,
		Jitter:       true,
	}
}

// NextBackoffDelay returns the wait before redial attempt n (1-based):
// InitialDelay grown by Multiplier per attempt, jittered into [0.5, 1.5)
// of itself, and never above MaxDelay. A nil rng fixes jitter at 0.5.
func NextBackoffDelay(cfg BackoffConfig, n int, rng *rand.Rand) time.Duration {
	if cfg.InitialDelay <= 0 {
		return 0
	}
	growth := math.Max(cfg.Multiplier, 1)
	delay := float64(cfg.InitialDelay)
	if n > 1 {
		delay *= math.Pow(growth, float64(n-1))
	}
	if cfg.Jitter {
		scale := 0.5
		if rng != nil {
			scale += rng.Float64()
		}
		delay *= scale
	}
	if ceiling := float64(cfg.MaxDelay); ceiling > 0 && delay > ceiling {
		delay = ceiling
	}
	return time.Duration(delay)
}
