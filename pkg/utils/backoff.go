package utils

import (
	"math"
	"math/rand/v2"
	"time"
)

// Backoff yields the wait before a retry.
type Backoff interface {
	// Delay returns the wait before retry number attempt (0-indexed).
	Delay(attempt int) time.Duration
}

// ConstantBackoff waits the same time before every retry.
type ConstantBackoff time.Duration

func (c ConstantBackoff) Delay(int) time.Duration {
	return time.Duration(c)
}

// ExponentialBackoff grows the wait by Multiplier per attempt, capped at Max.
type ExponentialBackoff struct {
	Base       time.Duration
	Max        time.Duration
	Multiplier float64
	// Jitter spreads each wait over [0.5, 1.5) of its nominal value.
	Jitter bool
}

// NewExponentialBackoff returns a doubling backoff when multiplier is not positive.
func NewExponentialBackoff(base, max time.Duration, multiplier float64, jitter bool) *ExponentialBackoff {
	if multiplier <= 0 {
		multiplier = 2.0
	}
	return &ExponentialBackoff{Base: base, Max: max, Multiplier: multiplier, Jitter: jitter}
}

func (e *ExponentialBackoff) Delay(attempt int) time.Duration {
	delay := float64(e.Base) * math.Pow(e.Multiplier, float64(attempt))
	if e.Max > 0 && delay > float64(e.Max) {
		delay = float64(e.Max)
	}
	if e.Jitter {
		delay *= 0.5 + rand.Float64()
	}
	return time.Duration(delay)
}
