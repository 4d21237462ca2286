package resilience

import (
	"math"
	"math/rand/v2"
	"time"
)

// BackoffConfig controls the delay between retry attempts against one
// provider.
type BackoffConfig struct {
	// Initial is the base delay before the first retry. Default: 500ms.
	Initial time.Duration

	// Max caps the backoff duration. Default: 30s.
	Max time.Duration

	// Multiplier scales the backoff after each attempt. Default: 2.0.
	Multiplier float64

	// JitterFraction adds random jitter as a fraction of the computed delay
	// (0.0 = no jitter, 0.5 = ±50%). Default: 0.25.
	JitterFraction float64
}

// DefaultBackoff returns the backoff configuration used for provider calls.
func DefaultBackoff() BackoffConfig {
	return BackoffConfig{
		Initial:        500 * time.Millisecond,
		Max:            30 * time.Second,
		Multiplier:     2.0,
		JitterFraction: 0.25,
	}
}

func (c BackoffConfig) withDefaults() BackoffConfig {
	if c.Initial <= 0 {
		c.Initial = 500 * time.Millisecond
	}
	if c.Max <= 0 {
		c.Max = 30 * time.Second
	}
	if c.Multiplier <= 0 {
		c.Multiplier = 2.0
	}
	if c.JitterFraction < 0 {
		c.JitterFraction = 0
	}
	return c
}

// Delay returns the backoff duration before retry number attempt (0-based:
// attempt 0 is the delay after the first failure).
func (c BackoffConfig) Delay(attempt int) time.Duration {
	c = c.withDefaults()

	delay := float64(c.Initial) * math.Pow(c.Multiplier, float64(attempt))
	if delay > float64(c.Max) {
		delay = float64(c.Max)
	}

	// Apply jitter: ±JitterFraction of delay.
	if c.JitterFraction > 0 {
		jitterRange := delay * c.JitterFraction
		jitter := (rand.Float64()*2 - 1) * jitterRange // [-jitterRange, +jitterRange]
		delay += jitter
	}

	if delay < 0 {
		delay = 0
	}
	return time.Duration(delay)
}
