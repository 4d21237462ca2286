package resilience

import (
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
)

func TestBackoffDelay_GrowsExponentially(t *testing.T) {
	cfg := BackoffConfig{
		Initial:        100 * time.Millisecond,
		Max:            10 * time.Second,
		Multiplier:     2.0,
		JitterFraction: 0, // deterministic
	}

	assert.Equal(t, 100*time.Millisecond, cfg.Delay(0))
	assert.Equal(t, 200*time.Millisecond, cfg.Delay(1))
	assert.Equal(t, 400*time.Millisecond, cfg.Delay(2))
	assert.Equal(t, 800*time.Millisecond, cfg.Delay(3))
}

func TestBackoffDelay_CappedAtMax(t *testing.T) {
	cfg := BackoffConfig{
		Initial:        1 * time.Second,
		Max:            2 * time.Second,
		Multiplier:     10.0,
		JitterFraction: 0,
	}

	assert.Equal(t, 2*time.Second, cfg.Delay(1))
	assert.Equal(t, 2*time.Second, cfg.Delay(5))
}

func TestBackoffDelay_JitterStaysInRange(t *testing.T) {
	cfg := BackoffConfig{
		Initial:        1 * time.Second,
		Max:            time.Minute,
		Multiplier:     2.0,
		JitterFraction: 0.25,
	}

	for i := 0; i < 100; i++ {
		d := cfg.Delay(0)
		assert.GreaterOrEqual(t, d, 750*time.Millisecond)
		assert.LessOrEqual(t, d, 1250*time.Millisecond)
	}
}

func TestBackoffDelay_ZeroConfigUsesDefaults(t *testing.T) {
	var cfg BackoffConfig

	d := cfg.Delay(0)
	assert.Greater(t, d, time.Duration(0))
	assert.LessOrEqual(t, d, time.Second)
}

func TestDefaultBackoff(t *testing.T) {
	cfg := DefaultBackoff()
	assert.Equal(t, 500*time.Millisecond, cfg.Initial)
	assert.Equal(t, 30*time.Second, cfg.Max)
	assert.InDelta(t, 2.0, cfg.Multiplier, 0.001)
	assert.InDelta(t, 0.25, cfg.JitterFraction, 0.001)
}
