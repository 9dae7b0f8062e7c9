package otpcore

import (
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
)

func TestRestartIntensityLimiterAllowsWithinBudget(t *testing.T) {
	l := newRestartIntensityLimiter("limiter-a", 3, time.Second)
	assert.True(t, l.Allow())
	assert.True(t, l.Allow())
	assert.True(t, l.Allow())
}

func TestRestartIntensityLimiterTripsOverBudget(t *testing.T) {
	l := newRestartIntensityLimiter("limiter-b", 2, time.Second)
	assert.True(t, l.Allow())
	assert.True(t, l.Allow())
	assert.False(t, l.Allow(), "a third restart within the window must exceed max_restarts=2")
}

func TestRestartIntensityLimiterRecoversAfterWindow(t *testing.T) {
	l := newRestartIntensityLimiter("limiter-c", 1, 50*time.Millisecond)
	assert.True(t, l.Allow())
	assert.False(t, l.Allow())

	time.Sleep(80 * time.Millisecond)
	assert.True(t, l.Allow(), "the limiter should allow again once the window has slid past the first attempt")
}

func TestRestartIntensityLimitersAreIsolatedByCategory(t *testing.T) {
	a := newRestartIntensityLimiter("limiter-d", 1, time.Second)
	b := newRestartIntensityLimiter("limiter-e", 1, time.Second)

	assert.True(t, a.Allow())
	assert.False(t, a.Allow())
	assert.True(t, b.Allow(), "a different supervisor's limiter must not share budget with another")
}
