package otpcore

import (
	"time"

	"github.com/joeycumines/go-catrate"
)

// DefaultMaxRestarts and DefaultWithinMs are the restart-intensity defaults a
// supervisor uses unless SupervisorOptions.MaxRestarts / WithinMs override them.
const (
	DefaultMaxRestarts = 3
	DefaultWithinMs    = 5000
)

// RestartIntensityLimiter is a sliding-window cap on restarts-per-window,
// shared across all children of one supervisor. It wraps a single-category
// catrate.Limiter: max_restarts and within_ms map directly onto
// catrate.NewLimiter's single-window rate, so "Allow returns false" is
// exactly the "prune, append, compare against max" algorithm a restart
// intensity limiter is specified to run.
type RestartIntensityLimiter struct {
	limiter  *catrate.Limiter
	category string
	max      int
	within   time.Duration
}

func newRestartIntensityLimiter(supervisorID string, maxRestarts int, within time.Duration) *RestartIntensityLimiter {
	return &RestartIntensityLimiter{
		limiter:  catrate.NewLimiter(map[time.Duration]int{within: maxRestarts}),
		category: supervisorID,
		max:      maxRestarts,
		within:   within,
	}
}

// Allow records a restart attempt and reports whether it stays within the
// configured window. A false return means the limiter is "exceeded" and the
// supervisor must escalate.
func (l *RestartIntensityLimiter) Allow() bool {
	_, ok := l.limiter.Allow(l.category)
	return ok
}
