package memory

import (
	"context"
	"sync"
	"time"

	"learnpath-service/internal/app"
)

// RateLimiter is a fixed-window in-memory implementation of app.RateLimiter.
// Once the attempt limit is breached the key is locked out until an absolute
// unlock timestamp; the remaining cooldown is recomputed from that timestamp
// on every call, so it can never go negative or drift.
type RateLimiter struct {
	max      int
	window   time.Duration
	cooldown time.Duration
	now      func() time.Time

	mu      sync.Mutex
	windows map[string]*limiterWindow
}

type limiterWindow struct {
	count    int
	resetAt  time.Time
	unlockAt time.Time
}

func NewRateLimiter(max int, window, cooldown time.Duration) *RateLimiter {
	return NewRateLimiterWithClock(max, window, cooldown, time.Now)
}

// NewRateLimiterWithClock allows deterministic time in tests.
func NewRateLimiterWithClock(max int, window, cooldown time.Duration, now func() time.Time) *RateLimiter {
	return &RateLimiter{
		max:      max,
		window:   window,
		cooldown: cooldown,
		now:      now,
		windows:  make(map[string]*limiterWindow),
	}
}

func (l *RateLimiter) Reserve(_ context.Context, key string) (int, bool, error) {
	l.mu.Lock()
	defer l.mu.Unlock()

	now := l.now()
	w, ok := l.windows[key]
	if !ok || (now.After(w.resetAt) && now.After(w.unlockAt)) {
		w = &limiterWindow{resetAt: now.Add(l.window)}
		l.windows[key] = w
	}

	if retry := app.RemainingSeconds(w.unlockAt, now); retry > 0 {
		return retry, true, nil
	}

	w.count++
	if w.count > l.max {
		w.unlockAt = now.Add(l.cooldown)
		return app.RemainingSeconds(w.unlockAt, now), true, nil
	}
	return 0, false, nil
}
