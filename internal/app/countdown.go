package app

import (
	"sync"
	"time"
)

// Countdown decrements once per elapsed second toward zero, then fires its
// expiry callback exactly once and stops. Remaining time is always
// recomputed from the absolute deadline, so a run of skipped ticks (paused
// process, slow scheduler) cannot drift it: the next tick reads the true
// value. Stop is idempotent; after Stop no further callbacks fire.
type Countdown struct {
	interval time.Duration
	deadline time.Time
	now      func() time.Time
	onTick   func(remaining int)
	onExpire func()

	mu      sync.Mutex
	stopped bool
	stopCh  chan struct{}
}

// StartCountdown begins ticking immediately. Both callbacks may be nil.
func StartCountdown(seconds int, onTick func(int), onExpire func()) *Countdown {
	return startCountdown(seconds, time.Second, time.Now, onTick, onExpire)
}

// startCountdown lets tests shrink the tick interval; one "second" of the
// countdown then elapses per interval.
func startCountdown(seconds int, interval time.Duration, now func() time.Time, onTick func(int), onExpire func()) *Countdown {
	c := &Countdown{
		interval: interval,
		deadline: now().Add(time.Duration(seconds) * interval),
		now:      now,
		onTick:   onTick,
		onExpire: onExpire,
		stopCh:   make(chan struct{}),
	}
	go c.run()
	return c
}

func (c *Countdown) run() {
	ticker := time.NewTicker(c.interval)
	defer ticker.Stop()
	for {
		select {
		case <-c.stopCh:
			return
		case <-ticker.C:
			remaining := c.Remaining()
			c.mu.Lock()
			if c.stopped {
				c.mu.Unlock()
				return
			}
			if remaining <= 0 {
				c.stopped = true
				close(c.stopCh)
				c.mu.Unlock()
				if c.onTick != nil {
					c.onTick(0)
				}
				if c.onExpire != nil {
					c.onExpire()
				}
				return
			}
			c.mu.Unlock()
			if c.onTick != nil {
				c.onTick(remaining)
			}
		}
	}
}

// Remaining reports the whole units left until the deadline, never negative.
func (c *Countdown) Remaining() int {
	return remainingUnits(c.deadline, c.now(), c.interval)
}

// Stop cancels the countdown. Safe to call any number of times, including
// after expiry.
func (c *Countdown) Stop() {
	c.mu.Lock()
	defer c.mu.Unlock()
	if c.stopped {
		return
	}
	c.stopped = true
	close(c.stopCh)
}

func remainingUnits(deadline, now time.Time, unit time.Duration) int {
	left := deadline.Sub(now)
	if left <= 0 {
		return 0
	}
	units := int(left / unit)
	if left%unit != 0 {
		units++
	}
	return units
}

// RemainingSeconds is the rate-limit cooldown read: seconds until unlockAt,
// rounded up, zero once now has passed it.
func RemainingSeconds(unlockAt, now time.Time) int {
	return remainingUnits(unlockAt, now, time.Second)
}
