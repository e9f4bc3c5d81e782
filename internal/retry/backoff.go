package retry

import (
	"math/rand/v2"
	"time"
)

// MaxDelay caps every backoff delay.
const MaxDelay = 30 * time.Second

// ExponentialBackoff returns delay based on attempt number.
// The delay doubles with each attempt: base * 2^attempt, capped at MaxDelay.
func ExponentialBackoff(attempt int, base time.Duration) time.Duration {
	if attempt < 0 {
		attempt = 0
	}
	if attempt > 30 {
		return MaxDelay
	}
	d := base * (1 << attempt)
	if d > MaxDelay || d <= 0 {
		return MaxDelay
	}
	return d
}

// WithJitter adds up to half of d as random jitter so redelivered tasks
// do not land at the same instant.
func WithJitter(d time.Duration) time.Duration {
	if d <= 1 {
		return d
	}
	return d + time.Duration(rand.Int64N(int64(d)/2+1))
}
