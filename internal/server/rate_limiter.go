// Package server implements per-connection throttling so a single noisy peer
// cannot flood every other participant.
package server

import (
	"time"

	"golang.org/x/time/rate"
)

// newRateLimiter returns a token bucket holding up to capacity tokens. Tokens
// refill continuously at capacity per interval, so an empty bucket is full
// again after one interval of silence.
func newRateLimiter(capacity int, interval time.Duration) *rate.Limiter {
	if capacity <= 0 {
		capacity = 1
	}
	if interval <= 0 {
		interval = time.Second
	}

	perSecond := rate.Limit(float64(capacity) / interval.Seconds())
	return rate.NewLimiter(perSecond, capacity)
}
