package client

import (
	"math"
	"time"
)

// Backoff decides how long a disconnected client waits before the next try.
// It holds no state, the caller counts attempts.
type Backoff struct {
	Base   time.Duration
	Max    time.Duration
	Factor float64

	// Zero means retry forever.
	MaxAttempts int
}

func DefaultBackoff() Backoff {
	return Backoff{
		Base:        time.Millisecond * 500,
		Max:         time.Second * 30,
		Factor:      2,
		MaxAttempts: 8,
	}
}

// Delay returns the wait before retry number attempt, counting from zero,
// and false once the attempts are used up.
func (b Backoff) Delay(attempt int) (time.Duration, bool) {
	if attempt < 0 {
		attempt = 0
	}
	if b.MaxAttempts > 0 && attempt >= b.MaxAttempts {
		return 0, false
	}

	factor := b.Factor
	if factor < 1 {
		factor = 2
	}

	d := float64(b.Base) * math.Pow(factor, float64(attempt))
	if b.Max > 0 && d > float64(b.Max) {
		return b.Max, true
	}
	if d > math.MaxInt64 {
		return time.Duration(math.MaxInt64), true
	}
	return time.Duration(d), true
}
