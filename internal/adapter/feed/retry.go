package feed

import "time"

// RetryPolicy decides how long to wait before the next connection attempt.
// The stream reconnects forever; only ctx cancellation stops it. Policies
// exist so a bounded or exponential variant can replace the default without
// touching the client's state machine.
type RetryPolicy interface {
	NextDelay() time.Duration
}

// FixedDelay waits the same interval between attempts, with no growth and no
// jitter.
type FixedDelay struct {
	Delay time.Duration
}

func (p FixedDelay) NextDelay() time.Duration {
	if p.Delay <= 0 {
		return 5 * time.Second
	}
	return p.Delay
}
