package clock

import (
	"context"
	"time"
)

// drive calls tick every interval until ctx is cancelled
// Deadlines advance by interval to avoid drift; falling more than two intervals behind resynchronizes
func drive(ctx context.Context, interval time.Duration, tick func()) error {
	if interval <= 0 {
		interval = 50 * time.Millisecond
	}

	timer := time.NewTimer(interval)
	defer timer.Stop()
	deadline := time.Now().Add(interval)

	for {
		select {
		case <-ctx.Done():
			return ctx.Err()
		case <-timer.C:
		}

		tick()

		now := time.Now()
		deadline = deadline.Add(interval)
		if now.Sub(deadline) > interval*2 {
			deadline = now.Add(interval)
		}
		sleep := deadline.Sub(now)
		if sleep < 0 {
			sleep = 0
		}
		timer.Reset(sleep)
	}
}
