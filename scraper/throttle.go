package scraper

import (
	"context"
	"time"
)

// Throttle enforces a fixed pause between sitemap-level navigations.
// It is not adaptive.
type Throttle struct {
	Delay time.Duration
	sleep func(ctx context.Context, d time.Duration) error
}

func NewThrottle(delay time.Duration) *Throttle {
	return &Throttle{Delay: delay, sleep: sleepContext}
}

func (t *Throttle) Wait(ctx context.Context) error {
	if t == nil || t.Delay <= 0 {
		return ctx.Err()
	}
	return t.sleep(ctx, t.Delay)
}

func sleepContext(ctx context.Context, d time.Duration) error {
	timer := time.NewTimer(d)
	defer timer.Stop()
	select {
	case <-ctx.Done():
		return ctx.Err()
	case <-timer.C:
		return nil
	}
}
