package engine

import (
	"sync"
	"time"
)

// countdown drives the refresh cycle of a resolved quote: a fixed number of
// ticks at a fixed interval, then expiry. Start replaces any running
// countdown, so at most one is ever pending per coordinator.
type countdown struct {
	ticks    int
	interval time.Duration

	mu     sync.Mutex
	cancel chan struct{}
}

func newCountdown(ticks int, interval time.Duration) *countdown {
	return &countdown{ticks: ticks, interval: interval}
}

func (c *countdown) Start(onTick func(remaining int), onExpire func()) {
	c.mu.Lock()
	if c.cancel != nil {
		close(c.cancel)
	}
	cancel := make(chan struct{})
	c.cancel = cancel
	c.mu.Unlock()

	go func() {
		ticker := time.NewTicker(c.interval)
		defer ticker.Stop()

		remaining := c.ticks
		for {
			select {
			case <-cancel:
				return
			case <-ticker.C:
				remaining--
				if remaining <= 0 {
					onExpire()
					return
				}
				onTick(remaining)
			}
		}
	}()
}

func (c *countdown) Stop() {
	c.mu.Lock()
	if c.cancel != nil {
		close(c.cancel)
		c.cancel = nil
	}
	c.mu.Unlock()
}
