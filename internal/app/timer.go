package app

import (
	"context"
	"time"
)

// Countdown counts whole ticks down from a fixed duration. It starts paused and
// is not safe for concurrent use; Session guards it with its own lock.
type Countdown struct {
	duration  int
	remaining int
	paused    bool
	expired   bool
}

func NewCountdown(duration int) *Countdown {
	c := &Countdown{}
	c.Reset(duration)
	return c
}

// Reset restarts the countdown from duration, paused.
func (c *Countdown) Reset(duration int) {
	if duration < 0 {
		duration = 0
	}
	c.duration = duration
	c.remaining = duration
	c.paused = true
	c.expired = false
}

// Resume lets ticks decrement the countdown. An expired countdown stays stopped.
func (c *Countdown) Resume() {
	if !c.expired {
		c.paused = false
	}
}

func (c *Countdown) Pause() {
	c.paused = true
}

// Tick decrements the countdown and reports true exactly once, on the tick
// that reaches zero. Paused or expired countdowns ignore ticks.
func (c *Countdown) Tick() bool {
	if c.paused || c.expired {
		return false
	}
	if c.remaining > 0 {
		c.remaining--
	}
	if c.remaining == 0 {
		c.expired = true
		c.paused = true
		return true
	}
	return false
}

func (c *Countdown) Remaining() int { return c.remaining }
func (c *Countdown) Duration() int  { return c.duration }
func (c *Countdown) Expired() bool  { return c.expired }
func (c *Countdown) Paused() bool   { return c.paused }

// TickHandle owns the goroutine that drives a session's countdown.
type TickHandle struct {
	cancel context.CancelFunc
	done   chan struct{}
}

// StartTicker calls tick every interval until tick returns false, Stop is
// called or ctx is done.
func StartTicker(ctx context.Context, interval time.Duration, tick func() bool) *TickHandle {
	ctx, cancel := context.WithCancel(ctx)
	h := &TickHandle{cancel: cancel, done: make(chan struct{})}
	go func() {
		defer close(h.done)
		defer cancel()
		t := time.NewTicker(interval)
		defer t.Stop()
		for {
			select {
			case <-ctx.Done():
				return
			case <-t.C:
				if !tick() {
					return
				}
			}
		}
	}()
	return h
}

// Stop cancels the ticker without waiting; safe to call from inside tick and
// more than once.
func (h *TickHandle) Stop() {
	if h != nil {
		h.cancel()
	}
}

// Done is closed once the ticker goroutine has exited.
func (h *TickHandle) Done() <-chan struct{} {
	return h.done
}
