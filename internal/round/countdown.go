package round

import (
	"time"

	"github.com/jonboulle/clockwork"
)

// countdown is one running pre-round timer. Identity matters: a tick only
// applies while the engine still points at the countdown that produced it.
type countdown struct {
	ticker  clockwork.Ticker
	done    chan struct{}
	stopped bool
}

func newCountdown(clock clockwork.Clock) *countdown {
	return &countdown{
		ticker: clock.NewTicker(time.Second),
		done:   make(chan struct{}),
	}
}

func (c *countdown) stop() {
	if c.stopped {
		return
	}
	c.stopped = true
	c.ticker.Stop()
	close(c.done)
}

func (e *Engine) runCountdown(ct *countdown) {
	for {
		select {
		case <-ct.done:
			return
		case <-ct.ticker.Chan():
			if !e.tick(ct) {
				return
			}
		}
	}
}

// stopCountdownLocked ends the running timer, if any. The countdown value
// on the round is left for the caller to set.
func (e *Engine) stopCountdownLocked() {
	if e.timer != nil {
		e.timer.stop()
		e.timer = nil
	}
}
