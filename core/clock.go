package core

import "time"

type (
	// Clock abstracts ticker creation so timer-driven flows can be driven
	// manually in tests.
	Clock interface {
		NewTicker(d time.Duration) Ticker
	}

	// Ticker delivers periodic ticks until stopped. Stop must be safe to
	// call more than once; no tick may be delivered after it returns.
	Ticker interface {
		C() <-chan time.Time
		Stop()
	}
)

type realClock struct{}

// RealClock returns a Clock backed by time.Ticker.
func RealClock() Clock { return realClock{} }

func (realClock) NewTicker(d time.Duration) Ticker {
	return &realTicker{t: time.NewTicker(d)}
}

type realTicker struct {
	t       *time.Ticker
	stopped bool
}

func (rt *realTicker) C() <-chan time.Time { return rt.t.C }

func (rt *realTicker) Stop() {
	if !rt.stopped {
		rt.t.Stop()
		rt.stopped = true
	}
}
