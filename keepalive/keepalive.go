// Package keepalive provides the timer used to pace keep-alive filler while
// a slow computation runs. The package exists mostly for its stop
// semantics: once Stop returns, no further tick can be observed, which the
// response controller relies on when it tears a request down.
package keepalive

import (
	"context"
	"sync"
	"time"
)

// Ticker delivers periodic tick events until stopped.
type Ticker interface {
	// C returns the channel ticks are delivered on. The channel is never
	// closed; consumers multiplex it with other event sources.
	C() <-chan time.Time

	// Stop disarms the ticker. It blocks until the tick source has shut
	// down, guaranteeing that no tick is delivered after Stop returns.
	Stop()
}

// Factory builds a Ticker for the given period. The response controller
// accepts a Factory so tests can substitute manual tickers and drive time
// by explicit signaling.
type Factory func(period time.Duration) Ticker

// New arms a wall-clock ticker that fires every period. It is the default
// Factory used in production.
func New(period time.Duration) Ticker {
	t := &wallTicker{
		ch:   make(chan time.Time),
		stop: make(chan struct{}),
		done: make(chan struct{}),
	}
	go t.run(period)
	return t
}

// wallTicker pumps a time.Ticker through its own goroutine so that Stop
// can join the goroutine. Stopping a bare time.Ticker does not drain a tick
// already sitting in its buffered channel; the pump goroutine closes that
// window.
type wallTicker struct {
	ch       chan time.Time
	stop     chan struct{}
	done     chan struct{}
	stopOnce sync.Once
}

func (t *wallTicker) run(period time.Duration) {
	defer close(t.done)
	tick := time.NewTicker(period)
	defer tick.Stop()
	for {
		select {
		case now := <-tick.C:
			select {
			case t.ch <- now:
			case <-t.stop:
				return
			}
		case <-t.stop:
			return
		}
	}
}

func (t *wallTicker) C() <-chan time.Time { return t.ch }

func (t *wallTicker) Stop() {
	t.stopOnce.Do(func() { close(t.stop) })
	<-t.done
}

// Manual is a Ticker driven entirely by explicit Tick calls. It lets tests
// control elapsed time without real delays.
type Manual struct {
	ch       chan time.Time
	stop     chan struct{}
	stopOnce sync.Once
}

// NewManual returns an unarmed Manual ticker. Use it as a Factory via
// (*Manual).Factory.
func NewManual() *Manual {
	return &Manual{
		ch:   make(chan time.Time),
		stop: make(chan struct{}),
	}
}

// Factory returns a keepalive.Factory that hands out this Manual ticker
// regardless of the requested period.
func (m *Manual) Factory() Factory {
	return func(time.Duration) Ticker { return m }
}

// Tick delivers exactly one tick and returns once the consumer has
// received it. It returns an error if the ticker was stopped or ctx ends
// before delivery.
func (m *Manual) Tick(ctx context.Context) error {
	select {
	case m.ch <- time.Now():
		return nil
	case <-m.stop:
		return context.Canceled
	case <-ctx.Done():
		return ctx.Err()
	}
}

func (m *Manual) C() <-chan time.Time { return m.ch }

func (m *Manual) Stop() {
	m.stopOnce.Do(func() { close(m.stop) })
}
