package app

import (
	"sync"
	"sync/atomic"
	"time"
)

// Ticker is the part of *time.Ticker the session timer relies on.
type Ticker interface {
	C() <-chan time.Time
	Reset(d time.Duration)
	Stop()
}

// TickerFactory builds the ticker behind a Timer; tests swap in manual tickers.
type TickerFactory func(d time.Duration) Ticker

type realTicker struct {
	*time.Ticker
}

func (t realTicker) C() <-chan time.Time { return t.Ticker.C }

// NewRealTicker wraps time.NewTicker.
func NewRealTicker(d time.Duration) Ticker {
	return realTicker{time.NewTicker(d)}
}

// Timer invokes a callback once per interval until stopped.
// Stop is safe to call any number of times from any goroutine, including from
// inside the callback. Every Reset starts a new generation; each tick carries
// the generation it fired in so callers can drop ticks that predate a reset.
type Timer struct {
	interval time.Duration
	gen      atomic.Uint64
	reset    chan struct{}
	stop     chan struct{}
	done     chan struct{}
	once     sync.Once
}

// StartTimer creates the ticker synchronously and runs onTick on its own goroutine.
func StartTimer(factory TickerFactory, interval time.Duration, onTick func(gen uint64)) *Timer {
	if factory == nil {
		factory = NewRealTicker
	}
	t := &Timer{
		interval: interval,
		reset:    make(chan struct{}, 1),
		stop:     make(chan struct{}),
		done:     make(chan struct{}),
	}
	ticker := factory(interval)
	go t.run(ticker, onTick)
	return t
}

func (t *Timer) run(ticker Ticker, onTick func(gen uint64)) {
	defer close(t.done)
	defer ticker.Stop()
	phase := t.gen.Load()
	for {
		select {
		case <-t.stop:
			return
		case <-t.reset:
			phase = t.gen.Load()
			ticker.Reset(t.interval)
		case <-ticker.C():
			// A stop racing a tick wins.
			select {
			case <-t.stop:
				return
			default:
			}
			if current := t.gen.Load(); current != phase {
				// fired before a pending reset was applied
				select {
				case <-t.reset:
				default:
				}
				phase = current
				ticker.Reset(t.interval)
				continue
			}
			onTick(phase)
		}
	}
}

// Generation counts the resets so far.
func (t *Timer) Generation() uint64 {
	return t.gen.Load()
}

// Reset re-phases the ticker so the next tick is a full interval away.
func (t *Timer) Reset() {
	t.gen.Add(1)
	select {
	case t.reset <- struct{}{}:
	default:
	}
}

// Stop cancels the timer. It does not wait for an in-flight callback.
func (t *Timer) Stop() {
	t.once.Do(func() { close(t.stop) })
}

// Done is closed once the timer goroutine has exited and released its ticker.
func (t *Timer) Done() <-chan struct{} {
	return t.done
}
