package parallelreader

import (
	"runtime"
	"time"

	"github.com/valyala/fastrand"
)

const goschedEvery = 64 // reduce runtime.Gosched() frequency in hot loops

// WaitStrategy decides what a side of the ring does while it waits for the
// other one: the consumer on an empty ring, the producer on a full one.
//
// Idle is called with the number of consecutive idle calls so far and returns
// the value to pass on the next call. The counter is reset to 0 once progress
// is made. Implementations are shared by both goroutines and must be safe for
// concurrent use.
type WaitStrategy interface {
	Idle(spins int) int
}

// WaitFunc adapts a plain function to WaitStrategy.
type WaitFunc func(spins int) int

// Idle calls f(spins).
func (f WaitFunc) Idle(spins int) int {
	return f(spins)
}

// DefaultWaitStrategy sleeps for the shortest duration the runtime allows.
var DefaultWaitStrategy WaitStrategy = Park(time.Nanosecond)

// Spin burns CPU without yielding. Lowest wake-up latency, only sensible when
// both goroutines have a core of their own.
type Spin struct{}

// Idle returns spins+1 immediately.
func (Spin) Idle(spins int) int {
	return spins + 1
}

// Yield gives up the processor every goschedEvery spins.
type Yield struct{}

// Idle counts the call and yields on every goschedEvery-th one.
func (Yield) Idle(spins int) int {
	spins++
	if spins%goschedEvery == 0 {
		runtime.Gosched()
	}
	return spins
}

// Park sleeps for a fixed duration on every call.
type Park time.Duration

// Idle sleeps for p.
func (p Park) Idle(spins int) int {
	time.Sleep(time.Duration(p))
	return spins + 1
}

// Backoff spins for SpinLimit calls, yields until YieldLimit calls, then
// sleeps for a random duration up to MaxSleep. The jitter keeps a stalled
// producer and consumer from waking in lock step.
type Backoff struct {
	SpinLimit  int
	YieldLimit int
	MaxSleep   time.Duration
}

// Idle picks the phase from spins. Once sleeping it returns spins unchanged.
func (b Backoff) Idle(spins int) int {
	switch {
	case spins < b.SpinLimit:
	case spins < b.YieldLimit:
		runtime.Gosched()
	default:
		d := time.Nanosecond
		if b.MaxSleep > d {
			d += time.Duration(fastrand.Uint32n(uint32(min(b.MaxSleep, time.Second))))
		}
		time.Sleep(d)
		// stay in the sleeping phase without overflowing
		return spins
	}
	return spins + 1
}
