package kernel

import "sync/atomic"

// Clock supplies monotonic microseconds since boot. hal.Time satisfies it.
type Clock interface {
	NowMicros() uint64
}

// ClockFunc adapts a function to Clock.
type ClockFunc func() uint64

func (f ClockFunc) NowMicros() uint64 { return f() }

// ManualClock is a Clock that only moves when told to.
type ManualClock struct {
	us atomic.Uint64
}

func (c *ManualClock) NowMicros() uint64 { return c.us.Load() }

// Set moves the clock to us. Moving it backwards is ignored.
func (c *ManualClock) Set(us uint64) {
	for {
		cur := c.us.Load()
		if us <= cur || c.us.CompareAndSwap(cur, us) {
			return
		}
	}
}

// Advance moves the clock forward by us.
func (c *ManualClock) Advance(us uint64) uint64 {
	return c.us.Add(us)
}
