//go:build !tinygo

package hal

import "time"

type hostTime struct {
	boot time.Time
}

func newHostTime() *hostTime {
	return &hostTime{boot: time.Now()}
}

// NowMicros uses the monotonic reading carried by time.Time, so wall clock
// adjustments never move it backwards.
func (t *hostTime) NowMicros() uint64 {
	d := time.Since(t.boot)
	if d < 0 {
		return 0
	}
	return uint64(d / time.Microsecond)
}
