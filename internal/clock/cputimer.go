// Package clock provides the monotone local time source the precision
// timer captures its CPU-time reference from. It is deliberately thin:
// everything here composes around
// time.Now(), whose difference operations are guaranteed monotonic and
// unaffected by wall-clock adjustments on every supported platform.
package clock

import "time"

// CPUTimer captures a monotone reference point and reports elapsed
// seconds against it.
type CPUTimer struct {
	start time.Time
}

// NewCPUTimer returns a CPUTimer started now.
func NewCPUTimer() *CPUTimer {
	return &CPUTimer{start: time.Now()}
}

// Start resets the reference point to now.
func (t *CPUTimer) Start() {
	t.start = time.Now()
}

// Interval returns seconds elapsed since the reference point.
func (t *CPUTimer) Interval() float64 {
	return time.Since(t.start).Seconds()
}
