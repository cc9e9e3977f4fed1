// Package timesync implements the precision clock (C7 of spec.md §4.7):
// a sample-counted local clock offset against a coordinator by a
// Cristian-style four-timestamp exchange, damped through a median
// filter and a clamped slew step. The formulas are grounded on
// original_source/PrecisionTimer.hpp's TimeStamp/PrecisionTimer pair.
package timesync

import "math"

// TimeStamp is a point in time expressed in fractional seconds. It is
// a plain float64 under the hood so it round-trips through
// internal/codec's fixed-width AppendValue/ReadValue unchanged.
type TimeStamp float64

// Add returns a+b.
func (a TimeStamp) Add(b TimeStamp) TimeStamp { return a + b }

// Sub returns a-b.
func (a TimeStamp) Sub(b TimeStamp) TimeStamp { return a - b }

// Less reports a < b.
func (a TimeStamp) Less(b TimeStamp) bool { return a < b }

// Greater reports a > b.
func (a TimeStamp) Greater(b TimeStamp) bool { return a > b }

// LessOrEqual reports a <= b.
func (a TimeStamp) LessOrEqual(b TimeStamp) bool { return a <= b }

// GreaterOrEqual reports a >= b.
func (a TimeStamp) GreaterOrEqual(b TimeStamp) bool { return a >= b }

// Half returns a*0.5.
func Half(a TimeStamp) TimeStamp { return a * 0.5 }

// Seconds returns the TimeStamp as a plain float64 of seconds.
func (a TimeStamp) Seconds() float64 { return float64(a) }

// Abs returns the absolute value of a.
func (a TimeStamp) Abs() TimeStamp { return TimeStamp(math.Abs(float64(a))) }

// TimeStampFromSamples converts a sample count at sampling rate sr
// into a TimeStamp.
func TimeStampFromSamples(count uint64, sr float64) TimeStamp {
	return TimeStamp(float64(count) / sr)
}

// AsSamples converts a back into a sample count at sampling rate sr,
// rounding to the nearest sample.
func (a TimeStamp) AsSamples(sr float64) int64 {
	return int64(math.Round(float64(a) * sr))
}

// Clamp restricts v to [lo, hi].
func Clamp(v, lo, hi float64) float64 {
	if v < lo {
		return lo
	}
	if v > hi {
		return hi
	}
	return v
}
