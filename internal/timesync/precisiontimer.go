package timesync

import "meshpeer/internal/clock"

// medianFilterSize matches PrecisionTimer.hpp's MedianFilter<TimeStamp, 5>.
const medianFilterSize = 5

// PrecisionTimer is a sample-counted local clock that slews itself
// toward a coordinator's clock via a four-timestamp exchange
// (spec.md §4.7). It is driven externally: the sample-block loop
// calls Progress on every block, and the discovery driver calls
// Sync/HandleSync/HandleRespond as the connection-control state
// dictates. NetworkPeer does not hold a PrecisionTimer.
type PrecisionTimer struct {
	samplingRate   float64
	count          uint64
	monotonicCount uint64
	offset         TimeStamp
	lastTimestamp  TimeStamp
	reference      float64
	filter         *MedianFilter[TimeStamp]
	cpuTimer       *clock.CPUTimer
}

// NewPrecisionTimer returns a PrecisionTimer sampling at sr Hz.
func NewPrecisionTimer(sr float64) *PrecisionTimer {
	return &PrecisionTimer{
		samplingRate: sr,
		filter: NewMedianFilter[TimeStamp](medianFilterSize, func(a, b TimeStamp) bool {
			return a.Less(b)
		}),
	}
}

// Reset rewinds the timer to count, clearing monotonicity tracking and
// the offset filter.
func (p *PrecisionTimer) Reset(count uint64) {
	p.count = count
	p.monotonicCount = 0
	p.lastTimestamp = 0
	p.filter.Reset()
}

// SetSamplingRate changes the sample rate used by AsTime/AsSamples.
func (p *PrecisionTimer) SetSamplingRate(sr float64) {
	p.samplingRate = sr
}

// Progress advances the timer by n samples, seeding the CPU-time
// reference on the very first call and tracking how many consecutive
// samples have produced a strictly increasing timestamp.
func (p *PrecisionTimer) Progress(n uint64) {
	if p.count == 0 {
		if p.cpuTimer == nil {
			p.cpuTimer = clock.NewCPUTimer()
		}
		p.reference = p.cpuTimer.Interval()
	}

	p.count += n

	current := p.AsTime()
	if current.LessOrEqual(p.lastTimestamp) {
		p.monotonicCount = 0
	} else {
		p.monotonicCount += n
	}
	p.lastTimestamp = current
}

// Count returns the raw sample count.
func (p *PrecisionTimer) Count() uint64 {
	return p.count
}

// MonotonicTime returns, in seconds, how long the timestamp has been
// strictly increasing without a reset.
func (p *PrecisionTimer) MonotonicTime() float64 {
	return float64(p.monotonicCount) / p.samplingRate
}

// Stable reports whether MonotonicTime has reached threshold seconds,
// a convenience predicate supplementing PrecisionTimer.hpp's inline
// Stability() check (spec.md §4 supplement).
func (p *PrecisionTimer) Stable(threshold float64) bool {
	return p.MonotonicTime() >= threshold
}

// AsTime returns the current slewed clock reading.
func (p *PrecisionTimer) AsTime() TimeStamp {
	return p.offset.Add(TimeStampFromSamples(p.count, p.samplingRate))
}

// AsSamples returns the current slewed clock reading in samples.
func (p *PrecisionTimer) AsSamples() int64 {
	return p.offset.AsSamples(p.samplingRate) + int64(p.count)
}

// GetTimeStamp returns the timestamp this node would stamp an
// outgoing sync message with right now.
func (p *PrecisionTimer) GetTimeStamp() TimeStamp {
	return p.AsTime()
}

// calculateOffset implements PrecisionTimer.hpp's CalculateOffset:
// Half(t2 - t1 - t4 + t3). The exchange calls it with t3==t2 (the
// server stamps a single receive time for both halves of the round
// trip), matching ReceiveAsClient's CalculateOffset(t1, t2, t2, t3).
func calculateOffset(t1, t2, t3, t4 TimeStamp) TimeStamp {
	return Half(t2.Sub(t1).Sub(t4).Add(t3))
}

// Sync returns the wire bytes for a Sync request if connectedAsClient
// is true, and nil otherwise. Gated on connected-as-client per
// spec.md §4.7.1 ("only a follower initiates a sync exchange") — note
// this is the opposite sense of PrecisionTimer.hpp's own
// `if (IsServerConnected()) return;` guard, which this module follows
// the spec's explicit text over.
func (p *PrecisionTimer) Sync(connectedAsClient bool) []byte {
	if !connectedAsClient {
		return nil
	}
	return EncodeSync(p.GetTimeStamp())
}

// HandleSync is the server-side half of the exchange: stamp the
// receive time and build the Respond(t1, t2) reply.
func (p *PrecisionTimer) HandleSync(t1 TimeStamp) []byte {
	t2 := p.GetTimeStamp()
	return EncodeRespond(t1, t2)
}

// HandleRespond is the client-side half of the exchange: compute the
// raw offset from the four timestamps, damp it through the median
// filter with a clamped slew step, and apply it. It returns the
// applied offset step in seconds, for metrics.
func (p *PrecisionTimer) HandleRespond(t1, t2 TimeStamp) float64 {
	t3 := p.GetTimeStamp()

	offset := calculateOffset(t1, t2, t2, t3)

	alterRaw := TimeStamp(offset.Seconds() * Clamp(offset.Abs().Seconds(), 0.1, 1.0))
	compare := p.filter.Push(alterRaw).Abs().Seconds() * 8.0

	alter := TimeStamp(Clamp(alterRaw.Seconds(), -compare, compare))

	p.offset = p.offset.Add(alter)
	p.reference = -p.offset.Seconds()

	return alter.Seconds()
}
