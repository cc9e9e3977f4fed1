package timesync

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"meshpeer/internal/codec"
)

func decodeSyncWire(t *testing.T, wire []byte) TimeStamp {
	t.Helper()
	s := codec.NewStream(wire)
	require.True(t, s.IsNextTag(codec.TagApplication))
	require.True(t, s.IsNextTag(SubtagSync))
	t1, err := DecodeSync(s)
	require.NoError(t, err)
	return t1
}

func decodeRespondWire(t *testing.T, wire []byte) (TimeStamp, TimeStamp) {
	t.Helper()
	s := codec.NewStream(wire)
	require.True(t, s.IsNextTag(codec.TagApplication))
	require.True(t, s.IsNextTag(SubtagRespond))
	t1, t2, err := DecodeRespond(s)
	require.NoError(t, err)
	return t1, t2
}

func TestTimeStampArithmetic(t *testing.T) {
	a := TimeStamp(1.5)
	b := TimeStamp(0.5)

	assert.Equal(t, TimeStamp(2.0), a.Add(b))
	assert.Equal(t, TimeStamp(1.0), a.Sub(b))
	assert.True(t, b.Less(a))
	assert.True(t, a.Greater(b))
	assert.Equal(t, TimeStamp(0.75), Half(a))
	assert.Equal(t, 1.5, a.Seconds())
}

func TestTimeStampSamplesRoundTrip(t *testing.T) {
	ts := TimeStampFromSamples(44100, 44100)
	assert.Equal(t, TimeStamp(1.0), ts)
	assert.Equal(t, int64(44100), ts.AsSamples(44100))
}

func TestMedianFilterWarmUpIsZeroSeeded(t *testing.T) {
	f := NewMedianFilter[TimeStamp](5, func(a, b TimeStamp) bool { return a.Less(b) })

	got := f.Push(TimeStamp(10))
	assert.Equal(t, TimeStamp(0), got, "median of [10,0,0,0,0] is 0")
}

func TestMedianFilterConverges(t *testing.T) {
	f := NewMedianFilter[TimeStamp](5, func(a, b TimeStamp) bool { return a.Less(b) })

	var last TimeStamp
	for i := 0; i < 20; i++ {
		last = f.Push(TimeStamp(3))
	}
	assert.Equal(t, TimeStamp(3), last)
}

func TestMedianFilterReset(t *testing.T) {
	f := NewMedianFilter[TimeStamp](3, func(a, b TimeStamp) bool { return a.Less(b) })
	f.Push(TimeStamp(5))
	f.Push(TimeStamp(5))
	f.Reset()
	got := f.Push(TimeStamp(5))
	assert.Equal(t, TimeStamp(0), got)
}

func TestPrecisionTimerProgressMonotonic(t *testing.T) {
	pt := NewPrecisionTimer(44100)

	pt.Progress(44100)
	assert.Equal(t, 1.0, pt.MonotonicTime())

	pt.Progress(44100)
	assert.Equal(t, 2.0, pt.MonotonicTime())
}

func TestPrecisionTimerResetClearsMonotonicity(t *testing.T) {
	pt := NewPrecisionTimer(44100)
	pt.Progress(44100)
	require.Greater(t, pt.MonotonicTime(), 0.0)

	pt.Reset(0)
	assert.Equal(t, 0.0, pt.MonotonicTime())
	assert.Equal(t, uint64(0), pt.Count())
}

func TestPrecisionTimerStable(t *testing.T) {
	pt := NewPrecisionTimer(44100)
	pt.Progress(44100 * 2)

	assert.True(t, pt.Stable(1.0))
	assert.False(t, pt.Stable(5.0))
}

func TestPrecisionTimerSyncGatedOnConnectedAsClient(t *testing.T) {
	pt := NewPrecisionTimer(44100)

	assert.Nil(t, pt.Sync(false))
	assert.NotNil(t, pt.Sync(true))
}

func TestPrecisionTimerSyncExchangeRoundTrip(t *testing.T) {
	client := NewPrecisionTimer(44100)
	server := NewPrecisionTimer(44100)

	server.Progress(44100 * 10) // server's clock is 10s further ahead

	wire := client.Sync(true)
	require.NotNil(t, wire)

	t1 := decodeSyncWire(t, wire)

	respondWire := server.HandleSync(t1)
	rt1, rt2 := decodeRespondWire(t, respondWire)
	assert.Equal(t, t1, rt1)

	// raw offset is 10s, but the zero-seeded filter's median after one
	// push is 0, so the slew ceiling is 0 and the first step is 0.
	offsetBefore := client.AsTime()
	applied := client.HandleRespond(rt1, rt2)
	assert.Zero(t, applied)
	assert.Equal(t, offsetBefore, client.AsTime())
}

func TestPrecisionTimerSyncConvergesOverManyExchanges(t *testing.T) {
	client := NewPrecisionTimer(44100)
	server := NewPrecisionTimer(44100)
	server.Progress(44100 * 3)

	for i := 0; i < 200; i++ {
		client.Progress(4410)
		server.Progress(4410)

		wire := client.Sync(true)
		t1 := decodeSyncWire(t, wire)

		respondWire := server.HandleSync(t1)
		rt1, rt2 := decodeRespondWire(t, respondWire)

		client.HandleRespond(rt1, rt2)
	}

	drift := client.AsTime().Sub(server.AsTime()).Abs().Seconds()
	assert.Less(t, drift, 0.5, "offset should have converged to keep drift bounded")
}
