package timewheel

import (
	"math"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

// TestScheduleThenDrain tests that an item comes back exactly once at its tick
func TestScheduleThenDrain(t *testing.T) {
	t.Parallel()

	w := New[string](2)
	w.Schedule(40, "a")

	assert.Empty(t, w.Drain(39), "drain before the tick")
	assert.Equal(t, []string{"a"}, w.Drain(40))
	assert.Empty(t, w.Drain(40), "drain after the item was taken")
	assert.Equal(t, 0, w.Len())
}

// TestSameTickKeepsInsertionOrder tests draining several items scheduled together
func TestSameTickKeepsInsertionOrder(t *testing.T) {
	t.Parallel()

	w := New[int](3)
	for i := 0; i < 5; i++ {
		w.Schedule(1000, i)
	}
	w.Schedule(1001, 99)

	assert.Equal(t, 6, w.Len())
	assert.Equal(t, 5, w.Peek(1000))
	assert.Equal(t, []int{0, 1, 2, 3, 4}, w.Drain(1000))
	assert.Equal(t, []int{99}, w.Drain(1001))
}

// TestCapacity tests the horizon for each depth
func TestCapacity(t *testing.T) {
	t.Parallel()

	tests := []struct {
		depth int
		want  uint64
	}{
		{depth: 1, want: 32},
		{depth: 2, want: 1024},
		{depth: 3, want: 32768},
		{depth: MaxDepth, want: 1 << 60},
	}

	for _, tt := range tests {
		assert.Equal(t, tt.want, New[int](tt.depth).Capacity(), "depth %d", tt.depth)
	}
}

// TestInvalidDepthPanics tests the depth bounds
func TestInvalidDepthPanics(t *testing.T) {
	t.Parallel()

	assert.Panics(t, func() { New[int](0) })
	assert.Panics(t, func() { New[int](MaxDepth + 1) })
}

// TestTicksApartByCapacityShareABucket tests aliasing on the raw wheel
func TestTicksApartByCapacityShareABucket(t *testing.T) {
	t.Parallel()

	w := New[string](1)
	w.Schedule(3, "early")
	w.Schedule(3+w.Capacity(), "aliased")

	assert.Equal(t, []string{"early", "aliased"}, w.Drain(3))
}

// TestEveryTickInHorizonIsDistinct tests that no two ticks below Capacity collide
func TestEveryTickInHorizonIsDistinct(t *testing.T) {
	t.Parallel()

	w := New[uint64](2)
	for tick := uint64(0); tick < w.Capacity(); tick++ {
		w.Schedule(tick, tick)
	}
	for tick := uint64(0); tick < w.Capacity(); tick++ {
		require.Equal(t, []uint64{tick}, w.Drain(tick))
	}
	assert.Equal(t, 0, w.Len())
}

// TestTimerScheduleIn tests relative scheduling and advancing
func TestTimerScheduleIn(t *testing.T) {
	t.Parallel()

	timer := NewTimer[string](2)
	timer.tick.Set(10)

	require.NoError(t, timer.ScheduleIn(0, "now"))
	require.NoError(t, timer.ScheduleIn(2, "soon"))
	require.NoError(t, timer.ScheduleIn(timer.Wheel().Capacity()-1, "last"))

	assert.Equal(t, []string{"now"}, timer.Due())
	assert.Empty(t, timer.Advance())
	assert.Equal(t, []string{"soon"}, timer.Advance())
	assert.Equal(t, uint64(12), timer.Now())

	for timer.Now() < 10+timer.Wheel().Capacity()-2 {
		require.Empty(t, timer.Advance())
	}
	assert.Equal(t, []string{"last"}, timer.Advance())
}

// TestTimerRejectsBeyondHorizon tests that long delays are refused
func TestTimerRejectsBeyondHorizon(t *testing.T) {
	t.Parallel()

	timer := NewTimer[int](1)
	assert.ErrorIs(t, timer.ScheduleIn(32, 1), ErrBeyondHorizon)
	assert.ErrorIs(t, timer.ScheduleIn(math.MaxUint64, 1), ErrBeyondHorizon)
	assert.Equal(t, 0, timer.Wheel().Len())
}

// TestTickWraps tests that Increment wraps at the top of the range
func TestTickWraps(t *testing.T) {
	t.Parallel()

	var tick Tick
	tick.Set(math.MaxUint64)
	tick.Increment()
	assert.Equal(t, uint64(0), tick.Current())
}

// TestTimerAcrossWrap tests scheduling across the wrap of the clock
func TestTimerAcrossWrap(t *testing.T) {
	t.Parallel()

	timer := NewTimer[string](1)
	timer.tick.Set(math.MaxUint64)
	require.NoError(t, timer.ScheduleIn(1, "wrapped"))

	assert.Equal(t, []string{"wrapped"}, timer.Advance())
	assert.Equal(t, uint64(0), timer.Now())
}

func BenchmarkScheduleDrain(b *testing.B) {
	w := New[int](3)
	for i := 0; i < b.N; i++ {
		tick := uint64(i)
		w.Schedule(tick, i)
		w.Drain(tick)
	}
}
