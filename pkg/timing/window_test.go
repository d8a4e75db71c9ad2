package timing

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"pgregory.net/rapid"
)

func TestSampleWindowFillsToCapacity(t *testing.T) {
	w := newSampleWindow(3)

	assert.False(t, w.push(10))
	assert.False(t, w.push(20))
	assert.False(t, w.push(30))
	assert.Equal(t, 3, w.len())
	assert.Equal(t, []float64{10, 20, 30}, w.values())
}

func TestSampleWindowEvictsOldestFirst(t *testing.T) {
	w := newSampleWindow(3)
	w.push(10)
	w.push(20)
	w.push(30)

	assert.True(t, w.push(40))
	assert.Equal(t, 3, w.len())
	assert.Equal(t, []float64{20, 30, 40}, w.values())
}

func TestSampleWindowMean(t *testing.T) {
	w := newSampleWindow(4)
	assert.Zero(t, w.mean())

	w.push(10)
	w.push(20)
	assert.InDelta(t, 15, w.mean(), 1e-9)

	w.push(30)
	w.push(40)
	w.push(50) // evicts 10
	assert.InDelta(t, 35, w.mean(), 1e-9)
}

func TestSampleWindowClear(t *testing.T) {
	w := newSampleWindow(2)
	w.push(1)
	w.push(2)
	w.clear()

	assert.Zero(t, w.len())
	assert.Empty(t, w.values())
	assert.Zero(t, w.mean())
}

func TestSampleWindowDefaultCapacity(t *testing.T) {
	w := newSampleWindow(0)
	assert.Equal(t, 60, w.capacity)
}

// The window must behave exactly like a bounded FIFO: after any sequence of
// pushes it holds the most recent min(n, capacity) samples, oldest first.
func TestSampleWindowFIFOProperty(t *testing.T) {
	rapid.Check(t, func(rt *rapid.T) {
		capacity := rapid.IntRange(1, 120).Draw(rt, "capacity")
		pushes := rapid.SliceOfN(rapid.Float64Range(0.1, 1000), 0, 300).Draw(rt, "pushes")

		w := newSampleWindow(capacity)
		for _, v := range pushes {
			w.push(v)
		}

		expected := pushes
		if len(expected) > capacity {
			expected = expected[len(expected)-capacity:]
		}

		require.Equal(rt, len(expected), w.len())
		got := w.values()
		for i := range expected {
			require.InDelta(rt, expected[i], got[i], 1e-12)
		}
	})
}
