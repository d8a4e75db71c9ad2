package lrucache

import (
	"context"
	"fmt"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"pgregory.net/rapid"
)

func TestGetMissThenHit(t *testing.T) {
	c := New(4, nil)

	_, ok := c.Get("a")
	assert.False(t, ok)

	c.Set("a", []byte("1"))
	v, ok := c.Get("a")
	require.True(t, ok)
	assert.Equal(t, []byte("1"), v)
}

func TestSetReplacesExistingValue(t *testing.T) {
	c := New(4, nil)
	c.Set("a", []byte("1"))
	c.Set("a", []byte("2"))

	v, ok := c.Get("a")
	require.True(t, ok)
	assert.Equal(t, []byte("2"), v)
	assert.Equal(t, 1, c.Len())
}

func TestEvictsLeastRecentlyUsed(t *testing.T) {
	c := New(2, nil)
	c.Set("a", []byte("1"))
	c.Set("b", []byte("2"))

	// Touch "a" so "b" becomes the eviction candidate.
	_, ok := c.Get("a")
	require.True(t, ok)

	c.Set("c", []byte("3"))

	_, ok = c.Get("b")
	assert.False(t, ok)
	_, ok = c.Get("a")
	assert.True(t, ok)
	_, ok = c.Get("c")
	assert.True(t, ok)
}

func TestDelete(t *testing.T) {
	c := New(4, nil)
	c.Set("a", []byte("1"))
	c.Delete("a")
	c.Delete("a") // no-op

	_, ok := c.Get("a")
	assert.False(t, ok)
	assert.Zero(t, c.Len())
}

func TestStatisticsTracksHitsMissesEvictions(t *testing.T) {
	c := New(2, nil)
	ctx := context.Background()

	c.Set("a", []byte("1"))
	c.Set("b", []byte("2"))
	c.Get("a")
	c.Get("a")
	c.Get("missing")
	c.Set("c", []byte("3")) // evicts

	stats, err := c.Statistics(ctx)
	require.NoError(t, err)
	assert.Equal(t, uint64(2), stats.Hits)
	assert.Equal(t, uint64(1), stats.Misses)
	assert.Equal(t, uint64(1), stats.Evictions)
	assert.Equal(t, 2, stats.EntryCount)
	assert.InDelta(t, 2.0/3.0, stats.HitRate, 1e-9)
}

func TestStatisticsUntouchedCacheReportsHealthy(t *testing.T) {
	c := New(4, nil)
	stats, err := c.Statistics(context.Background())
	require.NoError(t, err)
	assert.Equal(t, 1.0, stats.HitRate)
}

func TestOptimizeMemoryUsageEvictsToHalfCapacity(t *testing.T) {
	c := New(10, nil)
	for i := 0; i < 10; i++ {
		c.Set(fmt.Sprintf("k%d", i), []byte("v"))
	}

	require.NoError(t, c.OptimizeMemoryUsage(context.Background()))
	assert.Equal(t, 5, c.Len())

	// The survivors are the most recently used entries.
	for i := 5; i < 10; i++ {
		_, ok := c.Get(fmt.Sprintf("k%d", i))
		assert.True(t, ok, "k%d should survive", i)
	}

	// Already at the low-water mark: nothing more to evict.
	require.NoError(t, c.OptimizeMemoryUsage(context.Background()))
	assert.Equal(t, 5, c.Len())
}

// The cache never exceeds capacity and Get always returns the last value set
// for a key, regardless of the operation sequence.
func TestCacheConsistencyProperty(t *testing.T) {
	rapid.Check(t, func(rt *rapid.T) {
		capacity := rapid.IntRange(1, 16).Draw(rt, "capacity")
		c := New(capacity, nil)
		model := make(map[string]string)

		ops := rapid.IntRange(1, 200).Draw(rt, "ops")
		for i := 0; i < ops; i++ {
			key := rapid.SampledFrom([]string{"a", "b", "c", "d", "e", "f"}).Draw(rt, "key")
			if rapid.Bool().Draw(rt, "is_set") {
				val := fmt.Sprintf("v%d", i)
				c.Set(key, []byte(val))
				model[key] = val
			} else if got, ok := c.Get(key); ok {
				require.Equal(rt, model[key], string(got))
			}
			require.LessOrEqual(rt, c.Len(), capacity)
		}
	})
}
