package cache

import (
	"context"
	"errors"
	"sync"
	"sync/atomic"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"tabsight/internal/dataset"
)

func testDataset(t *testing.T, name string) *dataset.Dataset {
	t.Helper()
	ds, err := dataset.New(dataset.NumberColumn(name, dataset.KindFloat, []float64{1, 2, 3}))
	require.NoError(t, err)
	return ds
}

func TestFingerprint(t *testing.T) {
	a := Fingerprint([]byte("hello"))
	b := Fingerprint([]byte("hello"))
	c := Fingerprint([]byte("hello!"))

	assert.Equal(t, a, b, "identical content yields identical keys")
	assert.NotEqual(t, a, c)
	assert.Len(t, a, 64, "BLAKE2b-256 hex digest")
}

func TestCachePutGet(t *testing.T) {
	c := New(0, 0)
	ds := testDataset(t, "v")

	_, ok := c.Get("k")
	assert.False(t, ok)

	c.Put("k", ds)
	got, ok := c.Get("k")
	require.True(t, ok)
	assert.Same(t, ds, got)
}

func TestCacheTTL(t *testing.T) {
	c := New(time.Minute, 0)
	current := time.Unix(1700000000, 0)
	c.now = func() time.Time { return current }

	c.Put("k", testDataset(t, "v"))

	_, ok := c.Get("k")
	assert.True(t, ok)

	current = current.Add(2 * time.Minute)
	_, ok = c.Get("k")
	assert.False(t, ok, "expired entries read as misses")
	assert.Equal(t, 0, c.Len(), "expired entries are dropped on access")
}

func TestCacheEviction(t *testing.T) {
	c := New(0, 2)
	current := time.Unix(1700000000, 0)
	c.now = func() time.Time { return current }

	c.Put("a", testDataset(t, "a"))
	current = current.Add(time.Second)
	c.Put("b", testDataset(t, "b"))
	current = current.Add(time.Second)
	c.Put("c", testDataset(t, "c"))

	assert.Equal(t, 2, c.Len())
	_, ok := c.Get("a")
	assert.False(t, ok, "oldest entry is evicted first")
	_, ok = c.Get("c")
	assert.True(t, ok)
}

func TestCacheInvalidate(t *testing.T) {
	c := New(0, 0)
	c.Put("a", testDataset(t, "a"))
	c.Put("b", testDataset(t, "b"))

	c.Invalidate("a")
	_, ok := c.Get("a")
	assert.False(t, ok)
	_, ok = c.Get("b")
	assert.True(t, ok)

	c.InvalidateAll()
	assert.Equal(t, 0, c.Len())
}

func TestGetOrLoad(t *testing.T) {
	c := New(0, 0)
	ds := testDataset(t, "v")
	var calls int32

	load := func(context.Context) (*dataset.Dataset, error) {
		atomic.AddInt32(&calls, 1)
		return ds, nil
	}

	got, hit, err := c.GetOrLoad(context.Background(), "k", load)
	require.NoError(t, err)
	assert.False(t, hit)
	assert.Same(t, ds, got)

	got, hit, err = c.GetOrLoad(context.Background(), "k", load)
	require.NoError(t, err)
	assert.True(t, hit)
	assert.Same(t, ds, got)
	assert.Equal(t, int32(1), atomic.LoadInt32(&calls), "second call must not reload")
}

func TestGetOrLoadError(t *testing.T) {
	c := New(0, 0)
	sentinel := errors.New("load failed")

	_, _, err := c.GetOrLoad(context.Background(), "k", func(context.Context) (*dataset.Dataset, error) {
		return nil, sentinel
	})
	assert.ErrorIs(t, err, sentinel)
	assert.Equal(t, 0, c.Len(), "failed loads are not cached")
}

func TestGetOrLoadCollapsesConcurrentLoads(t *testing.T) {
	c := New(0, 0)
	ds := testDataset(t, "v")
	var calls int32
	release := make(chan struct{})

	load := func(context.Context) (*dataset.Dataset, error) {
		atomic.AddInt32(&calls, 1)
		<-release
		return ds, nil
	}

	var wg sync.WaitGroup
	for i := 0; i < 8; i++ {
		wg.Add(1)
		go func() {
			defer wg.Done()
			got, _, err := c.GetOrLoad(context.Background(), "k", load)
			assert.NoError(t, err)
			assert.Same(t, ds, got)
		}()
	}

	// Give the goroutines time to pile onto the flight, then release it.
	time.Sleep(50 * time.Millisecond)
	close(release)
	wg.Wait()

	assert.Equal(t, int32(1), atomic.LoadInt32(&calls), "concurrent callers share one load")
}
