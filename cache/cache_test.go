package cache

import (
	"errors"
	"sync"
	"sync/atomic"
	"testing"

	"github.com/prometheus/client_golang/prometheus"
	promtest "github.com/prometheus/client_golang/prometheus/testutil"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	pack "github.com/meigma/bale/core"
	"github.com/meigma/bale/internal/testutil"
	"github.com/meigma/bale/rid"
)

var (
	alpha   = rid.MustParse("app:lang/alpha", "")
	bravo   = rid.MustParse("app:lang/bravo", "")
	missing = rid.MustParse("app:lang/missing", "")
)

// newLeaf returns a leaf pack holding alpha and bravo in one chunk.
func newLeaf(t *testing.T, id string) (*pack.Pack, *testutil.MemChunks) {
	t.Helper()
	idx, err := pack.NewIndex(map[rid.ID]pack.Entry{
		alpha: {ChunkIndex: 0, Offset: 0, Size: 5},
		bravo: {ChunkIndex: 0, Offset: 5, Size: 5},
	})
	require.NoError(t, err)
	src := testutil.NewMemChunks([]byte("alphabravo"))
	return pack.NewLeaf(id, idx, src), src
}

func TestCacheLoad(t *testing.T) {
	t.Parallel()

	p, src := newLeaf(t, "base")
	c, err := New(0)
	require.NoError(t, err)

	for range 3 {
		res, err := c.Load(p, alpha)
		require.NoError(t, err)
		assert.Equal(t, "alpha", res.String())
	}
	assert.Equal(t, int64(1), src.Opens())
	assert.Equal(t, 1, c.Len())
	assert.InDelta(t, 2, promtest.ToFloat64(c.metrics.hits.WithLabelValues("base")), 0)
	assert.InDelta(t, 1, promtest.ToFloat64(c.metrics.misses.WithLabelValues("base")), 0)
}

func TestCacheKeysByPack(t *testing.T) {
	t.Parallel()

	a, srcA := newLeaf(t, "a")
	b, srcB := newLeaf(t, "b")
	c, err := New(0)
	require.NoError(t, err)

	_, err = c.Load(a, alpha)
	require.NoError(t, err)
	res, err := c.Load(b, alpha)
	require.NoError(t, err)
	assert.Equal(t, "b", res.PackID())
	assert.Equal(t, int64(1), srcA.Opens())
	assert.Equal(t, int64(1), srcB.Opens())
	assert.Equal(t, 2, c.Len())
}

func TestCacheNotFound(t *testing.T) {
	t.Parallel()

	tests := []struct {
		name      string
		negative  bool
		wantLen   int
		wantLoads int64
	}{
		{name: "positive only", negative: false, wantLen: 0, wantLoads: 3},
		{name: "negative", negative: true, wantLen: 1, wantLoads: 1},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			t.Parallel()

			p := &countingLoader{id: "empty", err: &pack.NotFoundError{ID: missing, Reason: "not indexed"}}
			c, err := New(0, WithNegative(tt.negative))
			require.NoError(t, err)

			for range 3 {
				_, err := c.Load(p, missing)
				require.ErrorIs(t, err, pack.ErrNotFound)
			}
			assert.Equal(t, tt.wantLen, c.Len())
			assert.Equal(t, tt.wantLoads, p.calls.Load())
		})
	}
}

func TestCacheDoesNotRememberLoadErrors(t *testing.T) {
	t.Parallel()

	p, src := newLeaf(t, "flaky")
	src.Err = errors.New("disk on fire")
	c, err := New(0, WithNegative(true))
	require.NoError(t, err)

	_, err = c.Load(p, alpha)
	var le *pack.LoadError
	require.ErrorAs(t, err, &le)
	assert.Equal(t, 0, c.Len())

	src.Err = nil
	res, err := c.Load(p, alpha)
	require.NoError(t, err)
	assert.Equal(t, "alpha", res.String())
}

func TestCacheComposite(t *testing.T) {
	t.Parallel()

	base, baseSrc := newLeaf(t, "base")
	empty, err := pack.NewIndex(nil)
	require.NoError(t, err)
	overlay := pack.NewLeaf("overlay", empty, testutil.NewMemChunks())
	stack := pack.NewComposite("stack", []*pack.Pack{overlay, base})

	c, err := New(0, WithNegative(true))
	require.NoError(t, err)

	for range 2 {
		res, err := c.Load(stack, bravo)
		require.NoError(t, err)
		assert.Equal(t, "bravo", res.String())
		assert.Equal(t, "base", res.PackID())

		_, err = c.Load(stack, missing)
		var agg *pack.AggregateError
		require.ErrorAs(t, err, &agg)
		assert.True(t, agg.NotFound())
	}
	assert.Equal(t, int64(1), baseSrc.Opens())
	assert.InDelta(t, 1, promtest.ToFloat64(c.metrics.negatives.WithLabelValues("stack")), 0)
}

func TestCacheEviction(t *testing.T) {
	t.Parallel()

	p, src := newLeaf(t, "base")
	c, err := New(1)
	require.NoError(t, err)

	_, err = c.Load(p, alpha)
	require.NoError(t, err)
	_, err = c.Load(p, bravo)
	require.NoError(t, err)
	_, err = c.Load(p, alpha)
	require.NoError(t, err)

	assert.Equal(t, 1, c.Len())
	assert.Equal(t, int64(3), src.Opens())
	assert.InDelta(t, 2, promtest.ToFloat64(c.metrics.evictions), 0)
}

func TestCacheInvalidate(t *testing.T) {
	t.Parallel()

	a, srcA := newLeaf(t, "a")
	b, _ := newLeaf(t, "b")
	c, err := New(0)
	require.NoError(t, err)

	for _, p := range []*pack.Pack{a, b} {
		for _, id := range []rid.ID{alpha, bravo} {
			_, err := c.Load(p, id)
			require.NoError(t, err)
		}
	}
	require.Equal(t, 4, c.Len())

	assert.True(t, c.Invalidate("a", alpha))
	assert.False(t, c.Invalidate("a", alpha))
	assert.Equal(t, 3, c.Len())

	_, err = c.Load(a, alpha)
	require.NoError(t, err)
	assert.Equal(t, int64(3), srcA.Opens())

	assert.Equal(t, 2, c.InvalidatePack("b"))
	assert.Equal(t, 2, c.Len())

	c.Purge()
	assert.Equal(t, 0, c.Len())
}

func TestCacheSharesConcurrentLoads(t *testing.T) {
	t.Parallel()

	release := make(chan struct{})
	p := &countingLoader{id: "slow", block: release, started: make(chan struct{})}
	c, err := New(0)
	require.NoError(t, err)

	const n = 8
	var wg sync.WaitGroup
	results := make([]*pack.RawResource, n)
	for i := range n {
		wg.Add(1)
		go func() {
			defer wg.Done()
			res, err := c.Load(p, alpha)
			assert.NoError(t, err)
			results[i] = res
		}()
	}
	// Wait for the first load to start before letting it finish.
	<-p.started
	close(release)
	wg.Wait()

	assert.LessOrEqual(t, p.calls.Load(), int64(n))
	for _, res := range results {
		require.NotNil(t, res)
		assert.Equal(t, "alpha", res.String())
	}
	assert.Equal(t, 1, c.Len())
}

func TestCacheInvalidateDuringLoad(t *testing.T) {
	t.Parallel()

	invalidations := map[string]func(c *Cache){
		"invalidate":      func(c *Cache) { c.Invalidate("slow", alpha) },
		"invalidate pack": func(c *Cache) { c.InvalidatePack("slow") },
		"purge":           func(c *Cache) { c.Purge() },
	}
	for name, invalidate := range invalidations {
		t.Run(name, func(t *testing.T) {
			t.Parallel()

			release := make(chan struct{})
			p := &countingLoader{id: "slow", block: release, started: make(chan struct{})}
			c, err := New(0)
			require.NoError(t, err)

			done := make(chan *pack.RawResource)
			go func() {
				res, err := c.Load(p, alpha)
				assert.NoError(t, err)
				done <- res
			}()
			<-p.started
			invalidate(c)
			close(release)

			res := <-done
			require.NotNil(t, res)
			assert.Equal(t, "alpha", res.String())
			assert.Equal(t, 0, c.Len(), "stale result stored after invalidation")

			_, err = c.Load(p, alpha)
			require.NoError(t, err)
			assert.Equal(t, int64(2), p.calls.Load())
			assert.Equal(t, 1, c.Len())
		})
	}
}

func TestNewErrors(t *testing.T) {
	t.Parallel()

	_, err := New(-1)
	require.Error(t, err)

	reg := prometheus.NewRegistry()
	_, err = New(0, WithRegisterer(reg))
	require.NoError(t, err)
	_, err = New(0, WithRegisterer(reg))
	require.Error(t, err)
}

func TestKeyString(t *testing.T) {
	t.Parallel()

	assert.Equal(t, "base/app:lang/alpha", Key{PackID: "base", ID: alpha}.String())
}

// countingLoader serves alpha from a fixed resource, or fails with err.
type countingLoader struct {
	id    string
	err   error
	block chan struct{}

	once    sync.Once
	started chan struct{}
	calls   atomic.Int64
}

func (l *countingLoader) ID() string { return l.id }

func (l *countingLoader) LoadResource(id rid.ID) (*pack.RawResource, error) {
	l.calls.Add(1)
	if l.block != nil {
		l.once.Do(func() { close(l.started) })
		<-l.block
	}
	if l.err != nil {
		return nil, l.err
	}
	idx, err := pack.NewIndex(map[rid.ID]pack.Entry{id: {Size: 5}})
	if err != nil {
		return nil, err
	}
	return pack.NewLeaf(l.id, idx, testutil.NewMemChunks([]byte("alpha"))).LoadResource(id)
}
