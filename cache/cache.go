// Package cache provides a caller-owned result cache for pack lookups.
//
// Packs perform real I/O on every LoadResource call. A Cache sits in front
// of one or more packs and remembers loaded resources, keyed by pack id and
// resource id. Not-found results can be remembered too, so repeated misses
// against a composite pack do not walk every component again.
//
// Only successful loads and not-found failures are cached. I/O and format
// failures always reach the pack, so a transient problem is retried on the
// next call.
package cache

import (
	"errors"
	"fmt"
	"log/slog"
	"strconv"
	"sync"

	lru "github.com/hashicorp/golang-lru/v2"
	"github.com/prometheus/client_golang/prometheus"
	"golang.org/x/sync/singleflight"

	pack "github.com/meigma/bale/core"
	"github.com/meigma/bale/rid"
)

// DefaultSize is the number of entries a cache holds when New is given zero.
const DefaultSize = 1024

// Key identifies one cached result.
type Key struct {
	PackID string
	ID     rid.ID
}

// String returns the key in "pack/domain:category/identifier" form.
func (k Key) String() string {
	return k.PackID + "/" + k.ID.String()
}

// Loader is the part of a pack the cache needs. *pack.Pack implements it.
type Loader interface {
	ID() string
	LoadResource(id rid.ID) (*pack.RawResource, error)
}

// entry is a cached result: either a resource or a not-found error.
type entry struct {
	res *pack.RawResource
	err error
}

// Cache remembers pack load results. It is safe for concurrent use.
type Cache struct {
	entries  *lru.Cache[Key, entry]
	group    singleflight.Group
	negative bool
	metrics  *metrics
	reg      prometheus.Registerer
	logger   *slog.Logger

	mu  sync.Mutex // orders invalidations against stores
	gen uint64     // invalidation count
}

// Option configures a Cache.
type Option func(*Cache)

// WithNegative enables caching of not-found results.
func WithNegative(enabled bool) Option {
	return func(c *Cache) {
		c.negative = enabled
	}
}

// WithRegisterer registers the cache metrics with r.
func WithRegisterer(r prometheus.Registerer) Option {
	return func(c *Cache) {
		c.reg = r
	}
}

// WithLogger sets the logger for cache events.
func WithLogger(logger *slog.Logger) Option {
	return func(c *Cache) {
		c.logger = logger
	}
}

func (c *Cache) log() *slog.Logger {
	if c.logger == nil {
		return slog.New(slog.DiscardHandler)
	}
	return c.logger
}

// New creates a cache holding at most size entries. Zero selects DefaultSize.
func New(size int, opts ...Option) (*Cache, error) {
	if size < 0 {
		return nil, fmt.Errorf("cache size must be >= 0, got %d", size)
	}
	if size == 0 {
		size = DefaultSize
	}
	c := &Cache{metrics: newMetrics()}
	for _, opt := range opts {
		opt(c)
	}
	if c.reg != nil {
		if err := c.metrics.register(c.reg); err != nil {
			return nil, fmt.Errorf("register cache metrics: %w", err)
		}
	}

	entries, err := lru.New[Key, entry](size)
	if err != nil {
		return nil, err
	}
	c.entries = entries
	return c, nil
}

// Load returns resource id from p, consulting the cache first.
//
// Concurrent loads of the same key share one call to p.LoadResource. The
// returned resource is shared between callers and must not be modified. A
// load that is running when Invalidate, InvalidatePack or Purge is called
// still returns its result but does not store it, and later loads do not
// join it.
func (c *Cache) Load(p Loader, id rid.ID) (*pack.RawResource, error) {
	key := Key{PackID: p.ID(), ID: id}
	if e, ok := c.entries.Get(key); ok {
		if e.err != nil {
			c.metrics.negatives.WithLabelValues(key.PackID).Inc()
			return nil, e.err
		}
		c.metrics.hits.WithLabelValues(key.PackID).Inc()
		return e.res, nil
	}
	c.metrics.misses.WithLabelValues(key.PackID).Inc()

	gen := c.generation()
	flight := strconv.FormatUint(gen, 10) + "\x00" + key.PackID + "\x00" + id.String()
	v, err, _ := c.group.Do(flight, func() (any, error) {
		res, err := p.LoadResource(id)
		switch {
		case err == nil:
			c.add(gen, key, entry{res: res})
		case c.negative && errors.Is(err, pack.ErrNotFound):
			c.add(gen, key, entry{err: err})
		}
		return res, err
	})
	if err != nil {
		return nil, err
	}
	return v.(*pack.RawResource), nil //nolint:forcetypeassert // the group only stores resources
}

func (c *Cache) generation() uint64 {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.gen
}

// add stores e unless the cache was invalidated since generation gen.
func (c *Cache) add(gen uint64, key Key, e entry) {
	c.mu.Lock()
	defer c.mu.Unlock()
	if gen != c.gen {
		c.log().Debug("cache store skipped after invalidation", "key", key.String())
		return
	}
	if c.entries.Add(key, e) {
		c.metrics.evictions.Inc()
		c.log().Debug("cache entry evicted", "size", c.entries.Len())
	}
}

// Invalidate drops the cached result for (packID, id). It reports whether an
// entry was present.
func (c *Cache) Invalidate(packID string, id rid.ID) bool {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.gen++
	return c.entries.Remove(Key{PackID: packID, ID: id})
}

// InvalidatePack drops every cached result of packID and returns how many
// entries were removed.
func (c *Cache) InvalidatePack(packID string) int {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.gen++
	n := 0
	for _, k := range c.entries.Keys() {
		if k.PackID == packID && c.entries.Remove(k) {
			n++
		}
	}
	return n
}

// Purge drops every cached result.
func (c *Cache) Purge() {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.gen++
	c.entries.Purge()
}

// Len returns the number of cached results.
func (c *Cache) Len() int {
	return c.entries.Len()
}
