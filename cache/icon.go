package cache

import (
	"errors"
	"fmt"
	"hash/fnv"
	"image"
	"os"
	"sync"
)

// Icon shard configuration.
const (
	// iconShardCount is the number of shards for reduced lock contention.
	// Must be a power of 2 for fast modulo via bitwise AND.
	iconShardCount = 16

	// iconShardMask is used for fast shard selection.
	iconShardMask = iconShardCount - 1
)

// IconState is the load state of a cached icon.
type IconState uint8

const (
	// IconLoading means the load is in flight; Image is nil.
	IconLoading IconState = iota

	// IconReady means the image decoded successfully.
	IconReady

	// IconError means the load failed; Err holds the cause.
	IconError
)

// Icon is a snapshot of one cache entry. It is a copy; mutating it has
// no effect on the cache.
type Icon struct {
	State IconState
	Image image.Image
	Err   error
}

// Loader fetches and decodes an icon source. Loaders run on their own
// goroutine and must be safe for concurrent use.
type Loader func(src string) (image.Image, error)

// ErrNoLoader is returned for every load when the cache was created
// without a loader.
var ErrNoLoader = errors.New("cache: no icon loader configured")

// FileLoader decodes an icon from the local filesystem. Callers register
// the formats they need (image/png, image/jpeg) via blank imports.
func FileLoader(src string) (image.Image, error) {
	f, err := os.Open(src)
	if err != nil {
		return nil, fmt.Errorf("open icon %q: %w", src, err)
	}
	defer f.Close()

	img, _, err := image.Decode(f)
	if err != nil {
		return nil, fmt.Errorf("decode icon %q: %w", src, err)
	}
	return img, nil
}

// IconCache is a sharded cache of decoded symbol icons keyed by source
// string. Loads are asynchronous; completion callbacks let renderers
// request a re-render once an icon is available.
//
// IconCache is safe for concurrent use. It is owned by the view (or a
// test) and passed by handle; there is no package-level singleton.
type IconCache struct {
	shards [iconShardCount]iconShard
	loader Loader
}

// iconShard is a single shard with its own mutex.
type iconShard struct {
	mu      sync.Mutex
	entries map[string]*iconEntry
}

// iconEntry is the mutable cache record behind Icon snapshots.
type iconEntry struct {
	state   IconState
	img     image.Image
	err     error
	used    bool
	waiters []func()
}

// NewIconCache creates an icon cache using the given loader.
// A nil loader fails every load with ErrNoLoader, which keeps image
// symbols inert in environments without icon access.
func NewIconCache(loader Loader) *IconCache {
	c := &IconCache{loader: loader}
	for i := range c.shards {
		c.shards[i].entries = make(map[string]*iconEntry)
	}
	return c
}

// shardFor selects the shard for a source key via FNV-1a.
func (c *IconCache) shardFor(src string) *iconShard {
	h := fnv.New64a()
	_, _ = h.Write([]byte(src)) // fnv.Write never returns an error
	return &c.shards[h.Sum64()&iconShardMask]
}

// GetOrLoad returns the current state of the icon for src, starting an
// asynchronous load on first use. While the load is in flight the
// returned snapshot has state IconLoading and onReady (if non-nil) is
// queued; it fires exactly once, on the loader goroutine, when the load
// settles. A call that finds the icon already settled never invokes
// onReady.
func (c *IconCache) GetOrLoad(src string, onReady func()) Icon {
	s := c.shardFor(src)
	s.mu.Lock()

	if e, ok := s.entries[src]; ok {
		e.used = true
		if e.state == IconLoading && onReady != nil {
			e.waiters = append(e.waiters, onReady)
		}
		snap := Icon{State: e.state, Image: e.img, Err: e.err}
		s.mu.Unlock()
		return snap
	}

	e := &iconEntry{state: IconLoading, used: true}
	if onReady != nil {
		e.waiters = append(e.waiters, onReady)
	}
	s.entries[src] = e
	s.mu.Unlock()

	go c.load(s, src, e)
	return Icon{State: IconLoading}
}

// Get returns the icon snapshot for src without triggering a load.
func (c *IconCache) Get(src string) (Icon, bool) {
	s := c.shardFor(src)
	s.mu.Lock()
	defer s.mu.Unlock()

	e, ok := s.entries[src]
	if !ok {
		return Icon{}, false
	}
	e.used = true
	return Icon{State: e.state, Image: e.img, Err: e.err}, true
}

// load runs the loader and settles the entry.
func (c *IconCache) load(s *iconShard, src string, e *iconEntry) {
	var img image.Image
	err := ErrNoLoader
	if c.loader != nil {
		img, err = c.loader(src)
	}

	s.mu.Lock()
	if err != nil {
		e.state = IconError
		e.err = err
	} else {
		e.state = IconReady
		e.img = img
	}
	waiters := e.waiters
	e.waiters = nil
	s.mu.Unlock()

	for _, fn := range waiters {
		fn()
	}
}

// Expire removes icons that have not been touched since the previous
// sweep. An icon survives its first sweep after any access and is
// dropped by the second, so entries referenced every frame are never
// evicted. In-flight loads are never dropped. Intended to run as a
// post-render task.
func (c *IconCache) Expire() {
	for i := range c.shards {
		s := &c.shards[i]
		s.mu.Lock()
		for src, e := range s.entries {
			if e.state == IconLoading {
				continue
			}
			if !e.used {
				delete(s.entries, src)
				continue
			}
			e.used = false
		}
		s.mu.Unlock()
	}
}

// Len returns the number of cached entries across all shards.
func (c *IconCache) Len() int {
	n := 0
	for i := range c.shards {
		s := &c.shards[i]
		s.mu.Lock()
		n += len(s.entries)
		s.mu.Unlock()
	}
	return n
}
