package skyline

import (
	"encoding/binary"
	"fmt"
	"slices"
	"sync"

	"github.com/golang/snappy"
	"golang.org/x/crypto/blake2b"
)

// RenderCacheConfig configures the render result cache.
type RenderCacheConfig struct {
	// MaxEntries bounds the cache size. Default: 256.
	MaxEntries int
}

// RenderCache memoises finished render results keyed by the full request
// (program, context, options). Entries are stored snappy-compressed; the PNG
// and V2 bytes both compress well because of their long literal runs. The
// cache is safe for concurrent use.
type RenderCache struct {
	mu         sync.Mutex
	maxEntries int
	entries    map[string]*renderCacheEntry
	order      []string
	hits       uint64
	misses     uint64
}

type renderCacheEntry struct {
	png      []byte // snappy-compressed
	graphDef []byte // snappy-compressed V2 JSON
}

// NewRenderCache creates a render cache.
func NewRenderCache(cfg RenderCacheConfig) *RenderCache {
	if cfg.MaxEntries <= 0 {
		cfg.MaxEntries = 256
	}
	return &RenderCache{
		maxEntries: cfg.MaxEntries,
		entries:    make(map[string]*renderCacheEntry),
	}
}

// RequestKey digests a full render request into a fixed-size cache key. The
// digest doubles as an etag for the HTTP viewer.
func RequestKey(program string, ctx EvalContext, opts Options) string {
	h, _ := blake2b.New256(nil)
	var nums [8 * 3]byte
	binary.BigEndian.PutUint64(nums[0:], uint64(ctx.Start))
	binary.BigEndian.PutUint64(nums[8:], uint64(ctx.End))
	binary.BigEndian.PutUint64(nums[16:], uint64(ctx.Step))
	h.Write(nums[:])
	h.Write([]byte(ctx.Timezone))
	h.Write([]byte{0})
	h.Write([]byte(program))
	h.Write([]byte{0})
	fmt.Fprintf(h, "%dx%d|%s|%s|%s|%v|%v|%q|%v",
		opts.Width, opts.Height, opts.Theme, opts.Layout, opts.Palette,
		opts.NoLegend, opts.OnlyGraph, opts.Title, opts.KeepEmptyStackSeries)
	return fmt.Sprintf("%x", h.Sum(nil))
}

// Get returns the cached result for key, decompressing on the way out.
func (c *RenderCache) Get(key string) (*RenderResult, bool) {
	c.mu.Lock()
	defer c.mu.Unlock()

	e, ok := c.entries[key]
	if !ok {
		c.misses++
		return nil, false
	}
	c.hits++
	c.touch(key)

	pngBytes, err := snappy.Decode(nil, e.png)
	if err != nil {
		delete(c.entries, key)
		return nil, false
	}
	gdefBytes, err := snappy.Decode(nil, e.graphDef)
	if err != nil {
		delete(c.entries, key)
		return nil, false
	}
	gdef, err := DecodeGraphDef(gdefBytes)
	if err != nil {
		delete(c.entries, key)
		return nil, false
	}
	return &RenderResult{PNG: pngBytes, GraphDef: gdef}, true
}

// Put stores a result under key, evicting the least recently used entries
// when full.
func (c *RenderCache) Put(key string, res *RenderResult) error {
	gdefBytes, err := EncodeGraphDef(res.GraphDef)
	if err != nil {
		return err
	}
	entry := &renderCacheEntry{
		png:      snappy.Encode(nil, res.PNG),
		graphDef: snappy.Encode(nil, gdefBytes),
	}

	c.mu.Lock()
	defer c.mu.Unlock()

	if _, ok := c.entries[key]; ok {
		c.entries[key] = entry
		c.touch(key)
		return nil
	}
	for len(c.entries) >= c.maxEntries && len(c.order) > 0 {
		oldest := c.order[0]
		c.order = c.order[1:]
		delete(c.entries, oldest)
	}
	c.entries[key] = entry
	c.order = append(c.order, key)
	return nil
}

// Stats returns the hit and miss counters.
func (c *RenderCache) Stats() (hits, misses uint64) {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.hits, c.misses
}

// touch marks key as the most recently used entry.
func (c *RenderCache) touch(key string) {
	if i := slices.Index(c.order, key); i >= 0 {
		c.order = append(slices.Delete(c.order, i, i+1), key)
	}
}
