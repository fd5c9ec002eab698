package field

import (
	"io"
	"log/slog"
	"math"
)

// GradientCache memoizes gradient samples keyed by coordinates rounded to
// a fixed quantum. When full it is cleared entirely rather than evicting
// individual entries.
//
// A cache belongs to one scalar field and one caller; it is not safe for
// concurrent use.
type GradientCache struct {
	f        ScalarFunc
	h        float64
	quantum  float64
	capacity int
	entries  map[[2]int64]Vec2
	hits     int
	misses   int
	clears   int
	logger   *slog.Logger
}

// CacheOption configures a GradientCache.
type CacheOption func(*GradientCache)

// WithQuantum sets the coordinate rounding step. Default 1e-3.
func WithQuantum(q float64) CacheOption {
	return func(c *GradientCache) {
		if q > 0 {
			c.quantum = q
		}
	}
}

// WithCapacity sets the entry limit. Default 10000.
func WithCapacity(n int) CacheOption {
	return func(c *GradientCache) {
		if n > 0 {
			c.capacity = n
		}
	}
}

// WithCacheLogger sets the logger that records clears.
func WithCacheLogger(l *slog.Logger) CacheOption {
	return func(c *GradientCache) {
		if l != nil {
			c.logger = l
		}
	}
}

// NewGradientCache returns an empty cache for ∇f with difference step h.
func NewGradientCache(f ScalarFunc, h float64, opts ...CacheOption) *GradientCache {
	c := &GradientCache{
		f:        f,
		h:        h,
		quantum:  1e-3,
		capacity: 10000,
		logger:   slog.New(slog.NewTextHandler(io.Discard, nil)),
	}
	for _, opt := range opts {
		opt(c)
	}
	c.entries = make(map[[2]int64]Vec2, c.capacity)
	return c
}

// maxCell bounds quantized coordinates well inside the int64 range.
const maxCell = 1 << 62

// Gradient returns the cached gradient at the quantized (x, y), computing
// it on a miss. Non-finite coordinates, and coordinates whose cell index
// does not fit a key, bypass the cache.
func (c *GradientCache) Gradient(x, y float64) Vec2 {
	qx, qy := math.Round(x/c.quantum), math.Round(y/c.quantum)
	if !Finite(qx) || !Finite(qy) || math.Abs(qx) > maxCell || math.Abs(qy) > maxCell {
		return Gradient(c.f, x, y, c.h)
	}
	key := [2]int64{int64(qx), int64(qy)}
	if g, ok := c.entries[key]; ok {
		c.hits++
		return g
	}
	c.misses++
	if len(c.entries) >= c.capacity {
		c.logger.Debug("gradient cache cleared", "entries", len(c.entries), "hits", c.hits, "misses", c.misses)
		clear(c.entries)
		c.clears++
	}
	g := Gradient(c.f, float64(key[0])*c.quantum, float64(key[1])*c.quantum, c.h)
	c.entries[key] = g
	return g
}

// CacheStats reports cache usage.
type CacheStats struct {
	Entries int `json:"entries"`
	Hits    int `json:"hits"`
	Misses  int `json:"misses"`
	Clears  int `json:"clears"`
}

// Stats returns the current counters.
func (c *GradientCache) Stats() CacheStats {
	return CacheStats{Entries: len(c.entries), Hits: c.hits, Misses: c.misses, Clears: c.clears}
}

// Reset empties the cache and zeroes the counters.
func (c *GradientCache) Reset() {
	clear(c.entries)
	c.hits, c.misses, c.clears = 0, 0, 0
}
