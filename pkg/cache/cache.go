// Package cache is the process-wide result cache keyed by value-derived
// query keys. Mutation sites invalidate whole key families (a shared key
// prefix) rather than individual entries, since any contract mutation can
// change every page and every bounds result.
package cache

import (
	"context"
	"encoding/json"
	"strings"
	"sync"
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
	"github.com/redis/go-redis/v9"
)

var (
	cacheHits = promauto.NewCounter(prometheus.CounterOpts{
		Name: "voltdesk_cache_hits_total",
		Help: "The total number of query results served from cache",
	})
	cacheMisses = promauto.NewCounter(prometheus.CounterOpts{
		Name: "voltdesk_cache_misses_total",
		Help: "The total number of query cache misses",
	})
	cacheInvalidations = promauto.NewCounter(prometheus.CounterOpts{
		Name: "voltdesk_cache_invalidations_total",
		Help: "The total number of key-family invalidations",
	})
)

type entry struct {
	expires time.Time
	data    []byte
}

// Cache is a TTL map of serialized responses with an optional Redis second
// level shared between client instances. Entries are stored as JSON in both
// layers so a value round-trips identically wherever it was cached.
type Cache struct {
	mu      sync.Mutex
	ttl     time.Duration
	entries map[string]entry
	rdb     *redis.Client
}

func New(ttl time.Duration) *Cache {
	if ttl <= 0 {
		ttl = 5 * time.Minute
	}
	return &Cache{ttl: ttl, entries: make(map[string]entry)}
}

// WithRedis attaches a shared second level.
func (c *Cache) WithRedis(addr, password string, db int) *Cache {
	c.rdb = redis.NewClient(&redis.Options{Addr: addr, Password: password, DB: db})
	return c
}

// Get loads the cached value for key into out. A miss (or expired entry)
// returns false with out untouched.
func (c *Cache) Get(ctx context.Context, key string, out any) bool {
	c.mu.Lock()
	e, ok := c.entries[key]
	if ok && time.Now().After(e.expires) {
		delete(c.entries, key)
		ok = false
	}
	c.mu.Unlock()

	if !ok && c.rdb != nil {
		data, err := c.rdb.Get(ctx, key).Bytes()
		if err == nil {
			e = entry{expires: time.Now().Add(c.ttl), data: data}
			c.mu.Lock()
			c.entries[key] = e
			c.mu.Unlock()
			ok = true
		}
	}
	if !ok {
		cacheMisses.Inc()
		return false
	}
	if err := json.Unmarshal(e.data, out); err != nil {
		return false
	}
	cacheHits.Inc()
	return true
}

func (c *Cache) Set(ctx context.Context, key string, value any) {
	data, err := json.Marshal(value)
	if err != nil {
		return
	}
	c.mu.Lock()
	c.entries[key] = entry{expires: time.Now().Add(c.ttl), data: data}
	c.mu.Unlock()
	if c.rdb != nil {
		c.rdb.Set(ctx, key, data, c.ttl)
	}
}

// InvalidateFamily drops every entry whose key starts with prefix, locally
// and in the shared level.
func (c *Cache) InvalidateFamily(ctx context.Context, prefix string) {
	cacheInvalidations.Inc()
	c.mu.Lock()
	for key := range c.entries {
		if strings.HasPrefix(key, prefix) {
			delete(c.entries, key)
		}
	}
	c.mu.Unlock()
	if c.rdb != nil {
		iter := c.rdb.Scan(ctx, 0, prefix+"*", 0).Iterator()
		for iter.Next(ctx) {
			c.rdb.Del(ctx, iter.Val())
		}
	}
}

func (c *Cache) Close() {
	if c.rdb != nil {
		c.rdb.Close()
	}
}
