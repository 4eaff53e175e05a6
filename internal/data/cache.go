package data

import (
	"crypto/sha256"
	"encoding/hex"
	"fmt"
	"sync"
	"time"

	"prosumer-sim/internal/config"
)

// cacheEntry represents a cached dataset
type cacheEntry struct {
	dataset   *Dataset
	expiresAt time.Time
}

// Cache keeps parsed datasets in memory so repeated API runs over the same
// files skip CSV parsing. Cached datasets are shared and must not be mutated.
// A nil *Cache is valid and never hits.
type Cache struct {
	mu    sync.RWMutex
	store map[string]*cacheEntry
	ttl   time.Duration
	now   func() time.Time
}

func NewCache(ttl time.Duration) *Cache {
	if ttl <= 0 {
		ttl = time.Hour
	}
	return &Cache{
		store: make(map[string]*cacheEntry),
		ttl:   ttl,
		now:   time.Now,
	}
}

// Get retrieves a cached dataset if available and not expired
func (c *Cache) Get(key string) (*Dataset, bool) {
	if c == nil {
		return nil, false
	}

	c.mu.RLock()
	defer c.mu.RUnlock()

	entry, ok := c.store[key]
	if !ok || c.now().After(entry.expiresAt) {
		return nil, false
	}
	return entry.dataset, true
}

// Set stores a dataset and drops expired entries.
func (c *Cache) Set(key string, ds *Dataset) {
	if c == nil {
		return
	}

	c.mu.Lock()
	defer c.mu.Unlock()

	now := c.now()
	c.prune(now)
	c.store[key] = &cacheEntry{dataset: ds, expiresAt: now.Add(c.ttl)}
}

// Prune drops expired entries and returns how many were removed.
func (c *Cache) Prune() int {
	if c == nil {
		return 0
	}
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.prune(c.now())
}

func (c *Cache) prune(now time.Time) int {
	n := 0
	for k, e := range c.store {
		if now.After(e.expiresAt) {
			delete(c.store, k)
			n++
		}
	}
	return n
}

func (c *Cache) Len() int {
	if c == nil {
		return 0
	}
	c.mu.RLock()
	defer c.mu.RUnlock()
	return len(c.store)
}

// Load returns the cached dataset for cfg and from, reading the files on a miss.
func (c *Cache) Load(cfg config.DataConfig, from time.Time) (*Dataset, error) {
	key := CacheKey(cfg, from)
	if ds, ok := c.Get(key); ok {
		return ds, nil
	}
	ds, err := LoadDataset(cfg, from)
	if err != nil {
		return nil, err
	}
	c.Set(key, ds)
	return ds, nil
}

// CacheKey creates a cache key from the data files and the slice start.
func CacheKey(cfg config.DataConfig, from time.Time) string {
	keyStr := fmt.Sprintf("%s|%s|%s|%s|%s|%g|%s",
		cfg.DayAheadPath,
		cfg.IntradayAuctionPath,
		cfg.IntradayContinuousPath,
		cfg.LoadPath,
		cfg.PVPath,
		cfg.PVScale,
		from.UTC().Format(time.RFC3339),
	)
	hash := sha256.Sum256([]byte(keyStr))
	return hex.EncodeToString(hash[:])
}
