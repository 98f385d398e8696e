package data

import (
	"sync"
	"time"

	"github.com/google/uuid"

	"gas-valuation/internal/valuation"
)

// CacheEntry is a stored valuation result.
type CacheEntry struct {
	Result    *valuation.Result
	CreatedAt time.Time
	ExpiresAt time.Time
}

// ResultCache keeps valuation results in memory under a random ID so the
// ledger can be fetched after the run. A nil cache stores nothing.
type ResultCache struct {
	mu    sync.RWMutex
	store map[string]*CacheEntry
	ttl   time.Duration
	now   func() time.Time
	stop  chan struct{}
	once  sync.Once
}

// NewResultCache returns a cache whose entries live for ttl (default 1h)
// and starts the background cleanup. Call Close to stop it.
func NewResultCache(ttl time.Duration) *ResultCache {
	if ttl <= 0 {
		ttl = time.Hour
	}
	c := &ResultCache{
		store: make(map[string]*CacheEntry),
		ttl:   ttl,
		now:   time.Now,
		stop:  make(chan struct{}),
	}
	go c.cleanup(5 * time.Minute)
	return c
}

// Put stores res and returns its ID.
func (c *ResultCache) Put(res *valuation.Result) string {
	id := uuid.NewString()
	if c == nil {
		return id
	}

	c.mu.Lock()
	defer c.mu.Unlock()

	now := c.now()
	c.store[id] = &CacheEntry{Result: res, CreatedAt: now, ExpiresAt: now.Add(c.ttl)}
	return id
}

// Get retrieves a result if available and not expired
func (c *ResultCache) Get(id string) (*valuation.Result, bool) {
	if c == nil {
		return nil, false
	}
	if _, err := uuid.Parse(id); err != nil {
		return nil, false
	}

	c.mu.RLock()
	defer c.mu.RUnlock()

	entry, exists := c.store[id]
	if !exists || c.now().After(entry.ExpiresAt) {
		return nil, false
	}
	return entry.Result, true
}

// Len counts stored entries, expired ones included until the next sweep.
func (c *ResultCache) Len() int {
	if c == nil {
		return 0
	}
	c.mu.RLock()
	defer c.mu.RUnlock()
	return len(c.store)
}

// Clear removes all entries from the cache
func (c *ResultCache) Clear() {
	if c == nil {
		return
	}

	c.mu.Lock()
	defer c.mu.Unlock()

	c.store = make(map[string]*CacheEntry)
}

func (c *ResultCache) Close() {
	if c == nil {
		return
	}
	c.once.Do(func() { close(c.stop) })
}

// sweep removes expired entries
func (c *ResultCache) sweep() {
	c.mu.Lock()
	defer c.mu.Unlock()

	now := c.now()
	for id, entry := range c.store {
		if now.After(entry.ExpiresAt) {
			delete(c.store, id)
		}
	}
}

func (c *ResultCache) cleanup(every time.Duration) {
	ticker := time.NewTicker(every)
	defer ticker.Stop()

	for {
		select {
		case <-ticker.C:
			c.sweep()
		case <-c.stop:
			return
		}
	}
}
