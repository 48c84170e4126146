// Package cache memoizes (module, entity) results so repeated
// investigations do not redo network work. Keys are content-addressed and
// independent of run identity; eviction is TTL-only, since runs are bounded
// by depth rather than cache pressure.
package cache

import (
	"crypto/sha256"
	"encoding/hex"
	"sync"
	"time"

	"github.com/AzouC/Outils-Osintt/internal/core/domain"
)

// Store is the cache interface consumed by the scheduler.
type Store interface {
	// Get returns a copy of the cached result for (moduleID, entity), or
	// false on miss or expiry.
	Get(moduleID string, entity domain.Entity) (*domain.ModuleResult, bool)

	// Put stores a result. ttl == 0 means the entry never expires. The
	// entry is immutable once written; a refresh replaces it.
	Put(moduleID string, entity domain.Entity, result *domain.ModuleResult, ttl time.Duration)

	// Invalidate removes an entry explicitly.
	Invalidate(moduleID string, entity domain.Entity)

	// Close releases store resources.
	Close() error
}

// Key content-addresses a cache slot: hash of module and normalized entity
// identity, depth excluded.
func Key(moduleID string, entity domain.Entity) string {
	h := sha256.New()
	h.Write([]byte(moduleID))
	h.Write([]byte{0})
	h.Write([]byte(entity.Identity()))
	return hex.EncodeToString(h.Sum(nil))
}

// entry is one cached result with its expiry.
type entry struct {
	result    *domain.ModuleResult
	expiresAt time.Time
}

func (e *entry) expired(now time.Time) bool {
	return !e.expiresAt.IsZero() && now.After(e.expiresAt)
}

// MemoryStore is the in-process cache. Lookups hand out clones so stored
// results stay immutable under concurrent readers.
type MemoryStore struct {
	mu    sync.RWMutex
	items map[string]*entry
}

// NewMemoryStore creates an empty in-memory cache.
func NewMemoryStore() *MemoryStore {
	return &MemoryStore{
		items: make(map[string]*entry),
	}
}

// Get retrieves a value from the cache.
func (c *MemoryStore) Get(moduleID string, entity domain.Entity) (*domain.ModuleResult, bool) {
	key := Key(moduleID, entity)

	c.mu.RLock()
	e, exists := c.items[key]
	c.mu.RUnlock()

	if !exists {
		return nil, false
	}
	if e.expired(time.Now()) {
		c.mu.Lock()
		// re-check under the write lock; a Put may have replaced it
		if cur, ok := c.items[key]; ok && cur.expired(time.Now()) {
			delete(c.items, key)
		}
		c.mu.Unlock()
		return nil, false
	}

	return e.result.Clone(), true
}

// Put stores a value. An existing entry for the key is replaced, never
// mutated in place.
func (c *MemoryStore) Put(moduleID string, entity domain.Entity, result *domain.ModuleResult, ttl time.Duration) {
	var expiresAt time.Time
	if ttl > 0 {
		expiresAt = time.Now().Add(ttl)
	}

	c.mu.Lock()
	defer c.mu.Unlock()
	c.items[Key(moduleID, entity)] = &entry{
		result:    result.Clone(),
		expiresAt: expiresAt,
	}
}

// Invalidate removes an entry.
func (c *MemoryStore) Invalidate(moduleID string, entity domain.Entity) {
	c.mu.Lock()
	defer c.mu.Unlock()
	delete(c.items, Key(moduleID, entity))
}

// Size returns the current number of entries, expired ones included.
func (c *MemoryStore) Size() int {
	c.mu.RLock()
	defer c.mu.RUnlock()
	return len(c.items)
}

// CleanExpired removes all expired entries and reports how many were
// dropped.
func (c *MemoryStore) CleanExpired() int {
	c.mu.Lock()
	defer c.mu.Unlock()

	now := time.Now()
	removed := 0
	for key, e := range c.items {
		if e.expired(now) {
			delete(c.items, key)
			removed++
		}
	}
	return removed
}

// StartCleanupWorker starts a goroutine that periodically drops expired
// entries. Returns a stop function.
func (c *MemoryStore) StartCleanupWorker(interval time.Duration) func() {
	stopChan := make(chan struct{})
	ticker := time.NewTicker(interval)

	go func() {
		for {
			select {
			case <-ticker.C:
				c.CleanExpired()
			case <-stopChan:
				ticker.Stop()
				return
			}
		}
	}()

	return func() {
		close(stopChan)
	}
}

// Close implements Store; the memory store has nothing to release.
func (c *MemoryStore) Close() error { return nil }
