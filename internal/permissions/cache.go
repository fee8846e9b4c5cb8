package permissions

import (
	"context"
	"sync"

	"github.com/google/uuid"
)

// Cache stores resolved Access values per (user, pharmacy) pair. It is an
// explicit dependency of the Resolver so lifecycle and invalidation stay
// visible at the call site instead of hiding in package-level state.
type Cache interface {
	Get(ctx context.Context, userID, pharmacyID uuid.UUID) (Access, bool, error)
	Put(ctx context.Context, userID, pharmacyID uuid.UUID, access Access) error
	Invalidate(ctx context.Context, userID, pharmacyID uuid.UUID) error
}

type cacheKey struct {
	userID     uuid.UUID
	pharmacyID uuid.UUID
}

// MemoryCache is a process-local Cache guarded by a RWMutex.
type MemoryCache struct {
	mu      sync.RWMutex
	entries map[cacheKey]Access
}

// NewMemoryCache builds an empty in-process cache.
func NewMemoryCache() *MemoryCache {
	return &MemoryCache{entries: make(map[cacheKey]Access)}
}

// Get returns the cached access for the pair, if present.
func (c *MemoryCache) Get(_ context.Context, userID, pharmacyID uuid.UUID) (Access, bool, error) {
	c.mu.RLock()
	defer c.mu.RUnlock()
	access, ok := c.entries[cacheKey{userID: userID, pharmacyID: pharmacyID}]
	return access, ok, nil
}

// Put stores the access for the pair, replacing any previous entry.
func (c *MemoryCache) Put(_ context.Context, userID, pharmacyID uuid.UUID, access Access) error {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.entries[cacheKey{userID: userID, pharmacyID: pharmacyID}] = access
	return nil
}

// Invalidate drops the entry for the pair.
func (c *MemoryCache) Invalidate(_ context.Context, userID, pharmacyID uuid.UUID) error {
	c.mu.Lock()
	defer c.mu.Unlock()
	delete(c.entries, cacheKey{userID: userID, pharmacyID: pharmacyID})
	return nil
}

// Clear drops every entry. Used on logout and in tests.
func (c *MemoryCache) Clear() {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.entries = make(map[cacheKey]Access)
}
