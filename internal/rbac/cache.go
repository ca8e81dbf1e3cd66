package rbac

import (
	"time"

	"github.com/hashicorp/golang-lru/v2/expirable"
)

// CacheTTL bounds staleness for entries that were never explicitly
// invalidated. Mutation paths invalidate synchronously, so the TTL is a
// safety net against missed hooks, not the consistency mechanism.
const CacheTTL = 5 * time.Minute

const cacheSize = 4096

// Cache memoizes resolved permission sets per identity id. It is
// process-local and derived: dropping it at any point is always safe,
// a miss recomputes from the store. In a multi-instance deployment each
// instance holds its own cache and invalidation stays local to the
// instance that performed the mutation; single-process scope only.
type Cache struct {
	entries *expirable.LRU[int64, PermissionSet]
}

// NewCache builds an empty cache with the fixed TTL.
func NewCache() *Cache {
	return &Cache{entries: expirable.NewLRU[int64, PermissionSet](cacheSize, nil, CacheTTL)}
}

// Get returns the cached set for the identity; expired entries miss.
func (c *Cache) Get(identityID int64) (PermissionSet, bool) {
	return c.entries.Get(identityID)
}

// Put unconditionally overwrites the entry for the identity.
func (c *Cache) Put(identityID int64, set PermissionSet) {
	c.entries.Add(identityID, set)
}

// Invalidate removes one identity's entry. Called synchronously by any
// operation that changes that identity's roles or overrides, before the
// mutating response is sent.
func (c *Cache) Invalidate(identityID int64) {
	c.entries.Remove(identityID)
}

// InvalidateAll clears every entry. Called synchronously by operations
// that change shared permission semantics, such as editing a role's
// permission set, where a targeted invalidation cannot know which
// cached identities are affected.
func (c *Cache) InvalidateAll() {
	c.entries.Purge()
}
