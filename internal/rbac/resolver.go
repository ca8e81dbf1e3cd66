package rbac

import (
	"context"
)

// StoreReader fetches the raw grant data a resolution needs.
type StoreReader interface {
	RolePermissionSlugs(ctx context.Context, userID int64) ([]string, error)
	UserOverrides(ctx context.Context, userID int64) ([]Override, error)
}

// ResolverMetrics receives cache hit/miss signals. Implemented by the
// observability package; nil disables reporting.
type ResolverMetrics interface {
	PermissionCacheHit()
	PermissionCacheMiss()
}

// Resolver computes the effective permission set for an identity,
// memoized through the cache.
type Resolver struct {
	store   StoreReader
	cache   *Cache
	metrics ResolverMetrics
}

// NewResolver constructs a Resolver. metrics may be nil.
func NewResolver(store StoreReader, cache *Cache, metrics ResolverMetrics) *Resolver {
	return &Resolver{store: store, cache: cache, metrics: metrics}
}

// Resolve returns the wildcard set for super admins, otherwise the
// union of role-derived permissions with per-user overrides applied on
// top. Overrides run after role aggregation, never before, so an
// explicit revoke always wins over a role grant.
func (r *Resolver) Resolve(ctx context.Context, identityID int64, superAdmin bool) (PermissionSet, error) {
	if superAdmin {
		return WildcardSet(), nil
	}

	if set, ok := r.cache.Get(identityID); ok {
		if r.metrics != nil {
			r.metrics.PermissionCacheHit()
		}
		return set, nil
	}
	if r.metrics != nil {
		r.metrics.PermissionCacheMiss()
	}

	slugs, err := r.store.RolePermissionSlugs(ctx, identityID)
	if err != nil {
		return PermissionSet{}, err
	}
	overrides, err := r.store.UserOverrides(ctx, identityID)
	if err != nil {
		return PermissionSet{}, err
	}

	set := NewPermissionSet(slugs).apply(overrides)
	r.cache.Put(identityID, set)
	return set, nil
}

// Invalidate drops one identity's cached set.
func (r *Resolver) Invalidate(identityID int64) {
	r.cache.Invalidate(identityID)
}

// InvalidateAll drops every cached set.
func (r *Resolver) InvalidateAll() {
	r.cache.InvalidateAll()
}
