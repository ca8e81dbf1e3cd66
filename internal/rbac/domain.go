package rbac

import (
	"sort"
	"strings"

	"github.com/daniry/backoffice/internal/shared"
)

// Override is a per-user grant or revoke of a single permission.
// Granted adds the slug even when no role carries it; revoked removes a
// slug a role would otherwise grant.
type Override struct {
	Slug    string
	Granted bool
}

// PermissionSet is the effective permission set for an identity, either
// the wildcard marker or a set of slugs. Absence from the set is deny.
type PermissionSet struct {
	wildcard bool
	slugs    map[string]struct{}
}

// WildcardSet returns the universal set held by super admins.
func WildcardSet() PermissionSet {
	return PermissionSet{wildcard: true}
}

// NewPermissionSet builds a set from slugs, normalizing case and space.
func NewPermissionSet(slugs []string) PermissionSet {
	set := PermissionSet{slugs: make(map[string]struct{}, len(slugs))}
	for _, s := range slugs {
		s = strings.TrimSpace(strings.ToLower(s))
		if s != "" {
			set.slugs[s] = struct{}{}
		}
	}
	return set
}

// IsWildcard reports whether the set matches every permission.
func (s PermissionSet) IsWildcard() bool {
	return s.wildcard
}

// Has reports whether the set grants the slug.
func (s PermissionSet) Has(slug string) bool {
	if s.wildcard {
		return true
	}
	_, ok := s.slugs[strings.ToLower(slug)]
	return ok
}

// HasAny reports whether the set grants at least one of the slugs.
func (s PermissionSet) HasAny(slugs ...string) bool {
	for _, slug := range slugs {
		if s.Has(slug) {
			return true
		}
	}
	return false
}

// Slugs returns the sorted slug list, or ["*"] for the wildcard set.
func (s PermissionSet) Slugs() []string {
	if s.wildcard {
		return []string{shared.Wildcard}
	}
	out := make([]string, 0, len(s.slugs))
	for slug := range s.slugs {
		out = append(out, slug)
	}
	sort.Strings(out)
	return out
}

func (s PermissionSet) apply(overrides []Override) PermissionSet {
	for _, o := range overrides {
		slug := strings.ToLower(o.Slug)
		if o.Granted {
			s.slugs[slug] = struct{}{}
		} else {
			delete(s.slugs, slug)
		}
	}
	return s
}
