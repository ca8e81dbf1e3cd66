package roles

import (
	"context"
	"errors"
	"sort"

	"github.com/daniry/backoffice/internal/rbac"
)

// ErrRoleAssigned is returned when deleting a role that users still
// hold.
var ErrRoleAssigned = errors.New("roles: role is assigned to users")

// Service owns role catalog mutations. Every change to a role's grant
// set can widen or narrow many users at once, so writes flush the whole
// permission cache instead of chasing individual assignments.
type Service struct {
	repo     Repository
	resolver *rbac.Resolver
}

// NewService constructs a Service.
func NewService(repo Repository, resolver *rbac.Resolver) *Service {
	return &Service{repo: repo, resolver: resolver}
}

// List returns the role catalog.
func (s *Service) List(ctx context.Context) ([]Role, error) {
	return s.repo.List(ctx)
}

// Get returns one role with its permission slugs.
func (s *Service) Get(ctx context.Context, id int64) (*Detail, error) {
	return s.repo.Get(ctx, id)
}

// Create inserts a role with its grants and flushes the cache.
func (s *Service) Create(ctx context.Context, name, description string, slugs []string) (*Detail, error) {
	id, err := s.repo.Create(ctx, name, description, slugs)
	if err != nil {
		return nil, err
	}
	s.resolver.InvalidateAll()
	return s.repo.Get(ctx, id)
}

// Update replaces a role's fields and grant set and flushes the cache.
func (s *Service) Update(ctx context.Context, id int64, name, description string, slugs []string) (*Detail, error) {
	if err := s.repo.Update(ctx, id, name, description, slugs); err != nil {
		return nil, err
	}
	s.resolver.InvalidateAll()
	return s.repo.Get(ctx, id)
}

// Delete removes an unassigned role and flushes the cache. A role still
// held by any user is rejected so no user silently loses access.
func (s *Service) Delete(ctx context.Context, id int64) error {
	count, err := s.repo.AssignedCount(ctx, id)
	if err != nil {
		return err
	}
	if count > 0 {
		return ErrRoleAssigned
	}
	if err := s.repo.Delete(ctx, id); err != nil {
		return err
	}
	s.resolver.InvalidateAll()
	return nil
}

// PermissionsByModule returns the catalog grouped by module, with
// module names sorted for a stable response.
func (s *Service) PermissionsByModule(ctx context.Context) ([]ModuleGroup, error) {
	perms, err := s.repo.Permissions(ctx)
	if err != nil {
		return nil, err
	}

	byModule := make(map[string][]Permission)
	for _, p := range perms {
		byModule[p.Module] = append(byModule[p.Module], p)
	}
	modules := make([]string, 0, len(byModule))
	for m := range byModule {
		modules = append(modules, m)
	}
	sort.Strings(modules)

	groups := make([]ModuleGroup, 0, len(modules))
	for _, m := range modules {
		groups = append(groups, ModuleGroup{Module: m, Permissions: byModule[m]})
	}
	return groups, nil
}

// ModuleGroup is one module's slice of the permission catalog.
type ModuleGroup struct {
	Module      string       `json:"module"`
	Permissions []Permission `json:"permissions"`
}
