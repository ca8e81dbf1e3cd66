package roles

import (
	"context"
	"sort"
	"testing"

	"github.com/stretchr/testify/require"

	"github.com/daniry/backoffice/internal/rbac"
	"github.com/daniry/backoffice/internal/shared"
	_ "github.com/daniry/backoffice/testing"
)

type memoryRolesRepo struct {
	roles    map[int64]*Detail
	assigned map[int64]int64
	catalog  []Permission
	nextID   int64
}

func newMemoryRolesRepo() *memoryRolesRepo {
	return &memoryRolesRepo{
		roles:    make(map[int64]*Detail),
		assigned: make(map[int64]int64),
		catalog: []Permission{
			{ID: 1, Slug: shared.PermProductsView, Name: "View products", Module: "products"},
			{ID: 2, Slug: shared.PermProductsEdit, Name: "Edit products", Module: "products"},
			{ID: 3, Slug: shared.PermUsersView, Name: "View users", Module: "users"},
			{ID: 4, Slug: shared.PermRolesEdit, Name: "Edit roles", Module: "roles"},
		},
	}
}

func (r *memoryRolesRepo) List(ctx context.Context) ([]Role, error) {
	out := make([]Role, 0, len(r.roles))
	for _, d := range r.roles {
		role := d.Role
		role.PermissionCount = int64(len(d.Permissions))
		role.UserCount = r.assigned[d.ID]
		out = append(out, role)
	}
	sort.Slice(out, func(i, j int) bool { return out[i].ID < out[j].ID })
	return out, nil
}

func (r *memoryRolesRepo) Get(ctx context.Context, id int64) (*Detail, error) {
	d, ok := r.roles[id]
	if !ok {
		return nil, shared.ErrNotFound
	}
	clone := *d
	return &clone, nil
}

func (r *memoryRolesRepo) Create(ctx context.Context, name, description string, slugs []string) (int64, error) {
	for _, d := range r.roles {
		if d.Name == name {
			return 0, shared.ErrDuplicate
		}
	}
	r.nextID++
	r.roles[r.nextID] = &Detail{Role: Role{ID: r.nextID, Name: name, Description: description}, Permissions: slugs}
	return r.nextID, nil
}

func (r *memoryRolesRepo) Update(ctx context.Context, id int64, name, description string, slugs []string) error {
	d, ok := r.roles[id]
	if !ok {
		return shared.ErrNotFound
	}
	d.Name, d.Description, d.Permissions = name, description, slugs
	return nil
}

func (r *memoryRolesRepo) Delete(ctx context.Context, id int64) error {
	if _, ok := r.roles[id]; !ok {
		return shared.ErrNotFound
	}
	delete(r.roles, id)
	return nil
}

func (r *memoryRolesRepo) AssignedCount(ctx context.Context, id int64) (int64, error) {
	return r.assigned[id], nil
}

func (r *memoryRolesRepo) Permissions(ctx context.Context) ([]Permission, error) {
	return r.catalog, nil
}

func (r *memoryRolesRepo) AllPermissionSlugs(ctx context.Context) ([]string, error) {
	slugs := make([]string, 0, len(r.catalog))
	for _, p := range r.catalog {
		slugs = append(slugs, p.Slug)
	}
	sort.Strings(slugs)
	return slugs, nil
}

var _ Repository = (*memoryRolesRepo)(nil)

type countingStore struct {
	slugs map[int64][]string
	calls int
}

func (s *countingStore) RolePermissionSlugs(ctx context.Context, userID int64) ([]string, error) {
	s.calls++
	return s.slugs[userID], nil
}

func (s *countingStore) UserOverrides(ctx context.Context, userID int64) ([]rbac.Override, error) {
	return nil, nil
}

func newRolesFixture() (*Service, *memoryRolesRepo, *countingStore, *rbac.Resolver) {
	repo := newMemoryRolesRepo()
	store := &countingStore{slugs: make(map[int64][]string)}
	resolver := rbac.NewResolver(store, rbac.NewCache(), nil)
	return NewService(repo, resolver), repo, store, resolver
}

func TestCreateRoleDuplicateName(t *testing.T) {
	svc, _, _, _ := newRolesFixture()
	ctx := context.Background()

	_, err := svc.Create(ctx, "Editor", "", []string{shared.PermProductsEdit})
	require.NoError(t, err)
	_, err = svc.Create(ctx, "Editor", "", nil)
	require.ErrorIs(t, err, shared.ErrDuplicate)
}

func TestDeleteAssignedRoleRejected(t *testing.T) {
	svc, repo, _, _ := newRolesFixture()
	ctx := context.Background()

	detail, err := svc.Create(ctx, "Editor", "", nil)
	require.NoError(t, err)
	repo.assigned[detail.ID] = 2

	require.ErrorIs(t, svc.Delete(ctx, detail.ID), ErrRoleAssigned)
	_, err = svc.Get(ctx, detail.ID)
	require.NoError(t, err)

	repo.assigned[detail.ID] = 0
	require.NoError(t, svc.Delete(ctx, detail.ID))
	_, err = svc.Get(ctx, detail.ID)
	require.ErrorIs(t, err, shared.ErrNotFound)
}

func TestRoleMutationsFlushResolverCache(t *testing.T) {
	svc, _, store, resolver := newRolesFixture()
	ctx := context.Background()

	store.slugs[9] = []string{shared.PermProductsView}
	_, err := resolver.Resolve(ctx, 9, false)
	require.NoError(t, err)
	_, err = resolver.Resolve(ctx, 9, false)
	require.NoError(t, err)
	require.Equal(t, 1, store.calls)

	detail, err := svc.Create(ctx, "Editor", "", []string{shared.PermProductsEdit})
	require.NoError(t, err)

	// Create flushed the cache: the next resolve hits the store again.
	store.slugs[9] = []string{shared.PermProductsView, shared.PermProductsEdit}
	set, err := resolver.Resolve(ctx, 9, false)
	require.NoError(t, err)
	require.Equal(t, 2, store.calls)
	require.True(t, set.Has(shared.PermProductsEdit))

	_, err = svc.Update(ctx, detail.ID, "Editor", "edits things", []string{shared.PermProductsEdit})
	require.NoError(t, err)
	_, err = resolver.Resolve(ctx, 9, false)
	require.NoError(t, err)
	require.Equal(t, 3, store.calls)
}

func TestPermissionsByModuleGroupsAndSorts(t *testing.T) {
	svc, _, _, _ := newRolesFixture()

	groups, err := svc.PermissionsByModule(context.Background())
	require.NoError(t, err)
	require.Len(t, groups, 3)
	require.Equal(t, "products", groups[0].Module)
	require.Equal(t, "roles", groups[1].Module)
	require.Equal(t, "users", groups[2].Module)
	require.Len(t, groups[0].Permissions, 2)
}
