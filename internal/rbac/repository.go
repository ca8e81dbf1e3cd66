package rbac

import (
	"context"

	"github.com/jackc/pgx/v5/pgxpool"
)

// PGStore reads grant data from PostgreSQL.
type PGStore struct {
	pool *pgxpool.Pool
}

// NewStore constructs a PostgreSQL grant reader.
func NewStore(pool *pgxpool.Pool) *PGStore {
	return &PGStore{pool: pool}
}

// RolePermissionSlugs returns the deduplicated slugs granted through
// every role assigned to the user.
func (s *PGStore) RolePermissionSlugs(ctx context.Context, userID int64) ([]string, error) {
	rows, err := s.pool.Query(ctx, `
		SELECT DISTINCT p.slug
		FROM permissions p
		JOIN role_permissions rp ON p.id = rp.permission_id
		JOIN user_roles ur ON rp.role_id = ur.role_id
		WHERE ur.user_id = $1`,
		userID,
	)
	if err != nil {
		return nil, err
	}
	defer rows.Close()
	var slugs []string
	for rows.Next() {
		var slug string
		if err := rows.Scan(&slug); err != nil {
			return nil, err
		}
		slugs = append(slugs, slug)
	}
	return slugs, rows.Err()
}

// UserOverrides returns the user's direct permission overrides.
func (s *PGStore) UserOverrides(ctx context.Context, userID int64) ([]Override, error) {
	rows, err := s.pool.Query(ctx, `
		SELECT p.slug, up.granted
		FROM permissions p
		JOIN user_permissions up ON p.id = up.permission_id
		WHERE up.user_id = $1`,
		userID,
	)
	if err != nil {
		return nil, err
	}
	defer rows.Close()
	var overrides []Override
	for rows.Next() {
		var o Override
		if err := rows.Scan(&o.Slug, &o.Granted); err != nil {
			return nil, err
		}
		overrides = append(overrides, o)
	}
	return overrides, rows.Err()
}

var _ StoreReader = (*PGStore)(nil)
