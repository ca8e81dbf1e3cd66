package roles

import (
	"context"
	"errors"

	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgtype"
	"github.com/jackc/pgx/v5/pgxpool"

	"github.com/daniry/backoffice/internal/platform/db"
	"github.com/daniry/backoffice/internal/shared"
)

// Repository defines persistence operations for roles and the
// permission catalog.
type Repository interface {
	List(ctx context.Context) ([]Role, error)
	Get(ctx context.Context, id int64) (*Detail, error)
	Create(ctx context.Context, name, description string, slugs []string) (int64, error)
	Update(ctx context.Context, id int64, name, description string, slugs []string) error
	Delete(ctx context.Context, id int64) error
	AssignedCount(ctx context.Context, id int64) (int64, error)

	Permissions(ctx context.Context) ([]Permission, error)
	AllPermissionSlugs(ctx context.Context) ([]string, error)
}

// PGRepository implements Repository using PostgreSQL.
type PGRepository struct {
	pool *pgxpool.Pool
}

// NewRepository constructs a PostgreSQL repository.
func NewRepository(pool *pgxpool.Pool) *PGRepository {
	return &PGRepository{pool: pool}
}

// List returns every role with permission and assignment counts.
func (r *PGRepository) List(ctx context.Context) ([]Role, error) {
	rows, err := r.pool.Query(ctx,
		`SELECT r.id, r.name, COALESCE(r.description, ''), r.created_at,
		        (SELECT COUNT(*) FROM role_permissions rp WHERE rp.role_id = r.id),
		        (SELECT COUNT(*) FROM user_roles ur WHERE ur.role_id = r.id)
		   FROM roles r
		  ORDER BY r.name`,
	)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	list := make([]Role, 0)
	for rows.Next() {
		var role Role
		var created pgtype.Timestamptz
		if err := rows.Scan(&role.ID, &role.Name, &role.Description, &created, &role.PermissionCount, &role.UserCount); err != nil {
			return nil, err
		}
		role.CreatedAt = created.Time
		list = append(list, role)
	}
	return list, rows.Err()
}

// Get returns one role with its granted permission slugs.
func (r *PGRepository) Get(ctx context.Context, id int64) (*Detail, error) {
	var detail Detail
	var created pgtype.Timestamptz
	err := r.pool.QueryRow(ctx,
		`SELECT r.id, r.name, COALESCE(r.description, ''), r.created_at,
		        (SELECT COUNT(*) FROM role_permissions rp WHERE rp.role_id = r.id),
		        (SELECT COUNT(*) FROM user_roles ur WHERE ur.role_id = r.id)
		   FROM roles r
		  WHERE r.id = $1`,
		id,
	).Scan(&detail.ID, &detail.Name, &detail.Description, &created, &detail.PermissionCount, &detail.UserCount)
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return nil, shared.ErrNotFound
		}
		return nil, err
	}
	detail.CreatedAt = created.Time

	rows, err := r.pool.Query(ctx,
		`SELECT p.slug
		   FROM role_permissions rp
		   JOIN permissions p ON p.id = rp.permission_id
		  WHERE rp.role_id = $1
		  ORDER BY p.slug`,
		id,
	)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	detail.Permissions = make([]string, 0)
	for rows.Next() {
		var slug string
		if err := rows.Scan(&slug); err != nil {
			return nil, err
		}
		detail.Permissions = append(detail.Permissions, slug)
	}
	return &detail, rows.Err()
}

// Create inserts a role and its permission grants in one transaction.
func (r *PGRepository) Create(ctx context.Context, name, description string, slugs []string) (int64, error) {
	var id int64
	err := db.WithTx(ctx, r.pool, func(tx pgx.Tx) error {
		err := tx.QueryRow(ctx,
			`INSERT INTO roles (name, description) VALUES ($1, $2) RETURNING id`,
			name, description,
		).Scan(&id)
		if err != nil {
			if db.IsUniqueViolation(err) {
				return shared.ErrDuplicate
			}
			return err
		}
		return insertGrants(ctx, tx, id, slugs)
	})
	if err != nil {
		return 0, err
	}
	return id, nil
}

// Update replaces a role's fields and its whole permission set.
func (r *PGRepository) Update(ctx context.Context, id int64, name, description string, slugs []string) error {
	return db.WithTx(ctx, r.pool, func(tx pgx.Tx) error {
		tag, err := tx.Exec(ctx,
			`UPDATE roles SET name = $1, description = $2, updated_at = NOW() WHERE id = $3`,
			name, description, id,
		)
		if err != nil {
			if db.IsUniqueViolation(err) {
				return shared.ErrDuplicate
			}
			return err
		}
		if tag.RowsAffected() == 0 {
			return shared.ErrNotFound
		}
		if _, err := tx.Exec(ctx, `DELETE FROM role_permissions WHERE role_id = $1`, id); err != nil {
			return err
		}
		return insertGrants(ctx, tx, id, slugs)
	})
}

// Delete removes a role and its grants. Callers must check assignment
// first; a dangling user_roles row would fail the foreign key anyway.
func (r *PGRepository) Delete(ctx context.Context, id int64) error {
	return db.WithTx(ctx, r.pool, func(tx pgx.Tx) error {
		if _, err := tx.Exec(ctx, `DELETE FROM role_permissions WHERE role_id = $1`, id); err != nil {
			return err
		}
		tag, err := tx.Exec(ctx, `DELETE FROM roles WHERE id = $1`, id)
		if err != nil {
			return err
		}
		if tag.RowsAffected() == 0 {
			return shared.ErrNotFound
		}
		return nil
	})
}

// AssignedCount returns how many users currently hold the role.
func (r *PGRepository) AssignedCount(ctx context.Context, id int64) (int64, error) {
	var count int64
	err := r.pool.QueryRow(ctx,
		`SELECT COUNT(*) FROM user_roles WHERE role_id = $1`, id,
	).Scan(&count)
	return count, err
}

// Permissions returns the full catalog ordered by module then slug.
func (r *PGRepository) Permissions(ctx context.Context) ([]Permission, error) {
	rows, err := r.pool.Query(ctx,
		`SELECT id, slug, name, module FROM permissions ORDER BY module, slug`,
	)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	list := make([]Permission, 0)
	for rows.Next() {
		var p Permission
		if err := rows.Scan(&p.ID, &p.Slug, &p.Name, &p.Module); err != nil {
			return nil, err
		}
		list = append(list, p)
	}
	return list, rows.Err()
}

// AllPermissionSlugs returns every catalog slug, sorted.
func (r *PGRepository) AllPermissionSlugs(ctx context.Context) ([]string, error) {
	rows, err := r.pool.Query(ctx, `SELECT slug FROM permissions ORDER BY slug`)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	slugs := make([]string, 0)
	for rows.Next() {
		var slug string
		if err := rows.Scan(&slug); err != nil {
			return nil, err
		}
		slugs = append(slugs, slug)
	}
	return slugs, rows.Err()
}

// insertGrants stores role permission grants by slug. Unknown slugs
// insert nothing instead of failing the transaction.
func insertGrants(ctx context.Context, tx pgx.Tx, roleID int64, slugs []string) error {
	for _, slug := range slugs {
		if _, err := tx.Exec(ctx,
			`INSERT INTO role_permissions (role_id, permission_id)
			 SELECT $1, id FROM permissions WHERE slug = $2
			 ON CONFLICT DO NOTHING`,
			roleID, slug,
		); err != nil {
			return err
		}
	}
	return nil
}

var _ Repository = (*PGRepository)(nil)
