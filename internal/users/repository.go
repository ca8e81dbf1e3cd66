package users

import (
	"context"
	"errors"

	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgtype"
	"github.com/jackc/pgx/v5/pgxpool"

	"github.com/daniry/backoffice/internal/identity"
	"github.com/daniry/backoffice/internal/platform/db"
	"github.com/daniry/backoffice/internal/shared"
)

// Repository defines persistence operations for delegated-user
// management. Role sets and overrides are always replaced wholesale
// inside a transaction.
type Repository interface {
	CreateInvited(ctx context.Context, name, email string, roleIDs []int64, grantedSlugs []string) (int64, error)
	FindByID(ctx context.Context, id int64) (*User, error)
	List(ctx context.Context) ([]User, error)
	Overrides(ctx context.Context, id int64) ([]Override, error)
	Update(ctx context.Context, id int64, name, email string, roleIDs []int64, overrides []Override) error
	Activate(ctx context.Context, id int64) error
	Deactivate(ctx context.Context, id int64) error
}

// PGRepository implements Repository using PostgreSQL.
type PGRepository struct {
	pool *pgxpool.Pool
}

// NewRepository constructs a PostgreSQL repository.
func NewRepository(pool *pgxpool.Pool) *PGRepository {
	return &PGRepository{pool: pool}
}

// CreateInvited inserts a PENDING user with no credential, plus the
// initial role assignments and granted overrides, in one transaction.
func (r *PGRepository) CreateInvited(ctx context.Context, name, email string, roleIDs []int64, grantedSlugs []string) (int64, error) {
	var id int64
	err := db.WithTx(ctx, r.pool, func(tx pgx.Tx) error {
		err := tx.QueryRow(ctx,
			`INSERT INTO users (name, email, status) VALUES ($1, $2, 'PENDING') RETURNING id`,
			name, email,
		).Scan(&id)
		if err != nil {
			if db.IsUniqueViolation(err) {
				return shared.ErrDuplicate
			}
			return err
		}
		if err := insertRoles(ctx, tx, id, roleIDs); err != nil {
			return err
		}
		for _, slug := range grantedSlugs {
			if err := insertOverride(ctx, tx, id, Override{Slug: slug, Granted: true}); err != nil {
				return err
			}
		}
		return nil
	})
	if err != nil {
		return 0, err
	}
	return id, nil
}

// FindByID fetches one user with aggregated role assignments.
func (r *PGRepository) FindByID(ctx context.Context, id int64) (*User, error) {
	row := r.pool.QueryRow(ctx,
		`SELECT id, name, email, status, created_at FROM users WHERE id = $1`,
		id,
	)
	user, err := scanUserRow(row)
	if err != nil {
		return nil, err
	}

	rows, err := r.pool.Query(ctx,
		`SELECT r.id, r.name
		   FROM user_roles ur
		   JOIN roles r ON r.id = ur.role_id
		  WHERE ur.user_id = $1
		  ORDER BY r.name`,
		id,
	)
	if err != nil {
		return nil, err
	}
	defer rows.Close()
	for rows.Next() {
		var ref RoleRef
		if err := rows.Scan(&ref.ID, &ref.Name); err != nil {
			return nil, err
		}
		user.Roles = append(user.Roles, ref)
	}
	return user, rows.Err()
}

// List returns every user with aggregated role assignments.
func (r *PGRepository) List(ctx context.Context) ([]User, error) {
	rows, err := r.pool.Query(ctx,
		`SELECT id, name, email, status, created_at FROM users ORDER BY id`,
	)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	users := make([]User, 0)
	index := make(map[int64]int)
	for rows.Next() {
		user, err := scanUserRow(rows)
		if err != nil {
			return nil, err
		}
		index[user.ID] = len(users)
		users = append(users, *user)
	}
	if err := rows.Err(); err != nil {
		return nil, err
	}

	roleRows, err := r.pool.Query(ctx,
		`SELECT ur.user_id, r.id, r.name
		   FROM user_roles ur
		   JOIN roles r ON r.id = ur.role_id
		  ORDER BY r.name`,
	)
	if err != nil {
		return nil, err
	}
	defer roleRows.Close()
	for roleRows.Next() {
		var userID int64
		var ref RoleRef
		if err := roleRows.Scan(&userID, &ref.ID, &ref.Name); err != nil {
			return nil, err
		}
		if i, ok := index[userID]; ok {
			users[i].Roles = append(users[i].Roles, ref)
		}
	}
	return users, roleRows.Err()
}

// Overrides returns the per-user permission overrides, granted and
// revoked alike.
func (r *PGRepository) Overrides(ctx context.Context, id int64) ([]Override, error) {
	rows, err := r.pool.Query(ctx,
		`SELECT p.slug, up.granted
		   FROM user_permissions up
		   JOIN permissions p ON p.id = up.permission_id
		  WHERE up.user_id = $1
		  ORDER BY p.slug`,
		id,
	)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	overrides := make([]Override, 0)
	for rows.Next() {
		var o Override
		if err := rows.Scan(&o.Slug, &o.Granted); err != nil {
			return nil, err
		}
		overrides = append(overrides, o)
	}
	return overrides, rows.Err()
}

// Update replaces profile fields, the role set and the override set in
// one transaction.
func (r *PGRepository) Update(ctx context.Context, id int64, name, email string, roleIDs []int64, overrides []Override) error {
	return db.WithTx(ctx, r.pool, func(tx pgx.Tx) error {
		tag, err := tx.Exec(ctx,
			`UPDATE users SET name = $1, email = $2, updated_at = NOW() WHERE id = $3`,
			name, email, id,
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

		if _, err := tx.Exec(ctx, `DELETE FROM user_roles WHERE user_id = $1`, id); err != nil {
			return err
		}
		if err := insertRoles(ctx, tx, id, roleIDs); err != nil {
			return err
		}

		if _, err := tx.Exec(ctx, `DELETE FROM user_permissions WHERE user_id = $1`, id); err != nil {
			return err
		}
		for _, o := range overrides {
			if err := insertOverride(ctx, tx, id, o); err != nil {
				return err
			}
		}
		return nil
	})
}

// Activate flips a PENDING user to ACTIVE after password setup.
func (r *PGRepository) Activate(ctx context.Context, id int64) error {
	tag, err := r.pool.Exec(ctx,
		`UPDATE users SET status = 'ACTIVE', updated_at = NOW() WHERE id = $1 AND status = 'PENDING'`,
		id,
	)
	if err != nil {
		return err
	}
	if tag.RowsAffected() == 0 {
		return shared.ErrNotFound
	}
	return nil
}

// Deactivate soft-deletes a user. The row and its grants survive for
// audit; the INACTIVE status blocks login and session resolution.
func (r *PGRepository) Deactivate(ctx context.Context, id int64) error {
	tag, err := r.pool.Exec(ctx,
		`UPDATE users SET status = 'INACTIVE', updated_at = NOW() WHERE id = $1 AND status <> 'INACTIVE'`,
		id,
	)
	if err != nil {
		return err
	}
	if tag.RowsAffected() == 0 {
		return shared.ErrNotFound
	}
	return nil
}

func insertRoles(ctx context.Context, tx pgx.Tx, userID int64, roleIDs []int64) error {
	for _, roleID := range roleIDs {
		if _, err := tx.Exec(ctx,
			`INSERT INTO user_roles (user_id, role_id) VALUES ($1, $2) ON CONFLICT DO NOTHING`,
			userID, roleID,
		); err != nil {
			return err
		}
	}
	return nil
}

// insertOverride stores one override by slug. Unknown slugs insert
// nothing instead of failing the transaction.
func insertOverride(ctx context.Context, tx pgx.Tx, userID int64, o Override) error {
	_, err := tx.Exec(ctx,
		`INSERT INTO user_permissions (user_id, permission_id, granted)
		 SELECT $1, id, $3 FROM permissions WHERE slug = $2
		 ON CONFLICT (user_id, permission_id) DO UPDATE SET granted = EXCLUDED.granted`,
		userID, o.Slug, o.Granted,
	)
	return err
}

func scanUserRow(row pgx.Row) (*User, error) {
	var user User
	var status string
	var created pgtype.Timestamptz
	if err := row.Scan(&user.ID, &user.Name, &user.Email, &status, &created); err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return nil, shared.ErrNotFound
		}
		return nil, err
	}
	user.Status = identity.Status(status)
	user.CreatedAt = created.Time
	user.Roles = make([]RoleRef, 0)
	return &user, nil
}

var _ Repository = (*PGRepository)(nil)
