package identity

import (
	"context"
	"errors"

	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgtype"
	"github.com/jackc/pgx/v5/pgxpool"

	"github.com/daniry/backoffice/internal/platform/db"
	"github.com/daniry/backoffice/internal/shared"
)

// Repository defines persistence operations for both identity classes.
type Repository interface {
	CountAdmins(ctx context.Context) (int64, error)
	CreateAdmin(ctx context.Context, name, email, passwordHash string) (int64, error)
	FindAdminByEmail(ctx context.Context, email string) (*Admin, error)
	FindActiveAdminByID(ctx context.Context, id int64) (*Admin, error)
	UpdateAdminPassword(ctx context.Context, id int64, passwordHash string) error
	UpdateAdminProfile(ctx context.Context, id int64, name, email string) error

	FindUserByEmail(ctx context.Context, email string) (*User, error)
	FindActiveUserByID(ctx context.Context, id int64) (*User, error)
	UpdateUserPassword(ctx context.Context, id int64, passwordHash string) error
	UpdateUserProfile(ctx context.Context, id int64, name, email string) error
}

// PGRepository implements Repository using PostgreSQL.
type PGRepository struct {
	pool *pgxpool.Pool
}

// NewRepository constructs a PostgreSQL repository.
func NewRepository(pool *pgxpool.Pool) *PGRepository {
	return &PGRepository{pool: pool}
}

// CountAdmins returns the number of admin accounts.
func (r *PGRepository) CountAdmins(ctx context.Context) (int64, error) {
	var count int64
	err := r.pool.QueryRow(ctx, `SELECT COUNT(*) FROM admins`).Scan(&count)
	return count, err
}

// CreateAdmin inserts a new active admin account.
func (r *PGRepository) CreateAdmin(ctx context.Context, name, email, passwordHash string) (int64, error) {
	var id int64
	err := r.pool.QueryRow(ctx,
		`INSERT INTO admins (name, email, password_hash, is_active) VALUES ($1, $2, $3, TRUE) RETURNING id`,
		name, email, passwordHash,
	).Scan(&id)
	if err != nil {
		if db.IsUniqueViolation(err) {
			return 0, shared.ErrDuplicate
		}
		return 0, err
	}
	return id, nil
}

// FindAdminByEmail fetches an admin by email regardless of active flag.
func (r *PGRepository) FindAdminByEmail(ctx context.Context, email string) (*Admin, error) {
	row := r.pool.QueryRow(ctx,
		`SELECT id, name, email, password_hash, is_active, created_at, updated_at FROM admins WHERE email = $1`,
		email,
	)
	return scanAdmin(row)
}

// FindActiveAdminByID fetches an admin by id, filtered to active accounts.
func (r *PGRepository) FindActiveAdminByID(ctx context.Context, id int64) (*Admin, error) {
	row := r.pool.QueryRow(ctx,
		`SELECT id, name, email, password_hash, is_active, created_at, updated_at FROM admins WHERE id = $1 AND is_active`,
		id,
	)
	return scanAdmin(row)
}

// UpdateAdminPassword replaces the stored password hash for an admin.
func (r *PGRepository) UpdateAdminPassword(ctx context.Context, id int64, passwordHash string) error {
	tag, err := r.pool.Exec(ctx,
		`UPDATE admins SET password_hash = $1, updated_at = NOW() WHERE id = $2`,
		passwordHash, id,
	)
	if err != nil {
		return err
	}
	if tag.RowsAffected() == 0 {
		return shared.ErrNotFound
	}
	return nil
}

// UpdateAdminProfile updates name and email for an admin.
func (r *PGRepository) UpdateAdminProfile(ctx context.Context, id int64, name, email string) error {
	tag, err := r.pool.Exec(ctx,
		`UPDATE admins SET name = $1, email = $2, updated_at = NOW() WHERE id = $3`,
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
	return nil
}

// FindUserByEmail fetches a delegated user by email regardless of status.
func (r *PGRepository) FindUserByEmail(ctx context.Context, email string) (*User, error) {
	row := r.pool.QueryRow(ctx,
		`SELECT id, name, email, password_hash, status, created_at, updated_at FROM users WHERE email = $1`,
		email,
	)
	return scanUser(row)
}

// FindActiveUserByID fetches a delegated user by id, filtered to ACTIVE status.
func (r *PGRepository) FindActiveUserByID(ctx context.Context, id int64) (*User, error) {
	row := r.pool.QueryRow(ctx,
		`SELECT id, name, email, password_hash, status, created_at, updated_at FROM users WHERE id = $1 AND status = 'ACTIVE'`,
		id,
	)
	return scanUser(row)
}

// UpdateUserPassword replaces the stored password hash for a delegated user.
func (r *PGRepository) UpdateUserPassword(ctx context.Context, id int64, passwordHash string) error {
	tag, err := r.pool.Exec(ctx,
		`UPDATE users SET password_hash = $1, updated_at = NOW() WHERE id = $2`,
		passwordHash, id,
	)
	if err != nil {
		return err
	}
	if tag.RowsAffected() == 0 {
		return shared.ErrNotFound
	}
	return nil
}

// UpdateUserProfile updates name and email for a delegated user.
func (r *PGRepository) UpdateUserProfile(ctx context.Context, id int64, name, email string) error {
	tag, err := r.pool.Exec(ctx,
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
	return nil
}

func scanAdmin(row pgx.Row) (*Admin, error) {
	var admin Admin
	var created, updated pgtype.Timestamptz
	if err := row.Scan(&admin.ID, &admin.Name, &admin.Email, &admin.PasswordHash, &admin.IsActive, &created, &updated); err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return nil, shared.ErrNotFound
		}
		return nil, err
	}
	admin.CreatedAt = created.Time
	admin.UpdatedAt = updated.Time
	return &admin, nil
}

func scanUser(row pgx.Row) (*User, error) {
	var user User
	var hash pgtype.Text
	var status string
	var created, updated pgtype.Timestamptz
	if err := row.Scan(&user.ID, &user.Name, &user.Email, &hash, &status, &created, &updated); err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return nil, shared.ErrNotFound
		}
		return nil, err
	}
	user.PasswordHash = hash.String
	user.Status = Status(status)
	user.CreatedAt = created.Time
	user.UpdatedAt = updated.Time
	return &user, nil
}

var _ Repository = (*PGRepository)(nil)
