package token

import (
	"context"
	"errors"

	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgtype"
	"github.com/jackc/pgx/v5/pgxpool"

	"github.com/daniry/backoffice/internal/platform/db"
	"github.com/daniry/backoffice/internal/shared"
)

// Repository defines persistence for credential tokens.
type Repository interface {
	// Replace removes prior unused tokens for (owner, purpose) and inserts
	// rec in one transaction, so only the most recent token verifies.
	Replace(ctx context.Context, rec *Record) error
	FindByDigest(ctx context.Context, digest string, purpose Purpose) (*Record, error)
	FindLatest(ctx context.Context, ownerID int64, superAdmin bool, purpose Purpose) (*Record, error)
	MarkUsed(ctx context.Context, id int64) error
	IncrementAttempts(ctx context.Context, id int64) (int, error)
	DeleteInert(ctx context.Context) (int64, error)
}

// PGRepository implements Repository on the credential_tokens table.
type PGRepository struct {
	pool *pgxpool.Pool
}

// NewRepository constructs a PostgreSQL repository.
func NewRepository(pool *pgxpool.Pool) *PGRepository {
	return &PGRepository{pool: pool}
}

// Replace atomically invalidates prior unused tokens and stores rec.
func (r *PGRepository) Replace(ctx context.Context, rec *Record) error {
	return db.WithTx(ctx, r.pool, func(tx pgx.Tx) error {
		if _, err := tx.Exec(ctx,
			`DELETE FROM credential_tokens WHERE owner_id = $1 AND owner_super_admin = $2 AND purpose = $3 AND NOT used`,
			rec.OwnerID, rec.OwnerSuperAdmin, rec.Purpose,
		); err != nil {
			return err
		}
		return tx.QueryRow(ctx,
			`INSERT INTO credential_tokens
				(owner_id, owner_super_admin, purpose, digest, temp_password_hash, email, attempts, used, created_at, expires_at)
			 VALUES ($1, $2, $3, $4, $5, $6, 0, FALSE, $7, $8)
			 RETURNING id`,
			rec.OwnerID, rec.OwnerSuperAdmin, rec.Purpose, rec.Digest,
			textOrNull(rec.TempPasswordHash), textOrNull(rec.Email),
			rec.CreatedAt, rec.ExpiresAt,
		).Scan(&rec.ID)
	})
}

// FindByDigest fetches an unused, unexpired token by digest and purpose.
func (r *PGRepository) FindByDigest(ctx context.Context, digest string, purpose Purpose) (*Record, error) {
	row := r.pool.QueryRow(ctx,
		`SELECT id, owner_id, owner_super_admin, purpose, digest, temp_password_hash, email, attempts, used, created_at, expires_at
		 FROM credential_tokens
		 WHERE digest = $1 AND purpose = $2 AND NOT used AND expires_at > NOW()`,
		digest, purpose,
	)
	return scanRecord(row)
}

// FindLatest fetches the most recent unused, unexpired token for an owner.
// OTP digests are salted hashes, so lookup goes by owner instead of digest.
func (r *PGRepository) FindLatest(ctx context.Context, ownerID int64, superAdmin bool, purpose Purpose) (*Record, error) {
	row := r.pool.QueryRow(ctx,
		`SELECT id, owner_id, owner_super_admin, purpose, digest, temp_password_hash, email, attempts, used, created_at, expires_at
		 FROM credential_tokens
		 WHERE owner_id = $1 AND owner_super_admin = $2 AND purpose = $3 AND NOT used AND expires_at > NOW()
		 ORDER BY created_at DESC
		 LIMIT 1`,
		ownerID, superAdmin, purpose,
	)
	return scanRecord(row)
}

// MarkUsed consumes a token. A consumed token never verifies again.
func (r *PGRepository) MarkUsed(ctx context.Context, id int64) error {
	tag, err := r.pool.Exec(ctx, `UPDATE credential_tokens SET used = TRUE WHERE id = $1 AND NOT used`, id)
	if err != nil {
		return err
	}
	if tag.RowsAffected() == 0 {
		return shared.ErrTokenInvalid
	}
	return nil
}

// IncrementAttempts bumps the failed-verification counter and returns it.
func (r *PGRepository) IncrementAttempts(ctx context.Context, id int64) (int, error) {
	var attempts int
	err := r.pool.QueryRow(ctx,
		`UPDATE credential_tokens SET attempts = attempts + 1 WHERE id = $1 RETURNING attempts`,
		id,
	).Scan(&attempts)
	return attempts, err
}

// DeleteInert prunes used and expired tokens, returning the rows removed.
func (r *PGRepository) DeleteInert(ctx context.Context) (int64, error) {
	tag, err := r.pool.Exec(ctx, `DELETE FROM credential_tokens WHERE used OR expires_at <= NOW()`)
	if err != nil {
		return 0, err
	}
	return tag.RowsAffected(), nil
}

func scanRecord(row pgx.Row) (*Record, error) {
	var rec Record
	var purpose string
	var tempHash, email pgtype.Text
	var created, expires pgtype.Timestamptz
	err := row.Scan(&rec.ID, &rec.OwnerID, &rec.OwnerSuperAdmin, &purpose, &rec.Digest,
		&tempHash, &email, &rec.Attempts, &rec.Used, &created, &expires)
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return nil, shared.ErrTokenInvalid
		}
		return nil, err
	}
	rec.Purpose = Purpose(purpose)
	rec.TempPasswordHash = tempHash.String
	rec.Email = email.String
	rec.CreatedAt = created.Time
	rec.ExpiresAt = expires.Time
	return &rec, nil
}

func textOrNull(s string) pgtype.Text {
	return pgtype.Text{String: s, Valid: s != ""}
}

var _ Repository = (*PGRepository)(nil)
