package token

import (
	"context"
	"crypto/rand"
	"crypto/sha256"
	"encoding/hex"
	"fmt"
	"math/big"
	"time"

	"golang.org/x/crypto/bcrypt"

	"github.com/daniry/backoffice/internal/shared"
)

// Issuer generates credential tokens and verifies presented secrets.
//
// Reset and invitation secrets are 256-bit random strings, so a fast
// SHA-256 digest is enough. OTP codes have a 6-digit search space and
// get a bcrypt digest plus an attempt counter instead.
type Issuer struct {
	repo Repository
	now  func() time.Time
}

// NewIssuer constructs an Issuer.
func NewIssuer(repo Repository) *Issuer {
	return &Issuer{repo: repo, now: time.Now}
}

// IssueOpaque creates a high-entropy token for the owner and purpose,
// invalidating prior unused tokens for the same pair. Returns the
// plaintext secret; only its digest is persisted.
func (i *Issuer) IssueOpaque(ctx context.Context, ownerID int64, superAdmin bool, purpose Purpose) (string, *Record, error) {
	secret, err := randomSecret()
	if err != nil {
		return "", nil, err
	}
	now := i.now().UTC()
	rec := &Record{
		OwnerID:         ownerID,
		OwnerSuperAdmin: superAdmin,
		Purpose:         purpose,
		Digest:          DigestSecret(secret),
		CreatedAt:       now,
		ExpiresAt:       now.Add(purpose.TTL()),
	}
	if err := i.repo.Replace(ctx, rec); err != nil {
		return "", nil, err
	}
	return secret, rec, nil
}

// IssueInvite creates an invitation token for a pending user. When
// withTempPassword is set, a generated temporary password is hashed into
// the record and returned alongside the token secret.
func (i *Issuer) IssueInvite(ctx context.Context, userID int64, withTempPassword bool) (secret, tempPassword string, rec *Record, err error) {
	secret, err = randomSecret()
	if err != nil {
		return "", "", nil, err
	}
	now := i.now().UTC()
	rec = &Record{
		OwnerID:   userID,
		Purpose:   PurposeInvite,
		Digest:    DigestSecret(secret),
		CreatedAt: now,
		ExpiresAt: now.Add(PurposeInvite.TTL()),
	}
	if withTempPassword {
		tempPassword, err = generateTempPassword()
		if err != nil {
			return "", "", nil, err
		}
		hash, err := bcrypt.GenerateFromPassword([]byte(tempPassword), bcrypt.DefaultCost)
		if err != nil {
			return "", "", nil, err
		}
		rec.TempPasswordHash = string(hash)
	}
	if err = i.repo.Replace(ctx, rec); err != nil {
		return "", "", nil, err
	}
	return secret, tempPassword, rec, nil
}

// IssueOTP creates a 6-digit code bound to the owner's email, replacing
// any prior unused OTP for the owner.
func (i *Issuer) IssueOTP(ctx context.Context, ownerID int64, superAdmin bool, email string) (string, *Record, error) {
	code, err := randomOTP()
	if err != nil {
		return "", nil, err
	}
	digest, err := bcrypt.GenerateFromPassword([]byte(code), bcrypt.DefaultCost)
	if err != nil {
		return "", nil, err
	}
	now := i.now().UTC()
	rec := &Record{
		OwnerID:         ownerID,
		OwnerSuperAdmin: superAdmin,
		Purpose:         PurposeOTP,
		Digest:          string(digest),
		Email:           email,
		CreatedAt:       now,
		ExpiresAt:       now.Add(PurposeOTP.TTL()),
	}
	if err := i.repo.Replace(ctx, rec); err != nil {
		return "", nil, err
	}
	return code, rec, nil
}

// VerifyOpaque resolves a presented secret to its unused, unexpired
// record. Mismatch, expiry and prior use all yield ErrTokenInvalid.
func (i *Issuer) VerifyOpaque(ctx context.Context, secret string, purpose Purpose) (*Record, error) {
	rec, err := i.repo.FindByDigest(ctx, DigestSecret(secret), purpose)
	if err != nil {
		return nil, err
	}
	if rec.Used || !rec.ExpiresAt.After(i.now()) {
		return nil, shared.ErrTokenInvalid
	}
	return rec, nil
}

// VerifyOTP checks a presented code against the owner's latest unused
// OTP. Failed attempts are counted; crossing MaxOTPAttempts burns the
// token so an offline search of the 6-digit space cannot be replayed.
func (i *Issuer) VerifyOTP(ctx context.Context, ownerID int64, superAdmin bool, code string) (*Record, error) {
	rec, err := i.repo.FindLatest(ctx, ownerID, superAdmin, PurposeOTP)
	if err != nil {
		return nil, err
	}
	if rec.Used || !rec.ExpiresAt.After(i.now()) {
		return nil, shared.ErrTokenInvalid
	}
	if bcrypt.CompareHashAndPassword([]byte(rec.Digest), []byte(code)) != nil {
		attempts, aerr := i.repo.IncrementAttempts(ctx, rec.ID)
		if aerr == nil && attempts >= MaxOTPAttempts {
			_ = i.repo.MarkUsed(ctx, rec.ID)
		}
		return nil, shared.ErrTokenInvalid
	}
	return rec, nil
}

// Consume marks a token used. A second consume fails because the row is
// already used.
func (i *Issuer) Consume(ctx context.Context, rec *Record) error {
	return i.repo.MarkUsed(ctx, rec.ID)
}

// DigestSecret computes the deterministic digest stored for high-entropy
// secrets.
func DigestSecret(secret string) string {
	sum := sha256.Sum256([]byte(secret))
	return hex.EncodeToString(sum[:])
}

func randomSecret() (string, error) {
	buf := make([]byte, 32)
	if _, err := rand.Read(buf); err != nil {
		return "", err
	}
	return hex.EncodeToString(buf), nil
}

func randomOTP() (string, error) {
	n, err := rand.Int(rand.Reader, big.NewInt(1000000))
	if err != nil {
		return "", err
	}
	return fmt.Sprintf("%06d", n.Int64()), nil
}

const tempPasswordCharset = "abcdefghijklmnopqrstuvwxyzABCDEFGHIJKLMNOPQRSTUVWXYZ0123456789!@#$%^&*()_+"

// generateTempPassword produces a 12-character password containing at
// least one upper, lower, digit and symbol character.
func generateTempPassword() (string, error) {
	classes := []string{
		"ABCDEFGHIJKLMNOPQRSTUVWXYZ",
		"abcdefghijklmnopqrstuvwxyz",
		"0123456789",
		"!@#$%^&*()_+",
	}
	out := make([]byte, 0, 12)
	for _, class := range classes {
		c, err := randomIndex(len(class))
		if err != nil {
			return "", err
		}
		out = append(out, class[c])
	}
	for len(out) < 12 {
		c, err := randomIndex(len(tempPasswordCharset))
		if err != nil {
			return "", err
		}
		out = append(out, tempPasswordCharset[c])
	}
	// Shuffle so the required classes are not always in front.
	for i := len(out) - 1; i > 0; i-- {
		j, err := randomIndex(i + 1)
		if err != nil {
			return "", err
		}
		out[i], out[j] = out[j], out[i]
	}
	return string(out), nil
}

func randomIndex(n int) (int, error) {
	v, err := rand.Int(rand.Reader, big.NewInt(int64(n)))
	if err != nil {
		return 0, err
	}
	return int(v.Int64()), nil
}
