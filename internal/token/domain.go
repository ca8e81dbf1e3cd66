package token

import "time"

// Purpose tags a credential token with the flow that issued it.
type Purpose string

const (
	PurposeReset  Purpose = "PASSWORD_RESET"
	PurposeInvite Purpose = "INVITATION"
	PurposeOTP    Purpose = "PASSWORD_CHANGE"
)

// TTL returns the validity window for the purpose.
func (p Purpose) TTL() time.Duration {
	switch p {
	case PurposeReset:
		return 15 * time.Minute
	case PurposeInvite:
		return 7 * 24 * time.Hour
	case PurposeOTP:
		return 10 * time.Minute
	default:
		return 15 * time.Minute
	}
}

// MaxOTPAttempts caps failed OTP verifications before the token is burned.
const MaxOTPAttempts = 5

// Record is a persisted credential token. Only the one-way digest of the
// secret is stored; the plaintext exists solely in the issuing response.
type Record struct {
	ID              int64
	OwnerID         int64
	OwnerSuperAdmin bool
	Purpose         Purpose
	Digest          string
	// TempPasswordHash holds the bcrypt hash of the invitation temporary
	// password when that step is enabled; empty otherwise.
	TempPasswordHash string
	// Email binds an OTP to the address it was sent to.
	Email     string
	Attempts  int
	Used      bool
	CreatedAt time.Time
	ExpiresAt time.Time
}
