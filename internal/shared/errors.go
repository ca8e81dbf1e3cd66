package shared

import "errors"

var (
	// ErrNotFound indicates resource not found.
	ErrNotFound = errors.New("not found")
	// ErrInvalidCredentials indicates login failure.
	ErrInvalidCredentials = errors.New("invalid credentials")
	// ErrDuplicate indicates a unique constraint violation.
	ErrDuplicate = errors.New("duplicate entry")
	// ErrUnauthenticated indicates a missing or invalid session.
	ErrUnauthenticated = errors.New("not authenticated")
	// ErrForbidden indicates insufficient permissions.
	ErrForbidden = errors.New("forbidden")
	// ErrTokenInvalid covers every credential-token verification failure.
	// Mismatch, expiry and prior use collapse into this one error so the
	// response never reveals which condition failed.
	ErrTokenInvalid = errors.New("invalid or expired token")
	// ErrMailDelivery indicates the token was issued but the email send failed.
	ErrMailDelivery = errors.New("email delivery failed")
)
