package identity

import (
	"errors"
	"unicode"
)

// ErrWeakPassword is returned when a new password misses the policy:
// at least 8 characters with upper, lower, digit and symbol.
var ErrWeakPassword = errors.New("password must be at least 8 characters and include uppercase, lowercase, number and symbol")

// ValidatePasswordStrength enforces the password policy for the
// OTP-gated password change and the invitation setup flow.
func ValidatePasswordStrength(password string) error {
	if len(password) < 8 {
		return ErrWeakPassword
	}
	var upper, lower, digit, symbol bool
	for _, r := range password {
		switch {
		case unicode.IsUpper(r):
			upper = true
		case unicode.IsLower(r):
			lower = true
		case unicode.IsDigit(r):
			digit = true
		case unicode.IsPunct(r) || unicode.IsSymbol(r):
			symbol = true
		}
	}
	if !upper || !lower || !digit || !symbol {
		return ErrWeakPassword
	}
	return nil
}
