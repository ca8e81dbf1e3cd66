package admin

import (
	"context"
	"fmt"
	"log/slog"

	"github.com/daniry/backoffice/internal/identity"
	"github.com/daniry/backoffice/internal/mailer"
	"github.com/daniry/backoffice/internal/shared"
	"github.com/daniry/backoffice/internal/token"
)

// Service orchestrates the credential-recovery flows for admin accounts
// and the OTP-gated password change for any authenticated identity.
type Service struct {
	identities  *identity.Service
	tokens      *token.Issuer
	mail        mailer.Mailer
	frontendURL string
	logger      *slog.Logger
}

// NewService constructs a Service.
func NewService(identities *identity.Service, tokens *token.Issuer, mail mailer.Mailer, frontendURL string, logger *slog.Logger) *Service {
	return &Service{identities: identities, tokens: tokens, mail: mail, frontendURL: frontendURL, logger: logger}
}

// RequestPasswordReset issues a reset token for the admin matching the
// email and mails the reset link. An unknown email is not an error: the
// caller answers with the same generic message either way, so the
// endpoint cannot be used to enumerate accounts.
func (s *Service) RequestPasswordReset(ctx context.Context, email string) error {
	admin, ok, err := s.identities.AdminEmailExists(ctx, email)
	if err != nil {
		return err
	}
	if !ok {
		return nil
	}

	secret, _, err := s.tokens.IssueOpaque(ctx, admin.ID, true, token.PurposeReset)
	if err != nil {
		return err
	}

	resetURL := fmt.Sprintf("%s/admin/reset-password/%s", s.frontendURL, secret)
	msg := mailer.Message{
		To:      admin.Email,
		Subject: "Password Reset Request",
		HTML:    mailer.PasswordResetHTML(resetURL),
	}
	if err := s.mail.Send(ctx, msg); err != nil {
		// The token is already persisted and valid; delivery failure is
		// reported distinctly from validation failures.
		if s.logger != nil {
			s.logger.Error("send reset email", slog.Any("error", err))
		}
		return shared.ErrMailDelivery
	}
	return nil
}

// VerifyResetToken resolves a presented reset secret to the owning
// admin's email without consuming the token.
func (s *Service) VerifyResetToken(ctx context.Context, secret string) (string, error) {
	rec, err := s.tokens.VerifyOpaque(ctx, secret, token.PurposeReset)
	if err != nil {
		return "", err
	}
	ident, err := s.identities.Get(ctx, rec.OwnerID, rec.OwnerSuperAdmin)
	if err != nil {
		return "", shared.ErrTokenInvalid
	}
	return ident.Email, nil
}

// ResetPassword redeems a reset token: verify, store the new hash for
// the owning identity class, consume.
func (s *Service) ResetPassword(ctx context.Context, secret, password string) error {
	rec, err := s.tokens.VerifyOpaque(ctx, secret, token.PurposeReset)
	if err != nil {
		return err
	}
	if err := s.identities.SetPassword(ctx, rec.OwnerID, rec.OwnerSuperAdmin, password); err != nil {
		return err
	}
	return s.tokens.Consume(ctx, rec)
}

// SendSecurityOTP issues a password-change OTP bound to the caller's
// email and mails the code.
func (s *Service) SendSecurityOTP(ctx context.Context, ident *shared.Identity) error {
	code, _, err := s.tokens.IssueOTP(ctx, ident.ID, ident.SuperAdmin, ident.Email)
	if err != nil {
		return err
	}
	msg := mailer.Message{
		To:      ident.Email,
		Subject: "Your Security Verification Code",
		HTML:    mailer.SecurityOTPHTML(code),
	}
	if err := s.mail.Send(ctx, msg); err != nil {
		if s.logger != nil {
			s.logger.Error("send otp email", slog.Any("error", err))
		}
		return shared.ErrMailDelivery
	}
	return nil
}

// UpdatePasswordWithOTP redeems an OTP for the authenticated identity
// and stores the new password hash in that identity's table.
func (s *Service) UpdatePasswordWithOTP(ctx context.Context, ident *shared.Identity, otp, newPassword string) error {
	if err := identity.ValidatePasswordStrength(newPassword); err != nil {
		return err
	}
	rec, err := s.tokens.VerifyOTP(ctx, ident.ID, ident.SuperAdmin, otp)
	if err != nil {
		return err
	}
	if err := s.identities.SetPassword(ctx, ident.ID, ident.SuperAdmin, newPassword); err != nil {
		return err
	}
	return s.tokens.Consume(ctx, rec)
}
