package users

import (
	"context"
	"errors"
	"fmt"
	"log/slog"

	"golang.org/x/crypto/bcrypt"
	"golang.org/x/sync/errgroup"

	"github.com/daniry/backoffice/internal/identity"
	"github.com/daniry/backoffice/internal/mailer"
	"github.com/daniry/backoffice/internal/rbac"
	"github.com/daniry/backoffice/internal/shared"
	"github.com/daniry/backoffice/internal/token"
)

// ErrTempPasswordMismatch is returned when the invitation carries a
// temporary password and the presented one does not match.
var ErrTempPasswordMismatch = errors.New("users: temporary password does not match")

// Catalog lists every permission slug known to the system. Used to
// expand the super-admin wildcard for API consumers.
type Catalog interface {
	AllPermissionSlugs(ctx context.Context) ([]string, error)
}

// Service owns the delegated-user lifecycle: invite, activate, update,
// deactivate, and the effective-permission read for any identity.
type Service struct {
	repo        Repository
	identities  *identity.Service
	tokens      *token.Issuer
	mail        mailer.Mailer
	resolver    *rbac.Resolver
	catalog     Catalog
	frontendURL string
	tempEnabled bool
	logger      *slog.Logger
}

// NewService constructs a Service. tempEnabled switches the temporary
// password step of the invitation flow on or off.
func NewService(repo Repository, identities *identity.Service, tokens *token.Issuer, mail mailer.Mailer, resolver *rbac.Resolver, catalog Catalog, frontendURL string, tempEnabled bool, logger *slog.Logger) *Service {
	return &Service{
		repo:        repo,
		identities:  identities,
		tokens:      tokens,
		mail:        mail,
		resolver:    resolver,
		catalog:     catalog,
		frontendURL: frontendURL,
		tempEnabled: tempEnabled,
		logger:      logger,
	}
}

// Invite creates a PENDING user with its role assignments and granted
// overrides, issues an invitation token and mails the setup link. The
// user exists and the token is valid even when delivery fails.
func (s *Service) Invite(ctx context.Context, name, email string, roleIDs []int64, grantedSlugs []string) (*User, error) {
	id, err := s.repo.CreateInvited(ctx, name, email, roleIDs, grantedSlugs)
	if err != nil {
		return nil, err
	}

	secret, tempPassword, _, err := s.tokens.IssueInvite(ctx, id, s.tempEnabled)
	if err != nil {
		return nil, err
	}

	user, err := s.repo.FindByID(ctx, id)
	if err != nil {
		return nil, err
	}

	setupURL := fmt.Sprintf("%s/setup-password/%s", s.frontendURL, secret)
	msg := mailer.Message{
		To:      email,
		Subject: "You're Invited to the Admin Panel",
		HTML:    mailer.InvitationHTML(name, setupURL, tempPassword),
	}
	if err := s.mail.Send(ctx, msg); err != nil {
		if s.logger != nil {
			s.logger.Error("send invitation email", slog.Any("error", err))
		}
		return user, shared.ErrMailDelivery
	}
	return user, nil
}

// VerifyInvitation resolves an invitation secret to the pending account
// without consuming the token.
func (s *Service) VerifyInvitation(ctx context.Context, secret string) (*Invitation, error) {
	rec, err := s.tokens.VerifyOpaque(ctx, secret, token.PurposeInvite)
	if err != nil {
		return nil, err
	}
	user, err := s.repo.FindByID(ctx, rec.OwnerID)
	if err != nil || user.Status != identity.StatusPending {
		return nil, shared.ErrTokenInvalid
	}
	return &Invitation{
		Name:                 user.Name,
		Email:                user.Email,
		RequiresTempPassword: rec.TempPasswordHash != "",
	}, nil
}

// SetupPassword redeems an invitation: check the temporary password when
// the token carries one, enforce the password policy, store the
// credential, flip the account to ACTIVE and consume the token.
func (s *Service) SetupPassword(ctx context.Context, secret, password, tempPassword string) error {
	rec, err := s.tokens.VerifyOpaque(ctx, secret, token.PurposeInvite)
	if err != nil {
		return err
	}
	if rec.TempPasswordHash != "" {
		if bcrypt.CompareHashAndPassword([]byte(rec.TempPasswordHash), []byte(tempPassword)) != nil {
			return ErrTempPasswordMismatch
		}
	}
	if err := identity.ValidatePasswordStrength(password); err != nil {
		return err
	}
	if err := s.identities.SetPassword(ctx, rec.OwnerID, false, password); err != nil {
		return err
	}
	if err := s.repo.Activate(ctx, rec.OwnerID); err != nil {
		return shared.ErrTokenInvalid
	}
	return s.tokens.Consume(ctx, rec)
}

// List returns every delegated user with role assignments.
func (s *Service) List(ctx context.Context) ([]User, error) {
	return s.repo.List(ctx)
}

// Get returns one user with role assignments and overrides.
func (s *Service) Get(ctx context.Context, id int64) (*Detail, error) {
	var (
		user      *User
		overrides []Override
	)

	g, ctx := errgroup.WithContext(ctx)
	g.Go(func() error {
		var err error
		user, err = s.repo.FindByID(ctx, id)
		return err
	})
	g.Go(func() error {
		var err error
		overrides, err = s.repo.Overrides(ctx, id)
		return err
	})
	if err := g.Wait(); err != nil {
		return nil, err
	}
	return &Detail{User: *user, Overrides: overrides}, nil
}

// Update replaces profile fields, roles and overrides, then drops the
// user's cached permission set so the next check sees the new grants.
func (s *Service) Update(ctx context.Context, id int64, name, email string, roleIDs []int64, overrides []Override) (*Detail, error) {
	if err := s.repo.Update(ctx, id, name, email, roleIDs, overrides); err != nil {
		return nil, err
	}
	s.resolver.Invalidate(id)
	return s.Get(ctx, id)
}

// Deactivate soft-deletes a user and drops their cached permissions.
func (s *Service) Deactivate(ctx context.Context, id int64) error {
	if err := s.repo.Deactivate(ctx, id); err != nil {
		return err
	}
	s.resolver.Invalidate(id)
	return nil
}

// EffectivePermissions returns the caller's permission slugs. Super
// admins get the full catalog instead of the wildcard marker so the
// frontend can render per-feature toggles without special-casing.
func (s *Service) EffectivePermissions(ctx context.Context, ident *shared.Identity) ([]string, error) {
	if ident.SuperAdmin {
		return s.catalog.AllPermissionSlugs(ctx)
	}
	set, err := s.resolver.Resolve(ctx, ident.ID, false)
	if err != nil {
		return nil, err
	}
	return set.Slugs(), nil
}
