package identity

import (
	"context"
	"errors"

	"golang.org/x/crypto/bcrypt"

	"github.com/daniry/backoffice/internal/shared"
)

// ErrRegistrationLocked is returned once an admin account exists.
var ErrRegistrationLocked = errors.New("identity: registration is locked")

// Service wraps authentication and credential-update business rules for
// both identity classes. Password and profile updates are dispatched by
// the SuperAdmin tag instead of interpolating table names into queries.
type Service struct {
	repo Repository
}

// NewService constructs a new Service.
func NewService(repo Repository) *Service {
	return &Service{repo: repo}
}

// RegisterAdmin creates the first admin account. Registration locks as
// soon as one admin exists.
func (s *Service) RegisterAdmin(ctx context.Context, name, email, password string) (int64, error) {
	count, err := s.repo.CountAdmins(ctx)
	if err != nil {
		return 0, err
	}
	if count > 0 {
		return 0, ErrRegistrationLocked
	}
	hash, err := bcrypt.GenerateFromPassword([]byte(password), bcrypt.DefaultCost)
	if err != nil {
		return 0, err
	}
	return s.repo.CreateAdmin(ctx, name, email, string(hash))
}

// Login validates email/password credentials against the admins table
// first, then ACTIVE delegated users. Every failure collapses into
// ErrInvalidCredentials.
func (s *Service) Login(ctx context.Context, email, password string) (*shared.Identity, error) {
	admin, err := s.repo.FindAdminByEmail(ctx, email)
	if err == nil && admin.IsActive {
		if bcrypt.CompareHashAndPassword([]byte(admin.PasswordHash), []byte(password)) == nil {
			return &shared.Identity{ID: admin.ID, Name: admin.Name, Email: admin.Email, SuperAdmin: true}, nil
		}
		return nil, shared.ErrInvalidCredentials
	}

	user, err := s.repo.FindUserByEmail(ctx, email)
	if err != nil || user.Status != StatusActive || user.PasswordHash == "" {
		return nil, shared.ErrInvalidCredentials
	}
	if bcrypt.CompareHashAndPassword([]byte(user.PasswordHash), []byte(password)) != nil {
		return nil, shared.ErrInvalidCredentials
	}
	return &shared.Identity{ID: user.ID, Name: user.Name, Email: user.Email, SuperAdmin: false}, nil
}

// ResolveByID maps a session subject id to exactly one identity. The
// admins table takes precedence on an id collision; a valid signature
// with no matching active account still resolves to ErrUnauthenticated.
func (s *Service) ResolveByID(ctx context.Context, id int64) (*shared.Identity, error) {
	admin, err := s.repo.FindActiveAdminByID(ctx, id)
	if err == nil {
		return &shared.Identity{ID: admin.ID, Name: admin.Name, Email: admin.Email, SuperAdmin: true}, nil
	}
	if !errors.Is(err, shared.ErrNotFound) {
		return nil, err
	}

	user, err := s.repo.FindActiveUserByID(ctx, id)
	if err == nil {
		return &shared.Identity{ID: user.ID, Name: user.Name, Email: user.Email, SuperAdmin: false}, nil
	}
	if !errors.Is(err, shared.ErrNotFound) {
		return nil, err
	}
	return nil, shared.ErrUnauthenticated
}

// SetPassword hashes and stores a new password for the identity class
// selected by the superAdmin tag.
func (s *Service) SetPassword(ctx context.Context, id int64, superAdmin bool, password string) error {
	hash, err := bcrypt.GenerateFromPassword([]byte(password), bcrypt.DefaultCost)
	if err != nil {
		return err
	}
	if superAdmin {
		return s.repo.UpdateAdminPassword(ctx, id, string(hash))
	}
	return s.repo.UpdateUserPassword(ctx, id, string(hash))
}

// VerifyPassword checks the current password of the identity class
// selected by the superAdmin tag.
func (s *Service) VerifyPassword(ctx context.Context, id int64, superAdmin bool, password string) error {
	var hash string
	if superAdmin {
		admin, err := s.repo.FindActiveAdminByID(ctx, id)
		if err != nil {
			return shared.ErrInvalidCredentials
		}
		hash = admin.PasswordHash
	} else {
		user, err := s.repo.FindActiveUserByID(ctx, id)
		if err != nil {
			return shared.ErrInvalidCredentials
		}
		hash = user.PasswordHash
	}
	if bcrypt.CompareHashAndPassword([]byte(hash), []byte(password)) != nil {
		return shared.ErrInvalidCredentials
	}
	return nil
}

// UpdateProfile updates name and email for the identity class selected
// by the superAdmin tag.
func (s *Service) UpdateProfile(ctx context.Context, id int64, superAdmin bool, name, email string) error {
	if superAdmin {
		return s.repo.UpdateAdminProfile(ctx, id, name, email)
	}
	return s.repo.UpdateUserProfile(ctx, id, name, email)
}

// Get fetches the identity of the class selected by the superAdmin tag,
// filtered to active accounts.
func (s *Service) Get(ctx context.Context, id int64, superAdmin bool) (*shared.Identity, error) {
	if superAdmin {
		admin, err := s.repo.FindActiveAdminByID(ctx, id)
		if err != nil {
			return nil, err
		}
		return &shared.Identity{ID: admin.ID, Name: admin.Name, Email: admin.Email, SuperAdmin: true}, nil
	}
	user, err := s.repo.FindActiveUserByID(ctx, id)
	if err != nil {
		return nil, err
	}
	return &shared.Identity{ID: user.ID, Name: user.Name, Email: user.Email, SuperAdmin: false}, nil
}

// AdminEmailExists reports whether an admin account matches the email.
// Used by the reset flow, which must answer identically either way.
func (s *Service) AdminEmailExists(ctx context.Context, email string) (*Admin, bool, error) {
	admin, err := s.repo.FindAdminByEmail(ctx, email)
	if errors.Is(err, shared.ErrNotFound) {
		return nil, false, nil
	}
	if err != nil {
		return nil, false, err
	}
	return admin, true, nil
}
