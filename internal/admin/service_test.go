package admin

import (
	"context"
	"errors"
	"strings"
	"testing"
	"time"

	"github.com/stretchr/testify/require"
	"golang.org/x/crypto/bcrypt"

	"github.com/daniry/backoffice/internal/identity"
	"github.com/daniry/backoffice/internal/mailer"
	"github.com/daniry/backoffice/internal/shared"
	"github.com/daniry/backoffice/internal/token"
	_ "github.com/daniry/backoffice/testing"
)

type stubIdentityRepo struct {
	admin *identity.Admin
	user  *identity.User
}

func (s *stubIdentityRepo) CountAdmins(ctx context.Context) (int64, error) {
	if s.admin != nil {
		return 1, nil
	}
	return 0, nil
}

func (s *stubIdentityRepo) CreateAdmin(ctx context.Context, name, email, hash string) (int64, error) {
	s.admin = &identity.Admin{ID: 1, Name: name, Email: email, PasswordHash: hash, IsActive: true}
	return 1, nil
}

func (s *stubIdentityRepo) FindAdminByEmail(ctx context.Context, email string) (*identity.Admin, error) {
	if s.admin == nil || s.admin.Email != email {
		return nil, shared.ErrNotFound
	}
	clone := *s.admin
	return &clone, nil
}

func (s *stubIdentityRepo) FindActiveAdminByID(ctx context.Context, id int64) (*identity.Admin, error) {
	if s.admin == nil || s.admin.ID != id || !s.admin.IsActive {
		return nil, shared.ErrNotFound
	}
	clone := *s.admin
	return &clone, nil
}

func (s *stubIdentityRepo) UpdateAdminPassword(ctx context.Context, id int64, hash string) error {
	if s.admin == nil || s.admin.ID != id {
		return shared.ErrNotFound
	}
	s.admin.PasswordHash = hash
	return nil
}

func (s *stubIdentityRepo) UpdateAdminProfile(ctx context.Context, id int64, name, email string) error {
	if s.admin == nil || s.admin.ID != id {
		return shared.ErrNotFound
	}
	s.admin.Name, s.admin.Email = name, email
	return nil
}

func (s *stubIdentityRepo) FindUserByEmail(ctx context.Context, email string) (*identity.User, error) {
	if s.user == nil || s.user.Email != email {
		return nil, shared.ErrNotFound
	}
	clone := *s.user
	return &clone, nil
}

func (s *stubIdentityRepo) FindActiveUserByID(ctx context.Context, id int64) (*identity.User, error) {
	if s.user == nil || s.user.ID != id || s.user.Status != identity.StatusActive {
		return nil, shared.ErrNotFound
	}
	clone := *s.user
	return &clone, nil
}

func (s *stubIdentityRepo) UpdateUserPassword(ctx context.Context, id int64, hash string) error {
	if s.user == nil || s.user.ID != id {
		return shared.ErrNotFound
	}
	s.user.PasswordHash = hash
	return nil
}

func (s *stubIdentityRepo) UpdateUserProfile(ctx context.Context, id int64, name, email string) error {
	if s.user == nil || s.user.ID != id {
		return shared.ErrNotFound
	}
	s.user.Name, s.user.Email = name, email
	return nil
}

var _ identity.Repository = (*stubIdentityRepo)(nil)

type stubTokenRepo struct {
	recs   map[int64]*token.Record
	nextID int64
}

func newStubTokenRepo() *stubTokenRepo {
	return &stubTokenRepo{recs: make(map[int64]*token.Record)}
}

func (r *stubTokenRepo) Replace(ctx context.Context, rec *token.Record) error {
	for id, existing := range r.recs {
		if !existing.Used && existing.OwnerID == rec.OwnerID && existing.OwnerSuperAdmin == rec.OwnerSuperAdmin && existing.Purpose == rec.Purpose {
			delete(r.recs, id)
		}
	}
	r.nextID++
	rec.ID = r.nextID
	clone := *rec
	r.recs[rec.ID] = &clone
	return nil
}

func (r *stubTokenRepo) FindByDigest(ctx context.Context, digest string, purpose token.Purpose) (*token.Record, error) {
	for _, rec := range r.recs {
		if rec.Digest == digest && rec.Purpose == purpose && !rec.Used {
			clone := *rec
			return &clone, nil
		}
	}
	return nil, shared.ErrTokenInvalid
}

func (r *stubTokenRepo) FindLatest(ctx context.Context, ownerID int64, superAdmin bool, purpose token.Purpose) (*token.Record, error) {
	var latest *token.Record
	for _, rec := range r.recs {
		if rec.OwnerID != ownerID || rec.OwnerSuperAdmin != superAdmin || rec.Purpose != purpose || rec.Used {
			continue
		}
		if latest == nil || rec.CreatedAt.After(latest.CreatedAt) {
			latest = rec
		}
	}
	if latest == nil {
		return nil, shared.ErrTokenInvalid
	}
	clone := *latest
	return &clone, nil
}

func (r *stubTokenRepo) MarkUsed(ctx context.Context, id int64) error {
	rec, ok := r.recs[id]
	if !ok || rec.Used {
		return shared.ErrTokenInvalid
	}
	rec.Used = true
	return nil
}

func (r *stubTokenRepo) IncrementAttempts(ctx context.Context, id int64) (int, error) {
	rec, ok := r.recs[id]
	if !ok {
		return 0, shared.ErrTokenInvalid
	}
	rec.Attempts++
	return rec.Attempts, nil
}

func (r *stubTokenRepo) DeleteInert(ctx context.Context) (int64, error) {
	var removed int64
	now := time.Now()
	for id, rec := range r.recs {
		if rec.Used || !rec.ExpiresAt.After(now) {
			delete(r.recs, id)
			removed++
		}
	}
	return removed, nil
}

var _ token.Repository = (*stubTokenRepo)(nil)

type captureMailer struct {
	sent []mailer.Message
	fail bool
}

func (m *captureMailer) Send(ctx context.Context, msg mailer.Message) error {
	if m.fail {
		return errors.New("smtp: connection refused")
	}
	m.sent = append(m.sent, msg)
	return nil
}

func newTestService(t *testing.T) (*Service, *identity.Service, *stubIdentityRepo, *captureMailer) {
	t.Helper()
	hash, err := bcrypt.GenerateFromPassword([]byte("Or1ginal$"), bcrypt.MinCost)
	require.NoError(t, err)
	repo := &stubIdentityRepo{
		admin: &identity.Admin{ID: 1, Name: "Root", Email: "root@daniry.local", PasswordHash: string(hash), IsActive: true},
	}
	identities := identity.NewService(repo)
	issuer := token.NewIssuer(newStubTokenRepo())
	mail := &captureMailer{}
	svc := NewService(identities, issuer, mail, "https://admin.daniry.local", nil)
	return svc, identities, repo, mail
}

func extractResetSecret(t *testing.T, html string) string {
	t.Helper()
	marker := "/admin/reset-password/"
	idx := strings.Index(html, marker)
	require.GreaterOrEqual(t, idx, 0)
	rest := html[idx+len(marker):]
	end := strings.IndexAny(rest, `"<`)
	require.Greater(t, end, 0)
	return rest[:end]
}

func TestPasswordResetFlow(t *testing.T) {
	svc, identities, _, mail := newTestService(t)
	ctx := context.Background()

	require.NoError(t, svc.RequestPasswordReset(ctx, "root@daniry.local"))
	require.Len(t, mail.sent, 1)
	require.Equal(t, "root@daniry.local", mail.sent[0].To)

	secret := extractResetSecret(t, mail.sent[0].HTML)

	email, err := svc.VerifyResetToken(ctx, secret)
	require.NoError(t, err)
	require.Equal(t, "root@daniry.local", email)

	// Verification does not consume: the same secret still redeems.
	require.NoError(t, svc.ResetPassword(ctx, secret, "N3wSecret$"))

	_, err = identities.Login(ctx, "root@daniry.local", "N3wSecret$")
	require.NoError(t, err)
	_, err = identities.Login(ctx, "root@daniry.local", "Or1ginal$")
	require.ErrorIs(t, err, shared.ErrInvalidCredentials)

	// The token was consumed by the reset.
	require.ErrorIs(t, svc.ResetPassword(ctx, secret, "An0ther$$"), shared.ErrTokenInvalid)
}

func TestPasswordResetUnknownEmailIsSilent(t *testing.T) {
	svc, _, _, mail := newTestService(t)

	require.NoError(t, svc.RequestPasswordReset(context.Background(), "nobody@daniry.local"))
	require.Empty(t, mail.sent)
}

func TestPasswordResetMailFailure(t *testing.T) {
	svc, _, _, mail := newTestService(t)
	mail.fail = true

	err := svc.RequestPasswordReset(context.Background(), "root@daniry.local")
	require.ErrorIs(t, err, shared.ErrMailDelivery)
}

func TestVerifyResetTokenRejectsGarbage(t *testing.T) {
	svc, _, _, _ := newTestService(t)

	_, err := svc.VerifyResetToken(context.Background(), "deadbeef")
	require.ErrorIs(t, err, shared.ErrTokenInvalid)
}

func extractOTP(t *testing.T, html string) string {
	t.Helper()
	idx := strings.Index(html, "<strong>")
	require.GreaterOrEqual(t, idx, 0)
	rest := html[idx+len("<strong>"):]
	end := strings.Index(rest, "</strong>")
	require.Greater(t, end, 0)
	return rest[:end]
}

func TestOTPPasswordChangeFlow(t *testing.T) {
	svc, identities, _, mail := newTestService(t)
	ctx := context.Background()
	ident := &shared.Identity{ID: 1, Name: "Root", Email: "root@daniry.local", SuperAdmin: true}

	require.NoError(t, svc.SendSecurityOTP(ctx, ident))
	require.Len(t, mail.sent, 1)
	code := extractOTP(t, mail.sent[0].HTML)

	require.ErrorIs(t, svc.UpdatePasswordWithOTP(ctx, ident, code, "weak"), identity.ErrWeakPassword)

	require.NoError(t, svc.UpdatePasswordWithOTP(ctx, ident, code, "Fresh$tart1"))
	_, err := identities.Login(ctx, "root@daniry.local", "Fresh$tart1")
	require.NoError(t, err)

	// Consumed: the same code cannot change the password twice.
	require.ErrorIs(t, svc.UpdatePasswordWithOTP(ctx, ident, code, "Again$tart1"), shared.ErrTokenInvalid)
}

func TestOTPWrongCode(t *testing.T) {
	svc, _, _, mail := newTestService(t)
	ctx := context.Background()
	ident := &shared.Identity{ID: 1, Name: "Root", Email: "root@daniry.local", SuperAdmin: true}

	require.NoError(t, svc.SendSecurityOTP(ctx, ident))
	code := extractOTP(t, mail.sent[0].HTML)
	wrong := "000000"
	if wrong == code {
		wrong = "000001"
	}

	require.ErrorIs(t, svc.UpdatePasswordWithOTP(ctx, ident, wrong, "Fresh$tart1"), shared.ErrTokenInvalid)
}
