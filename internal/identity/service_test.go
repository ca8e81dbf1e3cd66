package identity

import (
	"context"
	"testing"

	"github.com/stretchr/testify/require"
	"golang.org/x/crypto/bcrypt"

	"github.com/daniry/backoffice/internal/shared"
	_ "github.com/daniry/backoffice/testing"
)

type memoryIdentityRepo struct {
	admins map[int64]*Admin
	users  map[int64]*User
	nextID int64
}

func newMemoryIdentityRepo() *memoryIdentityRepo {
	return &memoryIdentityRepo{admins: make(map[int64]*Admin), users: make(map[int64]*User)}
}

func (r *memoryIdentityRepo) CountAdmins(ctx context.Context) (int64, error) {
	return int64(len(r.admins)), nil
}

func (r *memoryIdentityRepo) CreateAdmin(ctx context.Context, name, email, passwordHash string) (int64, error) {
	for _, a := range r.admins {
		if a.Email == email {
			return 0, shared.ErrDuplicate
		}
	}
	r.nextID++
	r.admins[r.nextID] = &Admin{ID: r.nextID, Name: name, Email: email, PasswordHash: passwordHash, IsActive: true}
	return r.nextID, nil
}

func (r *memoryIdentityRepo) FindAdminByEmail(ctx context.Context, email string) (*Admin, error) {
	for _, a := range r.admins {
		if a.Email == email {
			clone := *a
			return &clone, nil
		}
	}
	return nil, shared.ErrNotFound
}

func (r *memoryIdentityRepo) FindActiveAdminByID(ctx context.Context, id int64) (*Admin, error) {
	a, ok := r.admins[id]
	if !ok || !a.IsActive {
		return nil, shared.ErrNotFound
	}
	clone := *a
	return &clone, nil
}

func (r *memoryIdentityRepo) UpdateAdminPassword(ctx context.Context, id int64, passwordHash string) error {
	a, ok := r.admins[id]
	if !ok {
		return shared.ErrNotFound
	}
	a.PasswordHash = passwordHash
	return nil
}

func (r *memoryIdentityRepo) UpdateAdminProfile(ctx context.Context, id int64, name, email string) error {
	a, ok := r.admins[id]
	if !ok {
		return shared.ErrNotFound
	}
	a.Name, a.Email = name, email
	return nil
}

func (r *memoryIdentityRepo) FindUserByEmail(ctx context.Context, email string) (*User, error) {
	for _, u := range r.users {
		if u.Email == email {
			clone := *u
			return &clone, nil
		}
	}
	return nil, shared.ErrNotFound
}

func (r *memoryIdentityRepo) FindActiveUserByID(ctx context.Context, id int64) (*User, error) {
	u, ok := r.users[id]
	if !ok || u.Status != StatusActive {
		return nil, shared.ErrNotFound
	}
	clone := *u
	return &clone, nil
}

func (r *memoryIdentityRepo) UpdateUserPassword(ctx context.Context, id int64, passwordHash string) error {
	u, ok := r.users[id]
	if !ok {
		return shared.ErrNotFound
	}
	u.PasswordHash = passwordHash
	return nil
}

func (r *memoryIdentityRepo) UpdateUserProfile(ctx context.Context, id int64, name, email string) error {
	u, ok := r.users[id]
	if !ok {
		return shared.ErrNotFound
	}
	u.Name, u.Email = name, email
	return nil
}

var _ Repository = (*memoryIdentityRepo)(nil)

func mustHash(t *testing.T, password string) string {
	t.Helper()
	hash, err := bcrypt.GenerateFromPassword([]byte(password), bcrypt.MinCost)
	require.NoError(t, err)
	return string(hash)
}

func TestRegistrationLocksAfterFirstAdmin(t *testing.T) {
	repo := newMemoryIdentityRepo()
	svc := NewService(repo)
	ctx := context.Background()

	id, err := svc.RegisterAdmin(ctx, "Root", "root@daniry.local", "Sup3r$ecret")
	require.NoError(t, err)
	require.NotZero(t, id)

	_, err = svc.RegisterAdmin(ctx, "Second", "second@daniry.local", "Sup3r$ecret")
	require.ErrorIs(t, err, ErrRegistrationLocked)
}

func TestLoginAdminTakesPrecedenceOverUser(t *testing.T) {
	repo := newMemoryIdentityRepo()
	repo.admins[1] = &Admin{ID: 1, Name: "Root", Email: "both@daniry.local", PasswordHash: mustHash(t, "adminpass"), IsActive: true}
	repo.users[2] = &User{ID: 2, Name: "Delegate", Email: "both@daniry.local", PasswordHash: mustHash(t, "userpass"), Status: StatusActive}
	svc := NewService(repo)
	ctx := context.Background()

	ident, err := svc.Login(ctx, "both@daniry.local", "adminpass")
	require.NoError(t, err)
	require.True(t, ident.SuperAdmin)
	require.Equal(t, int64(1), ident.ID)

	// The matching admin row wins the email even when the password only
	// matches the user row.
	_, err = svc.Login(ctx, "both@daniry.local", "userpass")
	require.ErrorIs(t, err, shared.ErrInvalidCredentials)
}

func TestLoginActiveUser(t *testing.T) {
	repo := newMemoryIdentityRepo()
	repo.users[3] = &User{ID: 3, Name: "Delegate", Email: "user@daniry.local", PasswordHash: mustHash(t, "userpass"), Status: StatusActive}
	svc := NewService(repo)

	ident, err := svc.Login(context.Background(), "user@daniry.local", "userpass")
	require.NoError(t, err)
	require.False(t, ident.SuperAdmin)
	require.Equal(t, int64(3), ident.ID)
}

func TestLoginRejectsNonActiveStates(t *testing.T) {
	repo := newMemoryIdentityRepo()
	repo.users[1] = &User{ID: 1, Email: "pending@daniry.local", Status: StatusPending}
	repo.users[2] = &User{ID: 2, Email: "inactive@daniry.local", PasswordHash: mustHash(t, "pass"), Status: StatusInactive}
	repo.users[3] = &User{ID: 3, Email: "active@daniry.local", PasswordHash: mustHash(t, "pass"), Status: StatusActive}
	svc := NewService(repo)
	ctx := context.Background()

	_, err := svc.Login(ctx, "pending@daniry.local", "anything")
	require.ErrorIs(t, err, shared.ErrInvalidCredentials)
	_, err = svc.Login(ctx, "inactive@daniry.local", "pass")
	require.ErrorIs(t, err, shared.ErrInvalidCredentials)
	_, err = svc.Login(ctx, "active@daniry.local", "wrong")
	require.ErrorIs(t, err, shared.ErrInvalidCredentials)
	_, err = svc.Login(ctx, "nobody@daniry.local", "pass")
	require.ErrorIs(t, err, shared.ErrInvalidCredentials)
}

func TestResolveByIDAdminPrecedence(t *testing.T) {
	repo := newMemoryIdentityRepo()
	repo.admins[7] = &Admin{ID: 7, Name: "Root", Email: "root@daniry.local", IsActive: true}
	repo.users[7] = &User{ID: 7, Name: "Delegate", Email: "user@daniry.local", Status: StatusActive}
	svc := NewService(repo)
	ctx := context.Background()

	ident, err := svc.ResolveByID(ctx, 7)
	require.NoError(t, err)
	require.True(t, ident.SuperAdmin)
	require.Equal(t, "root@daniry.local", ident.Email)
}

func TestResolveByIDInactiveIsUnauthenticated(t *testing.T) {
	repo := newMemoryIdentityRepo()
	repo.users[4] = &User{ID: 4, Email: "gone@daniry.local", Status: StatusInactive}
	svc := NewService(repo)

	_, err := svc.ResolveByID(context.Background(), 4)
	require.ErrorIs(t, err, shared.ErrUnauthenticated)
	_, err = svc.ResolveByID(context.Background(), 99)
	require.ErrorIs(t, err, shared.ErrUnauthenticated)
}

func TestSetPasswordDispatchesByClass(t *testing.T) {
	repo := newMemoryIdentityRepo()
	repo.admins[1] = &Admin{ID: 1, Email: "root@daniry.local", IsActive: true}
	repo.users[1] = &User{ID: 1, Email: "user@daniry.local", Status: StatusActive}
	svc := NewService(repo)
	ctx := context.Background()

	require.NoError(t, svc.SetPassword(ctx, 1, true, "Adm1n$ecret"))
	require.NoError(t, svc.SetPassword(ctx, 1, false, "User$ecret1"))

	require.NoError(t, svc.VerifyPassword(ctx, 1, true, "Adm1n$ecret"))
	require.NoError(t, svc.VerifyPassword(ctx, 1, false, "User$ecret1"))
	require.ErrorIs(t, svc.VerifyPassword(ctx, 1, true, "User$ecret1"), shared.ErrInvalidCredentials)
}

func TestValidatePasswordStrength(t *testing.T) {
	require.NoError(t, ValidatePasswordStrength("Abcdef1!"))
	require.ErrorIs(t, ValidatePasswordStrength("short1!"), ErrWeakPassword)
	require.ErrorIs(t, ValidatePasswordStrength("alllowercase1!"), ErrWeakPassword)
	require.ErrorIs(t, ValidatePasswordStrength("ALLUPPERCASE1!"), ErrWeakPassword)
	require.ErrorIs(t, ValidatePasswordStrength("NoDigitsHere!"), ErrWeakPassword)
	require.ErrorIs(t, ValidatePasswordStrength("NoSymbols123"), ErrWeakPassword)
}
