package session

import (
	"context"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"github.com/stretchr/testify/require"

	"github.com/daniry/backoffice/internal/shared"
	_ "github.com/daniry/backoffice/testing"
)

func TestIssueVerifyRoundTrip(t *testing.T) {
	mgr := NewManager("test-secret", time.Hour, false)

	token, err := mgr.Issue(42)
	require.NoError(t, err)

	id, err := mgr.Verify(token)
	require.NoError(t, err)
	require.Equal(t, int64(42), id)
}

func TestVerifyRejectsTamperedToken(t *testing.T) {
	mgr := NewManager("test-secret", time.Hour, false)

	token, err := mgr.Issue(42)
	require.NoError(t, err)

	_, err = mgr.Verify(token + "x")
	require.ErrorIs(t, err, shared.ErrUnauthenticated)
	_, err = mgr.Verify("not-a-token")
	require.ErrorIs(t, err, shared.ErrUnauthenticated)
}

func TestVerifyRejectsWrongSecret(t *testing.T) {
	token, err := NewManager("secret-a", time.Hour, false).Issue(42)
	require.NoError(t, err)

	_, err = NewManager("secret-b", time.Hour, false).Verify(token)
	require.ErrorIs(t, err, shared.ErrUnauthenticated)
}

func TestVerifyRejectsExpiredToken(t *testing.T) {
	mgr := NewManager("test-secret", -time.Minute, false)

	token, err := mgr.Issue(42)
	require.NoError(t, err)

	_, err = mgr.Verify(token)
	require.ErrorIs(t, err, shared.ErrUnauthenticated)
}

func TestCookieFlags(t *testing.T) {
	mgr := NewManager("test-secret", 24*time.Hour, true)

	res := httptest.NewRecorder()
	mgr.SetCookie(res, "tok")
	cookies := res.Result().Cookies()
	require.Len(t, cookies, 1)
	cookie := cookies[0]
	require.Equal(t, CookieName, cookie.Name)
	require.True(t, cookie.HttpOnly)
	require.True(t, cookie.Secure)
	require.Equal(t, http.SameSiteLaxMode, cookie.SameSite)
	require.Equal(t, int((24 * time.Hour).Seconds()), cookie.MaxAge)

	res = httptest.NewRecorder()
	mgr.ClearCookie(res)
	cleared := res.Result().Cookies()
	require.Len(t, cleared, 1)
	require.Equal(t, -1, cleared[0].MaxAge)
	require.Empty(t, cleared[0].Value)
}

type staticResolver struct {
	ident *shared.Identity
}

func (s staticResolver) ResolveByID(ctx context.Context, id int64) (*shared.Identity, error) {
	if s.ident == nil || s.ident.ID != id {
		return nil, shared.ErrUnauthenticated
	}
	return s.ident, nil
}

func TestAuthenticateMiddleware(t *testing.T) {
	mgr := NewManager("test-secret", time.Hour, false)
	mw := Middleware{Manager: mgr, Resolver: staticResolver{ident: &shared.Identity{ID: 42, Email: "root@daniry.local", SuperAdmin: true}}}

	var seen *shared.Identity
	next := http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		seen = shared.IdentityFromContext(r.Context())
		w.WriteHeader(http.StatusOK)
	})
	handler := mw.Authenticate(next)

	// No cookie.
	res := httptest.NewRecorder()
	handler.ServeHTTP(res, httptest.NewRequest(http.MethodGet, "/", nil))
	require.Equal(t, http.StatusUnauthorized, res.Code)

	// Garbage cookie.
	req := httptest.NewRequest(http.MethodGet, "/", nil)
	req.AddCookie(&http.Cookie{Name: CookieName, Value: "garbage"})
	res = httptest.NewRecorder()
	handler.ServeHTTP(res, req)
	require.Equal(t, http.StatusUnauthorized, res.Code)

	// Valid token for a subject that no longer resolves.
	orphan, err := mgr.Issue(7)
	require.NoError(t, err)
	req = httptest.NewRequest(http.MethodGet, "/", nil)
	req.AddCookie(&http.Cookie{Name: CookieName, Value: orphan})
	res = httptest.NewRecorder()
	handler.ServeHTTP(res, req)
	require.Equal(t, http.StatusUnauthorized, res.Code)

	// Valid token with a live identity.
	token, err := mgr.Issue(42)
	require.NoError(t, err)
	req = httptest.NewRequest(http.MethodGet, "/", nil)
	req.AddCookie(&http.Cookie{Name: CookieName, Value: token})
	res = httptest.NewRecorder()
	handler.ServeHTTP(res, req)
	require.Equal(t, http.StatusOK, res.Code)
	require.NotNil(t, seen)
	require.Equal(t, int64(42), seen.ID)
	require.True(t, seen.SuperAdmin)
}
