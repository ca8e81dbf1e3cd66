package rbac

import (
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/stretchr/testify/require"

	"github.com/daniry/backoffice/internal/shared"
)

func gateRequest(t *testing.T, mw func(http.Handler) http.Handler, ident *shared.Identity) *httptest.ResponseRecorder {
	t.Helper()
	next := http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusOK)
	})
	req := httptest.NewRequest(http.MethodGet, "/", nil)
	if ident != nil {
		req = req.WithContext(shared.ContextWithIdentity(req.Context(), ident))
	}
	res := httptest.NewRecorder()
	mw(next).ServeHTTP(res, req)
	return res
}

func TestRequirePermission(t *testing.T) {
	store := newMemoryStore()
	store.slugs[7] = []string{"products.view"}
	mw := Middleware{Resolver: NewResolver(store, NewCache(), nil)}
	guard := mw.RequirePermission("products.edit")

	// No identity in context.
	res := gateRequest(t, guard, nil)
	require.Equal(t, http.StatusUnauthorized, res.Code)

	// Identity without the permission.
	res = gateRequest(t, guard, &shared.Identity{ID: 7})
	require.Equal(t, http.StatusForbidden, res.Code)
	var body struct {
		Success bool           `json:"success"`
		Data    map[string]any `json:"data"`
	}
	require.NoError(t, json.Unmarshal(res.Body.Bytes(), &body))
	require.False(t, body.Success)
	require.Equal(t, "products.edit", body.Data["required"])

	// Identity with the permission.
	res = gateRequest(t, mw.RequirePermission("products.view"), &shared.Identity{ID: 7})
	require.Equal(t, http.StatusOK, res.Code)

	// Super admin passes any gate.
	res = gateRequest(t, guard, &shared.Identity{ID: 1, SuperAdmin: true})
	require.Equal(t, http.StatusOK, res.Code)
}

func TestRequireAnyPermission(t *testing.T) {
	store := newMemoryStore()
	store.slugs[7] = []string{"users.view"}
	mw := Middleware{Resolver: NewResolver(store, NewCache(), nil)}

	res := gateRequest(t, mw.RequireAnyPermission("products.view", "users.view"), &shared.Identity{ID: 7})
	require.Equal(t, http.StatusOK, res.Code)

	res = gateRequest(t, mw.RequireAnyPermission("products.view", "products.edit"), &shared.Identity{ID: 7})
	require.Equal(t, http.StatusForbidden, res.Code)
}

func TestRequireSuperAdmin(t *testing.T) {
	mw := Middleware{Resolver: NewResolver(newMemoryStore(), NewCache(), nil)}
	guard := mw.RequireSuperAdmin()

	res := gateRequest(t, guard, nil)
	require.Equal(t, http.StatusUnauthorized, res.Code)

	res = gateRequest(t, guard, &shared.Identity{ID: 7})
	require.Equal(t, http.StatusForbidden, res.Code)

	res = gateRequest(t, guard, &shared.Identity{ID: 1, SuperAdmin: true})
	require.Equal(t, http.StatusOK, res.Code)
}
