package shared

import "context"

// Identity describes the authenticated actor attached to a request.
// SuperAdmin distinguishes the admins table from the delegated users table.
type Identity struct {
	ID         int64
	Name       string
	Email      string
	SuperAdmin bool
}

type identityContextKey struct{}

// ContextWithIdentity stores the resolved identity in context.
func ContextWithIdentity(ctx context.Context, id *Identity) context.Context {
	return context.WithValue(ctx, identityContextKey{}, id)
}

// IdentityFromContext extracts the identity from context, nil when absent.
func IdentityFromContext(ctx context.Context) *Identity {
	id, _ := ctx.Value(identityContextKey{}).(*Identity)
	return id
}
