package twofa

import "context"

// Identity is the authenticated user placed into the request context by the
// host application's session middleware. This module does not implement
// sessions; it only consumes the result.
type Identity struct {
	UserID string
	Email  string
}

type ctxKey struct{}

// WithIdentity returns a context carrying the authenticated identity.
func WithIdentity(ctx context.Context, id Identity) context.Context {
	return context.WithValue(ctx, ctxKey{}, id)
}

// IdentityFromContext extracts the authenticated identity, if any.
func IdentityFromContext(ctx context.Context) (Identity, bool) {
	id, ok := ctx.Value(ctxKey{}).(Identity)
	return id, ok && id.UserID != ""
}
