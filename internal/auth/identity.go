package auth

import (
	"context"

	"docvault/internal/model"
)

// Identity is the caller resolved from a bearer token for the lifetime of one request.
type Identity struct {
	UserID   string
	Username string
	Role     model.Role
}

// IsAdmin reports whether the caller holds the administrative role.
func (i Identity) IsAdmin() bool {
	return i.Role.IsAdmin()
}

type identityKey struct{}

// WithIdentity returns a copy of ctx carrying id.
func WithIdentity(ctx context.Context, id Identity) context.Context {
	return context.WithValue(ctx, identityKey{}, id)
}

// FromContext returns the identity attached to ctx, if any.
func FromContext(ctx context.Context) (Identity, bool) {
	id, ok := ctx.Value(identityKey{}).(Identity)
	if !ok || id.Username == "" {
		return Identity{}, false
	}
	return id, true
}
