package auth

import "context"

// Role is the caller's capability level.
type Role string

const (
	// RoleClient may only see its own orders.
	RoleClient Role = "client"
	// RoleAdmin sees and manages everything.
	RoleAdmin Role = "admin"
)

// Identity is the verified caller of a request.
type Identity struct {
	UserID int64
	Role   Role
}

// IsAdmin reports whether the caller holds the admin role.
func (i Identity) IsAdmin() bool {
	return i.Role == RoleAdmin
}

type identityKey struct{}

// WithIdentity stores the verified caller in ctx.
func WithIdentity(ctx context.Context, id Identity) context.Context {
	return context.WithValue(ctx, identityKey{}, id)
}

// FromContext returns the caller stored by WithIdentity.
func FromContext(ctx context.Context) (Identity, bool) {
	id, ok := ctx.Value(identityKey{}).(Identity)
	return id, ok
}
