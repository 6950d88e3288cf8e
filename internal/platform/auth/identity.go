package auth

import "context"

// Role labels the capability level carried by an authenticated identity.
type Role string

const (
	// RoleUser is a regular shopper.
	RoleUser Role = "user"
	// RoleStaff can perform back-office operations such as shipping.
	RoleStaff Role = "staff"
)

// Identity is the authenticated principal attached to a request context.
type Identity struct {
	UserID string
	Role   Role
}

// IsStaff reports whether the identity may perform back-office operations.
func (i Identity) IsStaff() bool {
	return i.Role == RoleStaff
}

type identityKey struct{}

// WithIdentity injects the identity into the provided context.
func WithIdentity(ctx context.Context, identity Identity) context.Context {
	return context.WithValue(ctx, identityKey{}, identity)
}

// IdentityFromContext retrieves the identity, reporting whether one is present.
func IdentityFromContext(ctx context.Context) (Identity, bool) {
	identity, ok := ctx.Value(identityKey{}).(Identity)
	return identity, ok
}
