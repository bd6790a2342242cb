// Context plumbing for the resolved principal. The Protect guard stores the
// full user on the request context; downstream handlers read it back through
// these helpers instead of re-resolving the token.
package auth

import "context"

// contextKey is a private type for context keys, so no other package can
// collide with (or forge) our entries.
type contextKey string

const userContextKey contextKey = "auth_user"

// NewContextWithUser returns a child context carrying the resolved principal.
func NewContextWithUser(ctx context.Context, user *User) context.Context {
	return context.WithValue(ctx, userContextKey, user)
}

// UserFromContext extracts the principal placed by the Protect guard. The
// second return value is false when the request never passed the guard.
func UserFromContext(ctx context.Context) (*User, bool) {
	user, ok := ctx.Value(userContextKey).(*User)
	return user, ok
}
