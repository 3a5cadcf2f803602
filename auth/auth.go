package auth

import (
	"context"
	"errors"
)

// ErrUnauthorized indicates authentication failed or no valid credentials were supplied.
var ErrUnauthorized = errors.New("unauthorized")

// ErrInsufficientScope indicates the caller authenticated but lacks required scope.
var ErrInsufficientScope = errors.New("insufficient scope")

// UserInfo represents an authenticated principal.
// Implementations should be lightweight and safe for concurrent use.
type UserInfo interface {
	// UserID returns the unique identifier for the user.
	UserID() string
	// Claims unmarshals the user's claims into the provided struct reference.
	Claims(ref any) error
}

// Authenticator validates bearer tokens and returns associated user info.
// It should return ErrUnauthorized for invalid credentials.
type Authenticator interface {
	CheckAuthentication(ctx context.Context, tok string) (UserInfo, error)
}

type userKey struct{}

// WithUser returns a context carrying the authenticated identity. The
// identity travels explicitly through the request-handling call chain;
// there is no process-global or goroutine-local fallback.
func WithUser(ctx context.Context, ui UserInfo) context.Context {
	return context.WithValue(ctx, userKey{}, ui)
}

// UserFromContext recovers the identity attached by WithUser, if any.
func UserFromContext(ctx context.Context) (UserInfo, bool) {
	ui, ok := ctx.Value(userKey{}).(UserInfo)
	return ui, ok
}
