// Package authtest provides authenticator fakes for tests and development
// environments where a real token issuer is not available.
package authtest

import (
	"context"
	"fmt"

	"github.com/driphttp/drip/auth"
)

// Static is an Authenticator backed by a fixed token-to-user map.
type Static struct {
	// Users maps bearer token values to user IDs.
	Users map[string]string
}

var _ auth.Authenticator = (*Static)(nil)

// NewStatic builds a Static authenticator from token/userID pairs.
func NewStatic(users map[string]string) *Static {
	return &Static{Users: users}
}

// CheckAuthentication accepts exactly the configured tokens.
func (s *Static) CheckAuthentication(ctx context.Context, tok string) (auth.UserInfo, error) {
	uid, ok := s.Users[tok]
	if !ok {
		return nil, fmt.Errorf("%w: unknown token", auth.ErrUnauthorized)
	}
	return User{ID: uid}, nil
}

// NoAuth is an Authenticator that accepts any token and always returns the
// configured user. Use only in tests and local development.
type NoAuth struct {
	UserID string
}

var _ auth.Authenticator = (*NoAuth)(nil)

// NewNoAuth creates a NoAuth authenticator. If userID is empty it defaults
// to "test-user".
func NewNoAuth(userID string) *NoAuth {
	if userID == "" {
		userID = "test-user"
	}
	return &NoAuth{UserID: userID}
}

func (n *NoAuth) CheckAuthentication(ctx context.Context, tok string) (auth.UserInfo, error) {
	return User{ID: n.UserID}, nil
}

// User is a minimal auth.UserInfo with no claims.
type User struct {
	ID string
}

func (u User) UserID() string       { return u.ID }
func (u User) Claims(ref any) error { return nil }
