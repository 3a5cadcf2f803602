package auth

import (
	"context"
	"errors"
	"time"

	"github.com/driphttp/drip/internal/jwtauth"
)

// JWTOption configures optional aspects of the JWT bearer authenticators
// (scopes, algorithms, leeway). Issuer and audience are required formal
// arguments to the constructors.
type JWTOption func(*jwtauth.Config)

// WithRequiredScopes requires all of the provided scopes to be present in
// the space-delimited "scope" claim.
func WithRequiredScopes(scopes ...string) JWTOption {
	return func(c *jwtauth.Config) {
		c.RequiredScopes = append([]string(nil), scopes...)
		c.ScopeModeAny = false
	}
}

// WithAnyRequiredScope requires at least one of the provided scopes to be present.
func WithAnyRequiredScope(scopes ...string) JWTOption {
	return func(c *jwtauth.Config) {
		c.RequiredScopes = append([]string(nil), scopes...)
		c.ScopeModeAny = true
	}
}

// WithAllowedAlgs restricts allowed JWS algorithms. "none" is never allowed.
func WithAllowedAlgs(algs ...string) JWTOption {
	return func(c *jwtauth.Config) {
		c.AllowedAlgs = append([]string(nil), algs...)
	}
}

// WithLeeway sets clock skew tolerance for time-based claims.
func WithLeeway(d time.Duration) JWTOption {
	return func(c *jwtauth.Config) { c.Leeway = d }
}

// NewJWTHMAC returns an Authenticator verifying HMAC-signed JWT bearer
// tokens with the given shared secret.
func NewJWTHMAC(issuer, audience string, secret []byte, opts ...JWTOption) (Authenticator, error) {
	cfg := jwtauth.DefaultConfig()
	cfg.Issuer = issuer
	cfg.ExpectedAudiences = []string{audience}
	for _, opt := range opts {
		opt(cfg)
	}
	internal, err := jwtauth.NewHMAC(cfg, secret)
	if err != nil {
		return nil, err
	}
	return &jwtAdapter{a: internal}, nil
}

// NewJWTFromJWKS returns an Authenticator that resolves signing keys from
// the given JWKS URI. Keys are refreshed automatically.
func NewJWTFromJWKS(ctx context.Context, issuer, audience, jwksURI string, opts ...JWTOption) (Authenticator, error) {
	cfg := jwtauth.DefaultConfig()
	cfg.Issuer = issuer
	cfg.ExpectedAudiences = []string{audience}
	for _, opt := range opts {
		opt(cfg)
	}
	internal, err := jwtauth.NewJWKS(ctx, cfg, jwksURI)
	if err != nil {
		return nil, err
	}
	return &jwtAdapter{a: internal}, nil
}

// jwtAdapter wraps the internal authenticator to satisfy the public
// interface, mapping internal sentinel errors to the public ones consumed
// by the middleware.
type jwtAdapter struct {
	a jwtauth.Authenticator
}

func (ad *jwtAdapter) CheckAuthentication(ctx context.Context, tok string) (UserInfo, error) {
	ui, err := ad.a.CheckAuthentication(ctx, tok)
	if err != nil {
		if errors.Is(err, jwtauth.ErrInsufficientScope) {
			return nil, errors.Join(ErrInsufficientScope, err)
		}
		return nil, errors.Join(ErrUnauthorized, err)
	}
	return jwtUserInfo{ui: ui}, nil
}

type jwtUserInfo struct{ ui jwtauth.UserInfo }

func (u jwtUserInfo) UserID() string       { return u.ui.UserID() }
func (u jwtUserInfo) Claims(ref any) error { return u.ui.Claims(ref) }
