// Package auth provides the pluggable authentication boundary consumed by
// the streaming response controller. The controller itself never inspects
// credentials; it trusts whatever identity the middleware in this package
// attached to the request context before the request reached it.
//
// The public surface intentionally stays small: an Authenticator validates
// an incoming bearer token string and returns a UserInfo (or an error).
// RequireBearer extracts the token from the HTTP request, maps the sentinel
// errors onto RFC 6750 challenges, and attaches the resulting identity with
// WithUser so downstream handlers can recover it via UserFromContext.
//
// Header names, challenge construction and the error response bodies are
// ordinary exported values so tests and callers consume them directly
// instead of reaching into implementation details.
//
// # Errors
//
// ErrUnauthorized signals the token is invalid (signature, expiry,
// audience, lookup miss). ErrInsufficientScope signals successful
// authentication but missing required scope(s).
package auth
