package auth

import (
	"errors"
	"net/http"
	"strings"
)

// RequireBearer wraps next with bearer-token authentication against a.
// On success the authenticated identity is attached to the request context
// and the request continues; failures terminate the request with an RFC
// 6750 challenge:
//
//   - no Authorization header: 401 with a bare Bearer challenge (no error
//     code, per RFC 6750 §3.1)
//   - malformed header or empty token: 400 invalid_request
//   - rejected token: 401 invalid_token
//   - valid token, missing scope: 403 insufficient_scope
func RequireBearer(a Authenticator, realm string, next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		ctx := r.Context()

		authHeader := r.Header.Get(AuthorizationHeader)
		if authHeader == "" {
			w.Header().Add(WWWAuthenticateHeader, BearerChallenge(realm, nil))
			w.WriteHeader(http.StatusUnauthorized)
			return
		}

		const bearerPrefix = "Bearer "
		if !strings.HasPrefix(authHeader, bearerPrefix) || len(authHeader) <= len(bearerPrefix) {
			w.Header().Add(WWWAuthenticateHeader, BearerChallenge(realm, map[string]string{
				"error":             "invalid_request",
				"error_description": "malformed bearer authorization header",
			}))
			w.WriteHeader(http.StatusBadRequest)
			return
		}
		tok := strings.TrimSpace(authHeader[len(bearerPrefix):])
		if tok == "" {
			w.Header().Add(WWWAuthenticateHeader, BearerChallenge(realm, map[string]string{
				"error":             "invalid_request",
				"error_description": "empty bearer token",
			}))
			w.WriteHeader(http.StatusBadRequest)
			return
		}

		ui, err := a.CheckAuthentication(ctx, tok)
		if err != nil {
			switch {
			case errors.Is(err, ErrInsufficientScope):
				w.Header().Add(WWWAuthenticateHeader, BearerChallenge(realm, map[string]string{
					"error":             "insufficient_scope",
					"error_description": err.Error(),
				}))
				w.WriteHeader(http.StatusForbidden)
			case errors.Is(err, ErrUnauthorized):
				w.Header().Add(WWWAuthenticateHeader, BearerChallenge(realm, map[string]string{
					"error":             "invalid_token",
					"error_description": err.Error(),
				}))
				w.WriteHeader(http.StatusUnauthorized)
			default:
				w.WriteHeader(http.StatusInternalServerError)
			}
			return
		}

		next.ServeHTTP(w, r.WithContext(WithUser(ctx, ui)))
	})
}
