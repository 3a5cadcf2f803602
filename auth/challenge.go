package auth

import (
	"encoding/json"
	"fmt"
	"net/http"
	"strings"
)

// Canonical header names used by the bearer middleware. Exported so tests
// and callers reference the same constants the middleware writes.
const (
	AuthorizationHeader   = "Authorization"
	WWWAuthenticateHeader = "WWW-Authenticate"
)

// BearerChallenge builds a standardized Bearer challenge header value.
// Format:
//
//	Bearer realm="<realm>", error="...", error_description="..."
//
// Realm is omitted if empty, per RFC 6750 it is optional. Params are
// emitted in a fixed logical order (error, error_description, scope) so
// challenge strings are deterministic.
func BearerChallenge(realm string, params map[string]string) string {
	pieces := make([]string, 0, 1+len(params))
	esc := func(v string) string { return strings.NewReplacer(`\`, `\\`, `"`, `\"`).Replace(v) }
	if realm != "" {
		pieces = append(pieces, fmt.Sprintf(`realm="%s"`, esc(realm)))
	}
	for _, k := range []string{"error", "error_description", "scope"} {
		if v, ok := params[k]; ok {
			pieces = append(pieces, fmt.Sprintf(`%s="%s"`, k, esc(v)))
		}
	}
	for k, v := range params {
		if k == "error" || k == "error_description" || k == "scope" {
			continue
		}
		pieces = append(pieces, fmt.Sprintf(`%s="%s"`, k, esc(v)))
	}
	if len(pieces) == 0 {
		return "Bearer"
	}
	return "Bearer " + strings.Join(pieces, ", ")
}

// WriteError emits the standard JSON error body for HTTP-layer rejections.
// Shape: {"error":{"code":<httpStatus>,"message":"<reason>"}}. Exported as
// the single error-response constructor so every layer produces the same
// shape.
func WriteError(w http.ResponseWriter, status int, msg string) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	_ = json.NewEncoder(w).Encode(map[string]any{"error": map[string]any{"code": status, "message": msg}})
}
