package auth_test

import (
	"context"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"

	"github.com/driphttp/drip/auth"
	"github.com/driphttp/drip/auth/authtest"
)

func echoUser() http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		ui, ok := auth.UserFromContext(r.Context())
		if !ok {
			http.Error(w, "no user", http.StatusInternalServerError)
			return
		}
		_, _ = w.Write([]byte(ui.UserID()))
	})
}

func TestRequireBearer(t *testing.T) {
	authn := authtest.NewStatic(map[string]string{"good-token": "alice"})
	srv := httptest.NewServer(auth.RequireBearer(authn, "drip", echoUser()))
	defer srv.Close()

	do := func(t *testing.T, authorization string) *http.Response {
		t.Helper()
		req, err := http.NewRequest(http.MethodGet, srv.URL, nil)
		if err != nil {
			t.Fatalf("new request: %v", err)
		}
		if authorization != "" {
			req.Header.Set(auth.AuthorizationHeader, authorization)
		}
		resp, err := http.DefaultClient.Do(req)
		if err != nil {
			t.Fatalf("do: %v", err)
		}
		t.Cleanup(func() { resp.Body.Close() })
		return resp
	}

	t.Run("valid token attaches the identity", func(t *testing.T) {
		resp := do(t, "Bearer good-token")
		if resp.StatusCode != http.StatusOK {
			t.Fatalf("want 200, got %d", resp.StatusCode)
		}
		buf := make([]byte, 16)
		n, _ := resp.Body.Read(buf)
		if got := string(buf[:n]); got != "alice" {
			t.Fatalf("handler saw user %q", got)
		}
	})

	t.Run("missing header gets a bare challenge", func(t *testing.T) {
		resp := do(t, "")
		if resp.StatusCode != http.StatusUnauthorized {
			t.Fatalf("want 401, got %d", resp.StatusCode)
		}
		ch := resp.Header.Get(auth.WWWAuthenticateHeader)
		if ch != `Bearer realm="drip"` {
			t.Fatalf("unexpected challenge %q", ch)
		}
	})

	t.Run("malformed header is invalid_request", func(t *testing.T) {
		resp := do(t, "Basic abc")
		if resp.StatusCode != http.StatusBadRequest {
			t.Fatalf("want 400, got %d", resp.StatusCode)
		}
		if ch := resp.Header.Get(auth.WWWAuthenticateHeader); !strings.Contains(ch, `error="invalid_request"`) {
			t.Fatalf("unexpected challenge %q", ch)
		}
	})

	t.Run("rejected token is invalid_token", func(t *testing.T) {
		resp := do(t, "Bearer nope")
		if resp.StatusCode != http.StatusUnauthorized {
			t.Fatalf("want 401, got %d", resp.StatusCode)
		}
		if ch := resp.Header.Get(auth.WWWAuthenticateHeader); !strings.Contains(ch, `error="invalid_token"`) {
			t.Fatalf("unexpected challenge %q", ch)
		}
	})
}

func TestRequireBearerScope(t *testing.T) {
	authn := scopelessAuthenticator{}
	srv := httptest.NewServer(auth.RequireBearer(authn, "drip", echoUser()))
	defer srv.Close()

	req, _ := http.NewRequest(http.MethodGet, srv.URL, nil)
	req.Header.Set(auth.AuthorizationHeader, "Bearer anything")
	resp, err := http.DefaultClient.Do(req)
	if err != nil {
		t.Fatalf("do: %v", err)
	}
	defer resp.Body.Close()
	if resp.StatusCode != http.StatusForbidden {
		t.Fatalf("want 403 for insufficient scope, got %d", resp.StatusCode)
	}
	if ch := resp.Header.Get(auth.WWWAuthenticateHeader); !strings.Contains(ch, `error="insufficient_scope"`) {
		t.Fatalf("unexpected challenge %q", ch)
	}
}

type scopelessAuthenticator struct{}

func (scopelessAuthenticator) CheckAuthentication(ctx context.Context, tok string) (auth.UserInfo, error) {
	return nil, auth.ErrInsufficientScope
}

func TestBearerChallenge(t *testing.T) {
	t.Run("parameters emit in a fixed order", func(t *testing.T) {
		got := auth.BearerChallenge("drip", map[string]string{
			"scope":             "reports:read",
			"error":             "invalid_token",
			"error_description": "expired",
		})
		want := `Bearer realm="drip", error="invalid_token", error_description="expired", scope="reports:read"`
		if got != want {
			t.Fatalf("want %q got %q", want, got)
		}
	})

	t.Run("empty challenge is just the scheme", func(t *testing.T) {
		if got := auth.BearerChallenge("", nil); got != "Bearer" {
			t.Fatalf("got %q", got)
		}
	})

	t.Run("quotes and backslashes are escaped", func(t *testing.T) {
		got := auth.BearerChallenge(`my"realm`, nil)
		if got != `Bearer realm="my\"realm"` {
			t.Fatalf("got %q", got)
		}
	})
}

func TestUserContext(t *testing.T) {
	if _, ok := auth.UserFromContext(context.Background()); ok {
		t.Fatalf("empty context should carry no user")
	}
	ctx := auth.WithUser(context.Background(), authtest.User{ID: "bob"})
	ui, ok := auth.UserFromContext(ctx)
	if !ok || ui.UserID() != "bob" {
		t.Fatalf("round trip failed: %v %v", ui, ok)
	}
}
