package auth

import (
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"github.com/golang-jwt/jwt/v5"
)

func mustToken(t *testing.T, secret []byte, role string) string {
	t.Helper()
	claims := Claims{
		Role: role,
		RegisteredClaims: jwt.RegisteredClaims{
			Subject:   "op-1",
			ExpiresAt: jwt.NewNumericDate(time.Now().Add(time.Hour)),
		},
	}
	token := jwt.NewWithClaims(jwt.SigningMethodHS256, claims)
	signed, err := token.SignedString(secret)
	if err != nil {
		t.Fatalf("sign token: %v", err)
	}
	return signed
}

func serve(mw *Middleware, r *http.Request) *httptest.ResponseRecorder {
	recorder := httptest.NewRecorder()
	mw.Wrap(http.HandlerFunc(func(w http.ResponseWriter, _ *http.Request) {
		w.WriteHeader(http.StatusOK)
	})).ServeHTTP(recorder, r)
	return recorder
}

func TestMiddlewareNoToken(t *testing.T) {
	mw := NewMiddleware([]byte("secret"), NewDefaultPolicy(nil, nil))
	r := httptest.NewRequest(http.MethodGet, "/api/v1/status", nil)
	if got := serve(mw, r).Code; got != http.StatusUnauthorized {
		t.Fatalf("status: got %d want 401", got)
	}
}

func TestMiddlewareViewerForbiddenManualEntry(t *testing.T) {
	secret := []byte("secret")
	mw := NewMiddleware(secret, NewDefaultPolicy(nil, nil))
	r := httptest.NewRequest(http.MethodPost, "/api/v1/attendance", nil)
	r.Header.Set("Authorization", "Bearer "+mustToken(t, secret, "viewer"))
	if got := serve(mw, r).Code; got != http.StatusForbidden {
		t.Fatalf("status: got %d want 403", got)
	}
}

func TestMiddlewareOperatorAllowed(t *testing.T) {
	secret := []byte("secret")
	mw := NewMiddleware(secret, NewDefaultPolicy(nil, nil))
	r := httptest.NewRequest(http.MethodPost, "/api/v1/attendance", nil)
	r.Header.Set("Authorization", "Bearer "+mustToken(t, secret, "operator"))
	if got := serve(mw, r).Code; got != http.StatusOK {
		t.Fatalf("status: got %d want 200", got)
	}
}

func TestMiddlewareExemptPath(t *testing.T) {
	mw := NewMiddleware([]byte("secret"), NewDefaultPolicy([]string{"/healthz"}, nil))
	r := httptest.NewRequest(http.MethodGet, "/healthz", nil)
	if got := serve(mw, r).Code; got != http.StatusOK {
		t.Fatalf("status: got %d want 200", got)
	}
}

func TestMiddlewareWrongSecret(t *testing.T) {
	mw := NewMiddleware([]byte("secret"), NewDefaultPolicy(nil, nil))
	r := httptest.NewRequest(http.MethodGet, "/api/v1/status", nil)
	r.Header.Set("Authorization", "Bearer "+mustToken(t, []byte("other"), "admin"))
	if got := serve(mw, r).Code; got != http.StatusUnauthorized {
		t.Fatalf("status: got %d want 401", got)
	}
}
