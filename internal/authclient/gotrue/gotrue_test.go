package gotrue

import (
	"context"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"sync/atomic"
	"testing"
	"time"

	"github.com/golang-jwt/jwt/v5"

	"opsdesk/backend/internal/authclient"
)

const testSecret = "test-jwt-secret"

func signToken(t *testing.T, sub, email string, ttl time.Duration) string {
	t.Helper()
	claims := &accessClaims{
		Email: email,
		RegisteredClaims: jwt.RegisteredClaims{
			Subject:   sub,
			ExpiresAt: jwt.NewNumericDate(time.Now().Add(ttl)),
		},
	}
	tok, err := jwt.NewWithClaims(jwt.SigningMethodHS256, claims).SignedString([]byte(testSecret))
	if err != nil {
		t.Fatalf("sign token: %v", err)
	}
	return tok
}

func TestGetSession_NoRefreshToken(t *testing.T) {
	c := NewClient("http://auth.invalid", "key", testSecret, "", time.Second)
	sess, err := c.GetSession(context.Background())
	if err != nil {
		t.Fatalf("GetSession: %v", err)
	}
	if sess != nil {
		t.Fatal("expected nil session when no refresh token is held")
	}
}

func TestGetSession_RefreshAndCache(t *testing.T) {
	var refreshCalls int64
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if r.URL.Path != "/token" {
			t.Errorf("unexpected path %q", r.URL.Path)
		}
		if r.Header.Get("apikey") != "key" {
			t.Errorf("missing apikey header")
		}
		atomic.AddInt64(&refreshCalls, 1)
		_ = json.NewEncoder(w).Encode(map[string]any{
			"access_token":  signToken(t, "u1", "a@x.com", time.Hour),
			"refresh_token": "rt-2",
			"expires_in":    3600,
			"user":          map[string]string{"id": "u1", "email": "a@x.com"},
		})
	}))
	defer srv.Close()

	c := NewClient(srv.URL, "key", testSecret, "rt-1", time.Second)

	sess, err := c.GetSession(context.Background())
	if err != nil {
		t.Fatalf("GetSession: %v", err)
	}
	if sess == nil {
		t.Fatal("expected session")
	}
	if sess.Identity.ID != "u1" || sess.Identity.Email != "a@x.com" {
		t.Errorf("identity = %+v", sess.Identity)
	}

	// Second call is served from the cached token, no extra round trip.
	if _, err := c.GetSession(context.Background()); err != nil {
		t.Fatalf("GetSession (cached): %v", err)
	}
	if n := atomic.LoadInt64(&refreshCalls); n != 1 {
		t.Errorf("refresh calls = %d, want 1", n)
	}
}

func TestGetSession_RevokedRefreshToken(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		http.Error(w, `{"error":"invalid_grant"}`, http.StatusUnauthorized)
	}))
	defer srv.Close()

	c := NewClient(srv.URL, "key", testSecret, "revoked", time.Second)
	sess, err := c.GetSession(context.Background())
	if err != nil {
		t.Fatalf("GetSession: %v", err)
	}
	if sess != nil {
		t.Fatal("revoked refresh token should yield a signed-out (nil) session")
	}
}

func TestGetSession_ServerError(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		http.Error(w, "boom", http.StatusInternalServerError)
	}))
	defer srv.Close()

	c := NewClient(srv.URL, "key", testSecret, "rt", time.Second)
	if _, err := c.GetSession(context.Background()); err == nil {
		t.Fatal("5xx from auth service should be an error, not signed-out")
	}
}

func TestSignOut(t *testing.T) {
	var loggedOut int64
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		switch r.URL.Path {
		case "/token":
			_ = json.NewEncoder(w).Encode(map[string]any{
				"access_token": signToken(t, "u1", "a@x.com", time.Hour),
				"expires_in":   3600,
				"user":         map[string]string{"id": "u1", "email": "a@x.com"},
			})
		case "/logout":
			atomic.AddInt64(&loggedOut, 1)
			w.WriteHeader(http.StatusNoContent)
		}
	}))
	defer srv.Close()

	c := NewClient(srv.URL, "key", testSecret, "rt", time.Second)
	if _, err := c.GetSession(context.Background()); err != nil {
		t.Fatalf("GetSession: %v", err)
	}
	if err := c.SignOut(context.Background()); err != nil {
		t.Fatalf("SignOut: %v", err)
	}
	if atomic.LoadInt64(&loggedOut) != 1 {
		t.Error("logout endpoint not called")
	}

	sess, err := c.GetSession(context.Background())
	if err != nil {
		t.Fatalf("GetSession after sign-out: %v", err)
	}
	if sess != nil {
		t.Error("session should be gone after sign-out")
	}
}

func TestSignOut_Failure(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		switch r.URL.Path {
		case "/token":
			_ = json.NewEncoder(w).Encode(map[string]any{
				"access_token": signToken(t, "u1", "a@x.com", time.Hour),
				"expires_in":   3600,
				"user":         map[string]string{"id": "u1", "email": "a@x.com"},
			})
		case "/logout":
			http.Error(w, "boom", http.StatusInternalServerError)
		}
	}))
	defer srv.Close()

	c := NewClient(srv.URL, "key", testSecret, "rt", time.Second)
	if _, err := c.GetSession(context.Background()); err != nil {
		t.Fatalf("GetSession: %v", err)
	}
	if err := c.SignOut(context.Background()); err == nil {
		t.Fatal("failed logout must surface an error")
	}
}

func TestOnSessionChange_SignOutNotifies(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		switch r.URL.Path {
		case "/token":
			_ = json.NewEncoder(w).Encode(map[string]any{
				"access_token": signToken(t, "u1", "a@x.com", time.Hour),
				"expires_in":   3600,
				"user":         map[string]string{"id": "u1", "email": "a@x.com"},
			})
		case "/logout":
			w.WriteHeader(http.StatusNoContent)
		}
	}))
	defer srv.Close()

	c := NewClient(srv.URL, "key", testSecret, "rt", time.Hour)
	if _, err := c.GetSession(context.Background()); err != nil {
		t.Fatalf("GetSession: %v", err)
	}

	got := make(chan *authclient.Session, 1)
	unsub := c.OnSessionChange(func(s *authclient.Session) { got <- s })
	defer unsub()

	if err := c.SignOut(context.Background()); err != nil {
		t.Fatalf("SignOut: %v", err)
	}
	select {
	case s := <-got:
		if s != nil {
			t.Errorf("expected signed-out notification, got %+v", s)
		}
	case <-time.After(time.Second):
		t.Fatal("no session-change notification after sign-out")
	}
}
