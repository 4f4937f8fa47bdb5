package middleware

import (
	"net/http"
	"net/http/httptest"
	"testing"
	"time"
)

func TestIdentityRejectsMissingHeader(t *testing.T) {
	var seen string
	handler := Identity(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		seen = UserIDFromContext(r.Context())
	}))

	rec := httptest.NewRecorder()
	handler.ServeHTTP(rec, httptest.NewRequest(http.MethodGet, "/", nil))
	if rec.Code != http.StatusUnauthorized {
		t.Fatalf("expected 401, got %d", rec.Code)
	}

	req := httptest.NewRequest(http.MethodGet, "/", nil)
	req.Header.Set("X-User-Id", " user-1 ")
	rec = httptest.NewRecorder()
	handler.ServeHTTP(rec, req)
	if rec.Code != http.StatusOK {
		t.Fatalf("expected 200, got %d", rec.Code)
	}
	if seen != "user-1" {
		t.Fatalf("expected trimmed user id on context, got %q", seen)
	}
}

func TestUserRateLimiterEnforcesBurst(t *testing.T) {
	limiter := NewUserRateLimiter(1, time.Hour, 2, time.Minute)

	if !limiter.Allow("user-1") || !limiter.Allow("user-1") {
		t.Fatal("expected burst capacity to admit two requests")
	}
	if limiter.Allow("user-1") {
		t.Fatal("expected third request rejected")
	}

	// Other users have their own allowance.
	if !limiter.Allow("user-2") {
		t.Fatal("expected independent allowance per user")
	}
}

func TestLimitMiddlewareReturns429(t *testing.T) {
	limiter := NewUserRateLimiter(1, time.Hour, 1, time.Minute)
	handler := Limit(limiter)(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {}))

	req := httptest.NewRequest(http.MethodPost, "/", nil)
	rec := httptest.NewRecorder()
	handler.ServeHTTP(rec, req)
	if rec.Code != http.StatusOK {
		t.Fatalf("first request: expected 200, got %d", rec.Code)
	}

	rec = httptest.NewRecorder()
	handler.ServeHTTP(rec, req)
	if rec.Code != http.StatusTooManyRequests {
		t.Fatalf("second request: expected 429, got %d", rec.Code)
	}
}
