package middleware

import (
	"fmt"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"github.com/R3E-Network/todo_service/internal/httputil"
	"github.com/R3E-Network/todo_service/pkg/logger"
)

var okHandler = http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
	w.WriteHeader(http.StatusOK)
})

func TestTracingMiddleware_GeneratesTraceID(t *testing.T) {
	var seen string
	handler := NewTracingMiddleware(logger.NewNop()).Handler(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		seen = logger.TraceIDFromContext(r.Context())
		w.WriteHeader(http.StatusTeapot)
	}))

	rec := httptest.NewRecorder()
	handler.ServeHTTP(rec, httptest.NewRequest(http.MethodGet, "/api/v1/todo", nil))

	if seen == "" {
		t.Fatal("trace id not stored in context")
	}
	if got := rec.Header().Get(httputil.TraceHeader); got != seen {
		t.Errorf("response trace id = %q, want %q", got, seen)
	}
	if rec.Code != http.StatusTeapot {
		t.Errorf("status = %d, want 418", rec.Code)
	}
}

func TestTracingMiddleware_KeepsIncomingTraceID(t *testing.T) {
	handler := NewTracingMiddleware(logger.NewNop()).Handler(okHandler)

	req := httptest.NewRequest(http.MethodGet, "/", nil)
	req.Header.Set(httputil.TraceHeader, "abc-123")
	rec := httptest.NewRecorder()
	handler.ServeHTTP(rec, req)

	if got := rec.Header().Get(httputil.TraceHeader); got != "abc-123" {
		t.Errorf("trace id = %q, want abc-123", got)
	}
}

func TestCORSMiddleware(t *testing.T) {
	tests := []struct {
		name        string
		allowed     []string
		origin      string
		wantAllowed bool
	}{
		{name: "wildcard", allowed: []string{"*"}, origin: "https://x.test", wantAllowed: true},
		{name: "exact", allowed: []string{"https://app.test"}, origin: "https://app.test", wantAllowed: true},
		{name: "subdomain", allowed: []string{"*.app.test"}, origin: "https://ui.app.test", wantAllowed: true},
		{name: "not listed", allowed: []string{"https://app.test"}, origin: "https://evil.test", wantAllowed: false},
		{name: "suffix without wildcard", allowed: []string{"app.test"}, origin: "https://evilapp.test", wantAllowed: false},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			handler := NewCORSMiddleware(tt.allowed).Handler(okHandler)
			req := httptest.NewRequest(http.MethodGet, "/", nil)
			req.Header.Set("Origin", tt.origin)
			rec := httptest.NewRecorder()
			handler.ServeHTTP(rec, req)

			got := rec.Header().Get("Access-Control-Allow-Origin") == tt.origin
			if got != tt.wantAllowed {
				t.Errorf("allowed = %v, want %v", got, tt.wantAllowed)
			}
		})
	}
}

func TestCORSMiddleware_Preflight(t *testing.T) {
	called := false
	handler := NewCORSMiddleware([]string{"*"}).Handler(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		called = true
	}))

	req := httptest.NewRequest(http.MethodOptions, "/api/v1/todo", nil)
	req.Header.Set("Origin", "https://app.test")
	req.Header.Set("Access-Control-Request-Method", http.MethodPost)
	rec := httptest.NewRecorder()
	handler.ServeHTTP(rec, req)

	if rec.Code != http.StatusNoContent {
		t.Errorf("status = %d, want 204", rec.Code)
	}
	if called {
		t.Error("preflight reached the wrapped handler")
	}
}

func TestRateLimiter(t *testing.T) {
	rl := NewRateLimiter(1, 2, logger.NewNop())
	handler := rl.Handler(okHandler)

	send := func(addr string) *httptest.ResponseRecorder {
		req := httptest.NewRequest(http.MethodGet, "/", nil)
		req.RemoteAddr = addr
		rec := httptest.NewRecorder()
		handler.ServeHTTP(rec, req)
		return rec
	}

	for i := 0; i < 2; i++ {
		if rec := send("10.0.0.1:5555"); rec.Code != http.StatusOK {
			t.Fatalf("request %d status = %d, want 200", i, rec.Code)
		}
	}
	rec := send("10.0.0.1:6666")
	if rec.Code != http.StatusTooManyRequests {
		t.Errorf("same host, other port status = %d, want 429", rec.Code)
	}
	if rec.Header().Get("Retry-After") == "" {
		t.Errorf("expected Retry-After header on 429")
	}
	if rec := send("10.0.0.2:5555"); rec.Code != http.StatusOK {
		t.Errorf("other host status = %d, want 200", rec.Code)
	}
	if rl.Size() != 2 {
		t.Errorf("Size() = %d, want 2", rl.Size())
	}
}

func TestRateLimiter_IgnoresActorHeader(t *testing.T) {
	rl := NewRateLimiter(1, 1, logger.NewNop())
	handler := rl.Handler(okHandler)

	allowed := 0
	for i := 0; i < 100; i++ {
		req := httptest.NewRequest(http.MethodGet, "/", nil)
		req.RemoteAddr = "10.0.0.1:5555"
		req.Header.Set(httputil.ActorHeader, fmt.Sprintf("user-%d", i))
		rec := httptest.NewRecorder()
		handler.ServeHTTP(rec, req)
		if rec.Code == http.StatusOK {
			allowed++
		}
	}
	if allowed != 1 {
		t.Errorf("allowed = %d, want 1", allowed)
	}
	if rl.Size() != 1 {
		t.Errorf("Size() = %d, want 1", rl.Size())
	}
}

func TestRateLimiter_Disabled(t *testing.T) {
	handler := NewRateLimiter(0, 0, logger.NewNop()).Handler(okHandler)
	for i := 0; i < 50; i++ {
		rec := httptest.NewRecorder()
		handler.ServeHTTP(rec, httptest.NewRequest(http.MethodGet, "/", nil))
		if rec.Code != http.StatusOK {
			t.Fatalf("status = %d, want 200", rec.Code)
		}
	}
}

func TestRateLimiter_Cleanup(t *testing.T) {
	rl := NewRateLimiter(10, 10, logger.NewNop())
	now := time.Date(2026, 1, 1, 0, 0, 0, 0, time.UTC)
	rl.now = func() time.Time { return now }

	rl.getLimiter("old")
	now = now.Add(time.Hour)
	rl.getLimiter("fresh")

	if removed := rl.Cleanup(30 * time.Minute); removed != 1 {
		t.Errorf("Cleanup() removed %d, want 1", removed)
	}
	if rl.Size() != 1 {
		t.Errorf("Size() = %d, want 1", rl.Size())
	}
}

func TestRecovery(t *testing.T) {
	handler := Recovery(logger.NewNop())(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		panic("boom")
	}))

	rec := httptest.NewRecorder()
	handler.ServeHTTP(rec, httptest.NewRequest(http.MethodGet, "/", nil))

	if rec.Code != http.StatusInternalServerError {
		t.Errorf("status = %d, want 500", rec.Code)
	}
}
