package httputil

import (
	"context"
	"encoding/json"
	"errors"
	"net/http"
	"net/http/httptest"
	"strings"
	"sync/atomic"
	"testing"
	"time"

	"github.com/R3E-Network/todo_service/pkg/logger"
)

// =============================================================================
// Client Tests
// =============================================================================

func TestNewClient(t *testing.T) {
	client := NewClient(ClientConfig{
		BaseURL:    "http://localhost:8080/",
		Timeout:    10 * time.Second,
		MaxRetries: 3,
	})

	if client.baseURL != "http://localhost:8080" {
		t.Errorf("baseURL = %s, want http://localhost:8080", client.baseURL)
	}
	if client.maxRetries != 3 {
		t.Errorf("maxRetries = %d, want 3", client.maxRetries)
	}
}

func TestNewClient_Defaults(t *testing.T) {
	client := NewClient(ClientConfig{BaseURL: "http://localhost:8080"})
	if client.maxRetries != 2 {
		t.Errorf("default maxRetries = %d, want 2", client.maxRetries)
	}
	if client.httpClient.Timeout != 30*time.Second {
		t.Errorf("default timeout = %v, want 30s", client.httpClient.Timeout)
	}

	client = NewClient(ClientConfig{MaxRetries: -1})
	if client.maxRetries != 0 {
		t.Errorf("negative maxRetries = %d, want 0", client.maxRetries)
	}
}

func TestClient_ForwardsHeaders(t *testing.T) {
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if got := r.Header.Get(ActorHeader); got != "alice" {
			t.Errorf("%s = %q, want alice", ActorHeader, got)
		}
		if got := r.Header.Get(TraceHeader); got != "trace-1" {
			t.Errorf("%s = %q, want trace-1", TraceHeader, got)
		}
		WriteJSON(w, http.StatusOK, map[string]string{"status": "ok"})
	}))
	defer server.Close()

	client := NewClient(ClientConfig{BaseURL: server.URL, Actor: "alice"})
	ctx := logger.WithTraceID(context.Background(), "trace-1")

	resp, err := client.Get(ctx, "/test")
	if err != nil {
		t.Fatalf("Get() error = %v", err)
	}
	var out map[string]string
	if err := DecodeResponse(resp, &out); err != nil {
		t.Fatalf("DecodeResponse() error = %v", err)
	}
	if out["status"] != "ok" {
		t.Errorf("status = %q, want ok", out["status"])
	}
}

func TestClient_PostSendsJSON(t *testing.T) {
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if r.Method != http.MethodPost {
			t.Errorf("Method = %s, want POST", r.Method)
		}
		if ct := r.Header.Get("Content-Type"); ct != "application/json" {
			t.Errorf("Content-Type = %s, want application/json", ct)
		}
		var body map[string]string
		if err := json.NewDecoder(r.Body).Decode(&body); err != nil {
			t.Errorf("decode body: %v", err)
		}
		if body["title"] != "Buy milk" {
			t.Errorf("title = %q, want Buy milk", body["title"])
		}
		w.WriteHeader(http.StatusCreated)
	}))
	defer server.Close()

	client := NewClient(ClientConfig{BaseURL: server.URL})
	resp, err := client.Post(context.Background(), "/todo", map[string]string{"title": "Buy milk"})
	if err != nil {
		t.Fatalf("Post() error = %v", err)
	}
	if resp.StatusCode != http.StatusCreated {
		t.Errorf("StatusCode = %d, want 201", resp.StatusCode)
	}
	_ = DecodeResponse(resp, nil)
}

func TestClient_RetriesGatewayErrors(t *testing.T) {
	var calls int32
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if atomic.AddInt32(&calls, 1) < 3 {
			w.WriteHeader(http.StatusServiceUnavailable)
			return
		}
		w.WriteHeader(http.StatusNoContent)
	}))
	defer server.Close()

	client := NewClient(ClientConfig{BaseURL: server.URL, MaxRetries: 2})
	resp, err := client.Get(context.Background(), "/todo/1")
	if err != nil {
		t.Fatalf("Get() error = %v", err)
	}
	defer resp.Body.Close()
	if resp.StatusCode != http.StatusNoContent {
		t.Errorf("StatusCode = %d, want 204", resp.StatusCode)
	}
	if got := atomic.LoadInt32(&calls); got != 3 {
		t.Errorf("calls = %d, want 3", got)
	}
}

func TestClient_DoesNotRetryWrites(t *testing.T) {
	var calls int32
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		atomic.AddInt32(&calls, 1)
		w.WriteHeader(http.StatusBadGateway)
	}))
	defer server.Close()

	client := NewClient(ClientConfig{BaseURL: server.URL})
	ctx := context.Background()
	body := map[string]string{"title": "Buy milk"}

	writes := map[string]func() (*http.Response, error){
		http.MethodPost:   func() (*http.Response, error) { return client.Post(ctx, "/api/v1/todo", body) },
		http.MethodPut:    func() (*http.Response, error) { return client.Put(ctx, "/api/v1/todo/1", body) },
		http.MethodDelete: func() (*http.Response, error) { return client.Delete(ctx, "/api/v1/todo/1") },
	}
	for method, send := range writes {
		atomic.StoreInt32(&calls, 0)
		resp, err := send()
		if err != nil {
			t.Fatalf("%s error = %v", method, err)
		}
		resp.Body.Close()
		if resp.StatusCode != http.StatusBadGateway {
			t.Errorf("%s StatusCode = %d, want 502", method, resp.StatusCode)
		}
		if got := atomic.LoadInt32(&calls); got != 1 {
			t.Errorf("%s calls = %d, want 1", method, got)
		}
	}
}

func TestClient_DoesNotRetryClientErrors(t *testing.T) {
	var calls int32
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		atomic.AddInt32(&calls, 1)
		WriteError(w, http.StatusConflict, "duplicate title")
	}))
	defer server.Close()

	client := NewClient(ClientConfig{BaseURL: server.URL})
	resp, err := client.Put(context.Background(), "/todo/1", map[string]string{})
	if err != nil {
		t.Fatalf("Put() error = %v", err)
	}

	err = DecodeResponse(resp, nil)
	var se *StatusError
	if !errors.As(err, &se) {
		t.Fatalf("DecodeResponse() error = %v, want *StatusError", err)
	}
	if se.StatusCode != http.StatusConflict || !strings.Contains(se.Body, "duplicate title") {
		t.Errorf("StatusError = %+v", se)
	}
	if got := atomic.LoadInt32(&calls); got != 1 {
		t.Errorf("calls = %d, want 1", got)
	}
}

// =============================================================================
// Body helpers
// =============================================================================

func TestReadAllWithLimit(t *testing.T) {
	data, truncated, err := ReadAllWithLimit(strings.NewReader("abcdef"), 4)
	if err != nil {
		t.Fatalf("ReadAllWithLimit() error = %v", err)
	}
	if string(data) != "abcd" || !truncated {
		t.Errorf("got %q truncated=%v, want abcd truncated=true", data, truncated)
	}

	data, truncated, _ = ReadAllWithLimit(strings.NewReader("abc"), 4)
	if string(data) != "abc" || truncated {
		t.Errorf("got %q truncated=%v, want abc truncated=false", data, truncated)
	}
}

func TestReadAllStrict(t *testing.T) {
	if _, err := ReadAllStrict(strings.NewReader("abcdef"), 4); !errors.Is(err, ErrBodyTooLarge) {
		t.Errorf("ReadAllStrict() error = %v, want ErrBodyTooLarge", err)
	}
}
