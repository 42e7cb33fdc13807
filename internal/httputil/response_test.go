package httputil

import (
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"
)

func TestWriteError(t *testing.T) {
	rec := httptest.NewRecorder()
	InternalError(rec)

	if rec.Code != http.StatusInternalServerError {
		t.Fatalf("status = %d, want 500", rec.Code)
	}
	if ct := rec.Header().Get("Content-Type"); ct != "application/json" {
		t.Errorf("Content-Type = %s", ct)
	}
	var body ErrorResponse
	if err := json.Unmarshal(rec.Body.Bytes(), &body); err != nil {
		t.Fatalf("decode: %v", err)
	}
	if body.Error != "Internal server error" {
		t.Errorf("error = %q", body.Error)
	}
}

func TestDecodeJSON(t *testing.T) {
	type payload struct {
		Title string `json:"title"`
	}

	tests := []struct {
		name    string
		body    string
		ctype   string
		wantErr bool
	}{
		{name: "valid", body: `{"title":"x"}`, ctype: "application/json"},
		{name: "charset", body: `{"title":"x"}`, ctype: "application/json; charset=utf-8"},
		{name: "empty", body: ``, wantErr: true},
		{name: "malformed", body: `{"title":`, wantErr: true},
		{name: "unknown field", body: `{"title":"x","owner":"y"}`},
		{name: "trailing", body: `{"title":"x"}{"title":"y"}`, wantErr: true},
		{name: "wrong type", body: `{"title":"x"}`, ctype: "text/plain", wantErr: true},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			req := httptest.NewRequest(http.MethodPost, "/", strings.NewReader(tt.body))
			if tt.ctype != "" {
				req.Header.Set("Content-Type", tt.ctype)
			}
			var p payload
			err := DecodeJSON(req, &p)
			if (err != nil) != tt.wantErr {
				t.Fatalf("DecodeJSON() error = %v, wantErr %v", err, tt.wantErr)
			}
			if !tt.wantErr && p.Title != "x" {
				t.Errorf("title = %q, want x", p.Title)
			}
		})
	}
}
