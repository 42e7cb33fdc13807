//go:build integration && postgres

package httpapi

import (
	"context"
	"fmt"
	"net/http"
	"net/http/httptest"
	"os"
	"testing"
	"time"

	"github.com/jmoiron/sqlx"
	"github.com/joho/godotenv"
	_ "github.com/lib/pq"

	"github.com/R3E-Network/todo_service/internal/app/domain/todo"
	"github.com/R3E-Network/todo_service/internal/app/services/todos"
	"github.com/R3E-Network/todo_service/internal/app/storage/postgres"
	"github.com/R3E-Network/todo_service/internal/httputil"
	"github.com/R3E-Network/todo_service/internal/platform/migrations"
	"github.com/R3E-Network/todo_service/pkg/logger"
)

// Integration test against Postgres to ensure migrations + core flows work with persistence.
func TestIntegrationPostgres(t *testing.T) {
	_ = godotenv.Load() // allow .env for local runs
	dsn := os.Getenv("DATABASE_URL")
	if dsn == "" {
		t.Skip("DATABASE_URL not set; skipping Postgres integration")
	}

	ctx := context.Background()
	if err := migrations.Up(dsn, logger.NewNop()); err != nil {
		t.Fatalf("migrate: %v", err)
	}

	db, err := sqlx.Open("postgres", dsn)
	if err != nil {
		t.Fatalf("open db: %v", err)
	}
	defer db.Close()

	svc := todos.New(postgres.New(db), logger.NewNop())
	audit := NewAuditLog(100, NewPostgresAuditSink(db), logger.NewNop())
	server := httptest.NewServer(NewHandler(Config{Items: svc, Logger: logger.NewNop(), Audit: audit}))
	defer server.Close()

	client := httputil.NewClient(httputil.ClientConfig{BaseURL: server.URL, Actor: "pg-integration"})
	title := fmt.Sprintf("Integration %d", time.Now().UnixNano())

	resp, err := client.Post(ctx, "/api/v1/todo", todo.CreateInput{Title: title})
	if err != nil {
		t.Fatalf("create: %v", err)
	}
	var created todo.Response
	if err := httputil.DecodeResponse(resp, &created); err != nil {
		t.Fatalf("create status: %v", err)
	}
	t.Cleanup(func() { _, _ = db.Exec(`DELETE FROM todo_items WHERE id = $1`, created.ID) })

	// The unique index rejects case variants even without the service pre-check.
	resp, err = client.Post(ctx, "/api/v1/todo", todo.CreateInput{Title: " " + title + " "})
	if err != nil {
		t.Fatalf("duplicate create: %v", err)
	}
	if resp.StatusCode != http.StatusConflict {
		t.Fatalf("expected 409 duplicate, got %d", resp.StatusCode)
	}
	resp.Body.Close()

	resp, err = client.Put(ctx, fmt.Sprintf("/api/v1/todo/%d", created.ID), todo.UpdateInput{ID: created.ID, Title: title, IsComplete: true})
	if err != nil {
		t.Fatalf("update: %v", err)
	}
	if err := httputil.DecodeResponse(resp, nil); err != nil {
		t.Fatalf("update status: %v", err)
	}

	resp, err = client.Get(ctx, fmt.Sprintf("/api/v1/todo/%d", created.ID))
	if err != nil {
		t.Fatalf("get: %v", err)
	}
	var got todo.Response
	if err := httputil.DecodeResponse(resp, &got); err != nil {
		t.Fatalf("get status: %v", err)
	}
	if !got.IsComplete || got.UpdatedBy == nil || *got.UpdatedBy != "pg-integration" {
		t.Fatalf("unexpected persisted item %+v", got)
	}

	if resp, err := client.Get(ctx, "/healthz"); err != nil || resp.StatusCode != http.StatusOK {
		t.Fatalf("healthz failed: %v", err)
	}

	var audited int
	if err := db.GetContext(ctx, &audited, `SELECT COUNT(*) FROM http_audit_log WHERE actor = 'pg-integration'`); err != nil {
		t.Fatalf("count audit rows: %v", err)
	}
	if audited < 3 {
		t.Fatalf("expected audited writes, got %d", audited)
	}
}
