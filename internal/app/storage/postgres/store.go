package postgres

import (
	"context"
	"database/sql"
	"errors"
	"fmt"

	"github.com/jmoiron/sqlx"
	"github.com/lib/pq"

	"github.com/R3E-Network/todo_service/internal/app/domain/todo"
	"github.com/R3E-Network/todo_service/internal/app/storage"
)

// uniqueViolation is the Postgres SQLSTATE for unique_violation.
const uniqueViolation = "23505"

const itemColumns = `id, title, description, is_complete, created_at, updated_at, created_by, updated_by`

// Store implements storage.ItemStore backed by PostgreSQL.
type Store struct {
	db *sqlx.DB
}

var _ storage.ItemStore = (*Store)(nil)
var _ storage.Pinger = (*Store)(nil)

// New creates a Store using the provided database handle.
func New(db *sqlx.DB) *Store {
	return &Store{db: db}
}

func (s *Store) CreateItem(ctx context.Context, item todo.Item) (todo.Item, error) {
	var createdAt any
	if !item.CreatedAt.IsZero() {
		createdAt = item.CreatedAt
	}

	var out todo.Item
	err := s.db.QueryRowxContext(ctx, `
		INSERT INTO todo_items (title, description, is_complete, created_at, updated_at, created_by, updated_by)
		VALUES ($1, $2, $3, COALESCE($4, CURRENT_TIMESTAMP), $5, $6, $7)
		RETURNING `+itemColumns,
		item.Title, item.Description, item.IsComplete, createdAt, item.UpdatedAt, item.CreatedBy, item.UpdatedBy,
	).StructScan(&out)
	if err != nil {
		return todo.Item{}, mapError(err)
	}
	return normalizeTimes(out), nil
}

func (s *Store) UpdateItem(ctx context.Context, item todo.Item) (todo.Item, error) {
	var out todo.Item
	err := s.db.GetContext(ctx, &out, `
		UPDATE todo_items
		SET title = $2, description = $3, is_complete = $4, updated_at = $5, updated_by = $6
		WHERE id = $1
		RETURNING `+itemColumns,
		item.ID, item.Title, item.Description, item.IsComplete, item.UpdatedAt, item.UpdatedBy,
	)
	if err != nil {
		return todo.Item{}, mapError(err)
	}
	return normalizeTimes(out), nil
}

func (s *Store) GetItem(ctx context.Context, id int64) (todo.Item, error) {
	var out todo.Item
	if err := s.db.GetContext(ctx, &out, `SELECT `+itemColumns+` FROM todo_items WHERE id = $1`, id); err != nil {
		return todo.Item{}, mapError(err)
	}
	return normalizeTimes(out), nil
}

func (s *Store) ListItems(ctx context.Context) ([]todo.Item, error) {
	var items []todo.Item
	if err := s.db.SelectContext(ctx, &items, `
		SELECT `+itemColumns+`
		FROM todo_items
		ORDER BY created_at DESC, id DESC
	`); err != nil {
		return nil, mapError(err)
	}
	return normalizeAll(items), nil
}

func (s *Store) ListItemsByStatus(ctx context.Context, complete bool) ([]todo.Item, error) {
	var items []todo.Item
	if err := s.db.SelectContext(ctx, &items, `
		SELECT `+itemColumns+`
		FROM todo_items
		WHERE is_complete = $1
		ORDER BY created_at DESC, id DESC
	`, complete); err != nil {
		return nil, mapError(err)
	}
	return normalizeAll(items), nil
}

func (s *Store) DeleteItem(ctx context.Context, id int64) error {
	result, err := s.db.ExecContext(ctx, `DELETE FROM todo_items WHERE id = $1`, id)
	if err != nil {
		return mapError(err)
	}
	if rows, _ := result.RowsAffected(); rows == 0 {
		return storage.ErrNotFound
	}
	return nil
}

// Ping verifies the database connection.
func (s *Store) Ping(ctx context.Context) error {
	return s.db.PingContext(ctx)
}

func mapError(err error) error {
	if errors.Is(err, sql.ErrNoRows) {
		return storage.ErrNotFound
	}
	var pqErr *pq.Error
	if errors.As(err, &pqErr) && string(pqErr.Code) == uniqueViolation {
		return fmt.Errorf("%w: %s", storage.ErrDuplicate, pqErr.Constraint)
	}
	return err
}

func normalizeTimes(item todo.Item) todo.Item {
	item.CreatedAt = item.CreatedAt.UTC()
	if item.UpdatedAt != nil {
		ts := item.UpdatedAt.UTC()
		item.UpdatedAt = &ts
	}
	return item
}

func normalizeAll(items []todo.Item) []todo.Item {
	if items == nil {
		return []todo.Item{}
	}
	for i := range items {
		items[i] = normalizeTimes(items[i])
	}
	return items
}
