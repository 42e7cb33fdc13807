package storage

import (
	"context"
	"errors"

	"github.com/R3E-Network/todo_service/internal/app/domain/todo"
)

var (
	// ErrNotFound is returned when no record matches the requested key.
	ErrNotFound = errors.New("storage: record not found")
	// ErrDuplicate is returned when a write would break a uniqueness constraint.
	ErrDuplicate = errors.New("storage: duplicate record")
)

// ItemStore persists to-do items. Implementations carry no business rules
// beyond the constraints the schema itself declares.
type ItemStore interface {
	CreateItem(ctx context.Context, item todo.Item) (todo.Item, error)
	UpdateItem(ctx context.Context, item todo.Item) (todo.Item, error)
	GetItem(ctx context.Context, id int64) (todo.Item, error)
	// ListItems returns every item ordered by creation time, newest first.
	ListItems(ctx context.Context) ([]todo.Item, error)
	// ListItemsByStatus filters ListItems by completion flag.
	ListItemsByStatus(ctx context.Context, complete bool) ([]todo.Item, error)
	DeleteItem(ctx context.Context, id int64) error
}

// Pinger is implemented by stores backed by a remote database.
type Pinger interface {
	Ping(ctx context.Context) error
}
