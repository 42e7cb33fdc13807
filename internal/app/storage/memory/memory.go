package memory

import (
	"context"
	"sort"
	"strings"
	"sync"
	"time"

	"github.com/R3E-Network/todo_service/internal/app/domain/todo"
	"github.com/R3E-Network/todo_service/internal/app/storage"
)

// Store is an in-memory ItemStore. It is safe for concurrent use and is
// primarily intended for tests and local development. It enforces the same
// case-insensitive title uniqueness the Postgres schema declares.
type Store struct {
	mu     sync.RWMutex
	nextID int64
	items  map[int64]todo.Item
	now    func() time.Time
}

var _ storage.ItemStore = (*Store)(nil)

// New creates an empty store.
func New() *Store {
	return &Store{
		nextID: 1,
		items:  make(map[int64]todo.Item),
		now:    func() time.Time { return time.Now().UTC() },
	}
}

func (s *Store) CreateItem(_ context.Context, item todo.Item) (todo.Item, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	if s.titleTakenLocked(item.Title, 0) {
		return todo.Item{}, storage.ErrDuplicate
	}

	item.ID = s.nextID
	s.nextID++
	if item.CreatedAt.IsZero() {
		item.CreatedAt = s.now()
	}
	s.items[item.ID] = cloneItem(item)
	return cloneItem(item), nil
}

func (s *Store) UpdateItem(_ context.Context, item todo.Item) (todo.Item, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	existing, ok := s.items[item.ID]
	if !ok {
		return todo.Item{}, storage.ErrNotFound
	}
	if s.titleTakenLocked(item.Title, item.ID) {
		return todo.Item{}, storage.ErrDuplicate
	}

	item.CreatedAt = existing.CreatedAt
	item.CreatedBy = existing.CreatedBy
	s.items[item.ID] = cloneItem(item)
	return cloneItem(item), nil
}

func (s *Store) GetItem(_ context.Context, id int64) (todo.Item, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	item, ok := s.items[id]
	if !ok {
		return todo.Item{}, storage.ErrNotFound
	}
	return cloneItem(item), nil
}

func (s *Store) ListItems(_ context.Context) ([]todo.Item, error) {
	return s.list(func(todo.Item) bool { return true }), nil
}

func (s *Store) ListItemsByStatus(_ context.Context, complete bool) ([]todo.Item, error) {
	return s.list(func(it todo.Item) bool { return it.IsComplete == complete }), nil
}

func (s *Store) DeleteItem(_ context.Context, id int64) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	if _, ok := s.items[id]; !ok {
		return storage.ErrNotFound
	}
	delete(s.items, id)
	return nil
}

func (s *Store) list(keep func(todo.Item) bool) []todo.Item {
	s.mu.RLock()
	defer s.mu.RUnlock()

	result := make([]todo.Item, 0, len(s.items))
	for _, item := range s.items {
		if keep(item) {
			result = append(result, cloneItem(item))
		}
	}
	sort.Slice(result, func(i, j int) bool {
		if result[i].CreatedAt.Equal(result[j].CreatedAt) {
			return result[i].ID > result[j].ID
		}
		return result[i].CreatedAt.After(result[j].CreatedAt)
	})
	return result
}

func (s *Store) titleTakenLocked(title string, exclude int64) bool {
	want := strings.TrimSpace(title)
	for id, item := range s.items {
		if id != exclude && strings.EqualFold(strings.TrimSpace(item.Title), want) {
			return true
		}
	}
	return false
}

func cloneItem(item todo.Item) todo.Item {
	out := item
	out.Description = cloneString(item.Description)
	out.CreatedBy = cloneString(item.CreatedBy)
	out.UpdatedBy = cloneString(item.UpdatedBy)
	if item.UpdatedAt != nil {
		ts := *item.UpdatedAt
		out.UpdatedAt = &ts
	}
	return out
}

func cloneString(s *string) *string {
	if s == nil {
		return nil
	}
	v := *s
	return &v
}
