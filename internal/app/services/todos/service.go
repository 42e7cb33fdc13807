// Package todos implements the item service: it runs the rule checks for
// every write, converts between wire shapes and stored items, and owns the
// create/update/delete transitions.
package todos

import (
	"context"
	"errors"
	"strconv"
	"strings"
	"time"

	"github.com/R3E-Network/todo_service/internal/app/core/service"
	"github.com/R3E-Network/todo_service/internal/app/domain/todo"
	"github.com/R3E-Network/todo_service/internal/app/metrics"
	"github.com/R3E-Network/todo_service/internal/app/rules"
	"github.com/R3E-Network/todo_service/internal/app/storage"
	"github.com/R3E-Network/todo_service/pkg/logger"
)

// SystemActor is recorded in the audit fields when the caller supplies no
// identity.
const SystemActor = "system"

const (
	serviceName = "todos"
	resource    = "todo item"
)

// Descriptor advertises the service to the info endpoint.
var Descriptor = service.Descriptor{
	Name:         serviceName,
	Domain:       "todo",
	Layer:        service.LayerApplication,
	Capabilities: []string{"list", "get", "list_by_status", "create", "update", "delete"},
}

// Service manages to-do items.
type Service struct {
	store  storage.ItemStore
	policy rules.Policy
	log    *logger.Logger
	now    func() time.Time
}

// Option customises a Service.
type Option func(*Service)

// WithPolicy overrides the default rule policy.
func WithPolicy(p rules.Policy) Option {
	return func(s *Service) { s.policy = p.Normalize() }
}

// WithClock overrides the time source. The returned time is converted to UTC.
func WithClock(now func() time.Time) Option {
	return func(s *Service) {
		if now != nil {
			s.now = now
		}
	}
}

// New constructs an item service.
func New(store storage.ItemStore, log *logger.Logger, opts ...Option) *Service {
	if log == nil {
		log = logger.NewDefault(serviceName)
	}
	s := &Service{
		store:  store,
		policy: rules.DefaultPolicy(),
		log:    log,
		now:    time.Now,
	}
	for _, opt := range opts {
		opt(s)
	}
	return s
}

// List returns summaries of every item, newest first.
func (s *Service) List(ctx context.Context) ([]todo.Summary, error) {
	items, err := s.store.ListItems(ctx)
	if err != nil {
		return nil, s.fail(ctx, "List", err)
	}
	s.log.FromContext(ctx).WithField("count", len(items)).Debug("listed items")
	metrics.RecordOperation("list", "ok")
	return summaries(items), nil
}

// ListByStatus returns summaries of items with the given completion flag.
func (s *Service) ListByStatus(ctx context.Context, complete bool) ([]todo.Summary, error) {
	items, err := s.store.ListItemsByStatus(ctx, complete)
	if err != nil {
		return nil, s.fail(ctx, "ListByStatus", err)
	}
	s.log.FromContext(ctx).
		WithField("complete", complete).
		WithField("count", len(items)).
		Debug("listed items by status")
	metrics.RecordOperation("list_by_status", "ok")
	return summaries(items), nil
}

// Get returns the full representation of an item. A missing item is reported
// through found=false rather than an error.
func (s *Service) Get(ctx context.Context, id int64) (resp todo.Response, found bool, err error) {
	item, err := s.store.GetItem(ctx, id)
	if errors.Is(err, storage.ErrNotFound) {
		s.log.FromContext(ctx).WithField("item_id", id).Info("item not found")
		metrics.RecordOperation("get", "not_found")
		return todo.Response{}, false, nil
	}
	if err != nil {
		return todo.Response{}, false, s.fail(ctx, "Get", err)
	}
	metrics.RecordOperation("get", "ok")
	return item.Response(), true, nil
}

// Create validates and stores a new item on behalf of actor.
func (s *Service) Create(ctx context.Context, actor string, in todo.CreateInput) (todo.Response, error) {
	log := s.log.FromContext(ctx).WithField("title", in.Title)
	log.Info("creating item")

	if err := s.checkNewTitle(in.Title); err != nil {
		return todo.Response{}, s.reject(ctx, "create", err)
	}
	if err := rules.ValidateDescription(in.Description); err != nil {
		return todo.Response{}, s.reject(ctx, "create", err)
	}
	if err := s.checkUnique(ctx, in.Title, 0); err != nil {
		return todo.Response{}, s.reject(ctx, "create", err)
	}

	who := resolveActor(actor)
	item := todo.Item{
		Title:       strings.TrimSpace(in.Title),
		Description: trimOptional(in.Description),
		IsComplete:  false,
		CreatedAt:   s.now().UTC(),
		CreatedBy:   &who,
	}

	created, err := s.store.CreateItem(ctx, item)
	if err != nil {
		return todo.Response{}, s.storeFailure(ctx, "create", "Create", err)
	}

	log.WithField("item_id", created.ID).WithField("actor", who).Info("item created")
	metrics.RecordOperation("create", "ok")
	return created.Response(), nil
}

// Update replaces the title, description and completion flag of an
// existing item on behalf of actor.
func (s *Service) Update(ctx context.Context, actor string, in todo.UpdateInput) (todo.Response, error) {
	log := s.log.FromContext(ctx).WithField("item_id", in.ID)
	log.Info("updating item")

	existing, err := s.store.GetItem(ctx, in.ID)
	if errors.Is(err, storage.ErrNotFound) {
		return todo.Response{}, s.reject(ctx, "update", service.NewNotFoundError(resource, idString(in.ID)))
	}
	if err != nil {
		return todo.Response{}, s.fail(ctx, "Update", err)
	}

	if err := rules.ValidateTitleShape(in.Title); err != nil {
		return todo.Response{}, s.reject(ctx, "update", err)
	}
	if err := rules.ValidateDescription(in.Description); err != nil {
		return todo.Response{}, s.reject(ctx, "update", err)
	}
	if err := rules.CheckCompletionTransition(existing, in.IsComplete); err != nil {
		return todo.Response{}, s.reject(ctx, "update", err)
	}
	if err := s.policy.CheckProhibitedWords(in.Title); err != nil {
		return todo.Response{}, s.reject(ctx, "update", err)
	}
	if err := s.checkUnique(ctx, in.Title, in.ID); err != nil {
		return todo.Response{}, s.reject(ctx, "update", err)
	}

	if !existing.IsComplete && in.IsComplete {
		log.WithField("title", in.Title).Info("item marked complete")
	}

	who := resolveActor(actor)
	now := s.now().UTC()
	existing.Title = strings.TrimSpace(in.Title)
	existing.Description = trimOptional(in.Description)
	existing.IsComplete = in.IsComplete
	existing.UpdatedAt = &now
	existing.UpdatedBy = &who

	updated, err := s.store.UpdateItem(ctx, existing)
	if err != nil {
		return todo.Response{}, s.storeFailure(ctx, "update", "Update", err)
	}

	log.WithField("actor", who).Info("item updated")
	metrics.RecordOperation("update", "ok")
	return updated.Response(), nil
}

// Delete removes an item once every delete guard passes.
func (s *Service) Delete(ctx context.Context, id int64) error {
	log := s.log.FromContext(ctx).WithField("item_id", id)
	log.Info("deleting item")

	item, err := s.store.GetItem(ctx, id)
	if errors.Is(err, storage.ErrNotFound) {
		return s.reject(ctx, "delete", service.NewNotFoundError(resource, idString(id)))
	}
	if err != nil {
		return s.fail(ctx, "Delete", err)
	}

	if err := s.policy.CheckDeletable(item, s.now().UTC()); err != nil {
		return s.reject(ctx, "delete", err)
	}

	if !item.IsComplete {
		log.WithField("title", item.Title).Info("deleting item that is not complete")
	}

	if err := s.store.DeleteItem(ctx, id); err != nil {
		return s.storeFailure(ctx, "delete", "Delete", err)
	}

	log.Info("item deleted")
	metrics.RecordOperation("delete", "ok")
	return nil
}

// Ping reports whether the backing store is reachable. Stores without a
// remote connection are always healthy.
func (s *Service) Ping(ctx context.Context) error {
	if p, ok := s.store.(storage.Pinger); ok {
		return p.Ping(ctx)
	}
	return nil
}

func (s *Service) checkNewTitle(title string) error {
	if err := rules.ValidateTitleShape(title); err != nil {
		return err
	}
	return s.policy.CheckProhibitedWords(title)
}

func (s *Service) checkUnique(ctx context.Context, title string, excludeID int64) error {
	existing, err := s.store.ListItems(ctx)
	if err != nil {
		return service.WrapServiceError(serviceName, "checkUnique", err)
	}
	return rules.CheckUniqueTitle(title, existing, excludeID)
}

// storeFailure translates store sentinels into typed errors. A storage
// duplicate here means a concurrent writer won the race past checkUnique.
func (s *Service) storeFailure(ctx context.Context, operation, op string, err error) error {
	switch {
	case errors.Is(err, storage.ErrDuplicate):
		return s.reject(ctx, operation, service.NewConflictError(resource, "", "duplicate title"))
	case errors.Is(err, storage.ErrNotFound):
		return s.reject(ctx, operation, service.NewNotFoundError(resource, ""))
	default:
		return s.fail(ctx, op, err)
	}
}

// reject logs and counts a rule failure, then returns it unchanged. Errors
// that are not rule failures are routed to fail.
func (s *Service) reject(ctx context.Context, operation string, err error) error {
	kind := errorKind(err)
	if kind == "error" {
		return s.fail(ctx, operation, err)
	}
	s.log.FromContext(ctx).
		WithField("operation", operation).
		WithField("kind", kind).
		WithError(err).
		Warn("request rejected")
	metrics.RecordRuleRejection(operation, kind)
	metrics.RecordOperation(operation, kind)
	return err
}

func (s *Service) fail(ctx context.Context, op string, err error) error {
	s.log.FromContext(ctx).WithField("operation", op).WithError(err).Error("unexpected item service failure")
	metrics.RecordOperation(strings.ToLower(op), "error")
	var se *service.ServiceError
	if errors.As(err, &se) {
		return err
	}
	return service.WrapServiceError(serviceName, op, err)
}

func errorKind(err error) string {
	switch {
	case service.IsValidationError(err):
		return "validation"
	case service.IsNotFound(err):
		return "not_found"
	case service.IsConflict(err):
		return "conflict"
	default:
		return "error"
	}
}

func resolveActor(actor string) string {
	if a := strings.TrimSpace(actor); a != "" {
		return a
	}
	return SystemActor
}

func trimOptional(s *string) *string {
	if s == nil {
		return nil
	}
	v := strings.TrimSpace(*s)
	return &v
}

func summaries(items []todo.Item) []todo.Summary {
	out := make([]todo.Summary, 0, len(items))
	for _, item := range items {
		out = append(out, item.Summary())
	}
	return out
}

func idString(id int64) string {
	return strconv.FormatInt(id, 10)
}
