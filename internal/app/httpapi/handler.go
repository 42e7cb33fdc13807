package httpapi

import (
	"errors"
	"net/http"
	"strconv"
	"strings"

	"github.com/gorilla/mux"

	"github.com/R3E-Network/todo_service/internal/app/core/service"
	"github.com/R3E-Network/todo_service/internal/app/domain/todo"
	"github.com/R3E-Network/todo_service/internal/app/metrics"
	"github.com/R3E-Network/todo_service/internal/app/services/todos"
	"github.com/R3E-Network/todo_service/internal/httputil"
	"github.com/R3E-Network/todo_service/internal/middleware"
	"github.com/R3E-Network/todo_service/pkg/logger"
)

const apiPrefix = "/api/v1"

// Config wires the item API.
type Config struct {
	Items       *todos.Service
	Logger      *logger.Logger
	Audit       *AuditLog
	RateLimiter *middleware.RateLimiter
	CORSOrigins []string
	Version     string
}

// handler bundles HTTP endpoints for the item service.
type handler struct {
	items   *todos.Service
	audit   *AuditLog
	log     *logger.Logger
	version string
}

// NewHandler returns the full HTTP stack: routes plus tracing, recovery,
// CORS, rate limiting and audit middleware.
func NewHandler(cfg Config) http.Handler {
	log := cfg.Logger
	if log == nil {
		log = logger.NewDefault("httpapi")
	}
	h := &handler{
		items:   cfg.Items,
		audit:   cfg.Audit,
		log:     log,
		version: cfg.Version,
	}

	var stack http.Handler = h.routes()
	stack = wrapWithAudit(stack, cfg.Audit)
	if cfg.RateLimiter != nil {
		stack = cfg.RateLimiter.Handler(stack)
	}
	if len(cfg.CORSOrigins) > 0 {
		stack = middleware.NewCORSMiddleware(cfg.CORSOrigins).Handler(stack)
	}
	stack = middleware.Recovery(log)(stack)
	stack = middleware.NewTracingMiddleware(log).Handler(stack)
	return stack
}

func (h *handler) routes() *mux.Router {
	r := mux.NewRouter()
	r.NotFoundHandler = http.HandlerFunc(notFound)
	r.MethodNotAllowedHandler = http.HandlerFunc(methodNotAllowed)
	r.Use(middleware.MetricsMiddleware())

	r.HandleFunc("/healthz", h.health).Methods(http.MethodGet)
	r.Handle("/metrics", metrics.Handler()).Methods(http.MethodGet)

	api := r.PathPrefix(apiPrefix).Subrouter()
	api.NotFoundHandler = http.HandlerFunc(notFound)
	api.MethodNotAllowedHandler = http.HandlerFunc(methodNotAllowed)

	api.HandleFunc("/todo", h.listItems).Methods(http.MethodGet)
	api.HandleFunc("/todo", h.createItem).Methods(http.MethodPost)
	api.HandleFunc("/todo/status/{isComplete}", h.listItemsByStatus).Methods(http.MethodGet)
	api.HandleFunc("/todo/{id}", h.getItem).Methods(http.MethodGet)
	api.HandleFunc("/todo/{id}", h.updateItem).Methods(http.MethodPut)
	api.HandleFunc("/todo/{id}", h.deleteItem).Methods(http.MethodDelete)

	api.HandleFunc("/audit", h.auditTrail).Methods(http.MethodGet)
	api.HandleFunc("/info", h.info).Methods(http.MethodGet)
	return r
}

func (h *handler) listItems(w http.ResponseWriter, r *http.Request) {
	items, err := h.items.List(r.Context())
	if err != nil {
		h.writeServiceError(w, r, err)
		return
	}
	httputil.WriteJSON(w, http.StatusOK, items)
}

func (h *handler) listItemsByStatus(w http.ResponseWriter, r *http.Request) {
	complete, err := strconv.ParseBool(mux.Vars(r)["isComplete"])
	if err != nil {
		httputil.BadRequest(w, "isComplete must be true or false")
		return
	}
	items, err := h.items.ListByStatus(r.Context(), complete)
	if err != nil {
		h.writeServiceError(w, r, err)
		return
	}
	httputil.WriteJSON(w, http.StatusOK, items)
}

func (h *handler) getItem(w http.ResponseWriter, r *http.Request) {
	id, ok := pathID(w, r)
	if !ok {
		return
	}
	item, found, err := h.items.Get(r.Context(), id)
	if err != nil {
		h.writeServiceError(w, r, err)
		return
	}
	if !found {
		httputil.NotFound(w, "todo item not found")
		return
	}
	httputil.WriteJSON(w, http.StatusOK, item)
}

func (h *handler) createItem(w http.ResponseWriter, r *http.Request) {
	var payload todo.CreateInput
	if err := httputil.DecodeJSON(r, &payload); err != nil {
		httputil.BadRequest(w, err.Error())
		return
	}

	created, err := h.items.Create(r.Context(), actorFrom(r), payload)
	if err != nil {
		h.writeServiceError(w, r, err)
		return
	}
	w.Header().Set("Location", apiPrefix+"/todo/"+strconv.FormatInt(created.ID, 10))
	httputil.WriteJSON(w, http.StatusCreated, created)
}

func (h *handler) updateItem(w http.ResponseWriter, r *http.Request) {
	id, ok := pathID(w, r)
	if !ok {
		return
	}
	var payload todo.UpdateInput
	if err := httputil.DecodeJSON(r, &payload); err != nil {
		httputil.BadRequest(w, err.Error())
		return
	}
	if payload.ID != id {
		httputil.BadRequest(w, "id in path does not match id in body")
		return
	}

	if _, err := h.items.Update(r.Context(), actorFrom(r), payload); err != nil {
		h.writeServiceError(w, r, err)
		return
	}
	httputil.NoContent(w)
}

func (h *handler) deleteItem(w http.ResponseWriter, r *http.Request) {
	id, ok := pathID(w, r)
	if !ok {
		return
	}
	if err := h.items.Delete(r.Context(), id); err != nil {
		h.writeServiceError(w, r, err)
		return
	}
	httputil.NoContent(w)
}

func (h *handler) health(w http.ResponseWriter, r *http.Request) {
	if err := h.items.Ping(r.Context()); err != nil {
		h.log.FromContext(r.Context()).WithError(err).Warn("health check failed")
		httputil.WriteJSON(w, http.StatusServiceUnavailable, map[string]string{"status": "unavailable"})
		return
	}
	httputil.WriteJSON(w, http.StatusOK, map[string]string{"status": "ok"})
}

func (h *handler) auditTrail(w http.ResponseWriter, r *http.Request) {
	if h.audit == nil {
		httputil.WriteJSON(w, http.StatusOK, []AuditEntry{})
		return
	}
	limit := 0
	if raw := strings.TrimSpace(r.URL.Query().Get("limit")); raw != "" {
		n, err := strconv.Atoi(raw)
		if err != nil || n < 0 {
			httputil.BadRequest(w, "limit must be a non-negative integer")
			return
		}
		limit = n
	}
	httputil.WriteJSON(w, http.StatusOK, h.audit.Recent(limit))
}

func (h *handler) info(w http.ResponseWriter, r *http.Request) {
	desc := todos.Descriptor
	if h.audit != nil {
		desc = desc.WithCapabilities("audit")
	}
	httputil.WriteJSON(w, http.StatusOK, map[string]any{
		"version":  h.version,
		"services": []service.Descriptor{desc},
	})
}

// writeServiceError maps the service error taxonomy onto status codes.
// Anything unrecognised is logged and answered with a generic 500.
func (h *handler) writeServiceError(w http.ResponseWriter, r *http.Request, err error) {
	var (
		validation *service.ValidationError
		notFound   *service.NotFoundError
		cooldown   *service.CooldownError
		conflict   *service.ConflictError
	)
	switch {
	case errors.As(err, &validation):
		httputil.BadRequest(w, validation.Message)
	case errors.As(err, &notFound):
		httputil.NotFound(w, notFound.Error())
	case errors.As(err, &cooldown):
		httputil.Conflict(w, cooldown.Error())
	case errors.As(err, &conflict):
		httputil.Conflict(w, conflict.Reason)
	case service.IsValidationError(err):
		httputil.BadRequest(w, err.Error())
	case service.IsNotFound(err):
		httputil.NotFound(w, err.Error())
	case service.IsConflict(err):
		httputil.Conflict(w, err.Error())
	default:
		h.log.FromContext(r.Context()).
			WithField("method", r.Method).
			WithField("path", r.URL.Path).
			WithError(err).
			Error("request failed")
		httputil.InternalError(w)
	}
}

func pathID(w http.ResponseWriter, r *http.Request) (int64, bool) {
	id, err := strconv.ParseInt(mux.Vars(r)["id"], 10, 64)
	if err != nil || id <= 0 {
		httputil.BadRequest(w, "id must be a positive integer")
		return 0, false
	}
	return id, true
}

func notFound(w http.ResponseWriter, _ *http.Request) {
	httputil.NotFound(w, "route not found")
}

func methodNotAllowed(w http.ResponseWriter, _ *http.Request) {
	httputil.MethodNotAllowed(w)
}
