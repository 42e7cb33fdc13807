package httpapi

import (
	"context"
	"encoding/json"
	"net/http"
	"os"
	"strings"
	"sync"
	"time"

	"github.com/jmoiron/sqlx"

	"github.com/R3E-Network/todo_service/internal/app/services/todos"
	"github.com/R3E-Network/todo_service/internal/httputil"
	"github.com/R3E-Network/todo_service/pkg/logger"
)

// AuditEntry records one write request.
type AuditEntry struct {
	Time       time.Time `json:"time" db:"occurred_at"`
	Actor      string    `json:"actor" db:"actor"`
	Method     string    `json:"method" db:"method"`
	Path       string    `json:"path" db:"path"`
	Status     int       `json:"status" db:"status"`
	TraceID    string    `json:"trace_id,omitempty" db:"trace_id"`
	RemoteAddr string    `json:"remote_addr,omitempty" db:"remote_addr"`
	UserAgent  string    `json:"user_agent,omitempty" db:"user_agent"`
}

// AuditSink persists audit entries outside the in-memory ring.
type AuditSink interface {
	Write(entry AuditEntry) error
}

// AuditLog keeps the most recent write requests in memory and forwards each
// one to an optional sink.
type AuditLog struct {
	mu      sync.Mutex
	entries []AuditEntry
	max     int
	sink    AuditSink
	log     *logger.Logger
}

// NewAuditLog returns a log holding at most max entries. A nil sink keeps
// entries in memory only. Sinks are called concurrently and must be safe
// for that.
func NewAuditLog(max int, sink AuditSink, log *logger.Logger) *AuditLog {
	if max <= 0 {
		max = 200
	}
	if log == nil {
		log = logger.NewDefault("audit")
	}
	return &AuditLog{max: max, sink: sink, log: log}
}

func (l *AuditLog) add(entry AuditEntry) {
	l.mu.Lock()
	l.entries = append(l.entries, entry)
	if len(l.entries) > l.max {
		l.entries = l.entries[len(l.entries)-l.max:]
	}
	l.mu.Unlock()

	if l.sink == nil {
		return
	}
	// A failing sink never fails the request.
	if err := l.sink.Write(entry); err != nil {
		l.log.WithError(err).
			WithField("method", entry.Method).
			WithField("path", entry.Path).
			WithField("trace_id", entry.TraceID).
			Warn("audit sink write failed")
	}
}

func (l *AuditLog) list() []AuditEntry {
	l.mu.Lock()
	defer l.mu.Unlock()
	out := make([]AuditEntry, len(l.entries))
	copy(out, l.entries)
	return out
}

// Recent returns up to limit entries, oldest first. Non-positive limits
// return everything held.
func (l *AuditLog) Recent(limit int) []AuditEntry {
	if limit <= 0 || limit > l.max {
		limit = l.max
	}
	all := l.list()
	if len(all) <= limit {
		return all
	}
	return all[len(all)-limit:]
}

// wrapWithAudit records every non-GET request that reaches the item API.
func wrapWithAudit(next http.Handler, audit *AuditLog) http.Handler {
	if audit == nil {
		return next
	}
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if r.Method == http.MethodGet || r.Method == http.MethodHead || r.Method == http.MethodOptions ||
			!strings.HasPrefix(r.URL.Path, apiPrefix+"/") {
			next.ServeHTTP(w, r)
			return
		}

		rec := &statusRecorder{ResponseWriter: w, status: http.StatusOK}
		next.ServeHTTP(rec, r)

		audit.add(AuditEntry{
			Time:       time.Now().UTC(),
			Actor:      actorFrom(r),
			Method:     r.Method,
			Path:       r.URL.Path,
			Status:     rec.status,
			TraceID:    logger.TraceIDFromContext(r.Context()),
			RemoteAddr: r.RemoteAddr,
			UserAgent:  r.UserAgent(),
		})
	})
}

type statusRecorder struct {
	http.ResponseWriter
	status int
}

func (r *statusRecorder) WriteHeader(code int) {
	r.status = code
	r.ResponseWriter.WriteHeader(code)
}

// actorFrom resolves the acting user from the X-User-ID header.
func actorFrom(r *http.Request) string {
	if actor := strings.TrimSpace(r.Header.Get(httputil.ActorHeader)); actor != "" {
		return actor
	}
	return todos.SystemActor
}

// FileAuditSink appends audit entries as JSONL.
type FileAuditSink struct {
	mu   sync.Mutex
	file *os.File
}

// NewFileAuditSink opens path for appending. An empty path returns nil.
func NewFileAuditSink(path string) (*FileAuditSink, error) {
	if path == "" {
		return nil, nil
	}
	f, err := os.OpenFile(path, os.O_CREATE|os.O_WRONLY|os.O_APPEND, 0o640)
	if err != nil {
		return nil, err
	}
	return &FileAuditSink{file: f}, nil
}

func (s *FileAuditSink) Write(entry AuditEntry) error {
	if s == nil || s.file == nil {
		return nil
	}
	b, err := json.Marshal(entry)
	if err != nil {
		return err
	}
	s.mu.Lock()
	defer s.mu.Unlock()
	_, err = s.file.Write(append(b, '\n'))
	return err
}

// Close closes the underlying file.
func (s *FileAuditSink) Close() error {
	if s == nil || s.file == nil {
		return nil
	}
	return s.file.Close()
}

// PostgresAuditSink inserts audit entries into http_audit_log.
type PostgresAuditSink struct {
	db      *sqlx.DB
	timeout time.Duration
}

// NewPostgresAuditSink returns a sink writing through db. A nil db returns nil.
func NewPostgresAuditSink(db *sqlx.DB) *PostgresAuditSink {
	if db == nil {
		return nil
	}
	return &PostgresAuditSink{db: db, timeout: 2 * time.Second}
}

func (s *PostgresAuditSink) Write(entry AuditEntry) error {
	if s == nil || s.db == nil {
		return nil
	}
	ctx, cancel := context.WithTimeout(context.Background(), s.timeout)
	defer cancel()
	_, err := s.db.NamedExecContext(ctx, `
		INSERT INTO http_audit_log (occurred_at, actor, method, path, status, trace_id, remote_addr, user_agent)
		VALUES (:occurred_at, :actor, :method, :path, :status, :trace_id, :remote_addr, :user_agent)
	`, entry)
	return err
}

// multiSink fans out to several sinks and returns the first error.
type multiSink []AuditSink

// CombineSinks returns a sink writing to every non-nil sink, or nil when
// none remain.
func CombineSinks(sinks ...AuditSink) AuditSink {
	var out multiSink
	for _, s := range sinks {
		if s != nil && !isNilSink(s) {
			out = append(out, s)
		}
	}
	switch len(out) {
	case 0:
		return nil
	case 1:
		return out[0]
	}
	return out
}

func (m multiSink) Write(entry AuditEntry) error {
	var first error
	for _, s := range m {
		if err := s.Write(entry); err != nil && first == nil {
			first = err
		}
	}
	return first
}

func isNilSink(s AuditSink) bool {
	switch v := s.(type) {
	case *FileAuditSink:
		return v == nil
	case *PostgresAuditSink:
		return v == nil
	}
	return false
}
