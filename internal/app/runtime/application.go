package runtime

import (
	"context"
	"errors"
	"fmt"
	"net"
	"net/http"
	"sync"
	"time"

	"github.com/jmoiron/sqlx"
	_ "github.com/lib/pq"

	"github.com/R3E-Network/todo_service/internal/app/httpapi"
	"github.com/R3E-Network/todo_service/internal/app/services/todos"
	"github.com/R3E-Network/todo_service/internal/app/storage"
	"github.com/R3E-Network/todo_service/internal/app/storage/memory"
	"github.com/R3E-Network/todo_service/internal/app/storage/postgres"
	"github.com/R3E-Network/todo_service/internal/app/system"
	"github.com/R3E-Network/todo_service/internal/config"
	"github.com/R3E-Network/todo_service/internal/middleware"
	"github.com/R3E-Network/todo_service/internal/platform/migrations"
	"github.com/R3E-Network/todo_service/pkg/logger"
)

// Version is reported by the info endpoint. It is overridden at link time.
var Version = "dev"

const limiterIdleTimeout = 10 * time.Minute

// Application wires core dependencies and manages the HTTP server lifecycle.
type Application struct {
	cfg       *config.Config
	log       *logger.Logger
	server    *http.Server
	handler   http.Handler
	items     *todos.Service
	limiter   *middleware.RateLimiter
	audit     *httpapi.AuditLog
	auditFile *httpapi.FileAuditSink
	services  *system.Manager
	db        *sqlx.DB

	mu       sync.Mutex
	listener net.Listener
}

// NewApplication constructs an application from cfg. A nil cfg is loaded
// from the environment.
func NewApplication(cfg *config.Config) (*Application, error) {
	if cfg == nil {
		loaded, err := config.Load()
		if err != nil {
			return nil, fmt.Errorf("load config: %w", err)
		}
		cfg = loaded
	}

	log := logger.New(cfg.Logging).WithComponent("todo-service")

	store, db, err := buildStore(cfg, log)
	if err != nil {
		return nil, fmt.Errorf("configure store: %w", err)
	}

	items := todos.New(store, log.WithComponent("todos"), todos.WithPolicy(cfg.Rules))

	auditFile, err := httpapi.NewFileAuditSink(cfg.Audit.Path)
	if err != nil {
		closeDB(db, log)
		return nil, fmt.Errorf("open audit log: %w", err)
	}
	audit := httpapi.NewAuditLog(cfg.Audit.Max, httpapi.CombineSinks(auditFile, httpapi.NewPostgresAuditSink(db)), log.WithComponent("audit"))

	limiter := middleware.NewRateLimiter(cfg.Security.RateLimitRPS, cfg.Security.RateLimitBurst, log.WithComponent("ratelimit"))

	handler := httpapi.NewHandler(httpapi.Config{
		Items:       items,
		Logger:      log.WithComponent("httpapi"),
		Audit:       audit,
		RateLimiter: limiter,
		CORSOrigins: cfg.Security.AllowedOrigins(),
		Version:     Version,
	})

	app := &Application{
		cfg:       cfg,
		log:       log,
		handler:   handler,
		items:     items,
		limiter:   limiter,
		audit:     audit,
		auditFile: auditFile,
		db:        db,
		services:  system.NewManager(),
		server: &http.Server{
			Addr:              cfg.Server.Addr(),
			Handler:           handler,
			ReadTimeout:       cfg.Server.ReadTimeout,
			ReadHeaderTimeout: 5 * time.Second,
			WriteTimeout:      cfg.Server.WriteTimeout,
		},
	}

	if err := app.scheduleHousekeeping(); err != nil {
		app.closeResources()
		return nil, err
	}
	return app, nil
}

// Handler exposes the HTTP handler, mainly for tests.
func (a *Application) Handler() http.Handler { return a.handler }

// Items exposes the item service.
func (a *Application) Items() *todos.Service { return a.items }

// Addr returns the bound listen address once Run has started, or the
// configured address before that.
func (a *Application) Addr() string {
	a.mu.Lock()
	defer a.mu.Unlock()
	if a.listener != nil {
		return a.listener.Addr().String()
	}
	return a.server.Addr
}

// Run starts the HTTP server and the housekeeping scheduler, then blocks
// until ctx is cancelled or the server fails.
func (a *Application) Run(ctx context.Context) error {
	ln, err := net.Listen("tcp", a.server.Addr)
	if err != nil {
		return fmt.Errorf("listen on %s: %w", a.server.Addr, err)
	}
	a.mu.Lock()
	a.listener = ln
	a.mu.Unlock()

	if err := a.services.Start(ctx); err != nil {
		ln.Close()
		return err
	}

	errCh := make(chan error, 1)
	go func() {
		a.log.Infof("HTTP server listening on %s", ln.Addr().String())
		if err := a.server.Serve(ln); err != nil && !errors.Is(err, http.ErrServerClosed) {
			errCh <- err
		}
	}()

	select {
	case <-ctx.Done():
		return nil
	case err := <-errCh:
		return err
	}
}

// Shutdown gracefully stops the HTTP server and releases resources.
func (a *Application) Shutdown(ctx context.Context) error {
	shutdownCtx, cancel := context.WithTimeout(ctx, a.cfg.Server.ShutdownTimeout)
	defer cancel()

	err := a.server.Shutdown(shutdownCtx)
	if stopErr := a.services.Stop(shutdownCtx); stopErr != nil {
		a.log.WithError(stopErr).Warn("error stopping background services")
	}
	a.closeResources()
	return err
}

func (a *Application) closeResources() {
	if err := a.auditFile.Close(); err != nil {
		a.log.WithError(err).Warn("error closing audit log")
	}
	closeDB(a.db, a.log)
	a.db = nil
}

// scheduleHousekeeping registers the periodic maintenance jobs. An empty
// schedule disables them.
func (a *Application) scheduleHousekeeping() error {
	spec := a.cfg.HousekeepingSchedule
	if spec == "" {
		return nil
	}

	hk, err := newHousekeeper(spec, a.log.WithComponent("housekeeping"), a.housekeeping)
	if err != nil {
		return err
	}
	return a.services.Register(hk)
}

func (a *Application) housekeeping() {
	removed := a.limiter.Cleanup(limiterIdleTimeout)
	entry := a.log.WithField("limiters_removed", removed).WithField("limiters_active", a.limiter.Size())
	if a.db != nil {
		stats := a.db.Stats()
		entry = entry.
			WithField("db_open", stats.OpenConnections).
			WithField("db_in_use", stats.InUse).
			WithField("db_idle", stats.Idle).
			WithField("db_wait_count", stats.WaitCount)
	}
	entry.Debug("housekeeping completed")
}

// buildStore opens Postgres when DATABASE_URL is set and falls back to the
// in-memory store otherwise.
func buildStore(cfg *config.Config, log *logger.Logger) (storage.ItemStore, *sqlx.DB, error) {
	if !cfg.Database.Enabled() {
		log.Warn("DATABASE_URL not set; using in-memory store, data will not survive restarts")
		return memory.New(), nil, nil
	}

	db, err := openDatabase(cfg.Database)
	if err != nil {
		return nil, nil, err
	}

	if cfg.Database.Migrate {
		if err := migrations.Up(cfg.Database.URL, log.WithComponent("migrations")); err != nil {
			closeDB(db, log)
			return nil, nil, err
		}
	}

	return postgres.New(db), db, nil
}

func openDatabase(cfg config.DatabaseConfig) (*sqlx.DB, error) {
	if cfg.Driver == "" {
		return nil, fmt.Errorf("database driver not configured")
	}
	if cfg.URL == "" {
		return nil, fmt.Errorf("database url not configured")
	}

	db, err := sqlx.Open(cfg.Driver, cfg.URL)
	if err != nil {
		return nil, err
	}

	if cfg.MaxOpenConns > 0 {
		db.SetMaxOpenConns(cfg.MaxOpenConns)
	}
	if cfg.MaxIdleConns > 0 {
		db.SetMaxIdleConns(cfg.MaxIdleConns)
	}
	if cfg.ConnMaxLifetime > 0 {
		db.SetConnMaxLifetime(cfg.ConnMaxLifetime)
	}

	ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()
	if err := db.PingContext(ctx); err != nil {
		db.Close()
		return nil, fmt.Errorf("ping database: %w", err)
	}

	return db, nil
}

func closeDB(db *sqlx.DB, log *logger.Logger) {
	if db == nil {
		return
	}
	if err := db.Close(); err != nil {
		log.WithError(err).Warn("error closing database connection")
	}
}
