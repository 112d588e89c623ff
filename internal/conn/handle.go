// Package conn holds the connection handle: a closed union over the four
// engine drivers, dispatched by engine kind.
//
// A Handle is created by Connect, shared by pointer for concurrent
// operations and destroyed by Close. Adding an engine means adding a field
// here and a case to every switch below.
package conn

import (
	"context"
	"sync/atomic"

	"github.com/koustreak/dbdeck/internal/database"
	"github.com/koustreak/dbdeck/internal/database/mongo"
	"github.com/koustreak/dbdeck/internal/database/mysql"
	"github.com/koustreak/dbdeck/internal/database/postgres"
	"github.com/koustreak/dbdeck/internal/database/sqlite"
	"github.com/koustreak/dbdeck/internal/errs"
	"github.com/koustreak/dbdeck/internal/logger"
)

// Handle owns exactly one live engine connection. Exactly one of the driver
// fields is set, matching engine.
type Handle struct {
	engine   database.Engine
	mysql    *mysql.DB
	postgres *postgres.DB
	sqlite   *sqlite.DB
	mongo    *mongo.DB

	closed atomic.Bool
}

// Connect validates cfg, establishes the engine's pool or client and pings
// it. A handle is never returned unvalidated; nothing is retried.
func Connect(ctx context.Context, cfg database.Config, log *logger.Logger) (*Handle, error) {
	if err := cfg.Validate(); err != nil {
		return nil, err
	}
	cfg = cfg.WithDefaults()

	if log == nil {
		log = logger.Nop()
	}
	log.DebugWith("connecting", map[string]any{
		"engine":   cfg.Engine.String(),
		"host":     cfg.Host,
		"port":     cfg.Port,
		"database": cfg.Database,
	})

	h := &Handle{engine: cfg.Engine}
	var err error
	switch cfg.Engine {
	case database.EngineMySQL:
		h.mysql, err = mysql.New(ctx, &cfg, log)
	case database.EnginePostgres:
		h.postgres, err = postgres.New(ctx, &cfg, log)
	case database.EngineSQLite:
		h.sqlite, err = sqlite.New(ctx, &cfg, log)
	case database.EngineMongo:
		h.mongo, err = mongo.New(ctx, &cfg, log)
	}
	if err != nil {
		log.ErrorWith("connect failed", err, map[string]any{"engine": cfg.Engine.String()})
		return nil, err
	}
	return h, nil
}

// Engine reports which engine the handle is connected to.
func (h *Handle) Engine() database.Engine {
	if h == nil {
		return ""
	}
	return h.engine
}

// Test re-runs the liveness check.
func (h *Handle) Test(ctx context.Context) error {
	if err := h.usable(); err != nil {
		return err
	}
	switch h.engine {
	case database.EngineMySQL:
		return h.mysql.Ping(ctx)
	case database.EnginePostgres:
		return h.postgres.Ping(ctx)
	case database.EngineSQLite:
		return h.sqlite.Ping(ctx)
	case database.EngineMongo:
		return h.mongo.Ping(ctx)
	}
	return errUnknownEngine(h.engine)
}

// Schema introspects the connected database. It is built fresh on every call.
func (h *Handle) Schema(ctx context.Context) (*database.Schema, error) {
	if err := h.usable(); err != nil {
		return nil, err
	}
	switch h.engine {
	case database.EngineMySQL:
		return h.mysql.InspectSchema(ctx)
	case database.EnginePostgres:
		return h.postgres.InspectSchema(ctx)
	case database.EngineSQLite:
		return h.sqlite.InspectSchema(ctx)
	case database.EngineMongo:
		return h.mongo.InspectSchema(ctx)
	}
	return nil, errUnknownEngine(h.engine)
}

// Execute runs query and returns the fully buffered result.
func (h *Handle) Execute(ctx context.Context, query string) (*database.QueryResult, error) {
	if err := h.usable(); err != nil {
		return nil, err
	}
	switch h.engine {
	case database.EngineMySQL:
		return h.mysql.Execute(ctx, query)
	case database.EnginePostgres:
		return h.postgres.Execute(ctx, query)
	case database.EngineSQLite:
		return h.sqlite.Execute(ctx, query)
	case database.EngineMongo:
		return h.mongo.Execute(ctx, query)
	}
	return nil, errUnknownEngine(h.engine)
}

// Preview returns one page of rows from table.
func (h *Handle) Preview(ctx context.Context, table string, p database.Page) (*database.QueryResult, error) {
	if err := h.usable(); err != nil {
		return nil, err
	}
	switch h.engine {
	case database.EngineMySQL:
		return h.mysql.Preview(ctx, table, p)
	case database.EnginePostgres:
		return h.postgres.Preview(ctx, table, p)
	case database.EngineSQLite:
		return h.sqlite.Preview(ctx, table, p)
	case database.EngineMongo:
		return h.mongo.Preview(ctx, table, p)
	}
	return nil, errUnknownEngine(h.engine)
}

// ListDatabases returns the database names visible on the connection.
func (h *Handle) ListDatabases(ctx context.Context) ([]string, error) {
	if err := h.usable(); err != nil {
		return nil, err
	}
	switch h.engine {
	case database.EngineMySQL:
		return h.mysql.ListDatabases(ctx)
	case database.EnginePostgres:
		return h.postgres.ListDatabases(ctx)
	case database.EngineSQLite:
		return h.sqlite.ListDatabases(ctx)
	case database.EngineMongo:
		return h.mongo.ListDatabases(ctx)
	}
	return nil, errUnknownEngine(h.engine)
}

// ListTables returns the tables, or collections, of the connected database.
func (h *Handle) ListTables(ctx context.Context) ([]string, error) {
	if err := h.usable(); err != nil {
		return nil, err
	}
	switch h.engine {
	case database.EngineMySQL:
		return h.mysql.ListTables(ctx)
	case database.EnginePostgres:
		return h.postgres.ListTables(ctx)
	case database.EngineSQLite:
		return h.sqlite.ListTables(ctx)
	case database.EngineMongo:
		return h.mongo.ListTables(ctx)
	}
	return nil, errUnknownEngine(h.engine)
}

// usable reports why h cannot serve an operation, if it cannot.
func (h *Handle) usable() error {
	if h == nil {
		return errs.NotConnected()
	}
	if h.closed.Load() {
		return errs.New(errs.ErrKindConnectionFailed, "connection is closed")
	}
	return nil
}

// Close releases the underlying pool or client. Operations still holding
// the handle fail with connection_failed afterwards. Closing twice is a no-op.
func (h *Handle) Close() error {
	if h == nil || !h.closed.CompareAndSwap(false, true) {
		return nil
	}
	switch h.engine {
	case database.EngineMySQL:
		return h.mysql.Close()
	case database.EnginePostgres:
		return h.postgres.Close()
	case database.EngineSQLite:
		return h.sqlite.Close()
	case database.EngineMongo:
		return h.mongo.Close()
	}
	return nil
}

func errUnknownEngine(e database.Engine) error {
	return errs.Newf(errs.ErrKindInvalidConfig, "unknown database type %q", e)
}
