// Package sqlite is the SQLite engine driver, backed by database/sql and the
// cgo-free modernc.org/sqlite.
package sqlite

import (
	"context"
	"database/sql"

	"github.com/koustreak/dbdeck/internal/database"
	"github.com/koustreak/dbdeck/internal/errs"
	"github.com/koustreak/dbdeck/internal/logger"
)

const qPing = `SELECT 1`

// DB is an open SQLite database file.
// It is safe for concurrent use by multiple goroutines.
type DB struct {
	db   *sql.DB
	path string
	log  *logger.Logger
}

// New opens the database file named by cfg.Database and pings it.
// The file must already exist.
func New(ctx context.Context, cfg *database.Config, log *logger.Logger) (*DB, error) {
	pool, err := buildPool(cfg)
	if err != nil {
		return nil, err
	}

	if log == nil {
		log = logger.Nop()
	}
	d := &DB{db: pool, path: cfg.Database, log: log.ForEngine(database.EngineSQLite.String())}

	pingCtx, cancel := cfg.PingContext(ctx)
	defer cancel()

	if err := d.Ping(pingCtx); err != nil {
		_ = pool.Close()
		return nil, err
	}

	d.log.Infof("opened %s", d.path)
	return d, nil
}

// Ping runs the liveness check.
func (d *DB) Ping(ctx context.Context) error {
	var one int
	if err := d.db.QueryRowContext(ctx, qPing).Scan(&one); err != nil {
		return mapError(err, errs.ErrKindConnectionFailed, "SQLite connection failed")
	}
	return nil
}

// Close releases the file.
func (d *DB) Close() error {
	return d.db.Close()
}

// Execute runs arbitrary SQL text and buffers every returned row.
func (d *DB) Execute(ctx context.Context, query string) (*database.QueryResult, error) {
	return d.collect(ctx, "SQLite query failed", query)
}

// Preview returns one page of a table's rows.
func (d *DB) Preview(ctx context.Context, table string, p database.Page) (*database.QueryResult, error) {
	q, args, err := database.PreviewQuery(table, database.EngineSQLite, p)
	if err != nil {
		return nil, err
	}
	return d.collect(ctx, "SQLite preview failed", q, args...)
}

func (d *DB) collect(ctx context.Context, msg, q string, args ...any) (*database.QueryResult, error) {
	d.log.DebugWith("executing query", map[string]any{"query": q})

	rows, err := d.db.QueryContext(ctx, q, args...)
	if err != nil {
		return nil, mapError(err, errs.ErrKindQueryFailed, msg)
	}

	res, err := database.CollectRows(rows, database.StandardChain)
	if err != nil {
		return nil, mapError(err, errs.ErrKindQueryFailed, msg)
	}

	d.log.Debugf("query returned %d rows", res.RowCount)
	return res, nil
}
