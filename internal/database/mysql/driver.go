// Package mysql is the MySQL engine driver, backed by database/sql and
// go-sql-driver/mysql.
package mysql

import (
	"context"
	"database/sql"

	"github.com/koustreak/dbdeck/internal/database"
	"github.com/koustreak/dbdeck/internal/errs"
	"github.com/koustreak/dbdeck/internal/logger"
)

// qPing is the liveness check run on connect and on Ping.
const qPing = `SELECT 1`

// DB is a live MySQL connection pool.
// It is safe for concurrent use by multiple goroutines.
type DB struct {
	db  *sql.DB
	log *logger.Logger
}

// New opens a MySQL connection pool and pings it before returning, so a
// returned DB is known to be usable.
func New(ctx context.Context, cfg *database.Config, log *logger.Logger) (*DB, error) {
	pool, err := buildPool(cfg)
	if err != nil {
		return nil, err
	}

	d := newWithDB(pool, log)

	pingCtx, cancel := cfg.PingContext(ctx)
	defer cancel()

	if err := d.ping(pingCtx, errs.ErrKindConnectionFailed); err != nil {
		_ = pool.Close()
		return nil, err
	}

	d.log.Infof("connected to %s", buildConfig(cfg).Addr)
	return d, nil
}

func newWithDB(db *sql.DB, log *logger.Logger) *DB {
	if log == nil {
		log = logger.Nop()
	}
	return &DB{db: db, log: log.ForEngine(database.EngineMySQL.String())}
}

// Ping runs the liveness check on a pooled connection.
func (d *DB) Ping(ctx context.Context) error {
	return d.ping(ctx, errs.ErrKindConnectionFailed)
}

func (d *DB) ping(ctx context.Context, kind errs.ErrKind) error {
	var one int
	if err := d.db.QueryRowContext(ctx, qPing).Scan(&one); err != nil {
		return mapError(err, kind, "MySQL connection failed")
	}
	return nil
}

// Close shuts down the pool.
func (d *DB) Close() error {
	return d.db.Close()
}

// Execute runs arbitrary SQL text and buffers every returned row.
// Statements that return no rows yield an empty result.
func (d *DB) Execute(ctx context.Context, query string) (*database.QueryResult, error) {
	return d.collect(ctx, "MySQL query failed", query)
}

// Preview returns one page of a table's rows.
func (d *DB) Preview(ctx context.Context, table string, p database.Page) (*database.QueryResult, error) {
	q, args, err := database.PreviewQuery(table, database.EngineMySQL, p)
	if err != nil {
		return nil, err
	}
	return d.collect(ctx, "MySQL preview failed", q, args...)
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
