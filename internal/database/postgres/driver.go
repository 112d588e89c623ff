// Package postgres is the PostgreSQL engine driver, backed by pgxpool.
package postgres

import (
	"context"

	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgxpool"
	"github.com/koustreak/dbdeck/internal/database"
	"github.com/koustreak/dbdeck/internal/errs"
	"github.com/koustreak/dbdeck/internal/logger"
)

const qPing = `SELECT 1`

// DB is a live PostgreSQL connection pool.
// It is safe for concurrent use by multiple goroutines.
type DB struct {
	pool *pgxpool.Pool
	log  *logger.Logger
}

// New connects to PostgreSQL and pings the pool before returning.
func New(ctx context.Context, cfg *database.Config, log *logger.Logger) (*DB, error) {
	pool, err := buildPool(ctx, cfg)
	if err != nil {
		return nil, err
	}

	if log == nil {
		log = logger.Nop()
	}
	d := &DB{pool: pool, log: log.ForEngine(database.EnginePostgres.String())}

	pingCtx, cancel := cfg.PingContext(ctx)
	defer cancel()

	if err := d.Ping(pingCtx); err != nil {
		pool.Close()
		return nil, err
	}

	d.log.Infof("connected to %s:%d", cfg.Host, cfg.Port)
	return d, nil
}

// Ping runs the liveness check on a pooled connection.
func (d *DB) Ping(ctx context.Context) error {
	var one int
	if err := d.pool.QueryRow(ctx, qPing).Scan(&one); err != nil {
		return mapError(err, errs.ErrKindConnectionFailed, "PostgreSQL connection failed")
	}
	return nil
}

// Close shuts down the pool.
func (d *DB) Close() error {
	d.pool.Close()
	return nil
}

// Execute runs arbitrary SQL text and buffers every returned row.
// User SQL is never added to the statement cache.
func (d *DB) Execute(ctx context.Context, query string) (*database.QueryResult, error) {
	return d.collect(ctx, "PostgreSQL query failed", query, pgx.QueryExecModeExec)
}

// Preview returns one page of a table's rows.
func (d *DB) Preview(ctx context.Context, table string, p database.Page) (*database.QueryResult, error) {
	q, args, err := database.PreviewQuery(table, database.EnginePostgres, p)
	if err != nil {
		return nil, err
	}
	return d.collect(ctx, "PostgreSQL preview failed", q, append([]any{pgx.QueryExecModeExec}, args...)...)
}

func (d *DB) collect(ctx context.Context, msg, q string, args ...any) (*database.QueryResult, error) {
	d.log.DebugWith("executing query", map[string]any{"query": q})

	conn, err := d.pool.Acquire(ctx)
	if err != nil {
		return nil, mapError(err, errs.ErrKindConnectionFailed, msg)
	}
	defer conn.Release()

	rows, err := conn.Query(ctx, q, args...)
	if err != nil {
		return nil, mapError(err, errs.ErrKindQueryFailed, msg)
	}

	res, err := collectRows(rows, conn.Conn().TypeMap())
	if err != nil {
		return nil, mapError(err, errs.ErrKindQueryFailed, msg)
	}

	d.log.Debugf("query returned %d rows", res.RowCount)
	return res, nil
}
