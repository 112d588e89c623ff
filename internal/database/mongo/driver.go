// Package mongo is the MongoDB engine driver, backed by mongo-driver/v2.
//
// MongoDB has no query language in scope: Execute returns a per-collection
// document count summary and Preview is unsupported.
package mongo

import (
	"context"
	"fmt"

	"github.com/koustreak/dbdeck/internal/database"
	"github.com/koustreak/dbdeck/internal/errs"
	"github.com/koustreak/dbdeck/internal/logger"
	"go.mongodb.org/mongo-driver/v2/bson"
	"go.mongodb.org/mongo-driver/v2/mongo"
)

// Summary columns returned by Execute.
const (
	columnCollection = "collection"
	columnCount      = "count"
)

// DB is a connected client plus the selected database.
// It is safe for concurrent use by multiple goroutines.
type DB struct {
	client *mongo.Client
	db     *mongo.Database
	log    *logger.Logger
}

// New connects a client, selects the configured database (admin when empty)
// and pings it by listing collections.
func New(ctx context.Context, cfg *database.Config, log *logger.Logger) (*DB, error) {
	client, err := mongo.Connect(clientOptions(cfg))
	if err != nil {
		return nil, mapError(err, errs.ErrKindConnectionFailed, "MongoDB connection failed")
	}

	if log == nil {
		log = logger.Nop()
	}
	d := &DB{
		client: client,
		db:     client.Database(databaseName(cfg)),
		log:    log.ForEngine(database.EngineMongo.String()),
	}

	pingCtx, cancel := cfg.PingContext(ctx)
	defer cancel()

	if err := d.Ping(pingCtx); err != nil {
		_ = client.Disconnect(context.Background())
		return nil, err
	}

	d.log.Infof("connected to %s:%d/%s", cfg.Host, cfg.Port, d.db.Name())
	return d, nil
}

// Ping lists the database's collections, the cheapest call that proves both
// reachability and authorisation.
func (d *DB) Ping(ctx context.Context) error {
	if _, err := d.db.ListCollectionNames(ctx, bson.D{}); err != nil {
		return mapError(err, errs.ErrKindConnectionFailed, "MongoDB connection failed")
	}
	return nil
}

// Close disconnects the client.
func (d *DB) Close() error {
	return d.client.Disconnect(context.Background())
}

// Execute ignores query and returns one (collection, count) row per
// collection of the selected database.
func (d *DB) Execute(ctx context.Context, query string) (*database.QueryResult, error) {
	d.log.DebugWith("query text ignored, returning collection summary", map[string]any{"query": query})

	names, err := d.db.ListCollectionNames(ctx, bson.D{})
	if err != nil {
		return nil, mapError(err, errs.ErrKindQueryFailed, "MongoDB query failed")
	}

	counts := make([]int64, len(names))
	for i, name := range names {
		n, err := d.db.Collection(name).CountDocuments(ctx, bson.D{})
		if err != nil {
			return nil, mapError(err, errs.ErrKindQueryFailed, fmt.Sprintf("failed to count %q", name))
		}
		counts[i] = n
	}

	return summaryResult(names, counts), nil
}

// summaryResult keeps its columns even when there are no collections.
func summaryResult(names []string, counts []int64) *database.QueryResult {
	rows := make([][]database.Value, len(names))
	for i, name := range names {
		rows[i] = []database.Value{database.String(name), database.Int(counts[i])}
	}
	return &database.QueryResult{
		Columns:  []string{columnCollection, columnCount},
		Rows:     rows,
		RowCount: len(rows),
	}
}

// Preview is not meaningful without a query language.
func (d *DB) Preview(_ context.Context, table string, _ database.Page) (*database.QueryResult, error) {
	return nil, errs.Newf(errs.ErrKindUnsupported, "preview of collection %q is not supported for MongoDB", table)
}
