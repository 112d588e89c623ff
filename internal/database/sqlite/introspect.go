package sqlite

import (
	"context"
	"fmt"

	"github.com/koustreak/dbdeck/internal/database"
	"github.com/koustreak/dbdeck/internal/errs"
)

const (
	qSchemaTables = `
		SELECT name
		FROM sqlite_master
		WHERE type = 'table'
		  AND name NOT LIKE 'sqlite_%'
		ORDER BY name`

	qListDatabases = `PRAGMA database_list`
)

// InspectSchema introspects every user table, in name order, with columns in
// declaration order. The declared type is reported as written, possibly empty.
func (d *DB) InspectSchema(ctx context.Context) (*database.Schema, error) {
	names, err := d.tableNames(ctx, errs.ErrKindSchemaFailed)
	if err != nil {
		return nil, err
	}

	schema := &database.Schema{Tables: make([]database.TableInfo, 0, len(names))}
	for _, name := range names {
		cols, err := d.fetchColumns(ctx, name)
		if err != nil {
			return nil, err
		}
		schema.Tables = append(schema.Tables, database.TableInfo{Name: name, Columns: cols})
	}

	d.log.Debugf("introspected %d tables", len(schema.Tables))
	return schema, nil
}

func (d *DB) fetchColumns(ctx context.Context, table string) ([]database.ColumnInfo, error) {
	// PRAGMA arguments cannot be bound, so the name is quoted instead.
	q := "PRAGMA table_info(" + database.DialectSQLite.QuoteIdent(table) + ")"

	rows, err := d.db.QueryContext(ctx, q)
	if err != nil {
		return nil, mapError(err, errs.ErrKindSchemaFailed, fmt.Sprintf("failed to fetch columns of %q", table))
	}
	defer rows.Close()

	cols := make([]database.ColumnInfo, 0)
	for rows.Next() {
		var (
			cid     int64
			c       database.ColumnInfo
			notNull int64
			dflt    any
			pk      int64
		)
		if err := rows.Scan(&cid, &c.Name, &c.DataType, &notNull, &dflt, &pk); err != nil {
			return nil, mapError(err, errs.ErrKindSchemaFailed, "failed to scan column info")
		}
		c.IsNullable = notNull == 0
		// pk is the 1-based position within a composite key
		c.IsPrimaryKey = pk > 0
		cols = append(cols, c)
	}
	if err := rows.Err(); err != nil {
		return nil, mapError(err, errs.ErrKindSchemaFailed, "error iterating columns")
	}
	return cols, nil
}

// ListDatabases returns the attached database names ("main", "temp", …).
func (d *DB) ListDatabases(ctx context.Context) ([]string, error) {
	rows, err := d.db.QueryContext(ctx, qListDatabases)
	if err != nil {
		return nil, mapError(err, errs.ErrKindConnectionFailed, "failed to list databases")
	}
	defer rows.Close()

	out := make([]string, 0)
	for rows.Next() {
		var (
			seq  int64
			name string
			file any
		)
		if err := rows.Scan(&seq, &name, &file); err != nil {
			return nil, mapError(err, errs.ErrKindConnectionFailed, "failed to scan database name")
		}
		out = append(out, name)
	}
	if err := rows.Err(); err != nil {
		return nil, mapError(err, errs.ErrKindConnectionFailed, "error iterating databases")
	}
	return out, nil
}

// ListTables returns the user tables in name order.
func (d *DB) ListTables(ctx context.Context) ([]string, error) {
	return d.tableNames(ctx, errs.ErrKindConnectionFailed)
}

func (d *DB) tableNames(ctx context.Context, kind errs.ErrKind) ([]string, error) {
	rows, err := d.db.QueryContext(ctx, qSchemaTables)
	if err != nil {
		return nil, mapError(err, kind, "failed to list tables")
	}
	defer rows.Close()

	out := make([]string, 0)
	for rows.Next() {
		var name string
		if err := rows.Scan(&name); err != nil {
			return nil, mapError(err, kind, "failed to scan table name")
		}
		out = append(out, name)
	}
	if err := rows.Err(); err != nil {
		return nil, mapError(err, kind, "error iterating tables")
	}
	return out, nil
}
