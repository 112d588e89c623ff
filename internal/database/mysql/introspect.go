package mysql

import (
	"context"
	"fmt"

	"github.com/koustreak/dbdeck/internal/database"
	"github.com/koustreak/dbdeck/internal/errs"
)

const (
	qSchemaTables = `
		SELECT table_name
		FROM information_schema.tables
		WHERE table_schema = DATABASE()
		ORDER BY table_name`

	qSchemaColumns = `
		SELECT column_name,
		       data_type,
		       is_nullable,
		       column_key
		FROM information_schema.columns
		WHERE table_schema = DATABASE()
		  AND table_name   = ?
		ORDER BY ordinal_position`

	qListDatabases = `SHOW DATABASES`
	qListTables    = `SHOW TABLES`
)

// InspectSchema introspects every table of the current database, in name
// order, with columns in ordinal order.
func (d *DB) InspectSchema(ctx context.Context) (*database.Schema, error) {
	names, err := d.queryStrings(ctx, qSchemaTables, errs.ErrKindSchemaFailed, "failed to list tables")
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
	rows, err := d.db.QueryContext(ctx, qSchemaColumns, table)
	if err != nil {
		return nil, mapError(err, errs.ErrKindSchemaFailed, fmt.Sprintf("failed to fetch columns of %q", table))
	}
	defer rows.Close()

	cols := make([]database.ColumnInfo, 0)
	for rows.Next() {
		var c database.ColumnInfo
		var nullable, columnKey string
		if err := rows.Scan(&c.Name, &c.DataType, &nullable, &columnKey); err != nil {
			return nil, mapError(err, errs.ErrKindSchemaFailed, "failed to scan column info")
		}
		c.IsNullable = nullable == "YES"
		c.IsPrimaryKey = columnKey == "PRI"
		cols = append(cols, c)
	}
	if err := rows.Err(); err != nil {
		return nil, mapError(err, errs.ErrKindSchemaFailed, "error iterating columns")
	}
	return cols, nil
}

// ListDatabases returns every database visible to the user.
func (d *DB) ListDatabases(ctx context.Context) ([]string, error) {
	return d.queryStrings(ctx, qListDatabases, errs.ErrKindConnectionFailed, "failed to list databases")
}

// ListTables returns the tables of the current database.
func (d *DB) ListTables(ctx context.Context) ([]string, error) {
	return d.queryStrings(ctx, qListTables, errs.ErrKindConnectionFailed, "failed to list tables")
}

// queryStrings runs a single-column query and collects the column as strings.
func (d *DB) queryStrings(ctx context.Context, q string, kind errs.ErrKind, msg string) ([]string, error) {
	rows, err := d.db.QueryContext(ctx, q)
	if err != nil {
		return nil, mapError(err, kind, msg)
	}
	defer rows.Close()

	out := make([]string, 0)
	for rows.Next() {
		var name string
		if err := rows.Scan(&name); err != nil {
			return nil, mapError(err, kind, msg)
		}
		out = append(out, name)
	}
	if err := rows.Err(); err != nil {
		return nil, mapError(err, kind, msg)
	}
	return out, nil
}
