package postgres

import (
	"context"
	"fmt"

	"github.com/koustreak/dbdeck/internal/database"
	"github.com/koustreak/dbdeck/internal/errs"
)

const (
	qSchemaTables = `
		SELECT table_name::text
		FROM information_schema.tables
		WHERE table_schema = 'public'
		ORDER BY table_name`

	qSchemaColumns = `
		SELECT c.column_name::text,
		       c.data_type::text,
		       c.is_nullable = 'YES',
		       pk.column_name IS NOT NULL
		FROM information_schema.columns c
		LEFT JOIN (
			SELECT kcu.column_name
			FROM information_schema.table_constraints tc
			JOIN information_schema.key_column_usage kcu
			  ON tc.constraint_name = kcu.constraint_name
			 AND tc.table_schema    = kcu.table_schema
			 AND tc.table_name      = kcu.table_name
			WHERE tc.constraint_type = 'PRIMARY KEY'
			  AND tc.table_schema    = 'public'
			  AND tc.table_name      = $1
		) pk ON pk.column_name = c.column_name
		WHERE c.table_schema = 'public'
		  AND c.table_name   = $1
		ORDER BY c.ordinal_position`

	qListDatabases = `
		SELECT datname
		FROM pg_database
		WHERE datistemplate = false
		ORDER BY datname`

	qListTables = `
		SELECT tablename
		FROM pg_tables
		WHERE schemaname = 'public'
		ORDER BY tablename`
)

// InspectSchema introspects every table and view of the public schema, in
// name order, with columns in ordinal order.
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
	rows, err := d.pool.Query(ctx, qSchemaColumns, table)
	if err != nil {
		return nil, mapError(err, errs.ErrKindSchemaFailed, fmt.Sprintf("failed to fetch columns of %q", table))
	}
	defer rows.Close()

	cols := make([]database.ColumnInfo, 0)
	for rows.Next() {
		var c database.ColumnInfo
		if err := rows.Scan(&c.Name, &c.DataType, &c.IsNullable, &c.IsPrimaryKey); err != nil {
			return nil, mapError(err, errs.ErrKindSchemaFailed, "failed to scan column info")
		}
		cols = append(cols, c)
	}
	if err := rows.Err(); err != nil {
		return nil, mapError(err, errs.ErrKindSchemaFailed, "error iterating columns")
	}
	return cols, nil
}

// ListDatabases returns every non-template database.
func (d *DB) ListDatabases(ctx context.Context) ([]string, error) {
	return d.queryStrings(ctx, qListDatabases, errs.ErrKindConnectionFailed, "failed to list databases")
}

// ListTables returns the tables of the public schema.
func (d *DB) ListTables(ctx context.Context) ([]string, error) {
	return d.queryStrings(ctx, qListTables, errs.ErrKindConnectionFailed, "failed to list tables")
}

func (d *DB) queryStrings(ctx context.Context, q string, kind errs.ErrKind, msg string) ([]string, error) {
	rows, err := d.pool.Query(ctx, q)
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
