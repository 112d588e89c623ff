package database

import (
	"database/sql"
	"strings"
)

// CollectRows buffers a database/sql result set into a QueryResult, running
// every cell through chain. It always closes rows.
//
// Column names are taken only once a first row exists, so a zero-row result
// carries no columns. Errors are returned unwrapped for the caller's mapError.
func CollectRows(rows *sql.Rows, chain Chain) (*QueryResult, error) {
	defer rows.Close()

	types, err := rows.ColumnTypes()
	if err != nil {
		return nil, err
	}

	dbTypes := make([]string, len(types))
	for i, ct := range types {
		dbTypes[i] = strings.ToUpper(ct.DatabaseTypeName())
	}

	var columns []string
	out := make([][]Value, 0)

	for rows.Next() {
		// Allocate scan targets as *any so the driver can write its native type.
		dest := make([]any, len(types))
		destPtrs := make([]any, len(types))
		for i := range dest {
			destPtrs[i] = &dest[i]
		}
		if err := rows.Scan(destPtrs...); err != nil {
			return nil, err
		}

		if columns == nil {
			columns = make([]string, len(types))
			for i, ct := range types {
				columns[i] = ct.Name()
			}
		}

		cells := make([]Cell, len(dest))
		for i, raw := range dest {
			cells[i] = Cell{Raw: raw, DBType: dbTypes[i]}
		}
		out = append(out, chain.CoerceRow(cells))
	}

	if err := rows.Err(); err != nil {
		return nil, err
	}

	return NewResult(columns, out), nil
}
