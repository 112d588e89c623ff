package postgres

import (
	"fmt"
	"strings"

	"github.com/google/uuid"
	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgtype"
	"github.com/koustreak/dbdeck/internal/database"
)

var (
	decodeNumeric = database.Attempt(database.TagFloat64, func(c database.Cell) (database.Value, database.Outcome) {
		n, ok := c.Raw.(pgtype.Numeric)
		if !ok {
			return database.Null(), database.Skip
		}
		if !n.Valid {
			return database.Null(), database.Absent
		}
		f, err := n.Float64Value()
		if err != nil || !f.Valid || !database.FiniteFloat(f.Float64) {
			// NaN and ±Infinity fall through to their text form
			return database.Null(), database.Skip
		}
		return database.Float(f.Float64), database.Present
	})

	decodeTimeOfDay = database.Attempt(database.TagTime, func(c database.Cell) (database.Value, database.Outcome) {
		t, ok := c.Raw.(pgtype.Time)
		if !ok {
			return database.Null(), database.Skip
		}
		if !t.Valid {
			return database.Null(), database.Absent
		}
		secs := t.Microseconds / 1_000_000
		return database.String(fmt.Sprintf("%02d:%02d:%02d", secs/3600, secs/60%60, secs%60)), database.Present
	})

	decodeUUID = database.Attempt(database.TagString, func(c database.Cell) (database.Value, database.Outcome) {
		b, ok := c.Raw.([16]byte)
		if !ok {
			return database.Null(), database.Skip
		}
		return database.String(uuid.UUID(b).String()), database.Present
	})
)

// Chain is the PostgreSQL attempt order. It extends the standard order with
// timezone-aware timestamps and the pgtype values pgx surfaces.
var Chain = database.Chain{
	database.DecodeInt64,
	database.DecodeInt32,
	database.DecodeFloat64,
	decodeNumeric,
	database.DecodeFloat32,
	database.DecodeBool,
	database.DecodeDateTimeTZ,
	database.DecodeDateTime,
	database.DecodeDate,
	decodeTimeOfDay,
	database.DecodeTime,
	database.DecodeJSON,
	decodeUUID,
	database.DecodeString,
	database.DecodeBinary,
}

// collectRows buffers a pgx result set, coercing every cell through Chain.
// Column names are taken only once a first row exists. It always closes rows.
func collectRows(rows pgx.Rows, types *pgtype.Map) (*database.QueryResult, error) {
	defer rows.Close()

	fields := rows.FieldDescriptions()
	dbTypes := make([]string, len(fields))
	for i, f := range fields {
		dbTypes[i] = typeName(types, f.DataTypeOID)
	}

	var columns []string
	out := make([][]database.Value, 0)

	for rows.Next() {
		vals, err := rows.Values()
		if err != nil {
			return nil, err
		}

		if columns == nil {
			columns = make([]string, len(fields))
			for i, f := range fields {
				columns[i] = f.Name
			}
		}

		cells := make([]database.Cell, len(vals))
		for i, v := range vals {
			cells[i] = database.Cell{Raw: v, DBType: dbTypes[i]}
		}
		out = append(out, Chain.CoerceRow(cells))
	}

	if err := rows.Err(); err != nil {
		return nil, err
	}

	return database.NewResult(columns, out), nil
}

// typeName resolves a type OID to its upper-case name ("TIMESTAMPTZ",
// "JSONB"). Unregistered types resolve to "".
func typeName(types *pgtype.Map, oid uint32) string {
	if types == nil {
		return ""
	}
	if t, ok := types.TypeForOID(oid); ok {
		return strings.ToUpper(t.Name)
	}
	return ""
}
