package postgres

import (
	"context"
	"errors"
	"math/big"
	"testing"
	"time"

	"github.com/google/uuid"
	"github.com/jackc/pgx/v5/pgconn"
	"github.com/jackc/pgx/v5/pgtype"
	"github.com/koustreak/dbdeck/internal/database"
	"github.com/koustreak/dbdeck/internal/errs"
	"github.com/stretchr/testify/assert"
)

func TestBuildConnString(t *testing.T) {
	tests := []struct {
		name string
		cfg  database.Config
		want string
	}{
		{
			name: "full",
			cfg:  database.Config{Host: "db", Port: 5432, Username: "app", Password: "p@ss/word", Database: "shop"},
			want: "postgres://app:p%40ss%2Fword@db:5432/shop",
		},
		{
			name: "user only",
			cfg:  database.Config{Host: "db", Port: 6543, Username: "app"},
			want: "postgres://app@db:6543",
		},
		{
			name: "ipv6",
			cfg:  database.Config{Host: "::1", Port: 5432},
			want: "postgres://[::1]:5432",
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			assert.Equal(t, tt.want, buildConnString(&tt.cfg))
		})
	}
}

func TestTypeName(t *testing.T) {
	m := pgtype.NewMap()
	assert.Equal(t, "TIMESTAMPTZ", typeName(m, pgtype.TimestamptzOID))
	assert.Equal(t, "DATE", typeName(m, pgtype.DateOID))
	assert.Equal(t, "JSONB", typeName(m, pgtype.JSONBOID))
	assert.Equal(t, "BYTEA", typeName(m, pgtype.ByteaOID))
	assert.Equal(t, "", typeName(m, 999999))
	assert.Equal(t, "", typeName(nil, pgtype.DateOID))
}

func TestChain(t *testing.T) {
	ts := time.Date(2024, 2, 29, 23, 59, 58, 0, time.FixedZone("", -5*3600))
	id := uuid.MustParse("6ba7b810-9dad-11d1-80b4-00c04fd430c8")

	tests := []struct {
		name string
		cell database.Cell
		want database.Value
	}{
		{"int2", database.Cell{Raw: int16(3), DBType: "INT2"}, database.Int(3)},
		{"int8", database.Cell{Raw: int64(1 << 40), DBType: "INT8"}, database.Int(1 << 40)},
		{"float4", database.Cell{Raw: float32(0.1), DBType: "FLOAT4"}, database.Float(0.1)},
		{"numeric", database.Cell{Raw: pgtype.Numeric{Int: big.NewInt(12345), Exp: -2, Valid: true}, DBType: "NUMERIC"}, database.Float(123.45)},
		{"numeric NaN", database.Cell{Raw: pgtype.Numeric{NaN: true, Valid: true}, DBType: "NUMERIC"}, database.String("NaN")},
		{"timestamptz", database.Cell{Raw: ts, DBType: "TIMESTAMPTZ"}, database.String("2024-02-29T23:59:58-05:00")},
		{"timestamp", database.Cell{Raw: ts, DBType: "TIMESTAMP"}, database.String("2024-02-29 23:59:58")},
		{"date", database.Cell{Raw: ts, DBType: "DATE"}, database.String("2024-02-29")},
		{"time", database.Cell{Raw: pgtype.Time{Microseconds: (13*3600+7*60+9)*1_000_000 + 250, Valid: true}, DBType: "TIME"}, database.String("13:07:09")},
		{"jsonb object", database.Cell{Raw: map[string]any{"a": []any{1.0, "x"}}, DBType: "JSONB"}, database.String(`{"a":[1,"x"]}`)},
		{"uuid", database.Cell{Raw: [16]byte(id), DBType: "UUID"}, database.String("6ba7b810-9dad-11d1-80b4-00c04fd430c8")},
		{"text", database.Cell{Raw: "hello", DBType: "TEXT"}, database.String("hello")},
		{"bytea", database.Cell{Raw: []byte{0x00, 0xff}, DBType: "BYTEA"}, database.String(database.BlobSentinel)},
		{"null", database.Cell{Raw: nil, DBType: "INT4"}, database.Null()},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			assert.Equal(t, tt.want, Chain.Coerce(tt.cell))
		})
	}
}

func TestMapError(t *testing.T) {
	tests := []struct {
		name  string
		err   error
		kind  errs.ErrKind
		check func(error) bool
	}{
		{"syntax", &pgconn.PgError{Code: "42601", Message: "syntax error at or near \"SELEC\""}, errs.ErrKindQueryFailed, errs.IsQueryFailed},
		{"undefined table in schema", &pgconn.PgError{Code: "42P01"}, errs.ErrKindSchemaFailed, errs.IsSchemaFailed},
		{"auth", &pgconn.PgError{Code: "28P01", Message: "password authentication failed"}, errs.ErrKindQueryFailed, errs.IsConnectionFailed},
		{"unknown database", &pgconn.PgError{Code: "3D000"}, errs.ErrKindQueryFailed, errs.IsConnectionFailed},
		{"deadline", context.DeadlineExceeded, errs.ErrKindQueryFailed, errs.IsTimeout},
		{"plain", errors.New("broken pipe"), errs.ErrKindQueryFailed, errs.IsQueryFailed},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			err := mapError(tt.err, tt.kind, "op failed")
			assert.True(t, tt.check(err), err.Error())
			assert.ErrorIs(t, err, tt.err)
		})
	}

	assert.NoError(t, mapError(nil, errs.ErrKindQueryFailed, "x"))
}
