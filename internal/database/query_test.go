package database

import (
	"testing"

	"github.com/koustreak/dbdeck/internal/errs"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestSelectBuilder_Build(t *testing.T) {
	tests := []struct {
		name     string
		builder  *SelectBuilder
		wantSQL  string
		wantArgs []any
	}{
		{
			name:    "select star postgres",
			builder: Select("users", DialectPostgres),
			wantSQL: `SELECT * FROM "users"`,
		},
		{
			name:     "columns order limit offset postgres",
			builder:  Select("users", DialectPostgres).Columns("id", "name").OrderBy("id", Desc).Limit(5).Offset(10),
			wantSQL:  `SELECT "id", "name" FROM "users" ORDER BY "id" DESC LIMIT $1 OFFSET $2`,
			wantArgs: []any{5, 10},
		},
		{
			name:     "mysql backticks",
			builder:  Select("order items", DialectMySQL).OrderBy("id", Asc).Limit(3),
			wantSQL:  "SELECT * FROM `order items` ORDER BY `id` ASC LIMIT ?",
			wantArgs: []any{3},
		},
		{
			name:     "sqlite double quotes",
			builder:  Select(`we"ird`, DialectSQLite).Limit(1).Offset(2),
			wantSQL:  `SELECT * FROM "we""ird" LIMIT ? OFFSET ?`,
			wantArgs: []any{1, 2},
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			sql, args, err := tt.builder.Build()
			require.NoError(t, err)
			assert.Equal(t, tt.wantSQL, sql)
			assert.Equal(t, tt.wantArgs, args)
		})
	}
}

func TestSelectBuilder_Invalid(t *testing.T) {
	_, _, err := Select(" ", DialectMySQL).Build()
	assert.True(t, errs.IsInvalidConfig(err))

	_, _, err = Select("t", DialectMySQL).Limit(-1).Build()
	assert.True(t, errs.IsInvalidConfig(err))
}

func TestQuoteIdent_Backtick(t *testing.T) {
	assert.Equal(t, "`a``b`", DialectMySQL.QuoteIdent("a`b"))
}

func TestPage_Normalize(t *testing.T) {
	tests := []struct {
		name       string
		page       Page
		wantLimit  int
		wantOffset int
	}{
		{"defaults", Page{}, DefaultPreviewLimit, 0},
		{"negative limit", Page{Limit: -4, Offset: 3}, DefaultPreviewLimit, 3},
		{"within bounds", Page{Limit: 50, Offset: 100}, 50, 100},
		{"capped", Page{Limit: 5000}, MaxPreviewLimit, 0},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			p, err := tt.page.Normalize()
			require.NoError(t, err)
			assert.Equal(t, tt.wantLimit, p.Limit)
			assert.Equal(t, tt.wantOffset, p.Offset)
		})
	}

	_, err := Page{Limit: 10, Offset: -1}.Normalize()
	assert.True(t, errs.IsInvalidConfig(err))

	_, err = Page{Columns: []string{"id", " "}}.Normalize()
	assert.True(t, errs.IsInvalidConfig(err))
}

func TestPreviewQuery(t *testing.T) {
	tests := []struct {
		name     string
		engine   Engine
		page     Page
		wantSQL  string
		wantArgs []any
	}{
		{
			name:     "defaults postgres",
			engine:   EnginePostgres,
			page:     Page{Offset: 20},
			wantSQL:  `SELECT * FROM "users" LIMIT $1 OFFSET $2`,
			wantArgs: []any{DefaultPreviewLimit, 20},
		},
		{
			name:     "columns and descending order mysql",
			engine:   EngineMySQL,
			page:     Page{Limit: 5, Columns: []string{"id", "name"}, OrderBy: "id", Desc: true},
			wantSQL:  "SELECT `id`, `name` FROM `users` ORDER BY `id` DESC LIMIT ? OFFSET ?",
			wantArgs: []any{5, 0},
		},
		{
			name:     "ascending order sqlite",
			engine:   EngineSQLite,
			page:     Page{Limit: 2, OrderBy: "name"},
			wantSQL:  `SELECT * FROM "users" ORDER BY "name" ASC LIMIT ? OFFSET ?`,
			wantArgs: []any{2, 0},
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			sql, args, err := PreviewQuery("users", tt.engine, tt.page)
			require.NoError(t, err)
			assert.Equal(t, tt.wantSQL, sql)
			assert.Equal(t, tt.wantArgs, args)
		})
	}

	_, _, err := PreviewQuery("users", EngineMongo, Page{})
	assert.True(t, errs.IsUnsupported(err))
}

func TestDialectFor(t *testing.T) {
	tests := []struct {
		engine Engine
		want   Dialect
	}{
		{EngineMySQL, DialectMySQL},
		{EnginePostgres, DialectPostgres},
		{EngineSQLite, DialectSQLite},
	}
	for _, tt := range tests {
		d, err := DialectFor(tt.engine)
		require.NoError(t, err)
		assert.Equal(t, tt.want, d, tt.engine)
	}

	_, err := DialectFor(EngineMongo)
	assert.True(t, errs.IsUnsupported(err))
}
