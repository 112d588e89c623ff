package database

import (
	"fmt"
	"strings"

	"github.com/koustreak/dbdeck/internal/errs"
)

// Preview paging bounds.
const (
	DefaultPreviewLimit = 10
	MaxPreviewLimit     = 1000
)

// Dialect controls identifier quoting and placeholder style.
type Dialect int

const (
	// DialectPostgres uses "ident" and $1, $2, … placeholders.
	DialectPostgres Dialect = iota

	// DialectMySQL uses `ident` and ? placeholders.
	DialectMySQL

	// DialectSQLite uses "ident" and ? placeholders.
	DialectSQLite
)

// DialectFor returns the SQL dialect of a relational engine.
func DialectFor(e Engine) (Dialect, error) {
	if !e.IsRelational() {
		return 0, errs.Newf(errs.ErrKindUnsupported, "%s has no SQL dialect", e.DisplayName())
	}
	switch e {
	case EnginePostgres:
		return DialectPostgres, nil
	case EngineMySQL:
		return DialectMySQL, nil
	default:
		return DialectSQLite, nil
	}
}

// QuoteIdent quotes a table or column name for the dialect, doubling any
// embedded quote character.
func (d Dialect) QuoteIdent(name string) string {
	if d == DialectMySQL {
		return "`" + strings.ReplaceAll(name, "`", "``") + "`"
	}
	return `"` + strings.ReplaceAll(name, `"`, `""`) + `"`
}

func (d Dialect) placeholder(idx int) string {
	if d == DialectPostgres {
		return fmt.Sprintf("$%d", idx)
	}
	return "?"
}

// SelectBuilder constructs a parameterized SELECT query using a fluent API.
// Paging values are never interpolated into the SQL string.
//
// Usage:
//
//	sql, args, err := Select("users", DialectMySQL).
//	    Columns("id", "name").
//	    OrderBy("id", Asc).
//	    Limit(20).
//	    Offset(40).
//	    Build()
type SelectBuilder struct {
	table   string
	dialect Dialect
	columns []string
	orderBy []orderClause
	limit   *int
	offset  *int
}

// SortDirection controls the ORDER BY direction.
type SortDirection bool

const (
	Asc  SortDirection = false
	Desc SortDirection = true
)

type orderClause struct {
	column string
	dir    SortDirection
}

// Select starts a new SelectBuilder for the given table and dialect.
func Select(table string, d Dialect) *SelectBuilder {
	return &SelectBuilder{table: table, dialect: d}
}

// Columns restricts the SELECT to the specified columns.
// If not called, SELECT * is used.
func (b *SelectBuilder) Columns(cols ...string) *SelectBuilder {
	b.columns = cols
	return b
}

// OrderBy appends an ORDER BY clause for the given column and direction.
func (b *SelectBuilder) OrderBy(column string, dir SortDirection) *SelectBuilder {
	b.orderBy = append(b.orderBy, orderClause{column, dir})
	return b
}

// Limit sets the maximum number of rows to return.
func (b *SelectBuilder) Limit(n int) *SelectBuilder {
	b.limit = &n
	return b
}

// Offset sets the number of rows to skip.
func (b *SelectBuilder) Offset(n int) *SelectBuilder {
	b.offset = &n
	return b
}

// Build produces the final SQL string and argument slice.
func (b *SelectBuilder) Build() (string, []any, error) {
	if strings.TrimSpace(b.table) == "" {
		return "", nil, errs.New(errs.ErrKindInvalidConfig, "table name is required")
	}
	if b.limit != nil && *b.limit < 0 {
		return "", nil, errs.Newf(errs.ErrKindInvalidConfig, "negative limit %d", *b.limit)
	}
	if b.offset != nil && *b.offset < 0 {
		return "", nil, errs.Newf(errs.ErrKindInvalidConfig, "negative offset %d", *b.offset)
	}

	cols := "*"
	if len(b.columns) > 0 {
		quoted := make([]string, len(b.columns))
		for i, c := range b.columns {
			quoted[i] = b.dialect.QuoteIdent(c)
		}
		cols = strings.Join(quoted, ", ")
	}

	var sb strings.Builder
	sb.WriteString("SELECT ")
	sb.WriteString(cols)
	sb.WriteString(" FROM ")
	sb.WriteString(b.dialect.QuoteIdent(b.table))

	var args []any
	argIdx := 1

	if len(b.orderBy) > 0 {
		parts := make([]string, len(b.orderBy))
		for i, o := range b.orderBy {
			dir := "ASC"
			if o.dir == Desc {
				dir = "DESC"
			}
			parts[i] = b.dialect.QuoteIdent(o.column) + " " + dir
		}
		sb.WriteString(" ORDER BY ")
		sb.WriteString(strings.Join(parts, ", "))
	}

	if b.limit != nil {
		sb.WriteString(" LIMIT ")
		sb.WriteString(b.dialect.placeholder(argIdx))
		args = append(args, *b.limit)
		argIdx++
	}

	if b.offset != nil {
		sb.WriteString(" OFFSET ")
		sb.WriteString(b.dialect.placeholder(argIdx))
		args = append(args, *b.offset)
	}

	return sb.String(), args, nil
}

// Page selects a window of a table for preview.
type Page struct {
	Limit  int
	Offset int

	// Columns restricts the projection; empty selects every column.
	Columns []string

	// OrderBy names the sort column; empty keeps storage order.
	OrderBy string
	Desc    bool
}

// Normalize applies the paging bounds: a non-positive limit becomes
// DefaultPreviewLimit, limits above MaxPreviewLimit are capped and a
// negative offset is rejected.
func (p Page) Normalize() (Page, error) {
	if p.Offset < 0 {
		return p, errs.Newf(errs.ErrKindInvalidConfig, "negative offset %d", p.Offset)
	}
	switch {
	case p.Limit <= 0:
		p.Limit = DefaultPreviewLimit
	case p.Limit > MaxPreviewLimit:
		p.Limit = MaxPreviewLimit
	}
	for _, c := range p.Columns {
		if strings.TrimSpace(c) == "" {
			return p, errs.New(errs.ErrKindInvalidConfig, "empty column name")
		}
	}
	return p, nil
}

// PreviewQuery builds the paged SELECT for table in the engine's dialect.
func PreviewQuery(table string, e Engine, p Page) (string, []any, error) {
	d, err := DialectFor(e)
	if err != nil {
		return "", nil, err
	}
	p, err = p.Normalize()
	if err != nil {
		return "", nil, err
	}

	b := Select(table, d).Columns(p.Columns...)
	if p.OrderBy != "" {
		dir := Asc
		if p.Desc {
			dir = Desc
		}
		b.OrderBy(p.OrderBy, dir)
	}
	return b.Limit(p.Limit).Offset(p.Offset).Build()
}
