package cli

import (
	"encoding/json"
	"fmt"
	"io"
	"strings"

	"github.com/jedib0t/go-pretty/v6/table"
	"github.com/koustreak/dbdeck/internal/database"
	"github.com/koustreak/dbdeck/internal/errs"
	"github.com/koustreak/dbdeck/internal/export"
)

const (
	formatTable = "table"
	formatJSON  = "json"
	formatCSV   = "csv"
)

func checkFormat(format string, allowed ...string) error {
	for _, a := range allowed {
		if format == a {
			return nil
		}
	}
	return errs.Newf(errs.ErrKindInvalidConfig, "unknown format %q (want %s)", format, strings.Join(allowed, "|"))
}

func newTable(w io.Writer) table.Writer {
	t := table.NewWriter()
	t.SetOutputMirror(w)
	t.SetStyle(table.StyleLight)
	return t
}

func renderResult(w io.Writer, res *database.QueryResult, format string) error {
	switch format {
	case formatJSON:
		return renderJSON(w, res)
	case formatCSV:
		return export.Render(w, res, export.FormatCSV)
	}

	if res.RowCount == 0 {
		_, _ = fmt.Fprintln(w, "(0 rows)")
		return nil
	}

	t := newTable(w)
	header := make(table.Row, len(res.Columns))
	for i, c := range res.Columns {
		header[i] = c
	}
	t.AppendHeader(header)

	for _, row := range res.Rows {
		r := make(table.Row, len(row))
		for i, v := range row {
			r[i] = formatValue(v)
		}
		t.AppendRow(r)
	}
	t.Render()

	_, _ = fmt.Fprintf(w, "(%d rows)\n", res.RowCount)
	return nil
}

func formatValue(v database.Value) string {
	if v.IsNull() {
		return "NULL"
	}
	return v.String()
}

func renderSchema(w io.Writer, schema *database.Schema, format string) error {
	if format == formatJSON {
		return renderJSON(w, schema)
	}
	if len(schema.Tables) == 0 {
		_, _ = fmt.Fprintln(w, "(no tables)")
		return nil
	}

	for i, tbl := range schema.Tables {
		if i > 0 {
			_, _ = fmt.Fprintln(w)
		}
		t := newTable(w)
		t.SetTitle(tbl.Name)
		t.AppendHeader(table.Row{"column", "type", "nullable", "pk"})
		for _, c := range tbl.Columns {
			t.AppendRow(table.Row{c.Name, c.DataType, yesNo(c.IsNullable), yesNo(c.IsPrimaryKey)})
		}
		t.Render()
	}
	return nil
}

func renderNames(w io.Writer, names []string, format string) error {
	if format == formatJSON {
		return renderJSON(w, names)
	}
	for _, n := range names {
		_, _ = fmt.Fprintln(w, n)
	}
	return nil
}

func renderJSON(w io.Writer, v any) error {
	enc := json.NewEncoder(w)
	enc.SetIndent("", "  ")
	return enc.Encode(v)
}

func yesNo(b bool) string {
	if b {
		return "yes"
	}
	return ""
}
