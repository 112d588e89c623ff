// Package export renders query results as CSV or JSON and uploads them to a
// filestore sink.
package export

import (
	"bytes"
	"context"
	"encoding/csv"
	"encoding/json"
	"io"
	"path"
	"strings"
	"time"

	"github.com/koustreak/dbdeck/internal/database"
	"github.com/koustreak/dbdeck/internal/errs"
	"github.com/koustreak/dbdeck/internal/filestore"
	"github.com/koustreak/dbdeck/internal/logger"
)

// Format is an export file format.
type Format string

const (
	FormatCSV  Format = "csv"
	FormatJSON Format = "json"
)

// KeyPrefix starts every generated object key.
const KeyPrefix = "query_results"

const keyTimeLayout = "20060102T150405Z"

// ParseFormat accepts "csv" or "json" in any case. Empty means CSV.
func ParseFormat(s string) (Format, error) {
	switch strings.ToLower(strings.TrimSpace(s)) {
	case "", "csv":
		return FormatCSV, nil
	case "json":
		return FormatJSON, nil
	}
	return "", errs.Newf(errs.ErrKindInvalidConfig, "unknown export format %q", s)
}

// Ext returns the file extension including the dot.
func (f Format) Ext() string { return "." + string(f) }

// ContentType returns the MIME type objects of this format are stored with.
func (f Format) ContentType() string {
	return filestore.ContentTypeFor("x" + f.Ext())
}

// Render writes res to w in format f.
//
// CSV output has a header row of column names followed by one record per row;
// null cells are empty fields. JSON output is the QueryResult document.
func Render(w io.Writer, res *database.QueryResult, f Format) error {
	switch f {
	case FormatCSV:
		return renderCSV(w, res)
	case FormatJSON:
		enc := json.NewEncoder(w)
		enc.SetEscapeHTML(false)
		return enc.Encode(res)
	}
	return errs.Newf(errs.ErrKindInvalidConfig, "unknown export format %q", f)
}

func renderCSV(w io.Writer, res *database.QueryResult) error {
	cw := csv.NewWriter(w)
	if err := cw.Write(res.Columns); err != nil {
		return err
	}

	record := make([]string, len(res.Columns))
	for _, row := range res.Rows {
		record = record[:0]
		for _, v := range row {
			record = append(record, v.String())
		}
		if err := cw.Write(record); err != nil {
			return err
		}
	}
	cw.Flush()
	return cw.Error()
}

// DefaultKey names an export taken at t.
func DefaultKey(f Format, t time.Time) string {
	return KeyPrefix + "-" + t.UTC().Format(keyTimeLayout) + f.Ext()
}

// Exporter uploads rendered results to a store.
type Exporter struct {
	store filestore.Store
	log   *logger.Logger
	now   func() time.Time
}

// New returns an Exporter writing to store.
func New(store filestore.Store, log *logger.Logger) *Exporter {
	if log == nil {
		log = logger.Nop()
	}
	return &Exporter{store: store, log: log.ForComponent("export"), now: time.Now}
}

// List returns stored exports whose keys start with prefix, ordered by key.
// A zero limit returns every match.
func (e *Exporter) List(ctx context.Context, prefix string, limit int) ([]filestore.ObjectInfo, error) {
	if limit < 0 {
		return nil, errs.Newf(errs.ErrKindInvalidConfig, "negative limit %d", limit)
	}
	objs, err := e.store.List(ctx, filestore.ListOptions{Prefix: prefix, Limit: limit})
	if err != nil {
		return nil, err
	}
	if objs == nil {
		objs = []filestore.ObjectInfo{}
	}
	return objs, nil
}

// Stat returns the metadata of a stored export.
func (e *Exporter) Stat(ctx context.Context, key string) (*filestore.ObjectInfo, error) {
	return e.store.Stat(ctx, key)
}

// Open streams a stored export. The caller must Close the object.
func (e *Exporter) Open(ctx context.Context, key string) (filestore.Object, error) {
	return e.store.Get(ctx, key)
}

// URL returns a download location for a stored export, valid for ttl on
// remote sinks.
func (e *Exporter) URL(ctx context.Context, key string, ttl time.Duration) (string, error) {
	return e.store.URL(ctx, key, ttl)
}

// Export renders res and uploads it. An empty name selects DefaultKey; a name
// without an extension gets the format's one. A result without rows is
// rejected since there is nothing to export.
func (e *Exporter) Export(ctx context.Context, res *database.QueryResult, f Format, name string) (*filestore.ObjectInfo, error) {
	if res == nil || res.RowCount == 0 {
		return nil, errs.New(errs.ErrKindInvalidConfig, "query returned no rows to export")
	}

	key := name
	switch {
	case key == "":
		key = DefaultKey(f, e.now())
	case path.Ext(key) == "":
		key += f.Ext()
	}

	var buf bytes.Buffer
	if err := Render(&buf, res, f); err != nil {
		return nil, errs.Wrap(errs.ErrKindInvalidConfig, "failed to render export", err)
	}

	info, err := e.store.Put(ctx, key, &buf, int64(buf.Len()), f.ContentType())
	if err != nil {
		return nil, err
	}

	e.log.InfoWith("exported query result", map[string]any{
		"key":    info.Key,
		"format": string(f),
		"rows":   res.RowCount,
		"bytes":  info.Size,
	})
	return info, nil
}
