package export

import (
	"bytes"
	"context"
	"io"
	"testing"
	"time"

	"github.com/koustreak/dbdeck/internal/database"
	"github.com/koustreak/dbdeck/internal/errs"
	"github.com/koustreak/dbdeck/internal/filestore"
	"github.com/koustreak/dbdeck/internal/filestore/local"
	"github.com/spf13/afero"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func sampleResult() *database.QueryResult {
	return database.NewResult(
		[]string{"id", "name", "score", "active"},
		[][]database.Value{
			{database.Int(1), database.String("Ada, Countess"), database.Float(9.5), database.Bool(true)},
			{database.Int(2), database.Null(), database.Null(), database.Bool(false)},
		},
	)
}

func TestParseFormat(t *testing.T) {
	tests := []struct {
		in   string
		want Format
		ok   bool
	}{
		{"", FormatCSV, true},
		{"CSV", FormatCSV, true},
		{" json ", FormatJSON, true},
		{"xlsx", "", false},
	}

	for _, tt := range tests {
		t.Run(tt.in, func(t *testing.T) {
			got, err := ParseFormat(tt.in)
			if !tt.ok {
				assert.True(t, errs.IsInvalidConfig(err))
				return
			}
			require.NoError(t, err)
			assert.Equal(t, tt.want, got)
		})
	}
}

func TestRender_CSV(t *testing.T) {
	var buf bytes.Buffer
	require.NoError(t, Render(&buf, sampleResult(), FormatCSV))

	want := "id,name,score,active\n" +
		"1,\"Ada, Countess\",9.5,true\n" +
		"2,,,false\n"
	assert.Equal(t, want, buf.String())
}

func TestRender_JSON(t *testing.T) {
	var buf bytes.Buffer
	require.NoError(t, Render(&buf, sampleResult(), FormatJSON))

	assert.JSONEq(t, `{
		"columns": ["id","name","score","active"],
		"rows": [[1,"Ada, Countess",9.5,true],[2,null,null,false]],
		"row_count": 2
	}`, buf.String())
}

func TestRender_UnknownFormat(t *testing.T) {
	err := Render(io.Discard, sampleResult(), "xml")
	assert.True(t, errs.IsInvalidConfig(err))
}

func TestDefaultKey(t *testing.T) {
	ts := time.Date(2025, 3, 4, 5, 6, 7, 0, time.FixedZone("X", 3600))
	assert.Equal(t, "query_results-20250304T040607Z.csv", DefaultKey(FormatCSV, ts))
	assert.Equal(t, "query_results-20250304T040607Z.json", DefaultKey(FormatJSON, ts))
}

func newExporter(t *testing.T) (*Exporter, filestore.Store) {
	t.Helper()
	store, err := local.New(&filestore.Config{Dir: "/exports"}, afero.NewMemMapFs(), nil)
	require.NoError(t, err)
	e := New(store, nil)
	e.now = func() time.Time { return time.Date(2025, 1, 2, 3, 4, 5, 0, time.UTC) }
	return e, store
}

func TestExporter_Export(t *testing.T) {
	ctx := context.Background()

	tests := []struct {
		name    string
		format  Format
		key     string
		wantKey string
		wantCT  string
	}{
		{"default csv key", FormatCSV, "", "query_results-20250102T030405Z.csv", "text/csv"},
		{"default json key", FormatJSON, "", "query_results-20250102T030405Z.json", "application/json"},
		{"named without ext", FormatCSV, "reports/users", "reports/users.csv", "text/csv"},
		{"named with ext", FormatJSON, "dump.json", "dump.json", "application/json"},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			e, store := newExporter(t)

			info, err := e.Export(ctx, sampleResult(), tt.format, tt.key)
			require.NoError(t, err)
			assert.Equal(t, tt.wantKey, info.Key)
			assert.Equal(t, tt.wantCT, info.ContentType)
			assert.Positive(t, info.Size)

			obj, err := store.Get(ctx, info.Key)
			require.NoError(t, err)
			defer obj.Close()
			body, err := io.ReadAll(obj)
			require.NoError(t, err)

			var want bytes.Buffer
			require.NoError(t, Render(&want, sampleResult(), tt.format))
			assert.Equal(t, want.String(), string(body))
		})
	}
}

func TestExporter_EmptyResult(t *testing.T) {
	e, store := newExporter(t)
	ctx := context.Background()

	_, err := e.Export(ctx, database.EmptyResult(), FormatCSV, "")
	assert.True(t, errs.IsInvalidConfig(err))

	objs, err := store.List(ctx, filestore.ListOptions{})
	require.NoError(t, err)
	assert.Empty(t, objs)
}

func TestExporter_BadKey(t *testing.T) {
	e, _ := newExporter(t)
	_, err := e.Export(context.Background(), sampleResult(), FormatCSV, "../escape")
	assert.True(t, errs.IsInvalidConfig(err))
}

func TestExporter_Browse(t *testing.T) {
	e, _ := newExporter(t)
	ctx := context.Background()

	objs, err := e.List(ctx, "", 0)
	require.NoError(t, err)
	assert.NotNil(t, objs)
	assert.Empty(t, objs)

	for _, name := range []string{"reports/b", "reports/a", "other"} {
		_, err := e.Export(ctx, sampleResult(), FormatCSV, name)
		require.NoError(t, err)
	}

	objs, err = e.List(ctx, "reports/", 0)
	require.NoError(t, err)
	require.Len(t, objs, 2)
	assert.Equal(t, "reports/a.csv", objs[0].Key)
	assert.Equal(t, "reports/b.csv", objs[1].Key)

	objs, err = e.List(ctx, "", 1)
	require.NoError(t, err)
	assert.Len(t, objs, 1)

	_, err = e.List(ctx, "", -1)
	assert.True(t, errs.IsInvalidConfig(err))

	info, err := e.Stat(ctx, "other.csv")
	require.NoError(t, err)
	assert.Equal(t, "text/csv", info.ContentType)

	obj, err := e.Open(ctx, "other.csv")
	require.NoError(t, err)
	body, err := io.ReadAll(obj)
	require.NoError(t, err)
	require.NoError(t, obj.Close())
	assert.Equal(t, info.Size, int64(len(body)))

	u, err := e.URL(ctx, "other.csv", time.Hour)
	require.NoError(t, err)
	assert.Equal(t, "file:///exports/other.csv", u)

	_, err = e.Stat(ctx, "missing.csv")
	assert.True(t, errs.IsNotFound(err))
	_, err = e.Open(ctx, "missing.csv")
	assert.True(t, errs.IsNotFound(err))
}
