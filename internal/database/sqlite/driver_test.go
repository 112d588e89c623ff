package sqlite

import (
	"context"
	"database/sql"
	"os"
	"path/filepath"
	"testing"

	"github.com/koustreak/dbdeck/internal/database"
	"github.com/koustreak/dbdeck/internal/errs"
	"github.com/koustreak/dbdeck/internal/logger"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

const fixture = `
CREATE TABLE users (
	id      INTEGER PRIMARY KEY,
	name    TEXT NOT NULL,
	score   REAL,
	avatar  BLOB,
	born    DATE,
	misc
);
CREATE TABLE order_items (
	order_id INTEGER NOT NULL,
	line     INTEGER NOT NULL,
	sku      VARCHAR(32),
	PRIMARY KEY (order_id, line)
);
INSERT INTO users (id, name, score, avatar, born) VALUES
	(1, 'alice', 9.5, X'FFFE00', '1990-07-04'),
	(2, 'bob', NULL, NULL, NULL),
	(3, 'carol', 7, X'6869', '2001-01-31');
`

// seed creates a database file with the fixture schema and returns its path.
func seed(t *testing.T, ddl string) string {
	t.Helper()
	path := filepath.Join(t.TempDir(), "test.db")

	db, err := sql.Open(driverName, path)
	require.NoError(t, err)
	defer db.Close()

	if ddl != "" {
		_, err = db.Exec(ddl)
		require.NoError(t, err)
	} else {
		require.NoError(t, db.Ping())
	}
	return path
}

func open(t *testing.T, path string) *DB {
	t.Helper()
	cfg := database.Config{Engine: database.EngineSQLite, Database: path}.WithDefaults()
	d, err := New(context.Background(), &cfg, logger.Nop())
	require.NoError(t, err)
	t.Cleanup(func() { _ = d.Close() })
	return d
}

func TestBuildDSN(t *testing.T) {
	tests := []struct {
		name string
		path string
		want string
	}{
		{"absolute", "/data/app.db", "file:/data/app.db?mode=rw"},
		{"relative", "data/app.db", "file:data/app.db?mode=rw"},
		{"memory", ":memory:", ":memory:"},
		{"space", "/data/my app.db", "file:/data/my%20app.db?mode=rw"},
		{"query and fragment", "/data/a?b#c.db", "file:/data/a%3Fb%23c.db?mode=rw"},
		{"percent", "/data/100%.db", "file:/data/100%25.db?mode=rw"},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			assert.Equal(t, tt.want, buildDSN(tt.path))
		})
	}
}

func TestNew_SpecialCharactersInPath(t *testing.T) {
	dir := t.TempDir()
	path := filepath.Join(dir, "we?ird#name%.db")
	require.NoError(t, os.WriteFile(path, nil, 0o600))

	d := open(t, path)
	_, err := d.Execute(context.Background(), "CREATE TABLE t (x INTEGER)")
	require.NoError(t, err)

	tables, err := d.ListTables(context.Background())
	require.NoError(t, err)
	assert.Equal(t, []string{"t"}, tables)

	entries, err := os.ReadDir(dir)
	require.NoError(t, err)
	require.Len(t, entries, 1, "no sibling file may be created")
	assert.Equal(t, "we?ird#name%.db", entries[0].Name())
}

func TestNew_MissingFile(t *testing.T) {
	path := filepath.Join(t.TempDir(), "absent.db")
	cfg := database.Config{Engine: database.EngineSQLite, Database: path}.WithDefaults()

	_, err := New(context.Background(), &cfg, logger.Nop())
	require.Error(t, err)
	assert.True(t, errs.IsConnectionFailed(err), err.Error())

	_, statErr := os.Stat(path)
	assert.True(t, os.IsNotExist(statErr), "file must not be created")
}

func TestNew_Memory(t *testing.T) {
	d := open(t, ":memory:")
	require.NoError(t, d.Ping(context.Background()))

	_, err := d.Execute(context.Background(), "CREATE TABLE t (x INTEGER)")
	require.NoError(t, err)

	tables, err := d.ListTables(context.Background())
	require.NoError(t, err)
	assert.Equal(t, []string{"t"}, tables)
}

func TestInspectSchema(t *testing.T) {
	d := open(t, seed(t, fixture))

	schema, err := d.InspectSchema(context.Background())
	require.NoError(t, err)
	require.Len(t, schema.Tables, 2)

	items := schema.Tables[0]
	assert.Equal(t, "order_items", items.Name)
	assert.Equal(t, []database.ColumnInfo{
		{Name: "order_id", DataType: "INTEGER", IsNullable: false, IsPrimaryKey: true},
		{Name: "line", DataType: "INTEGER", IsNullable: false, IsPrimaryKey: true},
		{Name: "sku", DataType: "VARCHAR(32)", IsNullable: true, IsPrimaryKey: false},
	}, items.Columns)

	users := schema.Tables[1]
	assert.Equal(t, "users", users.Name)
	require.Len(t, users.Columns, 6)
	assert.True(t, users.Columns[0].IsPrimaryKey)
	assert.False(t, users.Columns[1].IsNullable)
	assert.Equal(t, "misc", users.Columns[5].Name)
	assert.Equal(t, "", users.Columns[5].DataType)
}

func TestInspectSchema_Empty(t *testing.T) {
	d := open(t, seed(t, ""))

	schema, err := d.InspectSchema(context.Background())
	require.NoError(t, err)
	assert.Empty(t, schema.Tables)
}

func TestExecute(t *testing.T) {
	d := open(t, seed(t, fixture))

	res, err := d.Execute(context.Background(), "SELECT id, name, score, avatar, born FROM users ORDER BY id")
	require.NoError(t, err)

	assert.Equal(t, []string{"id", "name", "score", "avatar", "born"}, res.Columns)
	require.Equal(t, 3, res.RowCount)
	assert.Equal(t, []database.Value{
		database.Int(1), database.String("alice"), database.Float(9.5),
		database.String(database.BlobSentinel), database.String("1990-07-04"),
	}, res.Rows[0])
	assert.Equal(t, []database.Value{
		database.Int(2), database.String("bob"), database.Null(), database.Null(), database.Null(),
	}, res.Rows[1])
	assert.Equal(t, database.String("hi"), res.Rows[2][3])
}

func TestExecute_Expressions(t *testing.T) {
	d := open(t, seed(t, ""))

	res, err := d.Execute(context.Background(), "SELECT 1 AS one, 'x' AS letter, NULL AS nothing, 2.5 AS half")
	require.NoError(t, err)
	assert.Equal(t, []string{"one", "letter", "nothing", "half"}, res.Columns)
	assert.Equal(t, []database.Value{database.Int(1), database.String("x"), database.Null(), database.Float(2.5)}, res.Rows[0])
}

func TestExecute_NoRows(t *testing.T) {
	d := open(t, seed(t, fixture))

	res, err := d.Execute(context.Background(), "SELECT * FROM users WHERE id < 0")
	require.NoError(t, err)
	assert.Empty(t, res.Columns)
	assert.Empty(t, res.Rows)
	assert.Zero(t, res.RowCount)
}

func TestExecute_Invalid(t *testing.T) {
	d := open(t, seed(t, fixture))

	_, err := d.Execute(context.Background(), "SELEC nonsense")
	assert.True(t, errs.IsQueryFailed(err))

	_, err = d.Execute(context.Background(), "SELECT * FROM missing")
	assert.True(t, errs.IsQueryFailed(err))
}

func TestExecute_Cancelled(t *testing.T) {
	d := open(t, seed(t, fixture))

	ctx, cancel := context.WithCancel(context.Background())
	cancel()

	_, err := d.Execute(ctx, "SELECT * FROM users")
	assert.True(t, errs.IsTimeout(err), err)
}

func TestClosed(t *testing.T) {
	d := open(t, seed(t, fixture))
	require.NoError(t, d.Close())
	ctx := context.Background()

	_, err := d.Execute(ctx, "SELECT 1")
	assert.True(t, errs.IsConnectionFailed(err), err)
	_, err = d.InspectSchema(ctx)
	assert.True(t, errs.IsConnectionFailed(err), err)
	_, err = d.ListTables(ctx)
	assert.True(t, errs.IsConnectionFailed(err), err)
}

func TestPreview(t *testing.T) {
	d := open(t, seed(t, fixture))

	res, err := d.Preview(context.Background(), "users", database.Page{Limit: 2, Offset: 1})
	require.NoError(t, err)
	require.Equal(t, 2, res.RowCount)
	assert.Equal(t, database.Int(2), res.Rows[0][0])
	assert.Equal(t, database.Int(3), res.Rows[1][0])

	res, err = d.Preview(context.Background(), "users", database.Page{
		Limit:   1,
		Columns: []string{"id"},
		OrderBy: "id",
		Desc:    true,
	})
	require.NoError(t, err)
	assert.Equal(t, []string{"id"}, res.Columns)
	assert.Equal(t, database.Int(3), res.Rows[0][0])

	_, err = d.Preview(context.Background(), "missing", database.Page{})
	assert.True(t, errs.IsQueryFailed(err))
}

func TestListDatabasesAndTables(t *testing.T) {
	d := open(t, seed(t, fixture))

	dbs, err := d.ListDatabases(context.Background())
	require.NoError(t, err)
	assert.Contains(t, dbs, "main")

	tables, err := d.ListTables(context.Background())
	require.NoError(t, err)
	assert.Equal(t, []string{"order_items", "users"}, tables)
}
