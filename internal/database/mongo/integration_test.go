//go:build integration

package mongo

import (
	"context"
	"testing"

	"github.com/koustreak/dbdeck/internal/database"
	"github.com/koustreak/dbdeck/internal/errs"
	"github.com/koustreak/dbdeck/internal/logger"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"github.com/testcontainers/testcontainers-go"
	tcmongo "github.com/testcontainers/testcontainers-go/modules/mongodb"
	"go.mongodb.org/mongo-driver/v2/bson"
)

func startMongo(t *testing.T) *database.Config {
	t.Helper()
	ctx := context.Background()

	ctr, err := tcmongo.Run(ctx, "mongo:7")
	require.NoError(t, err)
	t.Cleanup(func() { _ = testcontainers.TerminateContainer(ctr) })

	host, err := ctr.Host(ctx)
	require.NoError(t, err)
	port, err := ctr.MappedPort(ctx, "27017/tcp")
	require.NoError(t, err)

	cfg := database.Config{
		Engine:   database.EngineMongo,
		Host:     host,
		Port:     port.Int(),
		Database: "shop",
	}.WithDefaults()
	return &cfg
}

func TestIntegration_Mongo(t *testing.T) {
	cfg := startMongo(t)
	ctx := context.Background()

	d, err := New(ctx, cfg, logger.Nop())
	require.NoError(t, err)
	defer d.Close()

	t.Run("empty database", func(t *testing.T) {
		schema, err := d.InspectSchema(ctx)
		require.NoError(t, err)
		require.NotNil(t, schema.Tables)
		assert.Empty(t, schema.Tables)

		res, err := d.Execute(ctx, "db.users.find()")
		require.NoError(t, err)
		assert.Equal(t, []string{columnCollection, columnCount}, res.Columns)
		assert.Empty(t, res.Rows)
		assert.Zero(t, res.RowCount)
	})

	_, err = d.db.Collection("users").InsertMany(ctx, []any{
		bson.D{{Key: "name", Value: "alice"}, {Key: "age", Value: int32(30)}},
		bson.D{{Key: "name", Value: "bob"}},
	})
	require.NoError(t, err)
	require.NoError(t, d.db.CreateCollection(ctx, "audit"))

	t.Run("schema", func(t *testing.T) {
		schema, err := d.InspectSchema(ctx)
		require.NoError(t, err)
		require.Len(t, schema.Tables, 2)

		byName := map[string]database.TableInfo{}
		for _, tbl := range schema.Tables {
			byName[tbl.Name] = tbl
		}
		assert.Empty(t, byName["audit"].Columns)
		assert.Equal(t, []database.ColumnInfo{
			{Name: "_id", DataType: "ObjectId", IsNullable: true, IsPrimaryKey: true},
			{Name: "name", DataType: "String", IsNullable: true},
			{Name: "age", DataType: "Int32", IsNullable: true},
		}, byName["users"].Columns)
	})

	t.Run("execute summary", func(t *testing.T) {
		res, err := d.Execute(ctx, "ignored")
		require.NoError(t, err)
		require.Equal(t, 2, res.RowCount)

		counts := map[string]database.Value{}
		for _, row := range res.Rows {
			counts[row[0].String()] = row[1]
		}
		assert.Equal(t, database.Int(2), counts["users"])
		assert.Equal(t, database.Int(0), counts["audit"])
	})

	t.Run("lists", func(t *testing.T) {
		dbs, err := d.ListDatabases(ctx)
		require.NoError(t, err)
		assert.Contains(t, dbs, "shop")

		tables, err := d.ListTables(ctx)
		require.NoError(t, err)
		assert.ElementsMatch(t, []string{"users", "audit"}, tables)
	})

	t.Run("closed client", func(t *testing.T) {
		d2, err := New(ctx, cfg, logger.Nop())
		require.NoError(t, err)
		require.NoError(t, d2.Close())

		_, err = d2.Execute(ctx, "ignored")
		assert.True(t, errs.IsConnectionFailed(err), err)
		_, err = d2.InspectSchema(ctx)
		assert.True(t, errs.IsConnectionFailed(err), err)
	})
}
