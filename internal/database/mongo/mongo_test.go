package mongo

import (
	"context"
	"encoding/json"
	"errors"
	"testing"
	"time"

	"github.com/koustreak/dbdeck/internal/database"
	"github.com/koustreak/dbdeck/internal/errs"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.mongodb.org/mongo-driver/v2/bson"
	"go.mongodb.org/mongo-driver/v2/mongo"
)

func TestBuildURI(t *testing.T) {
	tests := []struct {
		name string
		cfg  database.Config
		want string
	}{
		{"anonymous", database.Config{Host: "localhost", Port: 27017}, "mongodb://localhost:27017/"},
		{"credentials", database.Config{Host: "db", Port: 27018, Username: "root", Password: "p@ss"}, "mongodb://root:p%40ss@db:27018/"},
		{"database as auth source", database.Config{Host: "db", Port: 27017, Username: "app", Password: "pw", Database: "shop"}, "mongodb://app:pw@db:27017/shop"},
		{"escaped database", database.Config{Host: "db", Port: 27017, Database: "my db"}, "mongodb://db:27017/my%20db"},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			assert.Equal(t, tt.want, buildURI(&tt.cfg))
		})
	}
}

func TestDatabaseName(t *testing.T) {
	assert.Equal(t, "admin", databaseName(&database.Config{}))
	assert.Equal(t, "shop", databaseName(&database.Config{Database: "shop"}))
}

func TestInferColumns(t *testing.T) {
	doc := bson.D{
		{Key: "_id", Value: bson.NewObjectID()},
		{Key: "name", Value: "alice"},
		{Key: "age", Value: int32(30)},
	}

	cols := inferColumns(doc)
	assert.Equal(t, []database.ColumnInfo{
		{Name: "_id", DataType: "ObjectId", IsNullable: true, IsPrimaryKey: true},
		{Name: "name", DataType: "String", IsNullable: true, IsPrimaryKey: false},
		{Name: "age", DataType: "Int32", IsNullable: true, IsPrimaryKey: false},
	}, cols)
}

func TestInferColumns_EmptyCollection(t *testing.T) {
	cols := inferColumns(nil)
	assert.NotNil(t, cols)
	assert.Empty(t, cols)
}

func TestFieldType(t *testing.T) {
	tests := []struct {
		value any
		want  string
	}{
		{"s", "String"},
		{int32(1), "Int32"},
		{int64(1), "Int64"},
		{1.5, "Double"},
		{true, "Boolean"},
		{bson.NewDateTimeFromTime(time.Now()), "DateTime"},
		{bson.NewObjectID(), "ObjectId"},
		{bson.A{1, 2}, "Array"},
		{bson.D{{Key: "x", Value: 1}}, "Document"},
		{nil, "Unknown"},
		{bson.Decimal128{}, "Unknown"},
	}

	for _, tt := range tests {
		t.Run(tt.want, func(t *testing.T) {
			assert.Equal(t, tt.want, fieldType(tt.value))
		})
	}
}

func TestSummaryResult(t *testing.T) {
	res := summaryResult([]string{"users", "orders"}, []int64{3, 0})
	assert.Equal(t, []string{"collection", "count"}, res.Columns)
	assert.Equal(t, 2, res.RowCount)
	assert.Equal(t, []database.Value{database.String("orders"), database.Int(0)}, res.Rows[1])

	b, err := json.Marshal(summaryResult(nil, nil))
	require.NoError(t, err)
	assert.JSONEq(t, `{"columns":["collection","count"],"rows":[],"row_count":0}`, string(b))
}

func TestPreview_Unsupported(t *testing.T) {
	_, err := (&DB{}).Preview(context.Background(), "users", database.Page{Limit: 10})
	assert.True(t, errs.IsUnsupported(err))
}

func TestMapError(t *testing.T) {
	tests := []struct {
		name  string
		err   error
		check func(error) bool
	}{
		{"auth", mongo.CommandError{Code: codeAuthenticationFailed, Message: "Authentication failed."}, errs.IsConnectionFailed},
		{"command", mongo.CommandError{Code: 2, Message: "BadValue"}, errs.IsSchemaFailed},
		{"deadline", context.DeadlineExceeded, errs.IsTimeout},
		{"plain", errors.New("boom"), errs.IsSchemaFailed},
		{"disconnected client", mongo.ErrClientDisconnected, errs.IsConnectionFailed},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			err := mapError(tt.err, errs.ErrKindSchemaFailed, "introspection failed")
			assert.True(t, tt.check(err), err.Error())
		})
	}
}
