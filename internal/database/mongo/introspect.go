package mongo

import (
	"context"
	"errors"
	"fmt"

	"github.com/koustreak/dbdeck/internal/database"
	"github.com/koustreak/dbdeck/internal/errs"
	"go.mongodb.org/mongo-driver/v2/bson"
	"go.mongodb.org/mongo-driver/v2/mongo"
)

// Field labels reported as ColumnInfo.DataType.
const (
	typeString   = "String"
	typeInt32    = "Int32"
	typeInt64    = "Int64"
	typeDouble   = "Double"
	typeBoolean  = "Boolean"
	typeDateTime = "DateTime"
	typeObjectID = "ObjectId"
	typeArray    = "Array"
	typeDocument = "Document"
	typeUnknown  = "Unknown"
)

// idField is always reported as the primary key.
const idField = "_id"

// InspectSchema infers each collection's columns from one sample document.
// An empty collection yields no columns and every field is nullable.
func (d *DB) InspectSchema(ctx context.Context) (*database.Schema, error) {
	names, err := d.db.ListCollectionNames(ctx, bson.D{})
	if err != nil {
		return nil, mapError(err, errs.ErrKindSchemaFailed, "failed to list collections")
	}

	schema := &database.Schema{Tables: make([]database.TableInfo, 0, len(names))}
	for _, name := range names {
		var sample bson.D
		err := d.db.Collection(name).FindOne(ctx, bson.D{}).Decode(&sample)
		if err != nil && !errors.Is(err, mongo.ErrNoDocuments) {
			return nil, mapError(err, errs.ErrKindSchemaFailed, fmt.Sprintf("failed to sample %q", name))
		}
		schema.Tables = append(schema.Tables, database.TableInfo{Name: name, Columns: inferColumns(sample)})
	}

	d.log.Debugf("introspected %d collections", len(schema.Tables))
	return schema, nil
}

// inferColumns maps the top-level fields of a sample document, in document
// order. A nil document yields an empty column list.
func inferColumns(doc bson.D) []database.ColumnInfo {
	cols := make([]database.ColumnInfo, 0, len(doc))
	for _, e := range doc {
		cols = append(cols, database.ColumnInfo{
			Name:         e.Key,
			DataType:     fieldType(e.Value),
			IsNullable:   true,
			IsPrimaryKey: e.Key == idField,
		})
	}
	return cols
}

func fieldType(v any) string {
	switch v.(type) {
	case string:
		return typeString
	case int32:
		return typeInt32
	case int64:
		return typeInt64
	case float64:
		return typeDouble
	case bool:
		return typeBoolean
	case bson.DateTime:
		return typeDateTime
	case bson.ObjectID:
		return typeObjectID
	case bson.A, []any:
		return typeArray
	case bson.D, bson.M:
		return typeDocument
	}
	return typeUnknown
}

// ListDatabases returns every database name on the server.
func (d *DB) ListDatabases(ctx context.Context) ([]string, error) {
	names, err := d.client.ListDatabaseNames(ctx, bson.D{})
	if err != nil {
		return nil, mapError(err, errs.ErrKindConnectionFailed, "failed to list databases")
	}
	return names, nil
}

// ListTables returns the collections of the configured database.
func (d *DB) ListTables(ctx context.Context) ([]string, error) {
	names, err := d.db.ListCollectionNames(ctx, bson.D{})
	if err != nil {
		return nil, mapError(err, errs.ErrKindConnectionFailed, "failed to list collections")
	}
	return names, nil
}
