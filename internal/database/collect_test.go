package database

import (
	"errors"
	"testing"
	"time"

	"github.com/DATA-DOG/go-sqlmock"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestCollectRows(t *testing.T) {
	db, mock, err := sqlmock.New()
	require.NoError(t, err)
	defer db.Close()

	created := time.Date(2023, 5, 1, 8, 30, 0, 0, time.UTC)
	rows := sqlmock.NewRowsWithColumnDefinition(
		sqlmock.NewColumn("id").OfType("INT", int64(0)),
		sqlmock.NewColumn("name").OfType("VARCHAR", ""),
		sqlmock.NewColumn("avatar").OfType("BLOB", []byte{}),
		sqlmock.NewColumn("created").OfType("DATETIME", time.Time{}),
		sqlmock.NewColumn("id").OfType("INT", int64(0)),
	).
		AddRow(int64(1), []byte("alice"), []byte{0xff, 0x00}, created, int64(10)).
		AddRow(int64(2), nil, nil, created, int64(20))

	mock.ExpectQuery("SELECT").WillReturnRows(rows)

	sqlRows, err := db.Query("SELECT * FROM users u JOIN orders o")
	require.NoError(t, err)

	res, err := CollectRows(sqlRows, StandardChain)
	require.NoError(t, err)

	assert.Equal(t, []string{"id", "name", "avatar", "created", "id"}, res.Columns)
	assert.Equal(t, 2, res.RowCount)
	assert.Equal(t, []Value{Int(1), String("alice"), String(BlobSentinel), String("2023-05-01 08:30:00"), Int(10)}, res.Rows[0])
	assert.Equal(t, []Value{Int(2), Null(), Null(), String("2023-05-01 08:30:00"), Int(20)}, res.Rows[1])
	assert.NoError(t, mock.ExpectationsWereMet())
}

func TestCollectRows_Empty(t *testing.T) {
	db, mock, err := sqlmock.New()
	require.NoError(t, err)
	defer db.Close()

	mock.ExpectQuery("SELECT").WillReturnRows(sqlmock.NewRows([]string{"id", "name"}))

	sqlRows, err := db.Query("SELECT id, name FROM users WHERE 1=0")
	require.NoError(t, err)

	res, err := CollectRows(sqlRows, StandardChain)
	require.NoError(t, err)
	assert.Empty(t, res.Columns)
	assert.NotNil(t, res.Columns)
	assert.Empty(t, res.Rows)
	assert.Zero(t, res.RowCount)
}

func TestCollectRows_IterationError(t *testing.T) {
	db, mock, err := sqlmock.New()
	require.NoError(t, err)
	defer db.Close()

	boom := errors.New("connection reset")
	mock.ExpectQuery("SELECT").WillReturnRows(
		sqlmock.NewRows([]string{"id"}).AddRow(int64(1)).AddRow(int64(2)).RowError(1, boom),
	)

	sqlRows, err := db.Query("SELECT id FROM t")
	require.NoError(t, err)

	_, err = CollectRows(sqlRows, StandardChain)
	assert.ErrorIs(t, err, boom)
}
