package sqlite

import (
	"database/sql"
	"net/url"

	"github.com/koustreak/dbdeck/internal/database"
	"github.com/koustreak/dbdeck/internal/errs"

	_ "modernc.org/sqlite" // register "sqlite" driver
)

const (
	driverName = "sqlite"
	memoryPath = ":memory:"
)

// buildDSN opens an existing file read-write; a missing file is an error,
// never silently created. ":memory:" is passed through unchanged. The path
// is percent-escaped so '?', '#' and '%' in file names survive URI parsing.
func buildDSN(path string) string {
	if path == memoryPath {
		return path
	}
	u := url.URL{
		Scheme:   "file",
		Opaque:   (&url.URL{Path: path}).EscapedPath(),
		RawQuery: "mode=rw",
	}
	return u.String()
}

// buildPool configures and returns a *sql.DB with pool settings.
func buildPool(cfg *database.Config) (*sql.DB, error) {
	db, err := sql.Open(driverName, buildDSN(cfg.Database))
	if err != nil {
		return nil, errs.Wrap(errs.ErrKindInvalidConfig, "invalid SQLite path", err)
	}

	maxOpen := int(cfg.MaxConns)
	if cfg.Database == memoryPath {
		// every connection to :memory: is a separate database
		maxOpen = 1
	}
	db.SetMaxOpenConns(maxOpen)
	db.SetMaxIdleConns(maxOpen)
	db.SetConnMaxLifetime(cfg.MaxConnLifetime)
	db.SetConnMaxIdleTime(cfg.MaxConnIdleTime)
	return db, nil
}
