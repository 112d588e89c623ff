package postgres

import (
	"errors"
	"fmt"
	"strings"

	"github.com/jackc/pgx/v5/pgconn"
	"github.com/koustreak/dbdeck/internal/database"
	"github.com/koustreak/dbdeck/internal/errs"
)

// SQLSTATE classes and codes that mean the session itself is unusable.
// Full list: https://www.postgresql.org/docs/current/errcodes-appendix.html
const (
	pgClassConnection     = "08"
	pgClassAuthorization  = "28"
	pgErrInvalidCatalog   = "3D000"
	pgErrTooManyConns     = "53300"
	pgErrCannotConnectNow = "57P03"
)

// mapError translates pgx errors into *errs.Error under the kind of the
// failing operation.
func mapError(err error, kind errs.ErrKind, msg string) error {
	if err == nil {
		return nil
	}

	var pgErr *pgconn.PgError
	if errors.As(err, &pgErr) {
		if isConnectionCode(pgErr.Code) {
			kind = errs.ErrKindConnectionFailed
		}
		return errs.Wrap(kind, fmt.Sprintf("%s: %s", msg, pgErr.Message), err)
	}

	var connErr *pgconn.ConnectError
	if errors.As(err, &connErr) {
		return errs.Wrap(errs.ErrKindConnectionFailed, msg, err)
	}

	return database.WrapErr(kind, msg, err)
}

func isConnectionCode(code string) bool {
	switch {
	case strings.HasPrefix(code, pgClassConnection), strings.HasPrefix(code, pgClassAuthorization):
		return true
	case code == pgErrInvalidCatalog, code == pgErrTooManyConns, code == pgErrCannotConnectNow:
		return true
	}
	return false
}
