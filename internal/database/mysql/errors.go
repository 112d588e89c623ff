package mysql

import (
	"errors"
	"fmt"

	gomysql "github.com/go-sql-driver/mysql"
	"github.com/koustreak/dbdeck/internal/database"
	"github.com/koustreak/dbdeck/internal/errs"
)

// MySQL error numbers that always mean the session itself is unusable.
// Full list: https://dev.mysql.com/doc/mysql-errors/8.0/en/server-error-reference.html
const (
	errDBAccessDenied  = 1044
	errAccessDenied    = 1045
	errUnknownDatabase = 1049
	errTooManyConns    = 1040
	errUserConnLimit   = 1203
)

// mapError translates go-sql-driver/mysql errors into *errs.Error under the
// kind of the failing operation. Authentication and capacity errors are
// connection failures whatever the operation.
func mapError(err error, kind errs.ErrKind, msg string) error {
	if err == nil {
		return nil
	}

	var mysqlErr *gomysql.MySQLError
	if errors.As(err, &mysqlErr) {
		switch mysqlErr.Number {
		case errDBAccessDenied, errAccessDenied, errUnknownDatabase, errTooManyConns, errUserConnLimit:
			kind = errs.ErrKindConnectionFailed
		}
		return errs.Wrap(kind, fmt.Sprintf("%s: %s", msg, mysqlErr.Message), err)
	}

	return database.WrapErr(kind, msg, err)
}
