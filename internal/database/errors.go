package database

import (
	"context"
	"database/sql"
	"errors"

	"github.com/koustreak/dbdeck/internal/errs"
)

// errDBClosed is the text database/sql reports for a closed *sql.DB; the
// sentinel itself is unexported.
const errDBClosed = "sql: database is closed"

// WrapErr classifies a driver error under the kind of the operation that
// raised it. Context cancellation and deadlines become timeouts, a closed
// pool or connection becomes connection_failed, and errors that are already
// *errs.Error pass through unchanged.
func WrapErr(kind errs.ErrKind, msg string, err error) error {
	if err == nil {
		return nil
	}
	var e *errs.Error
	if errors.As(err, &e) {
		return err
	}
	if errors.Is(err, context.DeadlineExceeded) || errors.Is(err, context.Canceled) {
		return errs.Wrap(errs.ErrKindTimeout, msg, err)
	}
	if errors.Is(err, sql.ErrConnDone) || err.Error() == errDBClosed {
		return errs.Wrap(errs.ErrKindConnectionFailed, msg, err)
	}
	return errs.Wrap(kind, msg, err)
}
