package sqlite

import (
	"errors"
	"fmt"

	"github.com/koustreak/dbdeck/internal/database"
	"github.com/koustreak/dbdeck/internal/errs"
	msqlite "modernc.org/sqlite"
)

// SQLite primary result codes that mean the file itself is unusable.
// Full list: https://www.sqlite.org/rescode.html
const (
	codePerm     = 3
	codeCantOpen = 14
	codeAuth     = 23
	codeNotADB   = 26
)

// mapError translates modernc.org/sqlite errors into *errs.Error under the
// kind of the failing operation.
func mapError(err error, kind errs.ErrKind, msg string) error {
	if err == nil {
		return nil
	}

	var sqliteErr *msqlite.Error
	if errors.As(err, &sqliteErr) {
		switch sqliteErr.Code() & 0xff {
		case codePerm, codeCantOpen, codeAuth, codeNotADB:
			kind = errs.ErrKindConnectionFailed
		}
		return errs.Wrap(kind, fmt.Sprintf("%s: %s", msg, sqliteErr.Error()), err)
	}

	return database.WrapErr(kind, msg, err)
}
