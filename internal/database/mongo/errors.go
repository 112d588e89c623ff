package mongo

import (
	"errors"
	"fmt"

	"github.com/koustreak/dbdeck/internal/database"
	"github.com/koustreak/dbdeck/internal/errs"
	"go.mongodb.org/mongo-driver/v2/mongo"
)

// Server error codes that mean the session itself is unusable.
// Full list: https://www.mongodb.com/docs/manual/reference/error-codes/
const (
	codeUnauthorized         = 13
	codeAuthenticationFailed = 18
)

// mapError translates mongo-driver errors into *errs.Error under the kind of
// the failing operation. Network and authentication failures are connection
// failures whatever the operation.
func mapError(err error, kind errs.ErrKind, msg string) error {
	if err == nil {
		return nil
	}

	var cmdErr mongo.CommandError
	if errors.As(err, &cmdErr) {
		switch cmdErr.Code {
		case codeUnauthorized, codeAuthenticationFailed:
			kind = errs.ErrKindConnectionFailed
		}
		return errs.Wrap(kind, fmt.Sprintf("%s: %s", msg, cmdErr.Message), err)
	}

	if mongo.IsNetworkError(err) || errors.Is(err, mongo.ErrClientDisconnected) {
		return errs.Wrap(errs.ErrKindConnectionFailed, msg, err)
	}
	if mongo.IsTimeout(err) {
		return errs.Wrap(errs.ErrKindTimeout, msg, err)
	}

	return database.WrapErr(kind, msg, err)
}
