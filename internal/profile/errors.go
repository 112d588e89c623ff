package profile

import (
	"errors"
	"io/fs"

	"github.com/koustreak/dbdeck/internal/errs"
)

func isNotExist(err error) bool {
	return errors.Is(err, fs.ErrNotExist)
}

func mapError(err error, msg string) error {
	if errors.Is(err, fs.ErrPermission) {
		return errs.Wrap(errs.ErrKindPermissionDenied, msg, err)
	}
	return errs.Wrap(errs.ErrKindInvalidConfig, msg, err)
}
