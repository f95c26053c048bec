package repository

import (
	"bakery-backoffice/internal/apperr"

	"github.com/pkg/errors"
	"gorm.io/gorm"
)

// lookupErr tags a missing row as not found and wraps anything else.
func lookupErr(err error, what string) error {
	if err == nil {
		return nil
	}
	if errors.Is(err, gorm.ErrRecordNotFound) {
		return apperr.NotFound(what)
	}
	return errors.Wrapf(err, "find %s", what)
}

func likePattern(filter string) string {
	return "%" + filter + "%"
}
