// Package repo – storage error translation.
//
// The repository is the only layer that sees raw GORM/SQLite errors. Every
// write path funnels its error through translate so that callers above (the
// operation pipeline and the classifier) only ever deal with storage failure
// kinds. One signal is deliberately NOT translated here: the record-missing
// sentinel (gorm.ErrRecordNotFound) is propagated raw so the pipeline's
// safe-lookup wrapper performs the single permitted not-found translation at
// the exact point of the fetch.
package repo

import (
	"context"
	"errors"
	"strings"

	"gorm.io/gorm"

	"github.com/tbourn/go-blog-backend/internal/apperr"
)

// ErrNotFound aliases gorm.ErrRecordNotFound for convenience and consistency
// across the service layer and handlers.
var ErrNotFound = gorm.ErrRecordNotFound

// translate converts a raw database error into the matching storage failure
// kind. Record-missing passes through untouched; nil stays nil.
func translate(err error) error {
	if err == nil {
		return nil
	}
	if errors.Is(err, gorm.ErrRecordNotFound) {
		return err
	}
	if errors.Is(err, gorm.ErrDuplicatedKey) || errors.Is(err, gorm.ErrForeignKeyViolated) || errors.Is(err, gorm.ErrCheckConstraintViolated) {
		return apperr.Integrity(err)
	}
	if errors.Is(err, gorm.ErrInvalidData) || errors.Is(err, gorm.ErrInvalidValue) || errors.Is(err, gorm.ErrInvalidValueOfLength) {
		return apperr.DataInvalid(err)
	}
	if errors.Is(err, context.DeadlineExceeded) || errors.Is(err, context.Canceled) {
		return apperr.StorageUnavailable(err)
	}

	// The pure-Go SQLite driver reports constraint and operational faults as
	// plain error strings; match the stable sqlite message prefixes.
	msg := strings.ToLower(err.Error())
	switch {
	case strings.Contains(msg, "unique constraint"),
		strings.Contains(msg, "foreign key constraint"),
		strings.Contains(msg, "check constraint"),
		strings.Contains(msg, "not null constraint"):
		return apperr.Integrity(err)
	case strings.Contains(msg, "datatype mismatch"),
		strings.Contains(msg, "string or blob too big"),
		strings.Contains(msg, "too many"):
		return apperr.DataInvalid(err)
	case strings.Contains(msg, "database is locked"),
		strings.Contains(msg, "unable to open database"),
		strings.Contains(msg, "disk i/o error"),
		strings.Contains(msg, "busy"):
		return apperr.StorageUnavailable(err)
	}
	return apperr.Storage(err)
}
