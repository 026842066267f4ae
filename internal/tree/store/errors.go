package store

import (
	"errors"

	"github.com/lib/pq"

	"atatek/pkg/platform/sentinel"
)

// ErrNotFound is returned when a node does not exist.
var ErrNotFound = sentinel.ErrNotFound

const (
	pqUniqueViolation     = "23505"
	pqForeignKeyViolation = "23503"
	pqCheckViolation      = "23514"
)

// translate maps constraint violations onto infrastructure sentinels.
func translate(err error) error {
	var pqErr *pq.Error
	if !errors.As(err, &pqErr) {
		return err
	}
	switch pqErr.Code {
	case pqUniqueViolation:
		return errors.Join(sentinel.ErrConflict, err)
	case pqForeignKeyViolation, pqCheckViolation:
		return errors.Join(sentinel.ErrInvalidState, err)
	}
	return err
}
