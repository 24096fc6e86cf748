package postgres

import (
	"errors"

	"github.com/lib/pq"
)

// pq error code for unique_violation; the constraint is the authoritative
// guard for every uniqueness invariant, application pre-checks are only an
// early exit.
const uniqueViolation = "23505"

// isUniqueViolation reports whether err is a storage-level uniqueness
// conflict.
func isUniqueViolation(err error) bool {
	var pqErr *pq.Error
	return errors.As(err, &pqErr) && pqErr.Code == uniqueViolation
}
