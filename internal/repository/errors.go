package repository

import (
	"errors"

	"github.com/lib/pq"
	"github.com/yourorg/vendorhub/internal/domain"
)

const (
	uniqueViolation     = "23505"
	foreignKeyViolation = "23503"
)

// translateErr maps driver-level failures onto the domain error taxonomy.
// Unique-constraint violations (duplicate SKU within a tenant, order-number
// collision) and foreign-key violations (deleting a product that order
// items still reference) become ErrConflict; everything else passes
// through.
func translateErr(err error) error {
	if err == nil {
		return nil
	}
	var pqErr *pq.Error
	if errors.As(err, &pqErr) {
		switch pqErr.Code {
		case uniqueViolation, foreignKeyViolation:
			return domain.ErrConflict
		}
	}
	return err
}

// IsUniqueViolation reports whether err is a unique-constraint failure.
func IsUniqueViolation(err error) bool {
	var pqErr *pq.Error
	return errors.As(err, &pqErr) && pqErr.Code == uniqueViolation
}
