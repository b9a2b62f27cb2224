package domain

import (
	"errors"
	"fmt"
)

// Error kinds surfaced to API callers. Handlers map these to HTTP statuses;
// everything else is treated as an internal error.
var (
	ErrUnauthenticated = errors.New("unauthenticated")
	ErrForbidden       = errors.New("forbidden")

	// ErrNotFound covers both genuinely absent rows and rows that exist in
	// another tenant. The two cases are deliberately indistinguishable so a
	// caller cannot probe for cross-tenant existence.
	ErrNotFound = errors.New("not found")

	// ErrConflict signals a unique-constraint violation, e.g. a duplicate SKU
	// within a tenant or an order-number collision.
	ErrConflict = errors.New("conflict")
)

// ValidationError reports rejected input with a caller-facing message.
type ValidationError struct {
	Msg string
}

func (e *ValidationError) Error() string {
	return e.Msg
}

// Validationf builds a ValidationError from a format string.
func Validationf(format string, args ...any) error {
	return &ValidationError{Msg: fmt.Sprintf(format, args...)}
}

// IsValidation reports whether err is (or wraps) a ValidationError.
func IsValidation(err error) bool {
	var ve *ValidationError
	return errors.As(err, &ve)
}
