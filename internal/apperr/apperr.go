package apperr

import (
	"errors"
	"fmt"
)

// Error taxonomy for the mutation service. Callers match with errors.Is;
// handlers map each sentinel to an HTTP status.
var (
	ErrValidation = errors.New("validation failed")
	ErrNotFound   = errors.New("not found")
	ErrConflict   = errors.New("conflict")
	ErrInternal   = errors.New("internal error")
)

func Validationf(format string, args ...any) error {
	return fmt.Errorf("%s: %w", fmt.Sprintf(format, args...), ErrValidation)
}

func NotFoundf(format string, args ...any) error {
	return fmt.Errorf("%s: %w", fmt.Sprintf(format, args...), ErrNotFound)
}

func Conflictf(format string, args ...any) error {
	return fmt.Errorf("%s: %w", fmt.Sprintf(format, args...), ErrConflict)
}

// Internal wraps a storage/transaction failure, keeping the cause on the
// chain for logging while callers only match ErrInternal.
func Internal(op string, cause error) error {
	return fmt.Errorf("%s: %w: %w", op, ErrInternal, cause)
}

func IsValidation(err error) bool { return errors.Is(err, ErrValidation) }
func IsNotFound(err error) bool   { return errors.Is(err, ErrNotFound) }
func IsConflict(err error) bool   { return errors.Is(err, ErrConflict) }
func IsInternal(err error) bool   { return errors.Is(err, ErrInternal) }
