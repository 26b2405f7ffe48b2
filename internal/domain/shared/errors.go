package shared

import "errors"

var ErrInvalidTransactionType = errors.New("invalid transaction type")

// ValidationError indicates malformed or out-of-range input, rejected before
// any mutation takes place.
type ValidationError struct {
	Field  string
	Reason string
}

func (e ValidationError) Error() string {
	return "validation failed on " + e.Field + ": " + e.Reason
}

// NewValidationError builds a ValidationError for the given field
func NewValidationError(field, reason string) ValidationError {
	return ValidationError{Field: field, Reason: reason}
}

// IsValidation reports whether err is (or wraps) a ValidationError
func IsValidation(err error) bool {
	var ve ValidationError
	return errors.As(err, &ve)
}
