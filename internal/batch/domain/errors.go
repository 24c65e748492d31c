package domain

import (
	"errors"
	"fmt"
)

var (
	// ErrJobNotFound: no batch job with the given id.
	ErrJobNotFound = errors.New("batch job not found")

	// ErrAuthExpired: the provider rejected the access token.
	ErrAuthExpired = errors.New("provider credential expired")

	// ErrRequiresReauth: refresh already attempted, the user must
	// re-authorize.
	ErrRequiresReauth = errors.New("user must re-authenticate")

	// ErrLabelExists: the provider reports the label name is taken.
	ErrLabelExists = errors.New("label already exists")
)

// ValidationError reports a rejected request parameter.
type ValidationError struct {
	Field   string
	Message string
}

func (e *ValidationError) Error() string {
	return fmt.Sprintf("invalid %s: %s", e.Field, e.Message)
}

func NewValidationError(field, message string) *ValidationError {
	return &ValidationError{Field: field, Message: message}
}
