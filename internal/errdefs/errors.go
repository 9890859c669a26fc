// Package errdefs holds the error taxonomy shared by the service and HTTP layers.
package errdefs

import (
	"errors"
	"strings"
)

var (
	ErrValidation  = errors.New("validation error")
	ErrStorage     = errors.New("storage error")
	ErrPersistence = errors.New("persistence error")
	ErrNotFound    = errors.New("not found")
)

// ValidationError lists the input fields that were missing or empty.
type ValidationError struct {
	Missing []string
}

func (e *ValidationError) Error() string {
	return "missing required fields: " + strings.Join(e.Missing, ", ")
}

// Is lets errors.Is(err, ErrValidation) match a *ValidationError.
func (e *ValidationError) Is(target error) bool {
	return target == ErrValidation
}
