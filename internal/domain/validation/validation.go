// Package validation defines the field-tagged error reported for
// client-correctable input problems.
package validation

import "github.com/go-faster/errors"

// Error is a client-correctable input failure tied to a named field.
type Error struct {
	Field   string
	Message string
}

// New returns a validation error for field.
func New(field, message string) *Error {
	return &Error{Field: field, Message: message}
}

func (e *Error) Error() string {
	return e.Field + ": " + e.Message
}

// As extracts a validation error from err's chain.
func As(err error) (*Error, bool) {
	var vErr *Error
	if errors.As(err, &vErr) {
		return vErr, true
	}
	return nil, false
}
