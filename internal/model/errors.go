package model

import (
	"errors"
	"fmt"
)

var (
	ErrItemNotFound      = errors.New("inventory item not found")
	ErrDuplicateItem     = errors.New("inventory item already exists")
	ErrInsufficientStock = errors.New("insufficient stock")
	ErrCorruptData       = errors.New("stored inventory data is corrupt")
	ErrDuplicateChange   = errors.New("stock change already applied")
)

// ValidationError reports a field that was rejected at the store boundary.
type ValidationError struct {
	Field  string
	Reason string
}

func (e *ValidationError) Error() string {
	return fmt.Sprintf("invalid %s: %s", e.Field, e.Reason)
}

// IsValidation reports whether err wraps a *ValidationError.
func IsValidation(err error) bool {
	var ve *ValidationError
	return errors.As(err, &ve)
}
