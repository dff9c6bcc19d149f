package catalog

import (
	"errors"
	"fmt"
)

var (
	// ErrInvalidProductName is returned when a name cannot become a product:
	// too short or long, no letters, ban-listed, or carrying a tax ID.
	ErrInvalidProductName = errors.New("invalid product name")

	// ErrProductNotFound is returned when a product ID does not exist.
	ErrProductNotFound = errors.New("product not found")

	// ErrDuplicateProduct is returned when a name or code already belongs to
	// another product.
	ErrDuplicateProduct = errors.New("product already exists")
)

// ValidationError tells which check a product name failed
type ValidationError struct {
	Name   string
	Reason string
}

// Error implements the error interface.
func (e *ValidationError) Error() string {
	return fmt.Sprintf("invalid product name %q: %s", e.Name, e.Reason)
}

// Unwrap lets errors.Is match ErrInvalidProductName.
func (e *ValidationError) Unwrap() error {
	return ErrInvalidProductName
}

func newValidationError(name, reason string) *ValidationError {
	return &ValidationError{Name: name, Reason: reason}
}
