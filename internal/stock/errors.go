package stock

import (
	"errors"
	"fmt"
)

// Common ledger errors
var (
	// ErrAlreadyApplied is returned when an invoice already has movements.
	ErrAlreadyApplied = errors.New("invoice already applied to stock")

	// ErrInvalidDirection is returned for an invoice whose direction moves no stock.
	ErrInvalidDirection = errors.New("invoice direction does not move stock")

	// ErrInvalidQuantity is returned for an item whose quantity is not positive.
	ErrInvalidQuantity = errors.New("quantity must be positive")
)

// LedgerError wraps a store failure with the ledger operation that hit it.
// The surrounding transaction has been rolled back when it is returned.
type LedgerError struct {
	// Op is the operation that failed (e.g. "apply", "reverse", "repair").
	Op string

	// Err is the underlying error.
	Err error

	// Details provides additional context about the failure.
	Details string
}

// Error implements the error interface.
func (e *LedgerError) Error() string {
	if e.Details != "" {
		return fmt.Sprintf("stock: %s failed: %s: %v", e.Op, e.Details, e.Err)
	}
	return fmt.Sprintf("stock: %s failed: %v", e.Op, e.Err)
}

// Unwrap returns the underlying error for error unwrapping.
func (e *LedgerError) Unwrap() error {
	return e.Err
}

// Is implements error matching for Go 1.13+ error handling.
func (e *LedgerError) Is(target error) bool {
	return errors.Is(e.Err, target)
}

// NewLedgerError creates a new LedgerError.
func NewLedgerError(op string, err error, details string) *LedgerError {
	return &LedgerError{
		Op:      op,
		Err:     err,
		Details: details,
	}
}

// WrapLedgerError wraps an error as a LedgerError if it isn't already one.
func WrapLedgerError(op string, err error, details string) error {
	if err == nil {
		return nil
	}

	var ledgerErr *LedgerError
	if errors.As(err, &ledgerErr) {
		return err
	}

	return NewLedgerError(op, err, details)
}

// ItemError is an invoice item the ledger skipped. Processing of the other
// items continues.
type ItemError struct {
	Index  int    `json:"index"`
	Name   string `json:"name"`
	Reason string `json:"reason"`
	Err    error  `json:"-"`
}

// Error implements the error interface.
func (e *ItemError) Error() string {
	return fmt.Sprintf("item %d (%q) skipped: %s", e.Index, e.Name, e.Reason)
}

// Unwrap returns the underlying error for error unwrapping.
func (e *ItemError) Unwrap() error {
	return e.Err
}

func newItemError(index int, name string, err error) *ItemError {
	return &ItemError{
		Index:  index,
		Name:   name,
		Reason: err.Error(),
		Err:    err,
	}
}
