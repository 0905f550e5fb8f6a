/*
errors.go - Centralized error types for the inventory engine

PURPOSE:
  All error types in one place. Services return the structured errors below;
  callers classify them with errors.Is against the sentinels.

ERROR CATEGORIES:
  1. NotFound          - referenced product, category or entry is missing
  2. NegativeInventory - a ledger entry would drive quantity below zero
  3. Immutable         - attempt to change a committed/derived field
  4. Validation        - missing or malformed input, raised before any I/O
  5. Conflict          - unique key already taken (SKU, category name)
  Anything else is a store or transport failure.

USAGE:
  if errors.Is(err, inventory.ErrNegativeInventory) {
      var neg *inventory.NegativeInventoryError
      errors.As(err, &neg)
  }

SEE ALSO:
  - ledger.go: Raises NegativeInventory and Immutable
  - dispatch/dispatcher.go: Maps these to the response envelope
*/
package inventory

import (
	"errors"
	"fmt"
)

// =============================================================================
// SENTINEL ERRORS - Use with errors.Is()
// =============================================================================

var (
	// ErrNotFound is returned when a referenced id does not exist.
	ErrNotFound = errors.New("not found")

	// ErrNegativeInventory is returned when a ledger entry would leave the
	// product with a negative quantity. Nothing was written.
	ErrNegativeInventory = errors.New("transaction would cause negative inventory")

	// ErrImmutable is returned when a change targets a field that cannot be
	// edited, such as a committed entry's quantity or kind.
	ErrImmutable = errors.New("field is immutable")

	// ErrValidation is returned for missing or malformed input.
	ErrValidation = errors.New("validation failed")

	// ErrConflict is returned when a unique key is already in use.
	ErrConflict = errors.New("already exists")
)

// =============================================================================
// STRUCTURED ERRORS - Carry additional context
// =============================================================================

// NotFoundError names the missing entity.
type NotFoundError struct {
	Entity string // "Product", "Category", "Transaction"
	ID     int64
}

func (e *NotFoundError) Error() string {
	return fmt.Sprintf("%s with ID %d not found", e.Entity, e.ID)
}

func (e *NotFoundError) Unwrap() error { return ErrNotFound }

// NegativeInventoryError describes a rejected movement.
type NegativeInventoryError struct {
	ProductID ProductID
	Effect    int64 // signed change that was attempted
	Resulting int64 // quantity the product would have had
}

func (e *NegativeInventoryError) Error() string {
	return fmt.Sprintf("transaction would cause negative inventory: product %d would go from %d to %d",
		e.ProductID, e.Resulting-e.Effect, e.Resulting)
}

func (e *NegativeInventoryError) Unwrap() error { return ErrNegativeInventory }

// ImmutableFieldError names the field a caller tried to change.
type ImmutableFieldError struct {
	Entity string
	Field  string
}

func (e *ImmutableFieldError) Error() string {
	return fmt.Sprintf("%s field %q cannot be modified", e.Entity, e.Field)
}

func (e *ImmutableFieldError) Unwrap() error { return ErrImmutable }

// ValidationError names the offending input field.
type ValidationError struct {
	Field  string
	Reason string
}

func (e *ValidationError) Error() string {
	if e.Field == "" {
		return e.Reason
	}
	return fmt.Sprintf("invalid %s: %s", e.Field, e.Reason)
}

func (e *ValidationError) Unwrap() error { return ErrValidation }

// ConflictError reports a unique-key collision.
type ConflictError struct {
	Entity string
	Field  string
	Value  string
}

func (e *ConflictError) Error() string {
	return fmt.Sprintf("%s with %s %q already exists", e.Entity, e.Field, e.Value)
}

func (e *ConflictError) Unwrap() error { return ErrConflict }

// =============================================================================
// ERROR HELPERS
// =============================================================================

// IsNotFound returns true if the error indicates a missing resource.
func IsNotFound(err error) bool {
	return errors.Is(err, ErrNotFound)
}

// IsClientError returns true if the error is a business rejection or bad
// input rather than a store failure.
func IsClientError(err error) bool {
	return errors.Is(err, ErrNotFound) ||
		errors.Is(err, ErrNegativeInventory) ||
		errors.Is(err, ErrImmutable) ||
		errors.Is(err, ErrValidation) ||
		errors.Is(err, ErrConflict)
}
