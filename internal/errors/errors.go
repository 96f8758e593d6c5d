// Package errors defines the error types shared by the fusion pipeline.
// A ValidationError means a record is skipped; a PersistenceError aborts the
// current fuse and rolls its transaction back.
package errors

import (
	"errors"
	"fmt"
)

// Is and As are re-exported so callers need only one errors import.
var (
	Is = errors.Is
	As = errors.As
)

// Sentinel errors
var (
	// ErrInvalidInput indicates a record failed validation at the normalization boundary
	ErrInvalidInput = errors.New("invalid input")

	// ErrPersistence indicates the persistence gateway failed
	ErrPersistence = errors.New("persistence failure")

	// ErrNotFound indicates a requested row does not exist
	ErrNotFound = errors.New("not found")
)

// ValidationError represents a malformed record.
type ValidationError struct {
	Field   string
	Value   any
	Message string
}

// Error implements the error interface
func (e *ValidationError) Error() string {
	if e.Field != "" {
		return fmt.Sprintf("validation failed for field %s: %s", e.Field, e.Message)
	}
	return fmt.Sprintf("validation failed: %s", e.Message)
}

// Is implements errors.Is support
func (e *ValidationError) Is(target error) bool {
	return target == ErrInvalidInput
}

// NewValidationError creates a new ValidationError
func NewValidationError(field string, value any, message string) *ValidationError {
	return &ValidationError{Field: field, Value: value, Message: message}
}

// PersistenceError wraps a failure reported by a storage backend.
type PersistenceError struct {
	Op    string
	Table string
	Err   error
}

// Error implements the error interface
func (e *PersistenceError) Error() string {
	if e.Table != "" {
		return fmt.Sprintf("persistence %s on %s: %v", e.Op, e.Table, e.Err)
	}
	return fmt.Sprintf("persistence %s: %v", e.Op, e.Err)
}

// Unwrap implements errors.Unwrap
func (e *PersistenceError) Unwrap() error {
	return e.Err
}

// Is implements errors.Is support
func (e *PersistenceError) Is(target error) bool {
	return target == ErrPersistence
}

// NewPersistenceError creates a new PersistenceError. A nil err yields nil.
func NewPersistenceError(op, table string, err error) error {
	if err == nil {
		return nil
	}
	var pe *PersistenceError
	if errors.As(err, &pe) {
		return err
	}
	return &PersistenceError{Op: op, Table: table, Err: err}
}

// NotFoundError reports a missing row.
type NotFoundError struct {
	Table string
	ID    int64
}

// Error implements the error interface
func (e *NotFoundError) Error() string {
	return fmt.Sprintf("%s row %d not found", e.Table, e.ID)
}

// Is implements errors.Is support
func (e *NotFoundError) Is(target error) bool {
	return target == ErrNotFound
}

// NewNotFoundError creates a new NotFoundError
func NewNotFoundError(table string, id int64) *NotFoundError {
	return &NotFoundError{Table: table, ID: id}
}

// IsValidation reports whether err is a validation failure.
func IsValidation(err error) bool {
	return errors.Is(err, ErrInvalidInput)
}

// IsPersistence reports whether err came from the storage backend.
func IsPersistence(err error) bool {
	return errors.Is(err, ErrPersistence)
}

// IsNotFound reports whether err is a not-found error.
func IsNotFound(err error) bool {
	return errors.Is(err, ErrNotFound)
}
