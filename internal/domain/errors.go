package domain

import (
	"errors"
	"fmt"
)

// Error kinds. Match them with errors.Is or the Is* helpers.
var (
	ErrNotFound    = errors.New("not found")
	ErrValidation  = errors.New("validation failed")
	ErrUnavailable = errors.New("unavailable")
)

// NotFoundError names the missing entity, e.g. a catalog index out of range.
type NotFoundError struct {
	Entity string
	ID     string
}

func (e *NotFoundError) Error() string {
	if e.ID == "" {
		return e.Entity + " not found"
	}

	return fmt.Sprintf("%s with id %q not found", e.Entity, e.ID)
}

func (e *NotFoundError) Unwrap() error { return ErrNotFound }

// NewNotFoundError returns a *NotFoundError.
func NewNotFoundError(entity, id string) error {
	return &NotFoundError{Entity: entity, ID: id}
}

// ValidationError rejects caller input. Field is echoed to HTTP clients as
// the key of the error details, so it uses the public parameter name.
type ValidationError struct {
	Field   string
	Message string

	// Value is the rejected input, kept for logs only.
	Value any
}

func (e *ValidationError) Error() string {
	if e.Field == "" {
		return "validation failed: " + e.Message
	}

	return fmt.Sprintf("validation failed for %s: %s", e.Field, e.Message)
}

func (e *ValidationError) Unwrap() error { return ErrValidation }

// NewValidationError returns a *ValidationError.
func NewValidationError(field, message string) error {
	return &ValidationError{Field: field, Message: message}
}

// NewValidationErrorWithValue returns a *ValidationError that records value.
func NewValidationErrorWithValue(field, message string, value any) error {
	return &ValidationError{Field: field, Message: message, Value: value}
}

// StorageUnavailableError is the only failure the daily quote cache knows:
// a Get or Set against the key-value store did not succeed. The service
// recovers from it by serving an unpersisted quote.
type StorageUnavailableError struct {
	Op  string // "get" or "set"
	Key string
	Err error
}

func (e *StorageUnavailableError) Error() string {
	msg := fmt.Sprintf("storage %s %q unavailable", e.Op, e.Key)
	if e.Err != nil {
		msg += ": " + e.Err.Error()
	}

	return msg
}

// Unwrap matches both ErrUnavailable and the cause.
func (e *StorageUnavailableError) Unwrap() []error {
	if e.Err == nil {
		return []error{ErrUnavailable}
	}

	return []error{ErrUnavailable, e.Err}
}

// NewStorageUnavailableError returns a *StorageUnavailableError.
func NewStorageUnavailableError(op, key string, err error) error {
	return &StorageUnavailableError{Op: op, Key: key, Err: err}
}

func IsNotFound(err error) bool    { return errors.Is(err, ErrNotFound) }
func IsValidation(err error) bool  { return errors.Is(err, ErrValidation) }
func IsUnavailable(err error) bool { return errors.Is(err, ErrUnavailable) }

// IsStorageUnavailable reports whether err came from the key-value store.
func IsStorageUnavailable(err error) bool {
	var storageErr *StorageUnavailableError
	return errors.As(err, &storageErr)
}
