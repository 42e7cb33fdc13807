package service

import (
	"errors"
	"fmt"
)

// Standard error categories. Typed errors below unwrap to one of these so
// callers can match with errors.Is without inspecting messages.
var (
	ErrNotFound      = errors.New("not found")
	ErrAlreadyExists = errors.New("already exists")
	ErrInvalidInput  = errors.New("invalid input")
	ErrConflict      = errors.New("conflict")
)

// NotFoundError reports a missing resource.
type NotFoundError struct {
	Resource string
	ID       string
}

// NewNotFoundError constructs a NotFoundError.
func NewNotFoundError(resource, id string) *NotFoundError {
	return &NotFoundError{Resource: resource, ID: id}
}

func (e *NotFoundError) Error() string {
	if e.ID == "" {
		return e.Resource + " not found"
	}
	return fmt.Sprintf("%s %q not found", e.Resource, e.ID)
}

func (e *NotFoundError) Unwrap() error { return ErrNotFound }

// ValidationError reports malformed input for a single field.
type ValidationError struct {
	Field   string
	Message string
}

// NewValidationError constructs a ValidationError.
func NewValidationError(field, message string) *ValidationError {
	return &ValidationError{Field: field, Message: message}
}

func (e *ValidationError) Error() string {
	if e.Field == "" {
		return e.Message
	}
	return e.Field + ": " + e.Message
}

func (e *ValidationError) Unwrap() error { return ErrInvalidInput }

// ConflictError reports a business rule violation against existing state.
type ConflictError struct {
	Resource string
	ID       string
	Reason   string
}

// NewConflictError constructs a ConflictError.
func NewConflictError(resource, id, reason string) *ConflictError {
	return &ConflictError{Resource: resource, ID: id, Reason: reason}
}

func (e *ConflictError) Error() string {
	if e.ID == "" {
		return fmt.Sprintf("%s conflict: %s", e.Resource, e.Reason)
	}
	return fmt.Sprintf("%s %q conflict: %s", e.Resource, e.ID, e.Reason)
}

func (e *ConflictError) Unwrap() error { return ErrConflict }

// CooldownError is a conflict raised while a resource is still inside a
// waiting period measured in whole days.
type CooldownError struct {
	Resource      string
	ID            string
	ElapsedDays   int
	RemainingDays int
}

func (e *CooldownError) Error() string {
	return fmt.Sprintf(
		"cannot delete items completed less than %d days ago: this item was completed %d day(s) ago, wait %d more day(s)",
		e.ElapsedDays+e.RemainingDays, e.ElapsedDays, e.RemainingDays,
	)
}

func (e *CooldownError) Unwrap() error { return ErrConflict }

// ServiceError annotates an error with the component and operation that
// produced it. The wrapped error stays reachable through errors.Is/As.
type ServiceError struct {
	Service string
	Op      string
	Err     error
}

// WrapServiceError wraps err, returning nil when err is nil.
func WrapServiceError(service, op string, err error) error {
	if err == nil {
		return nil
	}
	return &ServiceError{Service: service, Op: op, Err: err}
}

func (e *ServiceError) Error() string {
	return fmt.Sprintf("%s.%s: %v", e.Service, e.Op, e.Err)
}

func (e *ServiceError) Unwrap() error { return e.Err }

// IsNotFound reports whether err is a not-found error.
func IsNotFound(err error) bool { return errors.Is(err, ErrNotFound) }

// IsValidationError reports whether err is an input validation error.
func IsValidationError(err error) bool { return errors.Is(err, ErrInvalidInput) }

// IsConflict reports whether err is a conflict or duplicate error.
func IsConflict(err error) bool {
	return errors.Is(err, ErrConflict) || errors.Is(err, ErrAlreadyExists)
}
