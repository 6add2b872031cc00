// Package domain defines the entities, state enums and error taxonomy
// shared by every service in the backend.
package domain

import "fmt"

// NotFoundError indicates the referenced entity does not exist.
type NotFoundError struct {
	Entity string
	ID     string
}

func (e *NotFoundError) Error() string {
	return fmt.Sprintf("%s %s not found", e.Entity, e.ID)
}

// ErrNotFound builds a NotFoundError.
func ErrNotFound(entity, id string) error {
	return &NotFoundError{Entity: entity, ID: id}
}

// ValidationError indicates a malformed or missing input field.
type ValidationError struct {
	Field   string
	Message string
}

func (e *ValidationError) Error() string {
	return fmt.Sprintf("validation failed on %s: %s", e.Field, e.Message)
}

// ErrValidation builds a ValidationError.
func ErrValidation(field, message string) error {
	return &ValidationError{Field: field, Message: message}
}

// BusinessRuleError indicates a domain rule rejected the operation.
type BusinessRuleError struct {
	Rule    string
	Message string
}

func (e *BusinessRuleError) Error() string {
	return fmt.Sprintf("business rule %s: %s", e.Rule, e.Message)
}

// ErrBusinessRule builds a BusinessRuleError.
func ErrBusinessRule(rule, message string) error {
	return &BusinessRuleError{Rule: rule, Message: message}
}

// StateTransitionError indicates an illegal FSM edge was requested.
type StateTransitionError struct {
	From string
	To   string
}

func (e *StateTransitionError) Error() string {
	return fmt.Sprintf("invalid state transition: %s -> %s", e.From, e.To)
}

// ErrStateTransition builds a StateTransitionError.
func ErrStateTransition(from, to string) error {
	return &StateTransitionError{From: from, To: to}
}

// UnauthorizedError indicates missing or invalid credentials.
type UnauthorizedError struct {
	Message string
}

func (e *UnauthorizedError) Error() string { return e.Message }

// ErrUnauthorized builds an UnauthorizedError.
func ErrUnauthorized(message string) error {
	return &UnauthorizedError{Message: message}
}

// ForbiddenError indicates the caller lacks permission for the action.
type ForbiddenError struct {
	Message string
}

func (e *ForbiddenError) Error() string { return e.Message }

// ErrForbidden builds a ForbiddenError.
func ErrForbidden(message string) error {
	return &ForbiddenError{Message: message}
}

// ConflictError indicates a duplicate (unique constraint) collision.
type ConflictError struct {
	Message string
}

func (e *ConflictError) Error() string { return e.Message }

// ErrConflict builds a ConflictError.
func ErrConflict(message string) error {
	return &ConflictError{Message: message}
}

// ExternalServiceError indicates an upstream dependency failure.
type ExternalServiceError struct {
	Service string
	Err     error
}

func (e *ExternalServiceError) Error() string {
	return fmt.Sprintf("external service %s: %v", e.Service, e.Err)
}

func (e *ExternalServiceError) Unwrap() error { return e.Err }

// DatabaseError wraps an unexpected SQL failure.
type DatabaseError struct {
	Op  string
	Err error
}

func (e *DatabaseError) Error() string {
	return fmt.Sprintf("database error in %s: %v", e.Op, e.Err)
}

func (e *DatabaseError) Unwrap() error { return e.Err }

// ErrDatabase builds a DatabaseError.
func ErrDatabase(op string, err error) error {
	return &DatabaseError{Op: op, Err: err}
}
