package model

import (
	"errors"
	"fmt"
)

// Error kinds. Every user-visible failure of the engine wraps one of these.
var (
	ErrNotFound      = errors.New("not found")
	ErrConflict      = errors.New("conflict")
	ErrLowConfidence = errors.New("low confidence")
	ErrValidation    = errors.New("validation failed")
)

// NotFoundError reports an unknown invoice, transaction or reconciliation.
type NotFoundError struct {
	Entity string
	ID     int64
}

func (e *NotFoundError) Error() string {
	return fmt.Sprintf("%s %d not found", e.Entity, e.ID)
}

func (e *NotFoundError) Unwrap() error { return ErrNotFound }

// NewNotFound creates a NotFoundError.
func NewNotFound(entity string, id int64) error {
	return &NotFoundError{Entity: entity, ID: id}
}

// ConflictError reports an entity that is already reconciled, including
// the case where a concurrent confirm claimed it first.
type ConflictError struct {
	Entity string
	ID     int64
	Reason string
}

func (e *ConflictError) Error() string {
	if e.Reason == "" {
		return fmt.Sprintf("%s %d is already reconciled", e.Entity, e.ID)
	}
	return fmt.Sprintf("%s %d: %s", e.Entity, e.ID, e.Reason)
}

func (e *ConflictError) Unwrap() error { return ErrConflict }

// NewConflict creates a ConflictError with the default reason.
func NewConflict(entity string, id int64) error {
	return &ConflictError{Entity: entity, ID: id}
}

// LowConfidenceError is returned when a manual confirm falls below the
// review threshold and no override was requested.
type LowConfidenceError struct {
	InvoiceID     int64
	TransactionID int64
	Confidence    float64
	Threshold     float64
}

func (e *LowConfidenceError) Error() string {
	return fmt.Sprintf("confidence %.2f for invoice %d / transaction %d is below %.2f; override required",
		e.Confidence, e.InvoiceID, e.TransactionID, e.Threshold)
}

func (e *LowConfidenceError) Unwrap() error { return ErrLowConfidence }

// ValidationError reports an entity missing a field the matcher needs.
type ValidationError struct {
	Entity string
	ID     int64
	Field  string
}

func (e *ValidationError) Error() string {
	return fmt.Sprintf("%s %d: missing or invalid %s", e.Entity, e.ID, e.Field)
}

func (e *ValidationError) Unwrap() error { return ErrValidation }
