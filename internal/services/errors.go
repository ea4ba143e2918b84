package services

import (
	"context"
	"errors"
	"fmt"

	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgconn"
)

type Kind string

const (
	KindConflict   Kind = "conflict"
	KindNotFound   Kind = "not_found"
	KindValidation Kind = "validation"
	KindState      Kind = "state"
	KindForbidden  Kind = "forbidden"
	KindAuth       Kind = "unauthorized"
	KindTransient  Kind = "transient"
)

// DomainError is a recoverable rejection carrying a human-readable reason.
type DomainError struct {
	Kind    Kind   `json:"-"`
	Code    string `json:"code"`
	Message string `json:"message"`
}

func (e *DomainError) Error() string { return fmt.Sprintf("%s: %s", e.Code, e.Message) }

func ErrConflict(msg string) *DomainError {
	return &DomainError{Kind: KindConflict, Code: "CONFLICT", Message: msg}
}
func ErrNotFound(msg string) *DomainError {
	return &DomainError{Kind: KindNotFound, Code: "NOT_FOUND", Message: msg}
}
func ErrValidation(msg string) *DomainError {
	return &DomainError{Kind: KindValidation, Code: "VALIDATION_ERROR", Message: msg}
}
func ErrState(msg string) *DomainError {
	return &DomainError{Kind: KindState, Code: "STATE_ERROR", Message: msg}
}
func ErrForbidden(msg string) *DomainError {
	return &DomainError{Kind: KindForbidden, Code: "FORBIDDEN", Message: msg}
}
func ErrTransient(msg string) *DomainError {
	return &DomainError{Kind: KindTransient, Code: "TRANSIENT_STORE_ERROR", Message: msg}
}

func ErrNoScheduleAssigned() *DomainError {
	return &DomainError{Kind: KindValidation, Code: "NO_SCHEDULE_ASSIGNED",
		Message: "you have no schedule assigned at this store today"}
}

func ErrNoteRequired(msg string) *DomainError {
	return &DomainError{Kind: KindValidation, Code: "NOTE_REQUIRED", Message: msg}
}

func ErrAlreadyClosed() *DomainError {
	return &DomainError{Kind: KindState, Code: "ALREADY_CLOSED", Message: "shift is already closed"}
}

func ErrShiftClosed() *DomainError {
	return &DomainError{Kind: KindState, Code: "SHIFT_CLOSED",
		Message: "cash movements can only be added to an opened shift"}
}

func ErrNotOwner(msg string) *DomainError {
	return &DomainError{Kind: KindForbidden, Code: "NOT_OWNER", Message: msg}
}

func ErrInvalidCredentials() *DomainError {
	return &DomainError{Kind: KindAuth, Code: "INVALID_CREDENTIALS", Message: "invalid email or password"}
}

func ErrNotPending() *DomainError {
	return &DomainError{Kind: KindState, Code: "NOT_PENDING", Message: "request is no longer pending"}
}

// IsKind reports whether err is a DomainError of the given kind.
func IsKind(err error, kind Kind) bool {
	var de *DomainError
	return errors.As(err, &de) && de.Kind == kind
}

// classifyStoreError turns driver failures into domain errors where they have
// a domain meaning and leaves everything else untouched.
func classifyStoreError(err error, conflictMsg string) error {
	if err == nil {
		return nil
	}
	var de *DomainError
	if errors.As(err, &de) {
		return err
	}
	if errors.Is(err, pgx.ErrNoRows) {
		return ErrNotFound("record not found")
	}
	if errors.Is(err, context.DeadlineExceeded) {
		return ErrTransient("the store did not respond in time, please retry")
	}
	var pgErr *pgconn.PgError
	if errors.As(err, &pgErr) {
		switch pgErr.Code {
		case "23505", "23P01":
			return ErrConflict(conflictMsg)
		case "40001", "40P01", "55P03":
			return ErrTransient("the record is busy, please retry")
		}
	}
	return err
}

func isNoRows(err error) bool {
	return errors.Is(err, pgx.ErrNoRows)
}
