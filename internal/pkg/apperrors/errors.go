package apperrors

import (
	"errors"
	"fmt"
	"strings"
)

var (
	ErrNotFound = errors.New("resource not found")

	ErrInvalidArgument = errors.New("invalid argument")

	ErrValidation = errors.New("validation failed")

	ErrImmutableInstallment = errors.New("installment is immutable")

	ErrInvariantViolation = errors.New("schedule invariant violated")

	ErrConcurrencyConflict = errors.New("concurrent modification")

	ErrLoanClosed = errors.New("loan is not open for schedule changes")

	ErrDatabase = errors.New("database error")

	ErrInternalServer = errors.New("internal server error")

	ErrUnauthorized = errors.New("unauthorized")
)

// ValidationError carries every violation found in a request, never just the first.
type ValidationError struct {
	Violations []string
}

func (e *ValidationError) Error() string {
	switch len(e.Violations) {
	case 0:
		return "validation failed"
	case 1:
		return fmt.Sprintf("validation failed: %s", e.Violations[0])
	}
	return fmt.Sprintf("validation failed: %s", strings.Join(e.Violations, "; "))
}

func (e *ValidationError) Unwrap() error {
	return ErrValidation
}

func NewValidationError(violations ...string) error {
	return &ValidationError{Violations: violations}
}

// ImmutableInstallmentError is returned when a caller targets a PAID installment.
type ImmutableInstallmentError struct {
	InstallmentID string
	Operation     string
}

func (e *ImmutableInstallmentError) Error() string {
	return fmt.Sprintf("cannot %s installment %s: installment is already paid", e.Operation, e.InstallmentID)
}

func (e *ImmutableInstallmentError) Unwrap() error {
	return ErrImmutableInstallment
}

// InvariantViolation means the engine computed a schedule that breaks a
// post-condition. It is an engine bug, not bad input.
type InvariantViolation struct {
	Rule   string
	Detail string
}

func (e *InvariantViolation) Error() string {
	return fmt.Sprintf("invariant %q violated: %s", e.Rule, e.Detail)
}

func (e *InvariantViolation) Unwrap() error {
	return ErrInvariantViolation
}

type AppError struct {
	Code    string
	Message string
	Cause   error
}

func (e *AppError) Error() string {
	if e.Code != "" {
		return fmt.Sprintf("[%s] %s", e.Code, e.Message)
	}
	return e.Message
}

func (e *AppError) Unwrap() error {
	return e.Cause
}

func WrapDatabaseError(cause error, message string) error {
	return &AppError{
		Code:    "DB_ERROR",
		Message: message,
		Cause:   fmt.Errorf("%w: %w", ErrDatabase, cause),
	}
}

// Violations extracts the violation list from err, or nil if err is not a ValidationError.
func Violations(err error) []string {
	var ve *ValidationError
	if errors.As(err, &ve) {
		return ve.Violations
	}
	return nil
}
