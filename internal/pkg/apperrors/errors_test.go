package apperrors

import (
	"errors"
	"fmt"
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestAppErrorError(t *testing.T) {
	tests := []struct {
		name     string
		appError *AppError
		expected string
	}{
		{
			name: "With Code",
			appError: &AppError{
				Code:    "TEST_CODE",
				Message: "This is a test error",
			},
			expected: "[TEST_CODE] This is a test error",
		},
		{
			name: "Without Code",
			appError: &AppError{
				Message: "This is a test error without code",
			},
			expected: "This is a test error without code",
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			result := tt.appError.Error()
			if result != tt.expected {
				t.Errorf("expected %q, got %q", tt.expected, result)
			}
		})
	}
}

func TestValidationError(t *testing.T) {
	err := NewValidationError("Payment method is required", "Payment reference is required")

	assert.True(t, errors.Is(err, ErrValidation))
	assert.Equal(t, "validation failed: Payment method is required; Payment reference is required", err.Error())

	wrapped := fmt.Errorf("apply: %w", err)
	assert.Equal(t, []string{"Payment method is required", "Payment reference is required"}, Violations(wrapped))
	assert.Nil(t, Violations(errors.New("other")))
}

func TestImmutableInstallmentError(t *testing.T) {
	err := fmt.Errorf("delete: %w", &ImmutableInstallmentError{InstallmentID: "abc", Operation: "delete"})

	assert.True(t, errors.Is(err, ErrImmutableInstallment))
	assert.Contains(t, err.Error(), "cannot delete installment abc")
}

func TestInvariantViolation(t *testing.T) {
	err := &InvariantViolation{Rule: "contiguous-numbers", Detail: "expected 2, found 3"}

	assert.True(t, errors.Is(err, ErrInvariantViolation))
	assert.Equal(t, `invariant "contiguous-numbers" violated: expected 2, found 3`, err.Error())
}

func TestWrapDatabaseError(t *testing.T) {
	cause := errors.New("connection reset")
	err := WrapDatabaseError(cause, "save failed")

	assert.True(t, errors.Is(err, ErrDatabase))
	assert.True(t, errors.Is(err, cause))
	assert.Equal(t, "[DB_ERROR] save failed", err.Error())
}
