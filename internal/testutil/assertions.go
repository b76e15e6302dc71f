package testutil

import (
	"errors"
	"testing"

	"github.com/shopspring/decimal"

	apperrors "spendsmart/internal/errors"
)

// AssertAppError checks that err is an *AppError with the expected error code
// and returns it for further inspection.
func AssertAppError(t *testing.T, err error, expectedCode string) *apperrors.AppError {
	t.Helper()

	if err == nil {
		t.Fatalf("expected AppError with code %q, got nil", expectedCode)
	}

	var appErr *apperrors.AppError
	if !errors.As(err, &appErr) {
		t.Fatalf("expected *AppError, got %T: %v", err, err)
	}

	if appErr.Code != expectedCode {
		t.Errorf("expected error code %q, got %q (message: %s)", expectedCode, appErr.Code, appErr.Message)
	}
	return appErr
}

// AssertFieldError checks the error code and that field carries a validation message.
func AssertFieldError(t *testing.T, err error, expectedCode, field string) {
	t.Helper()

	appErr := AssertAppError(t, err, expectedCode)
	if _, ok := appErr.Fields[field]; !ok {
		t.Errorf("expected field error for %q, got %v", field, appErr.Fields)
	}
}

// AssertDecimal compares amounts by value, so "150.50" equals "150.5".
func AssertDecimal(t *testing.T, got decimal.Decimal, want string) {
	t.Helper()

	if !got.Equal(Dec(t, want)) {
		t.Errorf("expected %s, got %s", want, got)
	}
}

// AssertNoError fails the test if err is not nil.
func AssertNoError(t *testing.T, err error) {
	t.Helper()

	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
}
