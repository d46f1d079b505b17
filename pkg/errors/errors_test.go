package errors

import (
	"errors"
	"fmt"
	"testing"
)

func TestErrorFormatting(t *testing.T) {
	err := New(ErrorTypeCommit, "batch could not be applied")
	want := "commit error: batch could not be applied"
	if err.Error() != want {
		t.Errorf("Expected %q, got %q", want, err.Error())
	}

	cause := fmt.Errorf("connection refused")
	wrapped := Wrap(ErrorTypeDispatch, "enqueue failed", cause)
	if !errors.Is(wrapped, cause) {
		t.Error("Wrapped error should match its cause with errors.Is")
	}
}

func TestErrorsAs(t *testing.T) {
	var target *Error
	err := fmt.Errorf("outer: %w", New(ErrorTypeStorage, "read failed"))

	if !errors.As(err, &target) {
		t.Fatal("errors.As should find the typed error")
	}
	if target.Type != ErrorTypeStorage {
		t.Errorf("Expected storage type, got %s", target.Type)
	}
}

func TestIsRetryable(t *testing.T) {
	tests := []struct {
		errorType ErrorType
		retryable bool
	}{
		{ErrorTypeCommit, true},
		{ErrorTypeDispatch, true},
		{ErrorTypeStorage, true},
		{ErrorTypeCheckpointCorrupt, false},
		{ErrorTypeConfig, false},
		{ErrorTypeUnknown, false},
	}

	for _, tt := range tests {
		if got := IsRetryable(tt.errorType); got != tt.retryable {
			t.Errorf("IsRetryable(%s) = %v, want %v", tt.errorType, got, tt.retryable)
		}
	}
}
