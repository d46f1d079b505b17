package errors

import "fmt"

// ErrorType represents different types of errors that can occur
type ErrorType string

const (
	// ErrorTypeCommit means a batch could not be durably applied
	ErrorTypeCommit ErrorType = "commit"
	// ErrorTypeDispatch means a batch could not be handed to the worker queue
	ErrorTypeDispatch ErrorType = "dispatch"
	// ErrorTypeCheckpointCorrupt means a stored checkpoint was unparseable
	ErrorTypeCheckpointCorrupt ErrorType = "checkpoint_corrupt"
	// ErrorTypeStorage means the record store could not be read
	ErrorTypeStorage ErrorType = "storage"
	// ErrorTypeConfig means the configuration is invalid
	ErrorTypeConfig  ErrorType = "config"
	ErrorTypeUnknown ErrorType = "unknown"
)

// Error represents a batch processing error with type information
type Error struct {
	Type    ErrorType
	Message string
	Err     error
}

func (e *Error) Error() string {
	if e.Err != nil {
		return fmt.Sprintf("%s error: %s: %v", e.Type, e.Message, e.Err)
	}
	return fmt.Sprintf("%s error: %s", e.Type, e.Message)
}

// Unwrap returns the underlying cause, if any
func (e *Error) Unwrap() error {
	return e.Err
}

// New creates a typed error without an underlying cause
func New(errorType ErrorType, message string) *Error {
	return &Error{Type: errorType, Message: message}
}

// Wrap creates a typed error around an underlying cause
func Wrap(errorType ErrorType, message string, err error) *Error {
	return &Error{Type: errorType, Message: message, Err: err}
}

// IsRetryable checks if an error type should be retried
func IsRetryable(errorType ErrorType) bool {
	switch errorType {
	case ErrorTypeCommit, ErrorTypeDispatch, ErrorTypeStorage:
		return true
	case ErrorTypeCheckpointCorrupt, ErrorTypeConfig:
		return false
	default:
		return false
	}
}
