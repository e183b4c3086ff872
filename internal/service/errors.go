package service

import "fmt"

// ResultError describes a failed result operation. Domain errors stay
// reachable through Unwrap so callers can use errors.Is.
type ResultError struct {
	Operation string
	AssetID   string
	Message   string
	Err       error
}

// Error implements the error interface for ResultError.
func (e *ResultError) Error() string {
	if e.Err != nil {
		return fmt.Sprintf("result %s of %s failed: %s: %v", e.Operation, e.AssetID, e.Message, e.Err)
	}
	return fmt.Sprintf("result %s of %s failed: %s", e.Operation, e.AssetID, e.Message)
}

// Unwrap returns the wrapped error to support errors.Is/errors.As.
func (e *ResultError) Unwrap() error {
	return e.Err
}

// NewResultError creates a new ResultError.
func NewResultError(operation, assetID, message string, err error) *ResultError {
	return &ResultError{
		Operation: operation,
		AssetID:   assetID,
		Message:   message,
		Err:       err,
	}
}
