package generation

import "errors"

// Common errors returned by the generation package
var (
	// ErrSubmitFailed is returned when the remote service rejects a request
	ErrSubmitFailed = errors.New("failed to submit generation request")

	// ErrPollFailed is returned when a job's status cannot be fetched
	ErrPollFailed = errors.New("failed to poll generation status")

	// ErrInvalidResponse is returned when the remote response cannot be parsed
	ErrInvalidResponse = errors.New("invalid response from generation service")

	// ErrDispatcherClosed is returned by Enqueue after Close
	ErrDispatcherClosed = errors.New("dispatcher is closed")
)
