package domain

import "errors"

// Common domain errors used across the application.
var (
	// ErrValidation is returned when a request or entity fails validation.
	// This is usually wrapped with a more specific message.
	ErrValidation = errors.New("validation failed")

	// ErrEmptyPrompt is returned when a text-to-3D prompt is blank.
	ErrEmptyPrompt = errors.New("prompt cannot be empty")

	// ErrInvalidCount is returned when the requested variant count is out of range.
	ErrInvalidCount = errors.New("invalid variant count")

	// ErrJobNotFound is returned when no job exists with the given ID.
	ErrJobNotFound = errors.New("job not found")

	// ErrResultNotFound is returned when a job has no result with the given asset ID.
	ErrResultNotFound = errors.New("result not found")

	// ErrNoModelURL is returned when a result has no model to download.
	ErrNoModelURL = errors.New("result has no model URL")
)
