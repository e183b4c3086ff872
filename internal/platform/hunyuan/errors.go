package hunyuan

import "errors"

// Common errors returned by the client
var (
	// ErrInvalidConfig is returned when the client configuration is unusable
	ErrInvalidConfig = errors.New("invalid hunyuan client configuration")

	// ErrUnauthorized is returned when the session cookies are rejected
	ErrUnauthorized = errors.New("hunyuan session rejected")

	// ErrHTTPStatus is returned for any other non-2xx response
	ErrHTTPStatus = errors.New("unexpected HTTP status from hunyuan")
)
