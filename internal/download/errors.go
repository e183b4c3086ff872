package download

import (
	"errors"
	"fmt"
)

// Common errors returned by the downloader
var (
	ErrHTTPStatus = errors.New("unexpected HTTP status")
	ErrEmptyURL   = errors.New("download URL cannot be empty")
)

// Error describes a download that failed after every attempt
type Error struct {
	URL      string
	Path     string
	Attempts int
	Err      error
}

func (e *Error) Error() string {
	return fmt.Sprintf("download %s failed after %d attempt(s): %v", e.URL, e.Attempts, e.Err)
}

func (e *Error) Unwrap() error {
	return e.Err
}
