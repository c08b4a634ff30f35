package scan

import (
	"errors"
	"fmt"
)

// ErrCancelled reports a user-initiated abort. It is not a failure.
var ErrCancelled = errors.New("scan cancelled")

// FailedError wraps the capture mechanism's error.
type FailedError struct {
	Cause error
}

func (e *FailedError) Error() string {
	if e.Cause == nil {
		return "scan failed"
	}
	return "scan failed: " + e.Cause.Error()
}

func (e *FailedError) Unwrap() error { return e.Cause }

type TooManyPagesError struct {
	Limit int
	Got   int
}

func (e *TooManyPagesError) Error() string {
	return fmt.Sprintf("too many pages: %d exceeds limit of %d", e.Got, e.Limit)
}

// PageError reports a page that could not be read during capture.
type PageError struct {
	Name  string
	Cause error
}

func (e *PageError) Error() string {
	return fmt.Sprintf("page %s: %v", e.Name, e.Cause)
}

func (e *PageError) Unwrap() error { return e.Cause }
