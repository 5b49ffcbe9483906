// Package errors provides utilities for categorizing and handling errors in the validation engine.
package errors

import (
	"context"
	"errors"
)

// IsRetryableError determines if an error is transient and the operation should be retried.
// Only storage unavailability qualifies, consensus outcomes never do.
func IsRetryableError(err error) bool {
	if err == nil {
		return false
	}

	if errors.Is(err, context.Canceled) || errors.Is(err, context.DeadlineExceeded) {
		return false
	}

	for e := err; e != nil; e = errors.Unwrap(e) {
		if tErr, ok := e.(*Error); ok && tErr.Code() == ERR_STORAGE_UNAVAILABLE {
			return true
		}
	}

	return false
}

// IsContextError determines if an error is related to context cancellation or deadline.
func IsContextError(err error) bool {
	if err == nil {
		return false
	}

	if errors.Is(err, context.Canceled) || errors.Is(err, context.DeadlineExceeded) {
		return true
	}

	var tErr *Error
	if As(err, &tErr) {
		if tErr.Code() == ERR_CONTEXT_CANCELED {
			return true
		}
	}

	return false
}
