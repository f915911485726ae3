package common

import (
	"context"
	"errors"
	"fmt"
	"net/http"
)

// StatusError is a non-200 answer from an HTTP collaborator.
type StatusError struct {
	Provider string
	Code     int
	Message  string
}

func (e *StatusError) Error() string {
	return fmt.Sprintf("%s error (status %d): %s", e.Provider, e.Code, e.Message)
}

// RetryableHTTP reports whether a failed call is worth repeating: throttling,
// server errors and transport failures are, client errors and cancellation are not.
func RetryableHTTP(err error) bool {
	if errors.Is(err, context.Canceled) || errors.Is(err, context.DeadlineExceeded) {
		return false
	}
	var se *StatusError
	if errors.As(err, &se) {
		return se.Code == http.StatusTooManyRequests || se.Code >= 500
	}
	return true
}

// ClassifyHTTPError maps the final error of a call onto ErrInvalidInput,
// ErrNotFound or ErrUnavailable. Context errors pass through unchanged.
func ClassifyHTTPError(ctx context.Context, provider string, err error) error {
	if ctxErr := ctx.Err(); ctxErr != nil {
		return fmt.Errorf("%s: %w", provider, ctxErr)
	}
	var se *StatusError
	if errors.As(err, &se) {
		switch se.Code {
		case http.StatusBadRequest, http.StatusRequestEntityTooLarge, http.StatusUnsupportedMediaType, http.StatusUnprocessableEntity:
			return fmt.Errorf("%w: %v", ErrInvalidInput, err)
		case http.StatusNotFound:
			return fmt.Errorf("%w: %v", ErrNotFound, err)
		}
	}
	return fmt.Errorf("%w: %v", ErrUnavailable, err)
}
