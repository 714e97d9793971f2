package ecs

import (
	"errors"
	"fmt"
)

// ErrRequest is wrapped by every RequestError.
var ErrRequest = errors.New("ecs: request failed")

// RequestError reports a non-success HTTP status from the service.
type RequestError struct {
	StatusCode int
	// Status is the status line, e.g. "403 Forbidden".
	Status string
	// APIError is the Error/Message text from the response body, when the
	// body carried one and errors are not hidden.
	APIError string
	// APICode is the matching Error/Code.
	APICode string
}

func (e *RequestError) Error() string {
	msg := fmt.Sprintf("HTTP Response: %s", e.Status)
	if e.APIError != "" {
		msg += " - " + e.APIError
	}
	return msg
}

func (e *RequestError) Unwrap() error { return ErrRequest }
