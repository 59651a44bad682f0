package api

import (
	"errors"
	"fmt"
	"net/http"
)

// ErrNetworkFailure matches every failed exchange with the backend:
// transport errors and non-2xx responses.
var ErrNetworkFailure = errors.New("network failure")

// ErrInvalidPayload indicates a payload that failed schema or field
// validation, inbound or outbound.
var ErrInvalidPayload = errors.New("invalid payload")

// TransportError indicates the request never produced a usable response:
// dial failure, timeout, or an undecodable body.
type TransportError struct {
	Op  string
	Err error
}

func (e *TransportError) Error() string {
	return fmt.Sprintf("%s: %v", e.Op, e.Err)
}

func (e *TransportError) Unwrap() error { return e.Err }

// Is reports ErrNetworkFailure as a match.
func (e *TransportError) Is(target error) bool { return target == ErrNetworkFailure }

// StatusError indicates the backend answered with a non-2xx status.
// Message carries the server's "error" field when present.
type StatusError struct {
	Op         string
	StatusCode int
	Message    string
}

func (e *StatusError) Error() string {
	if e.Message != "" {
		return fmt.Sprintf("%s: %s (HTTP %d)", e.Op, e.Message, e.StatusCode)
	}
	return fmt.Sprintf("%s: HTTP %d %s", e.Op, e.StatusCode, http.StatusText(e.StatusCode))
}

// Is reports ErrNetworkFailure as a match.
func (e *StatusError) Is(target error) bool { return target == ErrNetworkFailure }

// Temporary reports whether retrying the same request may succeed.
func (e *StatusError) Temporary() bool {
	switch {
	case e.StatusCode == http.StatusRequestTimeout, e.StatusCode == http.StatusTooManyRequests:
		return true
	case e.StatusCode >= 500:
		return true
	}
	return false
}

// PayloadError wraps a validation failure and matches ErrInvalidPayload.
type PayloadError struct {
	What string
	Err  error
}

func (e *PayloadError) Error() string {
	return fmt.Sprintf("invalid %s: %v", e.What, e.Err)
}

func (e *PayloadError) Unwrap() error { return e.Err }

// Is reports ErrInvalidPayload as a match.
func (e *PayloadError) Is(target error) bool { return target == ErrInvalidPayload }

// UserMessage returns the text shown to the learner for err. Server
// provided messages are shown verbatim.
func UserMessage(err error) string {
	var se *StatusError
	if errors.As(err, &se) && se.Message != "" {
		return se.Message
	}
	switch {
	case errors.Is(err, ErrNetworkFailure):
		return "Could not reach the server. Please try again."
	case errors.Is(err, ErrInvalidPayload):
		return "The server sent data this client cannot read."
	}
	return err.Error()
}
