package api

import (
	"errors"
	"fmt"
)

// User-visible messages shown when the backend gives no detail.
const (
	SignupFallbackMessage  = "Signup failed. Please try again."
	LoginFallbackMessage   = "Login failed. Please check your credentials."
	AskFailedMessage       = "Failed to get response from AI"
	ConnectionErrorMessage = "An error occurred. Please check your connection."
)

var (
	ErrMissingToken      = errors.New("api: missing access token")
	ErrBlankMessage      = errors.New("api: blank message")
	ErrMalformedResponse = errors.New("api: malformed response")
)

// ValidationError is a non-OK HTTP status returned by the backend.
type ValidationError struct {
	Op     string
	Status int
	// Detail is the backend "detail" field when it is a string.
	Detail string
}

func (e *ValidationError) Error() string {
	if e.Detail != "" {
		return fmt.Sprintf("%s: status %d: %s", e.Op, e.Status, e.Detail)
	}
	return fmt.Sprintf("%s: status %d", e.Op, e.Status)
}

// Message returns the backend detail or fallback when there is none.
func (e *ValidationError) Message(fallback string) string {
	if e.Detail != "" {
		return e.Detail
	}
	return fallback
}

// NetworkError is a transport failure: the request never got an HTTP
// response (unreachable host, timeout, cancelled context).
type NetworkError struct {
	Op  string
	Err error
}

func (e *NetworkError) Error() string { return fmt.Sprintf("%s: network: %v", e.Op, e.Err) }

func (e *NetworkError) Unwrap() error { return e.Err }

// UserMessage converts any client error to the string shown to the user.
func UserMessage(err error, fallback string) string {
	var verr *ValidationError
	if errors.As(err, &verr) {
		return verr.Message(fallback)
	}
	var nerr *NetworkError
	if errors.As(err, &nerr) {
		return ConnectionErrorMessage
	}
	return fallback
}
