// Package errs carries the API error taxonomy. Services return these; the
// handler layer maps them to HTTP statuses and a JSON {"error": ...} body.
package errs

import (
	"errors"
	"fmt"
	"net/http"
)

type APIError struct {
	Status  int
	Message string
	Err     error
}

func (e *APIError) Error() string {
	if e.Err != nil {
		return fmt.Sprintf("%s: %v", e.Message, e.Err)
	}
	return e.Message
}

func (e *APIError) Unwrap() error { return e.Err }

func Unauthorized(msg string) *APIError {
	return &APIError{Status: http.StatusUnauthorized, Message: msg}
}

func BadRequest(msg string) *APIError {
	return &APIError{Status: http.StatusBadRequest, Message: msg}
}

func Forbidden(msg string) *APIError {
	return &APIError{Status: http.StatusForbidden, Message: msg}
}

func NotFound(msg string) *APIError {
	return &APIError{Status: http.StatusNotFound, Message: msg}
}

func TooManyRequests(msg string) *APIError {
	return &APIError{Status: http.StatusTooManyRequests, Message: msg}
}

// Upstream reports a failure from the generative-model provider, preserving
// the provider's status code and response body in the message.
func Upstream(providerStatus int, body string) *APIError {
	return &APIError{
		Status:  http.StatusInternalServerError,
		Message: fmt.Sprintf("Gemini API error: %d %s", providerStatus, body),
	}
}

func Internal(msg string, err error) *APIError {
	return &APIError{Status: http.StatusInternalServerError, Message: msg, Err: err}
}

// StatusOf resolves the HTTP status for any error. Unclassified errors are
// internal failures.
func StatusOf(err error) int {
	var ae *APIError
	if errors.As(err, &ae) {
		return ae.Status
	}
	return http.StatusInternalServerError
}

// MessageOf resolves the user-visible message for any error.
func MessageOf(err error) string {
	var ae *APIError
	if errors.As(err, &ae) {
		return ae.Message
	}
	if err != nil {
		return err.Error()
	}
	return "Internal Server Error"
}
