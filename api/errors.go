package api

import (
	"errors"
	"fmt"
	"net/http"
)

// Error represents a structured error response from a backend service.
// Callers can use errors.As to extract the structured information:
//
//	var apiErr *api.Error
//	if errors.As(err, &apiErr) {
//	    if apiErr.StatusCode == http.StatusNotFound { ... }
//	}
type Error struct {
	// StatusCode is the HTTP status code of the response.
	StatusCode int `json:"-"`
	// Code is the machine-readable error field from the body, when present.
	Code string `json:"error"`
	// Message is the human-readable description from the server.
	Message string `json:"message"`
	// Details carries any additional explanation from the server.
	Details string `json:"details"`
}

func (e *Error) Error() string {
	if e.Code != "" {
		return fmt.Sprintf("api: %s (%d): %s", e.Code, e.StatusCode, e.Message)
	}
	return fmt.Sprintf("api: status %d: %s", e.StatusCode, e.Message)
}

// IsUnauthorized reports whether err is a 401-class rejection of the
// bearer token.
func IsUnauthorized(err error) bool {
	var apiErr *Error
	return errors.As(err, &apiErr) && apiErr.StatusCode == http.StatusUnauthorized
}

// IsNotFound reports whether err is a 404 from the server.
func IsNotFound(err error) bool {
	var apiErr *Error
	return errors.As(err, &apiErr) && apiErr.StatusCode == http.StatusNotFound
}

// IsBusinessRule reports whether err is a server-side rejection of an
// operation that reached the service but violated a business rule, such as
// accepting an already-accepted delivery. Transport failures and auth
// rejections are excluded.
func IsBusinessRule(err error) bool {
	var apiErr *Error
	if !errors.As(err, &apiErr) {
		return false
	}
	switch apiErr.StatusCode {
	case http.StatusBadRequest, http.StatusForbidden, http.StatusConflict, http.StatusUnprocessableEntity:
		return true
	}
	return false
}

// IsTransport reports whether err is a failure below the API layer: the
// request never reached the service or never returned. Any error that is
// not a structured *Error counts.
func IsTransport(err error) bool {
	var apiErr *Error
	return err != nil && !errors.As(err, &apiErr)
}
