package catalog

import (
	"errors"
	"fmt"
)

var (
	// ErrUnsuccessful marks a response whose envelope has success false,
	// no data, or is not JSON at all
	ErrUnsuccessful = errors.New("catalog response unsuccessful")

	// ErrNotFound marks an upstream 404 or an empty detail record
	ErrNotFound = errors.New("catalog item not found")
)

// APIError describes a failed call to the catalog API
type APIError struct {
	Endpoint   string
	Operation  string
	StatusCode int
	Message    string
	Err        error
}

func (e *APIError) Error() string {
	msg := "catalog " + e.Operation + " failed"
	if e.Endpoint != "" {
		msg += " (" + e.Endpoint + ")"
	}
	if e.StatusCode != 0 {
		msg += fmt.Sprintf(": status %d", e.StatusCode)
	}
	if e.Message != "" {
		msg += ": " + e.Message
	}
	if e.Err != nil {
		msg += " - " + e.Err.Error()
	}
	return msg
}

func (e *APIError) Unwrap() error {
	return e.Err
}
