package apperr

import (
	"errors"
	"fmt"
	"net/http"
)

// Category classifies a failure by the subsystem it surfaced from, not by the
// low-level error type that caused it.
type Category string

const (
	CategoryAuth    Category = "AUTH"
	CategoryBook    Category = "BOOK"
	CategorySearch  Category = "SEARCH"
	CategoryAPI     Category = "API"     // LLM provider or other third-party API
	CategoryData    Category = "DATA"    // store / serialization
	CategoryNetwork Category = "NETWORK" // outbound HTTP
	CategoryUnknown Category = "UNKNOWN"
)

// Error is a categorized error with a human-readable message. The wrapped
// cause is kept for logging but never shown to the client.
type Error struct {
	Category Category
	Message  string
	Err      error
}

func (e *Error) Error() string {
	if e.Err != nil {
		return fmt.Sprintf("%s: %s: %v", e.Category, e.Message, e.Err)
	}
	return fmt.Sprintf("%s: %s", e.Category, e.Message)
}

func (e *Error) Unwrap() error {
	return e.Err
}

// New creates a categorized error without an underlying cause.
func New(cat Category, message string) *Error {
	return &Error{Category: cat, Message: message}
}

// Wrap recategorizes a low-level error into the taxonomy.
func Wrap(cat Category, message string, err error) *Error {
	return &Error{Category: cat, Message: message, Err: err}
}

// CategoryOf extracts the category from err, or CategoryUnknown when err is
// not part of the taxonomy.
func CategoryOf(err error) Category {
	var e *Error
	if errors.As(err, &e) {
		return e.Category
	}
	return CategoryUnknown
}

// MessageOf returns the human-readable message for err, suitable for a JSON
// error body.
func MessageOf(err error) string {
	var e *Error
	if errors.As(err, &e) {
		return e.Message
	}
	return "internal server error"
}

// HTTPStatus maps an error category to the fixed status code the route
// handlers respond with.
func HTTPStatus(err error) int {
	switch CategoryOf(err) {
	case CategoryAuth:
		return http.StatusUnauthorized
	case CategoryBook:
		return http.StatusNotFound
	default:
		return http.StatusInternalServerError
	}
}
