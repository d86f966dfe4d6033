package errors

import (
	"errors"
	"fmt"
	"net/http"
	"strings"
)

// Type categorizes a domain error and determines its HTTP status.
type Type string

const (
	// TypeValidation means a required field is missing or malformed.
	TypeValidation Type = "validation"
	// TypeReference means a referenced entity id does not resolve.
	TypeReference Type = "reference"
	// TypeNotFound means the requested entity does not exist.
	TypeNotFound Type = "not_found"
	// TypeAuth means the bearer token is absent or invalid.
	TypeAuth Type = "auth"
	// TypeAuthorization means the requester is authenticated but not permitted.
	TypeAuthorization Type = "authorization"
)

// Error is the domain error type. The core never recovers from these;
// they propagate to the HTTP layer which maps them to a status code.
type Error struct {
	Type    Type
	Message string
	// Violations lists every schema violation found, not just the first.
	Violations []string
	Err        error
}

func (e *Error) Error() string {
	if e.Err != nil {
		return fmt.Sprintf("[%s] %s: %v", e.Type, e.Message, e.Err)
	}
	return fmt.Sprintf("[%s] %s", e.Type, e.Message)
}

func (e *Error) Unwrap() error {
	return e.Err
}

// NewValidation builds a validation error from one or more violations.
func NewValidation(violations ...string) *Error {
	return &Error{
		Type:       TypeValidation,
		Message:    strings.Join(violations, "; "),
		Violations: violations,
	}
}

// NewReference reports an unresolvable entity reference.
func NewReference(kind, id string) *Error {
	return &Error{
		Type:    TypeReference,
		Message: fmt.Sprintf("referenced %s %s does not exist", kind, id),
	}
}

// NewNotFound reports a missing entity.
func NewNotFound(kind, id string) *Error {
	return &Error{
		Type:    TypeNotFound,
		Message: fmt.Sprintf("%s %s not found", kind, id),
	}
}

// NewAuth reports an invalid or absent bearer token.
func NewAuth(message string, err error) *Error {
	return &Error{Type: TypeAuth, Message: message, Err: err}
}

// NewAuthorization reports an authenticated but unpermitted request.
func NewAuthorization(message string) *Error {
	return &Error{Type: TypeAuthorization, Message: message}
}

// IsType reports whether err (or anything it wraps) is a domain error
// of the given type.
func IsType(err error, t Type) bool {
	var de *Error
	if errors.As(err, &de) {
		return de.Type == t
	}
	return false
}

// HTTPStatus maps a domain error to its transport status code.
// Unknown errors are treated as internal.
func HTTPStatus(err error) int {
	var de *Error
	if !errors.As(err, &de) {
		return http.StatusInternalServerError
	}
	switch de.Type {
	case TypeValidation, TypeReference:
		return http.StatusBadRequest
	case TypeNotFound:
		return http.StatusNotFound
	case TypeAuth, TypeAuthorization:
		return http.StatusForbidden
	default:
		return http.StatusInternalServerError
	}
}
