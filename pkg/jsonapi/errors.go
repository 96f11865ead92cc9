package jsonapi

import (
	"fmt"
	"strconv"
)

// NewError creates an Error with the given status, code, and title.
func NewError(status int, code, title, detail string) Error {
	return Error{
		Status: strconv.Itoa(status),
		Code:   code,
		Title:  title,
		Detail: detail,
	}
}

// StatusCode returns the HTTP status code as an int.
func (e Error) StatusCode() int {
	code, _ := strconv.Atoi(e.Status)
	return code
}

// ErrBadRequest creates a 400 Bad Request error.
func ErrBadRequest(detail string) Error {
	return NewError(400, "bad_request", "Bad Request", detail)
}

// ErrInvalidParameter creates a 400 error pointing at a query parameter.
func ErrInvalidParameter(param, detail string) Error {
	e := NewError(400, "invalid_parameter", "Invalid Parameter", detail)
	e.Source = &ErrorSource{Parameter: param}
	return e
}

// ErrNotFound creates a 404 Not Found error.
func ErrNotFound(resourceType string) Error {
	return NewError(404, "not_found", "Not Found",
		fmt.Sprintf("The requested %s was not found", resourceType))
}

// ErrNotFoundWithID creates a 404 Not Found error with resource ID.
func ErrNotFoundWithID(resourceType, id string) Error {
	return NewError(404, "not_found", "Not Found",
		fmt.Sprintf("The %s with ID '%s' was not found", resourceType, id))
}

// ErrMethodNotAllowed creates a 405 Method Not Allowed error.
func ErrMethodNotAllowed(method string) Error {
	return NewError(405, "method_not_allowed", "Method Not Allowed",
		fmt.Sprintf("The %s method is not allowed for this resource", method))
}

// ErrRateConflict creates a 409 error for a rejected rate interval.
// conflictingID names the existing rate, when known.
func ErrRateConflict(reason, conflictingID string) Error {
	e := NewError(409, "rate_conflict", "Conflict", reason)
	if conflictingID != "" {
		e.Meta = Meta{"conflictingRateId": conflictingID}
	}
	return e
}

// ErrValidation creates a 422 Unprocessable Entity error for validation failures.
func ErrValidation(field, message string) Error {
	e := NewError(422, "validation_error", "Validation Failed", message)
	if field != "" {
		e.Source = &ErrorSource{Pointer: "/data/attributes/" + field}
	}
	return e
}

// ErrUnsupportedMediaType creates a 415 error.
func ErrUnsupportedMediaType(got string) Error {
	return NewError(415, "unsupported_media_type", "Unsupported Media Type",
		fmt.Sprintf("Content-Type %q is not supported", got))
}

// ErrInternal creates a 500 Internal Server Error.
func ErrInternal(detail string) Error {
	if detail == "" {
		detail = "An internal error occurred"
	}
	return NewError(500, "internal_error", "Internal Server Error", detail)
}

// ErrServiceUnavailable creates a 503 Service Unavailable error.
func ErrServiceUnavailable(detail string) Error {
	if detail == "" {
		detail = "Service temporarily unavailable"
	}
	return NewError(503, "service_unavailable", "Service Unavailable", detail)
}
