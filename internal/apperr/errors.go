// Package apperr defines the error categories every service operation
// reports: NotFound, BadRequest, Forbidden, Unauthorized and Conflict.
package apperr

import (
	"errors"
	"fmt"
	"net/http"
)

type DomainError struct {
	Status  int
	Code    string
	Message string
	Details any
}

func (e *DomainError) Error() string {
	if e == nil {
		return ""
	}
	return fmt.Sprintf("%s: %s", e.Code, e.Message)
}

// Is matches on Code so callers can test the category with errors.Is
// against the sentinels below regardless of the message.
func (e *DomainError) Is(target error) bool {
	var other *DomainError
	if !errors.As(target, &other) || other == nil {
		return false
	}
	return e.Code == other.Code
}

var (
	ErrNotFound     = &DomainError{Status: http.StatusNotFound, Code: "NOT_FOUND", Message: "Not found"}
	ErrBadRequest   = &DomainError{Status: http.StatusBadRequest, Code: "BAD_REQUEST", Message: "Bad request"}
	ErrForbidden    = &DomainError{Status: http.StatusForbidden, Code: "FORBIDDEN", Message: "Forbidden"}
	ErrUnauthorized = &DomainError{Status: http.StatusUnauthorized, Code: "UNAUTHORIZED", Message: "Unauthorized"}
	ErrConflict     = &DomainError{Status: http.StatusConflict, Code: "CONFLICT", Message: "Conflict"}
)

func domainError(base *DomainError, message string, details any) *DomainError {
	return &DomainError{
		Status:  base.Status,
		Code:    base.Code,
		Message: message,
		Details: details,
	}
}

func NotFound(message string) error     { return domainError(ErrNotFound, message, nil) }
func BadRequest(message string) error   { return domainError(ErrBadRequest, message, nil) }
func Forbidden(message string) error    { return domainError(ErrForbidden, message, nil) }
func Unauthorized(message string) error { return domainError(ErrUnauthorized, message, nil) }
func Conflict(message string) error     { return domainError(ErrConflict, message, nil) }

// As returns the DomainError wrapped in err, if any.
func As(err error) (*DomainError, bool) {
	var domainErr *DomainError
	if errors.As(err, &domainErr) {
		return domainErr, true
	}
	return nil, false
}
