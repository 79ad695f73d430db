// Package apperror defines the error taxonomy shared by services and
// handlers. Handlers translate these types into HTTP statuses in one place;
// services never import net/http.
package apperror

import (
	"errors"
	"fmt"
	"strings"
)

// ValidationError reports malformed input. Fields maps a field name to a
// human-readable problem so callers can surface field-level messages.
type ValidationError struct {
	Fields map[string]string
}

func (e *ValidationError) Error() string {
	if len(e.Fields) == 0 {
		return "validation failed"
	}
	parts := make([]string, 0, len(e.Fields))
	for field, msg := range e.Fields {
		parts = append(parts, field+": "+msg)
	}
	return "validation failed: " + strings.Join(parts, "; ")
}

// Validation builds a single-field validation error.
func Validation(field, msg string) *ValidationError {
	return &ValidationError{Fields: map[string]string{field: msg}}
}

// AuthorizationError reports that the caller lacks tenant, participant, or
// permission scope for the attempted operation.
type AuthorizationError struct {
	Reason string
}

func (e *AuthorizationError) Error() string {
	if e.Reason == "" {
		return "not authorized"
	}
	return "not authorized: " + e.Reason
}

// Authorization builds an authorization error.
func Authorization(reason string) *AuthorizationError {
	return &AuthorizationError{Reason: reason}
}

// NotFoundError reports a missing entity. Cross-tenant lookups return this
// same type so that existence is never leaked across tenants.
type NotFoundError struct {
	Entity string
}

func (e *NotFoundError) Error() string {
	return fmt.Sprintf("%s not found", e.Entity)
}

// NotFound builds a not-found error for the named entity.
func NotFound(entity string) *NotFoundError {
	return &NotFoundError{Entity: entity}
}

// IsValidation reports whether err is (or wraps) a ValidationError.
func IsValidation(err error) bool {
	var ve *ValidationError
	return errors.As(err, &ve)
}

// IsAuthorization reports whether err is (or wraps) an AuthorizationError.
func IsAuthorization(err error) bool {
	var ae *AuthorizationError
	return errors.As(err, &ae)
}

// IsNotFound reports whether err is (or wraps) a NotFoundError.
func IsNotFound(err error) bool {
	var ne *NotFoundError
	return errors.As(err, &ne)
}
