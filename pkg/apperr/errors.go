// Package apperr defines the error taxonomy shared by the forum service layers.
//
// Every failure that crosses a package boundary is either an *Error carrying a Kind
// or an unexpected error that the HTTP layer treats as an internal failure.
package apperr

import (
	"errors"
	"fmt"
	"net/http"
)

// Kind classifies an error for propagation and HTTP mapping
type Kind string

const (
	KindValidation Kind = "validation"
	KindConflict   Kind = "conflict"
	KindAuth       Kind = "auth"
	KindForbidden  Kind = "forbidden"
	KindNotFound   Kind = "not_found"
	KindStorage    Kind = "storage"
)

// Machine readable codes for the auth and forbidden kinds
const (
	CodeMissingToken          = "missing_token"
	CodeInvalidOrExpiredToken = "invalid_or_expired_token"
	CodeInvalidCredentials    = "invalid_credentials"
	CodeAccountBanned         = "account_banned"
	CodeTopicLocked           = "topic_locked"
	CodeFirstPost             = "first_post"
	CodeNotAllowed            = "not_allowed"
)

// FieldError describes a single invalid input field
type FieldError struct {
	Field   string `json:"field"`
	Rule    string `json:"rule"`
	Message string `json:"message"`
}

// Error is a classified domain error
type Error struct {
	Kind    Kind
	Code    string
	Message string
	Fields  []FieldError
	Err     error
}

func (e *Error) Error() string {
	if e.Err != nil {
		return fmt.Sprintf("%s: %v", e.Message, e.Err)
	}
	return e.Message
}

// Unwrap returns the underlying cause
func (e *Error) Unwrap() error {
	return e.Err
}

// Is matches another *Error with the same kind and, when set, the same code
func (e *Error) Is(target error) bool {
	t, ok := target.(*Error)
	if !ok {
		return false
	}
	if t.Kind != e.Kind {
		return false
	}
	return t.Code == "" || t.Code == e.Code
}

// Validation returns a validation error listing the offending fields
func Validation(message string, fields ...FieldError) *Error {
	return &Error{Kind: KindValidation, Code: "invalid_input", Message: message, Fields: fields}
}

// Conflict returns a conflict error (duplicate username, email, category name)
func Conflict(message string) *Error {
	return &Error{Kind: KindConflict, Code: "conflict", Message: message}
}

// Auth returns an authentication error with the given code
func Auth(code, message string) *Error {
	return &Error{Kind: KindAuth, Code: code, Message: message}
}

// MissingToken is returned when no bearer token was presented
func MissingToken() *Error {
	return Auth(CodeMissingToken, "access token required")
}

// InvalidOrExpiredToken is returned when a token fails verification
func InvalidOrExpiredToken(cause error) *Error {
	e := Auth(CodeInvalidOrExpiredToken, "invalid or expired token")
	e.Err = cause
	return e
}

// InvalidCredentials is returned for unknown users and bad passwords alike
func InvalidCredentials() *Error {
	return Auth(CodeInvalidCredentials, "invalid credentials")
}

// Forbidden returns an authorization failure for an authenticated actor
func Forbidden(code, message string) *Error {
	if code == "" {
		code = CodeNotAllowed
	}
	return &Error{Kind: KindForbidden, Code: code, Message: message}
}

// NotFound returns a not found error for the named entity
func NotFound(entity string) *Error {
	return &Error{Kind: KindNotFound, Code: "not_found", Message: entity + " not found"}
}

// Storage wraps a store failure. The message is never shown to clients.
func Storage(op string, err error) *Error {
	return &Error{Kind: KindStorage, Code: "storage", Message: "failed to " + op, Err: err}
}

// KindOf returns the kind of err, or "" when err is not classified
func KindOf(err error) Kind {
	var e *Error
	if errors.As(err, &e) {
		return e.Kind
	}
	return ""
}

// IsKind reports whether err is classified as kind
func IsKind(err error, kind Kind) bool {
	return KindOf(err) == kind
}

// CodeOf returns the code of err, or "" when err is not classified
func CodeOf(err error) string {
	var e *Error
	if errors.As(err, &e) {
		return e.Code
	}
	return ""
}

// HTTPStatus maps an error to the status code returned to clients
func HTTPStatus(err error) int {
	var e *Error
	if !errors.As(err, &e) {
		return http.StatusInternalServerError
	}
	switch e.Kind {
	case KindValidation, KindConflict:
		return http.StatusBadRequest
	case KindAuth:
		if e.Code == CodeInvalidOrExpiredToken {
			return http.StatusForbidden
		}
		return http.StatusUnauthorized
	case KindForbidden:
		return http.StatusForbidden
	case KindNotFound:
		return http.StatusNotFound
	default:
		return http.StatusInternalServerError
	}
}
