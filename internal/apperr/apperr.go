// Package apperr defines the error taxonomy shared by services and the
// HTTP boundary. Services return *Error values carrying a Kind; handlers
// translate the Kind into a status code and a machine-readable code.
package apperr

import (
	"errors"
	"fmt"
	"net/http"
)

// Kind classifies an error for boundary mapping.
type Kind string

const (
	KindValidation      Kind = "VALIDATION_ERROR"
	KindNoAuth          Kind = "NO_AUTH"
	KindInvalidToken    Kind = "INVALID_TOKEN"
	KindAuth            Kind = "AUTH_ERROR"
	KindForbiddenDomain Kind = "FORBIDDEN_DOMAIN"
	KindNotFound        Kind = "NOT_FOUND"
	KindDuplicate       Kind = "DUPLICATE"
	KindNotConfigured   Kind = "NOT_CONFIGURED"
	KindQuotaExceeded   Kind = "QUOTA_EXCEEDED"
	KindRateLimit       Kind = "RATE_LIMIT"
	KindUpstream        Kind = "UPSTREAM_UNAVAILABLE"
	KindTimeout         Kind = "TIMEOUT"
	KindEmptyResponse   Kind = "EMPTY_RESPONSE"
	KindInternal        Kind = "INTERNAL_ERROR"
)

// HTTPStatus maps the kind to the status code used at the boundary.
func (k Kind) HTTPStatus() int {
	switch k {
	case KindValidation:
		return http.StatusBadRequest
	case KindNoAuth, KindInvalidToken, KindAuth:
		return http.StatusUnauthorized
	case KindForbiddenDomain:
		return http.StatusForbidden
	case KindNotFound:
		return http.StatusNotFound
	case KindDuplicate:
		return http.StatusConflict
	case KindQuotaExceeded, KindRateLimit:
		return http.StatusTooManyRequests
	case KindNotConfigured, KindUpstream, KindTimeout:
		return http.StatusServiceUnavailable
	default:
		return http.StatusInternalServerError
	}
}

// Error carries a kind, a client-safe message and an optional cause.
type Error struct {
	Kind    Kind
	Message string
	Err     error
}

func (e *Error) Error() string {
	if e.Err == nil {
		return fmt.Sprintf("%s: %s", e.Kind, e.Message)
	}
	return fmt.Sprintf("%s: %s: %v", e.Kind, e.Message, e.Err)
}

func (e *Error) Unwrap() error {
	return e.Err
}

// New constructs an *Error without a cause.
func New(kind Kind, message string) *Error {
	return &Error{Kind: kind, Message: message}
}

// Wrap constructs an *Error preserving the provider/storage cause.
func Wrap(kind Kind, message string, cause error) *Error {
	return &Error{Kind: kind, Message: message, Err: cause}
}

// KindOf extracts the kind from err, or KindInternal when err is not an
// *Error from this package.
func KindOf(err error) Kind {
	var appErr *Error
	if errors.As(err, &appErr) {
		return appErr.Kind
	}
	return KindInternal
}

// MessageOf returns the client-safe message for err, falling back to a
// generic message for untyped errors so internals never leak.
func MessageOf(err error) string {
	var appErr *Error
	if errors.As(err, &appErr) {
		return appErr.Message
	}
	return "internal server error"
}

// IsKind reports whether err carries the given kind.
func IsKind(err error, kind Kind) bool {
	return KindOf(err) == kind
}
