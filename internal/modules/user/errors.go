package user

import (
	"fmt"
	"net/http"
)

// DomainError is a structured, self-describing domain error used across the
// user module. It carries HTTP/RFC7807-friendly metadata so a shared formatter
// can convert any domain error into a Problem response without enumerating
// error types.
type DomainError struct {
	// Code is a stable, machine-readable business code (e.g., "ErrAlreadyVerified").
	Code string

	// HTTPStatus is the HTTP status suggested for this error.
	HTTPStatus int

	// Title is a short human summary; if empty the formatter will default to
	// StatusText(HTTPStatus).
	Title string

	// Message is a human-readable message, also used as the public detail.
	Message string

	// TypeURI is an RFC7807 type URI, e.g. "urn:problem:user/err-not-found".
	TypeURI string

	// cause is the underlying error that triggered this one, if any.
	cause error
}

// Error satisfies the standard Go error interface.
func (e *DomainError) Error() string {
	if e.cause != nil {
		return fmt.Sprintf("%s: %v", e.Message, e.cause)
	}
	return e.Message
}

// Unwrap provides compatibility for errors.Is and errors.As.
func (e *DomainError) Unwrap() error {
	return e.cause
}

// Is enables errors.Is comparisons based on the stable Code rather than
// pointer identity, so copies created via WithCause match their sentinel.
func (e *DomainError) Is(target error) bool {
	t, ok := target.(*DomainError)
	if !ok {
		return false
	}
	return e.Code == t.Code
}

// WithCause returns a copy of the DomainError wrapping the provided cause.
func (e *DomainError) WithCause(err error) *DomainError {
	if err == nil {
		return e
	}
	cp := *e
	cp.cause = err
	return &cp
}

// --- RFC7807 mapping accessors (satisfy httpx.DomainProblem) ---

func (e *DomainError) ProblemCode() string  { return e.Code }
func (e *DomainError) ProblemTitle() string { return e.Title }

func (e *DomainError) ProblemStatus() int {
	if e.HTTPStatus == 0 {
		return http.StatusInternalServerError
	}
	return e.HTTPStatus
}

func (e *DomainError) ProblemDetail() string  { return e.Message }
func (e *DomainError) ProblemTypeURI() string { return e.TypeURI }
func (e *DomainError) ProblemContext() any    { return nil }

// --- Pre-defined Domain Errors ---

var (
	// ErrNotFound: no user for the given lookup key (id, discord id,
	// verification code, session).
	ErrNotFound = &DomainError{
		Code:       "ErrNotFound",
		HTTPStatus: http.StatusNotFound,
		Title:      "Not Found",
		Message:    "user not found",
		TypeURI:    "urn:problem:user/err-not-found",
	}

	// ErrAlreadyVerified: idempotency guard; a verification code cannot be
	// replayed after success.
	ErrAlreadyVerified = &DomainError{
		Code:       "ErrAlreadyVerified",
		HTTPStatus: http.StatusConflict,
		Title:      "Conflict",
		Message:    "user is already verified",
		TypeURI:    "urn:problem:user/err-already-verified",
	}

	// ErrNotVerified: deauthentication guard against never-verified accounts.
	ErrNotVerified = &DomainError{
		Code:       "ErrNotVerified",
		HTTPStatus: http.StatusForbidden,
		Title:      "Forbidden",
		Message:    "user is not verified",
		TypeURI:    "urn:problem:user/err-not-verified",
	}

	// ErrInvalidOsuCode: the osu! OAuth provider rejected the authorization code.
	ErrInvalidOsuCode = &DomainError{
		Code:       "ErrInvalidOsuCode",
		HTTPStatus: http.StatusForbidden,
		Title:      "Forbidden",
		Message:    "invalid osu! authorization code",
		TypeURI:    "urn:problem:user/err-invalid-osu-code",
	}

	// ErrInvalidSession: absent or stale session cookie.
	ErrInvalidSession = &DomainError{
		Code:       "ErrInvalidSession",
		HTTPStatus: http.StatusForbidden,
		Title:      "Forbidden",
		Message:    "invalid session",
		TypeURI:    "urn:problem:user/err-invalid-session",
	}

	// ErrInternal: unexpected store or provider failure.
	ErrInternal = &DomainError{
		Code:       "ErrInternal",
		HTTPStatus: http.StatusInternalServerError,
		Title:      "Internal Server Error",
		Message:    "internal server error",
		TypeURI:    "urn:problem:user/err-internal",
	}
)
