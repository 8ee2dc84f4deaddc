// Package dErrors provides coded domain errors shared by services, stores,
// and transport. Codes classify failures for callers (retryable vs
// caller-correctable) and drive HTTP status translation at the edge.
package dErrors

import (
	"errors"
	"net/http"
)

// Code classifies a domain error.
type Code string

const (
	// CodeValidation: user-correctable input failed a domain rule
	// (bad URL, unsupported platform, invalid artifact). Never retried.
	CodeValidation Code = "validation"
	// CodeInvalidInput: malformed primitive at a trust boundary (bad UUID,
	// empty required field).
	CodeInvalidInput Code = "invalid_input"
	// CodeBadRequest: structurally invalid request (unparseable body).
	CodeBadRequest Code = "bad_request"
	// CodeConflict: operation invalid for the current state (decision
	// requested twice, transition from a terminal status). Retryable after
	// the caller refreshes state.
	CodeConflict Code = "conflict"
	// CodeNotFound: unknown user/link/record id.
	CodeNotFound Code = "not_found"
	// CodeTimeout: a collaborator did not respond within its bound.
	CodeTimeout Code = "timeout"
	// CodeUnauthorized: no authenticated actor.
	CodeUnauthorized Code = "unauthorized"
	// CodeForbidden: authenticated actor lacks the required standing
	// (e.g. unverified endorser).
	CodeForbidden Code = "forbidden"
	// CodeInvariantViolation: a domain invariant would be broken; indicates
	// a programming error or corrupted state, not user input.
	CodeInvariantViolation Code = "invariant_violation"
	// CodeInternal: store or collaborator failure. Logged, surfaced opaquely,
	// no partial effect.
	CodeInternal Code = "internal"
)

// Error is the concrete coded error type.
type Error struct {
	Code    Code
	Message string
	cause   error
}

// New creates a coded error with a message.
func New(code Code, message string) *Error {
	return &Error{Code: code, Message: message}
}

// Wrap annotates an underlying error with a code and message, preserving the
// cause for errors.Is/errors.As chains.
func Wrap(cause error, code Code, message string) *Error {
	return &Error{Code: code, Message: message, cause: cause}
}

func (e *Error) Error() string {
	if e.cause != nil {
		return e.Message + ": " + e.cause.Error()
	}
	return e.Message
}

// Unwrap exposes the cause for the errors package.
func (e *Error) Unwrap() error {
	return e.cause
}

// HasCode reports whether err (or anything it wraps) carries the given code.
func HasCode(err error, code Code) bool {
	var de *Error
	if errors.As(err, &de) {
		return de.Code == code
	}
	return false
}

// Is is an alias of HasCode kept for call-site readability in tests.
func Is(err error, code Code) bool {
	return HasCode(err, code)
}

// CodeOf extracts the code from err, defaulting to CodeInternal for uncoded
// errors so unknown failures never leak as client faults.
func CodeOf(err error) Code {
	var de *Error
	if errors.As(err, &de) {
		return de.Code
	}
	return CodeInternal
}

// ToHTTPStatus maps a code to its HTTP response status.
func ToHTTPStatus(code Code) int {
	switch code {
	case CodeValidation, CodeInvalidInput, CodeBadRequest:
		return http.StatusBadRequest
	case CodeUnauthorized:
		return http.StatusUnauthorized
	case CodeForbidden:
		return http.StatusForbidden
	case CodeNotFound:
		return http.StatusNotFound
	case CodeConflict:
		return http.StatusConflict
	case CodeTimeout:
		return http.StatusGatewayTimeout
	default:
		return http.StatusInternalServerError
	}
}
