// Package errors carries a stable Code through wrapped error chains. The
// code decides the HTTP status and how much of the error a client sees.
package errors

import (
	stdErrors "errors"
	"net/http"
)

type Code string

const (
	CodeValidation          Code = "VALIDATION_ERROR"
	CodeUnauthorized        Code = "UNAUTHORIZED"
	CodeForbidden           Code = "FORBIDDEN"
	CodeNotFound            Code = "NOT_FOUND"
	CodeConflict            Code = "CONFLICT"
	CodeInsufficientFunds   Code = "INSUFFICIENT_FUNDS"
	CodeInvalidTransition   Code = "INVALID_TRANSITION"
	CodeConcurrencyConflict Code = "CONCURRENCY_CONFLICT"
	CodeIdempotency         Code = "IDEMPOTENCY_KEY_REUSED"
	CodeRateLimit           Code = "RATE_LIMIT_EXCEEDED"
	CodeInternal            Code = "INTERNAL_ERROR"
	CodeDependency          Code = "DEPENDENCY_ERROR"
)

// Metadata is the client-facing shape of a code.
type Metadata struct {
	HTTPStatus    int
	Retryable     bool
	PublicMessage string
	// DetailsAllowed lets the error's own message and details reach the client.
	DetailsAllowed bool
}

type trait uint8

const (
	retryable trait = 1 << iota
	exposed
)

func describe(status int, public string, traits trait) Metadata {
	return Metadata{
		HTTPStatus:     status,
		PublicMessage:  public,
		Retryable:      traits&retryable != 0,
		DetailsAllowed: traits&exposed != 0,
	}
}

var codes = map[Code]Metadata{
	CodeValidation:          describe(http.StatusBadRequest, "validation failed", exposed),
	CodeUnauthorized:        describe(http.StatusUnauthorized, "authentication required", 0),
	CodeForbidden:           describe(http.StatusForbidden, "access denied", 0),
	CodeNotFound:            describe(http.StatusNotFound, "resource not found", 0),
	CodeConflict:            describe(http.StatusConflict, "conflict detected", exposed),
	CodeInsufficientFunds:   describe(http.StatusUnprocessableEntity, "insufficient wallet balance", exposed),
	CodeInvalidTransition:   describe(http.StatusUnprocessableEntity, "state transition disallowed", exposed),
	CodeConcurrencyConflict: describe(http.StatusConflict, "concurrent update detected, retry the request", retryable),
	CodeIdempotency:         describe(http.StatusConflict, "idempotency key reused", exposed),
	CodeRateLimit:           describe(http.StatusTooManyRequests, "rate limit exceeded", 0),
	CodeInternal:            describe(http.StatusInternalServerError, "internal server error", retryable),
	CodeDependency:          describe(http.StatusServiceUnavailable, "dependency unavailable", retryable|exposed),
}

// MetadataFor falls back to CodeInternal for unknown codes.
func MetadataFor(code Code) Metadata {
	if meta, ok := codes[code]; ok {
		return meta
	}
	return codes[CodeInternal]
}

// Error is a coded error. The zero of every accessor is safe on nil.
type Error struct {
	code    Code
	message string
	details any
	cause   error
}

func New(code Code, message string) *Error {
	return &Error{code: code, message: message}
}

// Wrap attaches a code to cause. A nil cause yields a plain New.
func Wrap(code Code, cause error, message string) *Error {
	return &Error{code: code, message: message, cause: cause}
}

func (e *Error) Code() Code {
	if e == nil {
		return CodeInternal
	}
	return e.code
}

func (e *Error) Message() string {
	if e == nil {
		return ""
	}
	return e.message
}

func (e *Error) Details() any {
	if e == nil {
		return nil
	}
	return e.details
}

// WithDetails sets structured details and returns e for chaining.
func (e *Error) WithDetails(details any) *Error {
	if e != nil {
		e.details = details
	}
	return e
}

func (e *Error) Error() string {
	if e == nil {
		return ""
	}
	return string(e.code) + ": " + e.message
}

func (e *Error) Unwrap() error {
	if e == nil {
		return nil
	}
	return e.cause
}

// As returns the outermost *Error in err's chain, or nil.
func As(err error) *Error {
	var typed *Error
	if err != nil && stdErrors.As(err, &typed) {
		return typed
	}
	return nil
}

// IsCode reports whether the outermost coded error in err's chain has code.
func IsCode(err error, code Code) bool {
	typed := As(err)
	return typed != nil && typed.code == code
}
