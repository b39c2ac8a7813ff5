package apperr

import (
	"errors"
	"fmt"
	"net/http"
)

type Code string

const (
	CodeUnauthenticated           Code = "UNAUTHENTICATED"
	CodeInvalidCredentials        Code = "INVALID_CREDENTIALS"
	CodeInvalidInput              Code = "INVALID_INPUT"
	CodeInvalidCart               Code = "INVALID_CART"
	CodeInvalidAddress            Code = "INVALID_ADDRESS"
	CodeInsufficientPoints        Code = "INSUFFICIENT_POINTS"
	CodeNotFound                  Code = "NOT_FOUND"
	CodeConflict                  Code = "CONFLICT"
	CodeExternalLedgerUnavailable Code = "EXTERNAL_LEDGER_UNAVAILABLE"
	CodeExternalUnavailable       Code = "EXTERNAL_UNAVAILABLE"
	CodeStorageUnavailable        Code = "STORAGE_UNAVAILABLE"
)

// Error is the error type returned by the core packages. Two errors match
// under errors.Is when their codes are equal.
type Error struct {
	Code    Code
	Message string
	Err     error
}

func (e *Error) Error() string {
	if e.Err != nil {
		return fmt.Sprintf("[%s] %s: %v", e.Code, e.Message, e.Err)
	}
	return fmt.Sprintf("[%s] %s", e.Code, e.Message)
}

func (e *Error) Unwrap() error {
	return e.Err
}

func (e *Error) Is(target error) bool {
	var t *Error
	if !errors.As(target, &t) {
		return false
	}
	return t.Code == e.Code
}

func New(code Code, message string) *Error {
	return &Error{Code: code, Message: message}
}

func Wrap(code Code, message string, err error) *Error {
	return &Error{Code: code, Message: message, Err: err}
}

var (
	ErrUnauthenticated           = New(CodeUnauthenticated, "unauthorized")
	ErrInvalidCredentials        = New(CodeInvalidCredentials, "invalid credentials")
	ErrInvalidInput              = New(CodeInvalidInput, "invalid input")
	ErrInvalidCart               = New(CodeInvalidCart, "invalid cart")
	ErrInvalidAddress            = New(CodeInvalidAddress, "invalid delivery address")
	ErrInsufficientPoints        = New(CodeInsufficientPoints, "not enough points")
	ErrNotFound                  = New(CodeNotFound, "not found")
	ErrConflict                  = New(CodeConflict, "conflict")
	ErrExternalLedgerUnavailable = New(CodeExternalLedgerUnavailable, "external ledger unavailable")
	ErrExternalUnavailable       = New(CodeExternalUnavailable, "upstream service unavailable")
	ErrStorageUnavailable        = New(CodeStorageUnavailable, "storage unavailable")
)

func InvalidInput(message string) *Error {
	return New(CodeInvalidInput, message)
}

func InvalidCart(message string) *Error {
	return New(CodeInvalidCart, message)
}

func InvalidAddress(message string) *Error {
	return New(CodeInvalidAddress, message)
}

func NotFound(message string) *Error {
	return New(CodeNotFound, message)
}

func Conflict(message string) *Error {
	return New(CodeConflict, message)
}

func Storage(op string, err error) *Error {
	return Wrap(CodeStorageUnavailable, op, err)
}

// CodeOf returns the code carried by err, or "" for foreign errors.
func CodeOf(err error) Code {
	var e *Error
	if errors.As(err, &e) {
		return e.Code
	}
	return ""
}

// Expected reports whether err is a user-facing outcome rather than a fault.
// Expected errors are returned verbatim and are not logged as errors.
func Expected(err error) bool {
	switch CodeOf(err) {
	case CodeUnauthenticated, CodeInvalidCredentials, CodeInvalidInput, CodeInvalidCart,
		CodeInvalidAddress, CodeInsufficientPoints, CodeNotFound, CodeConflict:
		return true
	}
	return false
}

// IsInvalidInput groups the input validation codes.
func IsInvalidInput(err error) bool {
	switch CodeOf(err) {
	case CodeInvalidInput, CodeInvalidCart, CodeInvalidAddress:
		return true
	}
	return false
}

func HTTPStatus(err error) int {
	switch CodeOf(err) {
	case CodeUnauthenticated, CodeInvalidCredentials:
		return http.StatusUnauthorized
	case CodeInvalidInput, CodeInvalidCart, CodeInvalidAddress:
		return http.StatusBadRequest
	case CodeInsufficientPoints, CodeConflict:
		return http.StatusConflict
	case CodeNotFound:
		return http.StatusNotFound
	case CodeExternalLedgerUnavailable, CodeExternalUnavailable:
		return http.StatusBadGateway
	case CodeStorageUnavailable:
		return http.StatusServiceUnavailable
	}
	return http.StatusInternalServerError
}

// PublicMessage is the message safe to show a client. Faults are reduced to a
// generic text so internal detail never leaves the process.
func PublicMessage(err error) string {
	var e *Error
	if !errors.As(err, &e) {
		return "internal server error"
	}
	switch e.Code {
	case CodeStorageUnavailable:
		return "service temporarily unavailable"
	case CodeExternalLedgerUnavailable, CodeExternalUnavailable:
		return "upstream service unavailable"
	}
	return e.Message
}
