package liqpay

import (
	"errors"
	"fmt"
	"time"
)

// Error codes produced by this client. Gateway-defined codes pass through unchanged.
const (
	CodeNoRedirectLocation = "NO_REDIRECT_LOCATION"
	CodeBadArgument        = "BAD_ARGUMENT"
	CodeInvalidSignature   = "INVALID_SIGNATURE"
	CodeRequestFailed      = "REQUEST_FAILED"
)

// Error is a failed gateway interaction.
type Error struct {
	Message   string
	Code      string
	Cause     error
	Details   string
	Timestamp time.Time
}

func newError(message, code string, cause error, details string) *Error {
	return &Error{
		Message:   message,
		Code:      code,
		Cause:     cause,
		Details:   details,
		Timestamp: time.Now(),
	}
}

// Error implements the error interface.
func (e *Error) Error() string {
	return fmt.Sprintf("liqpay: %s: %s", e.Code, e.Message)
}

// Unwrap exposes the cause to errors.Is and errors.As.
func (e *Error) Unwrap() error {
	return e.Cause
}

func httpStatusCode(status int) string {
	return fmt.Sprintf("HTTP_%d", status)
}

// AsError extracts a gateway error from err.
func AsError(err error) (*Error, bool) {
	var lerr *Error
	if errors.As(err, &lerr) {
		return lerr, true
	}
	return nil, false
}
