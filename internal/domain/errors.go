// Package domain contains the core business entities for the checkout bridge.
package domain

import "errors"

// Domain errors represent conditions the bridge reports to its callers.
var (
	// ErrInvoiceNotFound is returned when a payment status references an unknown invoice.
	ErrInvoiceNotFound = errors.New("invoice not found")

	// ErrSessionNotFound is returned when a checkout session document does not exist.
	ErrSessionNotFound = errors.New("checkout session not found")

	// ErrSessionExists is returned when a checkout session was already created for an invoice.
	ErrSessionExists = errors.New("checkout session already exists")

	// ErrInvalidSignature is returned when a webhook payload fails signature verification.
	ErrInvalidSignature = errors.New("invalid signature")

	// ErrGateway is returned when the payment gateway call fails.
	ErrGateway = errors.New("payment gateway error")

	// ErrTranslation is returned when an invoice cannot be translated into a checkout request.
	ErrTranslation = errors.New("invoice translation failed")
)

// ServiceError wraps a domain error with additional context.
type ServiceError struct {
	Err     error
	Message string
	Code    string
}

// Error implements the error interface.
func (e *ServiceError) Error() string {
	if e.Message != "" {
		return e.Message + ": " + e.Err.Error()
	}
	return e.Err.Error()
}

// Unwrap allows errors.Is and errors.As to work with ServiceError.
func (e *ServiceError) Unwrap() error {
	return e.Err
}

// NewServiceError creates a new ServiceError with the given error, message and code.
func NewServiceError(err error, message, code string) *ServiceError {
	return &ServiceError{
		Err:     err,
		Message: message,
		Code:    code,
	}
}
