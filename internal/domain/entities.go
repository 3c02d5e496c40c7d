// Package domain contains the core business entities for the checkout bridge.
// This is the innermost layer - it has no dependencies on the document store,
// the payment gateway or the HTTP framework.
package domain

import "time"

// Invoice is an application-defined record asking to charge a payer.
// Its shape is owned by the application; only the mapping expression and
// the sessions path template look inside it.
type Invoice map[string]any

// SessionStatus is the lifecycle state of a checkout session.
type SessionStatus string

// Checkout session states.
const (
	StatusPending   SessionStatus = "pending"
	StatusSuccess   SessionStatus = "success"
	StatusFailure   SessionStatus = "failure"
	StatusCancelled SessionStatus = "cancelled"
)

// IsTerminal reports whether no further gateway updates are expected.
func (s SessionStatus) IsTerminal() bool {
	switch s {
	case StatusSuccess, StatusFailure, StatusCancelled:
		return true
	default:
		return false
	}
}

// Valid reports whether s is one of the known session states.
func (s SessionStatus) Valid() bool {
	return s == StatusPending || s.IsTerminal()
}

// SessionError describes why a checkout session failed.
// Empty Message or Details mean the gateway did not provide them.
type SessionError struct {
	Code    string `json:"code"`
	Message string `json:"message,omitempty"`
	Details string `json:"details,omitempty"`
}

// Error implements the error interface so a failed session can be surfaced directly.
func (e *SessionError) Error() string {
	if e.Message == "" {
		return e.Code
	}
	return e.Code + ": " + e.Message
}

// CheckoutSession is the bridge's record of one attempt to start a payment for an invoice.
type CheckoutSession struct {
	Status         SessionStatus `json:"status"`
	PaymentPageURL string        `json:"paymentPageURL,omitempty"` // Hosted checkout page, set once
	InvoiceID      string        `json:"invoiceId"`                // Weak reference to the invoice
	TransactionID  string        `json:"transactionId,omitempty"`  // Gateway transaction id
	Error          *SessionError `json:"error,omitempty"`          // Only for failed sessions
	CreatedAt      time.Time     `json:"createdAt"`                // Store write metadata
	UpdatedAt      time.Time     `json:"updatedAt"`                // Store write metadata
}

// StatusUpdate is the partial session written when a payment status arrives.
// Fields not listed here are never touched by a status update.
type StatusUpdate struct {
	Status        SessionStatus
	TransactionID string
	Error         *SessionError
}
