// Package session stores checkout sessions and waits for them to settle.
package session

import (
	"github.com/fitstack/checkout-bridge/docstore"
	"github.com/fitstack/checkout-bridge/internal/domain"
	"github.com/fitstack/checkout-bridge/internal/tokens"
)

// Stored field names.
const (
	FieldStatus         = "status"
	FieldInvoiceID      = "invoiceId"
	FieldPaymentPageURL = "paymentPageURL"
	FieldTransactionID  = "transactionId"
	FieldErrorCode      = "errorCode"
	FieldErrorMessage   = "errorMessage"
	FieldErrorDetails   = "errorDetails"
)

// ToDocument flattens a session into stored fields. Unset optional fields are
// written as nil and timestamps are left to the store.
func ToDocument(s *domain.CheckoutSession) map[string]any {
	data := map[string]any{
		FieldStatus:         string(s.Status),
		FieldInvoiceID:      s.InvoiceID,
		FieldPaymentPageURL: nullable(s.PaymentPageURL),
		FieldTransactionID:  nullable(s.TransactionID),
	}
	putError(data, s.Error)
	return data
}

// FromDocument rebuilds a session from a stored document.
func FromDocument(doc *docstore.Document) *domain.CheckoutSession {
	s := &domain.CheckoutSession{
		Status:         domain.SessionStatus(stringField(doc.Data, FieldStatus)),
		InvoiceID:      stringField(doc.Data, FieldInvoiceID),
		PaymentPageURL: stringField(doc.Data, FieldPaymentPageURL),
		TransactionID:  stringField(doc.Data, FieldTransactionID),
		CreatedAt:      doc.CreateTime,
		UpdatedAt:      doc.UpdateTime,
	}
	if s.InvoiceID == "" {
		s.InvoiceID = doc.ID
	}
	if code := stringField(doc.Data, FieldErrorCode); code != "" {
		s.Error = &domain.SessionError{
			Code:    code,
			Message: stringField(doc.Data, FieldErrorMessage),
			Details: stringField(doc.Data, FieldErrorDetails),
		}
	}
	return s
}

// updateDocument is the partial document merged for a status update.
func updateDocument(invoiceID string, u domain.StatusUpdate) map[string]any {
	data := map[string]any{
		FieldStatus:        string(u.Status),
		FieldInvoiceID:     invoiceID,
		FieldTransactionID: nullable(u.TransactionID),
	}
	putError(data, u.Error)
	return data
}

func putError(data map[string]any, e *domain.SessionError) {
	if e == nil {
		data[FieldErrorCode] = nil
		data[FieldErrorMessage] = nil
		data[FieldErrorDetails] = nil
		return
	}
	data[FieldErrorCode] = e.Code
	data[FieldErrorMessage] = nullable(e.Message)
	data[FieldErrorDetails] = nullable(e.Details)
}

func nullable(s string) any {
	if s == "" {
		return nil
	}
	return s
}

func stringField(data map[string]any, key string) string {
	s, _ := tokens.Stringify(data[key])
	return s
}
