package session

import (
	"testing"
	"time"

	"github.com/stretchr/testify/assert"

	"github.com/fitstack/checkout-bridge/docstore"
	"github.com/fitstack/checkout-bridge/internal/domain"
)

func TestConverterRoundTrip(t *testing.T) {
	t.Parallel()

	created := time.Date(2024, 10, 19, 8, 20, 28, 0, time.UTC)
	updated := created.Add(time.Minute)

	tests := map[string]*domain.CheckoutSession{
		"failed": {
			Status:    domain.StatusFailure,
			InvoiceID: "inv1",
			Error:     &domain.SessionError{Code: "HTTP_400", Message: "bad amount", Details: "expected 3xx"},
		},
		"pending": {
			Status:         domain.StatusPending,
			InvoiceID:      "inv2",
			PaymentPageURL: "https://pay.example/abc",
		},
		"success": {
			Status:         domain.StatusSuccess,
			InvoiceID:      "inv3",
			PaymentPageURL: "https://pay.example/def",
			TransactionID:  "42",
		},
	}

	for name, session := range tests {
		t.Run(name, func(t *testing.T) {
			t.Parallel()

			data := ToDocument(session)
			got := FromDocument(&docstore.Document{
				Path:       "checkout-sessions/" + session.InvoiceID,
				ID:         session.InvoiceID,
				Data:       data,
				CreateTime: created,
				UpdateTime: updated,
			})

			want := *session
			want.CreatedAt = created
			want.UpdatedAt = updated
			assert.Equal(t, &want, got)
		})
	}
}

func TestToDocumentNullsEmptyFields(t *testing.T) {
	t.Parallel()

	data := ToDocument(&domain.CheckoutSession{Status: domain.StatusPending, InvoiceID: "inv1"})

	assert.Equal(t, map[string]any{
		"status":         "pending",
		"invoiceId":      "inv1",
		"paymentPageURL": nil,
		"transactionId":  nil,
		"errorCode":      nil,
		"errorMessage":   nil,
		"errorDetails":   nil,
	}, data)
}

func TestFromDocumentTolerantTypes(t *testing.T) {
	t.Parallel()

	got := FromDocument(&docstore.Document{
		ID: "inv1",
		Data: map[string]any{
			"status":        "success",
			"transactionId": int64(123456),
			"errorMessage":  "ignored without code",
		},
	})

	assert.Equal(t, "inv1", got.InvoiceID)
	assert.Equal(t, "123456", got.TransactionID)
	assert.Nil(t, got.Error)
}
