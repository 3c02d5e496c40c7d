package events

import (
	"context"
	"log/slog"
	"time"

	"github.com/google/uuid"
)

// Recorder emits the checkout lifecycle events. Delivery failures are logged
// and never returned. A nil *Recorder does nothing.
type Recorder struct {
	publisher Publisher
	logger    *slog.Logger
	now       func() time.Time
}

// NewRecorder creates a recorder. A nil publisher records nothing.
func NewRecorder(publisher Publisher, logger *slog.Logger) *Recorder {
	if publisher == nil {
		publisher = Nop{}
	}
	if logger == nil {
		logger = slog.Default()
	}
	return &Recorder{publisher: publisher, logger: logger, now: time.Now}
}

// CheckoutSessionCreated records that a session with a payment page was created.
func (r *Recorder) CheckoutSessionCreated(ctx context.Context, invoiceID, paymentPageURL string) {
	r.record(ctx, TypeCheckoutSessionCreated, invoiceID, map[string]any{
		"paymentPageURL": paymentPageURL,
	})
}

// CheckoutSessionUpdated records a status merged into a session.
func (r *Recorder) CheckoutSessionUpdated(ctx context.Context, invoiceID, status, transactionID string) {
	r.record(ctx, TypeCheckoutSessionUpdated, invoiceID, map[string]any{
		"status":        status,
		"transactionId": transactionID,
	})
}

// PaymentStatusReceived records a status received from the gateway.
func (r *Recorder) PaymentStatusReceived(ctx context.Context, invoiceID, status, transactionID string) {
	r.record(ctx, TypePaymentStatusReceived, invoiceID, map[string]any{
		"status":        status,
		"transactionId": transactionID,
	})
}

func (r *Recorder) record(ctx context.Context, t Type, subject string, data map[string]any) {
	if r == nil {
		return
	}
	event := Event{
		ID:      uuid.NewString(),
		Type:    t,
		Subject: subject,
		Time:    r.now().UTC(),
		Data:    data,
	}
	if err := r.publisher.Publish(ctx, event); err != nil {
		r.logger.Warn("failed to publish event", "type", t, "invoice_id", subject, "error", err)
	}
}
