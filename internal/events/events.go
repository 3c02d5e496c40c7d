// Package events publishes checkout lifecycle notifications to an external channel.
package events

import (
	"context"
	"time"
)

// Type names a published event.
type Type string

const (
	TypeCheckoutSessionCreated Type = "dev.summerhammer.firestore-liqpay-payments.v1.checkout-session.created"
	TypeCheckoutSessionUpdated Type = "dev.summerhammer.firestore-liqpay-payments.v1.checkout-session.updated"
	TypePaymentStatusReceived  Type = "dev.summerhammer.firestore-liqpay-payments.v1.payment-status.received"
)

// Event is one notification. Subject is the invoice id.
type Event struct {
	ID      string         `json:"id"`
	Type    Type           `json:"type"`
	Subject string         `json:"subject"`
	Time    time.Time      `json:"time"`
	Data    map[string]any `json:"data"`
}

// Publisher delivers events.
type Publisher interface {
	Publish(ctx context.Context, event Event) error
}

// Nop discards every event. It is used when no channel is configured.
type Nop struct{}

// Publish implements Publisher.
func (Nop) Publish(context.Context, Event) error { return nil }
