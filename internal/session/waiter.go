package session

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/fitstack/checkout-bridge/docstore"
	"github.com/fitstack/checkout-bridge/internal/domain"
)

// ErrTimeout is returned by Wait when the session does not settle in time.
var ErrTimeout = errors.New("timed out waiting for checkout session")

// FailedError is returned by Wait when the session carries an error.
type FailedError struct {
	Session *domain.CheckoutSession
}

func (e *FailedError) Error() string {
	return "checkout session failed: " + e.Session.Error.Error()
}

// Unwrap returns the session error.
func (e *FailedError) Unwrap() error {
	return e.Session.Error
}

// Watcher opens document subscriptions.
type Watcher interface {
	Watch(ctx context.Context, path string) (docstore.Subscription, error)
}

// Wait blocks until the session at path has a payment page URL or an error.
// The subscription is stopped before Wait returns.
func Wait(ctx context.Context, w Watcher, path string, timeout time.Duration) (*domain.CheckoutSession, error) {
	timer := time.NewTimer(timeout)
	defer timer.Stop()

	sub, err := w.Watch(ctx, path)
	if err != nil {
		return nil, fmt.Errorf("watch session %s: %w", path, err)
	}
	defer sub.Stop()

	for {
		select {
		case <-timer.C:
			return nil, ErrTimeout
		case <-ctx.Done():
			return nil, ctx.Err()
		case snap, ok := <-sub.Snapshots():
			if !ok {
				return nil, fmt.Errorf("watch session %s: stream closed", path)
			}
			if snap.Err != nil {
				return nil, fmt.Errorf("watch session %s: %w", path, snap.Err)
			}
			if snap.Doc == nil {
				continue
			}
			session := FromDocument(snap.Doc)
			if session.PaymentPageURL != "" {
				return session, nil
			}
			if session.Error != nil {
				return nil, &FailedError{Session: session}
			}
		}
	}
}
