package client

import (
	"context"
	"errors"
	"log/slog"
	"time"

	"github.com/fitstack/checkout-bridge/docstore"
	"github.com/fitstack/checkout-bridge/internal/domain"
	"github.com/fitstack/checkout-bridge/internal/session"
)

// PaymentsClient places invoices and reads their checkout sessions.
type PaymentsClient struct {
	docs               Store
	sessions           *session.Store
	invoicesCollection string
	timeout            time.Duration
	logger             *slog.Logger
}

func newPaymentsClient(docs Store, invoices, sessions string, timeout time.Duration, logger *slog.Logger) *PaymentsClient {
	return &PaymentsClient{
		docs:               docs,
		sessions:           session.NewStore(docs, sessions, nil, logger),
		invoicesCollection: invoices,
		timeout:            timeout,
		logger:             logger,
	}
}

type callOptions struct {
	timeout *time.Duration
}

// CallOption configures a single call.
type CallOption func(*callOptions)

// Timeout overrides the wait timeout of one call. It must be positive.
func Timeout(d time.Duration) CallOption {
	return func(o *callOptions) {
		o.timeout = &d
	}
}

// timeoutFor picks the explicit timeout, then the configured default, then DefaultTimeout.
func (p *PaymentsClient) timeoutFor(explicit *time.Duration) (time.Duration, error) {
	if explicit == nil {
		if p.timeout > 0 {
			return p.timeout, nil
		}
		return DefaultTimeout, nil
	}
	if *explicit <= 0 {
		return 0, newError(CodeInvalidArgument, "timeout must be a positive number", nil)
	}
	return *explicit, nil
}

// PlaceInvoice stores invoice in the invoices collection and returns its id.
// A string "id" field is used as the document id; otherwise one is generated.
func (p *PaymentsClient) PlaceInvoice(ctx context.Context, invoice domain.Invoice) (string, error) {
	id, err := p.place(ctx, invoice)
	if err != nil {
		return "", newError(CodeInternal, "Error placing invoice in Firestore", err)
	}
	p.logger.Debug("invoice placed", "invoice_id", id)
	return id, nil
}

func (p *PaymentsClient) place(ctx context.Context, invoice domain.Invoice) (string, error) {
	if id, ok := invoice["id"].(string); ok && id != "" {
		if err := p.docs.Create(ctx, docstore.Join(p.invoicesCollection, id), invoice); err != nil {
			return "", err
		}
		return id, nil
	}
	return p.docs.Add(ctx, p.invoicesCollection, invoice)
}

// PlaceInvoiceAndWait places invoice and waits for its checkout session.
// The invoice fields resolve the tokens of the sessions collection.
func (p *PaymentsClient) PlaceInvoiceAndWait(ctx context.Context, invoice domain.Invoice, opts ...CallOption) (*domain.CheckoutSession, error) {
	timeout, err := p.callTimeout(opts)
	if err != nil {
		return nil, err
	}
	id, err := p.PlaceInvoice(ctx, invoice)
	if err != nil {
		return nil, err
	}
	return p.wait(ctx, p.sessions.PathFor(invoice, id), timeout)
}

// WaitForCheckoutSession waits until the session of invoiceID has a payment
// page URL or an error.
func (p *PaymentsClient) WaitForCheckoutSession(ctx context.Context, invoiceID string, toks map[string]string, opts ...CallOption) (*domain.CheckoutSession, error) {
	timeout, err := p.callTimeout(opts)
	if err != nil {
		return nil, err
	}
	return p.wait(ctx, p.sessions.Path(invoiceID, toks), timeout)
}

func (p *PaymentsClient) callTimeout(opts []CallOption) (time.Duration, error) {
	var o callOptions
	for _, opt := range opts {
		opt(&o)
	}
	return p.timeoutFor(o.timeout)
}

func (p *PaymentsClient) wait(ctx context.Context, path string, timeout time.Duration) (*domain.CheckoutSession, error) {
	s, err := session.Wait(ctx, p.docs, path, timeout)
	if err == nil {
		return s, nil
	}

	var failed *session.FailedError
	switch {
	case errors.Is(err, session.ErrTimeout):
		return nil, newError(CodeTimeout, "Timeout waiting for checkout session to be created", err)
	case errors.As(err, &failed):
		return nil, newError(CodeInternal, "Checkout session failed", err)
	default:
		return nil, newError(CodeInternal, "Error waiting for checkout session to be created", err)
	}
}

// FetchCheckoutSession reads the session of invoiceID.
func (p *PaymentsClient) FetchCheckoutSession(ctx context.Context, invoiceID string, toks map[string]string) (*domain.CheckoutSession, error) {
	s, err := p.sessions.Fetch(ctx, invoiceID, toks)
	if err != nil {
		if errors.Is(err, domain.ErrSessionNotFound) {
			return nil, newError(CodeNotFound, "Checkout session not found", err)
		}
		return nil, newError(CodeInternal, "Error fetching checkout session", err)
	}
	return s, nil
}

// CancelCheckoutSession marks the session of invoiceID as cancelled.
func (p *PaymentsClient) CancelCheckoutSession(ctx context.Context, invoiceID string, toks map[string]string) error {
	if err := p.sessions.Cancel(ctx, invoiceID, toks); err != nil {
		return newError(CodeInternal, "Error cancelling checkout session", err)
	}
	return nil
}

// FindCheckoutSessionsWithStatus lists the sessions with the given status.
func (p *PaymentsClient) FindCheckoutSessionsWithStatus(ctx context.Context, status domain.SessionStatus, toks map[string]string) ([]*domain.CheckoutSession, error) {
	sessions, err := p.sessions.FindByStatus(ctx, status, toks)
	if err != nil {
		return nil, newError(CodeInternal, "Error finding checkout sessions", err)
	}
	return sessions, nil
}

// FindPendingCheckoutSessions lists the pending sessions.
func (p *PaymentsClient) FindPendingCheckoutSessions(ctx context.Context, toks map[string]string) ([]*domain.CheckoutSession, error) {
	return p.FindCheckoutSessionsWithStatus(ctx, domain.StatusPending, toks)
}
