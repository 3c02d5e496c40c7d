// Package checkout drives checkout sessions from invoice creations and
// gateway payment statuses.
package checkout

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"log/slog"

	"github.com/fitstack/checkout-bridge/docstore"
	"github.com/fitstack/checkout-bridge/internal/domain"
	"github.com/fitstack/checkout-bridge/internal/events"
	"github.com/fitstack/checkout-bridge/internal/platform/liqpay"
	"github.com/fitstack/checkout-bridge/internal/session"
	"github.com/fitstack/checkout-bridge/internal/translate"
)

// StatusesCollection is the audit log sub-collection of an invoice.
const StatusesCollection = "statuses"

// Gateway is the payment gateway capability.
type Gateway interface {
	Checkout(ctx context.Context, request liqpay.CheckoutRequest) (string, error)
	PaymentStatus(ctx context.Context, orderID string) (*liqpay.PaymentStatus, error)
	DecodePaymentStatus(env liqpay.Envelope) (*liqpay.PaymentStatus, error)
}

// Translator builds checkout requests from invoices.
type Translator interface {
	Translate(ctx context.Context, invoice domain.Invoice, invoiceID string) (liqpay.CheckoutRequest, error)
}

// Deps are the collaborators of an Orchestrator.
type Deps struct {
	Gateway            Gateway
	Translator         Translator
	Sessions           *session.Store
	Docs               docstore.Store
	InvoicesCollection string
	Recorder           *events.Recorder
	Logger             *slog.Logger
}

// Orchestrator applies invoice and payment status events to checkout sessions.
type Orchestrator struct {
	gateway            Gateway
	translator         Translator
	sessions           *session.Store
	docs               docstore.Store
	invoicesCollection string
	recorder           *events.Recorder
	logger             *slog.Logger
}

// NewOrchestrator creates an orchestrator.
func NewOrchestrator(deps Deps) *Orchestrator {
	logger := deps.Logger
	if logger == nil {
		logger = slog.Default()
	}
	return &Orchestrator{
		gateway:            deps.Gateway,
		translator:         deps.Translator,
		sessions:           deps.Sessions,
		docs:               deps.Docs,
		invoicesCollection: deps.InvoicesCollection,
		recorder:           deps.Recorder,
		logger:             logger,
	}
}

// OnInvoiceCreated starts a checkout for a new invoice and records the
// outcome as a pending or failed session. A checkout failure is persisted and
// then returned.
func (o *Orchestrator) OnInvoiceCreated(ctx context.Context, invoice domain.Invoice, invoiceID string) error {
	logger := o.logger.With("invoice_id", invoiceID)
	logger.Info("checking out invoice")

	paymentPageURL, err := o.checkout(ctx, invoice, invoiceID)
	if err != nil {
		logger.Error("checkout failed", "error", err)
		if serr := o.sessions.CreateFailed(ctx, invoice, invoiceID, translate.FailureOf(err)); serr != nil {
			return errors.Join(err, serr)
		}
		return err
	}

	logger.Info("checkout successful", "payment_page_url", paymentPageURL)
	return o.sessions.CreatePending(ctx, invoice, invoiceID, paymentPageURL)
}

// HasCheckoutSession reports whether a checkout was already recorded for the invoice.
func (o *Orchestrator) HasCheckoutSession(ctx context.Context, invoice domain.Invoice, invoiceID string) (bool, error) {
	return o.sessions.Exists(ctx, invoice, invoiceID)
}

func (o *Orchestrator) checkout(ctx context.Context, invoice domain.Invoice, invoiceID string) (string, error) {
	request, err := o.translator.Translate(ctx, invoice, invoiceID)
	if err != nil {
		return "", err
	}
	return o.gateway.Checkout(ctx, request)
}

// OnStatusReceived verifies a webhook envelope and applies its payment status.
func (o *Orchestrator) OnStatusReceived(ctx context.Context, env liqpay.Envelope) (*liqpay.PaymentStatus, error) {
	status, err := o.gateway.DecodePaymentStatus(env)
	if err != nil {
		return nil, err
	}
	if err := o.apply(ctx, status); err != nil {
		return nil, err
	}
	o.logger.Info("payment status handled", "invoice_id", status.OrderID, "status", status.Status)
	return status, nil
}

// RefreshStatus asks the gateway for the current status of an order and
// applies it.
func (o *Orchestrator) RefreshStatus(ctx context.Context, orderID string) (*liqpay.PaymentStatus, error) {
	o.logger.Info("getting payment status", "invoice_id", orderID)
	status, err := o.gateway.PaymentStatus(ctx, orderID)
	if err != nil {
		return nil, err
	}
	o.logger.Info("payment status received", "invoice_id", orderID, "status", status.Status)
	if err := o.apply(ctx, status); err != nil {
		return nil, err
	}
	return status, nil
}

func (o *Orchestrator) apply(ctx context.Context, status *liqpay.PaymentStatus) error {
	invoiceID := status.OrderID
	if invoiceID == "" {
		return domain.NewServiceError(domain.ErrInvoiceNotFound, "payment status has no order_id", "INVOICE_NOT_FOUND")
	}

	invoice, err := o.findInvoice(ctx, invoiceID)
	if err != nil {
		return err
	}

	update := translate.UpdateOf(status)
	if err := o.sessions.MergeStatus(ctx, invoice, invoiceID, update); err != nil {
		return err
	}
	o.recorder.CheckoutSessionUpdated(ctx, invoiceID, string(update.Status), update.TransactionID)
	o.recorder.PaymentStatusReceived(ctx, invoiceID, status.Status, update.TransactionID)

	audit := docstore.Join(o.invoicesCollection, invoiceID, StatusesCollection)
	if _, err := o.docs.Add(ctx, audit, rawOf(status)); err != nil {
		return fmt.Errorf("append payment status to %s: %w", audit, err)
	}
	return nil
}

func (o *Orchestrator) findInvoice(ctx context.Context, invoiceID string) (domain.Invoice, error) {
	doc, err := o.docs.Get(ctx, docstore.Join(o.invoicesCollection, invoiceID))
	if err != nil {
		if errors.Is(err, docstore.ErrNotFound) {
			return nil, domain.NewServiceError(domain.ErrInvoiceNotFound, "invoice "+invoiceID, "INVOICE_NOT_FOUND")
		}
		return nil, fmt.Errorf("get invoice %s: %w", invoiceID, err)
	}
	return domain.Invoice(doc.Data), nil
}

// rawOf returns the status as received, falling back to its decoded fields.
func rawOf(status *liqpay.PaymentStatus) map[string]any {
	if status.Raw != nil {
		return status.Raw
	}
	b, err := json.Marshal(status)
	if err != nil {
		return map[string]any{"order_id": status.OrderID, "status": status.Status}
	}
	var out map[string]any
	_ = json.Unmarshal(b, &out)
	return out
}
