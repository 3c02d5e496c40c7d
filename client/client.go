// Package client lets application code place invoices and follow their
// checkout sessions without touching the document store directly.
package client

import (
	"log/slog"
	"time"

	"github.com/fitstack/checkout-bridge/docstore"
	"github.com/fitstack/checkout-bridge/internal/domain"
)

// Defaults applied when no option overrides them.
const (
	DefaultInvoicesCollection = "invoices"
	DefaultSessionsCollection = "checkout-sessions"
	DefaultTimeout            = 30 * time.Second
)

// Store is the document store the client talks to.
type Store = docstore.Store

// Types returned by the payments client.
type (
	Invoice         = domain.Invoice
	CheckoutSession = domain.CheckoutSession
	SessionStatus   = domain.SessionStatus
	SessionError    = domain.SessionError
)

// Checkout session states.
const (
	StatusPending   = domain.StatusPending
	StatusSuccess   = domain.StatusSuccess
	StatusFailure   = domain.StatusFailure
	StatusCancelled = domain.StatusCancelled
)

// Client is the entry point of the checkout bridge client.
type Client struct {
	Payments *PaymentsClient

	close func()
}

// Close releases the resources of a store opened by the client itself.
// It is a no-op for clients created with New.
func (c *Client) Close() {
	if c.close != nil {
		c.close()
	}
}

type options struct {
	invoicesCollection string
	sessionsCollection string
	timeout            time.Duration
	paymentsTimeout    time.Duration
	logger             *slog.Logger
}

// Option configures a Client.
type Option func(*options)

// WithInvoicesCollection sets the collection invoices are placed in.
func WithInvoicesCollection(collection string) Option {
	return func(o *options) {
		o.invoicesCollection = collection
	}
}

// WithSessionsCollection sets the checkout sessions collection.
// The value may contain {field} tokens resolved per call.
func WithSessionsCollection(template string) Option {
	return func(o *options) {
		o.sessionsCollection = template
	}
}

// WithTimeout sets the default timeout of every operation that waits.
func WithTimeout(d time.Duration) Option {
	return func(o *options) {
		o.timeout = d
	}
}

// WithPaymentsTimeout sets the default wait timeout of the payments client.
// It takes precedence over WithTimeout.
func WithPaymentsTimeout(d time.Duration) Option {
	return func(o *options) {
		o.paymentsTimeout = d
	}
}

// WithLogger sets the logger used by the client.
func WithLogger(logger *slog.Logger) Option {
	return func(o *options) {
		o.logger = logger
	}
}

// New creates a Client backed by store.
func New(store Store, opts ...Option) *Client {
	return newClient(store, resolveOptions(opts))
}

func resolveOptions(opts []Option) options {
	o := options{
		invoicesCollection: DefaultInvoicesCollection,
		sessionsCollection: DefaultSessionsCollection,
	}
	for _, opt := range opts {
		opt(&o)
	}
	if o.logger == nil {
		o.logger = slog.Default()
	}
	return o
}

func newClient(store Store, o options) *Client {
	timeout := o.paymentsTimeout
	if timeout <= 0 {
		timeout = o.timeout
	}

	return &Client{
		Payments: newPaymentsClient(store, o.invoicesCollection, o.sessionsCollection, timeout, o.logger),
	}
}
