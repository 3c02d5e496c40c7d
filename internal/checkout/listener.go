package checkout

import (
	"context"
	"fmt"
	"log/slog"
	"sync"
	"time"

	"github.com/fitstack/checkout-bridge/docstore"
	"github.com/fitstack/checkout-bridge/internal/domain"
)

// DefaultRetryDelay is the wait before resubscribing after a broken stream.
const DefaultRetryDelay = time.Second

// InvoiceHandler reacts to a created invoice.
type InvoiceHandler interface {
	OnInvoiceCreated(ctx context.Context, invoice domain.Invoice, invoiceID string) error
	HasCheckoutSession(ctx context.Context, invoice domain.Invoice, invoiceID string) (bool, error)
}

// Listener runs an InvoiceHandler for every invoice created in a collection.
// Invoices stored while no listener was running are picked up each time the
// listener subscribes.
type Listener struct {
	docs       docstore.Store
	collection string
	handler    InvoiceHandler
	logger     *slog.Logger
	retryDelay time.Duration
	wg         sync.WaitGroup

	mu       sync.Mutex
	inflight map[string]struct{}
}

// NewListener creates a listener on the invoices collection.
func NewListener(docs docstore.Store, collection string, handler InvoiceHandler, logger *slog.Logger) *Listener {
	if logger == nil {
		logger = slog.Default()
	}
	return &Listener{
		docs:       docs,
		collection: collection,
		handler:    handler,
		logger:     logger,
		retryDelay: DefaultRetryDelay,
		inflight:   make(map[string]struct{}),
	}
}

// Run blocks until ctx is cancelled. A broken stream is resubscribed after a
// delay; an initial subscription failure is returned. In-flight checkouts are
// allowed to finish before Run returns.
func (l *Listener) Run(ctx context.Context) error {
	defer l.wg.Wait()

	sub, err := l.docs.WatchCreates(ctx, l.collection)
	if err != nil {
		return fmt.Errorf("watch %s: %w", l.collection, err)
	}
	for {
		err := l.serve(ctx, sub)
		if err == nil || ctx.Err() != nil {
			return nil
		}
		l.logger.Error("invoice stream failed, resubscribing", "collection", l.collection, "error", err)

		for {
			select {
			case <-ctx.Done():
				return nil
			case <-time.After(l.retryDelay):
			}
			if sub, err = l.docs.WatchCreates(ctx, l.collection); err == nil {
				break
			}
			l.logger.Error("error resubscribing", "collection", l.collection, "error", err)
		}
	}
}

// serve consumes one subscription and stops it. It returns a stream error, or
// nil when ctx ends or the store closes the stream.
func (l *Listener) serve(ctx context.Context, sub docstore.Subscription) error {
	defer sub.Stop()

	// The subscription is already open, so nothing created during the scan is lost.
	backlog, err := l.drainBacklog(ctx)
	if err != nil {
		return err
	}

	l.logger.Info("listening for invoices", "collection", l.collection)
	for {
		select {
		case <-ctx.Done():
			return nil
		case snap, ok := <-sub.Snapshots():
			if !ok {
				return nil
			}
			if snap.Err != nil {
				return fmt.Errorf("watch %s: %w", l.collection, snap.Err)
			}
			if snap.Doc == nil {
				continue
			}
			if _, seen := backlog[snap.Doc.ID]; seen {
				delete(backlog, snap.Doc.ID)
				continue
			}
			l.dispatch(context.WithoutCancel(ctx), snap.Doc, false)
		}
	}
}

// drainBacklog dispatches the invoices already in the collection and returns
// their ids.
func (l *Listener) drainBacklog(ctx context.Context) (map[string]struct{}, error) {
	docs, err := l.docs.Query(ctx, l.collection)
	if err != nil {
		return nil, fmt.Errorf("list %s: %w", l.collection, err)
	}
	seen := make(map[string]struct{}, len(docs))
	for _, doc := range docs {
		seen[doc.ID] = struct{}{}
		l.dispatch(context.WithoutCancel(ctx), doc, true)
	}
	if len(docs) > 0 {
		l.logger.Info("checking invoice backlog", "collection", l.collection, "count", len(docs))
	}
	return seen, nil
}

func (l *Listener) dispatch(ctx context.Context, doc *docstore.Document, checkExisting bool) {
	l.mu.Lock()
	if _, busy := l.inflight[doc.ID]; busy {
		l.mu.Unlock()
		return
	}
	l.inflight[doc.ID] = struct{}{}
	l.mu.Unlock()

	l.wg.Add(1)
	go func() {
		defer l.wg.Done()
		defer l.release(doc.ID)

		invoice := domain.Invoice(doc.Data)
		if checkExisting {
			done, err := l.handler.HasCheckoutSession(ctx, invoice, doc.ID)
			if err != nil {
				l.logger.Error("error checking checkout session", "invoice_id", doc.ID, "error", err)
				return
			}
			if done {
				return
			}
		}
		if err := l.handler.OnInvoiceCreated(ctx, invoice, doc.ID); err != nil {
			l.logger.Error("error checking out invoice", "invoice_id", doc.ID, "error", err)
		}
	}()
}

func (l *Listener) release(invoiceID string) {
	l.mu.Lock()
	defer l.mu.Unlock()
	delete(l.inflight, invoiceID)
}
