package session

import (
	"context"
	"errors"
	"fmt"
	"log/slog"

	"github.com/fitstack/checkout-bridge/docstore"
	"github.com/fitstack/checkout-bridge/internal/domain"
	"github.com/fitstack/checkout-bridge/internal/events"
	"github.com/fitstack/checkout-bridge/internal/tokens"
)

// Store reads and writes checkout sessions. Session documents live at
// resolve(template, tokens)/<invoiceId>.
type Store struct {
	docs     docstore.Store
	template string
	recorder *events.Recorder
	logger   *slog.Logger
}

// NewStore creates a session store. recorder may be nil.
func NewStore(docs docstore.Store, template string, recorder *events.Recorder, logger *slog.Logger) *Store {
	if logger == nil {
		logger = slog.Default()
	}
	return &Store{
		docs:     docs,
		template: template,
		recorder: recorder,
		logger:   logger,
	}
}

// Collection resolves the sessions collection for a token map.
func (s *Store) Collection(toks map[string]string) string {
	return tokens.Resolve(s.template, toks)
}

// Path resolves the session document path of invoiceID.
func (s *Store) Path(invoiceID string, toks map[string]string) string {
	return docstore.Join(s.Collection(toks), invoiceID)
}

// PathFor resolves the session path from the invoice's own fields.
func (s *Store) PathFor(invoice domain.Invoice, invoiceID string) string {
	return s.Path(invoiceID, tokens.FromDocument(invoice))
}

// CreatePending creates the session of a successfully started checkout.
func (s *Store) CreatePending(ctx context.Context, invoice domain.Invoice, invoiceID, paymentPageURL string) error {
	err := s.create(ctx, invoice, &domain.CheckoutSession{
		Status:         domain.StatusPending,
		PaymentPageURL: paymentPageURL,
		InvoiceID:      invoiceID,
	})
	if err != nil {
		return err
	}
	s.recorder.CheckoutSessionCreated(ctx, invoiceID, paymentPageURL)
	return nil
}

// CreateFailed creates the session of a checkout that could not be started.
func (s *Store) CreateFailed(ctx context.Context, invoice domain.Invoice, invoiceID string, failure domain.SessionError) error {
	err := s.create(ctx, invoice, &domain.CheckoutSession{
		Status:    domain.StatusFailure,
		InvoiceID: invoiceID,
		Error:     &failure,
	})
	if err != nil {
		return err
	}
	s.recorder.CheckoutSessionCreated(ctx, invoiceID, "")
	return nil
}

func (s *Store) create(ctx context.Context, invoice domain.Invoice, session *domain.CheckoutSession) error {
	path := s.PathFor(invoice, session.InvoiceID)
	if err := s.docs.Create(ctx, path, ToDocument(session)); err != nil {
		if errors.Is(err, docstore.ErrAlreadyExists) {
			return fmt.Errorf("%w: %s", domain.ErrSessionExists, path)
		}
		return fmt.Errorf("create session %s: %w", path, err)
	}
	s.logger.Debug("checkout session created", "invoice_id", session.InvoiceID, "path", path, "status", session.Status)
	return nil
}

// MergeStatus merges a status update into the session, creating it if needed.
// Fields outside the update are preserved.
func (s *Store) MergeStatus(ctx context.Context, invoice domain.Invoice, invoiceID string, update domain.StatusUpdate) error {
	path := s.PathFor(invoice, invoiceID)
	if err := s.docs.Set(ctx, path, updateDocument(invoiceID, update), docstore.Merge()); err != nil {
		return fmt.Errorf("merge session status %s: %w", path, err)
	}
	return nil
}

// Fetch reads the session of invoiceID.
func (s *Store) Fetch(ctx context.Context, invoiceID string, toks map[string]string) (*domain.CheckoutSession, error) {
	path := s.Path(invoiceID, toks)
	doc, err := s.docs.Get(ctx, path)
	if err != nil {
		if errors.Is(err, docstore.ErrNotFound) {
			return nil, fmt.Errorf("%w: %s", domain.ErrSessionNotFound, path)
		}
		return nil, fmt.Errorf("fetch session %s: %w", path, err)
	}
	return FromDocument(doc), nil
}

// Exists reports whether the session of invoice has been written.
func (s *Store) Exists(ctx context.Context, invoice domain.Invoice, invoiceID string) (bool, error) {
	path := s.PathFor(invoice, invoiceID)
	if _, err := s.docs.Get(ctx, path); err != nil {
		if errors.Is(err, docstore.ErrNotFound) {
			return false, nil
		}
		return false, fmt.Errorf("get session %s: %w", path, err)
	}
	return true, nil
}

// Cancel marks the session of invoiceID as cancelled.
func (s *Store) Cancel(ctx context.Context, invoiceID string, toks map[string]string) error {
	path := s.Path(invoiceID, toks)
	data := map[string]any{FieldStatus: string(domain.StatusCancelled)}
	if err := s.docs.Set(ctx, path, data, docstore.Merge()); err != nil {
		return fmt.Errorf("cancel session %s: %w", path, err)
	}
	return nil
}

// FindByStatus lists the sessions with status in the resolved collection.
func (s *Store) FindByStatus(ctx context.Context, status domain.SessionStatus, toks map[string]string) ([]*domain.CheckoutSession, error) {
	collection := s.Collection(toks)
	docs, err := s.docs.Query(ctx, collection, docstore.Where(FieldStatus, string(status)))
	if err != nil {
		return nil, fmt.Errorf("find sessions in %s: %w", collection, err)
	}
	sessions := make([]*domain.CheckoutSession, 0, len(docs))
	for _, doc := range docs {
		sessions = append(sessions, FromDocument(doc))
	}
	return sessions, nil
}
