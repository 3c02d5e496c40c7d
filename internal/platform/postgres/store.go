// Package postgres implements docstore.Store on a PostgreSQL JSONB table.
// Change streams are driven by LISTEN/NOTIFY on the "documents" channel.
package postgres

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"log/slog"
	"strings"
	"sync"
	"time"

	"github.com/google/uuid"
	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgxpool"

	"github.com/fitstack/checkout-bridge/docstore"
)

const notifyChannel = "documents"

// Store keeps every document as one row of the documents table.
type Store struct {
	pool   *pgxpool.Pool
	logger *slog.Logger

	mu       sync.Mutex
	watchers map[*watcher]struct{}
	ready    chan struct{}
	cancel   context.CancelFunc
	done     chan struct{}
}

type watcher struct {
	path       string
	collection string
	feed       *docstore.Feed
}

var _ docstore.Store = (*Store)(nil)

// New creates a store on pool. A nil logger uses slog.Default.
func New(pool *pgxpool.Pool, logger *slog.Logger) *Store {
	if logger == nil {
		logger = slog.Default()
	}
	return &Store{
		pool:     pool,
		logger:   logger,
		watchers: make(map[*watcher]struct{}),
	}
}

// Close stops the change listener. The pool is owned by the caller.
func (s *Store) Close() {
	s.mu.Lock()
	cancel, done := s.cancel, s.done
	s.cancel = nil
	s.mu.Unlock()
	if cancel != nil {
		cancel()
		<-done
	}
}

// Create implements docstore.Store.
func (s *Store) Create(ctx context.Context, path string, data map[string]any) error {
	collection, id, err := docstore.Split(path)
	if err != nil {
		return err
	}
	b, err := encodeData(data)
	if err != nil {
		return err
	}
	tag, err := s.pool.Exec(ctx, `
		INSERT INTO documents (path, collection, id, data)
		VALUES ($1, $2, $3, $4::jsonb)
		ON CONFLICT (path) DO NOTHING`,
		path, collection, id, b)
	if err != nil {
		return fmt.Errorf("create document %s: %w", path, err)
	}
	if tag.RowsAffected() == 0 {
		return docstore.ErrAlreadyExists
	}
	return nil
}

// Set implements docstore.Store. Merge is applied to top-level fields.
func (s *Store) Set(ctx context.Context, path string, data map[string]any, opts ...docstore.SetOption) error {
	collection, id, err := docstore.Split(path)
	if err != nil {
		return err
	}
	b, err := encodeData(data)
	if err != nil {
		return err
	}
	update := "EXCLUDED.data"
	if docstore.ApplySetOptions(opts...).Merge {
		update = "documents.data || EXCLUDED.data"
	}
	_, err = s.pool.Exec(ctx, `
		INSERT INTO documents (path, collection, id, data)
		VALUES ($1, $2, $3, $4::jsonb)
		ON CONFLICT (path) DO UPDATE SET data = `+update+`, update_time = now()`,
		path, collection, id, b)
	if err != nil {
		return fmt.Errorf("set document %s: %w", path, err)
	}
	return nil
}

// Get implements docstore.Store.
func (s *Store) Get(ctx context.Context, path string) (*docstore.Document, error) {
	if _, _, err := docstore.Split(path); err != nil {
		return nil, err
	}
	row := s.pool.QueryRow(ctx, `
		SELECT path, id, data, create_time, update_time
		FROM documents WHERE path = $1`, path)
	doc, err := scanDocument(row)
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return nil, docstore.ErrNotFound
		}
		return nil, fmt.Errorf("get document %s: %w", path, err)
	}
	return doc, nil
}

// Add implements docstore.Store.
func (s *Store) Add(ctx context.Context, collection string, data map[string]any) (string, error) {
	if !docstore.ValidCollection(collection) {
		return "", docstore.ErrInvalidPath
	}
	id := uuid.NewString()
	if err := s.Create(ctx, docstore.Join(collection, id), data); err != nil {
		return "", err
	}
	return id, nil
}

// Query implements docstore.Store.
func (s *Store) Query(ctx context.Context, collection string, filters ...docstore.Filter) ([]*docstore.Document, error) {
	if !docstore.ValidCollection(collection) {
		return nil, docstore.ErrInvalidPath
	}
	sql, args, err := buildQuery(collection, filters)
	if err != nil {
		return nil, err
	}
	rows, err := s.pool.Query(ctx, sql, args...)
	if err != nil {
		return nil, fmt.Errorf("query %s: %w", collection, err)
	}
	defer rows.Close()

	var docs []*docstore.Document
	for rows.Next() {
		doc, err := scanDocument(rows)
		if err != nil {
			return nil, fmt.Errorf("scan %s: %w", collection, err)
		}
		docs = append(docs, doc)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("query %s: %w", collection, err)
	}
	return docs, nil
}

// Watch implements docstore.Store.
func (s *Store) Watch(ctx context.Context, path string) (docstore.Subscription, error) {
	if _, _, err := docstore.Split(path); err != nil {
		return nil, err
	}
	w, err := s.register(ctx, &watcher{path: path})
	if err != nil {
		return nil, err
	}

	doc, err := s.Get(ctx, path)
	switch {
	case errors.Is(err, docstore.ErrNotFound):
		w.feed.Push(docstore.Snapshot{})
	case err != nil:
		w.feed.Stop()
		return nil, err
	default:
		w.feed.Push(docstore.Snapshot{Doc: doc})
	}
	return w.feed, nil
}

// WatchCreates implements docstore.Store.
func (s *Store) WatchCreates(ctx context.Context, collection string) (docstore.Subscription, error) {
	if !docstore.ValidCollection(collection) {
		return nil, docstore.ErrInvalidPath
	}
	w, err := s.register(ctx, &watcher{collection: collection})
	if err != nil {
		return nil, err
	}
	return w.feed, nil
}

func (s *Store) register(ctx context.Context, w *watcher) (*watcher, error) {
	w.feed = docstore.NewFeed(func() { s.unregister(w) })

	s.mu.Lock()
	s.watchers[w] = struct{}{}
	if s.cancel == nil {
		lctx, cancel := context.WithCancel(context.Background())
		s.cancel = cancel
		s.ready = make(chan struct{})
		s.done = make(chan struct{})
		go s.listen(lctx, s.ready, s.done)
	}
	ready := s.ready
	s.mu.Unlock()

	// Writes issued after Watch returns must be observed.
	select {
	case <-ready:
		return w, nil
	case <-ctx.Done():
		w.feed.Stop()
		return nil, ctx.Err()
	}
}

func (s *Store) unregister(w *watcher) {
	s.mu.Lock()
	defer s.mu.Unlock()
	delete(s.watchers, w)
}

type notification struct {
	Op         string `json:"op"`
	Path       string `json:"path"`
	Collection string `json:"collection"`
}

func (s *Store) listen(ctx context.Context, ready, done chan struct{}) {
	defer close(done)
	signalled := false
	signal := func() {
		if !signalled {
			signalled = true
			close(ready)
		}
	}
	for {
		err := s.listenOnce(ctx, signal)
		if ctx.Err() != nil {
			return
		}
		s.logger.Error("document listener failed", "error", err)
		s.failAll(err)
		signal()

		select {
		case <-ctx.Done():
			return
		case <-time.After(time.Second):
		}
	}
}

func (s *Store) listenOnce(ctx context.Context, onListening func()) error {
	conn, err := s.pool.Acquire(ctx)
	if err != nil {
		return fmt.Errorf("acquire listener connection: %w", err)
	}
	defer conn.Release()

	if _, err := conn.Exec(ctx, "LISTEN "+notifyChannel); err != nil {
		return fmt.Errorf("listen: %w", err)
	}
	onListening()

	for {
		n, err := conn.Conn().WaitForNotification(ctx)
		if err != nil {
			return fmt.Errorf("wait for notification: %w", err)
		}
		var msg notification
		if err := json.Unmarshal([]byte(n.Payload), &msg); err != nil {
			s.logger.Warn("malformed document notification", "payload", n.Payload, "error", err)
			continue
		}
		s.dispatch(ctx, msg)
	}
}

func (s *Store) dispatch(ctx context.Context, msg notification) {
	var targets []*watcher
	s.mu.Lock()
	for w := range s.watchers {
		if w.path != "" && w.path == msg.Path {
			targets = append(targets, w)
		}
		if w.collection != "" && w.collection == msg.Collection && msg.Op == "INSERT" {
			targets = append(targets, w)
		}
	}
	s.mu.Unlock()
	if len(targets) == 0 {
		return
	}

	doc, err := s.Get(ctx, msg.Path)
	if err != nil {
		s.logger.Warn("fetch changed document", "path", msg.Path, "error", err)
		return
	}
	for _, w := range targets {
		w.feed.Push(docstore.Snapshot{Doc: doc.Clone()})
	}
}

func (s *Store) failAll(err error) {
	s.mu.Lock()
	failed := make([]*watcher, 0, len(s.watchers))
	for w := range s.watchers {
		failed = append(failed, w)
	}
	s.watchers = make(map[*watcher]struct{})
	s.mu.Unlock()

	for _, w := range failed {
		w.feed.Push(docstore.Snapshot{Err: err})
	}
}

func buildQuery(collection string, filters []docstore.Filter) (string, []any, error) {
	var sb strings.Builder
	sb.WriteString(`SELECT path, id, data, create_time, update_time FROM documents WHERE collection = $1`)
	args := []any{collection}
	for _, f := range filters {
		b, err := json.Marshal(encodeValue(f.Value))
		if err != nil {
			return "", nil, fmt.Errorf("encode filter %s: %w", f.Field, err)
		}
		args = append(args, f.Field, b)
		fmt.Fprintf(&sb, " AND data -> $%d = $%d::jsonb", len(args)-1, len(args))
	}
	sb.WriteString(" ORDER BY path")
	return sb.String(), args, nil
}

func scanDocument(row pgx.Row) (*docstore.Document, error) {
	var (
		doc docstore.Document
		raw []byte
	)
	if err := row.Scan(&doc.Path, &doc.ID, &raw, &doc.CreateTime, &doc.UpdateTime); err != nil {
		return nil, err
	}
	data, err := decodeData(raw)
	if err != nil {
		return nil, err
	}
	doc.Data = data
	return &doc, nil
}
