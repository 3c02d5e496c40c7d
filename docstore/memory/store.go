// Package memory is an in-process document store. It backs tests and local runs.
package memory

import (
	"context"
	"reflect"
	"sort"
	"sync"
	"time"

	"github.com/google/uuid"

	"github.com/fitstack/checkout-bridge/docstore"
)

type watchKind int

const (
	watchDocument watchKind = iota
	watchCreates
)

type watcher struct {
	kind   watchKind
	target string
	feed   *docstore.Feed
}

// Store keeps documents in a map guarded by a mutex.
type Store struct {
	mu       sync.Mutex
	docs     map[string]*docstore.Document
	watchers map[*watcher]struct{}

	now   func() time.Time
	newID func() string
}

// Option customizes a Store.
type Option func(*Store)

// WithClock overrides the write timestamp source.
func WithClock(now func() time.Time) Option {
	return func(s *Store) {
		s.now = now
	}
}

// WithIDGenerator overrides the generator used by Add.
func WithIDGenerator(newID func() string) Option {
	return func(s *Store) {
		s.newID = newID
	}
}

// New creates an empty store.
func New(opts ...Option) *Store {
	s := &Store{
		docs:     make(map[string]*docstore.Document),
		watchers: make(map[*watcher]struct{}),
		now:      time.Now,
		newID:    uuid.NewString,
	}
	for _, opt := range opts {
		opt(s)
	}
	return s
}

var _ docstore.Store = (*Store)(nil)

// Create implements docstore.Store.
func (s *Store) Create(_ context.Context, path string, data map[string]any) error {
	_, id, err := docstore.Split(path)
	if err != nil {
		return err
	}

	s.mu.Lock()
	defer s.mu.Unlock()

	if _, ok := s.docs[path]; ok {
		return docstore.ErrAlreadyExists
	}
	now := s.now()
	doc := &docstore.Document{
		Path:       path,
		ID:         id,
		Data:       docstore.CloneData(data),
		CreateTime: now,
		UpdateTime: now,
	}
	if doc.Data == nil {
		doc.Data = map[string]any{}
	}
	s.docs[path] = doc
	s.notifyLocked(doc, true)
	return nil
}

// Set implements docstore.Store. Merge is applied to top-level fields.
func (s *Store) Set(_ context.Context, path string, data map[string]any, opts ...docstore.SetOption) error {
	_, id, err := docstore.Split(path)
	if err != nil {
		return err
	}
	o := docstore.ApplySetOptions(opts...)

	s.mu.Lock()
	defer s.mu.Unlock()

	now := s.now()
	doc, exists := s.docs[path]
	if !exists {
		doc = &docstore.Document{Path: path, ID: id, Data: map[string]any{}, CreateTime: now}
		s.docs[path] = doc
	}
	if !o.Merge {
		doc.Data = map[string]any{}
	}
	for k, v := range docstore.CloneData(data) {
		doc.Data[k] = v
	}
	doc.UpdateTime = now
	s.notifyLocked(doc, !exists)
	return nil
}

// Get implements docstore.Store.
func (s *Store) Get(_ context.Context, path string) (*docstore.Document, error) {
	if _, _, err := docstore.Split(path); err != nil {
		return nil, err
	}

	s.mu.Lock()
	defer s.mu.Unlock()

	doc, ok := s.docs[path]
	if !ok {
		return nil, docstore.ErrNotFound
	}
	return doc.Clone(), nil
}

// Add implements docstore.Store.
func (s *Store) Add(ctx context.Context, collection string, data map[string]any) (string, error) {
	if !docstore.ValidCollection(collection) {
		return "", docstore.ErrInvalidPath
	}
	id := s.newID()
	if err := s.Create(ctx, docstore.Join(collection, id), data); err != nil {
		return "", err
	}
	return id, nil
}

// Query implements docstore.Store. Results are ordered by path.
func (s *Store) Query(_ context.Context, collection string, filters ...docstore.Filter) ([]*docstore.Document, error) {
	if !docstore.ValidCollection(collection) {
		return nil, docstore.ErrInvalidPath
	}

	s.mu.Lock()
	defer s.mu.Unlock()

	var out []*docstore.Document
	for path, doc := range s.docs {
		parent, _, err := docstore.Split(path)
		if err != nil || parent != collection {
			continue
		}
		if matches(doc.Data, filters) {
			out = append(out, doc.Clone())
		}
	}
	sort.Slice(out, func(i, j int) bool { return out[i].Path < out[j].Path })
	return out, nil
}

// Watch implements docstore.Store.
func (s *Store) Watch(_ context.Context, path string) (docstore.Subscription, error) {
	if _, _, err := docstore.Split(path); err != nil {
		return nil, err
	}
	w := &watcher{kind: watchDocument, target: path}
	w.feed = docstore.NewFeed(func() { s.unregister(w) })

	s.mu.Lock()
	defer s.mu.Unlock()

	s.watchers[w] = struct{}{}
	w.feed.Push(docstore.Snapshot{Doc: s.docs[path].Clone()})
	return w.feed, nil
}

// WatchCreates implements docstore.Store.
func (s *Store) WatchCreates(_ context.Context, collection string) (docstore.Subscription, error) {
	if !docstore.ValidCollection(collection) {
		return nil, docstore.ErrInvalidPath
	}
	w := &watcher{kind: watchCreates, target: collection}
	w.feed = docstore.NewFeed(func() { s.unregister(w) })

	s.mu.Lock()
	s.watchers[w] = struct{}{}
	s.mu.Unlock()
	return w.feed, nil
}

// Fail pushes err to every watcher of path and stops them. It simulates a
// broken listener in tests.
func (s *Store) Fail(path string, err error) {
	s.mu.Lock()
	var failed []*watcher
	for w := range s.watchers {
		if w.target == path {
			w.feed.Push(docstore.Snapshot{Err: err})
			failed = append(failed, w)
		}
	}
	s.mu.Unlock()
	for _, w := range failed {
		s.unregister(w)
	}
}

// Len returns the number of stored documents.
func (s *Store) Len() int {
	s.mu.Lock()
	defer s.mu.Unlock()
	return len(s.docs)
}

// Watchers returns the number of live subscriptions.
func (s *Store) Watchers() int {
	s.mu.Lock()
	defer s.mu.Unlock()
	return len(s.watchers)
}

func (s *Store) unregister(w *watcher) {
	s.mu.Lock()
	defer s.mu.Unlock()
	delete(s.watchers, w)
}

func (s *Store) notifyLocked(doc *docstore.Document, created bool) {
	parent, _, _ := docstore.Split(doc.Path)
	for w := range s.watchers {
		switch {
		case w.kind == watchDocument && w.target == doc.Path:
			w.feed.Push(docstore.Snapshot{Doc: doc.Clone()})
		case w.kind == watchCreates && created && w.target == parent:
			w.feed.Push(docstore.Snapshot{Doc: doc.Clone()})
		}
	}
}

func matches(data map[string]any, filters []docstore.Filter) bool {
	for _, f := range filters {
		v, ok := data[f.Field]
		if !ok || !reflect.DeepEqual(v, f.Value) {
			return false
		}
	}
	return true
}
