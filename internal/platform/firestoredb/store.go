// Package firestoredb implements docstore.Store on Cloud Firestore.
package firestoredb

import (
	"context"
	"errors"
	"fmt"

	"cloud.google.com/go/firestore"
	"google.golang.org/api/iterator"
	"google.golang.org/api/option"
	"google.golang.org/grpc/codes"
	"google.golang.org/grpc/status"

	"github.com/fitstack/checkout-bridge/docstore"
)

// Store adapts a Firestore client.
type Store struct {
	client *firestore.Client
}

var _ docstore.Store = (*Store)(nil)

// New wraps an existing client.
func New(client *firestore.Client) *Store {
	return &Store{client: client}
}

// Open creates a Firestore client for projectID. When the FIRESTORE_EMULATOR_HOST
// variable is set the client talks to the emulator. An empty projectID is
// detected from the credentials.
func Open(ctx context.Context, projectID string, opts ...option.ClientOption) (*Store, error) {
	if projectID == "" {
		projectID = firestore.DetectProjectID
	}
	client, err := firestore.NewClient(ctx, projectID, opts...)
	if err != nil {
		return nil, fmt.Errorf("create firestore client: %w", err)
	}
	return New(client), nil
}

// Close releases the underlying client.
func (s *Store) Close() error {
	return s.client.Close()
}

// Create implements docstore.Store.
func (s *Store) Create(ctx context.Context, path string, data map[string]any) error {
	ref, err := s.doc(path)
	if err != nil {
		return err
	}
	if _, err := ref.Create(ctx, data); err != nil {
		return mapError(err)
	}
	return nil
}

// Set implements docstore.Store.
func (s *Store) Set(ctx context.Context, path string, data map[string]any, opts ...docstore.SetOption) error {
	ref, err := s.doc(path)
	if err != nil {
		return err
	}
	var setOpts []firestore.SetOption
	if docstore.ApplySetOptions(opts...).Merge {
		setOpts = append(setOpts, firestore.MergeAll)
	}
	if _, err := ref.Set(ctx, data, setOpts...); err != nil {
		return mapError(err)
	}
	return nil
}

// Get implements docstore.Store.
func (s *Store) Get(ctx context.Context, path string) (*docstore.Document, error) {
	ref, err := s.doc(path)
	if err != nil {
		return nil, err
	}
	snap, err := ref.Get(ctx)
	if err != nil {
		return nil, mapError(err)
	}
	return toDocument(path, snap), nil
}

// Add implements docstore.Store.
func (s *Store) Add(ctx context.Context, collection string, data map[string]any) (string, error) {
	coll, err := s.collection(collection)
	if err != nil {
		return "", err
	}
	ref, _, err := coll.Add(ctx, data)
	if err != nil {
		return "", mapError(err)
	}
	return ref.ID, nil
}

// Query implements docstore.Store.
func (s *Store) Query(ctx context.Context, collection string, filters ...docstore.Filter) ([]*docstore.Document, error) {
	coll, err := s.collection(collection)
	if err != nil {
		return nil, err
	}
	q := coll.Query
	for _, f := range filters {
		q = q.Where(f.Field, "==", f.Value)
	}
	snaps, err := q.Documents(ctx).GetAll()
	if err != nil {
		return nil, mapError(err)
	}
	docs := make([]*docstore.Document, 0, len(snaps))
	for _, snap := range snaps {
		docs = append(docs, toDocument(docstore.Join(collection, snap.Ref.ID), snap))
	}
	return docs, nil
}

// Watch implements docstore.Store.
func (s *Store) Watch(ctx context.Context, path string) (docstore.Subscription, error) {
	ref, err := s.doc(path)
	if err != nil {
		return nil, err
	}
	ctx, cancel := context.WithCancel(ctx)
	feed := docstore.NewFeed(cancel)
	it := ref.Snapshots(ctx)

	go func() {
		defer it.Stop()
		for {
			snap, err := it.Next()
			if err != nil {
				if !stopped(ctx, err) {
					feed.Push(docstore.Snapshot{Err: mapError(err)})
				}
				return
			}
			var doc *docstore.Document
			if snap.Exists() {
				doc = toDocument(path, snap)
			}
			if !feed.Push(docstore.Snapshot{Doc: doc}) {
				return
			}
		}
	}()
	return feed, nil
}

// WatchCreates implements docstore.Store. Documents present when the watch
// starts are not reported.
func (s *Store) WatchCreates(ctx context.Context, collection string) (docstore.Subscription, error) {
	coll, err := s.collection(collection)
	if err != nil {
		return nil, err
	}
	ctx, cancel := context.WithCancel(ctx)
	feed := docstore.NewFeed(cancel)
	it := coll.Query.Snapshots(ctx)

	go func() {
		defer it.Stop()
		initial := true
		for {
			qs, err := it.Next()
			if err != nil {
				if !stopped(ctx, err) {
					feed.Push(docstore.Snapshot{Err: mapError(err)})
				}
				return
			}
			if initial {
				initial = false
				continue
			}
			for _, change := range qs.Changes {
				if change.Kind != firestore.DocumentAdded {
					continue
				}
				doc := toDocument(docstore.Join(collection, change.Doc.Ref.ID), change.Doc)
				if !feed.Push(docstore.Snapshot{Doc: doc}) {
					return
				}
			}
		}
	}()
	return feed, nil
}

func (s *Store) doc(path string) (*firestore.DocumentRef, error) {
	if _, _, err := docstore.Split(path); err != nil {
		return nil, err
	}
	ref := s.client.Doc(path)
	if ref == nil {
		return nil, docstore.ErrInvalidPath
	}
	return ref, nil
}

func (s *Store) collection(path string) (*firestore.CollectionRef, error) {
	if !docstore.ValidCollection(path) {
		return nil, docstore.ErrInvalidPath
	}
	coll := s.client.Collection(path)
	if coll == nil {
		return nil, docstore.ErrInvalidPath
	}
	return coll, nil
}

func toDocument(path string, snap *firestore.DocumentSnapshot) *docstore.Document {
	return &docstore.Document{
		Path:       path,
		ID:         snap.Ref.ID,
		Data:       snap.Data(),
		CreateTime: snap.CreateTime,
		UpdateTime: snap.UpdateTime,
	}
}

func stopped(ctx context.Context, err error) bool {
	if errors.Is(err, iterator.Done) || ctx.Err() != nil {
		return true
	}
	return status.Code(err) == codes.Canceled
}

func mapError(err error) error {
	switch status.Code(err) {
	case codes.NotFound:
		return fmt.Errorf("%w: %v", docstore.ErrNotFound, err)
	case codes.AlreadyExists:
		return fmt.Errorf("%w: %v", docstore.ErrAlreadyExists, err)
	default:
		return err
	}
}
