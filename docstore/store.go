// Package docstore defines the document store boundary used by the checkout bridge.
//
// Documents are plain field maps addressed by slash-separated paths of the form
// collection/id[/collection/id...]. Timestamps inside documents are time.Time
// values; every backend round-trips them.
package docstore

import (
	"context"
	"errors"
	"strings"
	"time"
)

var (
	// ErrNotFound is returned when a document does not exist.
	ErrNotFound = errors.New("docstore: document not found")

	// ErrAlreadyExists is returned by Create when a document already exists at the path.
	ErrAlreadyExists = errors.New("docstore: document already exists")

	// ErrInvalidPath is returned for paths that do not address a document or collection.
	ErrInvalidPath = errors.New("docstore: invalid path")
)

// Document is a stored document together with its write metadata.
type Document struct {
	Path       string
	ID         string
	Data       map[string]any
	CreateTime time.Time
	UpdateTime time.Time
}

// Snapshot is one event of a Subscription. Doc is nil when the watched
// document does not exist. Err is set when the stream failed; no further
// snapshots follow an error.
type Snapshot struct {
	Doc *Document
	Err error
}

// Subscription is a cancellable stream of snapshots.
type Subscription interface {
	// Snapshots returns the stream. It is closed after Stop.
	Snapshots() <-chan Snapshot
	// Stop cancels the stream. It is safe to call more than once.
	Stop()
}

// Filter is an equality condition on a top-level field.
type Filter struct {
	Field string
	Value any
}

// Where builds an equality filter.
func Where(field string, value any) Filter {
	return Filter{Field: field, Value: value}
}

// SetOptions controls Set behaviour.
type SetOptions struct {
	Merge bool
}

// SetOption customizes a Set call.
type SetOption func(*SetOptions)

// Merge makes Set update only the given fields, creating the document if absent.
func Merge() SetOption {
	return func(o *SetOptions) {
		o.Merge = true
	}
}

// ApplySetOptions folds opts into SetOptions. Backends call it.
func ApplySetOptions(opts ...SetOption) SetOptions {
	var o SetOptions
	for _, opt := range opts {
		if opt != nil {
			opt(&o)
		}
	}
	return o
}

// Store is the document store capability.
type Store interface {
	// Create writes a new document; it fails with ErrAlreadyExists if one exists.
	Create(ctx context.Context, path string, data map[string]any) error
	// Set writes a document, replacing it unless Merge is given.
	Set(ctx context.Context, path string, data map[string]any, opts ...SetOption) error
	// Get reads a document; it fails with ErrNotFound if absent.
	Get(ctx context.Context, path string) (*Document, error)
	// Add creates a document with a generated id in a collection and returns the id.
	Add(ctx context.Context, collection string, data map[string]any) (string, error)
	// Query returns the documents of a collection that match every filter.
	Query(ctx context.Context, collection string, filters ...Filter) ([]*Document, error)
	// Watch streams the state of one document, starting with its current state.
	Watch(ctx context.Context, path string) (Subscription, error)
	// WatchCreates streams documents as they are created in a collection.
	WatchCreates(ctx context.Context, collection string) (Subscription, error)
}

// Join builds a path from its segments.
func Join(segments ...string) string {
	return strings.Join(segments, "/")
}

// Split returns the collection path and the id of a document path.
func Split(path string) (collection, id string, err error) {
	path = strings.Trim(path, "/")
	segments := strings.Split(path, "/")
	if path == "" || len(segments)%2 != 0 {
		return "", "", ErrInvalidPath
	}
	for _, s := range segments {
		if s == "" {
			return "", "", ErrInvalidPath
		}
	}
	i := strings.LastIndex(path, "/")
	return path[:i], path[i+1:], nil
}

// ValidCollection reports whether path addresses a collection.
func ValidCollection(path string) bool {
	path = strings.Trim(path, "/")
	if path == "" {
		return false
	}
	segments := strings.Split(path, "/")
	for _, s := range segments {
		if s == "" {
			return false
		}
	}
	return len(segments)%2 == 1
}
