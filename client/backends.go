package client

import (
	"cloud.google.com/go/firestore"
	"github.com/jackc/pgx/v5/pgxpool"

	"github.com/fitstack/checkout-bridge/internal/platform/firestoredb"
	"github.com/fitstack/checkout-bridge/internal/platform/postgres"
)

// NewFirestore creates a Client on an existing Firestore client. The caller
// keeps ownership of fc.
func NewFirestore(fc *firestore.Client, opts ...Option) *Client {
	return New(firestoredb.New(fc), opts...)
}

// NewPostgres creates a Client on a pool whose database was prepared by the
// migrate command. Close stops the change listener; the pool stays open.
func NewPostgres(pool *pgxpool.Pool, opts ...Option) *Client {
	o := resolveOptions(opts)
	store := postgres.New(pool, o.logger)
	c := newClient(store, o)
	c.close = store.Close
	return c
}
