// Package silo provides a high-performance, embedded key/value data store
// designed for fast read and write operations, following the Bitcask
// append-only log design. It combines a per-segment in-memory hash table
// (keydir) with an append-only log structure on disk to achieve high
// throughput, and is designed for applications requiring durable, low
// latency local storage, such as caching, session management, and
// real-time data processing.
package silo

import (
	"context"

	"github.com/iamNilotpal/silo/internal/store"
	"github.com/iamNilotpal/silo/pkg/logger"
	"github.com/iamNilotpal/silo/pkg/options"
)

// DB is the primary entry point for interacting with a silo store. It
// encapsulates the underlying store engine and the configuration options
// this instance was opened with.
type DB struct {
	store   *store.Store
	options *options.Options
}

// Open creates and initializes a new DB instance rooted at the configured
// data directory, replaying any existing segments and starting the
// background compactor. The returned DB must be closed with Close when no
// longer needed.
func Open(ctx context.Context, service string, opts ...options.OptionFunc) (*DB, error) {
	log := logger.New(service)

	defaultOpts := options.NewDefaultOptions()
	for _, opt := range opts {
		opt(&defaultOpts)
	}

	st, err := store.Open(ctx, &store.Config{Options: &defaultOpts, Logger: log})
	if err != nil {
		return nil, err
	}

	return &DB{store: st, options: &defaultOpts}, nil
}

// Set stores a key-value pair in the database. If the key already exists,
// its value is updated. The operation is durable once written to the
// append-only log (immediately, if the configured sync policy is
// SyncAlways).
func (db *DB) Set(key, value string) error {
	return db.store.Set(key, value)
}

// Get retrieves the value associated with the given key. ok is false if
// the key was never set, or was deleted and not subsequently re-set.
func (db *DB) Get(key string) (value string, ok bool, err error) {
	return db.store.Get(key)
}

// Delete removes a key from the database. The operation appends a
// tombstone to the log; the corresponding space is reclaimed later by the
// background compactor.
func (db *DB) Delete(key string) error {
	return db.store.Delete(key)
}

// Close gracefully shuts down the DB, stopping the background compactor
// and closing every open segment file handle.
func (db *DB) Close() error {
	return db.store.Close()
}
