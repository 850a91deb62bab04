// Package cache defines deck's binary-cache contract (spec.md §6): a
// read-only collaborator the scheduler consults before building a package
// from source, and an in-memory implementation for tests.
package cache

import (
	"context"
	"io"

	"github.com/ebkalderon/deck/id"
)

// BinaryCache is a read-only source of prebuilt outputs. It never writes
// to the store; the scheduler does, after a successful Fetch.
type BinaryCache interface {
	// Query reports whether oid is available in the cache, without
	// fetching it.
	Query(ctx context.Context, oid id.OutputID) (bool, error)

	// Fetch streams the content of oid. Callers must Close the returned
	// reader.
	Fetch(ctx context.Context, oid id.OutputID) (io.ReadCloser, error)
}
