// Package repository defines deck's repository contract (spec.md §6): a
// read-only source of manifests not yet present in the store, and an
// in-memory implementation for tests.
package repository

import (
	"context"

	"github.com/ebkalderon/deck/id"
	"github.com/ebkalderon/deck/manifest"
)

// Repository is a read-only source of manifests.
type Repository interface {
	// Query resolves mid to a Manifest, or reports it unavailable.
	Query(ctx context.Context, mid id.ManifestID) (*manifest.Manifest, error)
}
