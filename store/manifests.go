package store

import (
	"context"

	"github.com/ebkalderon/deck/id"
	"github.com/ebkalderon/deck/manifest"
	"github.com/ebkalderon/deck/storagedriver"
)

// Manifests is the manifest directory adapter (spec.md §4.2): manifests are
// addressed by the canonical ManifestID derived from their own serialized
// TOML, so a manifest's precomputed and final IDs are always equal.
type Manifests struct {
	dir *Dir
}

// NewManifests wraps dir as a manifest adapter.
func NewManifests(dir *Dir) *Manifests { return &Manifests{dir: dir} }

// PrecomputeID computes m's canonical ManifestID. Since Manifest.ID is a
// pure function of the manifest's own assembled contents, this is also the
// final ID the manifest will be written under.
func (a *Manifests) PrecomputeID(m *manifest.Manifest) (id.ManifestID, error) {
	return m.ID()
}

// Write stores m under its canonical ID, returning existed=true if it was
// already present.
func (a *Manifests) Write(ctx context.Context, m *manifest.Manifest) (id.ManifestID, bool, error) {
	mid, err := a.PrecomputeID(m)
	if err != nil {
		return id.ManifestID{}, false, err
	}

	encoded, err := m.Encode()
	if err != nil {
		return id.ManifestID{}, false, err
	}

	_, existed, err := a.dir.Write(ctx, CategoryManifests, mid.Path(), func(w storagedriver.FileWriter) (string, error) {
		_, err := w.Write(encoded)
		return mid.Path(), err
	})
	if err != nil {
		return id.ManifestID{}, false, err
	}

	return mid, existed, nil
}

// Read retrieves and parses the manifest stored under mid.
func (a *Manifests) Read(ctx context.Context, mid id.ManifestID) (*manifest.Manifest, error) {
	content, err := a.dir.Read(ctx, CategoryManifests, mid.Path())
	if err != nil {
		return nil, err
	}
	return manifest.Parse(string(content))
}

// ComputeID re-derives the canonical ManifestID from a manifest already on
// disk, used by Store.Verify to detect corruption: the stored bytes are
// re-parsed and re-hashed, and the result must equal mid.
func (a *Manifests) ComputeID(ctx context.Context, mid id.ManifestID) (id.ManifestID, error) {
	m, err := a.Read(ctx, mid)
	if err != nil {
		return id.ManifestID{}, err
	}
	return m.ID()
}

// Contains reports whether mid is already present.
func (a *Manifests) Contains(ctx context.Context, mid id.ManifestID) (bool, error) {
	return a.dir.Contains(ctx, CategoryManifests, mid.Path())
}
