package repository

import (
	"context"
	"sync"

	"github.com/ebkalderon/deck/deckerr"
	"github.com/ebkalderon/deck/id"
	"github.com/ebkalderon/deck/manifest"
)

// Local is an in-memory Repository, for tests exercising the scheduler's
// manifest-resolution path without a real repository backend.
type Local struct {
	mu        sync.RWMutex
	manifests map[id.ManifestID]*manifest.Manifest
}

// NewLocal returns an empty Local repository.
func NewLocal() *Local {
	return &Local{manifests: make(map[id.ManifestID]*manifest.Manifest)}
}

// Put seeds the repository with m, for use by tests.
func (l *Local) Put(mid id.ManifestID, m *manifest.Manifest) {
	l.mu.Lock()
	defer l.mu.Unlock()
	l.manifests[mid] = m
}

// Query resolves mid to its manifest.
func (l *Local) Query(_ context.Context, mid id.ManifestID) (*manifest.Manifest, error) {
	l.mu.RLock()
	defer l.mu.RUnlock()

	m, ok := l.manifests[mid]
	if !ok {
		return nil, &deckerr.NotFound{Target: mid.String()}
	}
	return m, nil
}
