package cache

import (
	"bytes"
	"context"
	"io"
	"sync"

	"github.com/ebkalderon/deck/deckerr"
	"github.com/ebkalderon/deck/id"
)

// Local is an in-memory BinaryCache, for tests exercising the scheduler's
// substitution path without a real cache backend.
type Local struct {
	mu      sync.RWMutex
	outputs map[id.OutputID][]byte
}

// NewLocal returns an empty Local cache.
func NewLocal() *Local {
	return &Local{outputs: make(map[id.OutputID][]byte)}
}

// Put seeds the cache with content for oid, for use by tests.
func (l *Local) Put(oid id.OutputID, content []byte) {
	l.mu.Lock()
	defer l.mu.Unlock()
	l.outputs[oid] = append([]byte(nil), content...)
}

// Query reports whether oid is present.
func (l *Local) Query(_ context.Context, oid id.OutputID) (bool, error) {
	l.mu.RLock()
	defer l.mu.RUnlock()
	_, ok := l.outputs[oid]
	return ok, nil
}

// Fetch streams the content stored for oid.
func (l *Local) Fetch(_ context.Context, oid id.OutputID) (io.ReadCloser, error) {
	l.mu.RLock()
	content, ok := l.outputs[oid]
	l.mu.RUnlock()

	if !ok {
		return nil, &deckerr.NotFound{Target: oid.String()}
	}
	return io.NopCloser(bytes.NewReader(content)), nil
}
