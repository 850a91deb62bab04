package store

import (
	"context"

	"github.com/ebkalderon/deck/hash"
	"github.com/ebkalderon/deck/id"
	"github.com/ebkalderon/deck/storagedriver"
)

// Sources is the sources directory adapter (spec.md §4.2) for the
// already-fetched-text case: a filename paired with its full content,
// addressed by (filename, hash(content)). URI sources are downloaded by the
// scheduler's FetchSource job and reach this adapter as local bytes; that
// job writes nothing here for git and path sources.
type Sources struct {
	dir *Dir
}

// NewSources wraps dir as a sources adapter.
func NewSources(dir *Dir) *Sources { return &Sources{dir: dir} }

// PrecomputeID hashes content to produce the SourceID it will be written
// under; for text sources this is also the final ID, since the hash is
// computed over exactly the bytes that get written.
func (a *Sources) PrecomputeID(filename string, content []byte) (id.SourceID, error) {
	return id.NewSourceID(filename, hash.FromBytes(content))
}

// Write stores content under the SourceID derived from (filename, its own
// hash), returning existed=true if it was already present.
func (a *Sources) Write(ctx context.Context, filename string, content []byte) (id.SourceID, bool, error) {
	sid, err := a.PrecomputeID(filename, content)
	if err != nil {
		return id.SourceID{}, false, err
	}

	_, existed, err := a.dir.Write(ctx, CategorySources, sid.Path(), func(w storagedriver.FileWriter) (string, error) {
		_, err := w.Write(content)
		return sid.Path(), err
	})
	if err != nil {
		return id.SourceID{}, false, err
	}

	return sid, existed, nil
}

// Read retrieves the raw bytes stored under sid.
func (a *Sources) Read(ctx context.Context, sid id.SourceID) ([]byte, error) {
	return a.dir.Read(ctx, CategorySources, sid.Path())
}

// ComputeID re-derives sid's content hash from the bytes on disk, used by
// Store.Verify to detect corruption.
func (a *Sources) ComputeID(ctx context.Context, sid id.SourceID) (id.SourceID, error) {
	content, err := a.Read(ctx, sid)
	if err != nil {
		return id.SourceID{}, err
	}
	return id.NewSourceID(sid.Filename, hash.FromBytes(content))
}

// Contains reports whether sid is already present.
func (a *Sources) Contains(ctx context.Context, sid id.SourceID) (bool, error) {
	return a.dir.Contains(ctx, CategorySources, sid.Path())
}
