// Package storagedriver defines the abstract byte-oriented storage backend
// the store directory (package store) is built on: a filesystem-like
// key/value interface that can be satisfied by a local filesystem, an
// in-memory map (tests), or — in principle — a remote object store.
package storagedriver

import (
	"context"
	"fmt"
	"io"
)

// StorageDriver is the interface a concrete storage backend must
// implement. Paths are slash-separated keys, always absolute (beginning
// with "/"), independent of any particular filesystem's conventions.
type StorageDriver interface {
	// GetContent retrieves the content stored at path as a []byte. Meant
	// for small objects (manifests); large objects should use Reader.
	GetContent(ctx context.Context, path string) ([]byte, error)

	// PutContent stores content at path, replacing any existing content.
	PutContent(ctx context.Context, path string, content []byte) error

	// Reader returns an io.ReadCloser for the content stored at path,
	// starting at the given byte offset.
	Reader(ctx context.Context, path string, offset int64) (io.ReadCloser, error)

	// Writer returns a FileWriter for writing content to path. If append
	// is false, any existing content at path is truncated; if true, new
	// writes are appended to it.
	Writer(ctx context.Context, path string, append bool) (FileWriter, error)

	// Stat returns the FileInfo for path.
	Stat(ctx context.Context, path string) (FileInfo, error)

	// List returns the paths of the direct descendants of path.
	List(ctx context.Context, path string) ([]string, error)

	// Move moves the object at sourcePath to destPath, overwriting any
	// existing object at destPath and removing sourcePath.
	Move(ctx context.Context, sourcePath, destPath string) error

	// Delete recursively deletes path and everything beneath it.
	Delete(ctx context.Context, path string) error

	// Walk traverses the tree rooted at path, calling f for every
	// descendant (depth-first, files and directories alike). f may
	// return ErrSkipDir to skip a directory's children.
	Walk(ctx context.Context, path string, f WalkFunc) error
}

// FileWriter writes content to a storage backend. Writes are not visible
// at their final path until Commit succeeds; Cancel discards them.
type FileWriter interface {
	io.WriteCloser

	// Size returns the number of bytes written so far.
	Size() int64

	// Cancel discards the written content and releases any resources.
	Cancel() error

	// Commit flushes and finalizes the written content.
	Commit() error
}

// FileInfo describes a file or directory in a storage backend.
type FileInfo interface {
	// Path is the path of the described file.
	Path() string

	// Size is the current size in bytes; meaningless for a directory.
	Size() int64

	// IsDir reports whether the described object is a directory.
	IsDir() bool
}

// Normalizer is implemented by drivers that can make a committed path
// immutable at the filesystem level: read-only permission bits and a
// zeroed modification/access time, so that two independent builds of the
// same content produce byte-for-byte identical store entries including
// metadata. Drivers without a meaningful notion of permissions or
// timestamps (e.g. an in-memory map) need not implement it; callers should
// type-assert and treat its absence as a no-op.
type Normalizer interface {
	Normalize(ctx context.Context, path string) error
}

// WalkFunc is called once per entry visited by Walk.
type WalkFunc func(FileInfo) error

// ErrSkipDir, returned by a WalkFunc, causes Walk to skip a directory's
// children without halting the walk.
var ErrSkipDir = fmt.Errorf("skip this directory")

// PathNotFoundError is returned when operating on a path that does not
// exist.
type PathNotFoundError struct {
	Path string
}

func (e PathNotFoundError) Error() string {
	return fmt.Sprintf("path not found: %s", e.Path)
}

// InvalidPathError is returned when a path is malformed (not absolute, or
// containing an empty component).
type InvalidPathError struct {
	Path string
}

func (e InvalidPathError) Error() string {
	return fmt.Sprintf("invalid path: %s", e.Path)
}

// InvalidOffsetError is returned when reading or writing from an offset
// that is out of bounds for the target path.
type InvalidOffsetError struct {
	Path   string
	Offset int64
}

func (e InvalidOffsetError) Error() string {
	return fmt.Sprintf("invalid offset %d for path: %s", e.Offset, e.Path)
}
