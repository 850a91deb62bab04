// Package memory implements storagedriver.StorageDriver entirely in
// process memory, for tests that want a store without touching disk.
package memory

import (
	"bytes"
	"context"
	"io"
	"path"
	"sort"
	"strings"
	"sync"

	"github.com/ebkalderon/deck/storagedriver"
)

// Driver is an in-memory storagedriver.StorageDriver. Construct one with
// New: the zero value has a nil map, and the first write to it panics.
type Driver struct {
	mu    sync.RWMutex
	files map[string][]byte
}

// New returns an empty Driver.
func New() *Driver {
	return &Driver{files: make(map[string][]byte)}
}

// GetContent retrieves the content stored at path.
func (d *Driver) GetContent(_ context.Context, p string) ([]byte, error) {
	d.mu.RLock()
	defer d.mu.RUnlock()

	content, ok := d.files[p]
	if !ok {
		return nil, storagedriver.PathNotFoundError{Path: p}
	}
	return append([]byte(nil), content...), nil
}

// PutContent stores content at path, replacing any existing content.
func (d *Driver) PutContent(_ context.Context, p string, content []byte) error {
	d.mu.Lock()
	defer d.mu.Unlock()

	d.files[p] = append([]byte(nil), content...)
	return nil
}

// Reader returns an io.ReadCloser over the content stored at path,
// starting at offset.
func (d *Driver) Reader(_ context.Context, p string, offset int64) (io.ReadCloser, error) {
	d.mu.RLock()
	content, ok := d.files[p]
	d.mu.RUnlock()

	if !ok {
		return nil, storagedriver.PathNotFoundError{Path: p}
	}
	if offset < 0 || offset > int64(len(content)) {
		return nil, storagedriver.InvalidOffsetError{Path: p, Offset: offset}
	}

	return io.NopCloser(bytes.NewReader(content[offset:])), nil
}

// Writer returns a FileWriter buffering content in memory until Commit.
func (d *Driver) Writer(_ context.Context, p string, shouldAppend bool) (storagedriver.FileWriter, error) {
	var initial []byte
	if shouldAppend {
		d.mu.RLock()
		initial = copyBytes(d.files[p])
		d.mu.RUnlock()
	}

	return &memWriter{driver: d, path: p, buf: bytes.NewBuffer(initial)}, nil
}

func copyBytes(b []byte) []byte { return append([]byte(nil), b...) }

// Stat returns the FileInfo for path, treating any path that is a prefix
// of a stored file's path as an implicit directory.
func (d *Driver) Stat(_ context.Context, p string) (storagedriver.FileInfo, error) {
	d.mu.RLock()
	defer d.mu.RUnlock()

	if content, ok := d.files[p]; ok {
		return fileInfo{path: p, size: int64(len(content))}, nil
	}

	prefix := strings.TrimSuffix(p, "/") + "/"
	for name := range d.files {
		if strings.HasPrefix(name, prefix) {
			return fileInfo{path: p, isDir: true}, nil
		}
	}

	return nil, storagedriver.PathNotFoundError{Path: p}
}

// List returns the direct descendants of path.
func (d *Driver) List(_ context.Context, p string) ([]string, error) {
	d.mu.RLock()
	defer d.mu.RUnlock()

	prefix := strings.TrimSuffix(p, "/") + "/"
	seen := make(map[string]bool)
	for name := range d.files {
		if !strings.HasPrefix(name, prefix) {
			continue
		}
		rest := strings.TrimPrefix(name, prefix)
		if i := strings.IndexByte(rest, '/'); i >= 0 {
			rest = rest[:i]
		}
		seen[path.Join(p, rest)] = true
	}

	if len(seen) == 0 {
		if _, ok := d.files[p]; !ok {
			return nil, storagedriver.PathNotFoundError{Path: p}
		}
	}

	entries := make([]string, 0, len(seen))
	for entry := range seen {
		entries = append(entries, entry)
	}
	sort.Strings(entries)
	return entries, nil
}

// Move moves sourcePath to destPath. sourcePath may name either a single
// file or, like os.Rename on a real filesystem, a whole directory subtree:
// every stored key at or beneath sourcePath is relocated to the
// corresponding key beneath destPath.
func (d *Driver) Move(_ context.Context, sourcePath, destPath string) error {
	d.mu.Lock()
	defer d.mu.Unlock()

	if content, ok := d.files[sourcePath]; ok {
		d.files[destPath] = content
		delete(d.files, sourcePath)
		return nil
	}

	prefix := strings.TrimSuffix(sourcePath, "/") + "/"
	moved := false
	for name, content := range d.files {
		if !strings.HasPrefix(name, prefix) {
			continue
		}
		rel := strings.TrimPrefix(name, prefix)
		d.files[path.Join(destPath, rel)] = content
		delete(d.files, name)
		moved = true
	}
	if !moved {
		return storagedriver.PathNotFoundError{Path: sourcePath}
	}
	return nil
}

// Delete recursively deletes path and everything beneath it.
func (d *Driver) Delete(_ context.Context, p string) error {
	d.mu.Lock()
	defer d.mu.Unlock()

	prefix := strings.TrimSuffix(p, "/") + "/"
	deleted := false
	for name := range d.files {
		if name == p || strings.HasPrefix(name, prefix) {
			delete(d.files, name)
			deleted = true
		}
	}
	if !deleted {
		return storagedriver.PathNotFoundError{Path: p}
	}
	return nil
}

// Walk traverses the tree rooted at path.
func (d *Driver) Walk(ctx context.Context, p string, f storagedriver.WalkFunc) error {
	return storagedriver.WalkFallback(ctx, d, p, f)
}

type fileInfo struct {
	path  string
	size  int64
	isDir bool
}

func (fi fileInfo) Path() string { return fi.path }
func (fi fileInfo) Size() int64  { return fi.size }
func (fi fileInfo) IsDir() bool  { return fi.isDir }

type memWriter struct {
	driver    *Driver
	path      string
	buf       *bytes.Buffer
	closed    bool
	committed bool
	cancelled bool
}

func (w *memWriter) Write(p []byte) (int, error) {
	if w.closed || w.committed || w.cancelled {
		return 0, io.ErrClosedPipe
	}
	return w.buf.Write(p)
}

func (w *memWriter) Size() int64 { return int64(w.buf.Len()) }

func (w *memWriter) Close() error {
	w.closed = true
	return nil
}

func (w *memWriter) Cancel() error {
	w.cancelled = true
	w.closed = true
	return nil
}

func (w *memWriter) Commit() error {
	if w.cancelled {
		return io.ErrClosedPipe
	}
	w.driver.mu.Lock()
	w.driver.files[w.path] = append([]byte(nil), w.buf.Bytes()...)
	w.driver.mu.Unlock()
	w.committed = true
	return nil
}
