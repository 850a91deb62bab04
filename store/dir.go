// Package store implements deck's content-addressed store directory:
// category layout, the write/rename protocol, and directory adapters for
// manifests/outputs/sources (spec.md §4.1, §4.2). The facade combining them
// with binary caches and repositories is the root deck package.
package store

import (
	"context"
	"errors"
	"path"
	"strings"

	"github.com/ebkalderon/deck/deckerr"
	"github.com/ebkalderon/deck/storagedriver"
)

// Category names the top-level subdirectories of a store prefix P.
type Category string

// Recognized categories, per spec.md §4.1.
const (
	CategoryManifests Category = "manifests"
	CategoryOutputs   Category = "outputs"
	CategorySources   Category = "sources"
)

const tmpCategory = "tmp"

// Dir is the store directory: a StorageDriver for content bytes plus a
// Locker for the per-ID exclusive/shared locking its write/rename and read
// protocols depend on. A real on-disk store pairs a filesystem.Driver with
// a FileLocker rooted at the same tree's var/ subdirectory; a test store
// pairs a memory.Driver with a MemLocker.
type Dir struct {
	driver storagedriver.StorageDriver
	locker Locker
}

// New returns a Dir backed by driver, using locker to serialize writers and
// coordinate readers for the same ID.
func New(driver storagedriver.StorageDriver, locker Locker) *Dir {
	return &Dir{driver: driver, locker: locker}
}

func categoryPath(c Category, id string) string {
	return path.Join("/", string(c), id)
}

func tmpPath(id string) string {
	return path.Join("/", tmpCategory, id)
}

// Contains reports whether id is already present in category c. It is the
// membership test the scheduler uses to short-circuit work (spec.md §4.1).
func (d *Dir) Contains(ctx context.Context, c Category, id string) (bool, error) {
	_, err := d.driver.Stat(ctx, categoryPath(c, id))
	if err == nil {
		return true, nil
	}
	var notFound storagedriver.PathNotFoundError
	if errors.As(err, &notFound) {
		return false, nil
	}
	return false, err
}

// WriteFunc serializes an item into w, returning the final ID it was
// written under. Returning id (or the empty string) keeps the tentative ID;
// returning a different ID makes Write rename the item under that one. The
// Manifests and Sources adapters both derive their ID from the content
// before writing, so their WriteFuncs return id unchanged.
type WriteFunc func(w storagedriver.FileWriter) (finalID string, err error)

// Write implements the write/rename protocol of spec.md §4.1 for category c
// and tentative ID id. If an item is already present under id, it returns
// existed=true without invoking write. Otherwise it serializes the item via
// write, normalizes its permissions and timestamps, and renames it into
// place under whatever final ID write returns (ordinarily equal to id; see
// WriteFunc).
func (d *Dir) Write(ctx context.Context, c Category, id string, write WriteFunc) (finalID string, existed bool, err error) {
	if ok, err := d.Contains(ctx, c, id); err != nil {
		return "", false, err
	} else if ok {
		return id, true, nil
	}

	unlock, err := d.locker.LockExclusive(ctx, lockKey(c, id))
	if err != nil {
		return "", false, err
	}
	defer func() { _ = unlock.Release() }()

	if ok, err := d.Contains(ctx, c, id); err != nil {
		return "", false, err
	} else if ok {
		return id, true, nil
	}

	tmp := tmpPath(id)
	w, err := d.driver.Writer(ctx, tmp, false)
	if err != nil {
		return "", false, err
	}

	finalID, writeErr := write(w)
	if writeErr != nil {
		_ = w.Cancel()
		return "", false, writeErr
	}
	if err := w.Commit(); err != nil {
		return "", false, err
	}

	if finalID == "" {
		finalID = id
	}

	if err := d.normalize(ctx, tmp); err != nil {
		return "", false, err
	}

	dest := categoryPath(c, finalID)
	if err := d.driver.Move(ctx, tmp, dest); err != nil {
		return "", false, err
	}

	return finalID, false, nil
}

// normalize makes the temp path immutable before it is renamed into place:
// read-only permission bits, mtime and atime both zeroed for deterministic
// hashing. Drivers without a filesystem notion of permissions (e.g. an
// in-memory test driver) are left untouched.
func (d *Dir) normalize(ctx context.Context, tmp string) error {
	n, ok := d.driver.(storagedriver.Normalizer)
	if !ok {
		return nil
	}
	return n.Normalize(ctx, tmp)
}

// Read implements the read protocol of spec.md §4.1: if the item is
// present, it is read under a shared lock (so concurrent readers coexist);
// otherwise the exclusive lock is acquired once to settle the race against
// an in-flight writer, then the presence check is repeated.
func (d *Dir) Read(ctx context.Context, c Category, id string) ([]byte, error) {
	p := categoryPath(c, id)

	if ok, err := d.Contains(ctx, c, id); err != nil {
		return nil, err
	} else if ok {
		unlock, err := d.locker.LockShared(ctx, lockKey(c, id))
		if err != nil {
			return nil, err
		}
		defer func() { _ = unlock.Release() }()
		return d.driver.GetContent(ctx, p)
	}

	unlock, err := d.locker.LockExclusive(ctx, lockKey(c, id))
	if err != nil {
		return nil, err
	}
	defer func() { _ = unlock.Release() }()

	content, err := d.driver.GetContent(ctx, p)
	if err != nil {
		var notFound storagedriver.PathNotFoundError
		if errors.As(err, &notFound) {
			return nil, &deckerr.NotFound{Target: p}
		}
		return nil, err
	}
	return content, nil
}

// WriteTree applies the write/rename protocol to a whole directory tree
// rather than a single file, for the outputs category: files maps paths
// relative to the tree's root to their content. The tree is assembled
// under tmp/<id>/ file-by-file, each file normalized individually, then
// the entire tmp/<id> directory is renamed into place in one Move.
func (d *Dir) WriteTree(ctx context.Context, c Category, id string, files map[string][]byte) (existed bool, err error) {
	if ok, err := d.Contains(ctx, c, id); err != nil {
		return false, err
	} else if ok {
		return true, nil
	}

	unlock, err := d.locker.LockExclusive(ctx, lockKey(c, id))
	if err != nil {
		return false, err
	}
	defer func() { _ = unlock.Release() }()

	if ok, err := d.Contains(ctx, c, id); err != nil {
		return false, err
	} else if ok {
		return true, nil
	}

	tmpRoot := tmpPath(id)
	for rel, content := range files {
		p := path.Join(tmpRoot, rel)
		if err := d.driver.PutContent(ctx, p, content); err != nil {
			_ = d.driver.Delete(ctx, tmpRoot)
			return false, err
		}
		if err := d.normalize(ctx, p); err != nil {
			_ = d.driver.Delete(ctx, tmpRoot)
			return false, err
		}
	}

	dest := categoryPath(c, id)
	if err := d.driver.Move(ctx, tmpRoot, dest); err != nil {
		return false, err
	}

	return false, nil
}

// ReadTree reads every file beneath the tree stored at id in category c,
// keyed by path relative to the tree's root.
func (d *Dir) ReadTree(ctx context.Context, c Category, id string) (map[string][]byte, error) {
	root := categoryPath(c, id)

	if ok, err := d.Contains(ctx, c, id); err != nil {
		return nil, err
	} else if !ok {
		unlock, err := d.locker.LockExclusive(ctx, lockKey(c, id))
		if err != nil {
			return nil, err
		}
		ok2, err := d.Contains(ctx, c, id)
		_ = unlock.Release()
		if err != nil {
			return nil, err
		}
		if !ok2 {
			return nil, &deckerr.NotFound{Target: root}
		}
	}

	unlock, err := d.locker.LockShared(ctx, lockKey(c, id))
	if err != nil {
		return nil, err
	}
	defer func() { _ = unlock.Release() }()

	files := make(map[string][]byte)
	walkErr := d.driver.Walk(ctx, root, func(fi storagedriver.FileInfo) error {
		if fi.IsDir() {
			return nil
		}
		content, err := d.driver.GetContent(ctx, fi.Path())
		if err != nil {
			return err
		}
		rel := ""
		if fi.Path() != root {
			rel = strings.TrimPrefix(fi.Path(), root+"/")
		}
		files[rel] = content
		return nil
	})
	if walkErr != nil {
		return nil, walkErr
	}

	return files, nil
}

func lockKey(c Category, id string) string {
	return string(c) + "__" + id
}
