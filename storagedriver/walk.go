package storagedriver

import (
	"context"
	"path"
)

// WalkFallback implements Walk generically atop Stat and List, for
// backends (like the in-memory test driver) that have no native
// tree-traversal primitive of their own.
func WalkFallback(ctx context.Context, d StorageDriver, from string, f WalkFunc) error {
	info, err := d.Stat(ctx, from)
	if err != nil {
		return err
	}

	if err := f(info); err != nil {
		if err == ErrSkipDir && info.IsDir() {
			return nil
		}
		return err
	}

	if !info.IsDir() {
		return nil
	}

	children, err := d.List(ctx, from)
	if err != nil {
		return err
	}

	for _, child := range children {
		if err := WalkFallback(ctx, d, path.Join("/", child), f); err != nil {
			return err
		}
	}

	return nil
}
