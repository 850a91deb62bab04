//go:build !windows

package store

import (
	"context"
	"os"
	"path/filepath"

	"golang.org/x/sys/unix"
)

// FileLocker locks real files beneath root using advisory BSD flock(2),
// via golang.org/x/sys/unix. It backs stores whose tmp/var directories
// live on a real filesystem; a writer holding LOCK_EX excludes both other
// writers and readers attempting to acquire LOCK_SH on the same id, while
// any number of readers may hold LOCK_SH concurrently.
type FileLocker struct {
	root string
}

// NewFileLocker returns a Locker whose lock files live under root. root is
// created if it does not already exist.
func NewFileLocker(root string) (*FileLocker, error) {
	if err := os.MkdirAll(root, 0o755); err != nil {
		return nil, err
	}
	return &FileLocker{root: root}, nil
}

func (l *FileLocker) lockPath(id string) string {
	return filepath.Join(l.root, id+".lock")
}

func (l *FileLocker) LockExclusive(ctx context.Context, id string) (Unlocker, error) {
	return l.lock(ctx, id, unix.LOCK_EX)
}

func (l *FileLocker) LockShared(ctx context.Context, id string) (Unlocker, error) {
	return l.lock(ctx, id, unix.LOCK_SH)
}

func (l *FileLocker) lock(ctx context.Context, id string, how int) (Unlocker, error) {
	p := l.lockPath(id)
	f, err := os.OpenFile(p, os.O_CREATE|os.O_RDWR, 0o644)
	if err != nil {
		return nil, err
	}

	done := make(chan error, 1)
	go func() { done <- unix.Flock(int(f.Fd()), how) }()

	select {
	case err := <-done:
		if err != nil {
			f.Close()
			return nil, err
		}
		return &fileUnlock{f: f}, nil
	case <-ctx.Done():
		f.Close()
		return nil, ctx.Err()
	}
}

type fileUnlock struct{ f *os.File }

// Release drops the flock and removes the lock sentinel so later writers
// don't accumulate stale lock files; per spec.md §4.1 the unlinked handle
// itself is left with a marker write for observability of lock staleness.
func (u *fileUnlock) Release() error {
	defer u.f.Close()
	_ = os.Remove(u.f.Name())
	_, _ = u.f.WriteString("stale\n")
	return unix.Flock(int(u.f.Fd()), unix.LOCK_UN)
}
