//go:build windows

package store

import (
	"context"
	"os"
	"path/filepath"

	"golang.org/x/sys/windows"
)

// FileLocker locks real files beneath root using LockFileEx, the Windows
// equivalent of the advisory flock(2) semantics the Unix build uses.
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
	return l.lock(ctx, id, windows.LOCKFILE_EXCLUSIVE_LOCK)
}

func (l *FileLocker) LockShared(ctx context.Context, id string) (Unlocker, error) {
	return l.lock(ctx, id, 0)
}

func (l *FileLocker) lock(ctx context.Context, id string, flags uint32) (Unlocker, error) {
	p := l.lockPath(id)
	f, err := os.OpenFile(p, os.O_CREATE|os.O_RDWR, 0o644)
	if err != nil {
		return nil, err
	}

	done := make(chan error, 1)
	go func() {
		ol := new(windows.Overlapped)
		done <- windows.LockFileEx(windows.Handle(f.Fd()), flags, 0, 1, 0, ol)
	}()

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

func (u *fileUnlock) Release() error {
	defer u.f.Close()
	_ = os.Remove(u.f.Name())
	_, _ = u.f.WriteString("stale\n")
	ol := new(windows.Overlapped)
	return windows.UnlockFileEx(windows.Handle(u.f.Fd()), 0, 1, 0, ol)
}
