package store

import (
	"context"
	"sync"
)

// MemLocker is an in-process Locker backed by per-id sync.RWMutex values,
// for stores layered over storagedriver/memory where there is no real file
// descriptor to flock.
type MemLocker struct {
	mu    sync.Mutex
	locks map[string]*sync.RWMutex
}

// NewMemLocker returns an empty MemLocker.
func NewMemLocker() *MemLocker {
	return &MemLocker{locks: make(map[string]*sync.RWMutex)}
}

func (l *MemLocker) mutexFor(id string) *sync.RWMutex {
	l.mu.Lock()
	defer l.mu.Unlock()

	m, ok := l.locks[id]
	if !ok {
		m = &sync.RWMutex{}
		l.locks[id] = m
	}
	return m
}

func (l *MemLocker) LockExclusive(ctx context.Context, id string) (Unlocker, error) {
	if err := ctx.Err(); err != nil {
		return nil, err
	}
	m := l.mutexFor(id)
	m.Lock()
	return &memUnlock{m: m, exclusive: true}, nil
}

func (l *MemLocker) LockShared(ctx context.Context, id string) (Unlocker, error) {
	if err := ctx.Err(); err != nil {
		return nil, err
	}
	m := l.mutexFor(id)
	m.RLock()
	return &memUnlock{m: m, exclusive: false}, nil
}

type memUnlock struct {
	m         *sync.RWMutex
	exclusive bool
}

func (u *memUnlock) Release() error {
	if u.exclusive {
		u.m.Unlock()
	} else {
		u.m.RUnlock()
	}
	return nil
}
