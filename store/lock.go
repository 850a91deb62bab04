package store

import "context"

// Locker provides the exclusive/shared advisory locking spec.md §4.1
// builds its write/rename and read protocols on: writers serialize via an
// exclusive lock, concurrent readers coexist via a shared one.
type Locker interface {
	// LockExclusive blocks until an exclusive lock on id is granted.
	LockExclusive(ctx context.Context, id string) (Unlocker, error)

	// LockShared blocks until a shared (non-exclusive) lock on id is
	// granted; multiple shared holders may coexist.
	LockShared(ctx context.Context, id string) (Unlocker, error)
}

// Unlocker releases a lock acquired from a Locker.
type Unlocker interface {
	Release() error
}
