package barnfs

import (
	"github.com/gofrs/flock"
)

// Lock is barn's single-writer scheduler lock: a non-blocking exclusive
// advisory lock on a single file, wrapping github.com/gofrs/flock.
type Lock struct {
	fl *flock.Flock
}

// NewLock returns a Lock bound to path. The lock is not acquired yet.
func NewLock(path string) *Lock {
	return &Lock{fl: flock.New(path)}
}

// TryLock attempts to acquire the lock without blocking. ok is false if
// another process already holds it.
func (l *Lock) TryLock() (ok bool, err error) {
	return l.fl.TryLock()
}

// Unlock releases the lock.
func (l *Lock) Unlock() error {
	return l.fl.Unlock()
}

// Path returns the path backing the lock.
func (l *Lock) Path() string {
	return l.fl.Path()
}
