package store

import (
	"context"
	"fmt"
	"time"

	"github.com/gofrs/flock"
)

// DefaultLockTimeout is the default timeout for acquiring a file lock.
const DefaultLockTimeout = 5 * time.Second

// WithLock acquires an exclusive lock on path.lock, runs fn, then releases.
// Several widget processes may share one data directory; the lock keeps a
// save from interleaving with another process's clear.
func WithLock(ctx context.Context, path string, timeout time.Duration, fn func() error) error {
	return withFileLock(ctx, path, timeout, false, fn)
}

// WithReadLock acquires a shared read lock on path.lock, runs fn, then releases.
func WithReadLock(ctx context.Context, path string, timeout time.Duration, fn func() error) error {
	return withFileLock(ctx, path, timeout, true, fn)
}

func withFileLock(ctx context.Context, path string, timeout time.Duration, shared bool, fn func() error) error {
	lockPath := path + ".lock"
	fileLock := flock.New(lockPath)

	ctx, cancel := context.WithTimeout(ctx, timeout)
	defer cancel()

	kind := "lock"
	tryLock := fileLock.TryLockContext
	if shared {
		kind = "read lock"
		tryLock = fileLock.TryRLockContext
	}

	locked, err := tryLock(ctx, 50*time.Millisecond)
	if err != nil {
		return fmt.Errorf("acquiring %s on %s: %w", kind, lockPath, err)
	}
	if !locked {
		return fmt.Errorf("timed out acquiring %s on %s", kind, lockPath)
	}
	defer fileLock.Unlock()

	return fn()
}
