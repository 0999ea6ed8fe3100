package runlock

import (
	"context"
	"sync"
	"time"

	"github.com/dwellsense/dwellsense/domain/batch"
)

// MemoryLock is an in-process implementation of batch.Lock for single-node
// installs and tests.
type MemoryLock struct {
	mu        sync.Mutex
	holder    string
	expiresAt time.Time
	now       func() time.Time
}

// NewMemoryLock creates an in-process lock.
func NewMemoryLock() *MemoryLock {
	return &MemoryLock{now: time.Now}
}

// Acquire takes the lock for the holder or returns ErrRunLocked. An expired
// lease is treated as free.
func (l *MemoryLock) Acquire(ctx context.Context, holder string, ttl time.Duration) error {
	if err := ctx.Err(); err != nil {
		return err
	}

	l.mu.Lock()
	defer l.mu.Unlock()

	if l.holder != "" && l.now().Before(l.expiresAt) {
		return batch.ErrRunLocked
	}

	l.holder = holder
	l.expiresAt = l.now().Add(ttl)
	return nil
}

// Release frees the lock if the holder still owns it.
func (l *MemoryLock) Release(ctx context.Context, holder string) error {
	if err := ctx.Err(); err != nil {
		return err
	}

	l.mu.Lock()
	defer l.mu.Unlock()

	if l.holder == holder {
		l.holder = ""
		l.expiresAt = time.Time{}
	}
	return nil
}

var _ batch.Lock = (*MemoryLock)(nil)
