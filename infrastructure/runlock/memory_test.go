package runlock

import (
	"context"
	"errors"
	"testing"
	"time"

	"github.com/dwellsense/dwellsense/domain/batch"
)

func TestMemoryLock_SecondAcquireBlocked(t *testing.T) {
	lock := NewMemoryLock()
	ctx := context.Background()

	if err := lock.Acquire(ctx, "run-1", time.Minute); err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if err := lock.Acquire(ctx, "run-2", time.Minute); !errors.Is(err, batch.ErrRunLocked) {
		t.Errorf("expected ErrRunLocked, got %v", err)
	}
}

func TestMemoryLock_ReleaseFreesLock(t *testing.T) {
	lock := NewMemoryLock()
	ctx := context.Background()

	if err := lock.Acquire(ctx, "run-1", time.Minute); err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if err := lock.Release(ctx, "run-1"); err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if err := lock.Acquire(ctx, "run-2", time.Minute); err != nil {
		t.Errorf("expected lock to be free, got %v", err)
	}
}

func TestMemoryLock_ReleaseByNonHolderIgnored(t *testing.T) {
	lock := NewMemoryLock()
	ctx := context.Background()

	if err := lock.Acquire(ctx, "run-1", time.Minute); err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if err := lock.Release(ctx, "run-2"); err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if err := lock.Acquire(ctx, "run-3", time.Minute); !errors.Is(err, batch.ErrRunLocked) {
		t.Errorf("expected the original lease to survive, got %v", err)
	}
}

func TestMemoryLock_ExpiredLeaseIsFree(t *testing.T) {
	lock := NewMemoryLock()
	current := time.Now()
	lock.now = func() time.Time { return current }
	ctx := context.Background()

	if err := lock.Acquire(ctx, "run-1", time.Minute); err != nil {
		t.Fatalf("unexpected error: %v", err)
	}

	current = current.Add(2 * time.Minute)
	if err := lock.Acquire(ctx, "run-2", time.Minute); err != nil {
		t.Errorf("expected expired lease to be free, got %v", err)
	}
}
