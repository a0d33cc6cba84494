package lock

import (
	"context"
	"testing"
	"time"
)

func TestInMemoryTryAcquireRelease(t *testing.T) {
	l := NewInMemory()
	rel, ok := l.TryAcquire("pool-x")
	if !ok {
		t.Fatal("try acquire on free lock failed")
	}
	if _, ok := l.TryAcquire("pool-x"); ok {
		t.Fatal("try acquire succeeded while held")
	}
	if err := rel.Release(); err != nil {
		t.Fatalf("release: %v", err)
	}
	rel, ok = l.TryAcquire("pool-x")
	if !ok {
		t.Fatal("lock not re-acquirable after release")
	}
	_ = rel.Release()
}

func TestInMemoryBlocksUntilRelease(t *testing.T) {
	l := NewInMemory()
	ctx := context.Background()

	first, err := l.Acquire(ctx, "pool-x")
	if err != nil {
		t.Fatalf("acquire: %v", err)
	}

	acquired := make(chan Releaser, 1)
	go func() {
		rel, err := l.Acquire(ctx, "pool-x")
		if err != nil {
			t.Errorf("waiter acquire: %v", err)
			return
		}
		acquired <- rel
	}()

	select {
	case <-acquired:
		t.Fatal("waiter acquired while lock held")
	case <-time.After(50 * time.Millisecond):
	}

	if err := first.Release(); err != nil {
		t.Fatalf("release: %v", err)
	}
	select {
	case rel := <-acquired:
		_ = rel.Release()
	case <-time.After(2 * time.Second):
		t.Fatal("waiter never woke after release")
	}
}

func TestInMemoryDistinctIdentitiesIndependent(t *testing.T) {
	l := NewInMemory()
	ctx := context.Background()

	a, err := l.Acquire(ctx, "pool-a")
	if err != nil {
		t.Fatalf("acquire a: %v", err)
	}
	defer a.Release()

	done := make(chan struct{})
	go func() {
		b, err := l.Acquire(ctx, "pool-b")
		if err != nil {
			t.Errorf("acquire b: %v", err)
			return
		}
		_ = b.Release()
		close(done)
	}()
	select {
	case <-done:
	case <-time.After(2 * time.Second):
		t.Fatal("independent identity blocked")
	}
}

func TestInMemoryAcquireRespectsContext(t *testing.T) {
	l := NewInMemory()
	ctx := context.Background()

	rel, err := l.Acquire(ctx, "pool-x")
	if err != nil {
		t.Fatalf("acquire: %v", err)
	}
	defer rel.Release()

	cctx, cancel := context.WithTimeout(ctx, 10*time.Millisecond)
	defer cancel()
	start := time.Now()
	if _, err := l.Acquire(cctx, "pool-x"); err == nil {
		t.Fatal("expected context error")
	}
	if time.Since(start) > 500*time.Millisecond {
		t.Fatal("acquire did not respect context timeout")
	}
}
