package lock

import (
	"context"
	"sync"

	devlockerrors "github.com/mirkobrombin/go-devlock/v1/errors"
)

// InMemory implements Backend using local memory. It provides the same
// blocking semantics as the cross-process backends within a single process,
// which makes it the backend of choice for tests and for embedding several
// cooperating components in one binary.
type InMemory struct {
	mu   sync.Mutex
	held map[string]chan struct{}
}

// NewInMemory returns a new in-process backend.
func NewInMemory() *InMemory {
	return &InMemory{held: make(map[string]chan struct{})}
}

// Acquire blocks until the identity is free or ctx is cancelled.
func (l *InMemory) Acquire(ctx context.Context, identity string) (Releaser, error) {
	for {
		l.mu.Lock()
		waiter, taken := l.held[identity]
		if !taken {
			l.held[identity] = make(chan struct{})
			l.mu.Unlock()
			return &memoryReleaser{backend: l, identity: identity}, nil
		}
		l.mu.Unlock()
		select {
		case <-waiter:
		case <-ctx.Done():
			return nil, ctx.Err()
		}
	}
}

// TryAcquire obtains the identity without waiting. It returns nil, false
// when the lock is already held.
func (l *InMemory) TryAcquire(identity string) (Releaser, bool) {
	l.mu.Lock()
	defer l.mu.Unlock()
	if _, taken := l.held[identity]; taken {
		return nil, false
	}
	l.held[identity] = make(chan struct{})
	return &memoryReleaser{backend: l, identity: identity}, true
}

type memoryReleaser struct {
	backend  *InMemory
	identity string
}

func (r *memoryReleaser) Release() error {
	r.backend.mu.Lock()
	defer r.backend.mu.Unlock()
	waiter, ok := r.backend.held[r.identity]
	if !ok {
		return devlockerrors.ErrReleased
	}
	delete(r.backend.held, r.identity)
	close(waiter)
	return nil
}
