package lock

import (
	"context"
	"sync/atomic"

	devlockerrors "github.com/mirkobrombin/go-devlock/v1/errors"
)

const (
	// PoolMutexPrefix prefixes the hex-encoded pool name digest. Frozen:
	// cooperating processes derive identical identities from it.
	PoolMutexPrefix = `DevLock\DevLock-Pool-Mutex-`

	// InstallationIdentity is the single well-known identity of the driver
	// installation critical section, independent of any pool name. Frozen.
	InstallationIdentity = `DevLock\DevLock-Driver-Installation-Mutex`
)

// Backend acquires exclusive ownership of a lock identity. Acquire blocks
// until the lock is owned or ctx is cancelled. Acquisition of a lock whose
// previous owner died without releasing (abandonment) is reported as
// success: the protected resource is idempotent naming, never shared
// mutable state that would need validation.
type Backend interface {
	Acquire(ctx context.Context, identity string) (Releaser, error)
}

// Releaser releases ownership obtained from a Backend.
type Releaser interface {
	Release() error
}

// Handle is an opaque acquired lock. It is owned exclusively by the caller
// that acquired it and must be released exactly once; the lock is not
// re-entrant.
type Handle struct {
	identity  string
	releaser  Releaser
	released  atomic.Bool
	onRelease func()
}

// Identity returns the identity the handle holds.
func (h *Handle) Identity() string { return h.identity }

// Release gives up ownership and frees the underlying lock object. A second
// Release returns ErrReleased without touching the lock.
func (h *Handle) Release() error {
	if h == nil || h.released.Swap(true) {
		return devlockerrors.ErrReleased
	}
	err := h.releaser.Release()
	if h.onRelease != nil {
		h.onRelease()
	}
	return err
}
