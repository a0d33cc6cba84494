package lock

import (
	"context"
	"crypto/sha256"
	"encoding/hex"
	"time"

	"github.com/juju/clock"
	mutex "github.com/juju/mutex/v2"

	"github.com/mirkobrombin/go-devlock/v1/scope"
)

// defaultOSDelay is how often the underlying mutex polls for acquisition on
// platforms where the primitive requires polling.
const defaultOSDelay = 250 * time.Millisecond

// OS implements Backend on kernel-arbitrated named mutexes. The kernel
// releases the lock when the holding process dies, so an abandoned lock is
// simply acquired by the next waiter. Mutex names embed the scope's
// principal tag, keeping scopes bound to different principals disjoint.
type OS struct {
	scope *scope.Manager
	clock mutex.Clock
	delay time.Duration
}

// OSOption configures an OS backend.
type OSOption func(*OS)

// WithClock overrides the clock used by the acquisition loop. Exposed for
// tests.
func WithClock(c mutex.Clock) OSOption {
	return func(o *OS) {
		if c != nil {
			o.clock = c
		}
	}
}

// WithDelay overrides the acquisition poll interval.
func WithDelay(d time.Duration) OSOption {
	return func(o *OS) {
		if d > 0 {
			o.delay = d
		}
	}
}

// NewOS returns an OS backend bound to the given scope manager.
func NewOS(m *scope.Manager, opts ...OSOption) *OS {
	o := &OS{
		scope: m,
		clock: clock.WallClock,
		delay: defaultOSDelay,
	}
	for _, opt := range opts {
		opt(o)
	}
	return o
}

// Acquire blocks until the identity is owned or ctx is cancelled.
func (o *OS) Acquire(ctx context.Context, identity string) (Releaser, error) {
	releaser, err := mutex.Acquire(mutex.Spec{
		Name:   o.shortName(identity),
		Clock:  o.clock,
		Delay:  o.delay,
		Cancel: ctx.Done(),
	})
	if err != nil {
		if ctx.Err() != nil {
			return nil, ctx.Err()
		}
		return nil, err
	}
	return osReleaser{releaser}, nil
}

// shortName compresses an identity into the constrained name space of the
// underlying primitive (letters, digits and dashes, at most 40 characters,
// starting with a letter). The compression is a pure function of the
// identity and the scope principal, so every process derives the same name.
func (o *OS) shortName(identity string) string {
	sum := sha256.Sum256([]byte(identity))
	return "devlock-" + o.scope.Principal().Tag() + "-" + hex.EncodeToString(sum[:12])
}

type osReleaser struct {
	releaser mutex.Releaser
}

func (r osReleaser) Release() error {
	r.releaser.Release()
	return nil
}
