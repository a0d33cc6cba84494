package lock

import (
	"context"
	"regexp"
	"testing"
	"time"

	"github.com/mirkobrombin/go-devlock/v1/scope"
)

// The underlying primitive only accepts short alphanumeric-and-dash names.
var validOSName = regexp.MustCompile("^[a-zA-Z][a-zA-Z0-9-]*$")

func newOSBackend(t *testing.T) *OS {
	t.Helper()
	m := scope.NewManager()
	if err := m.Ensure(); err != nil {
		t.Fatalf("ensure scope: %v", err)
	}
	t.Cleanup(func() { _ = m.Shutdown() })
	return NewOS(m, WithDelay(10*time.Millisecond))
}

func TestOSShortNameProperties(t *testing.T) {
	o := newOSBackend(t)

	id := PoolMutexPrefix + "deadbeef"
	name := o.shortName(id)
	if !validOSName.MatchString(name) {
		t.Fatalf("short name %q has invalid characters", name)
	}
	if len(name) > 40 {
		t.Fatalf("short name %q exceeds 40 characters", name)
	}
	if name != o.shortName(id) {
		t.Fatal("short name not deterministic")
	}
	if name == o.shortName(InstallationIdentity) {
		t.Fatal("distinct identities compressed to the same short name")
	}
}

func TestOSAcquireReleaseCycle(t *testing.T) {
	o := newOSBackend(t)
	ctx := context.Background()

	for i := 0; i < 3; i++ {
		rel, err := o.Acquire(ctx, PoolMutexPrefix+"os-cycle-test")
		if err != nil {
			t.Fatalf("acquire %d: %v", i, err)
		}
		if err := rel.Release(); err != nil {
			t.Fatalf("release %d: %v", i, err)
		}
	}
}

func TestOSAcquireRespectsContext(t *testing.T) {
	o := newOSBackend(t)
	ctx := context.Background()

	rel, err := o.Acquire(ctx, PoolMutexPrefix+"os-cancel-test")
	if err != nil {
		t.Fatalf("acquire: %v", err)
	}
	defer rel.Release()

	cctx, cancel := context.WithTimeout(ctx, 50*time.Millisecond)
	defer cancel()
	if _, err := o.Acquire(cctx, PoolMutexPrefix+"os-cancel-test"); err == nil {
		t.Fatal("expected cancellation error while lock held")
	}
}
