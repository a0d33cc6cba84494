// Package scope manages the process-wide isolation scope that segregates
// this subsystem's named lock objects from the global object namespace.
//
// A Manager owns the scope: the security principal it is bound to, the
// platform boundary and namespace objects, and the shared digest provider.
// The scope is created lazily by the first lock request, shared by every
// subsequent request in the process, and torn down once at shutdown.
package scope

import (
	"errors"
	"io"
	"log/slog"
	"sync"

	"github.com/mirkobrombin/go-devlock/v1/digest"
	devlockerrors "github.com/mirkobrombin/go-devlock/v1/errors"
)

const (
	// Subsystem names the boundary and the private namespace. Frozen:
	// changing it breaks interoperability with cooperating processes.
	Subsystem = "DevLock"

	// PoolNameLabel is the domain-separation label absorbed into every pool
	// name digest. Frozen for the same reason.
	PoolNameLabel = "DevLock Pool Name Mutex Stable Suffix v1"
)

// Principal identifies the security identity a scope is restricted to. It is
// resolved once at scope creation and fixed for the scope's lifetime.
type Principal int

const (
	// LocalSystem is the elevated system identity.
	LocalSystem Principal = iota
	// BuiltinAdministrators is the local administrators group.
	BuiltinAdministrators
)

func (p Principal) String() string {
	switch p {
	case LocalSystem:
		return "local-system"
	case BuiltinAdministrators:
		return "builtin-administrators"
	default:
		return "unknown"
	}
}

// Tag returns the short qualifier embedded in portable lock names so that
// scopes bound to different principals never share a lock.
func (p Principal) Tag() string {
	if p == LocalSystem {
		return "s"
	}
	return "a"
}

// platform abstracts the OS primitives behind scope creation so the manager
// and its state machine can be driven with fakes.
type platform interface {
	resolvePrincipal() (Principal, error)
	createBoundary(p Principal) (boundaryHandle, error)
}

// boundaryHandle is a created boundary object. Close deletes it.
type boundaryHandle interface {
	io.Closer
	createNamespace() (io.Closer, error)
	openNamespace() (io.Closer, error)
}

var (
	// errNamespaceExists signals that another process created the namespace
	// first; the caller should open it instead.
	errNamespaceExists = errors.New("namespace already exists")
	// errNamespaceMidFlight signals the namespace was observed mid-creation
	// or mid-deletion; the create-or-open cycle should be retried.
	errNamespaceMidFlight = errors.New("namespace transiently unavailable")
)

// Manager owns the process-wide isolation scope. The zero value is not
// usable; construct with NewManager and inject it into a lock broker.
type Manager struct {
	mu    sync.Mutex
	log   *slog.Logger
	label string
	plat  platform

	created   bool
	closed    bool
	principal Principal
	provider  *digest.Provider
	boundary  boundaryHandle
	namespace io.Closer
}

// Option configures a Manager.
type Option func(*Manager)

// WithLogger sets the structured logger used on failure paths.
func WithLogger(l *slog.Logger) Option {
	return func(m *Manager) {
		if l != nil {
			m.log = l
		}
	}
}

// WithLabel overrides the domain-separation label. Only useful for tests;
// production scopes must keep PoolNameLabel for cross-process compatibility.
func WithLabel(label string) Option {
	return func(m *Manager) {
		if label != "" {
			m.label = label
		}
	}
}

// NewManager creates an unopened scope manager. It performs no OS work; the
// scope itself is created by the first Ensure call.
func NewManager(opts ...Option) *Manager {
	m := &Manager{
		log:   slog.Default(),
		label: PoolNameLabel,
		plat:  newPlatform(),
	}
	for _, opt := range opts {
		opt(m)
	}
	return m
}

// Ensure creates the isolation scope if it does not exist yet. It is
// idempotent and safe to call concurrently: only the first caller performs
// work, and every caller observes the same final state. Partial state from a
// failed attempt is rolled back before returning, so a later call retries
// cleanly.
func (m *Manager) Ensure() error {
	m.mu.Lock()
	defer m.mu.Unlock()
	if m.closed {
		return devlockerrors.ErrScopeClosed
	}
	if m.created {
		return nil
	}

	// The digest provider is required by the broker, so its failure aborts
	// scope creation before any OS object exists.
	provider, err := digest.Open(m.label)
	if err != nil {
		m.log.Error("devlock: opening digest provider failed", "error", err)
		return err
	}

	principal, err := m.plat.resolvePrincipal()
	if err != nil {
		provider.Close()
		m.log.Error("devlock: resolving security principal failed", "error", err)
		return &devlockerrors.ScopeError{Stage: "resolve principal", Err: err}
	}

	boundary, err := m.plat.createBoundary(principal)
	if err != nil {
		provider.Close()
		m.log.Error("devlock: creating boundary failed", "principal", principal.String(), "error", err)
		return &devlockerrors.ScopeError{Stage: "create boundary", Err: err}
	}

	namespace, err := createOrOpenNamespace(boundary)
	if err != nil {
		_ = boundary.Close()
		provider.Close()
		m.log.Error("devlock: creating namespace failed", "principal", principal.String(), "error", err)
		return &devlockerrors.ScopeError{Stage: "create namespace", Err: err}
	}

	m.principal = principal
	m.provider = provider
	m.boundary = boundary
	m.namespace = namespace
	m.created = true
	return nil
}

// Provider returns the shared digest provider. Valid only after a successful
// Ensure.
func (m *Manager) Provider() *digest.Provider {
	m.mu.Lock()
	defer m.mu.Unlock()
	return m.provider
}

// Principal returns the security principal the scope is bound to. Valid only
// after a successful Ensure.
func (m *Manager) Principal() Principal {
	m.mu.Lock()
	defer m.mu.Unlock()
	return m.principal
}

// Created reports whether the scope has been created and not yet shut down.
func (m *Manager) Created() bool {
	m.mu.Lock()
	defer m.mu.Unlock()
	return m.created
}

// Shutdown tears the scope down: the digest provider is closed, the
// namespace is closed and the boundary deleted. It is a no-op when the scope
// was never created, and idempotent. Lock requests after Shutdown fail with
// ErrScopeClosed.
func (m *Manager) Shutdown() error {
	m.mu.Lock()
	defer m.mu.Unlock()
	if m.closed {
		return nil
	}
	m.closed = true
	if !m.created {
		return nil
	}
	m.provider.Close()
	var errs []error
	if err := m.namespace.Close(); err != nil {
		errs = append(errs, err)
	}
	if err := m.boundary.Close(); err != nil {
		errs = append(errs, err)
	}
	m.provider = nil
	m.namespace = nil
	m.boundary = nil
	m.created = false
	return errors.Join(errs...)
}
