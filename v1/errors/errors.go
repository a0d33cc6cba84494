// Package errors defines the typed failure kinds returned by go-devlock.
// Every failure is reported to the immediate caller with enough context
// (offending name, underlying cause) for diagnostics; nothing is swallowed.
package errors

import (
	"errors"
	"fmt"
)

var (
	// ErrReleased is returned when a lock handle is released more than once.
	ErrReleased = errors.New("devlock: handle already released")
	// ErrScopeClosed is returned when a lock is requested after Shutdown.
	ErrScopeClosed = errors.New("devlock: isolation scope has been shut down")
)

// NormalizationError reports a failure to canonicalize a pool name.
type NormalizationError struct {
	Input string
	Err   error
}

func (e *NormalizationError) Error() string {
	return fmt.Sprintf("devlock: normalize %q: %v", e.Input, e.Err)
}

func (e *NormalizationError) Unwrap() error { return e.Err }

// CryptoError reports a failure of the digest provider or a hash instance.
// It is fatal to the current lock request only, never to the shared provider.
type CryptoError struct {
	Op  string
	Err error
}

func (e *CryptoError) Error() string {
	return fmt.Sprintf("devlock: digest %s: %v", e.Op, e.Err)
}

func (e *CryptoError) Unwrap() error { return e.Err }

// ScopeError reports a failure to create or open the isolation scope:
// principal resolution, boundary or namespace creation, or an unresolvable
// transient race.
type ScopeError struct {
	Stage string
	Err   error
}

func (e *ScopeError) Error() string {
	return fmt.Sprintf("devlock: scope %s: %v", e.Stage, e.Err)
}

func (e *ScopeError) Unwrap() error { return e.Err }

// LockError reports a mutex creation, open, or wait failure for a specific
// lock identity.
type LockError struct {
	Identity string
	Err      error
}

func (e *LockError) Error() string {
	return fmt.Sprintf("devlock: lock %q: %v", e.Identity, e.Err)
}

func (e *LockError) Unwrap() error { return e.Err }
