//go:build !windows

package scope

import (
	"io"
	"os"
)

// On Unix there is no kernel object namespace to segregate: isolation is
// achieved by embedding the resolved principal in every derived lock name
// (see the OS lock backend), so scopes bound to different principals never
// collide. The boundary and namespace are process-local markers that keep
// the lifecycle identical across platforms.
type unixPlatform struct{}

func newPlatform() platform { return unixPlatform{} }

func (unixPlatform) resolvePrincipal() (Principal, error) {
	if os.Geteuid() == 0 {
		return LocalSystem, nil
	}
	return BuiltinAdministrators, nil
}

func (unixPlatform) createBoundary(Principal) (boundaryHandle, error) {
	return unixBoundary{}, nil
}

type unixBoundary struct{}

func (unixBoundary) createNamespace() (io.Closer, error) { return nopCloser{}, nil }

func (unixBoundary) openNamespace() (io.Closer, error) { return nopCloser{}, nil }

func (unixBoundary) Close() error { return nil }

type nopCloser struct{}

func (nopCloser) Close() error { return nil }
