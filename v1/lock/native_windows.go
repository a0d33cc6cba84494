//go:build windows

package lock

import (
	"context"
	"fmt"

	"golang.org/x/sys/windows"

	"github.com/mirkobrombin/go-devlock/v1/scope"
)

// waitSlice is the wait granularity used to observe ctx cancellation while
// blocked on the kernel mutex.
const waitSlice = 100 // milliseconds

// Native implements Backend on named kernel mutexes created inside the
// isolation scope's private namespace. Identities are used verbatim as
// object paths (the namespace alias is part of the identity prefix), so the
// scope must have been ensured before the first acquisition — the Broker
// guarantees that ordering.
type Native struct {
	scope *scope.Manager
}

// NewNative returns a backend using named kernel mutexes scoped by m.
func NewNative(m *scope.Manager) *Native {
	return &Native{scope: m}
}

// Acquire creates or opens the named mutex and blocks until it is owned.
// Acquisition of an abandoned mutex (previous owner died while holding it)
// is success.
func (n *Native) Acquire(ctx context.Context, identity string) (Releaser, error) {
	name, err := windows.UTF16PtrFromString(identity)
	if err != nil {
		return nil, err
	}
	handle, err := windows.CreateMutex(nil, false, name)
	if err != nil && err != windows.ERROR_ALREADY_EXISTS {
		return nil, fmt.Errorf("create mutex: %w", err)
	}
	for {
		status, err := windows.WaitForSingleObject(handle, waitSlice)
		switch status {
		case windows.WAIT_OBJECT_0, windows.WAIT_ABANDONED:
			return nativeReleaser(handle), nil
		case uint32(windows.WAIT_TIMEOUT):
			if ctx.Err() != nil {
				_ = windows.CloseHandle(handle)
				return nil, ctx.Err()
			}
		default:
			_ = windows.CloseHandle(handle)
			if err == nil {
				err = fmt.Errorf("wait status 0x%x", status)
			}
			return nil, fmt.Errorf("wait for mutex: %w", err)
		}
	}
}

type nativeReleaser windows.Handle

func (h nativeReleaser) Release() error {
	err := windows.ReleaseMutex(windows.Handle(h))
	if cerr := windows.CloseHandle(windows.Handle(h)); err == nil {
		err = cerr
	}
	return err
}
