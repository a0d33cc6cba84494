package scope

import (
	"errors"
	"io"
)

func isNamespaceExists(err error) bool { return errors.Is(err, errNamespaceExists) }

func isNamespaceMidFlight(err error) bool { return errors.Is(err, errNamespaceMidFlight) }

// nsState enumerates the create-or-open cycle for the private namespace.
// The cycle races against other processes creating or deleting the same
// namespace: creation can lose to a concurrent creator, and opening can
// observe the object mid-creation or mid-deletion. The race window is a
// single syscall and not adversarial, so retrying is bounded only by
// eventual resolution.
type nsState int

const (
	nsCreating nsState = iota
	nsOpeningExisting
	nsRetrying
	nsDone
	nsFailed
)

// createOrOpenNamespace drives the namespace state machine against the given
// boundary until it either holds a namespace handle or hits a fatal error.
func createOrOpenNamespace(b boundaryHandle) (io.Closer, error) {
	var (
		handle io.Closer
		err    error
	)
	for state := nsCreating; ; {
		switch state {
		case nsCreating:
			handle, err = b.createNamespace()
			switch {
			case err == nil:
				state = nsDone
			case isNamespaceExists(err):
				state = nsOpeningExisting
			default:
				state = nsFailed
			}
		case nsOpeningExisting:
			handle, err = b.openNamespace()
			switch {
			case err == nil:
				state = nsDone
			case isNamespaceMidFlight(err):
				state = nsRetrying
			default:
				state = nsFailed
			}
		case nsRetrying:
			state = nsCreating
		case nsDone:
			return handle, nil
		case nsFailed:
			return nil, err
		}
	}
}
