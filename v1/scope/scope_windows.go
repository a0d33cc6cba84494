//go:build windows

package scope

import (
	"fmt"
	"io"
	"syscall"
	"unsafe"

	"golang.org/x/sys/windows"
)

// The boundary descriptor and private namespace APIs are not wrapped by
// x/sys/windows, so they are loaded lazily from kernel32.
var (
	modkernel32 = windows.NewLazySystemDLL("kernel32.dll")

	procCreateBoundaryDescriptorW  = modkernel32.NewProc("CreateBoundaryDescriptorW")
	procAddSIDToBoundaryDescriptor = modkernel32.NewProc("AddSIDToBoundaryDescriptor")
	procDeleteBoundaryDescriptor   = modkernel32.NewProc("DeleteBoundaryDescriptor")
	procCreatePrivateNamespaceW    = modkernel32.NewProc("CreatePrivateNamespaceW")
	procOpenPrivateNamespaceW      = modkernel32.NewProc("OpenPrivateNamespaceW")
	procClosePrivateNamespace      = modkernel32.NewProc("ClosePrivateNamespace")
)

// Grants full access to SYSTEM and the administrators group; objects inside
// the namespace are reachable only by processes satisfying the boundary SID.
const namespaceSDDL = "D:P(A;;GA;;;SY)(A;;GA;;;BA)"

type windowsPlatform struct{}

func newPlatform() platform { return windowsPlatform{} }

func (windowsPlatform) resolvePrincipal() (Principal, error) {
	token := windows.GetCurrentProcessToken()
	user, err := token.GetTokenUser()
	if err != nil {
		return 0, fmt.Errorf("query token user: %w", err)
	}
	if user.User.Sid.IsWellKnown(windows.WinLocalSystemSid) {
		return LocalSystem, nil
	}
	return BuiltinAdministrators, nil
}

func (windowsPlatform) createBoundary(p Principal) (boundaryHandle, error) {
	name, err := windows.UTF16PtrFromString(Subsystem)
	if err != nil {
		return nil, err
	}
	handle, _, callErr := procCreateBoundaryDescriptorW.Call(uintptr(unsafe.Pointer(name)), 0)
	if handle == 0 {
		return nil, fmt.Errorf("create boundary descriptor: %w", callErr)
	}

	sidType := windows.WinBuiltinAdministratorsSid
	if p == LocalSystem {
		sidType = windows.WinLocalSystemSid
	}
	sid, err := windows.CreateWellKnownSid(sidType)
	if err != nil {
		deleteBoundary(handle)
		return nil, fmt.Errorf("create well-known SID: %w", err)
	}
	ok, _, callErr := procAddSIDToBoundaryDescriptor.Call(
		uintptr(unsafe.Pointer(&handle)),
		uintptr(unsafe.Pointer(sid)),
	)
	if ok == 0 {
		deleteBoundary(handle)
		return nil, fmt.Errorf("add SID to boundary descriptor: %w", callErr)
	}

	sd, err := windows.SecurityDescriptorFromString(namespaceSDDL)
	if err != nil {
		deleteBoundary(handle)
		return nil, fmt.Errorf("parse namespace security descriptor: %w", err)
	}
	sa := &windows.SecurityAttributes{
		SecurityDescriptor: sd,
	}
	sa.Length = uint32(unsafe.Sizeof(*sa))
	return &windowsBoundary{handle: handle, attrs: sa}, nil
}

type windowsBoundary struct {
	handle uintptr
	attrs  *windows.SecurityAttributes
}

func (b *windowsBoundary) createNamespace() (io.Closer, error) {
	name, err := windows.UTF16PtrFromString(Subsystem)
	if err != nil {
		return nil, err
	}
	h, _, callErr := procCreatePrivateNamespaceW.Call(
		uintptr(unsafe.Pointer(b.attrs)),
		b.handle,
		uintptr(unsafe.Pointer(name)),
	)
	if h != 0 {
		return namespaceCloser(h), nil
	}
	if errno, ok := callErr.(syscall.Errno); ok && errno == windows.ERROR_ALREADY_EXISTS {
		return nil, errNamespaceExists
	}
	return nil, fmt.Errorf("create private namespace: %w", callErr)
}

func (b *windowsBoundary) openNamespace() (io.Closer, error) {
	name, err := windows.UTF16PtrFromString(Subsystem)
	if err != nil {
		return nil, err
	}
	h, _, callErr := procOpenPrivateNamespaceW.Call(
		b.handle,
		uintptr(unsafe.Pointer(name)),
	)
	if h != 0 {
		return namespaceCloser(h), nil
	}
	if errno, ok := callErr.(syscall.Errno); ok && errno == windows.ERROR_PATH_NOT_FOUND {
		return nil, errNamespaceMidFlight
	}
	return nil, fmt.Errorf("open private namespace: %w", callErr)
}

func (b *windowsBoundary) Close() error {
	deleteBoundary(b.handle)
	return nil
}

func deleteBoundary(handle uintptr) {
	_, _, _ = procDeleteBoundaryDescriptor.Call(handle)
}

type namespaceCloser uintptr

func (n namespaceCloser) Close() error {
	_, _, _ = procClosePrivateNamespace.Call(uintptr(n), 0)
	return nil
}
