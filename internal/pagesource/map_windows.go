//go:build windows

package pagesource

import (
	"unsafe"

	"golang.org/x/sys/windows"
)

// mapAnon reserves and commits n bytes of zero-filled read-write memory.
func mapAnon(n int) ([]byte, error) {
	addr, err := windows.VirtualAlloc(0, uintptr(n),
		windows.MEM_RESERVE|windows.MEM_COMMIT, windows.PAGE_READWRITE)
	if err != nil {
		return nil, err
	}
	return unsafe.Slice((*byte)(unsafe.Pointer(addr)), n), nil
}

// unmapAnon releases an allocation created by mapAnon. VirtualFree with
// MEM_RELEASE requires a zero size and the original base address.
func unmapAnon(mem []byte) error {
	return windows.VirtualFree(uintptr(unsafe.Pointer(&mem[0])), 0, windows.MEM_RELEASE)
}

// osPageSize asks the OS rather than trusting the runtime's fixed value.
func osPageSize() uintptr {
	var si windows.SystemInfo
	windows.GetSystemInfo(&si)
	return uintptr(si.PageSize)
}
