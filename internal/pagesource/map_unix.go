//go:build unix

package pagesource

import (
	"golang.org/x/sys/unix"
)

// mapAnon maps n bytes of private, zero-filled anonymous memory.
func mapAnon(n int) ([]byte, error) {
	return unix.Mmap(-1, 0, n,
		unix.PROT_READ|unix.PROT_WRITE,
		unix.MAP_PRIVATE|unix.MAP_ANONYMOUS)
}

// unmapAnon releases a mapping created by mapAnon.
func unmapAnon(mem []byte) error {
	return unix.Munmap(mem)
}

// osPageSize queries the kernel's page size.
func osPageSize() uintptr {
	return uintptr(unix.Getpagesize())
}
