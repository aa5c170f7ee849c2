//go:build linux

package shm

import (
	"fmt"

	"golang.org/x/sys/unix"

	"github.com/graphkit/graphd/errs"
)

// CreateSealedMemfd allocates an anonymous, file-descriptor-backed memory
// region of the given size and seals it against resize (F_SEAL_SHRINK,
// F_SEAL_GROW) and against further seals (F_SEAL_SEAL). No write seal is
// applied, so any process holding the fd can write the region. Only the
// server side calls this; the
// client only maps an fd it received over the side channel.
func CreateSealedMemfd(name string, size uint64) (fd int, err error) {
	fd, err = unix.MemfdCreate(name, unix.MFD_ALLOW_SEALING|unix.MFD_CLOEXEC)
	if err != nil {
		return -1, fmt.Errorf("memfd_create: %w: %w", err, errs.ErrNoMemory)
	}
	if err := unix.Ftruncate(fd, int64(size)); err != nil {
		unix.Close(fd)
		return -1, fmt.Errorf("ftruncate: %w: %w", err, errs.ErrNoMemory)
	}
	seals := unix.F_SEAL_SHRINK | unix.F_SEAL_GROW | unix.F_SEAL_SEAL
	if _, err := unix.FcntlInt(uintptr(fd), unix.F_ADD_SEALS, seals); err != nil {
		unix.Close(fd)
		return -1, fmt.Errorf("add seals: %w: %w", err, errs.ErrNoMemory)
	}
	return fd, nil
}

// MapFD maps [offset, offset+size) of fd read/write. On failure it returns
// errs.ErrMapFailed without touching fd's lifetime, per §4.7 "attachment
// failures surface as MAP_FAILED without consuming the fd".
func MapFD(fd int, offset int64, size int) ([]byte, error) {
	buf, err := unix.Mmap(fd, offset, size, unix.PROT_READ|unix.PROT_WRITE, unix.MAP_SHARED)
	if err != nil {
		return nil, fmt.Errorf("mmap: %w: %w", err, errs.ErrMapFailed)
	}
	return buf, nil
}

// Unmap releases a mapping obtained from MapFD.
func Unmap(buf []byte) error {
	return unix.Munmap(buf)
}
