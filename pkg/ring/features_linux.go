//go:build linux

package ring

import (
	"os"
	"unsafe"

	"golang.org/x/sys/unix"
)

// setupParams mirrors struct io_uring_params.
type setupParams struct {
	sqEntries    uint32
	cqEntries    uint32
	flags        uint32
	sqThreadCPU  uint32
	sqThreadIdle uint32
	features     uint32
	wqFd         uint32
	resv         [3]uint32
	sqOff        [10]uint32
	cqOff        [10]uint32
}

// probeFeatures creates a throwaway single-entry ring to read io_uring_params.features.
func probeFeatures() (uint32, error) {
	params := setupParams{}
	fd, _, errno := unix.Syscall(unix.SYS_IO_URING_SETUP, 1, uintptr(unsafe.Pointer(&params)), 0)
	if errno != 0 {
		return 0, os.NewSyscallError("io_uring_setup", errno)
	}
	_ = unix.Close(int(fd))
	return params.features, nil
}
