//go:build linux

// Package process tunes the OS thread an event loop is driven from.
package process

import (
	"fmt"
	"runtime"

	"golang.org/x/sys/unix"
)

// PinCurrentThread locks the calling goroutine to its OS thread and binds that
// thread to one CPU, index modulo the CPU count. The returned function undoes
// the lock.
func PinCurrentThread(index int) (unpin func(), err error) {
	if index < 0 {
		return nil, fmt.Errorf("cpu index must not be negative: %d", index)
	}
	runtime.LockOSThread()

	var newMask unix.CPUSet
	newMask.Zero()
	newMask.Set(index % runtime.NumCPU())

	if err = unix.SchedSetaffinity(0, &newMask); err != nil {
		runtime.UnlockOSThread()
		return nil, fmt.Errorf("SchedSetaffinity: %w, %v", err, newMask)
	}
	return runtime.UnlockOSThread, nil
}

type Priority int

const (
	IDLE Priority = iota - 1
	NORM
	HIGH
	REALTIME
)

// ParsePriority accepts idle, norm, high and realtime.
func ParsePriority(s string) (Priority, error) {
	switch s {
	case "idle":
		return IDLE, nil
	case "", "norm":
		return NORM, nil
	case "high":
		return HIGH, nil
	case "realtime":
		return REALTIME, nil
	}
	return NORM, fmt.Errorf("unknown priority: %s", s)
}

// SetCurrentThreadPriority renices the calling thread. Raising it above NORM
// needs CAP_SYS_NICE.
func SetCurrentThreadPriority(level Priority) error {
	n := 0
	switch level {
	case REALTIME:
		n = -19
	case HIGH:
		n = -15
	case IDLE:
		n = 15
	default:
	}
	if err := unix.Setpriority(unix.PRIO_PROCESS, unix.Gettid(), n); err != nil {
		return fmt.Errorf("Setpriority: %w", err)
	}
	return nil
}
