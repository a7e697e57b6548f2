package uring

import (
	"syscall"

	"github.com/brickingsoft/errors"
)

var (
	ErrInitialization  = errors.Define("uring: initialization failed")
	ErrSlotExhausted   = errors.Define("uring: no submission slot available")
	ErrClosed          = errors.Define("uring: event loop closed")
	ErrInFlight        = errors.Define("uring: operations still in flight")
	ErrNothingPending  = errors.Define("uring: nothing to wait for")
	ErrTaskSuspended   = errors.Define("uring: task is suspended")
	ErrTaskPanicked    = errors.Define("uring: task panicked")
	ErrDeadlock        = errors.Define("uring: task can never complete")
	ErrRegistration    = errors.Define("uring: registration failed")
	ErrInvalidArgument = errors.Define("uring: invalid argument")
)

const (
	errMetaPkgKey = "pkg"
	errMetaPkgVal = "uring"
	errMetaOpKey  = "op"
)

func IsSlotExhausted(err error) bool {
	return errors.Is(err, ErrSlotExhausted)
}

func IsClosed(err error) bool {
	return errors.Is(err, ErrClosed)
}

func IsInFlight(err error) bool {
	return errors.Is(err, ErrInFlight)
}

func IsNothingPending(err error) bool {
	return errors.Is(err, ErrNothingPending)
}

func IsDeadlock(err error) bool {
	return errors.Is(err, ErrDeadlock)
}

func IsTaskSuspended(err error) bool {
	return errors.Is(err, ErrTaskSuspended)
}

func IsTaskPanicked(err error) bool {
	return errors.Is(err, ErrTaskPanicked)
}

// Errno converts a negative completion result into the kernel error it carries.
// Non-negative results yield 0.
func Errno(res int32) syscall.Errno {
	if res >= 0 {
		return 0
	}
	return syscall.Errno(-res)
}

// ResultError is Errno as an error value, nil for a non-negative result.
func ResultError(res int32) error {
	if res >= 0 {
		return nil
	}
	return syscall.Errno(-res)
}

// OpError builds the error a façade reports for a failed operation.
func OpError(op string, cause error) error {
	return errors.New(
		op+" failed",
		errors.WithMeta(errMetaPkgKey, errMetaPkgVal),
		errors.WithMeta(errMetaOpKey, op),
		errors.WithWrap(cause),
	)
}
