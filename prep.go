package uring

import (
	"time"
	"unsafe"

	"github.com/brickingsoft/errors"
	"github.com/brickingsoft/uring/pkg/capability"
	"github.com/brickingsoft/uring/pkg/ring"
	"github.com/pawelgaczynski/giouring"
	"golang.org/x/sys/unix"
)

// Nop completes with 0 without touching any file.
func (l *EventLoop) Nop(flags uint8) (*Bridge, error) {
	b, _, err := l.prepareRW(capability.OpNop, flags, -1, nil, 0, 0)
	return b, err
}

// Timeout completes with -ETIME after d, or with 0 once count other
// completions have been posted (count 0 disables that). Multishot timeouts are
// refused since an awaited operation completes once.
func (l *EventLoop) Timeout(d time.Duration, count uint32, timeoutFlags uint32, flags uint8) (*Bridge, error) {
	if timeoutFlags&giouring.TimeoutMultishot != 0 {
		panic(misuse("timeout: multishot posts more than one completion"))
	}
	ts := &unix.Timespec{}
	*ts = unix.NsecToTimespec(d.Nanoseconds())
	b, sqe, err := l.prepareRW(capability.OpTimeout, flags, -1, unsafe.Pointer(ts), 1, uint64(count))
	if err != nil {
		return nil, err
	}
	sqe.OpcodeFlags = timeoutFlags
	b.keep[0] = ts
	return b, nil
}

// CloseFd closes fd. With ring.SQEFixedFile in flags, fd is an index into the
// registered file table.
func (l *EventLoop) CloseFd(fd int, flags uint8) (*Bridge, error) {
	b, sqe, err := l.prepareRW(capability.OpClose, flags&^ring.SQEFixedFile, fd, nil, 0, 0)
	if err != nil {
		return nil, err
	}
	if flags&ring.SQEFixedFile != 0 {
		closeFixed(sqe, fd)
	}
	return b, nil
}

// CloseDetach submits a close nobody waits for. It never suspends and its
// completion, successful or not, resumes nothing.
func (l *EventLoop) CloseDetach(fd int, flags uint8) error {
	l.caps.Require(capability.OpClose)
	if flags&ring.SQECQESkipSuccess != 0 {
		panic(misuse("close: CQE skip would hide the completion from the in-flight count"))
	}
	sqe, err := l.acquire(capability.OpClose)
	if err != nil {
		return err
	}
	encode(sqe, capability.OpClose, flags&^ring.SQEFixedFile, fd, 0, 0, 0)
	if flags&ring.SQEFixedFile != 0 {
		closeFixed(sqe, fd)
	}
	sqe.UserData = 0
	l.inflight++
	l.metrics.recordSubmitted(capability.OpClose)
	return nil
}

// closeFixed targets a registered file table slot instead of a descriptor.
func closeFixed(sqe *giouring.SubmissionQueueEntry, index int) {
	sqe.Fd = 0
	sqe.SpliceFdIn = int32(index + 1)
}

func cstring(path string) (*byte, error) {
	p, err := unix.BytePtrFromString(path)
	if err != nil {
		return nil, errors.From(ErrInvalidArgument, errors.WithWrap(err))
	}
	return p, nil
}

func bytesPtr(b []byte) unsafe.Pointer {
	if len(b) == 0 {
		return nil
	}
	return unsafe.Pointer(unsafe.SliceData(b))
}

func iovecs(bufs [][]byte) []unix.Iovec {
	vecs := make([]unix.Iovec, len(bufs))
	for i, b := range bufs {
		if len(b) > 0 {
			vecs[i].Base = unsafe.SliceData(b)
		}
		vecs[i].SetLen(len(b))
	}
	return vecs
}
