package uring

import (
	"runtime"

	"github.com/brickingsoft/uring/pkg/capability"
	"github.com/brickingsoft/uring/pkg/ring"
	"golang.org/x/sys/unix"
)

// Handle is a descriptor exclusively owned by one object. It is closed either by
// Close, which suspends the calling coroutine, or by Release, which never
// suspends. Once closed the handle reports -1 and further closes do nothing.
//
// A handle dropped without either is closed by the loop at its next poll.
type Handle struct {
	loop    *EventLoop
	fd      int
	fixed   bool
	cleanup runtime.Cleanup
}

type orphan struct {
	fd    int
	fixed bool
}

// Own takes ownership of fd.
func (l *EventLoop) Own(fd int) *Handle {
	return l.own(fd, false)
}

// OwnFixed takes ownership of an index in the registered file table.
func (l *EventLoop) OwnFixed(index int) *Handle {
	return l.own(index, true)
}

func (l *EventLoop) own(fd int, fixed bool) *Handle {
	h := &Handle{loop: l, fd: fd, fixed: fixed}
	h.cleanup = runtime.AddCleanup(h, l.adopt, orphan{fd: fd, fixed: fixed})
	return h
}

func (h *Handle) Loop() *EventLoop {
	return h.loop
}

// Fd returns the descriptor, or the fixed table index, or -1 once closed.
func (h *Handle) Fd() int {
	return h.fd
}

func (h *Handle) Fixed() bool {
	return h.fixed
}

func (h *Handle) Closed() bool {
	return h.fd < 0
}

// Flags returns the submission flags operations on this handle need.
func (h *Handle) Flags() uint8 {
	if h.fixed {
		return ring.SQEFixedFile
	}
	return 0
}

// Close closes the handle through the loop and waits for the result.
// Closing an already closed handle returns nil.
func (h *Handle) Close(co *Co) error {
	if h.fd < 0 {
		return nil
	}
	fd := h.fd
	h.disarm()
	res, err := co.Await(h.loop.CloseFd(fd, h.Flags()))
	if err != nil {
		// nothing was submitted, the descriptor is still ours
		h.rearm(fd)
		return err
	}
	if res < 0 {
		return OpError("close", Errno(res))
	}
	return nil
}

// Release closes the handle without waiting. It is safe to call on a closed handle.
func (h *Handle) Release() {
	if h.fd < 0 {
		return
	}
	fd := h.fd
	h.disarm()
	h.loop.closeDetached(orphan{fd: fd, fixed: h.fixed})
}

// Take gives up ownership and returns the descriptor without closing it.
func (h *Handle) Take() int {
	fd := h.fd
	if fd >= 0 {
		h.disarm()
	}
	return fd
}

func (h *Handle) disarm() {
	h.cleanup.Stop()
	h.fd = -1
}

func (h *Handle) rearm(fd int) {
	h.fd = fd
	h.cleanup = runtime.AddCleanup(h, h.loop.adopt, orphan{fd: fd, fixed: h.fixed})
}

// adopt runs on the runtime's cleanup goroutine. The descriptor is handed to the
// loop goroutine, or closed directly once the loop is shut. Close waits for
// adopters that saw the loop open, so nothing is enqueued after the last reap.
func (l *EventLoop) adopt(o orphan) {
	l.adopting.Add(1)
	defer l.adopting.Add(-1)
	if !l.shut.Load() {
		if err := l.orphans.Enqueue(&o); err == nil {
			return
		}
	}
	if !o.fixed {
		_ = unix.Close(o.fd)
	}
}

// reapOrphans issues detached closes for handles collected since the last poll.
func (l *EventLoop) reapOrphans() {
	for {
		o, err := l.orphans.Dequeue()
		if err != nil {
			return
		}
		l.metrics.recordOrphan()
		l.log.Debug().Int("fd", o.fd).Bool("fixed", o.fixed).Msg("closing orphaned handle")
		l.closeDetached(o)
	}
}

func (l *EventLoop) closeDetached(o orphan) {
	if !l.closed && l.caps.Supports(capability.OpClose) {
		flags := uint8(0)
		if o.fixed {
			flags = ring.SQEFixedFile
		}
		err := l.CloseDetach(o.fd, flags)
		if err == nil {
			return
		}
		l.log.Warn().Err(err).Int("fd", o.fd).Msg("detached close failed, closing synchronously")
	}
	if !o.fixed {
		_ = unix.Close(o.fd)
	}
}
