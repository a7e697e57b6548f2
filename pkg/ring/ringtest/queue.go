// Package ringtest provides an in-memory ring.Queue for tests.
//
// Submitted entries are answered by a Responder. Entries can also be held back
// and released in any order to mimic the kernel completing them out of order.
package ringtest

import (
	"syscall"

	"github.com/brickingsoft/uring/pkg/capability"
	"github.com/eapache/queue"
	"github.com/pawelgaczynski/giouring"
)

// Responder computes the result code of a submitted entry.
type Responder func(sqe *giouring.SubmissionQueueEntry) int32

// EchoLen answers every entry with its length field, or 0.
func EchoLen(sqe *giouring.SubmissionQueueEntry) int32 {
	return int32(sqe.Len)
}

type Queue struct {
	// Respond answers submitted entries. Nil means EchoLen.
	Respond Responder
	// Hold keeps submitted entries in flight until Release or a wait.
	Hold bool
	// Stuck makes Submit refuse to consume filled slots.
	Stuck bool

	entries  uint32
	pending  []*giouring.SubmissionQueueEntry
	held     []giouring.SubmissionQueueEntry
	cq       *queue.Queue
	log      []giouring.SubmissionQueueEntry
	submits  int
	advanced uint32
	files    []int
	buffers  []syscall.Iovec
	closed   bool
}

func New(entries uint32) *Queue {
	return &Queue{
		entries: entries,
		cq:      queue.New(),
	}
}

func (q *Queue) GetSQE() *giouring.SubmissionQueueEntry {
	if uint32(len(q.pending)) >= q.entries {
		return nil
	}
	sqe := &giouring.SubmissionQueueEntry{}
	q.pending = append(q.pending, sqe)
	return sqe
}

func (q *Queue) Submit() (uint, error) {
	q.submits++
	if q.Stuck {
		return 0, nil
	}
	n := uint(len(q.pending))
	for i, sqe := range q.pending {
		q.log = append(q.log, *sqe)
		if q.Hold {
			q.held = append(q.held, *sqe)
		} else {
			q.complete(sqe)
		}
		q.pending[i] = nil
	}
	q.pending = q.pending[:0]
	return n, nil
}

func (q *Queue) SubmitAndWait(waitNr uint32) (uint, error) {
	n, err := q.Submit()
	if err != nil {
		return n, err
	}
	if uint32(q.cq.Length()) < waitNr && len(q.held) > 0 {
		q.Release()
	}
	return n, nil
}

func (q *Queue) PeekBatchCQE(cqes []*giouring.CompletionQueueEvent) uint32 {
	n := min(len(cqes), q.cq.Length())
	for i := 0; i < n; i++ {
		cqes[i] = q.cq.Get(i).(*giouring.CompletionQueueEvent)
	}
	return uint32(n)
}

func (q *Queue) CQAdvance(n uint32) {
	for i := uint32(0); i < n && q.cq.Length() > 0; i++ {
		q.cq.Remove()
	}
	q.advanced += n
}

func (q *Queue) RegisterFiles(fds []int) (uint, error) {
	if q.files != nil {
		return 0, syscall.EBUSY
	}
	q.files = append([]int{}, fds...)
	return uint(len(fds)), nil
}

func (q *Queue) RegisterFilesUpdate(off uint, fds []int) (uint, error) {
	if int(off)+len(fds) > len(q.files) {
		return 0, syscall.EINVAL
	}
	copy(q.files[off:], fds)
	return uint(len(fds)), nil
}

func (q *Queue) UnregisterFiles() (uint, error) {
	if q.files == nil {
		return 0, syscall.ENXIO
	}
	q.files = nil
	return 0, nil
}

func (q *Queue) RegisterBuffers(iovecs []syscall.Iovec) (uint, error) {
	if q.buffers != nil {
		return 0, syscall.EBUSY
	}
	q.buffers = append([]syscall.Iovec{}, iovecs...)
	return uint(len(iovecs)), nil
}

func (q *Queue) UnregisterBuffers() (uint, error) {
	if q.buffers == nil {
		return 0, syscall.ENXIO
	}
	q.buffers = nil
	return 0, nil
}

func (q *Queue) Entries() uint32 {
	return q.entries
}

func (q *Queue) Close() error {
	q.closed = true
	return nil
}

// ProbeOps and ProbeFeatures make Queue a capability.Prober that claims everything.
func (q *Queue) ProbeOps() ([]capability.Op, error) {
	return capability.AllOps(), nil
}

func (q *Queue) ProbeFeatures() (uint32, error) {
	return ^uint32(0), nil
}

func (q *Queue) complete(sqe *giouring.SubmissionQueueEntry) {
	respond := q.Respond
	if respond == nil {
		respond = EchoLen
	}
	q.Inject(sqe.UserData, respond(sqe))
}

// Release completes held entries. With no arguments every held entry completes
// in submission order; otherwise the entries at the given positions complete
// in the given order and the rest stay held.
func (q *Queue) Release(order ...int) {
	if len(order) == 0 {
		for i := range q.held {
			q.complete(&q.held[i])
		}
		q.held = q.held[:0]
		return
	}
	released := make(map[int]bool, len(order))
	for _, i := range order {
		q.complete(&q.held[i])
		released[i] = true
	}
	remain := q.held[:0]
	for i, sqe := range q.held {
		if !released[i] {
			remain = append(remain, sqe)
		}
	}
	q.held = remain
}

// Inject appends a raw completion.
func (q *Queue) Inject(userData uint64, res int32) {
	q.InjectFlags(userData, res, 0)
}

// InjectFlags appends a raw completion carrying CQE flags such as giouring.CQEFMore.
func (q *Queue) InjectFlags(userData uint64, res int32, flags uint32) {
	q.cq.Add(&giouring.CompletionQueueEvent{UserData: userData, Res: res, Flags: flags})
}

// Submitted returns copies of every entry handed to Submit, in order.
func (q *Queue) Submitted() []giouring.SubmissionQueueEntry {
	return q.log
}

// SubmittedOps counts submitted entries with the given opcode.
func (q *Queue) SubmittedOps(op capability.Op) int {
	n := 0
	for _, sqe := range q.log {
		if sqe.OpCode == uint8(op) {
			n++
		}
	}
	return n
}

func (q *Queue) Submits() int {
	return q.submits
}

func (q *Queue) Pending() int {
	return len(q.pending)
}

func (q *Queue) Held() int {
	return len(q.held)
}

func (q *Queue) Ready() int {
	return q.cq.Length()
}

func (q *Queue) Advanced() uint32 {
	return q.advanced
}

func (q *Queue) Files() []int {
	return q.files
}

func (q *Queue) Buffers() []syscall.Iovec {
	return q.buffers
}

func (q *Queue) Closed() bool {
	return q.closed
}
