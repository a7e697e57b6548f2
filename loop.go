// Package uring is a single-threaded cooperative reactor over io_uring.
//
// Coroutines (Task) issue operations through the EventLoop, suspend on the
// returned Bridge and are resumed by the goroutine that polls the loop. There is
// no background goroutine: progress happens only inside Poll and PollNoWait.
package uring

import (
	"runtime"
	"sync/atomic"
	"syscall"
	"unsafe"

	"code.hybscloud.com/lfq"
	"github.com/brickingsoft/errors"
	"github.com/brickingsoft/uring/pkg/capability"
	"github.com/brickingsoft/uring/pkg/kernel"
	"github.com/brickingsoft/uring/pkg/ring"
	"github.com/google/uuid"
	"github.com/pawelgaczynski/giouring"
	"github.com/rs/zerolog"
)

// EventLoop owns one submission/completion queue pair. It is not safe for
// concurrent use: one goroutine creates, polls and closes it, and every task
// runs on that goroutine's behalf.
type EventLoop struct {
	id       string
	queue    ring.Queue
	caps     capability.Set
	log      zerolog.Logger
	metrics  *metrics
	bridges  bridgeTable
	cqes     []*giouring.CompletionQueueEvent
	seen     uint32
	inflight int
	current  continuation
	tasks    int
	orphans  *lfq.MPSC[orphan]
	adopting atomic.Int32
	shut     atomic.Bool
	files    bool
	buffers  [][]byte
	closed   bool
}

// New creates an event loop. Queue creation, the capability probe and initial
// file or buffer registration failures are reported as ErrInitialization.
func New(options ...Option) (loop *EventLoop, err error) {
	opts := Options{
		Entries:        DefaultEntries,
		Logger:         zerolog.Nop(),
		OrphanCapacity: DefaultOrphanCapacity,
	}
	for _, option := range options {
		if err = option(&opts); err != nil {
			err = errors.From(ErrInitialization, errors.WithWrap(err))
			return
		}
	}
	id := uuid.NewString()
	log := opts.Logger.With().Str("loop", id).Logger()

	queue := opts.Queue
	if queue == nil {
		r, ringErr := ring.New(ring.WithEntries(opts.Entries), ring.WithFlags(opts.Flags))
		if ringErr != nil {
			if supported, checkErr := kernel.Check(5, 1, 0); checkErr == nil && !supported {
				ringErr = errors.New("kernel predates io_uring", errors.WithMeta(errMetaPkgKey, errMetaPkgVal), errors.WithWrap(ringErr))
			}
			err = errors.From(ErrInitialization, errors.WithWrap(ringErr))
			return
		}
		queue = r
	}

	var caps capability.Set
	if opts.Capabilities != nil {
		caps = *opts.Capabilities
	} else {
		prober, ok := queue.(capability.Prober)
		if !ok {
			_ = queue.Close()
			err = errors.From(ErrInitialization, errors.WithWrap(errors.New("queue cannot be probed and no capabilities were given")))
			return
		}
		if caps, err = capability.Probe(prober); err != nil {
			_ = queue.Close()
			err = errors.From(ErrInitialization, errors.WithWrap(err))
			return
		}
	}

	m, metricsErr := newMetrics(opts.MetricsRegisterer, opts.MetricsNamespace, id)
	if metricsErr != nil {
		_ = queue.Close()
		err = errors.From(ErrInitialization, errors.WithWrap(metricsErr))
		return
	}

	loop = &EventLoop{
		id:      id,
		queue:   queue,
		caps:    caps,
		log:     log,
		metrics: m,
		cqes:    make([]*giouring.CompletionQueueEvent, 2*queue.Entries()),
		orphans: lfq.NewMPSC[orphan](opts.OrphanCapacity),
	}

	if len(opts.Files) > 0 {
		if err = loop.RegisterFiles(opts.Files); err != nil {
			_ = queue.Close()
			loop = nil
			err = errors.From(ErrInitialization, errors.WithWrap(err))
			return
		}
	}
	if len(opts.Buffers) > 0 {
		if err = loop.RegisterBuffers(opts.Buffers); err != nil {
			if loop.files {
				_, _ = queue.UnregisterFiles()
			}
			_ = queue.Close()
			loop = nil
			err = errors.From(ErrInitialization, errors.WithWrap(err))
			return
		}
	}

	event := log.Info().
		Uint32("entries", queue.Entries()).
		Int("ops", len(caps.Ops())).
		Uint32("features", caps.FeatureMask())
	if v, vErr := kernel.Get(); vErr == nil {
		event = event.Stringer("kernel", v)
	}
	event.Msg("event loop ready")
	return
}

func (l *EventLoop) ID() string {
	return l.id
}

// Capabilities returns the operations and features the loop was built with.
func (l *EventLoop) Capabilities() capability.Set {
	return l.caps
}

func (l *EventLoop) Logger() zerolog.Logger {
	return l.log
}

// InFlight counts operations encoded but not yet drained, detached closes included.
func (l *EventLoop) InFlight() int {
	return l.inflight
}

// Suspended counts bridges waiting for a completion.
func (l *EventLoop) Suspended() int {
	return l.bridges.live
}

// Tasks counts started tasks that have not finished.
func (l *EventLoop) Tasks() int {
	return l.tasks
}

// Poll submits pending operations, blocks until at least one completion is
// available, and resumes every coroutine whose operation completed.
// It returns ErrNothingPending when nothing was submitted that could complete.
func (l *EventLoop) Poll() error {
	l.mustBeDriver("Poll")
	return l.poll(true)
}

// PollNoWait submits pending operations and resumes whatever already completed.
func (l *EventLoop) PollNoWait() error {
	l.mustBeDriver("PollNoWait")
	return l.poll(false)
}

func (l *EventLoop) poll(wait bool) error {
	if l.closed {
		return ErrClosed
	}
	l.reapOrphans()
	l.metrics.recordPoll(wait)
	if wait && l.inflight == 0 {
		return ErrNothingPending
	}
	if err := l.enter(wait); err != nil {
		return err
	}
	l.drain()
	return nil
}

func (l *EventLoop) enter(wait bool) error {
	for {
		var err error
		if wait {
			_, err = l.queue.SubmitAndWait(1)
		} else {
			_, err = l.queue.Submit()
		}
		if err == nil {
			return nil
		}
		if errors.Is(err, syscall.EINTR) {
			continue
		}
		if errors.Is(err, syscall.EAGAIN) || errors.Is(err, syscall.EBUSY) || errors.Is(err, syscall.ETIME) {
			// the completion queue is backed up, draining makes room
			return nil
		}
		return errors.New(
			"submit failed",
			errors.WithMeta(errMetaPkgKey, errMetaPkgVal),
			errors.WithMeta(errMetaOpKey, "submit"),
			errors.WithWrap(err),
		)
	}
}

// drain resumes the completions available now, in delivery order. Entries the
// resumed coroutines cause to complete are left for a later cycle.
func (l *EventLoop) drain() int {
	n := l.queue.PeekBatchCQE(l.cqes)
	for i := uint32(0); i < n; i++ {
		cqe := l.cqes[i]
		l.cqes[i] = nil
		handle, res := cqe.UserData, cqe.Res
		l.seen++
		if cqe.Flags&giouring.CQEFMore != 0 {
			// the submission posts again, only its last completion settles it
			l.log.Debug().Uint64("handle", handle).Int32("res", res).Msg("skipped intermediate completion")
			continue
		}
		if handle == 0 {
			l.retire()
			l.metrics.recordUnregistered()
			continue
		}
		b := l.bridges.resolve(handle)
		if b == nil {
			l.metrics.recordStale()
			l.log.Debug().Uint64("handle", handle).Int32("res", res).Msg("dropped completion for unknown handle")
			continue
		}
		l.retire()
		l.metrics.recordCompleted(b.op, res)
		b.complete(res)
	}
	if l.seen > 0 {
		l.queue.CQAdvance(l.seen)
		l.seen = 0
	}
	return int(n)
}

func (l *EventLoop) retire() {
	if l.inflight > 0 {
		l.inflight--
	}
}

// acquire returns a free submission slot. When the queue is full it acknowledges
// drained completions, submits once and retries once.
func (l *EventLoop) acquire(op capability.Op) (*giouring.SubmissionQueueEntry, error) {
	if l.closed {
		return nil, ErrClosed
	}
	if sqe := l.queue.GetSQE(); sqe != nil {
		return sqe, nil
	}
	l.metrics.recordForcedFlush()
	l.log.Debug().Str("op", op.String()).Int("inflight", l.inflight).Msg("submission queue full, flushing")
	if l.seen > 0 {
		l.queue.CQAdvance(l.seen)
		l.seen = 0
	}
	if err := l.enter(false); err != nil {
		l.log.Warn().Err(err).Str("op", op.String()).Msg("forced flush failed")
	}
	if sqe := l.queue.GetSQE(); sqe != nil {
		return sqe, nil
	}
	l.metrics.recordExhausted()
	l.log.Warn().Str("op", op.String()).Int("inflight", l.inflight).Msg("submission queue exhausted")
	return nil, errors.From(
		ErrSlotExhausted,
		errors.WithWrap(errors.New(
			"acquire submission slot failed",
			errors.WithMeta(errMetaPkgKey, errMetaPkgVal),
			errors.WithMeta(errMetaOpKey, op.String()),
		)),
	)
}

// prepareRW checks op, takes a slot and encodes the common fields with a fresh
// bridge registered as the completion handle.
func (l *EventLoop) prepareRW(op capability.Op, flags uint8, fd int, addr unsafe.Pointer, length uint32, offset uint64) (*Bridge, *giouring.SubmissionQueueEntry, error) {
	l.caps.Require(op)
	if flags&ring.SQECQESkipSuccess != 0 {
		panic(misuse(op.String() + ": CQE skip cannot be used on an awaited operation"))
	}
	sqe, err := l.acquire(op)
	if err != nil {
		return nil, nil, err
	}
	encode(sqe, op, flags, fd, uintptr(addr), length, offset)
	b := &Bridge{loop: l, op: op}
	b.handle = l.bridges.register(b)
	sqe.UserData = b.handle
	l.inflight++
	l.metrics.recordSubmitted(op)
	return b, sqe, nil
}

func encode(sqe *giouring.SubmissionQueueEntry, op capability.Op, flags uint8, fd int, addr uintptr, length uint32, offset uint64) {
	*sqe = giouring.SubmissionQueueEntry{}
	sqe.OpCode = uint8(op)
	sqe.Flags = flags
	sqe.Fd = int32(fd)
	sqe.Addr = uint64(addr)
	sqe.Len = length
	sqe.Off = offset
}

// Close releases the queue pair. It refuses while coroutines are suspended on
// operations, and waits for outstanding detached closes.
func (l *EventLoop) Close() error {
	l.mustBeDriver("Close")
	if l.closed {
		return nil
	}
	if l.bridges.live > 0 {
		return errors.From(ErrInFlight, errors.WithWrap(errors.New(
			"close event loop failed",
			errors.WithMeta(errMetaPkgKey, errMetaPkgVal),
			errors.WithMeta(errMetaOpKey, "close"),
		)))
	}
	l.shut.Store(true)
	for l.adopting.Load() > 0 {
		// a cleanup saw the loop open and is still handing its descriptor over
		runtime.Gosched()
	}
	l.reapOrphans()
	for l.inflight > 0 {
		if err := l.poll(true); err != nil {
			l.log.Warn().Err(err).Msg("waiting for detached operations failed")
			break
		}
	}
	if l.buffers != nil {
		if _, err := l.queue.UnregisterBuffers(); err != nil {
			l.log.Warn().Err(err).Msg("unregister buffers failed")
		}
		l.buffers = nil
	}
	if l.files {
		if _, err := l.queue.UnregisterFiles(); err != nil {
			l.log.Warn().Err(err).Msg("unregister files failed")
		}
		l.files = false
	}
	l.closed = true
	err := l.queue.Close()
	l.log.Info().Msg("event loop closed")
	return err
}

func (l *EventLoop) mustBeDriver(name string) {
	if l.current != nil {
		panic(misuse(name + " called from inside a coroutine"))
	}
}

// MisuseError is the panic value raised when the loop is driven in a way that can
// never work, such as polling from inside a coroutine.
type MisuseError struct {
	Reason string
}

func (e *MisuseError) Error() string {
	return "uring: " + e.Reason
}

func misuse(reason string) *MisuseError {
	return &MisuseError{Reason: reason}
}
