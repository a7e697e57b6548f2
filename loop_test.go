package uring_test

import (
	"syscall"
	"testing"
	"time"

	"github.com/brickingsoft/errors"
	"github.com/brickingsoft/uring"
	"github.com/brickingsoft/uring/pkg/capability"
	"github.com/brickingsoft/uring/pkg/ring"
	"github.com/brickingsoft/uring/pkg/ring/ringtest"
	"github.com/pawelgaczynski/giouring"
)

func newTestLoop(t *testing.T, q *ringtest.Queue, options ...uring.Option) *uring.EventLoop {
	t.Helper()
	loop, err := uring.New(append([]uring.Option{uring.WithQueue(q)}, options...)...)
	if err != nil {
		t.Fatal(err)
	}
	return loop
}

func TestNew(t *testing.T) {
	q := ringtest.New(4)
	loop := newTestLoop(t, q)
	if loop.ID() == "" {
		t.Fatal("loop has no id")
	}
	if !loop.Capabilities().Supports(capability.OpNop) {
		t.Fatal("probe lost nop")
	}
	if err := loop.Close(); err != nil {
		t.Fatal(err)
	}
	if !q.Closed() {
		t.Fatal("queue not closed")
	}
	if err := loop.Close(); err != nil {
		t.Fatal("second close", err)
	}
	if err := loop.PollNoWait(); !uring.IsClosed(err) {
		t.Fatal("poll after close", err)
	}
}

func TestNewWithoutProber(t *testing.T) {
	q := ringtest.New(4)
	_, err := uring.New(uring.WithQueue(struct{ ring.Queue }{q}))
	if !errors.Is(err, uring.ErrInitialization) {
		t.Fatal("expected initialization error, got", err)
	}
	if !q.Closed() {
		t.Fatal("queue leaked")
	}

	loop, err := uring.New(uring.WithQueue(struct{ ring.Queue }{ringtest.New(4)}), uring.WithCapabilities(capability.Full()))
	if err != nil {
		t.Fatal(err)
	}
	_ = loop.Close()
}

func TestAcquireForcedFlush(t *testing.T) {
	q := ringtest.New(2)
	loop := newTestLoop(t, q)

	bridges := make([]*uring.Bridge, 0, 4)
	for i := 0; i < 3; i++ {
		b, err := loop.Nop(0)
		if err != nil {
			t.Fatal(i, err)
		}
		bridges = append(bridges, b)
	}
	if q.Submits() != 1 {
		t.Fatal("expected exactly one forced flush, got", q.Submits())
	}
	if loop.InFlight() != 3 {
		t.Fatal("in flight", loop.InFlight())
	}

	q.Stuck = true
	b, err := loop.Nop(0)
	if err != nil {
		t.Fatal(err)
	}
	bridges = append(bridges, b)
	if _, err = loop.Nop(0); !uring.IsSlotExhausted(err) {
		t.Fatal("expected slot exhaustion, got", err)
	}
	t.Log(err)
	if q.Submits() != 2 {
		t.Fatal("exhaustion must flush once, submits:", q.Submits())
	}
	if loop.InFlight() != 4 {
		t.Fatal("refused operation counted in flight")
	}

	q.Stuck = false
	for i, b := range bridges {
		res, waitErr := b.Wait()
		if waitErr != nil || res != 0 {
			t.Fatal(i, res, waitErr)
		}
	}
	if loop.InFlight() != 0 || loop.Suspended() != 0 {
		t.Fatal("operations left", loop.InFlight(), loop.Suspended())
	}
	if err = loop.Close(); err != nil {
		t.Fatal(err)
	}
}

func TestPollNothingPending(t *testing.T) {
	loop := newTestLoop(t, ringtest.New(4))
	defer loop.Close()
	if err := loop.Poll(); !uring.IsNothingPending(err) {
		t.Fatal("expected nothing pending, got", err)
	}
	if err := loop.PollNoWait(); err != nil {
		t.Fatal(err)
	}
}

func TestCompletionOrder(t *testing.T) {
	q := ringtest.New(8)
	q.Hold = true
	loop := newTestLoop(t, q)

	order := make([]int, 0, 3)
	tasks := make([]*uring.Task[struct{}], 3)
	for i := range tasks {
		tasks[i] = uring.Spawn(loop, func(co *uring.Co) error {
			if _, err := co.Await(co.Loop().Nop(0)); err != nil {
				return err
			}
			order = append(order, i)
			return nil
		}).Start()
	}
	if err := loop.PollNoWait(); err != nil {
		t.Fatal(err)
	}
	if q.Held() != 3 || len(order) != 0 {
		t.Fatal("completions delivered early", q.Held(), order)
	}

	q.Release(2, 0, 1)
	if err := loop.PollNoWait(); err != nil {
		t.Fatal(err)
	}
	if len(order) != 3 || order[0] != 2 || order[1] != 0 || order[2] != 1 {
		t.Fatal("resumed out of completion order:", order)
	}
	for i, task := range tasks {
		if _, err := task.BlockOn(); err != nil {
			t.Fatal(i, err)
		}
	}
	if err := loop.Close(); err != nil {
		t.Fatal(err)
	}
}

func TestDrainLeavesNewCompletions(t *testing.T) {
	q := ringtest.New(8)
	loop := newTestLoop(t, q)
	defer loop.Close()

	steps := 0
	task := uring.Spawn(loop, func(co *uring.Co) error {
		for i := 0; i < 2; i++ {
			if _, err := co.Await(co.Loop().Nop(0)); err != nil {
				return err
			}
			steps++
		}
		return nil
	}).Start()

	if err := loop.PollNoWait(); err != nil {
		t.Fatal(err)
	}
	if steps != 1 || task.Done() {
		t.Fatal("second operation completed in the same cycle", steps)
	}
	if loop.InFlight() != 1 {
		t.Fatal("second operation not in flight", loop.InFlight())
	}
	if err := loop.PollNoWait(); err != nil {
		t.Fatal(err)
	}
	if steps != 2 || !task.Done() {
		t.Fatal("task did not finish", steps)
	}
}

func TestStaleCompletion(t *testing.T) {
	q := ringtest.New(8)
	q.Hold = true
	loop := newTestLoop(t, q)
	defer loop.Close()

	task := uring.Go(loop, func(co *uring.Co) (int32, error) {
		return co.Await(co.Loop().Nop(0))
	}).Start()
	if err := loop.PollNoWait(); err != nil {
		t.Fatal(err)
	}
	handle := q.Submitted()[0].UserData
	if handle == 0 {
		t.Fatal("awaited operation has no handle")
	}
	q.Release()
	q.Inject(handle, 99)
	q.Inject(1<<32|77, 98)
	if err := loop.PollNoWait(); err != nil {
		t.Fatal(err)
	}
	res, err := task.BlockOn()
	if err != nil || res != 0 {
		t.Fatal("duplicate completion reached the task", res, err)
	}
	if loop.InFlight() != 0 || q.Ready() != 0 {
		t.Fatal("stale completions not consumed", loop.InFlight(), q.Ready())
	}
}

func TestCloseDetach(t *testing.T) {
	q := ringtest.New(4)
	q.Respond = func(sqe *giouring.SubmissionQueueEntry) int32 {
		if sqe.OpCode == uint8(capability.OpClose) {
			return -int32(syscall.EBADF)
		}
		return 0
	}
	loop := newTestLoop(t, q)

	if err := loop.CloseDetach(1<<20, 0); err != nil {
		t.Fatal(err)
	}
	if loop.InFlight() != 1 || loop.Suspended() != 0 {
		t.Fatal("detached close accounting", loop.InFlight(), loop.Suspended())
	}
	if err := loop.Poll(); err != nil {
		t.Fatal(err)
	}
	if loop.InFlight() != 0 {
		t.Fatal("failed detached close still in flight")
	}
	if sqe := q.Submitted()[0]; sqe.UserData != 0 || sqe.OpCode != uint8(capability.OpClose) {
		t.Fatal("detached close carries a handle", sqe.UserData)
	}
	if err := loop.Poll(); !uring.IsNothingPending(err) {
		t.Fatal(err)
	}
	if err := loop.Close(); err != nil {
		t.Fatal(err)
	}
}

func TestCloseFixed(t *testing.T) {
	q := ringtest.New(4)
	loop := newTestLoop(t, q)
	defer loop.Close()

	res, err := uring.Go(loop, func(co *uring.Co) (int32, error) {
		return co.Await(co.Loop().CloseFd(3, ring.SQEFixedFile))
	}).BlockOn()
	if err != nil || res != 0 {
		t.Fatal(res, err)
	}
	sqe := q.Submitted()[0]
	if sqe.Fd != 0 || sqe.SpliceFdIn != 4 || sqe.Flags&ring.SQEFixedFile != 0 {
		t.Fatal("fixed close encoded as", sqe.Fd, sqe.SpliceFdIn, sqe.Flags)
	}
}

func TestCapabilityViolation(t *testing.T) {
	q := ringtest.New(4)
	loop := newTestLoop(t, q, uring.WithCapabilities(capability.Full().Without(capability.OpRead)))
	defer loop.Close()

	func() {
		defer func() {
			v, ok := recover().(*capability.ViolationError)
			if !ok || v.Op != capability.OpRead {
				t.Fatal("expected read violation, got", v)
			}
		}()
		_, _ = loop.Read(0, make([]byte, 8), 0, 0)
	}()
	if q.Pending() != 0 || loop.InFlight() != 0 {
		t.Fatal("violation consumed a slot")
	}

	func() {
		defer func() {
			if _, ok := recover().(*capability.ViolationError); !ok {
				t.Fatal("violation inside a task was swallowed")
			}
		}()
		_, _ = uring.Spawn(loop, func(co *uring.Co) error {
			_, err := co.Await(co.Loop().Read(0, make([]byte, 8), 0, 0))
			return err
		}).BlockOn()
	}()
	if q.Pending() != 0 {
		t.Fatal("violation inside a task consumed a slot")
	}
}

func TestCQESkipRefused(t *testing.T) {
	loop := newTestLoop(t, ringtest.New(4))
	defer loop.Close()
	defer func() {
		if _, ok := recover().(*uring.MisuseError); !ok {
			t.Fatal("CQE skip on an awaited operation accepted")
		}
	}()
	_, _ = loop.Nop(ring.SQECQESkipSuccess)
}

func TestTimeoutMultishotRefused(t *testing.T) {
	q := ringtest.New(4)
	loop := newTestLoop(t, q)
	defer loop.Close()
	defer func() {
		if _, ok := recover().(*uring.MisuseError); !ok {
			t.Fatal("multishot timeout accepted")
		}
		if loop.InFlight() != 0 || q.Pending() != 0 {
			t.Fatal("refused timeout took a slot", loop.InFlight(), q.Pending())
		}
	}()
	_, _ = loop.Timeout(5*time.Millisecond, 0, giouring.TimeoutMultishot, 0)
}

func TestIntermediateCompletion(t *testing.T) {
	q := ringtest.New(8)
	q.Hold = true
	loop := newTestLoop(t, q)
	defer loop.Close()

	first := uring.Go(loop, func(co *uring.Co) (int32, error) {
		return co.Await(co.Loop().Nop(0))
	}).Start()
	second := uring.Go(loop, func(co *uring.Co) (int32, error) {
		return co.Await(co.Loop().Nop(0))
	}).Start()
	if err := loop.PollNoWait(); err != nil {
		t.Fatal(err)
	}
	handle := q.Submitted()[0].UserData
	q.InjectFlags(handle, 7, giouring.CQEFMore)
	q.InjectFlags(handle, 7, giouring.CQEFMore)
	q.Inject(1<<32|77, 0)
	if err := loop.PollNoWait(); err != nil {
		t.Fatal(err)
	}
	if first.Done() || loop.InFlight() != 2 {
		t.Fatal("intermediate or stale completions settled an operation", first.Done(), loop.InFlight())
	}

	q.Release(0)
	if err := loop.PollNoWait(); err != nil {
		t.Fatal(err)
	}
	res, err := first.BlockOn()
	if err != nil || res != 0 {
		t.Fatal(res, err)
	}
	if loop.InFlight() != 1 {
		t.Fatal("second operation lost", loop.InFlight())
	}
	if _, err = second.BlockOn(); err != nil {
		t.Fatal(err)
	}
	if loop.InFlight() != 0 {
		t.Fatal("operations left", loop.InFlight())
	}
}

func TestCloseInFlight(t *testing.T) {
	q := ringtest.New(4)
	q.Hold = true
	loop := newTestLoop(t, q)

	task := uring.Spawn(loop, func(co *uring.Co) error {
		_, err := co.Await(co.Loop().Nop(0))
		return err
	}).Start()
	if err := loop.Close(); !uring.IsInFlight(err) {
		t.Fatal("expected in flight, got", err)
	}
	if q.Closed() {
		t.Fatal("queue closed under a suspended task")
	}
	if _, err := task.BlockOn(); err != nil {
		t.Fatal(err)
	}
	if err := loop.Close(); err != nil {
		t.Fatal(err)
	}
}

func TestErrno(t *testing.T) {
	if uring.Errno(5) != 0 || uring.ResultError(0) != nil {
		t.Fatal("non-negative result is not an error")
	}
	if uring.Errno(-int32(syscall.ENOENT)) != syscall.ENOENT {
		t.Fatal("errno lost")
	}
	err := uring.OpError("openat", uring.ResultError(-int32(syscall.ENOENT)))
	if !errors.Is(err, syscall.ENOENT) {
		t.Fatal("op error does not wrap the errno", err)
	}
}
