package uring

import (
	"fmt"
	"iter"

	"github.com/brickingsoft/errors"
	"github.com/brickingsoft/uring/pkg/capability"
)

// continuation is something the loop can resume: the coroutine of a started task.
type continuation interface {
	resume()
}

// Co is the handle a coroutine uses to suspend on operations and tasks.
// It is only valid inside the coroutine it was handed to.
type Co struct {
	loop  *EventLoop
	self  continuation
	yield func(struct{}) bool
}

func (co *Co) Loop() *EventLoop {
	return co.loop
}

// Await suspends the coroutine until b completes and returns the result code.
// It takes the pair returned by the operation methods, so calls can be written
// as co.Await(loop.Read(fd, buf, 0, 0)). A negative result is a kernel error
// code, see Errno.
func (co *Co) Await(b *Bridge, err error) (int32, error) {
	if err != nil {
		return 0, err
	}
	if b.loop != co.loop {
		panic(misuse("awaiting a bridge of another event loop"))
	}
	return b.await(co), nil
}

func (co *Co) suspend() {
	if co.loop.current != co.self {
		panic(misuse("suspending a coroutine that is not running"))
	}
	if !co.yield(struct{}{}) {
		panic(misuse("coroutine stopped while suspended"))
	}
}

type taskState uint8

const (
	taskPending taskState = iota
	taskRunning
	taskDone
)

var ErrTaskReleased = errors.Define("uring: task released before it ran")

// Task is a coroutine computing a T. A task is either driven, by BlockOn or by
// another coroutine's Await, or detached and left to finish on its own.
type Task[T any] struct {
	loop     *EventLoop
	fn       func(co *Co) (T, error)
	state    taskState
	detached bool
	next     func() (struct{}, bool)
	stop     func()
	waiter   continuation
	value    T
	err      error
}

// Go creates a pending task on loop. Nothing runs until the task is started,
// awaited, blocked on or detached.
func Go[T any](loop *EventLoop, fn func(co *Co) (T, error)) *Task[T] {
	return &Task[T]{loop: loop, fn: fn}
}

// Spawn is Go for tasks without a value.
func Spawn(loop *EventLoop, fn func(co *Co) error) *Task[struct{}] {
	return Go(loop, func(co *Co) (struct{}, error) {
		return struct{}{}, fn(co)
	})
}

// Done reports whether the task has finished.
func (t *Task[T]) Done() bool {
	return t.state == taskDone
}

// Start runs the task up to its first suspension point.
func (t *Task[T]) Start() *Task[T] {
	if t.state == taskPending {
		t.start()
	}
	return t
}

// BlockOn drives the loop until the task finishes and returns its result.
// It starts a pending task and must be called outside any coroutine.
func (t *Task[T]) BlockOn() (v T, err error) {
	l := t.loop
	l.mustBeDriver("BlockOn")
	if t.detached {
		panic(misuse("BlockOn on a detached task"))
	}
	t.Start()
	for t.state != taskDone {
		if err = l.poll(true); err != nil {
			if IsNothingPending(err) {
				err = errors.From(ErrDeadlock, errors.WithWrap(err))
			}
			return
		}
	}
	return t.value, t.err
}

// Await suspends co until the task finishes. A pending task runs inline on co.
func (t *Task[T]) Await(co *Co) (T, error) {
	if t.detached {
		panic(misuse("awaiting a detached task"))
	}
	if t.loop != co.loop {
		panic(misuse("awaiting a task of another event loop"))
	}
	switch t.state {
	case taskPending:
		t.state = taskRunning
		t.value, t.err = call(co, t.fn)
		t.fn = nil
		t.state = taskDone
		if w := t.waiter; w != nil {
			t.waiter = nil
			w.resume()
		}
	case taskRunning:
		if t.waiter != nil {
			panic(misuse("task is already awaited"))
		}
		if continuation(t) == co.self {
			panic(misuse("task awaits itself"))
		}
		t.waiter = co.self
		co.suspend()
	default:
	}
	return t.value, t.err
}

// Detach gives the task up: it keeps running across poll cycles until it
// finishes, then releases itself. Its result and failure are discarded.
func (t *Task[T]) Detach() {
	if t.detached {
		return
	}
	if t.waiter != nil {
		panic(misuse("detaching an awaited task"))
	}
	t.detached = true
	switch t.state {
	case taskPending:
		t.start()
	case taskDone:
		t.discard()
	default:
	}
}

// Release drops a task that will not be driven any further. A pending task is
// discarded without running. A task suspended on an operation cannot be
// released and ErrTaskSuspended is returned: its completion would otherwise
// resume a coroutine nobody owns.
func (t *Task[T]) Release() error {
	switch t.state {
	case taskRunning:
		return ErrTaskSuspended
	case taskPending:
		t.fn = nil
		t.state = taskDone
		t.err = ErrTaskReleased
	default:
		var zero T
		t.value = zero
	}
	return nil
}

func (t *Task[T]) start() {
	t.state = taskRunning
	t.loop.tasks++
	t.loop.metrics.recordTaskStarted()
	t.next, t.stop = iter.Pull(t.run)
	t.resume()
}

func (t *Task[T]) run(yield func(struct{}) bool) {
	co := &Co{loop: t.loop, self: t, yield: yield}
	t.value, t.err = call(co, t.fn)
}

func (t *Task[T]) resume() {
	if !t.step() {
		t.finish()
	}
}

// step runs the coroutine until it suspends or returns.
func (t *Task[T]) step() bool {
	l := t.loop
	prev := l.current
	l.current = t
	defer func() {
		l.current = prev
	}()
	_, more := t.next()
	return more
}

func (t *Task[T]) finish() {
	l := t.loop
	t.state = taskDone
	t.stop()
	t.next, t.stop, t.fn = nil, nil, nil
	l.tasks--
	l.metrics.recordTaskFinished(t.detached, t.err)
	if t.detached {
		t.discard()
		return
	}
	if w := t.waiter; w != nil {
		t.waiter = nil
		w.resume()
	}
}

func (t *Task[T]) discard() {
	if t.err != nil {
		t.loop.log.Debug().Err(t.err).Msg("detached task failed")
	}
	var zero T
	t.value, t.err = zero, nil
}

// call runs fn and turns a panic into the task's failure. Capability violations
// and loop misuse are logic defects and keep unwinding.
func call[T any](co *Co, fn func(co *Co) (T, error)) (v T, err error) {
	defer func() {
		r := recover()
		if r == nil {
			return
		}
		switch r.(type) {
		case *capability.ViolationError, *MisuseError:
			panic(r)
		default:
		}
		cause, ok := r.(error)
		if !ok {
			cause = fmt.Errorf("%v", r)
		}
		err = errors.From(ErrTaskPanicked, errors.WithWrap(cause))
	}()
	return fn(co)
}
