package uring

import (
	"github.com/brickingsoft/uring/pkg/capability"
)

type bridgeState uint8

const (
	bridgeCreated bridgeState = iota
	bridgeSuspended
	bridgeCompleted
	bridgeConsumed
)

func (s bridgeState) String() string {
	switch s {
	case bridgeCreated:
		return "created"
	case bridgeSuspended:
		return "suspended"
	case bridgeCompleted:
		return "completed"
	default:
		return "consumed"
	}
}

// Bridge links one submitted operation to the coroutine that awaits its result.
// A Bridge is used once: it is awaited by at most one coroutine and its result is
// read exactly once.
type Bridge struct {
	loop   *EventLoop
	op     capability.Op
	handle uint64
	state  bridgeState
	res    int32
	waiter continuation
	// memory the kernel reads or writes until the completion arrives
	keep [3]any
}

func (b *Bridge) Op() capability.Op {
	return b.op
}

// Done reports whether the completion has arrived.
func (b *Bridge) Done() bool {
	return b.state >= bridgeCompleted
}

// Wait polls the loop until the operation completes and returns its result code.
// It is the driver-side counterpart of Co.Await and must not be called from a coroutine.
func (b *Bridge) Wait() (int32, error) {
	l := b.loop
	l.mustBeDriver("Bridge.Wait")
	switch b.state {
	case bridgeSuspended:
		panic(misuse("Bridge.Wait: bridge is awaited by a coroutine"))
	case bridgeConsumed:
		panic(misuse("Bridge.Wait: result already consumed"))
	default:
	}
	for b.state == bridgeCreated {
		if err := l.poll(true); err != nil {
			return 0, err
		}
	}
	return b.consume(), nil
}

func (b *Bridge) await(co *Co) int32 {
	switch b.state {
	case bridgeCreated:
		b.state = bridgeSuspended
		b.waiter = co.self
		co.suspend()
		if b.state != bridgeCompleted {
			panic(misuse("coroutine resumed before its operation completed"))
		}
	case bridgeCompleted:
	case bridgeSuspended:
		panic(misuse("bridge is already awaited"))
	case bridgeConsumed:
		panic(misuse("bridge result already consumed"))
	}
	return b.consume()
}

func (b *Bridge) consume() int32 {
	b.state = bridgeConsumed
	b.waiter = nil
	b.keep = [3]any{}
	return b.res
}

// complete runs inside the drain step only.
func (b *Bridge) complete(res int32) {
	b.res = res
	prev := b.state
	b.state = bridgeCompleted
	if prev == bridgeSuspended {
		w := b.waiter
		b.waiter = nil
		w.resume()
	}
}

// bridgeTable maps completion handles to live bridges. A handle packs the slot
// generation in the high 32 bits and the slot index plus one in the low 32 bits,
// so 0 never names a bridge.
type bridgeTable struct {
	slots []bridgeSlot
	free  []uint32
	live  int
}

type bridgeSlot struct {
	gen    uint32
	bridge *Bridge
}

func (t *bridgeTable) register(b *Bridge) uint64 {
	var idx uint32
	if n := len(t.free); n > 0 {
		idx = t.free[n-1]
		t.free = t.free[:n-1]
	} else {
		idx = uint32(len(t.slots))
		t.slots = append(t.slots, bridgeSlot{})
	}
	slot := &t.slots[idx]
	slot.bridge = b
	t.live++
	return uint64(slot.gen)<<32 | uint64(idx+1)
}

// resolve returns the bridge named by handle and frees its slot, or nil when the
// handle is unknown or stale.
func (t *bridgeTable) resolve(handle uint64) *Bridge {
	idx := uint32(handle)
	if idx == 0 || int(idx) > len(t.slots) {
		return nil
	}
	slot := &t.slots[idx-1]
	if slot.bridge == nil || slot.gen != uint32(handle>>32) {
		return nil
	}
	b := slot.bridge
	slot.bridge = nil
	slot.gen++
	t.free = append(t.free, idx-1)
	t.live--
	return b
}
