package capability_test

import (
	"errors"
	"testing"

	"github.com/brickingsoft/uring/pkg/capability"
)

type fakeProber struct {
	ops     []capability.Op
	mask    uint32
	opsErr  error
	featErr error
}

func (p fakeProber) ProbeOps() ([]capability.Op, error) {
	return p.ops, p.opsErr
}

func (p fakeProber) ProbeFeatures() (uint32, error) {
	return p.mask, p.featErr
}

func TestProbe(t *testing.T) {
	p := fakeProber{
		ops:  []capability.Op{capability.OpNop, capability.OpRead, capability.OpListen},
		mask: capability.FeatNoDrop.Mask() | capability.FeatFastPoll.Mask() | 1<<31,
	}
	set, err := capability.Probe(p)
	if err != nil {
		t.Fatal(err)
	}
	for _, op := range p.ops {
		if !set.Supports(op) {
			t.Errorf("%s should be supported", op)
		}
	}
	if set.Supports(capability.OpWrite) {
		t.Error("write should not be supported")
	}
	if !set.Has(capability.FeatNoDrop) || !set.Has(capability.FeatFastPoll) {
		t.Error("features missing")
	}
	if set.Has(capability.FeatExtArg) {
		t.Error("ext_arg should not be present")
	}
	if n := len(set.Features()); n != 2 {
		t.Errorf("unknown feature bits must be dropped, got %d features", n)
	}
	t.Log(set)
}

func TestProbeFailure(t *testing.T) {
	cause := errors.New("ENOSYS")
	_, err := capability.Probe(fakeProber{opsErr: cause})
	if !capability.IsProbeError(err) {
		t.Fatalf("expected probe error, got %v", err)
	}
	_, err = capability.Probe(fakeProber{featErr: cause})
	if !capability.IsProbeError(err) {
		t.Fatalf("expected probe error, got %v", err)
	}
}

func TestSetOps(t *testing.T) {
	set := capability.New([]capability.Op{capability.OpListen, capability.OpNop, capability.OpClose}, nil)
	ops := set.Ops()
	if len(ops) != 3 || ops[0] != capability.OpNop || ops[1] != capability.OpClose || ops[2] != capability.OpListen {
		t.Fatalf("unexpected ops %v", ops)
	}
	set = set.Without(capability.OpClose)
	if set.Supports(capability.OpClose) {
		t.Fatal("close was removed")
	}
	var zero capability.Set
	if zero.Supports(capability.OpNop) {
		t.Fatal("zero set supports nothing")
	}
	full := capability.Full()
	if !full.Supports(capability.OpListen) || !full.Has(capability.FeatMinTimeout) {
		t.Fatal("full set is incomplete")
	}
}

func TestRequire(t *testing.T) {
	set := capability.New([]capability.Op{capability.OpNop}, nil)
	set.Require(capability.OpNop)
	defer func() {
		r := recover()
		v, ok := r.(*capability.ViolationError)
		if !ok {
			t.Fatalf("expected violation, got %v", r)
		}
		if v.Op != capability.OpStatx {
			t.Fatalf("unexpected op %s", v.Op)
		}
		t.Log(v)
	}()
	set.Require(capability.OpStatx)
}

func TestOpNames(t *testing.T) {
	if capability.OpSyncFileRange.String() != "sync_file_range" {
		t.Fatal(capability.OpSyncFileRange.String())
	}
	if op, ok := capability.ParseOp("openat2"); !ok || op != capability.OpOpenat2 {
		t.Fatal("openat2 not parsed")
	}
	if capability.OpListen != 57 || capability.OpRead != 22 {
		t.Fatal("opcodes drifted from kernel numbering")
	}
	if capability.Op(200).String() != "op(200)" {
		t.Fatal(capability.Op(200).String())
	}
}
