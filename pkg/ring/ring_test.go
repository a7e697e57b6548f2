//go:build linux

package ring_test

import (
	"testing"

	"github.com/brickingsoft/errors"
	"github.com/brickingsoft/uring/pkg/capability"
	"github.com/brickingsoft/uring/pkg/ring"
)

func TestParseSetupFlags(t *testing.T) {
	flags, err := ring.ParseSetupFlags("single_issuer", " COOP_TASKRUN ")
	if err != nil {
		t.Fatal(err)
	}
	if flags != ring.SetupSingleIssuer|ring.SetupCoopTaskrun {
		t.Fatalf("unexpected flags %b", flags)
	}
	if _, err = ring.ParseSetupFlags("sqe128"); !errors.Is(err, ring.ErrInvalidFlags) {
		t.Fatal("sqe128 accepted", err)
	}
}

func TestWithFlags(t *testing.T) {
	opts := ring.Options{}
	if err := ring.WithFlags(ring.SetupCQE32)(&opts); !errors.Is(err, ring.ErrInvalidFlags) {
		t.Fatal("cqe32 accepted", err)
	}
	if err := ring.WithFlags(ring.SetupClamp)(&opts); err != nil || opts.Flags != ring.SetupClamp {
		t.Fatal(opts.Flags, err)
	}
	if err := ring.WithEntries(ring.MaxEntries + 1)(&opts); !errors.Is(err, ring.ErrInvalidEntries) {
		t.Fatal("oversized queue accepted")
	}
	if err := ring.WithEntries(0)(&opts); err != nil || opts.Entries != ring.DefaultEntries {
		t.Fatal(opts.Entries, err)
	}
}

func TestNew(t *testing.T) {
	r, err := ring.New(ring.WithEntries(5))
	if err != nil {
		if !ring.IsSetupError(err) {
			t.Fatal("setup failure not classified", err)
		}
		t.Skip("io_uring unavailable:", err)
	}
	defer r.Close()
	if r.Entries() != 8 {
		t.Fatal("entries not rounded up", r.Entries())
	}
	ops, err := r.ProbeOps()
	if err != nil {
		t.Skip("probe unavailable:", err)
	}
	supported := false
	for _, op := range ops {
		if op == capability.OpNop {
			supported = true
		}
	}
	if !supported {
		t.Fatal("nop not reported")
	}
	features, err := r.ProbeFeatures()
	t.Log(capability.FeaturesFromMask(features), err)
	if err = r.Close(); err != nil {
		t.Fatal(err)
	}
}
