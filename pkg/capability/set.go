package capability

import (
	"math/bits"
	"strings"

	"github.com/brickingsoft/errors"
)

// Set is the immutable record of what the running kernel supports.
// The zero value supports nothing.
type Set struct {
	ops      [4]uint64
	features uint32
}

// New builds a Set from explicit lists. Unknown operations and features are ignored.
func New(ops []Op, features []Feature) Set {
	s := Set{}
	for _, op := range ops {
		if op.Known() {
			s.ops[op>>6] |= 1 << (op & 63)
		}
	}
	for _, f := range features {
		if f.Known() {
			s.features |= f.Mask()
		}
	}
	return s
}

// Full returns a Set claiming every known operation and feature.
func Full() Set {
	return New(AllOps(), FeaturesFromMask(^uint32(0)))
}

func (s Set) Supports(op Op) bool {
	return s.ops[op>>6]&(1<<(op&63)) != 0
}

func (s Set) Has(f Feature) bool {
	return f.Known() && s.features&f.Mask() != 0
}

// Ops lists the supported operations in opcode order.
func (s Set) Ops() []Op {
	n := 0
	for _, w := range s.ops {
		n += bits.OnesCount64(w)
	}
	ops := make([]Op, 0, n)
	for op := OpNop; op < opLast; op++ {
		if s.Supports(op) {
			ops = append(ops, op)
		}
	}
	return ops
}

func (s Set) Features() []Feature {
	return FeaturesFromMask(s.features)
}

// FeatureMask returns the raw feature word.
func (s Set) FeatureMask() uint32 {
	return s.features
}

// Without returns a copy of s with the given operations removed.
func (s Set) Without(ops ...Op) Set {
	for _, op := range ops {
		s.ops[op>>6] &^= 1 << (op & 63)
	}
	return s
}

func (s Set) String() string {
	b := strings.Builder{}
	b.WriteString("ops=[")
	for i, op := range s.Ops() {
		if i > 0 {
			b.WriteByte(' ')
		}
		b.WriteString(op.String())
	}
	b.WriteString("] features=[")
	for i, f := range s.Features() {
		if i > 0 {
			b.WriteByte(' ')
		}
		b.WriteString(f.String())
	}
	b.WriteByte(']')
	return b.String()
}

// Prober reports the raw capability data of a kernel io_uring instance.
type Prober interface {
	// ProbeOps returns every operation the kernel reports as supported.
	ProbeOps() ([]Op, error)
	// ProbeFeatures returns the io_uring_params.features word.
	ProbeFeatures() (uint32, error)
}

var ErrProbe = errors.Define("capability probe failed")

func IsProbeError(err error) bool {
	return errors.Is(err, ErrProbe)
}

// Probe queries p once and freezes the answer.
func Probe(p Prober) (Set, error) {
	ops, opsErr := p.ProbeOps()
	if opsErr != nil {
		return Set{}, errors.From(ErrProbe, errors.WithWrap(opsErr))
	}
	mask, featErr := p.ProbeFeatures()
	if featErr != nil {
		return Set{}, errors.From(ErrProbe, errors.WithWrap(featErr))
	}
	return New(ops, FeaturesFromMask(mask)), nil
}
