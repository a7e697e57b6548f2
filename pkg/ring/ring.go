//go:build linux

package ring

import (
	"github.com/brickingsoft/errors"
	"github.com/brickingsoft/uring/pkg/capability"
	"github.com/pawelgaczynski/giouring"
)

// New creates an io_uring instance.
func New(options ...Option) (*Ring, error) {
	opts := Options{
		Entries: DefaultEntries,
	}
	for _, option := range options {
		if err := option(&opts); err != nil {
			return nil, errors.From(ErrSetup, errors.WithWrap(err))
		}
	}
	r := giouring.NewRing()
	if err := r.QueueInit(opts.Entries, opts.Flags); err != nil {
		return nil, errors.From(ErrSetup, errors.WithWrap(err))
	}
	return &Ring{
		Ring:    r,
		entries: roundupPow2(opts.Entries),
		flags:   opts.Flags,
	}, nil
}

// Ring is a giouring backed Queue.
type Ring struct {
	*giouring.Ring
	entries uint32
	flags   uint32
	closed  bool
}

func (r *Ring) Entries() uint32 {
	return r.entries
}

func (r *Ring) Flags() uint32 {
	return r.flags
}

// ProbeOps asks the kernel which operations this ring accepts.
func (r *Ring) ProbeOps() ([]capability.Op, error) {
	probe, err := r.GetProbeRing()
	if err != nil {
		return nil, err
	}
	ops := make([]capability.Op, 0, 64)
	for _, op := range capability.AllOps() {
		if probe.IsSupported(uint8(op)) {
			ops = append(ops, op)
		}
	}
	return ops, nil
}

// ProbeFeatures reports the kernel's io_uring feature word.
func (r *Ring) ProbeFeatures() (uint32, error) {
	return probeFeatures()
}

func (r *Ring) Close() error {
	if r.closed {
		return nil
	}
	r.closed = true
	r.QueueExit()
	return nil
}

func roundupPow2(n uint32) uint32 {
	if n <= 1 {
		return 1
	}
	n--
	n |= n >> 1
	n |= n >> 2
	n |= n >> 4
	n |= n >> 8
	n |= n >> 16
	return n + 1
}
