package ring

import (
	"strconv"

	"github.com/brickingsoft/errors"
)

type Options struct {
	Entries uint32
	Flags   uint32
}

type Option func(*Options) error

const (
	MaxEntries     = 32768
	DefaultEntries = 128
)

func WithEntries(entries uint32) Option {
	return func(o *Options) error {
		if entries > MaxEntries {
			return errors.From(ErrInvalidEntries, errors.WithWrap(errors.New(
				"entries exceeds "+strconv.Itoa(MaxEntries),
				errors.WithMeta("pkg", "ring"),
				errors.WithMeta("entries", strconv.FormatUint(uint64(entries), 10)),
			)))
		}
		if entries < 1 {
			entries = DefaultEntries
		}
		o.Entries = entries
		return nil
	}
}

// WithFlags
// see https://manpages.debian.org/unstable/liburing-dev/io_uring_setup.2.en.html
func WithFlags(flags uint32) Option {
	return func(o *Options) error {
		if flags&unsupportedSetupFlags != 0 {
			return ErrInvalidFlags
		}
		o.Flags |= flags
		return nil
	}
}
