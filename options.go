package uring

import (
	"github.com/brickingsoft/errors"
	"github.com/brickingsoft/uring/pkg/capability"
	"github.com/brickingsoft/uring/pkg/ring"
	"github.com/prometheus/client_golang/prometheus"
	"github.com/rs/zerolog"
)

const (
	DefaultEntries        = ring.DefaultEntries
	DefaultOrphanCapacity = 1024
)

type Options struct {
	Entries           uint32
	Flags             uint32
	Queue             ring.Queue
	Capabilities      *capability.Set
	Files             []int
	Buffers           [][]byte
	Logger            zerolog.Logger
	MetricsRegisterer prometheus.Registerer
	MetricsNamespace  string
	OrphanCapacity    int
}

type Option func(options *Options) (err error)

// WithEntries
// sets the submission queue size. The kernel rounds it up to a power of two.
func WithEntries(entries uint32) Option {
	return func(options *Options) (err error) {
		if entries > ring.MaxEntries {
			err = errors.From(ErrInvalidArgument, errors.WithWrap(errors.New("entries too big")))
			return
		}
		if entries < 1 {
			entries = DefaultEntries
		}
		options.Entries = entries
		return
	}
}

// WithFlags
// sets io_uring_setup flags, see ring.Setup*.
// SetupSingleIssuer and SetupDeferTaskrun require the polling goroutine to stay
// on the creating thread (runtime.LockOSThread).
func WithFlags(flags uint32) Option {
	return func(options *Options) (err error) {
		options.Flags |= flags
		return
	}
}

// WithQueue
// replaces the io_uring backend. When the queue does not implement
// capability.Prober, WithCapabilities must be given too.
func WithQueue(queue ring.Queue) Option {
	return func(options *Options) (err error) {
		if queue == nil {
			err = errors.From(ErrInvalidArgument, errors.WithWrap(errors.New("queue is nil")))
			return
		}
		options.Queue = queue
		return
	}
}

// WithCapabilities
// skips the kernel probe and uses set instead.
func WithCapabilities(set capability.Set) Option {
	return func(options *Options) (err error) {
		options.Capabilities = &set
		return
	}
}

// WithFiles
// registers fds as the fixed file table at construction.
func WithFiles(fds ...int) Option {
	return func(options *Options) (err error) {
		options.Files = append(options.Files, fds...)
		return
	}
}

// WithBuffers
// registers buffers for fixed reads and writes at construction.
func WithBuffers(buffers ...[]byte) Option {
	return func(options *Options) (err error) {
		for _, b := range buffers {
			if len(b) == 0 {
				err = errors.From(ErrInvalidArgument, errors.WithWrap(errors.New("empty fixed buffer")))
				return
			}
		}
		options.Buffers = append(options.Buffers, buffers...)
		return
	}
}

func WithLogger(logger zerolog.Logger) Option {
	return func(options *Options) (err error) {
		options.Logger = logger
		return
	}
}

func WithLogConfig(cfg LogConfig) Option {
	return func(options *Options) (err error) {
		options.Logger, err = NewLogger(cfg)
		return
	}
}

// WithMetrics
// registers loop metrics on reg under namespace (default "uring").
func WithMetrics(reg prometheus.Registerer, namespace string) Option {
	return func(options *Options) (err error) {
		options.MetricsRegisterer = reg
		options.MetricsNamespace = namespace
		return
	}
}

// WithOrphanCapacity
// bounds the queue of handles collected without an explicit close.
func WithOrphanCapacity(n int) Option {
	return func(options *Options) (err error) {
		if n < 2 {
			n = 2
		}
		options.OrphanCapacity = n
		return
	}
}
