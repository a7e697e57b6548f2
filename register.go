package uring

import (
	"syscall"
	"unsafe"

	"github.com/brickingsoft/errors"
)

// RegisterFiles installs fds as the fixed file table. Operations address an
// entry by index when ring.SQEFixedFile is set.
func (l *EventLoop) RegisterFiles(fds []int) error {
	l.mustBeDriver("RegisterFiles")
	if _, err := l.queue.RegisterFiles(fds); err != nil {
		return registrationError("register_files", err)
	}
	l.files = true
	l.log.Debug().Int("files", len(fds)).Msg("files registered")
	return nil
}

// UpdateFiles replaces table entries starting at offset. An fd of -1 clears the slot.
func (l *EventLoop) UpdateFiles(offset uint, fds []int) error {
	l.mustBeDriver("UpdateFiles")
	if _, err := l.queue.RegisterFilesUpdate(offset, fds); err != nil {
		return registrationError("update_files", err)
	}
	return nil
}

func (l *EventLoop) UnregisterFiles() error {
	l.mustBeDriver("UnregisterFiles")
	if _, err := l.queue.UnregisterFiles(); err != nil {
		return registrationError("unregister_files", err)
	}
	l.files = false
	return nil
}

// RegisterBuffers pins buffers for ReadFixed and WriteFixed. The loop keeps them
// reachable until UnregisterBuffers or Close.
func (l *EventLoop) RegisterBuffers(buffers [][]byte) error {
	l.mustBeDriver("RegisterBuffers")
	vecs := make([]syscall.Iovec, len(buffers))
	for i, b := range buffers {
		if len(b) == 0 {
			return registrationError("register_buffers", errors.From(ErrInvalidArgument, errors.WithWrap(errors.New("empty buffer"))))
		}
		vecs[i].Base = unsafe.SliceData(b)
		vecs[i].SetLen(len(b))
	}
	if _, err := l.queue.RegisterBuffers(vecs); err != nil {
		return registrationError("register_buffers", err)
	}
	l.buffers = buffers
	l.log.Debug().Int("buffers", len(buffers)).Msg("buffers registered")
	return nil
}

func (l *EventLoop) UnregisterBuffers() error {
	l.mustBeDriver("UnregisterBuffers")
	if _, err := l.queue.UnregisterBuffers(); err != nil {
		return registrationError("unregister_buffers", err)
	}
	l.buffers = nil
	return nil
}

func registrationError(op string, cause error) error {
	return errors.From(ErrRegistration, errors.WithWrap(errors.New(
		op+" failed",
		errors.WithMeta(errMetaPkgKey, errMetaPkgVal),
		errors.WithMeta(errMetaOpKey, op),
		errors.WithWrap(cause),
	)))
}
