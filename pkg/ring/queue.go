package ring

import (
	"syscall"

	"github.com/pawelgaczynski/giouring"
)

// Queue is the submission/completion queue pair an event loop drives.
// *Ring implements it on top of io_uring; ringtest.Queue implements it in memory.
type Queue interface {
	// GetSQE returns a free submission slot, or nil when the submission queue is full.
	GetSQE() *giouring.SubmissionQueueEntry
	// Submit hands every filled slot to the kernel.
	Submit() (uint, error)
	// SubmitAndWait submits and blocks until at least waitNr completions are available.
	SubmitAndWait(waitNr uint32) (uint, error)
	// PeekBatchCQE fills cqes with available completions in delivery order, without consuming them.
	PeekBatchCQE(cqes []*giouring.CompletionQueueEvent) uint32
	// CQAdvance marks n peeked completions as consumed.
	CQAdvance(n uint32)

	RegisterFiles(fds []int) (uint, error)
	RegisterFilesUpdate(off uint, fds []int) (uint, error)
	UnregisterFiles() (uint, error)
	RegisterBuffers(iovecs []syscall.Iovec) (uint, error)
	UnregisterBuffers() (uint, error)

	// Entries is the submission queue size.
	Entries() uint32
	Close() error
}
