//go:build linux

// Package files provides files and directories whose operations are issued
// through a uring event loop from inside a coroutine.
package files

import (
	"io"
	"os"
	"syscall"

	"github.com/brickingsoft/uring"
	"golang.org/x/sys/unix"
)

// CurrentOffset makes reads and writes use and advance the file position.
const CurrentOffset = ^uint64(0)

const (
	fsyncDatasync   = 1
	spliceFdInFixed = 1 << 31
)

// File is an open file, pipe end or any other descriptor read and written
// through the loop.
type File struct {
	handle *uring.Handle
	name   string
}

// Open opens name relative to the working directory.
func Open(co *uring.Co, name string, flag int, perm uint32) (*File, error) {
	return openat(co, unix.AT_FDCWD, name, flag, perm)
}

// OpenFile opens name with openat2 semantics, how.Resolve restricting the lookup.
func OpenFile(co *uring.Co, name string, how *unix.OpenHow) (*File, error) {
	loop := co.Loop()
	how.Flags |= unix.O_CLOEXEC
	res, err := co.Await(loop.Openat2(unix.AT_FDCWD, name, how, 0))
	if err = result("openat2", res, err); err != nil {
		return nil, &os.PathError{Op: "open", Path: name, Err: err}
	}
	return NewFile(loop.Own(int(res)), name), nil
}

func openat(co *uring.Co, dfd int, name string, flag int, perm uint32) (*File, error) {
	loop := co.Loop()
	res, err := co.Await(loop.Openat(dfd, name, flag|unix.O_CLOEXEC, perm, 0))
	if err = result("openat", res, err); err != nil {
		return nil, &os.PathError{Op: "open", Path: name, Err: err}
	}
	return NewFile(loop.Own(int(res)), name), nil
}

// NewFile wraps a handle the caller already owns.
func NewFile(handle *uring.Handle, name string) *File {
	return &File{handle: handle, name: name}
}

// Pipe creates a pipe and returns its read and write ends.
func Pipe(loop *uring.EventLoop) (r *File, w *File, err error) {
	var p [2]int
	if err = unix.Pipe2(p[:], unix.O_CLOEXEC); err != nil {
		return nil, nil, os.NewSyscallError("pipe2", err)
	}
	return NewFile(loop.Own(p[0]), "|0"), NewFile(loop.Own(p[1]), "|1"), nil
}

func (f *File) Name() string {
	return f.name
}

func (f *File) Fd() int {
	return f.handle.Fd()
}

// Read reads from the current position. Zero bytes read at the end of the file is io.EOF.
func (f *File) Read(co *uring.Co, b []byte) (int, error) {
	return f.readAt(co, b, CurrentOffset)
}

// ReadAt reads len(b) bytes at most from off. It does not loop on short reads.
func (f *File) ReadAt(co *uring.Co, b []byte, off int64) (int, error) {
	if off < 0 {
		return 0, f.pathError("read", syscall.EINVAL)
	}
	return f.readAt(co, b, uint64(off))
}

func (f *File) readAt(co *uring.Co, b []byte, off uint64) (int, error) {
	if f.handle.Closed() {
		return 0, f.pathError("read", os.ErrClosed)
	}
	if len(b) == 0 {
		return 0, nil
	}
	loop := co.Loop()
	res, err := co.Await(loop.Read(f.handle.Fd(), b, off, f.handle.Flags()))
	if err = result("read", res, err); err != nil {
		return 0, f.pathError("read", err)
	}
	if res == 0 {
		return 0, io.EOF
	}
	return int(res), nil
}

// Write writes all of b at the current position.
func (f *File) Write(co *uring.Co, b []byte) (n int, err error) {
	for n < len(b) {
		var wrote int
		if wrote, err = f.writeAt(co, b[n:], CurrentOffset); err != nil {
			return
		}
		n += wrote
	}
	return
}

// WriteAt writes all of b starting at off.
func (f *File) WriteAt(co *uring.Co, b []byte, off int64) (n int, err error) {
	if off < 0 {
		return 0, f.pathError("write", syscall.EINVAL)
	}
	for n < len(b) {
		var wrote int
		if wrote, err = f.writeAt(co, b[n:], uint64(off)+uint64(n)); err != nil {
			return
		}
		n += wrote
	}
	return
}

func (f *File) writeAt(co *uring.Co, b []byte, off uint64) (int, error) {
	if f.handle.Closed() {
		return 0, f.pathError("write", os.ErrClosed)
	}
	loop := co.Loop()
	res, err := co.Await(loop.Write(f.handle.Fd(), b, off, f.handle.Flags()))
	if err = result("write", res, err); err != nil {
		return 0, f.pathError("write", err)
	}
	if res == 0 {
		return 0, f.pathError("write", io.ErrShortWrite)
	}
	return int(res), nil
}

// ReadvAt scatters one read across bufs.
func (f *File) ReadvAt(co *uring.Co, bufs [][]byte, off int64) (int, error) {
	if f.handle.Closed() {
		return 0, f.pathError("readv", os.ErrClosed)
	}
	loop := co.Loop()
	res, err := co.Await(loop.Readv(f.handle.Fd(), bufs, uint64(off), f.handle.Flags()))
	if err = result("readv", res, err); err != nil {
		return 0, f.pathError("readv", err)
	}
	return int(res), nil
}

// WritevAt gathers bufs into one write. Short writes are returned as is.
func (f *File) WritevAt(co *uring.Co, bufs [][]byte, off int64) (int, error) {
	if f.handle.Closed() {
		return 0, f.pathError("writev", os.ErrClosed)
	}
	loop := co.Loop()
	res, err := co.Await(loop.Writev(f.handle.Fd(), bufs, uint64(off), f.handle.Flags()))
	if err = result("writev", res, err); err != nil {
		return 0, f.pathError("writev", err)
	}
	return int(res), nil
}

// ReadFixed reads into buf, a slice of the loop's registered buffer index.
func (f *File) ReadFixed(co *uring.Co, buf []byte, off int64, index uint16) (int, error) {
	if f.handle.Closed() {
		return 0, f.pathError("read_fixed", os.ErrClosed)
	}
	loop := co.Loop()
	res, err := co.Await(loop.ReadFixed(f.handle.Fd(), buf, uint64(off), index, f.handle.Flags()))
	if err = result("read_fixed", res, err); err != nil {
		return 0, f.pathError("read_fixed", err)
	}
	return int(res), nil
}

func (f *File) WriteFixed(co *uring.Co, buf []byte, off int64, index uint16) (int, error) {
	if f.handle.Closed() {
		return 0, f.pathError("write_fixed", os.ErrClosed)
	}
	loop := co.Loop()
	res, err := co.Await(loop.WriteFixed(f.handle.Fd(), buf, uint64(off), index, f.handle.Flags()))
	if err = result("write_fixed", res, err); err != nil {
		return 0, f.pathError("write_fixed", err)
	}
	return int(res), nil
}

func (f *File) Sync(co *uring.Co) error {
	return f.fsync(co, 0)
}

// DataSync flushes the data but not the metadata not needed to read it back.
func (f *File) DataSync(co *uring.Co) error {
	return f.fsync(co, fsyncDatasync)
}

func (f *File) fsync(co *uring.Co, fsyncFlags uint32) error {
	if f.handle.Closed() {
		return f.pathError("fsync", os.ErrClosed)
	}
	loop := co.Loop()
	res, err := co.Await(loop.Fsync(f.handle.Fd(), fsyncFlags, f.handle.Flags()))
	if err = result("fsync", res, err); err != nil {
		return f.pathError("fsync", err)
	}
	return nil
}

// SyncRange is sync_file_range(2) over n bytes at off.
func (f *File) SyncRange(co *uring.Co, off int64, n uint32, syncFlags uint32) error {
	if f.handle.Closed() {
		return f.pathError("sync_file_range", os.ErrClosed)
	}
	loop := co.Loop()
	res, err := co.Await(loop.SyncFileRange(f.handle.Fd(), uint64(off), n, syncFlags, f.handle.Flags()))
	if err = result("sync_file_range", res, err); err != nil {
		return f.pathError("sync_file_range", err)
	}
	return nil
}

// Stat describes the open file.
func (f *File) Stat(co *uring.Co) (*unix.Statx_t, error) {
	if f.handle.Closed() {
		return nil, f.pathError("statx", os.ErrClosed)
	}
	if f.handle.Fixed() {
		return nil, f.pathError("statx", syscall.EBADF)
	}
	loop := co.Loop()
	stat := &unix.Statx_t{}
	res, err := co.Await(loop.Statx(f.handle.Fd(), "", unix.AT_EMPTY_PATH, unix.STATX_BASIC_STATS, stat, 0))
	if err = result("statx", res, err); err != nil {
		return nil, f.pathError("statx", err)
	}
	return stat, nil
}

func (f *File) Close(co *uring.Co) error {
	if err := f.handle.Close(co); err != nil {
		return f.pathError("close", err)
	}
	return nil
}

// Release closes the file without suspending.
func (f *File) Release() {
	f.handle.Release()
}

func (f *File) pathError(op string, err error) *os.PathError {
	return &os.PathError{Op: op, Path: f.name, Err: err}
}

// Splice moves up to n bytes from src to dst, one of which must be a pipe.
// An offset of -1 stands for the descriptor's own position.
func Splice(co *uring.Co, src *File, srcOff int64, dst *File, dstOff int64, n uint32) (int, error) {
	if src.handle.Closed() || dst.handle.Closed() {
		return 0, &os.PathError{Op: "splice", Path: src.name, Err: os.ErrClosed}
	}
	spliceFlags := uint32(unix.SPLICE_F_MOVE)
	if src.handle.Fixed() {
		spliceFlags |= spliceFdInFixed
	}
	loop := co.Loop()
	res, err := co.Await(loop.Splice(src.handle.Fd(), srcOff, dst.handle.Fd(), dstOff, n, spliceFlags, dst.handle.Flags()))
	if err = result("splice", res, err); err != nil {
		return 0, &os.PathError{Op: "splice", Path: src.name, Err: err}
	}
	return int(res), nil
}

// Tee copies up to n bytes from the pipe src into the pipe dst, leaving them in src.
func Tee(co *uring.Co, src *File, dst *File, n uint32) (int, error) {
	if src.handle.Closed() || dst.handle.Closed() {
		return 0, &os.PathError{Op: "tee", Path: src.name, Err: os.ErrClosed}
	}
	spliceFlags := uint32(0)
	if src.handle.Fixed() {
		spliceFlags |= spliceFdInFixed
	}
	loop := co.Loop()
	res, err := co.Await(loop.Tee(src.handle.Fd(), dst.handle.Fd(), n, spliceFlags, dst.handle.Flags()))
	if err = result("tee", res, err); err != nil {
		return 0, &os.PathError{Op: "tee", Path: src.name, Err: err}
	}
	return int(res), nil
}

func result(op string, res int32, err error) error {
	if err != nil {
		return err
	}
	if res < 0 {
		return uring.OpError(op, uring.Errno(res))
	}
	return nil
}
