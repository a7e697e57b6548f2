package uring

import (
	"unsafe"

	"github.com/brickingsoft/uring/pkg/capability"
	"golang.org/x/sys/unix"
)

// Openat opens path relative to dfd (unix.AT_FDCWD for the working directory).
// The result is the new descriptor.
func (l *EventLoop) Openat(dfd int, path string, openFlags int, mode uint32, flags uint8) (*Bridge, error) {
	p, err := cstring(path)
	if err != nil {
		return nil, err
	}
	b, sqe, err := l.prepareRW(capability.OpOpenat, flags, dfd, unsafe.Pointer(p), mode, 0)
	if err != nil {
		return nil, err
	}
	sqe.OpcodeFlags = uint32(openFlags)
	b.keep[0] = p
	return b, nil
}

func (l *EventLoop) Openat2(dfd int, path string, how *unix.OpenHow, flags uint8) (*Bridge, error) {
	p, err := cstring(path)
	if err != nil {
		return nil, err
	}
	b, _, err := l.prepareRW(capability.OpOpenat2, flags, dfd, unsafe.Pointer(p), uint32(unsafe.Sizeof(*how)), uint64(uintptr(unsafe.Pointer(how))))
	if err != nil {
		return nil, err
	}
	b.keep[0], b.keep[1] = p, how
	return b, nil
}

// Read reads into buf at offset. An offset of ^uint64(0) uses the file position.
func (l *EventLoop) Read(fd int, buf []byte, offset uint64, flags uint8) (*Bridge, error) {
	b, _, err := l.prepareRW(capability.OpRead, flags, fd, bytesPtr(buf), uint32(len(buf)), offset)
	if err != nil {
		return nil, err
	}
	b.keep[0] = buf
	return b, nil
}

func (l *EventLoop) Write(fd int, buf []byte, offset uint64, flags uint8) (*Bridge, error) {
	b, _, err := l.prepareRW(capability.OpWrite, flags, fd, bytesPtr(buf), uint32(len(buf)), offset)
	if err != nil {
		return nil, err
	}
	b.keep[0] = buf
	return b, nil
}

func (l *EventLoop) Readv(fd int, bufs [][]byte, offset uint64, flags uint8) (*Bridge, error) {
	return l.vectored(capability.OpReadv, fd, bufs, offset, flags)
}

func (l *EventLoop) Writev(fd int, bufs [][]byte, offset uint64, flags uint8) (*Bridge, error) {
	return l.vectored(capability.OpWritev, fd, bufs, offset, flags)
}

func (l *EventLoop) vectored(op capability.Op, fd int, bufs [][]byte, offset uint64, flags uint8) (*Bridge, error) {
	vecs := iovecs(bufs)
	var addr unsafe.Pointer
	if len(vecs) > 0 {
		addr = unsafe.Pointer(&vecs[0])
	}
	b, _, err := l.prepareRW(op, flags, fd, addr, uint32(len(vecs)), offset)
	if err != nil {
		return nil, err
	}
	b.keep[0], b.keep[1] = vecs, bufs
	return b, nil
}

// ReadFixed reads into buf, which must lie inside the registered buffer bufIndex.
func (l *EventLoop) ReadFixed(fd int, buf []byte, offset uint64, bufIndex uint16, flags uint8) (*Bridge, error) {
	b, sqe, err := l.prepareRW(capability.OpReadFixed, flags, fd, bytesPtr(buf), uint32(len(buf)), offset)
	if err != nil {
		return nil, err
	}
	sqe.BufIG = bufIndex
	b.keep[0] = buf
	return b, nil
}

func (l *EventLoop) WriteFixed(fd int, buf []byte, offset uint64, bufIndex uint16, flags uint8) (*Bridge, error) {
	b, sqe, err := l.prepareRW(capability.OpWriteFixed, flags, fd, bytesPtr(buf), uint32(len(buf)), offset)
	if err != nil {
		return nil, err
	}
	sqe.BufIG = bufIndex
	b.keep[0] = buf
	return b, nil
}

// Fsync flushes fd. fsyncFlags may carry IORING_FSYNC_DATASYNC (1).
func (l *EventLoop) Fsync(fd int, fsyncFlags uint32, flags uint8) (*Bridge, error) {
	b, sqe, err := l.prepareRW(capability.OpFsync, flags, fd, nil, 0, 0)
	if err != nil {
		return nil, err
	}
	sqe.OpcodeFlags = fsyncFlags
	return b, nil
}

func (l *EventLoop) SyncFileRange(fd int, offset uint64, nbytes uint32, syncFlags uint32, flags uint8) (*Bridge, error) {
	b, sqe, err := l.prepareRW(capability.OpSyncFileRange, flags, fd, nil, nbytes, offset)
	if err != nil {
		return nil, err
	}
	sqe.OpcodeFlags = syncFlags
	return b, nil
}

// Statx fills stat for path relative to dfd.
func (l *EventLoop) Statx(dfd int, path string, statxFlags int, mask uint32, stat *unix.Statx_t, flags uint8) (*Bridge, error) {
	p, err := cstring(path)
	if err != nil {
		return nil, err
	}
	b, sqe, err := l.prepareRW(capability.OpStatx, flags, dfd, unsafe.Pointer(p), mask, uint64(uintptr(unsafe.Pointer(stat))))
	if err != nil {
		return nil, err
	}
	sqe.OpcodeFlags = uint32(statxFlags)
	b.keep[0], b.keep[1] = p, stat
	return b, nil
}

// Splice moves nbytes from fdIn to fdOut. An offset of -1 means the descriptor
// has no offset (a pipe) or its current position is used.
func (l *EventLoop) Splice(fdIn int, offIn int64, fdOut int, offOut int64, nbytes uint32, spliceFlags uint32, flags uint8) (*Bridge, error) {
	b, sqe, err := l.prepareRW(capability.OpSplice, flags, fdOut, nil, nbytes, uint64(offOut))
	if err != nil {
		return nil, err
	}
	sqe.Addr = uint64(offIn)
	sqe.SpliceFdIn = int32(fdIn)
	sqe.OpcodeFlags = spliceFlags
	return b, nil
}

// Tee duplicates nbytes from the pipe fdIn into the pipe fdOut without consuming them.
func (l *EventLoop) Tee(fdIn int, fdOut int, nbytes uint32, spliceFlags uint32, flags uint8) (*Bridge, error) {
	b, sqe, err := l.prepareRW(capability.OpTee, flags, fdOut, nil, nbytes, 0)
	if err != nil {
		return nil, err
	}
	sqe.SpliceFdIn = int32(fdIn)
	sqe.OpcodeFlags = spliceFlags
	return b, nil
}

func (l *EventLoop) Renameat(oldDfd int, oldPath string, newDfd int, newPath string, renameFlags uint32, flags uint8) (*Bridge, error) {
	return l.twoPaths(capability.OpRenameat, oldDfd, oldPath, newDfd, newPath, renameFlags, flags)
}

func (l *EventLoop) Linkat(oldDfd int, oldPath string, newDfd int, newPath string, linkFlags int, flags uint8) (*Bridge, error) {
	return l.twoPaths(capability.OpLinkat, oldDfd, oldPath, newDfd, newPath, uint32(linkFlags), flags)
}

func (l *EventLoop) twoPaths(op capability.Op, oldDfd int, oldPath string, newDfd int, newPath string, opFlags uint32, flags uint8) (*Bridge, error) {
	oldP, err := cstring(oldPath)
	if err != nil {
		return nil, err
	}
	newP, err := cstring(newPath)
	if err != nil {
		return nil, err
	}
	b, sqe, err := l.prepareRW(op, flags, oldDfd, unsafe.Pointer(oldP), uint32(newDfd), uint64(uintptr(unsafe.Pointer(newP))))
	if err != nil {
		return nil, err
	}
	sqe.OpcodeFlags = opFlags
	b.keep[0], b.keep[1] = oldP, newP
	return b, nil
}

// Symlinkat creates linkPath, relative to newDfd, pointing at target.
func (l *EventLoop) Symlinkat(target string, newDfd int, linkPath string, flags uint8) (*Bridge, error) {
	t, err := cstring(target)
	if err != nil {
		return nil, err
	}
	p, err := cstring(linkPath)
	if err != nil {
		return nil, err
	}
	b, _, err := l.prepareRW(capability.OpSymlinkat, flags, newDfd, unsafe.Pointer(t), 0, uint64(uintptr(unsafe.Pointer(p))))
	if err != nil {
		return nil, err
	}
	b.keep[0], b.keep[1] = t, p
	return b, nil
}

// Unlinkat removes path; unix.AT_REMOVEDIR in unlinkFlags removes a directory.
func (l *EventLoop) Unlinkat(dfd int, path string, unlinkFlags int, flags uint8) (*Bridge, error) {
	p, err := cstring(path)
	if err != nil {
		return nil, err
	}
	b, sqe, err := l.prepareRW(capability.OpUnlinkat, flags, dfd, unsafe.Pointer(p), 0, 0)
	if err != nil {
		return nil, err
	}
	sqe.OpcodeFlags = uint32(unlinkFlags)
	b.keep[0] = p
	return b, nil
}

func (l *EventLoop) Mkdirat(dfd int, path string, mode uint32, flags uint8) (*Bridge, error) {
	p, err := cstring(path)
	if err != nil {
		return nil, err
	}
	b, _, err := l.prepareRW(capability.OpMkdirat, flags, dfd, unsafe.Pointer(p), mode, 0)
	if err != nil {
		return nil, err
	}
	b.keep[0] = p
	return b, nil
}
