package capability

import "strconv"

// Op is an io_uring operation code. Values match the kernel's IORING_OP_* numbering.
type Op uint8

const (
	OpNop Op = iota
	OpReadv
	OpWritev
	OpFsync
	OpReadFixed
	OpWriteFixed
	OpPollAdd
	OpPollRemove
	OpSyncFileRange
	OpSendmsg
	OpRecvmsg
	OpTimeout
	OpTimeoutRemove
	OpAccept
	OpAsyncCancel
	OpLinkTimeout
	OpConnect
	OpFallocate
	OpOpenat
	OpClose
	OpFilesUpdate
	OpStatx
	OpRead
	OpWrite
	OpFadvise
	OpMadvise
	OpSend
	OpRecv
	OpOpenat2
	OpEpollCtl
	OpSplice
	OpProvideBuffers
	OpRemoveBuffers
	OpTee
	OpShutdown
	OpRenameat
	OpUnlinkat
	OpMkdirat
	OpSymlinkat
	OpLinkat
	OpMsgRing
	OpFsetxattr
	OpSetxattr
	OpFgetxattr
	OpGetxattr
	OpSocket
	OpUringCmd
	OpSendZC
	OpSendmsgZC
	OpReadMultishot
	OpWaitid
	OpFutexWait
	OpFutexWake
	OpFutexWaitv
	OpFixedFdInstall
	OpFtruncate
	OpBind
	OpListen
	opLast
)

var opNames = [...]string{
	OpNop:            "nop",
	OpReadv:          "readv",
	OpWritev:         "writev",
	OpFsync:          "fsync",
	OpReadFixed:      "read_fixed",
	OpWriteFixed:     "write_fixed",
	OpPollAdd:        "poll_add",
	OpPollRemove:     "poll_remove",
	OpSyncFileRange:  "sync_file_range",
	OpSendmsg:        "sendmsg",
	OpRecvmsg:        "recvmsg",
	OpTimeout:        "timeout",
	OpTimeoutRemove:  "timeout_remove",
	OpAccept:         "accept",
	OpAsyncCancel:    "async_cancel",
	OpLinkTimeout:    "link_timeout",
	OpConnect:        "connect",
	OpFallocate:      "fallocate",
	OpOpenat:         "openat",
	OpClose:          "close",
	OpFilesUpdate:    "files_update",
	OpStatx:          "statx",
	OpRead:           "read",
	OpWrite:          "write",
	OpFadvise:        "fadvise",
	OpMadvise:        "madvise",
	OpSend:           "send",
	OpRecv:           "recv",
	OpOpenat2:        "openat2",
	OpEpollCtl:       "epoll_ctl",
	OpSplice:         "splice",
	OpProvideBuffers: "provide_buffers",
	OpRemoveBuffers:  "remove_buffers",
	OpTee:            "tee",
	OpShutdown:       "shutdown",
	OpRenameat:       "renameat",
	OpUnlinkat:       "unlinkat",
	OpMkdirat:        "mkdirat",
	OpSymlinkat:      "symlinkat",
	OpLinkat:         "linkat",
	OpMsgRing:        "msg_ring",
	OpFsetxattr:      "fsetxattr",
	OpSetxattr:       "setxattr",
	OpFgetxattr:      "fgetxattr",
	OpGetxattr:       "getxattr",
	OpSocket:         "socket",
	OpUringCmd:       "uring_cmd",
	OpSendZC:         "send_zc",
	OpSendmsgZC:      "sendmsg_zc",
	OpReadMultishot:  "read_multishot",
	OpWaitid:         "waitid",
	OpFutexWait:      "futex_wait",
	OpFutexWake:      "futex_wake",
	OpFutexWaitv:     "futex_waitv",
	OpFixedFdInstall: "fixed_fd_install",
	OpFtruncate:      "ftruncate",
	OpBind:           "bind",
	OpListen:         "listen",
}

// Known reports whether op belongs to the enumeration.
func (op Op) Known() bool {
	return op < opLast
}

func (op Op) String() string {
	if op.Known() {
		return opNames[op]
	}
	return "op(" + strconv.Itoa(int(op)) + ")"
}

// AllOps returns every operation of the enumeration in opcode order.
func AllOps() []Op {
	ops := make([]Op, 0, opLast)
	for op := OpNop; op < opLast; op++ {
		ops = append(ops, op)
	}
	return ops
}

// ParseOp looks an operation up by its name.
func ParseOp(name string) (Op, bool) {
	for i, n := range opNames {
		if n == name {
			return Op(i), true
		}
	}
	return 0, false
}
