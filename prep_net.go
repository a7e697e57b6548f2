package uring

import (
	"unsafe"

	"github.com/brickingsoft/uring/pkg/capability"
	"golang.org/x/sys/unix"
)

func (l *EventLoop) Send(fd int, buf []byte, msgFlags int, flags uint8) (*Bridge, error) {
	b, sqe, err := l.prepareRW(capability.OpSend, flags, fd, bytesPtr(buf), uint32(len(buf)), 0)
	if err != nil {
		return nil, err
	}
	sqe.OpcodeFlags = uint32(msgFlags)
	b.keep[0] = buf
	return b, nil
}

func (l *EventLoop) Recv(fd int, buf []byte, msgFlags int, flags uint8) (*Bridge, error) {
	b, sqe, err := l.prepareRW(capability.OpRecv, flags, fd, bytesPtr(buf), uint32(len(buf)), 0)
	if err != nil {
		return nil, err
	}
	sqe.OpcodeFlags = uint32(msgFlags)
	b.keep[0] = buf
	return b, nil
}

// Sendmsg sends msg. The buffers msg points at must stay untouched until completion.
func (l *EventLoop) Sendmsg(fd int, msg *unix.Msghdr, msgFlags int, flags uint8) (*Bridge, error) {
	b, sqe, err := l.prepareRW(capability.OpSendmsg, flags, fd, unsafe.Pointer(msg), 1, 0)
	if err != nil {
		return nil, err
	}
	sqe.OpcodeFlags = uint32(msgFlags)
	b.keep[0] = msg
	return b, nil
}

func (l *EventLoop) Recvmsg(fd int, msg *unix.Msghdr, msgFlags int, flags uint8) (*Bridge, error) {
	b, sqe, err := l.prepareRW(capability.OpRecvmsg, flags, fd, unsafe.Pointer(msg), 1, 0)
	if err != nil {
		return nil, err
	}
	sqe.OpcodeFlags = uint32(msgFlags)
	b.keep[0] = msg
	return b, nil
}

// Accept waits for a connection on the listening socket fd. When addr is not nil
// the peer address is stored there and addrLen must hold its size. The result is
// the connected descriptor.
func (l *EventLoop) Accept(fd int, addr *unix.RawSockaddrAny, addrLen *uint32, acceptFlags int, flags uint8) (*Bridge, error) {
	b, sqe, err := l.prepareRW(capability.OpAccept, flags, fd, unsafe.Pointer(addr), 0, uint64(uintptr(unsafe.Pointer(addrLen))))
	if err != nil {
		return nil, err
	}
	sqe.OpcodeFlags = uint32(acceptFlags)
	b.keep[0], b.keep[1] = addr, addrLen
	return b, nil
}

func (l *EventLoop) Connect(fd int, addr *unix.RawSockaddrAny, addrLen uint32, flags uint8) (*Bridge, error) {
	b, _, err := l.prepareRW(capability.OpConnect, flags, fd, unsafe.Pointer(addr), 0, uint64(addrLen))
	if err != nil {
		return nil, err
	}
	b.keep[0] = addr
	return b, nil
}

// Shutdown shuts down part of a full-duplex connection, how is unix.SHUT_RD, SHUT_WR or SHUT_RDWR.
func (l *EventLoop) Shutdown(fd int, how int, flags uint8) (*Bridge, error) {
	b, _, err := l.prepareRW(capability.OpShutdown, flags, fd, nil, uint32(how), 0)
	return b, err
}

// PollAdd completes with the ready events once fd matches mask (unix.POLLIN, ...).
func (l *EventLoop) PollAdd(fd int, mask uint32, flags uint8) (*Bridge, error) {
	b, sqe, err := l.prepareRW(capability.OpPollAdd, flags, fd, nil, 0, 0)
	if err != nil {
		return nil, err
	}
	sqe.OpcodeFlags = mask
	return b, nil
}
