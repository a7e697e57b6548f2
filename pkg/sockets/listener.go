//go:build linux

package sockets

import (
	"net"
	"unsafe"

	"github.com/brickingsoft/uring"
	"github.com/brickingsoft/uring/pkg/sys"
	"golang.org/x/sys/unix"
)

// Listener accepts stream connections through the event loop.
type Listener struct {
	handle  *uring.Handle
	network string
	addr    net.Addr
}

// Listen binds address on a tcp or unix network. Binding does not suspend, so
// it only needs the loop that will own the socket.
func Listen(loop *uring.EventLoop, network string, address string) (*Listener, error) {
	sock, addr, err := sys.Listen(network, address)
	if err != nil {
		return nil, &net.OpError{Op: "listen", Net: network, Err: err}
	}
	return &Listener{handle: loop.Own(sock), network: network, addr: addr}, nil
}

// Accept suspends until a peer connects.
func (ln *Listener) Accept(co *uring.Co) (*Conn, error) {
	if ln.handle.Closed() {
		return nil, ln.opError(net.ErrClosed)
	}
	loop := co.Loop()
	peer := &unix.RawSockaddrAny{}
	peerLen := uint32(unsafe.Sizeof(*peer))
	res, err := co.Await(loop.Accept(ln.handle.Fd(), peer, &peerLen, unix.SOCK_CLOEXEC, ln.handle.Flags()))
	if err != nil {
		return nil, ln.opError(err)
	}
	if res < 0 {
		return nil, ln.opError(uring.OpError("accept", uring.Errno(res)))
	}
	var remote net.Addr
	if sa, saErr := sys.RawSockaddrAnyToSockaddr(peer); saErr == nil {
		remote = sys.SockaddrToAddr(ln.network, sa)
	}
	return newConn(loop.Own(int(res)), ln.network, ln.addr, remote), nil
}

// Addr returns the bound address, with the port the kernel picked for port 0.
func (ln *Listener) Addr() net.Addr {
	return ln.addr
}

func (ln *Listener) Close(co *uring.Co) error {
	if err := ln.handle.Close(co); err != nil {
		return &net.OpError{Op: "close", Net: ln.network, Source: ln.addr, Err: err}
	}
	return nil
}

func (ln *Listener) Release() {
	ln.handle.Release()
}

func (ln *Listener) opError(err error) *net.OpError {
	return &net.OpError{Op: "accept", Net: ln.network, Source: ln.addr, Err: err}
}
