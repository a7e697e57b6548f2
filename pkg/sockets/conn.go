//go:build linux

// Package sockets provides stream sockets driven by a uring event loop. Every
// blocking call takes the calling coroutine and suspends it until the kernel
// answers.
package sockets

import (
	"io"
	"net"
	"syscall"

	"github.com/brickingsoft/uring"
	"github.com/brickingsoft/uring/pkg/sys"
	"golang.org/x/sys/unix"
)

// Conn is a connected stream socket.
type Conn struct {
	handle  *uring.Handle
	network string
	local   net.Addr
	remote  net.Addr
}

// Dial connects to address on a tcp or unix network.
func Dial(co *uring.Co, network string, address string) (*Conn, error) {
	addr, family, _, err := sys.ResolveAddr(network, address)
	if err != nil {
		return nil, &net.OpError{Op: "dial", Net: network, Err: err}
	}
	protocol := 0
	switch addr.(type) {
	case *net.TCPAddr:
		protocol = unix.IPPROTO_TCP
	case *net.UnixAddr:
	default:
		return nil, &net.OpError{Op: "dial", Net: network, Addr: addr, Err: net.UnknownNetworkError(network)}
	}
	sa, err := sys.AddrToSockaddr(addr)
	if err != nil {
		return nil, &net.OpError{Op: "dial", Net: network, Addr: addr, Err: err}
	}
	raw, rawLen, err := sys.SockaddrToRawSockaddrAny(sa)
	if err != nil {
		return nil, &net.OpError{Op: "dial", Net: network, Addr: addr, Err: err}
	}
	sock, err := sys.NewSocket(family, unix.SOCK_STREAM, protocol)
	if err != nil {
		return nil, &net.OpError{Op: "dial", Net: network, Addr: addr, Err: err}
	}
	loop := co.Loop()
	handle := loop.Own(sock)
	res, err := co.Await(loop.Connect(sock, raw, rawLen, 0))
	if err == nil && res < 0 {
		err = uring.OpError("connect", uring.Errno(res))
	}
	if err != nil {
		handle.Release()
		return nil, &net.OpError{Op: "dial", Net: network, Addr: addr, Err: err}
	}
	c := &Conn{handle: handle, network: network, remote: addr}
	if name, nameErr := unix.Getsockname(sock); nameErr == nil {
		c.local = sys.SockaddrToAddr(network, name)
	}
	return c, nil
}

func newConn(handle *uring.Handle, network string, local net.Addr, remote net.Addr) *Conn {
	return &Conn{handle: handle, network: network, local: local, remote: remote}
}

func (c *Conn) Fd() int {
	return c.handle.Fd()
}

func (c *Conn) LocalAddr() net.Addr {
	return c.local
}

func (c *Conn) RemoteAddr() net.Addr {
	return c.remote
}

// Read receives into b. An orderly shutdown of the peer is reported as io.EOF.
func (c *Conn) Read(co *uring.Co, b []byte) (n int, err error) {
	if len(b) == 0 {
		return 0, c.opError("read", syscall.EINVAL)
	}
	n, err = c.Recv(co, b, 0)
	if err == nil && n == 0 {
		err = io.EOF
	}
	return
}

// Write sends all of b, issuing further sends after a short one.
func (c *Conn) Write(co *uring.Co, b []byte) (n int, err error) {
	if len(b) == 0 {
		return 0, c.opError("write", syscall.EINVAL)
	}
	for n < len(b) {
		var sent int
		if sent, err = c.Send(co, b[n:], unix.MSG_NOSIGNAL); err != nil {
			return
		}
		if sent == 0 {
			err = c.opError("write", io.ErrShortWrite)
			return
		}
		n += sent
	}
	return
}

func (c *Conn) Send(co *uring.Co, b []byte, msgFlags int) (int, error) {
	if c.handle.Closed() {
		return 0, c.opError("write", net.ErrClosed)
	}
	loop := co.Loop()
	res, err := co.Await(loop.Send(c.handle.Fd(), b, msgFlags, c.handle.Flags()))
	return c.complete("send", res, err)
}

func (c *Conn) Recv(co *uring.Co, b []byte, msgFlags int) (int, error) {
	if c.handle.Closed() {
		return 0, c.opError("read", net.ErrClosed)
	}
	loop := co.Loop()
	res, err := co.Await(loop.Recv(c.handle.Fd(), b, msgFlags, c.handle.Flags()))
	return c.complete("recv", res, err)
}

func (c *Conn) Sendmsg(co *uring.Co, msg *unix.Msghdr, msgFlags int) (int, error) {
	if c.handle.Closed() {
		return 0, c.opError("write", net.ErrClosed)
	}
	loop := co.Loop()
	res, err := co.Await(loop.Sendmsg(c.handle.Fd(), msg, msgFlags, c.handle.Flags()))
	return c.complete("sendmsg", res, err)
}

func (c *Conn) Recvmsg(co *uring.Co, msg *unix.Msghdr, msgFlags int) (int, error) {
	if c.handle.Closed() {
		return 0, c.opError("read", net.ErrClosed)
	}
	loop := co.Loop()
	res, err := co.Await(loop.Recvmsg(c.handle.Fd(), msg, msgFlags, c.handle.Flags()))
	return c.complete("recvmsg", res, err)
}

// Shutdown shuts down the read side, the write side or both (unix.SHUT_*).
func (c *Conn) Shutdown(co *uring.Co, how int) error {
	if c.handle.Closed() {
		return c.opError("shutdown", net.ErrClosed)
	}
	loop := co.Loop()
	res, err := co.Await(loop.Shutdown(c.handle.Fd(), how, c.handle.Flags()))
	_, err = c.complete("shutdown", res, err)
	return err
}

// Poll waits until the socket is ready for mask and returns the ready events.
func (c *Conn) Poll(co *uring.Co, mask uint32) (uint32, error) {
	if c.handle.Closed() {
		return 0, c.opError("poll", net.ErrClosed)
	}
	loop := co.Loop()
	res, err := co.Await(loop.PollAdd(c.handle.Fd(), mask, c.handle.Flags()))
	n, err := c.complete("poll_add", res, err)
	return uint32(n), err
}

func (c *Conn) Close(co *uring.Co) error {
	if err := c.handle.Close(co); err != nil {
		return c.opError("close", err)
	}
	return nil
}

// Release closes the socket without suspending.
func (c *Conn) Release() {
	c.handle.Release()
}

func (c *Conn) complete(op string, res int32, err error) (int, error) {
	if err != nil {
		return 0, c.opError(op, err)
	}
	if res < 0 {
		return 0, c.opError(op, uring.OpError(op, uring.Errno(res)))
	}
	return int(res), nil
}

func (c *Conn) opError(op string, err error) *net.OpError {
	return &net.OpError{Op: op, Net: c.network, Source: c.local, Addr: c.remote, Err: err}
}
