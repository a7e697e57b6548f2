//go:build linux

package sys

import (
	"errors"
	"net"
	"os"

	"golang.org/x/sys/unix"
)

// NewSocket creates a close-on-exec socket in blocking mode.
func NewSocket(family int, sotype int, protocol int) (sock int, err error) {
	sock, err = unix.Socket(family, sotype|unix.SOCK_CLOEXEC, protocol)
	if err != nil {
		if errors.Is(err, unix.EPROTONOSUPPORT) || errors.Is(err, unix.EINVAL) {
			if sock, err = unix.Socket(family, sotype, protocol); err == nil {
				unix.CloseOnExec(sock)
				return
			}
		}
		err = os.NewSyscallError("socket", err)
		return
	}
	return
}

// Listen creates a bound, listening stream socket for a tcp or unix network and
// returns it with the address it is bound to.
func Listen(network string, address string) (sock int, local net.Addr, err error) {
	addr, family, ipv6only, addrErr := ResolveAddr(network, address)
	if addrErr != nil {
		err = addrErr
		return
	}
	protocol := 0
	switch addr.(type) {
	case *net.TCPAddr:
		protocol = unix.IPPROTO_TCP
	case *net.UnixAddr:
	default:
		err = net.UnknownNetworkError(network)
		return
	}
	if sock, err = NewSocket(family, unix.SOCK_STREAM, protocol); err != nil {
		return
	}
	if family == unix.AF_INET6 && ipv6only {
		if err = unix.SetsockoptInt(sock, unix.IPPROTO_IPV6, unix.IPV6_V6ONLY, 1); err != nil {
			_ = unix.Close(sock)
			err = os.NewSyscallError("setsockopt", err)
			return
		}
	}
	if family != unix.AF_UNIX {
		if err = unix.SetsockoptInt(sock, unix.SOL_SOCKET, unix.SO_REUSEADDR, 1); err != nil {
			_ = unix.Close(sock)
			err = os.NewSyscallError("setsockopt", err)
			return
		}
	}
	sa, saErr := AddrToSockaddr(addr)
	if saErr != nil {
		_ = unix.Close(sock)
		err = saErr
		return
	}
	if err = unix.Bind(sock, sa); err != nil {
		_ = unix.Close(sock)
		err = os.NewSyscallError("bind", err)
		return
	}
	if err = unix.Listen(sock, MaxListenerBacklog()); err != nil {
		_ = unix.Close(sock)
		err = os.NewSyscallError("listen", err)
		return
	}
	local = addr
	if sn, nameErr := unix.Getsockname(sock); nameErr == nil {
		if a := SockaddrToAddr(network, sn); a != nil {
			local = a
		}
	}
	return
}
