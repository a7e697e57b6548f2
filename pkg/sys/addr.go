//go:build linux

package sys

import (
	"errors"
	"net"
	"net/netip"
	"strings"
	"unsafe"

	"golang.org/x/sys/unix"
)

// ResolveAddr resolves address for a tcp, udp or unix network and reports the
// socket family it needs.
func ResolveAddr(network string, address string) (addr net.Addr, family int, ipv6only bool, err error) {
	address = strings.TrimSpace(address)
	if address == "" {
		err = errors.New("address is invalid")
		return
	}
	ipv6only = strings.HasSuffix(network, "6")
	switch network {
	case "tcp", "tcp4", "tcp6":
		a, resolveErr := net.ResolveTCPAddr(network, address)
		if resolveErr != nil {
			err = resolveErr
			return
		}
		if a.IP, family, err = ipFamily(a.IP, ipv6only); err != nil {
			return
		}
		addr = a
	case "udp", "udp4", "udp6":
		a, resolveErr := net.ResolveUDPAddr(network, address)
		if resolveErr != nil {
			err = resolveErr
			return
		}
		if a.IP, family, err = ipFamily(a.IP, ipv6only); err != nil {
			return
		}
		addr = a
	case "unix", "unixgram", "unixpacket":
		family = unix.AF_UNIX
		addr, err = net.ResolveUnixAddr(network, address)
	default:
		err = net.UnknownNetworkError(network)
	}
	return
}

func ipFamily(ip net.IP, ipv6only bool) (net.IP, int, error) {
	if !ipv6only {
		if ip4 := ip.To4(); ip4 != nil {
			ip = ip4
		}
	}
	switch len(ip) {
	case net.IPv4len:
		return ip, unix.AF_INET, nil
	case net.IPv6len:
		return ip, unix.AF_INET6, nil
	case 0:
		return net.IPv4zero.To4(), unix.AF_INET, nil
	default:
		return nil, 0, errors.New("ip is invalid")
	}
}

func AddrToSockaddr(a net.Addr) (sa unix.Sockaddr, err error) {
	switch addr := a.(type) {
	case *net.TCPAddr:
		return AddrPortToSockaddr(addr.AddrPort())
	case *net.UDPAddr:
		return AddrPortToSockaddr(addr.AddrPort())
	case *net.UnixAddr:
		return &unix.SockaddrUnix{Name: addr.Name}, nil
	default:
		return nil, errors.New("invalid address type")
	}
}

func AddrPortToSockaddr(ap netip.AddrPort) (unix.Sockaddr, error) {
	ip := ap.Addr()
	switch {
	case !ip.IsValid():
		return nil, errors.New("ip is invalid")
	case ip.Is4() || ip.Is4In6():
		return &unix.SockaddrInet4{Port: int(ap.Port()), Addr: ip.Unmap().As4()}, nil
	default:
		zoneId := uint32(0)
		if ifi, ifiErr := net.InterfaceByName(ip.Zone()); ifiErr == nil {
			zoneId = uint32(ifi.Index)
		}
		return &unix.SockaddrInet6{Port: int(ap.Port()), Addr: ip.As16(), ZoneId: zoneId}, nil
	}
}

func SockaddrToAddr(network string, sa unix.Sockaddr) (addr net.Addr) {
	switch sa := sa.(type) {
	case *unix.SockaddrInet4:
		ap := netip.AddrPortFrom(netip.AddrFrom4(sa.Addr), uint16(sa.Port))
		if strings.HasPrefix(network, "udp") {
			return net.UDPAddrFromAddrPort(ap)
		}
		return net.TCPAddrFromAddrPort(ap)
	case *unix.SockaddrInet6:
		ip := netip.AddrFrom16(sa.Addr)
		if sa.ZoneId != 0 {
			if ifi, err := net.InterfaceByIndex(int(sa.ZoneId)); err == nil {
				ip = ip.WithZone(ifi.Name)
			}
		}
		ap := netip.AddrPortFrom(ip, uint16(sa.Port))
		if strings.HasPrefix(network, "udp") {
			return net.UDPAddrFromAddrPort(ap)
		}
		return net.TCPAddrFromAddrPort(ap)
	case *unix.SockaddrUnix:
		return &net.UnixAddr{Net: network, Name: sa.Name}
	}
	return nil
}

// RawSockaddrAnyToSockaddr decodes an address the kernel wrote, as accept does.
func RawSockaddrAnyToSockaddr(rsa *unix.RawSockaddrAny) (unix.Sockaddr, error) {
	switch rsa.Addr.Family {
	case unix.AF_UNIX:
		pp := (*unix.RawSockaddrUnix)(unsafe.Pointer(rsa))
		n := 0
		for n < len(pp.Path) && pp.Path[n] != 0 {
			n++
		}
		name := unsafe.Slice((*byte)(unsafe.Pointer(&pp.Path[0])), n)
		return &unix.SockaddrUnix{Name: string(name)}, nil
	case unix.AF_INET:
		pp := (*unix.RawSockaddrInet4)(unsafe.Pointer(rsa))
		p := (*[2]byte)(unsafe.Pointer(&pp.Port))
		return &unix.SockaddrInet4{Port: int(p[0])<<8 + int(p[1]), Addr: pp.Addr}, nil
	case unix.AF_INET6:
		pp := (*unix.RawSockaddrInet6)(unsafe.Pointer(rsa))
		p := (*[2]byte)(unsafe.Pointer(&pp.Port))
		return &unix.SockaddrInet6{Port: int(p[0])<<8 + int(p[1]), ZoneId: pp.Scope_id, Addr: pp.Addr}, nil
	}
	return nil, unix.EAFNOSUPPORT
}

// SockaddrToRawSockaddrAny encodes sa for connect.
func SockaddrToRawSockaddrAny(sa unix.Sockaddr) (name *unix.RawSockaddrAny, nameLen uint32, err error) {
	name = &unix.RawSockaddrAny{}
	switch s := sa.(type) {
	case *unix.SockaddrInet4:
		raw := (*unix.RawSockaddrInet4)(unsafe.Pointer(name))
		raw.Family = unix.AF_INET
		p := (*[2]byte)(unsafe.Pointer(&raw.Port))
		p[0], p[1] = byte(s.Port>>8), byte(s.Port)
		raw.Addr = s.Addr
		nameLen = uint32(unsafe.Sizeof(*raw))
	case *unix.SockaddrInet6:
		raw := (*unix.RawSockaddrInet6)(unsafe.Pointer(name))
		raw.Family = unix.AF_INET6
		p := (*[2]byte)(unsafe.Pointer(&raw.Port))
		p[0], p[1] = byte(s.Port>>8), byte(s.Port)
		raw.Scope_id = s.ZoneId
		raw.Addr = s.Addr
		nameLen = uint32(unsafe.Sizeof(*raw))
	case *unix.SockaddrUnix:
		raw := (*unix.RawSockaddrUnix)(unsafe.Pointer(name))
		raw.Family = unix.AF_UNIX
		if len(s.Name) >= len(raw.Path) {
			return nil, 0, errors.New("unix socket path too long")
		}
		for i := 0; i < len(s.Name); i++ {
			raw.Path[i] = int8(s.Name[i])
		}
		nameLen = uint32(unsafe.Sizeof(raw.Family)) + uint32(len(s.Name)) + 1
	default:
		return nil, 0, errors.New("invalid address type")
	}
	return
}
