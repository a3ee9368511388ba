package socket

import (
	"fmt"
	"net"
	"strconv"

	"golang.org/x/sys/unix"
)

// Address unifies IPv4 and IPv6 endpoints in one value, sized for the
// larger of the two (mirroring InetAddress's sockaddr_in/sockaddr_in6
// union) rather than carrying a separate type per family.
type Address struct {
	family int // unix.AF_INET or unix.AF_INET6
	ip     net.IP
	port   uint16
}

// NewAddress builds an Address from a textual IP and a port, picking
// the family from the parsed form (byte-order-correct construction,
// per spec §4.6).
func NewAddress(ip string, port uint16) (Address, error) {
	parsed := net.ParseIP(ip)
	if parsed == nil {
		return Address{}, fmt.Errorf("socket: invalid IP %q", ip)
	}
	if v4 := parsed.To4(); v4 != nil {
		return Address{family: unix.AF_INET, ip: v4, port: port}, nil
	}
	return Address{family: unix.AF_INET6, ip: parsed.To16(), port: port}, nil
}

// Family returns unix.AF_INET or unix.AF_INET6.
func (a Address) Family() int { return a.family }

// Port returns the port in host byte order.
func (a Address) Port() uint16 { return a.port }

// String returns the textual IP, without the port.
func (a Address) String() string {
	if a.ip == nil {
		return ""
	}
	return a.ip.String()
}

func (a Address) sockaddr() unix.Sockaddr {
	if a.family == unix.AF_INET6 {
		sa := &unix.SockaddrInet6{Port: int(a.port)}
		copy(sa.Addr[:], a.ip.To16())
		return sa
	}
	sa := &unix.SockaddrInet4{Port: int(a.port)}
	copy(sa.Addr[:], a.ip.To4())
	return sa
}

func addressFromSockaddr(sa unix.Sockaddr) (Address, error) {
	switch v := sa.(type) {
	case *unix.SockaddrInet4:
		ip := make(net.IP, 4)
		copy(ip, v.Addr[:])
		return Address{family: unix.AF_INET, ip: ip, port: uint16(v.Port)}, nil
	case *unix.SockaddrInet6:
		ip := make(net.IP, 16)
		copy(ip, v.Addr[:])
		return Address{family: unix.AF_INET6, ip: ip, port: uint16(v.Port)}, nil
	default:
		return Address{}, fmt.Errorf("socket: unsupported sockaddr type %T", sa)
	}
}

// ResolveIPv4 resolves hostname to its first IPv4 address. Blocking;
// provided for completeness (spec §4.6) but not used on the hot path —
// production configuration is expected to carry literal IPs.
func ResolveIPv4(hostname string) (net.IP, error) {
	ips, err := net.LookupIP(hostname)
	if err != nil {
		return nil, fmt.Errorf("socket: resolve %q: %w", hostname, err)
	}
	for _, ip := range ips {
		if v4 := ip.To4(); v4 != nil {
			return v4, nil
		}
	}
	return nil, fmt.Errorf("socket: %q has no IPv4 address", hostname)
}

// ParseAddress splits a "host:port" string and builds an Address from it,
// resolving host via ResolveIPv4 when it is not already a literal IP (spec
// §4.6's listen/connect address, as handed in from config.Server/Client).
func ParseAddress(hostport string) (Address, error) {
	host, portStr, err := net.SplitHostPort(hostport)
	if err != nil {
		return Address{}, fmt.Errorf("socket: parse address %q: %w", hostport, err)
	}
	port, err := strconv.ParseUint(portStr, 10, 16)
	if err != nil {
		return Address{}, fmt.Errorf("socket: parse port %q: %w", portStr, err)
	}

	if host == "" {
		host = "0.0.0.0"
	}
	if ip := net.ParseIP(host); ip != nil {
		return NewAddress(host, uint16(port))
	}

	ip, err := ResolveIPv4(host)
	if err != nil {
		return Address{}, err
	}
	return NewAddress(ip.String(), uint16(port))
}
