// Package socket wraps the raw unix syscalls the reactor's acceptor,
// connector and connection need: non-blocking socket creation, bind,
// listen, accept, connect, shutdown, read/readv/write, option setters,
// and address introspection.
//
// Grounded on original_source/net/SocketsOps.h / SocketsOps.cpp and
// Socket.h / Socket.cpp: createNonblockingOrDie, bindOrDie, listenOrDie,
// the accept errno classification, connect, shutdownWrite, and the
// TCP_NODELAY/SO_REUSEADDR/SO_REUSEPORT/SO_KEEPALIVE setters are all
// ported directly, trading the original's log-and-abort-on-error style
// for explicit Go error returns (rerrors-coded where the caller needs to
// branch on the failure class).
package socket

import (
	"fmt"

	"golang.org/x/sys/unix"

	"github.com/nabbar/reactor/rerrors"
)

// CreateNonblocking creates a non-blocking, close-on-exec TCP socket for
// the given address family (unix.AF_INET or unix.AF_INET6).
func CreateNonblocking(family int) (int, error) {
	fd, err := unix.Socket(family, unix.SOCK_STREAM|unix.SOCK_NONBLOCK|unix.SOCK_CLOEXEC, unix.IPPROTO_TCP)
	if err != nil {
		return -1, rerrors.New(rerrors.Configuration, "socket: create", err)
	}
	return fd, nil
}

// Bind binds fd to addr.
func Bind(fd int, addr Address) error {
	if err := unix.Bind(fd, addr.sockaddr()); err != nil {
		return rerrors.New(rerrors.Configuration, "socket: bind", err)
	}
	return nil
}

// Listen marks fd as a listening socket with the kernel's maximum
// backlog. Safe to call only once per socket (see acceptor.Listen).
func Listen(fd int) error {
	if err := unix.Listen(fd, unix.SOMAXCONN); err != nil {
		return rerrors.New(rerrors.Configuration, "socket: listen", err)
	}
	return nil
}

// Accept accepts one connection on the listening socket fd, returning
// the new non-blocking, close-on-exec descriptor and the peer address.
// Errors are classified exactly like sockets::accept: transient
// conditions (would-block, interrupted, aborted, resource exhaustion)
// are returned as rerrors.Transient or rerrors.DescriptorExhaustion so
// the acceptor can recover; anything else is rerrors.Programmer.
func Accept(fd int) (int, Address, error) {
	nfd, sa, err := unix.Accept4(fd, unix.SOCK_NONBLOCK|unix.SOCK_CLOEXEC)
	if err != nil {
		return -1, Address{}, classifyAcceptError(err)
	}
	addr, aerr := addressFromSockaddr(sa)
	if aerr != nil {
		_ = unix.Close(nfd)
		return -1, Address{}, rerrors.New(rerrors.Programmer, "socket: accept peer address", aerr)
	}
	return nfd, addr, nil
}

func classifyAcceptError(err error) error {
	switch err {
	case unix.EAGAIN, unix.ECONNABORTED, unix.EINTR, unix.EPROTO, unix.EPERM:
		return rerrors.New(rerrors.Transient, "socket: accept", err)
	case unix.EMFILE, unix.ENFILE:
		return rerrors.New(rerrors.DescriptorExhaustion, "socket: accept", err)
	default:
		return rerrors.New(rerrors.Programmer, "socket: accept", err)
	}
}

// Connect initiates a non-blocking connect to addr. The caller must
// classify the returned error (see ClassifyConnectError) to decide
// between "arm write interest and wait" and "schedule a retry."
func Connect(fd int, addr Address) error {
	return unix.Connect(fd, addr.sockaddr())
}

// ClassifyConnectError sorts a Connect/SO_ERROR result into a
// ConnectOutcome: OutcomeConnected for a nil error, OutcomeInProgress
// (connector should arm write interest and poll SO_ERROR later),
// OutcomeRetry (schedule backoff), or OutcomeFatal (abort the attempt).
func ClassifyConnectError(err error) ConnectOutcome {
	if err == nil {
		return OutcomeConnected
	}
	switch err {
	case unix.EINPROGRESS, unix.EINTR, unix.EISCONN:
		return OutcomeInProgress
	case unix.EAGAIN, unix.EADDRINUSE, unix.EADDRNOTAVAIL, unix.ECONNREFUSED,
		unix.ENETUNREACH, unix.ETIMEDOUT:
		return OutcomeRetry
	default:
		return OutcomeFatal
	}
}

// ConnectOutcome classifies the result of a non-blocking connect
// attempt for the connector's state machine.
type ConnectOutcome int

const (
	OutcomeConnected ConnectOutcome = iota
	OutcomeInProgress
	OutcomeRetry
	OutcomeFatal
)

// SocketError reads and clears SO_ERROR, the standard way to learn the
// final outcome of a non-blocking connect once its socket becomes
// writable.
func SocketError(fd int) error {
	errno, err := unix.GetsockoptInt(fd, unix.SOL_SOCKET, unix.SO_ERROR)
	if err != nil {
		return rerrors.New(rerrors.Programmer, "socket: getsockopt SO_ERROR", err)
	}
	if errno != 0 {
		return unix.Errno(errno)
	}
	return nil
}

// ShutdownWrite half-closes fd for writing, letting any queued reads
// drain while signalling EOF to the peer.
func ShutdownWrite(fd int) error {
	if err := unix.Shutdown(fd, unix.SHUT_WR); err != nil {
		return fmt.Errorf("socket: shutdown write: %w", err)
	}
	return nil
}

// Close closes fd.
func Close(fd int) error {
	return unix.Close(fd)
}

// Read reads into p.
func Read(fd int, p []byte) (int, error) {
	return unix.Read(fd, p)
}

// Write writes p, returning the short count on partial write (the
// caller spools the remainder into its output buffer per spec §4.9).
func Write(fd int, p []byte) (int, error) {
	return unix.Write(fd, p)
}

// SetTCPNoDelay toggles Nagle's algorithm.
func SetTCPNoDelay(fd int, on bool) error {
	return unix.SetsockoptInt(fd, unix.IPPROTO_TCP, unix.TCP_NODELAY, boolToInt(on))
}

// SetReuseAddr toggles SO_REUSEADDR, letting a restarted listener rebind
// a port still in TIME_WAIT.
func SetReuseAddr(fd int, on bool) error {
	return unix.SetsockoptInt(fd, unix.SOL_SOCKET, unix.SO_REUSEADDR, boolToInt(on))
}

// SetReusePort toggles SO_REUSEPORT directly via setsockopt, for callers
// that already own a raw fd (the normal acceptor path). For the
// higher-level "give me a ready-to-accept, load-balanced listener"
// entry point, see ListenReusablePort, which wraps
// github.com/kavu/go_reuseport instead of reimplementing its portable
// option-setting fallbacks.
func SetReusePort(fd int, on bool) error {
	return unix.SetsockoptInt(fd, unix.SOL_SOCKET, unix.SO_REUSEPORT, boolToInt(on))
}

// SetKeepAlive toggles SO_KEEPALIVE.
func SetKeepAlive(fd int, on bool) error {
	return unix.SetsockoptInt(fd, unix.SOL_SOCKET, unix.SO_KEEPALIVE, boolToInt(on))
}

// SetLinger configures SO_LINGER: onoff nonzero with linger seconds
// causes close to block (briefly) flushing unsent data, or to discard
// it and send RST if linger is zero.
func SetLinger(fd int, onoff bool, linger int) error {
	l := unix.Linger{Linger: int32(linger)}
	if onoff {
		l.Onoff = 1
	}
	return unix.SetsockoptLinger(fd, unix.SOL_SOCKET, unix.SO_LINGER, &l)
}

func boolToInt(b bool) int {
	if b {
		return 1
	}
	return 0
}

// LocalAddr returns the address fd is locally bound to.
func LocalAddr(fd int) (Address, error) {
	sa, err := unix.Getsockname(fd)
	if err != nil {
		return Address{}, fmt.Errorf("socket: getsockname: %w", err)
	}
	return addressFromSockaddr(sa)
}

// PeerAddr returns the address fd is connected to.
func PeerAddr(fd int) (Address, error) {
	sa, err := unix.Getpeername(fd)
	if err != nil {
		return Address{}, fmt.Errorf("socket: getpeername: %w", err)
	}
	return addressFromSockaddr(sa)
}

// IsSelfConnect reports whether fd has connected to itself: the kernel
// picked an ephemeral source port/address that happens to equal the
// destination, a known pitfall of non-blocking connect to localhost
// (spec §4.8).
func IsSelfConnect(fd int) bool {
	local, err := LocalAddr(fd)
	if err != nil {
		return false
	}
	peer, err := PeerAddr(fd)
	if err != nil {
		return false
	}
	return local.Port() == peer.Port() && local.String() == peer.String()
}
