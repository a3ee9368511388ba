//go:build unix

package socket

import (
	"fmt"
	"net"
	"runtime"

	reuseport "github.com/kavu/go_reuseport"
	"golang.org/x/sys/unix"

	"github.com/nabbar/reactor/rerrors"
)

// ListenReusablePort returns a non-blocking, close-on-exec listening
// descriptor bound with SO_REUSEPORT, letting several acceptors across
// processes or loops share one port for kernel-level load balancing.
//
// It builds on go_reuseport rather than reimplementing its portable
// SO_REUSEPORT option-setting fallbacks, then detaches the resulting
// net.Listener down to a raw fd the same way a userspace reactor must:
// dup the kernel socket via (*net.TCPListener).File(), close the
// net.Listener wrapper (which does not close the duplicated fd), and
// force the dup back to non-blocking — the exact detach sequence
// jursonmo-evio's listener.system() uses for its own reuseport
// listeners.
func ListenReusablePort(network, address string) (int, error) {
	ln, err := reuseport.Listen(network, address)
	if err != nil {
		return -1, rerrors.New(rerrors.Configuration, "socket: reuseport listen", err)
	}

	tcpLn, ok := ln.(*net.TCPListener)
	if !ok {
		_ = ln.Close()
		return -1, rerrors.New(rerrors.Programmer, fmt.Sprintf("socket: reuseport listener has unexpected type %T", ln))
	}

	f, err := tcpLn.File()
	if err != nil {
		_ = ln.Close()
		return -1, rerrors.New(rerrors.Configuration, "socket: detach reuseport listener", err)
	}
	_ = ln.Close()

	fd := int(f.Fd())
	if err := unix.SetNonblock(fd, true); err != nil {
		_ = f.Close()
		return -1, rerrors.New(rerrors.Configuration, "socket: set reuseport listener non-blocking", err)
	}

	// f's finalizer would otherwise close fd out from under the caller
	// the next time it gets garbage collected; ownership of fd now
	// belongs to whoever called ListenReusablePort (the acceptor,
	// closed via socket.Close on teardown).
	runtime.SetFinalizer(f, nil)
	return fd, nil
}
