// Package tcp implements the reactor's connection-establishment and
// data-transfer state machines: Acceptor (server-side accept loop),
// Connector (client-side non-blocking connect with backoff), and
// Connection (the per-socket read/write/close state machine).
//
// Grounded on original_source/net/Acceptor.h / Acceptor.cpp,
// Connector.h / Connector.cpp, and TcpConnection.h / TcpConnection.cpp.
package tcp

import (
	"net"
	"strconv"
	"time"

	"github.com/nabbar/reactor/channel"
	"github.com/nabbar/reactor/logger"
	"github.com/nabbar/reactor/loop"
	"github.com/nabbar/reactor/rerrors"
	"github.com/nabbar/reactor/socket"
)

// NewConnectionFunc receives an accepted descriptor and its peer
// address; the acceptor hands off ownership of fd to it.
type NewConnectionFunc func(fd int, peer socket.Address)

// Acceptor owns a listening socket, a read-armed channel, and a
// reserved "idle" descriptor kept open on /dev/null so a descriptor-
// exhaustion condition can be recovered without busy-looping on
// level-triggered readiness (spec §4.7; Acceptor::handleRead's
// EMFILE-recovery trick).
type Acceptor struct {
	l *loop.Loop

	listenFD int
	ch       *channel.Channel
	idleFD   int

	listening bool // true once listen(2) has run on listenFD
	armed     bool // true once Listen has armed read interest; guards idempotency

	OnNewConnection NewConnectionFunc
}

// NewAcceptor creates a listening socket bound to addr. reusePort toggles
// SO_REUSEPORT so multiple acceptors (in this process or others) can share
// the port for kernel-level load balancing; when set, the socket is built
// through socket.ListenReusablePort (go_reuseport) rather than this
// package's own bind-then-listen sequence, since that is where the
// portable SO_REUSEPORT fallbacks live.
func NewAcceptor(l *loop.Loop, addr socket.Address, reusePort bool) (*Acceptor, error) {
	var (
		fd        int
		err       error
		listening bool
	)

	if reusePort {
		hostport := net.JoinHostPort(addr.String(), strconv.Itoa(int(addr.Port())))
		fd, err = socket.ListenReusablePort("tcp", hostport)
		if err != nil {
			return nil, err
		}
		listening = true
	} else {
		fd, err = socket.CreateNonblocking(addr.Family())
		if err != nil {
			return nil, err
		}
		if err := socket.SetReuseAddr(fd, true); err != nil {
			_ = socket.Close(fd)
			return nil, rerrors.New(rerrors.Configuration, "tcp: acceptor set reuse-addr", err)
		}
		if err := socket.Bind(fd, addr); err != nil {
			_ = socket.Close(fd)
			return nil, err
		}
	}

	idleFD, err := openIdleDescriptor()
	if err != nil {
		_ = socket.Close(fd)
		return nil, rerrors.New(rerrors.Configuration, "tcp: acceptor reserve descriptor", err)
	}

	a := &Acceptor{l: l, listenFD: fd, idleFD: idleFD, listening: listening}
	a.ch = channel.New(fd, func(c *channel.Channel) {
		if err := l.UpdateChannel(c); err != nil {
			logger.Default.Errorf("tcp: acceptor update channel: %v", err)
		}
	})
	a.ch.SetReadFunc(func(time.Time) { a.handleRead() })
	return a, nil
}

// LocalAddr returns the address the listening socket is bound to,
// useful when constructed with an ephemeral port (port 0).
func (a *Acceptor) LocalAddr() (socket.Address, error) {
	return socket.LocalAddr(a.listenFD)
}

// Listen starts listening and arms read interest. Idempotent: calling
// it more than once is a no-op, matching spec §4.7's "idempotent with
// respect to being called once."
func (a *Acceptor) Listen() error {
	a.l.AssertInLoopGoroutine()
	if a.armed {
		return nil
	}
	if !a.listening {
		if err := socket.Listen(a.listenFD); err != nil {
			return err
		}
		a.listening = true
	}
	a.armed = true
	a.ch.EnableReading()
	return nil
}

func (a *Acceptor) handleRead() {
	a.l.AssertInLoopGoroutine()

	fd, peer, err := socket.Accept(a.listenFD)
	if err == nil {
		if a.OnNewConnection != nil {
			a.OnNewConnection(fd, peer)
		} else {
			_ = socket.Close(fd)
		}
		return
	}

	logger.Default.Warnf("tcp: acceptor accept: %v", err)

	if rerrors.HasCode(err, rerrors.DescriptorExhaustion) {
		_ = socket.Close(a.idleFD)
		if nfd, _, acceptErr := socket.Accept(a.listenFD); acceptErr == nil {
			_ = socket.Close(nfd)
		}
		a.idleFD, err = openIdleDescriptor()
		if err != nil {
			logger.Default.Errorf("tcp: acceptor reopen reserve descriptor: %v", err)
		}
	}
}

// Close tears down the acceptor's channel and descriptors.
func (a *Acceptor) Close() error {
	a.ch.DisableAll()
	if err := a.l.RemoveChannel(a.ch); err != nil {
		logger.Default.Warnf("tcp: acceptor remove channel: %v", err)
	}
	_ = socket.Close(a.idleFD)
	return socket.Close(a.listenFD)
}
