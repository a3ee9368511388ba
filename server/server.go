// Package server implements TCPServer, the reactor's external TCP server
// interface (spec §6): bind to an address, accept connections on a base
// loop, hand each accepted connection off round-robin to a loop pool, and
// track the live connection set in a mutex-guarded registry. The registry
// is not confined to the base loop: each pool loop adds and removes its own
// connections under the mutex, and Shutdown reads and clears it from the
// caller's goroutine.
//
// Grounded on nabbar-golib/socket/server/tcp's test-only API shape
// (New/Listen/Shutdown/IsRunning/OpenConnections/Done, from
// creation_test.go and lifecycle_test.go) — that package shipped no
// implementation file in this pack, so only its surface is carried over;
// the behavior underneath is this module's own acceptor/loop-pool wiring.
package server

import (
	"context"
	"fmt"
	"sync"
	"sync/atomic"
	"time"

	"github.com/nabbar/reactor/config"
	"github.com/nabbar/reactor/logger"
	"github.com/nabbar/reactor/loop"
	"github.com/nabbar/reactor/looppool"
	"github.com/nabbar/reactor/rerrors"
	"github.com/nabbar/reactor/socket"
	"github.com/nabbar/reactor/tcp"
)

// TCPServer accepts inbound connections on a base loop and distributes them
// across a pool of subordinate loops (spec §4.10), exposing the four fixed
// callback signatures spec §6 names.
type TCPServer struct {
	cfg  config.Server
	addr socket.Address

	base *loop.Loop
	pool *looppool.Pool

	acceptor *tcp.Acceptor

	mu      sync.Mutex
	conns   map[string]*tcp.Connection
	running bool
	done    chan struct{}

	nextID uint64

	// OnConnection, OnMessage, OnWriteComplete and OnHighWater are
	// copied onto every accepted Connection (spec §6's fixed server
	// callback surface).
	OnConnection    tcp.ConnectionCallback
	OnMessage       tcp.MessageCallback
	OnWriteComplete tcp.ConnectionCallback
	OnHighWater     tcp.HighWaterCallback
}

// New validates cfg and resolves its address, but does not bind or listen
// yet — that happens in Listen, on base's goroutine. base is the loop the
// acceptor itself runs on; cfg.PoolSize additional loops are created and
// started by Listen.
func New(base *loop.Loop, cfg config.Server) (*TCPServer, error) {
	if err := cfg.Validate(); err != nil {
		return nil, err
	}

	addr, err := socket.ParseAddress(cfg.Address)
	if err != nil {
		return nil, rerrors.New(rerrors.Configuration, "server: resolve address "+cfg.Address, err)
	}

	return &TCPServer{
		cfg:   cfg,
		addr:  addr,
		base:  base,
		pool:  looppool.New(cfg.PoolSize),
		conns: make(map[string]*tcp.Connection),
	}, nil
}

// Listen starts the loop pool, binds and listens on cfg.Address, and
// returns once the acceptor is armed. It does not block for the server's
// lifetime; call Done to wait for Shutdown/Close.
func (s *TCPServer) Listen() error {
	if err := s.pool.Start(); err != nil {
		return err
	}

	var listenErr error
	done := make(chan struct{})
	s.base.RunInLoop(func() {
		defer close(done)
		a, err := tcp.NewAcceptor(s.base, s.addr, false)
		if err != nil {
			listenErr = err
			return
		}
		a.OnNewConnection = s.dispatchNewConnection
		if err := a.Listen(); err != nil {
			listenErr = err
			return
		}
		s.acceptor = a
	})
	<-done
	if listenErr != nil {
		s.pool.Stop()
		return listenErr
	}

	s.mu.Lock()
	s.running = true
	s.done = make(chan struct{})
	s.mu.Unlock()
	return nil
}

// dispatchNewConnection runs on the base loop (it is the acceptor's
// callback); it picks the next pool loop round-robin and constructs the
// Connection there, or inline on the base loop if the pool size is 0.
func (s *TCPServer) dispatchNewConnection(fd int, peer socket.Address) {
	l := s.pool.Next()
	if l == nil {
		l = s.base
	}
	l.RunInLoop(func() { s.establish(l, fd, peer) })
}

func (s *TCPServer) establish(l *loop.Loop, fd int, peer socket.Address) {
	local, err := socket.LocalAddr(fd)
	if err != nil {
		logger.Default.Warnf("server: local addr: %v", err)
	}

	name := fmt.Sprintf("%s-conn-%d", s.addr.String(), atomic.AddUint64(&s.nextID, 1))
	c := tcp.NewConnection(l, name, fd, local, peer)
	c.OnConnection = s.OnConnection
	c.OnMessage = s.OnMessage
	c.OnWriteComplete = s.OnWriteComplete
	c.OnHighWater = s.OnHighWater
	c.OnClose = s.removeConnection

	s.mu.Lock()
	s.conns[name] = c
	s.mu.Unlock()

	c.ConnectEstablished()
}

// removeConnection is installed as every Connection's OnClose: it drops
// the connection from the registry and completes the close flow (spec §4.9
// close-flow steps 4-5).
func (s *TCPServer) removeConnection(c *tcp.Connection) {
	s.mu.Lock()
	delete(s.conns, c.Name())
	s.mu.Unlock()
	c.ConnectDestroyed()
}

// AcceptorAddr returns the address the listening socket is actually bound
// to, which differs from cfg.Address when the configured port is 0.
func (s *TCPServer) AcceptorAddr() (socket.Address, error) {
	var (
		addr socket.Address
		err  error
	)
	done := make(chan struct{})
	s.base.RunInLoop(func() {
		defer close(done)
		if s.acceptor == nil {
			err = rerrors.New(rerrors.Programmer, "server: AcceptorAddr called before Listen")
			return
		}
		addr, err = s.acceptor.LocalAddr()
	})
	<-done
	return addr, err
}

// OpenConnections returns the number of connections currently registered.
func (s *TCPServer) OpenConnections() int {
	s.mu.Lock()
	defer s.mu.Unlock()
	return len(s.conns)
}

// IsRunning reports whether Listen has succeeded and Shutdown/Close has
// not yet completed.
func (s *TCPServer) IsRunning() bool {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.running
}

// Done returns a channel closed once the server has fully stopped.
func (s *TCPServer) Done() <-chan struct{} {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.done
}

// Shutdown force-closes every registered connection, closes the acceptor,
// and stops the loop pool, returning early if ctx is cancelled before that
// finishes.
func (s *TCPServer) Shutdown(ctx context.Context) error {
	s.mu.Lock()
	if !s.running {
		s.mu.Unlock()
		return nil
	}
	conns := make([]*tcp.Connection, 0, len(s.conns))
	for _, c := range s.conns {
		conns = append(conns, c)
	}
	s.conns = make(map[string]*tcp.Connection)
	s.mu.Unlock()

	for _, c := range conns {
		c.ForceClose()
	}

	stopped := make(chan struct{})
	go func() {
		acceptorClosed := make(chan struct{})
		s.base.RunInLoop(func() {
			defer close(acceptorClosed)
			if s.acceptor != nil {
				_ = s.acceptor.Close()
			}
		})
		<-acceptorClosed
		s.pool.Stop()
		close(stopped)
	}()

	select {
	case <-stopped:
	case <-ctx.Done():
		return ctx.Err()
	}

	s.mu.Lock()
	s.running = false
	if s.done != nil {
		close(s.done)
	}
	s.mu.Unlock()
	return nil
}

// Close is Shutdown with a short fixed deadline, for callers that just
// want "stop now" without building a context.
func (s *TCPServer) Close() error {
	ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()
	return s.Shutdown(ctx)
}
