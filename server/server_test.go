//go:build unix

package server_test

import (
	"context"
	"testing"
	"time"

	"github.com/nabbar/reactor/buffer"
	"github.com/nabbar/reactor/config"
	"github.com/nabbar/reactor/loop"
	"github.com/nabbar/reactor/network/protocol"
	"github.com/nabbar/reactor/server"
	"github.com/nabbar/reactor/socket"
	"github.com/nabbar/reactor/tcp"
)

func startTestLoop(t *testing.T) *loop.Loop {
	t.Helper()
	ready := make(chan struct{})
	var l *loop.Loop
	var err error
	done := make(chan struct{})

	go func() {
		l, err = loop.New()
		close(ready)
		if err != nil {
			close(done)
			return
		}
		l.Run()
		close(done)
	}()
	<-ready
	if err != nil {
		t.Fatalf("loop.New: %v", err)
	}
	t.Cleanup(func() {
		l.Quit()
		<-done
	})
	return l
}

func newServer(t *testing.T, base *loop.Loop, poolSize int) *server.TCPServer {
	t.Helper()
	s, err := server.New(base, config.Server{
		Network:  protocol.NetworkTCP,
		Address:  "127.0.0.1:0",
		PoolSize: poolSize,
	})
	if err != nil {
		t.Fatalf("server.New: %v", err)
	}
	return s
}

func TestNew_RejectsInvalidConfig(t *testing.T) {
	base := startTestLoop(t)
	if _, err := server.New(base, config.Server{Address: "not-an-address"}); err == nil {
		t.Fatal("expected error for invalid address")
	}
}

func TestListenShutdown_Lifecycle(t *testing.T) {
	base := startTestLoop(t)
	s := newServer(t, base, 0)

	if s.IsRunning() {
		t.Fatal("server reports running before Listen")
	}
	if err := s.Listen(); err != nil {
		t.Fatalf("Listen: %v", err)
	}
	if !s.IsRunning() {
		t.Fatal("server does not report running after Listen")
	}

	ctx, cancel := context.WithTimeout(context.Background(), 2*time.Second)
	defer cancel()
	if err := s.Shutdown(ctx); err != nil {
		t.Fatalf("Shutdown: %v", err)
	}
	if s.IsRunning() {
		t.Fatal("server still reports running after Shutdown")
	}

	select {
	case <-s.Done():
	default:
		t.Fatal("Done channel not closed after Shutdown")
	}
}

// dialLocal opens a non-blocking socket and starts a connect to the
// server's bound ephemeral port on 127.0.0.1, returning the descriptor
// without waiting for the handshake; base is not used.
func dialLocal(t *testing.T, base *loop.Loop, addr socket.Address) int {
	t.Helper()
	fd, err := socket.CreateNonblocking(addr.Family())
	if err != nil {
		t.Fatalf("CreateNonblocking: %v", err)
	}
	connAddr, err := socket.NewAddress("127.0.0.1", addr.Port())
	if err != nil {
		t.Fatalf("NewAddress: %v", err)
	}
	_ = socket.Connect(fd, connAddr)
	return fd
}

func TestOpenConnections_TracksMultipleConnectionsAcrossPool(t *testing.T) {
	base := startTestLoop(t)
	s := newServer(t, base, 2)

	connected := make(chan struct{}, 8)
	s.OnConnection = func(c *tcp.Connection) {
		if c.State() == tcp.ConnStateConnected {
			connected <- struct{}{}
		}
	}
	s.OnMessage = func(c *tcp.Connection, buf *buffer.Buffer, when time.Time) {
		c.Send([]byte(buf.RetrieveAllAsString()))
	}

	if err := s.Listen(); err != nil {
		t.Fatalf("Listen: %v", err)
	}

	time.Sleep(20 * time.Millisecond)
	addr, err := s.AcceptorAddr()
	if err != nil {
		t.Fatalf("AcceptorAddr: %v", err)
	}

	const clients = 3
	fds := make([]int, clients)
	for i := range fds {
		fds[i] = dialLocal(t, base, addr)
	}
	t.Cleanup(func() {
		for _, fd := range fds {
			_ = socket.Close(fd)
		}
	})

	deadline := time.After(2 * time.Second)
	for i := 0; i < clients; i++ {
		select {
		case <-connected:
		case <-deadline:
			t.Fatalf("only %d of %d connections established", i, clients)
		}
	}

	if n := s.OpenConnections(); n != clients {
		t.Fatalf("OpenConnections: got %d, want %d", n, clients)
	}

	ctx, cancel := context.WithTimeout(context.Background(), 2*time.Second)
	defer cancel()
	if err := s.Shutdown(ctx); err != nil {
		t.Fatalf("Shutdown: %v", err)
	}
	if n := s.OpenConnections(); n != 0 {
		t.Fatalf("OpenConnections after Shutdown: got %d, want 0", n)
	}
}

