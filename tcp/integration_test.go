//go:build unix

package tcp_test

import (
	"testing"
	"time"

	"golang.org/x/sys/unix"

	"github.com/nabbar/reactor/buffer"
	"github.com/nabbar/reactor/socket"
	"github.com/nabbar/reactor/tcp"
)

// TestEchoEndToEnd is spec §8's S1: a server that echoes back whatever
// it reads, a client that sends "hello\n" and expects it back, with
// write-complete firing on each side and a clean close after the
// client shuts down.
func TestEchoEndToEnd(t *testing.T) {
	l, done := startTestLoop(t)
	defer func() {
		l.Quit()
		<-done
	}()

	addr, err := socket.NewAddress("127.0.0.1", 0)
	if err != nil {
		t.Fatalf("NewAddress: %v", err)
	}

	var a *tcp.Acceptor
	serverWriteComplete := make(chan struct{}, 1)

	l.RunInLoop(func() {
		var err error
		a, err = tcp.NewAcceptor(l, addr, false)
		if err != nil {
			t.Errorf("NewAcceptor: %v", err)
			return
		}
		a.OnNewConnection = func(fd int, peer socket.Address) {
			local, _ := socket.LocalAddr(fd)
			sc := tcp.NewConnection(l, "server-conn", fd, local, peer)
			sc.OnMessage = func(c *tcp.Connection, buf *buffer.Buffer, when time.Time) {
				c.Send([]byte(buf.RetrieveAllAsString()))
			}
			sc.OnWriteComplete = func(c *tcp.Connection) {
				select {
				case serverWriteComplete <- struct{}{}:
				default:
				}
			}
			sc.OnClose = func(c *tcp.Connection) { c.ConnectDestroyed() }
			sc.ConnectEstablished()
		}
		if err := a.Listen(); err != nil {
			t.Errorf("Listen: %v", err)
		}
	})
	time.Sleep(20 * time.Millisecond)

	var bound socket.Address
	l.RunInLoop(func() {
		var err error
		bound, err = a.LocalAddr()
		if err != nil {
			t.Errorf("LocalAddr: %v", err)
		}
	})
	time.Sleep(20 * time.Millisecond)

	cfd, err := socket.CreateNonblocking(unix.AF_INET)
	if err != nil {
		t.Fatalf("CreateNonblocking: %v", err)
	}
	connectAddr, err := socket.NewAddress("127.0.0.1", bound.Port())
	if err != nil {
		t.Fatalf("NewAddress: %v", err)
	}
	_ = socket.Connect(cfd, connectAddr)
	time.Sleep(20 * time.Millisecond)

	var cc *tcp.Connection
	echoed := make(chan string, 1)
	clientWriteComplete := make(chan struct{}, 1)
	clientClosed := make(chan struct{}, 1)

	l.RunInLoop(func() {
		local, _ := socket.LocalAddr(cfd)
		peer, _ := socket.PeerAddr(cfd)
		cc = tcp.NewConnection(l, "client-conn", cfd, local, peer)
		cc.OnMessage = func(c *tcp.Connection, buf *buffer.Buffer, when time.Time) {
			echoed <- buf.RetrieveAllAsString()
		}
		cc.OnWriteComplete = func(c *tcp.Connection) {
			select {
			case clientWriteComplete <- struct{}{}:
			default:
			}
		}
		cc.OnClose = func(c *tcp.Connection) {
			c.ConnectDestroyed()
			select {
			case clientClosed <- struct{}{}:
			default:
			}
		}
		cc.ConnectEstablished()
		cc.Send([]byte("hello\n"))
	})

	select {
	case msg := <-echoed:
		if msg != "hello\n" {
			t.Fatalf("expected echo of %q, got %q", "hello\n", msg)
		}
	case <-time.After(2 * time.Second):
		t.Fatal("client never received echoed message")
	}

	select {
	case <-clientWriteComplete:
	case <-time.After(2 * time.Second):
		t.Fatal("client write-complete never fired")
	}
	select {
	case <-serverWriteComplete:
	case <-time.After(2 * time.Second):
		t.Fatal("server write-complete never fired")
	}

	l.RunInLoop(func() { cc.Shutdown() })

	select {
	case <-clientClosed:
	case <-time.After(2 * time.Second):
		t.Fatal("client connection never reported close")
	}
}
