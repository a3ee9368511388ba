//go:build unix

package tcp_test

import (
	"testing"
	"time"

	"golang.org/x/sys/unix"

	"github.com/nabbar/reactor/buffer"
	"github.com/nabbar/reactor/loop"
	"github.com/nabbar/reactor/socket"
	"github.com/nabbar/reactor/tcp"
)

func startTestLoop(t *testing.T) (*loop.Loop, <-chan struct{}) {
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
	return l, done
}

func socketpair(t *testing.T) (int, int) {
	t.Helper()
	fds, err := unix.Socketpair(unix.AF_UNIX, unix.SOCK_STREAM|unix.SOCK_NONBLOCK, 0)
	if err != nil {
		t.Fatalf("socketpair: %v", err)
	}
	return fds[0], fds[1]
}

func TestConnection_HighWaterFiresOnceThenWriteCompleteAfterDrain(t *testing.T) {
	l, done := startTestLoop(t)
	defer func() {
		l.Quit()
		<-done
	}()

	a, b := socketpair(t)
	defer unix.Close(b)

	var conn *tcp.Connection
	var highWaterHits int
	var writeCompleteHits int
	highWater := make(chan struct{}, 1)
	writeComplete := make(chan struct{}, 1)

	l.RunInLoop(func() {
		conn = tcp.NewConnection(l, "t1", a, socket.Address{}, socket.Address{})
		conn.SetHighWaterMark(16 * 1024)
		conn.OnHighWater = func(c *tcp.Connection, n int) {
			highWaterHits++
			select {
			case highWater <- struct{}{}:
			default:
			}
		}
		conn.OnWriteComplete = func(c *tcp.Connection) {
			writeCompleteHits++
			select {
			case writeComplete <- struct{}{}:
			default:
			}
		}
		conn.ConnectEstablished()
		conn.Send(make([]byte, 64*1024))
	})

	select {
	case <-highWater:
	case <-time.After(2 * time.Second):
		t.Fatal("high-water callback never fired")
	}

	// drain the peer so the connection's output buffer empties and
	// write-complete can fire.
	drainDone := make(chan struct{})
	go func() {
		buf := make([]byte, 4096)
		for {
			_, err := unix.Read(b, buf)
			if err != nil {
				time.Sleep(time.Millisecond)
			}
			select {
			case <-drainDone:
				return
			default:
			}
		}
	}()

	select {
	case <-writeComplete:
	case <-time.After(2 * time.Second):
		t.Fatal("write-complete callback never fired")
	}
	close(drainDone)

	if highWaterHits != 1 {
		t.Fatalf("expected exactly one high-water hit, got %d", highWaterHits)
	}
}

func TestConnection_ReadDeliversMessageCallback(t *testing.T) {
	l, done := startTestLoop(t)
	defer func() {
		l.Quit()
		<-done
	}()

	a, b := socketpair(t)
	defer unix.Close(b)

	received := make(chan string, 1)

	l.RunInLoop(func() {
		conn := tcp.NewConnection(l, "t2", a, socket.Address{}, socket.Address{})
		conn.OnMessage = func(c *tcp.Connection, buf *buffer.Buffer, when time.Time) {
			received <- buf.RetrieveAllAsString()
		}
		conn.ConnectEstablished()
	})

	if _, err := unix.Write(b, []byte("hello\n")); err != nil {
		t.Fatalf("write: %v", err)
	}

	select {
	case msg := <-received:
		if msg != "hello\n" {
			t.Fatalf("expected %q, got %q", "hello\n", msg)
		}
	case <-time.After(2 * time.Second):
		t.Fatal("message callback never fired")
	}
}
