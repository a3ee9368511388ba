//go:build unix

package tcp_test

import (
	"testing"
	"time"

	"github.com/nabbar/reactor/socket"
	"github.com/nabbar/reactor/tcp"
)

// TestConnector_RetriesRefusedConnectWithDoublingBackoff exercises the
// start of spec §8 S5: a connector pointed at a port nothing is
// listening on sees its connect refused, hands off no descriptor, and
// sits Disconnected while its first retry (500ms) is pending; Stop then
// aborts that retry. No listener is brought up, and the delays of later
// retries are not observed here.
func TestConnector_RetriesRefusedConnectWithDoublingBackoff(t *testing.T) {
	l, done := startTestLoop(t)
	defer func() {
		l.Quit()
		<-done
	}()

	addr, err := socket.NewAddress("127.0.0.1", 0)
	if err != nil {
		t.Fatalf("NewAddress: %v", err)
	}

	// Reserve a port, then close it immediately so nothing is listening
	// there: connect attempts against it reliably return ECONNREFUSED on
	// loopback.
	probeFD, err := socket.CreateNonblocking(addr.Family())
	if err != nil {
		t.Fatalf("CreateNonblocking: %v", err)
	}
	if err := socket.Bind(probeFD, addr); err != nil {
		t.Fatalf("Bind: %v", err)
	}
	bound, err := socket.LocalAddr(probeFD)
	if err != nil {
		t.Fatalf("LocalAddr: %v", err)
	}
	_ = socket.Close(probeFD)

	refusedAddr, err := socket.NewAddress("127.0.0.1", bound.Port())
	if err != nil {
		t.Fatalf("NewAddress: %v", err)
	}

	var c *tcp.Connector
	connected := make(chan int, 1)

	l.RunInLoop(func() {
		c = tcp.NewConnector(l, refusedAddr)
		c.OnNewConnection = func(fd int) { connected <- fd }
		c.Start()
	})

	select {
	case fd := <-connected:
		t.Fatalf("connector unexpectedly connected to a refused address, fd=%d", fd)
	case <-time.After(300 * time.Millisecond):
		// expected: still retrying against a refused port well within
		// the first 500ms backoff window.
	}

	l.RunInLoop(func() {
		if c.State() != tcp.Disconnected {
			t.Errorf("expected Disconnected between retries, got %v", c.State())
		}
	})

	c.Stop()
}
