//go:build unix

package socket_test

import (
	"testing"

	"golang.org/x/sys/unix"

	"github.com/nabbar/reactor/socket"
)

func TestAddress_RoundTripsIPv4(t *testing.T) {
	addr, err := socket.NewAddress("127.0.0.1", 8080)
	if err != nil {
		t.Fatalf("NewAddress: %v", err)
	}
	if addr.Family() != unix.AF_INET {
		t.Fatalf("expected AF_INET, got %v", addr.Family())
	}
	if addr.Port() != 8080 {
		t.Fatalf("expected port 8080, got %d", addr.Port())
	}
	if addr.String() != "127.0.0.1" {
		t.Fatalf("expected 127.0.0.1, got %q", addr.String())
	}
}

func TestAddress_RoundTripsIPv6(t *testing.T) {
	addr, err := socket.NewAddress("::1", 9090)
	if err != nil {
		t.Fatalf("NewAddress: %v", err)
	}
	if addr.Family() != unix.AF_INET6 {
		t.Fatalf("expected AF_INET6, got %v", addr.Family())
	}
	if addr.String() != "::1" {
		t.Fatalf("expected ::1, got %q", addr.String())
	}
}

func TestCreateBindListenAcceptConnect_LoopbackRoundTrip(t *testing.T) {
	lfd, err := socket.CreateNonblocking(unix.AF_INET)
	if err != nil {
		t.Fatalf("CreateNonblocking: %v", err)
	}
	defer socket.Close(lfd)

	if err := socket.SetReuseAddr(lfd, true); err != nil {
		t.Fatalf("SetReuseAddr: %v", err)
	}

	addr, err := socket.NewAddress("127.0.0.1", 0)
	if err != nil {
		t.Fatalf("NewAddress: %v", err)
	}
	if err := socket.Bind(lfd, addr); err != nil {
		t.Fatalf("Bind: %v", err)
	}
	if err := socket.Listen(lfd); err != nil {
		t.Fatalf("Listen: %v", err)
	}

	bound, err := socket.LocalAddr(lfd)
	if err != nil {
		t.Fatalf("LocalAddr: %v", err)
	}

	cfd, err := socket.CreateNonblocking(unix.AF_INET)
	if err != nil {
		t.Fatalf("CreateNonblocking client: %v", err)
	}
	defer socket.Close(cfd)

	connectAddr, err := socket.NewAddress("127.0.0.1", bound.Port())
	if err != nil {
		t.Fatalf("NewAddress connect: %v", err)
	}
	err = socket.Connect(cfd, connectAddr)
	outcome := socket.ClassifyConnectError(err)
	if outcome != socket.OutcomeConnected && outcome != socket.OutcomeInProgress {
		t.Fatalf("expected connected or in-progress, got outcome %v (err=%v)", outcome, err)
	}

	var nfd int
	for i := 0; i < 1000; i++ {
		nfd, _, err = socket.Accept(lfd)
		if err == nil {
			break
		}
	}
	if err != nil {
		t.Fatalf("Accept: %v", err)
	}
	defer socket.Close(nfd)

	if err := socket.SetTCPNoDelay(nfd, true); err != nil {
		t.Fatalf("SetTCPNoDelay: %v", err)
	}
}
