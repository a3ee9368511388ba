package config_test

import (
	"testing"
	"time"

	"github.com/nabbar/reactor/config"
	"github.com/nabbar/reactor/network/protocol"
	"github.com/nabbar/reactor/rerrors"
)

func TestServer_ValidateAcceptsGoodConfig(t *testing.T) {
	s := config.Server{Network: protocol.NetworkTCP, Address: "0.0.0.0:8080", PoolSize: 4}
	if err := s.Validate(); err != nil {
		t.Fatalf("Validate: %v", err)
	}
}

func TestServer_ValidateRejectsBadProtocol(t *testing.T) {
	s := config.Server{Network: protocol.NetworkEmpty, Address: ":8080"}
	err := s.Validate()
	if err == nil {
		t.Fatal("expected error for invalid protocol")
	}
	if !rerrors.HasCode(err, rerrors.Configuration) {
		t.Fatalf("expected Configuration code, got %v", err)
	}
}

func TestServer_ValidateRejectsBadAddress(t *testing.T) {
	s := config.Server{Network: protocol.NetworkTCP, Address: "no-port-here"}
	if err := s.Validate(); err == nil {
		t.Fatal("expected error for address without port")
	}
}

func TestServer_ValidateRejectsNegativePoolSize(t *testing.T) {
	s := config.Server{Network: protocol.NetworkTCP, Address: ":8080", PoolSize: -1}
	if err := s.Validate(); err == nil {
		t.Fatal("expected error for negative pool size")
	}
}

func TestClient_ValidateAcceptsGoodConfig(t *testing.T) {
	c := config.Client{Network: protocol.NetworkTCP, Address: "localhost:9000"}
	if err := c.Validate(); err != nil {
		t.Fatalf("Validate: %v", err)
	}
}

func TestClient_ValidateRejectsInitialExceedingMax(t *testing.T) {
	c := config.Client{
		Network:           protocol.NetworkTCP,
		Address:           "localhost:9000",
		InitialRetryDelay: time.Minute,
		MaxRetryDelay:     time.Second,
	}
	if err := c.Validate(); err == nil {
		t.Fatal("expected error when initial retry delay exceeds max")
	}
}

func TestClient_RetryBoundsFallsBackToDefaults(t *testing.T) {
	c := config.Client{Network: protocol.NetworkTCP, Address: "localhost:9000"}
	initial, max := c.RetryBounds()
	if initial != 500*time.Millisecond || max != 30*time.Second {
		t.Fatalf("unexpected defaults: initial=%v max=%v", initial, max)
	}
}

func TestClient_RetryBoundsHonorsOverrides(t *testing.T) {
	c := config.Client{
		Network:           protocol.NetworkTCP,
		Address:           "localhost:9000",
		InitialRetryDelay: 100 * time.Millisecond,
		MaxRetryDelay:     5 * time.Second,
	}
	initial, max := c.RetryBounds()
	if initial != 100*time.Millisecond || max != 5*time.Second {
		t.Fatalf("unexpected overrides: initial=%v max=%v", initial, max)
	}
}
