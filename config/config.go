// Package config holds the decode-friendly configuration structs for the
// TCP server and client: plain data with mapstructure/yaml tags so they can
// be populated by spf13/viper or a YAML file, and a Validate method each
// that turns a malformed value into a rerrors.Error before anything tries
// to use it.
//
// Grounded on nabbar-golib/socket/config's Client/Server shape
// (Network/Address fields, a Validate() error method) — that package
// shipped only tests in this pack (see example_test.go), so the field
// names and validation rules below are inferred from the examples there,
// trimmed to the TCP-only scope this module covers (spec.md's Non-goals
// exclude UDP and Unix sockets).
package config

import (
	"net"
	"time"

	"github.com/nabbar/reactor/network/protocol"
	"github.com/nabbar/reactor/rerrors"
)

// Server configures a TCP server: which network variant and address to
// listen on, and how many subordinate loops (spec §4.10) to spread
// accepted connections across.
type Server struct {
	Network protocol.NetworkProtocol `mapstructure:"network" yaml:"network"`
	Address string                   `mapstructure:"address" yaml:"address"`

	// PoolSize is the number of additional loops beyond the base loop
	// that accepts connections. 0 means every connection runs on the
	// base loop (spec §4.10).
	//
	// The mapstructure tag has no separator because viper lowercases
	// and flattens map keys before decoding; "poolSize" in a YAML file
	// arrives as the map key "poolsize".
	PoolSize int `mapstructure:"poolsize" yaml:"poolSize"`
}

// Validate reports whether Network is a recognized TCP variant and Address
// parses as a host:port pair, returning a rerrors.Error with Code
// Configuration on failure.
func (s Server) Validate() error {
	if !s.Network.Valid() {
		return rerrors.New(rerrors.Configuration, "config: server: invalid network protocol")
	}
	if _, _, err := net.SplitHostPort(s.Address); err != nil {
		return rerrors.New(rerrors.Configuration, "config: server: invalid address "+s.Address, err)
	}
	if s.PoolSize < 0 {
		return rerrors.New(rerrors.Configuration, "config: server: pool size must not be negative")
	}
	return nil
}

// defaultInitialRetryDelay and defaultMaxRetryDelay mirror tcp.Connector's
// own unconfigured defaults, so a zero-value Client validates to the same
// behavior NewConnector already falls back to.
const (
	defaultInitialRetryDelay = 500 * time.Millisecond
	defaultMaxRetryDelay     = 30 * time.Second
)

// Client configures a TCP client's target address and the connector's
// retry backoff ladder (spec §4.8).
type Client struct {
	Network protocol.NetworkProtocol `mapstructure:"network" yaml:"network"`
	Address string                   `mapstructure:"address" yaml:"address"`

	// InitialRetryDelay and MaxRetryDelay bound the connector's doubling
	// backoff. Zero means "use the connector's built-in default."
	InitialRetryDelay time.Duration `mapstructure:"initialretrydelay" yaml:"initialRetryDelay"`
	MaxRetryDelay     time.Duration `mapstructure:"maxretrydelay" yaml:"maxRetryDelay"`
}

// Validate reports whether Network is a recognized TCP variant, Address
// parses as a host:port pair, and the retry bounds (if set) are sane.
func (c Client) Validate() error {
	if !c.Network.Valid() {
		return rerrors.New(rerrors.Configuration, "config: client: invalid network protocol")
	}
	if _, _, err := net.SplitHostPort(c.Address); err != nil {
		return rerrors.New(rerrors.Configuration, "config: client: invalid address "+c.Address, err)
	}
	if c.InitialRetryDelay < 0 || c.MaxRetryDelay < 0 {
		return rerrors.New(rerrors.Configuration, "config: client: retry delays must not be negative")
	}
	if c.InitialRetryDelay > 0 && c.MaxRetryDelay > 0 && c.InitialRetryDelay > c.MaxRetryDelay {
		return rerrors.New(rerrors.Configuration, "config: client: initial retry delay exceeds max retry delay")
	}
	return nil
}

// RetryBounds returns the configured retry delays, substituting the
// connector's own defaults for any zero value.
func (c Client) RetryBounds() (initial, max time.Duration) {
	initial, max = c.InitialRetryDelay, c.MaxRetryDelay
	if initial <= 0 {
		initial = defaultInitialRetryDelay
	}
	if max <= 0 {
		max = defaultMaxRetryDelay
	}
	return initial, max
}
