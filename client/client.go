// Package client implements TCPClient, the reactor's external TCP client
// interface (spec §6): "configured with a remote address and the same
// callback surface [as the server]; exposes connect, disconnect, stop, and
// a retry/no-retry toggle."
//
// Grounded on nabbar-golib/socket/client/tcp's test-only API shape
// (New/Connect(ctx)/Close/IsConnected, from example_test.go) — that
// package shipped no implementation file in this pack, so only its
// surface is carried over; the connect/backoff machinery underneath is
// tcp.Connector, this module's own port of original_source/net/Connector.
package client

import (
	"fmt"
	"sync"

	"github.com/nabbar/reactor/config"
	"github.com/nabbar/reactor/loop"
	"github.com/nabbar/reactor/rerrors"
	"github.com/nabbar/reactor/socket"
	"github.com/nabbar/reactor/tcp"
)

// TCPClient drives one outbound connection attempt at a time through a
// tcp.Connector, wiring the resulting tcp.Connection to the application's
// callback surface (spec §6's "same callback surface" as TCPServer).
type TCPClient struct {
	l    *loop.Loop
	addr socket.Address

	connector *tcp.Connector

	mu          sync.Mutex
	conn        *tcp.Connection
	retryOnDrop bool
	nextID      uint64

	// OnConnection, OnMessage, OnWriteComplete and OnHighWater mirror
	// TCPServer's fixed callback fields (spec §6).
	OnConnection    tcp.ConnectionCallback
	OnMessage       tcp.MessageCallback
	OnWriteComplete tcp.ConnectionCallback
	OnHighWater     tcp.HighWaterCallback
}

// New validates cfg and builds a Connector targeting its address, using
// cfg.RetryBounds() for the backoff ladder. l is the loop the connector
// and every resulting Connection run on.
func New(l *loop.Loop, cfg config.Client) (*TCPClient, error) {
	if err := cfg.Validate(); err != nil {
		return nil, err
	}

	addr, err := socket.ParseAddress(cfg.Address)
	if err != nil {
		return nil, rerrors.New(rerrors.Configuration, "client: resolve address "+cfg.Address, err)
	}

	initial, max := cfg.RetryBounds()
	c := &TCPClient{
		l:    l,
		addr: addr,
	}
	c.connector = tcp.NewConnectorWithBackoff(l, addr, initial, max)
	c.connector.OnNewConnection = c.handleConnected
	return c, nil
}

// SetRetry controls whether the client automatically restarts the
// connector's backoff sequence when an established connection drops
// (spec §6's "retry/no-retry toggle"). The connector's own within-attempt
// retry (refused/unreachable before the first success) always runs
// regardless of this setting; SetRetry governs only reconnection after a
// connection that was once up goes away.
func (c *TCPClient) SetRetry(on bool) {
	c.mu.Lock()
	c.retryOnDrop = on
	c.mu.Unlock()
}

// Connect starts the connector, safe to call from any goroutine.
func (c *TCPClient) Connect() {
	c.connector.Start()
}

// handleConnected is the connector's OnNewConnection callback, invoked on
// the loop goroutine once a descriptor is confirmed connected.
func (c *TCPClient) handleConnected(fd int) {
	local, _ := socket.LocalAddr(fd)
	peer, _ := socket.PeerAddr(fd)

	c.mu.Lock()
	c.nextID++
	name := fmt.Sprintf("%s-client-%d", c.addr.String(), c.nextID)
	c.mu.Unlock()

	conn := tcp.NewConnection(c.l, name, fd, local, peer)
	conn.OnConnection = c.OnConnection
	conn.OnMessage = c.OnMessage
	conn.OnWriteComplete = c.OnWriteComplete
	conn.OnHighWater = c.OnHighWater
	conn.OnClose = c.handleConnectionClosed

	c.mu.Lock()
	c.conn = conn
	c.mu.Unlock()

	conn.ConnectEstablished()
}

// handleConnectionClosed is installed as the live Connection's OnClose;
// it tears the connection down and, if SetRetry(true) was called, begins
// a fresh connect sequence.
func (c *TCPClient) handleConnectionClosed(conn *tcp.Connection) {
	c.mu.Lock()
	if c.conn == conn {
		c.conn = nil
	}
	retry := c.retryOnDrop
	c.mu.Unlock()

	conn.ConnectDestroyed()

	if retry {
		c.connector.Restart()
	}
}

// Connection returns the currently established connection, or nil if not
// connected.
func (c *TCPClient) Connection() *tcp.Connection {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.conn
}

// IsConnected reports whether a connection is currently established.
func (c *TCPClient) IsConnected() bool {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.conn != nil && c.conn.State() == tcp.ConnStateConnected
}

// Send writes data on the active connection; a no-op if not connected.
func (c *TCPClient) Send(data []byte) {
	if conn := c.Connection(); conn != nil {
		conn.Send(data)
	}
}

// Disconnect half-closes the active connection (spec §6's "disconnect"),
// leaving the connector's retry toggle untouched.
func (c *TCPClient) Disconnect() {
	if conn := c.Connection(); conn != nil {
		conn.Shutdown()
	}
}

// Stop aborts any in-flight or pending connect attempt (spec §6's "stop",
// spec §8 S5's "stop aborts the pending retry") and force-closes the
// active connection without triggering a retry-on-drop reconnect.
func (c *TCPClient) Stop() {
	c.SetRetry(false)
	c.connector.Stop()
	if conn := c.Connection(); conn != nil {
		conn.ForceClose()
	}
}
