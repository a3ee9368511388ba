package tcp

import (
	"time"

	"github.com/nabbar/reactor/atomic"
	"github.com/nabbar/reactor/buffer"
	"github.com/nabbar/reactor/channel"
	"github.com/nabbar/reactor/logger"
	"github.com/nabbar/reactor/loop"
	"github.com/nabbar/reactor/socket"
)

// ConnectionState is the connection's position in the state machine
// described by spec §4.9:
//
//	Connecting --connectEstablished--> Connected
//	Connected  --shutdown--> Disconnecting
//	Connected  --peer close / error --> (close flow)
//	Disconnecting --peer/self close--> Disconnected
type ConnectionState int

const (
	ConnStateConnecting ConnectionState = iota
	ConnStateConnected
	ConnStateDisconnecting
	ConnStateDisconnected
)

// defaultHighWaterMark is the output-buffer threshold (spec §4.9: "64
// MiB default") above which HighWaterCallback fires once per upward
// crossing.
const defaultHighWaterMark = 64 * 1024 * 1024

// ConnectionCallback is invoked on connection-established and on every
// close-flow transition (reporting the new state via conn.State()).
type ConnectionCallback func(conn *Connection)

// MessageCallback receives newly read bytes. buf is the connection's
// own input buffer; the callback is expected to Retrieve what it
// consumes.
type MessageCallback func(conn *Connection, buf *buffer.Buffer, when time.Time)

// HighWaterCallback fires once per upward crossing of the high-water
// mark, reporting the buffered byte count at the time of the crossing.
type HighWaterCallback func(conn *Connection, bufferedBytes int)

// Connection is the per-socket state machine: read/write readiness
// handling, the output-buffer spool, half-close, and forced close with
// a weak-tie re-entry guard so a callback never fires after the
// connection has already been torn down.
//
// Grounded on original_source/net/TcpConnection.h / TcpConnection.cpp:
// sendInLoop's inline-write-then-spool algorithm, the high-water-mark
// crossing check, handleWrite's drain-then-maybe-shutdown sequence, and
// the close flow (disableAll, tie-guarded user callback, then the
// server's removal callback) are all ported directly.
type Connection struct {
	l *loop.Loop

	fd   int
	ch   *channel.Channel
	name string

	local, peer socket.Address

	// state is read off the loop goroutine by Send/Shutdown/ForceClose,
	// so it is backed by an atomic value rather than a plain field.
	state atomic.Value[ConnectionState]

	input  *buffer.Buffer
	output *buffer.Buffer

	highWaterMark int

	OnConnection    ConnectionCallback
	OnMessage       MessageCallback
	OnWriteComplete ConnectionCallback
	OnHighWater     HighWaterCallback

	// OnClose is installed by the owning server/client registry, not by
	// the application; it removes the connection from the registry and
	// calls ConnectDestroyed directly, within the same close flow rather
	// than through QueueInLoop (spec §4.9 close-flow step 4).
	OnClose ConnectionCallback

	alive bool // backs the Tie weak-owner check
}

// NewConnection wraps an already-accepted or already-connected
// descriptor. The caller must call ConnectEstablished once, on the
// loop goroutine, to move it into the Connected state.
func NewConnection(l *loop.Loop, name string, fd int, local, peer socket.Address) *Connection {
	c := &Connection{
		l:             l,
		fd:            fd,
		name:          name,
		local:         local,
		peer:          peer,
		input:         buffer.New(),
		output:        buffer.New(),
		highWaterMark: defaultHighWaterMark,
		alive:         true,
	}
	c.state = atomic.NewValueDefault(ConnStateConnecting, ConnStateConnecting)

	c.ch = channel.New(fd, func(ch *channel.Channel) {
		if err := l.UpdateChannel(ch); err != nil {
			logger.Default.Errorf("tcp: connection update channel: %v", err)
		}
	})
	c.ch.SetReadFunc(c.handleRead)
	c.ch.SetWriteFunc(c.handleWrite)
	c.ch.SetCloseFunc(c.handleClose)
	c.ch.SetErrorFunc(c.handleError)

	_ = socket.SetKeepAlive(fd, true)

	return c
}

// Name returns the connection's registry-assigned name.
func (c *Connection) Name() string { return c.name }

// Fd returns the underlying descriptor.
func (c *Connection) Fd() int { return c.fd }

// State returns the current state.
func (c *Connection) State() ConnectionState { return c.state.Load() }

// LocalAddr and PeerAddr return the endpoints captured at construction.
func (c *Connection) LocalAddr() socket.Address { return c.local }
func (c *Connection) PeerAddr() socket.Address   { return c.peer }

// SetHighWaterMark overrides the default 64 MiB output-buffer threshold
// (spec §4.9). Must be set before the first Send.
func (c *Connection) SetHighWaterMark(n int) { c.highWaterMark = n }

// ConnectEstablished transitions Connecting->Connected, ties the
// channel to this connection's liveness, enables reading, and invokes
// the connection callback. Must run on the loop goroutine, once, after
// accept or connect (spec §4.9).
func (c *Connection) ConnectEstablished() {
	c.l.AssertInLoopGoroutine()
	c.state.Store(ConnStateConnected)
	c.ch.Tie(func() (owner any, alive bool) { return c, c.alive })
	c.ch.EnableReading()
	if c.OnConnection != nil {
		c.OnConnection(c)
	}
}

// ConnectDestroyed deregisters the channel from the demultiplexer and
// closes the underlying descriptor, completing the close flow's final
// step. Muduo leaves the close to the TcpConnection destructor (a
// shared_ptr ref-count reaching zero); Go has no destructor to lean on,
// so the close happens here explicitly instead.
func (c *Connection) ConnectDestroyed() {
	c.l.AssertInLoopGoroutine()
	if c.state.Load() == ConnStateConnected {
		c.state.Store(ConnStateDisconnected)
		c.ch.DisableAll()
		if c.OnConnection != nil {
			c.OnConnection(c)
		}
	}
	c.alive = false
	if err := c.l.RemoveChannel(c.ch); err != nil {
		logger.Default.Warnf("tcp: connection remove channel: %v", err)
	}
	if err := socket.Close(c.fd); err != nil {
		logger.Default.Warnf("tcp: connection %s close: %v", c.name, err)
	}
}

// Send queues data for delivery (spec §4.9 send path). Safe to call
// from any goroutine; off-goroutine calls copy the payload and route
// through RunInLoop.
func (c *Connection) Send(data []byte) {
	if c.state.Load() != ConnStateConnected {
		return
	}
	if c.l.InLoopGoroutine() {
		c.sendInLoop(data)
		return
	}
	cp := append([]byte(nil), data...)
	c.l.RunInLoop(func() { c.sendInLoop(cp) })
}

func (c *Connection) sendInLoop(data []byte) {
	c.l.AssertInLoopGoroutine()

	if c.state.Load() == ConnStateDisconnected {
		logger.Default.Warnf("tcp: connection %s disconnected, dropping send", c.name)
		return
	}

	var (
		written  int
		faultErr bool
	)

	if !c.ch.IsWriting() && c.output.ReadableBytes() == 0 {
		n, err := socket.Write(c.fd, data)
		if err != nil {
			n = 0
			if !isWouldBlock(err) {
				logger.Default.Errorf("tcp: connection %s write: %v", c.name, err)
				if isBrokenPipe(err) {
					faultErr = true
				}
			}
		} else {
			written = n
			if n == len(data) && c.OnWriteComplete != nil {
				c.l.QueueInLoop(func() { c.OnWriteComplete(c) })
			}
		}
	}

	remaining := data[written:]
	if !faultErr && len(remaining) > 0 {
		oldLen := c.output.ReadableBytes()
		newLen := oldLen + len(remaining)
		if newLen >= c.highWaterMark && oldLen < c.highWaterMark && c.OnHighWater != nil {
			c.l.QueueInLoop(func() { c.OnHighWater(c, newLen) })
		}
		c.output.Append(remaining)
		if !c.ch.IsWriting() {
			c.ch.EnableWriting()
		}
	}
}

func (c *Connection) handleRead(when time.Time) {
	c.l.AssertInLoopGoroutine()

	n, err := c.input.ReadFrom(c.fd)
	switch {
	case n > 0:
		if c.OnMessage != nil {
			c.OnMessage(c, c.input, when)
		}
	case n == 0:
		c.handleClose()
	default:
		logger.Default.Warnf("tcp: connection %s read: %v", c.name, err)
		c.handleError()
	}
}

func (c *Connection) handleWrite() {
	c.l.AssertInLoopGoroutine()
	if !c.ch.IsWriting() {
		return
	}

	n, err := socket.Write(c.fd, c.output.Peek())
	if err != nil {
		logger.Default.Errorf("tcp: connection %s write: %v", c.name, err)
		return
	}

	c.output.Retrieve(n)
	if c.output.ReadableBytes() == 0 {
		c.ch.DisableWriting()
		if c.OnWriteComplete != nil {
			c.l.QueueInLoop(func() { c.OnWriteComplete(c) })
		}
		if c.state.Load() == ConnStateDisconnecting {
			c.shutdownInLoop()
		}
	}
}

func (c *Connection) handleClose() {
	c.l.AssertInLoopGoroutine()
	c.state.Store(ConnStateDisconnected)
	c.ch.DisableAll()

	if c.OnConnection != nil {
		c.OnConnection(c)
	}
	if c.OnClose != nil {
		c.OnClose(c)
	}
}

func (c *Connection) handleError() {
	if err := socket.SocketError(c.fd); err != nil {
		logger.Default.Errorf("tcp: connection %s error: SO_ERROR=%v", c.name, err)
	}
}

// Shutdown half-closes the connection: Connected->Disconnecting, then
// shuts down the write side immediately if no write is pending, or
// defers until the output buffer drains (spec §4.9).
func (c *Connection) Shutdown() {
	if c.state.Load() != ConnStateConnected {
		return
	}
	c.state.Store(ConnStateDisconnecting)
	c.l.RunInLoop(c.shutdownInLoop)
}

func (c *Connection) shutdownInLoop() {
	c.l.AssertInLoopGoroutine()
	if !c.ch.IsWriting() {
		if err := socket.ShutdownWrite(c.fd); err != nil {
			logger.Default.Warnf("tcp: connection %s shutdown write: %v", c.name, err)
		}
	}
}

// ForceClose runs the close flow immediately as if the peer had sent
// EOF, scheduled via QueueInLoop so it is safe to call from any
// goroutine (spec §4.9's "forced close").
func (c *Connection) ForceClose() {
	if c.state.Load() == ConnStateConnected || c.state.Load() == ConnStateDisconnecting {
		c.state.Store(ConnStateDisconnecting)
		c.l.QueueInLoop(c.forceCloseInLoop)
	}
}

// ForceCloseWithDelay schedules ForceClose after delay, guarded by the
// same weak-tie liveness check the channel uses, so a connection that
// is torn down for another reason before the timer fires is not
// revived.
func (c *Connection) ForceCloseWithDelay(delay time.Duration) {
	if c.state.Load() != ConnStateConnected && c.state.Load() != ConnStateDisconnecting {
		return
	}
	c.state.Store(ConnStateDisconnecting)
	c.l.RunAfter(delay, func() {
		if c.alive {
			c.ForceClose()
		}
	})
}

func (c *Connection) forceCloseInLoop() {
	c.l.AssertInLoopGoroutine()
	if c.state.Load() == ConnStateConnected || c.state.Load() == ConnStateDisconnecting {
		c.handleClose()
	}
}

