package tcp

import (
	"time"

	"github.com/nabbar/reactor/channel"
	"github.com/nabbar/reactor/logger"
	"github.com/nabbar/reactor/loop"
	"github.com/nabbar/reactor/socket"
)

// ConnectorState is the connector's state machine position (spec §4.8).
type ConnectorState int

const (
	Disconnected ConnectorState = iota
	Connecting
	ConnectorConnected
)

const (
	initialRetryDelay = 500 * time.Millisecond
	maxRetryDelay     = 30 * time.Second
)

// Connector drives a non-blocking connect attempt with doubling
// backoff, handing the finished descriptor to OnNewConnection on
// success. It does not own the resulting connection (spec §4.8).
type Connector struct {
	l    *loop.Loop
	addr socket.Address

	state      ConnectorState
	connecting bool // mirrors muduo's connect_: whether a retry should continue

	ch         *channel.Channel
	retryDelay time.Duration
	initDelay  time.Duration
	maxDelay   time.Duration

	OnNewConnection func(fd int)
}

// NewConnector creates a Connector targeting addr, using the default
// 500ms-to-30s doubling backoff. Call Start to begin the first attempt.
func NewConnector(l *loop.Loop, addr socket.Address) *Connector {
	return NewConnectorWithBackoff(l, addr, initialRetryDelay, maxRetryDelay)
}

// NewConnectorWithBackoff creates a Connector with an overridden backoff
// ladder, e.g. one decoded from config.Client.RetryBounds.
func NewConnectorWithBackoff(l *loop.Loop, addr socket.Address, initial, max time.Duration) *Connector {
	if initial <= 0 {
		initial = initialRetryDelay
	}
	if max <= 0 {
		max = maxRetryDelay
	}
	return &Connector{
		l:          l,
		addr:       addr,
		state:      Disconnected,
		retryDelay: initial,
		initDelay:  initial,
		maxDelay:   max,
	}
}

// Start begins connecting, routed through RunInLoop so it is safe to
// call from any goroutine. The retry delay starts again from its initial
// value.
func (c *Connector) Start() {
	c.connecting = true
	c.l.RunInLoop(func() {
		c.retryDelay = c.initDelay
		c.startInLoop()
	})
}

func (c *Connector) startInLoop() {
	c.l.AssertInLoopGoroutine()
	if c.connecting {
		c.connect()
	}
}

// Stop aborts an in-flight attempt if currently Connecting.
func (c *Connector) Stop() {
	c.connecting = false
	c.l.QueueInLoop(c.stopInLoop)
}

func (c *Connector) stopInLoop() {
	c.l.AssertInLoopGoroutine()
	if c.state == Connecting {
		c.state = Disconnected
		fd := c.removeAndResetChannel()
		_ = socket.Close(fd)
	}
}

func (c *Connector) connect() {
	fd, err := socket.CreateNonblocking(c.addr.Family())
	if err != nil {
		logger.Default.Errorf("tcp: connector create socket: %v", err)
		return
	}

	connErr := socket.Connect(fd, c.addr)
	switch socket.ClassifyConnectError(connErr) {
	case socket.OutcomeConnected, socket.OutcomeInProgress:
		c.connecting_(fd)
	case socket.OutcomeRetry:
		c.retry(fd)
	default:
		logger.Default.Errorf("tcp: connector connect: %v", connErr)
		_ = socket.Close(fd)
	}
}

// connecting_ (trailing underscore avoids colliding with the
// ConnectorState value Connecting) arms write interest on the new
// socket and waits for the kernel to confirm the attempt's outcome.
func (c *Connector) connecting_(fd int) {
	c.state = Connecting

	c.ch = channel.New(fd, func(ch *channel.Channel) {
		if err := c.l.UpdateChannel(ch); err != nil {
			logger.Default.Errorf("tcp: connector update channel: %v", err)
		}
	})
	c.ch.SetWriteFunc(c.handleWrite)
	c.ch.SetErrorFunc(c.handleError)
	c.ch.EnableWriting()
}

func (c *Connector) handleWrite() {
	if c.state != Connecting {
		return
	}

	fd := c.removeAndResetChannel()
	if err := socket.SocketError(fd); err != nil {
		logger.Default.Warnf("tcp: connector SO_ERROR: %v", err)
		c.retry(fd)
		return
	}
	if socket.IsSelfConnect(fd) {
		logger.Default.Warnf("tcp: connector self-connect detected")
		c.retry(fd)
		return
	}

	c.state = ConnectorConnected
	if c.connecting {
		if c.OnNewConnection != nil {
			c.OnNewConnection(fd)
		}
	} else {
		_ = socket.Close(fd)
	}
}

func (c *Connector) handleError() {
	if c.state != Connecting {
		return
	}
	fd := c.removeAndResetChannel()
	if err := socket.SocketError(fd); err != nil {
		logger.Default.Warnf("tcp: connector error: %v", err)
	}
	c.retry(fd)
}

// removeAndResetChannel deregisters the in-flight channel (sockets are
// one-shot: each attempt gets a fresh socket and channel, unlike the
// acceptor's long-lived listening socket) and returns its fd for the
// caller to close or retry with.
func (c *Connector) removeAndResetChannel() int {
	fd := c.ch.Fd()
	c.ch.DisableAll()
	if err := c.l.RemoveChannel(c.ch); err != nil {
		logger.Default.Warnf("tcp: connector remove channel: %v", err)
	}
	c.ch = nil
	return fd
}

func (c *Connector) retry(fd int) {
	_ = socket.Close(fd)
	c.state = Disconnected
	if !c.connecting {
		return
	}

	delay := c.retryDelay
	c.l.RunAfter(delay, c.startInLoop)
	c.retryDelay *= 2
	if c.retryDelay > c.maxDelay {
		c.retryDelay = c.maxDelay
	}
}

// Restart resets the backoff to its initial value and begins a fresh
// attempt sequence, used after a successful connection later drops.
func (c *Connector) Restart() {
	c.l.AssertInLoopGoroutine()
	c.state = Disconnected
	c.retryDelay = c.initDelay
	c.connecting = true
	c.startInLoop()
}

// State returns the connector's current state.
func (c *Connector) State() ConnectorState { return c.state }
