// Package channel implements the reactor's event-channel abstraction: the
// binding of one file descriptor to its interest set, its readiness
// dispatcher, and a weak-tie guard against callback re-entry after the
// owner has gone away.
//
// Grounded on original_source/net/Channel.h / Channel.cpp: the interest
// bitmask values, the dispatch order in handleEventWithGuard, and the
// tie/weak-upgrade pattern are ported directly; only the weak-reference
// mechanism is translated from shared_ptr/weak_ptr to a Go closure that
// reports whether the tied owner is still alive.
package channel

import (
	"time"

	"github.com/nabbar/reactor/logger"
)

// Event is a bitmask of readiness/interest conditions, matching the
// classic poll(2) event bits so both poller implementations can share one
// representation.
type Event uint32

const (
	EventNone   Event = 0
	EventRead   Event = 0x001 | 0x002 | 0x2000 // POLLIN | POLLPRI | POLLRDHUP
	EventWrite  Event = 0x004                  // POLLOUT
	EventError  Event = 0x008                  // POLLERR
	EventHangUp Event = 0x010                  // POLLHUP
	EventInvalid Event = 0x020                 // POLLNVAL
)

// has reports whether mask contains every bit in bits.
func has(mask, bits Event) bool { return mask&bits == bits }

// hasAny reports whether mask contains at least one bit of bits.
func hasAny(mask, bits Event) bool { return mask&bits != 0 }

// ReadFunc is invoked on read readiness with the poll-return timestamp.
type ReadFunc func(when time.Time)

// Func is invoked on write-readiness, close and error conditions.
type Func func()

// Channel binds one fd to an event loop. It does not own the descriptor —
// the enclosing component (acceptor, connector, connection, timer queue,
// wake descriptor) does — and must be explicitly disabled and removed from
// its demultiplexer before being dropped.
type Channel struct {
	fd int

	events  Event // interest set
	revents Event // last-returned readiness set

	// index is opaque bookkeeping for whichever Poller owns this
	// channel: the poll(2) implementation stores a slot index, the
	// epoll implementation stores a New/Added/Deleted tag.
	index int

	update func(*Channel) // wired by the owner through New; see loop.New

	tie      func() (owner any, alive bool)
	tied     bool
	handling bool // re-entry guard: true while inside handleEvent

	onRead  ReadFunc
	onWrite Func
	onClose Func
	onError Func

	logGuard func(format string, args ...any)
}

// New returns a Channel bound to fd. update is called whenever the
// interest set changes, so the owning loop can push it through its
// Poller; it is how Channel avoids importing loop or poller directly.
func New(fd int, update func(*Channel)) *Channel {
	return &Channel{
		fd:     fd,
		index:  -1,
		update: update,
	}
}

// Fd returns the bound descriptor.
func (c *Channel) Fd() int { return c.fd }

// Events returns the current interest set.
func (c *Channel) Events() Event { return c.events }

// Index returns the demultiplexer's opaque bookkeeping value.
func (c *Channel) Index() int { return c.index }

// SetIndex sets the demultiplexer's opaque bookkeeping value.
func (c *Channel) SetIndex(i int) { c.index = i }

// SetRevents records the readiness set returned by the most recent poll;
// called by the Poller implementations before HandleEvent.
func (c *Channel) SetRevents(r Event) { c.revents = r }

// IsNoneEvent reports whether the interest set is empty, i.e. this
// channel should be Added→Deleted rather than removed outright.
func (c *Channel) IsNoneEvent() bool { return c.events == EventNone }

// IsWriting reports whether write interest is currently armed.
func (c *Channel) IsWriting() bool { return has(c.events, EventWrite) }

// IsReading reports whether read interest is currently armed.
func (c *Channel) IsReading() bool { return has(c.events, EventRead) }

func (c *Channel) EnableReading()  { c.events |= EventRead; c.update(c) }
func (c *Channel) EnableWriting()  { c.events |= EventWrite; c.update(c) }
func (c *Channel) DisableWriting() { c.events &^= EventWrite; c.update(c) }
func (c *Channel) DisableReading() { c.events &^= EventRead; c.update(c) }
func (c *Channel) DisableAll()     { c.events = EventNone; c.update(c) }

// SetReadFunc installs the read-readiness callback.
func (c *Channel) SetReadFunc(f ReadFunc) { c.onRead = f }

// SetWriteFunc installs the write-readiness callback.
func (c *Channel) SetWriteFunc(f Func) { c.onWrite = f }

// SetCloseFunc installs the hang-up callback.
func (c *Channel) SetCloseFunc(f Func) { c.onClose = f }

// SetErrorFunc installs the error callback.
func (c *Channel) SetErrorFunc(f Func) { c.onError = f }

// Tie records a weak reference to owner, consulted on every dispatch so a
// callback never runs after the owner has been dropped. check reports
// whether the owner (captured by the closure) is still alive; this is the
// Go stand-in for upgrading a weak_ptr.
func (c *Channel) Tie(check func() (owner any, alive bool)) {
	c.tie = check
	c.tied = true
}

// HandleEvent dispatches revents according to the fixed order from
// spec §4.3: hang-up-without-input closes first, invalid logs then falls
// through to the error path, error/invalid call the error callback,
// input/priority/rdhup-with-pending-data calls the read callback, and
// output calls the write callback. when is the timestamp the poller took
// immediately after waking.
func (c *Channel) HandleEvent(when time.Time) {
	if c.tied {
		if _, alive := c.tie(); !alive {
			return
		}
	}
	c.handleEventWithGuard(when)
}

func (c *Channel) handleEventWithGuard(when time.Time) {
	c.handling = true
	defer func() { c.handling = false }()

	r := c.revents

	if has(r, EventHangUp) && !hasAny(r, Event(0x001)) {
		if c.onClose != nil {
			c.onClose()
		}
		return
	}

	if r&EventInvalid != 0 {
		c.log("channel fd=%d has invalid event set %#x", c.fd, r)
	}

	if hasAny(r, EventError|EventInvalid) {
		if c.onError != nil {
			c.onError()
		}
	}

	if hasAny(r, EventRead) {
		if c.onRead != nil {
			c.onRead(when)
		}
	}

	if hasAny(r, EventWrite) {
		if c.onWrite != nil {
			c.onWrite()
		}
	}
}

// IsHandlingEvent reports whether HandleEvent is currently executing on
// this channel.
func (c *Channel) IsHandlingEvent() bool { return c.handling }

func (c *Channel) log(format string, args ...any) {
	if c.logGuard != nil {
		c.logGuard(format, args...)
		return
	}
	logger.Default.Warnf(format, args...)
}
