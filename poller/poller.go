// Package poller implements the reactor's level-triggered readiness
// demultiplexer: two implementations, one over epoll (the scalable
// default) and one over classic poll(2), selected the way spec §6 names —
// overridable by the USE_POLL environment variable.
//
// Grounded on original_source/net/EPollPoller.cpp / PollPoller.cpp: the
// registry-by-fd, the New/Added/Deleted channel tag, and the poll-then-
// fill-active-list contract are ported from there; the Go rendering swaps
// epoll_ctl/epoll_wait and poll(2) for golang.org/x/sys/unix calls.
package poller

import (
	"os"
	"time"

	"github.com/nabbar/reactor/channel"
)

// Poller is the reactor's demultiplexer abstraction. All operations
// below run on the owning loop's goroutine; callers are responsible for
// that affinity (see loop.Loop.AssertInLoopGoroutine).
type Poller interface {
	// Poll blocks up to timeout, then appends every channel with
	// non-empty readiness into active (already tagged via SetRevents)
	// and returns the timestamp taken immediately after wake-up.
	Poll(timeout time.Duration, active *[]*channel.Channel) (time.Time, error)

	// UpdateChannel registers a new channel or applies an interest-set
	// change for one already registered.
	UpdateChannel(ch *channel.Channel) error

	// RemoveChannel fully deregisters ch. Precondition: ch's interest
	// set is empty.
	RemoveChannel(ch *channel.Channel) error

	// HasChannel reports whether ch is currently registered.
	HasChannel(ch *channel.Channel) bool

	// Close releases the poller's own kernel resources (the epoll
	// descriptor; a no-op for the poll(2) implementation).
	Close() error
}

// New returns the default Poller for this platform: epoll unless the
// USE_POLL environment variable is set to a non-empty value, matching the
// override named in spec §6.
func New() (Poller, error) {
	if os.Getenv("USE_POLL") != "" {
		return newPollPoller(), nil
	}
	return newEPollPoller()
}
