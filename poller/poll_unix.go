//go:build unix

package poller

import (
	"fmt"
	"time"

	"golang.org/x/sys/unix"

	"github.com/nabbar/reactor/channel"
)

// pollPoller is the classic poll(2) demultiplexer, selected via USE_POLL.
// Unlike epoll it re-scans every registered fd on every call, and a
// channel's Index() holds its position in the pollfd slice (or -1 if not
// yet registered) rather than a New/Added/Deleted tag.
type pollPoller struct {
	pollfds  []unix.PollFd
	channels map[int]*channel.Channel
}

func newPollPoller() Poller {
	return &pollPoller{
		channels: make(map[int]*channel.Channel),
	}
}

func (p *pollPoller) Poll(timeout time.Duration, active *[]*channel.Channel) (time.Time, error) {
	ms := int(timeout / time.Millisecond)
	n, err := unix.Poll(p.pollfds, ms)
	now := time.Now()

	if err != nil {
		if err == unix.EINTR {
			return now, nil
		}
		return now, fmt.Errorf("poller: poll: %w", err)
	}

	if n <= 0 {
		return now, nil
	}

	for _, pfd := range p.pollfds {
		if pfd.Revents == 0 {
			continue
		}
		if ch, ok := p.channels[int(pfd.Fd)]; ok {
			ch.SetRevents(channel.Event(pfd.Revents))
			*active = append(*active, ch)
		}
	}

	return now, nil
}

func (p *pollPoller) UpdateChannel(ch *channel.Channel) error {
	if ch.Index() < 0 {
		pfd := unix.PollFd{Fd: int32(ch.Fd()), Events: int16(ch.Events())}
		ch.SetIndex(len(p.pollfds))
		p.pollfds = append(p.pollfds, pfd)
		p.channels[ch.Fd()] = ch
		return nil
	}

	idx := ch.Index()
	if ch.IsNoneEvent() {
		// keep the slot but clear its interest set; poll(2) still reports
		// POLLERR/POLLHUP/POLLNVAL for the fd until RemoveChannel drops it.
		p.pollfds[idx].Events = 0
		p.pollfds[idx].Revents = 0
		return nil
	}

	p.pollfds[idx].Fd = int32(ch.Fd())
	p.pollfds[idx].Events = int16(ch.Events())
	return nil
}

func (p *pollPoller) RemoveChannel(ch *channel.Channel) error {
	idx := ch.Index()
	if idx < 0 || idx >= len(p.pollfds) {
		return nil
	}

	delete(p.channels, ch.Fd())

	last := len(p.pollfds) - 1
	if idx != last {
		p.pollfds[idx] = p.pollfds[last]
		if moved, ok := p.channels[int(p.pollfds[idx].Fd)]; ok {
			moved.SetIndex(idx)
		}
	}
	p.pollfds = p.pollfds[:last]
	ch.SetIndex(-1)
	return nil
}

func (p *pollPoller) HasChannel(ch *channel.Channel) bool {
	existing, ok := p.channels[ch.Fd()]
	return ok && existing == ch
}

func (p *pollPoller) Close() error { return nil }
