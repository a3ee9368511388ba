//go:build linux

package poller

import (
	"fmt"
	"time"

	"golang.org/x/sys/unix"

	"github.com/nabbar/reactor/channel"
	"github.com/nabbar/reactor/logger"
)

const (
	tagNew = iota - 1 // -1: never seen by this poller
	tagAdded
	tagDeleted
)

const initialEventListSize = 16

type epollPoller struct {
	epfd     int
	channels map[int]*channel.Channel
	events   []unix.EpollEvent
}

func newEPollPoller() (Poller, error) {
	fd, err := unix.EpollCreate1(unix.EPOLL_CLOEXEC)
	if err != nil {
		return nil, fmt.Errorf("poller: epoll_create1: %w", err)
	}
	return &epollPoller{
		epfd:     fd,
		channels: make(map[int]*channel.Channel),
		events:   make([]unix.EpollEvent, initialEventListSize),
	}, nil
}

func (p *epollPoller) Poll(timeout time.Duration, active *[]*channel.Channel) (time.Time, error) {
	ms := int(timeout / time.Millisecond)
	n, err := unix.EpollWait(p.epfd, p.events, ms)
	now := time.Now()

	if err != nil {
		if err == unix.EINTR {
			return now, nil
		}
		return now, fmt.Errorf("poller: epoll_wait: %w", err)
	}

	for i := 0; i < n; i++ {
		fd := int(p.events[i].Fd)
		ch, ok := p.channels[fd]
		if !ok {
			continue
		}
		ch.SetRevents(channel.Event(p.events[i].Events))
		*active = append(*active, ch)
	}

	if n == len(p.events) {
		p.events = make([]unix.EpollEvent, len(p.events)*2)
	}

	return now, nil
}

func (p *epollPoller) UpdateChannel(ch *channel.Channel) error {
	tag := ch.Index()

	if tag == tagNew || tag == tagDeleted {
		fd := ch.Fd()
		if tag == tagNew {
			p.channels[fd] = ch
		}
		ch.SetIndex(tagAdded)
		return p.ctl(unix.EPOLL_CTL_ADD, ch)
	}

	// already added
	if ch.IsNoneEvent() {
		ch.SetIndex(tagDeleted)
		return p.ctl(unix.EPOLL_CTL_DEL, ch)
	}
	return p.ctl(unix.EPOLL_CTL_MOD, ch)
}

func (p *epollPoller) RemoveChannel(ch *channel.Channel) error {
	fd := ch.Fd()
	delete(p.channels, fd)

	if ch.Index() == tagAdded {
		if err := p.ctl(unix.EPOLL_CTL_DEL, ch); err != nil {
			return err
		}
	}
	ch.SetIndex(tagNew)
	return nil
}

func (p *epollPoller) HasChannel(ch *channel.Channel) bool {
	existing, ok := p.channels[ch.Fd()]
	return ok && existing == ch
}

func (p *epollPoller) Close() error {
	return unix.Close(p.epfd)
}

func (p *epollPoller) ctl(op int, ch *channel.Channel) error {
	ev := unix.EpollEvent{
		Events: uint32(ch.Events()),
		Fd:     int32(ch.Fd()),
	}
	if err := unix.EpollCtl(p.epfd, op, ch.Fd(), &ev); err != nil {
		logger.Default.Errorf("poller: epoll_ctl(op=%d, fd=%d): %v", op, ch.Fd(), err)
		return fmt.Errorf("poller: epoll_ctl: %w", err)
	}
	return nil
}
