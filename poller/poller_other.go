//go:build !unix

package poller

import (
	"errors"
	"time"

	"github.com/nabbar/reactor/channel"
)

// ErrUnsupportedPlatform is returned by New on platforms without a
// level-triggered readiness primitive the reactor knows how to drive
// (epoll, or poll(2) as a fallback). The reactor's OS dependencies
// (spec §6) are unix-only by design.
var ErrUnsupportedPlatform = errors.New("poller: no epoll/poll(2) demultiplexer on this platform")

type unsupportedPoller struct{}

func newPollPoller() Poller { return unsupportedPoller{} }

func newEPollPoller() (Poller, error) { return unsupportedPoller{}, ErrUnsupportedPlatform }

func (unsupportedPoller) Poll(time.Duration, *[]*channel.Channel) (time.Time, error) {
	return time.Time{}, ErrUnsupportedPlatform
}
func (unsupportedPoller) UpdateChannel(*channel.Channel) error { return ErrUnsupportedPlatform }
func (unsupportedPoller) RemoveChannel(*channel.Channel) error { return ErrUnsupportedPlatform }
func (unsupportedPoller) HasChannel(*channel.Channel) bool     { return false }
func (unsupportedPoller) Close() error                         { return nil }
